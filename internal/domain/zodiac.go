package domain

import "time"

// Element is a zodiac sign's classical element.
type Element string

// Elements.
const (
	ElementFire  Element = "fire"
	ElementEarth Element = "earth"
	ElementAir   Element = "air"
	ElementWater Element = "water"
)

// ZodiacSign is a static calendar interval mapped to a named sign.
type ZodiacSign struct {
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	StartMonth int     `json:"startMonth"`
	StartDay   int     `json:"startDay"`
	EndMonth   int     `json:"endMonth"`
	EndDay     int     `json:"endDay"`
	Element    Element `json:"element"`
}

// ZodiacSigns is the read-only sign table in calendar order, starting with
// the year-wrapping Capricorn.
var ZodiacSigns = [12]ZodiacSign{
	{Name: "Capricorn", Symbol: "♑", StartMonth: 12, StartDay: 22, EndMonth: 1, EndDay: 19, Element: ElementEarth},
	{Name: "Aquarius", Symbol: "♒", StartMonth: 1, StartDay: 20, EndMonth: 2, EndDay: 18, Element: ElementAir},
	{Name: "Pisces", Symbol: "♓", StartMonth: 2, StartDay: 19, EndMonth: 3, EndDay: 20, Element: ElementWater},
	{Name: "Aries", Symbol: "♈", StartMonth: 3, StartDay: 21, EndMonth: 4, EndDay: 19, Element: ElementFire},
	{Name: "Taurus", Symbol: "♉", StartMonth: 4, StartDay: 20, EndMonth: 5, EndDay: 20, Element: ElementEarth},
	{Name: "Gemini", Symbol: "♊", StartMonth: 5, StartDay: 21, EndMonth: 6, EndDay: 20, Element: ElementAir},
	{Name: "Cancer", Symbol: "♋", StartMonth: 6, StartDay: 21, EndMonth: 7, EndDay: 22, Element: ElementWater},
	{Name: "Leo", Symbol: "♌", StartMonth: 7, StartDay: 23, EndMonth: 8, EndDay: 22, Element: ElementFire},
	{Name: "Virgo", Symbol: "♍", StartMonth: 8, StartDay: 23, EndMonth: 9, EndDay: 22, Element: ElementEarth},
	{Name: "Libra", Symbol: "♎", StartMonth: 9, StartDay: 23, EndMonth: 10, EndDay: 22, Element: ElementAir},
	{Name: "Scorpio", Symbol: "♏", StartMonth: 10, StartDay: 23, EndMonth: 11, EndDay: 21, Element: ElementWater},
	{Name: "Sagittarius", Symbol: "♐", StartMonth: 11, StartDay: 22, EndMonth: 12, EndDay: 21, Element: ElementFire},
}

// Contains reports whether (month, day) falls inside the sign's interval.
func (z ZodiacSign) Contains(month, day int) bool {
	onStart := month == z.StartMonth && day >= z.StartDay
	onEnd := month == z.EndMonth && day <= z.EndDay
	if z.StartMonth > z.EndMonth {
		return onStart || onEnd
	}
	return onStart || onEnd || (month > z.StartMonth && month < z.EndMonth)
}

// ZodiacFor returns the sign for a calendar month and day. The table covers
// every valid date; an invalid date resolves to Capricorn.
func ZodiacFor(month time.Month, day int) ZodiacSign {
	for _, sign := range ZodiacSigns {
		if sign.Contains(int(month), day) {
			return sign
		}
	}
	return ZodiacSigns[0]
}

// ZodiacOf returns the sign for the wall date of t.
func ZodiacOf(t time.Time) ZodiacSign {
	return ZodiacFor(t.Month(), t.Day())
}

// ZodiacByName looks a sign up by name.
func ZodiacByName(name string) (ZodiacSign, bool) {
	for _, sign := range ZodiacSigns {
		if sign.Name == name {
			return sign, true
		}
	}
	return ZodiacSign{}, false
}
