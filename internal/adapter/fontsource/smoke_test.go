//go:build fontsmoke

package fontsource

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/clock-sync-engine/internal/observability"
)

// These tests fetch from a real asset server and require FONT_BASE_URL and
// FONT_SMOKE_REF (a font reference that server is known to serve).
// Run with: go test -tags=fontsmoke ./internal/adapter/fontsource/ -v -count=1

func smokeClient(t *testing.T) (*Client, string) {
	t.Helper()
	base, ref := os.Getenv("FONT_BASE_URL"), os.Getenv("FONT_SMOKE_REF")
	if base == "" || ref == "" {
		t.Fatal("FONT_BASE_URL and FONT_SMOKE_REF must be set to run smoke tests")
	}
	c, err := NewClient(base, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	require.NoError(t, err)
	return c, ref
}

func TestSmoke_LoadFont(t *testing.T) {
	c, ref := smokeClient(t)

	font, err := c.LoadFont(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, FontName(ref), font.Name)
	assert.Positive(t, font.Size)
	assert.NotEmpty(t, font.Source)
}

func TestSmoke_MissingFont(t *testing.T) {
	c, _ := smokeClient(t)

	_, err := c.LoadFont(context.Background(), "definitely-not-a-font-9f2c.ttf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSmoke_CachedLoader(t *testing.T) {
	c, ref := smokeClient(t)
	m := observability.NewMetricsForTesting()
	cached := NewCachedLoader(c, 4, m)

	f1, err := cached.LoadFont(context.Background(), ref)
	require.NoError(t, err)
	f2, err := cached.LoadFont(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
}
