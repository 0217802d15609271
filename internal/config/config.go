package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/google/uuid"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Engine configuration.
	TickInterval         time.Duration
	MaxOffsetStep        time.Duration
	SkewToleranceMinutes int
	Location             *time.Location

	// Kafka transport.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	BatchSize          int
	BatchFlushInterval time.Duration

	// MQTT transport, disabled when MQTTBroker is empty.
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	// Redis settings store, disabled when RedisAddr is empty.
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	// SettingsFile is a watched TOML settings file, disabled when empty.
	SettingsFile string

	// Font fetching.
	FontBaseURL   string
	FontTimeout   time.Duration
	FontCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	tickInterval, err := parsePositiveDuration("TICK_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}

	maxStep, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAX_OFFSET_STEP", "500ms"))
	if err != nil {
		return nil, errors.New("invalid MAX_OFFSET_STEP")
	}

	skew, err := parseInt("SKEW_TOLERANCE_MINUTES", 30, 0, 720)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("CLOCK_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOCK_TIMEZONE: %w", err)
	}

	fontTimeout, err := parsePositiveDuration("FONT_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	redisDB, err := parseInt("REDIS_DB", 0, 0, 15)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TickInterval:         tickInterval,
		MaxOffsetStep:        maxStep,
		SkewToleranceMinutes: skew,
		Location:             loc,

		KafkaEnabled:       sharedcfg.EnvOrDefault("KAFKA_ENABLED", "true") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "clock-events"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "clock-display"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "clock-engine"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "clock-engine-"+uuid.NewString()[:8]),
		MQTTTopicPrefix: sharedcfg.EnvOrDefault("MQTT_TOPIC_PREFIX", "deskclock"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisKey:      sharedcfg.EnvOrDefault("REDIS_KEY", "clock:settings"),

		SettingsFile: os.Getenv("SETTINGS_FILE"),

		FontBaseURL:   os.Getenv("FONT_BASE_URL"),
		FontTimeout:   fontTimeout,
		FontCacheSize: parseFontCacheSize(),
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.MQTTBroker != "" && cfg.MQTTTopicPrefix == "" {
		return nil, errors.New("MQTT_TOPIC_PREFIX is required when MQTT_BROKER is set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseInt(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, lo, hi)
	}
	return n, nil
}

func parseFontCacheSize() int {
	if s := os.Getenv("FONT_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 32
}
