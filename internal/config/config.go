package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal containers

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	StreamInterval  time.Duration

	// Region and classification.
	RegionName    string
	Timezone      *time.Location
	DefaultOrigin domain.Geo
	Thresholds    domain.Thresholds

	// Persistence.
	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	// Notification channels. Disabled channels run in mock mode.
	UseTwilio        bool
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	AlertToNumbers   []string
	UseFirebase      bool
	FCMServerKey     string
	FCMTopic         string
	NotifyTimeout    time.Duration

	// Kafka alert feed and optional readings source.
	KafkaBrokers       []string
	KafkaAlertsEnabled bool
	KafkaAlertsTopic   string
	KafkaIngestEnabled bool
	KafkaReadingsTopic string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first when present;
// variables already set in the environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

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

	streamInterval, err := parsePositiveDuration("STREAM_INTERVAL", "3s")
	if err != nil {
		return nil, err
	}

	notifyTimeout, err := parsePositiveDuration("NOTIFY_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	thresholds, err := loadThresholds()
	if err != nil {
		return nil, err
	}

	tz, err := time.LoadLocation(sharedcfg.EnvOrDefault("TIMEZONE", "Asia/Kolkata"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	lat, err := parseFloat("DEFAULT_LAT", 19.0760)
	if err != nil {
		return nil, err
	}
	lng, err := parseFloat("DEFAULT_LNG", 72.8777)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		StreamInterval:  streamInterval,

		RegionName:    sharedcfg.EnvOrDefault("APP_REGION_NAME", "Mumbai Coast"),
		Timezone:      tz,
		DefaultOrigin: domain.Geo{Lat: lat, Lng: lng},
		Thresholds:    thresholds,

		StoreDriver: strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", StoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  sharedcfg.EnvOrDefault("SQLITE_PATH", "coastal.db"),

		UseTwilio:        os.Getenv("USE_TWILIO") == "true",
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		AlertToNumbers:   splitList(sharedcfg.EnvOrDefault("ALERT_TO_NUMBERS", "+911234567890")),
		UseFirebase:      os.Getenv("USE_FIREBASE") == "true",
		FCMServerKey:     os.Getenv("FCM_SERVER_KEY"),
		FCMTopic:         sharedcfg.EnvOrDefault("FCM_TOPIC", "coastal-alerts"),
		NotifyTimeout:    notifyTimeout,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertsEnabled: os.Getenv("KAFKA_ALERTS_ENABLED") == "true",
		KafkaAlertsTopic:   sharedcfg.EnvOrDefault("KAFKA_ALERTS_TOPIC", "coastal-alerts"),
		KafkaIngestEnabled: os.Getenv("KAFKA_INGEST_ENABLED") == "true",
		KafkaReadingsTopic: sharedcfg.EnvOrDefault("KAFKA_READINGS_TOPIC", "sensor-readings"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "coastal-alerts"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("STORE_DRIVER is postgres but DATABASE_URL is not set")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want memory, postgres or sqlite", c.StoreDriver)
	}

	if c.DefaultOrigin.Lat < -90 || c.DefaultOrigin.Lat > 90 {
		return errors.New("DEFAULT_LAT must be within [-90, 90]")
	}
	if c.DefaultOrigin.Lng < -180 || c.DefaultOrigin.Lng > 180 {
		return errors.New("DEFAULT_LNG must be within [-180, 180]")
	}

	if c.UseTwilio && (c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFromNumber == "") {
		return errors.New("USE_TWILIO is true but TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN or TWILIO_FROM_NUMBER is not set")
	}
	if c.UseTwilio && len(c.AlertToNumbers) == 0 {
		return errors.New("USE_TWILIO is true but ALERT_TO_NUMBERS is empty")
	}
	if c.UseFirebase && c.FCMServerKey == "" {
		return errors.New("USE_FIREBASE is true but FCM_SERVER_KEY is not set")
	}

	if (c.KafkaAlertsEnabled || c.KafkaIngestEnabled) && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when Kafka is enabled")
	}
	if c.KafkaAlertsEnabled && c.KafkaAlertsTopic == "" {
		return errors.New("KAFKA_ALERTS_TOPIC is required")
	}
	if c.KafkaIngestEnabled && c.KafkaReadingsTopic == "" {
		return errors.New("KAFKA_READINGS_TOPIC is required")
	}
	return nil
}

// loadThresholds reads the four classification cutoffs. Each one is
// independently overridable and must be positive.
func loadThresholds() (domain.Thresholds, error) {
	def := domain.DefaultThresholds()
	var t domain.Thresholds
	var err error

	if t.TideWatch, err = parsePositiveFloat("THRESHOLD_TIDE_WATCH", def.TideWatch); err != nil {
		return t, err
	}
	if t.TideWarning, err = parsePositiveFloat("THRESHOLD_TIDE_WARNING", def.TideWarning); err != nil {
		return t, err
	}
	if t.WindWarning, err = parsePositiveFloat("THRESHOLD_WIND_WARNING", def.WindWarning); err != nil {
		return t, err
	}
	if t.RainWatch, err = parsePositiveFloat("THRESHOLD_RAIN_WATCH", def.RainWatch); err != nil {
		return t, err
	}
	if t.TideWarning < t.TideWatch {
		return t, errors.New("THRESHOLD_TIDE_WARNING must not be below THRESHOLD_TIDE_WATCH")
	}
	return t, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	v, err := parseFloat(key, def)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return v, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
