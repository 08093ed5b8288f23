package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines service configuration.
type Config struct {
	HTTPAddr    string          `yaml:"http_addr"`
	DatabaseURL string          `yaml:"database_url"`
	JWTSecret   string          `yaml:"jwt_secret"`
	Timezone    string          `yaml:"timezone"`
	Log         LogConfig       `yaml:"log"`
	Alerts      AlertsConfig    `yaml:"alerts"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Forecast    ForecastConfig  `yaml:"forecast"`
	Redis       RedisConfig     `yaml:"redis"`
	Routing     RoutingConfig   `yaml:"routing"`
	Sync        SyncConfig      `yaml:"sync"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AlertsConfig controls the clock alert ticker. OverrideDate (YYYY-MM-DD) and
// OverrideTime (HH:MM) shift the perceived campus clock for demos.
type AlertsConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	OverrideDate string        `yaml:"override_date"`
	OverrideTime string        `yaml:"override_time"`
}

// TelemetryConfig bounds how much telemetry feeds one forecast.
type TelemetryConfig struct {
	CommuteLimit int `yaml:"commute_limit"`
	LiftLimit    int `yaml:"lift_limit"`
}

// ForecastConfig controls the forecast poller and the reasoning service.
type ForecastConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Timeout         time.Duration `yaml:"timeout"`
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
}

// RedisConfig enables the shared forecast cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl"`
}

// RoutingConfig points at the distance-matrix provider.
type RoutingConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// SyncConfig controls the commute sync job.
type SyncConfig struct {
	Interval        time.Duration `yaml:"interval"`
	RequestDelay    time.Duration `yaml:"request_delay"`
	Anchors         []string      `yaml:"anchors"`
	WebhookURL      string        `yaml:"webhook_url"`
	WebhookTemplate string        `yaml:"webhook_template"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Timezone: "Asia/Kuala_Lumpur",
		Log:      LogConfig{Level: "info", Format: "json"},
		Alerts:   AlertsConfig{TickInterval: time.Second},
		Telemetry: TelemetryConfig{
			CommuteLimit: 10,
			LiftLimit:    20,
		},
		Forecast: ForecastConfig{
			RefreshInterval: 5 * time.Minute,
			Timeout:         30 * time.Second,
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-4o-mini",
			Temperature:     0.7,
			MaxTokens:       200,
		},
		Routing: RoutingConfig{
			BaseURL: "https://maps.googleapis.com",
			Timeout: 10 * time.Second,
		},
		Sync: SyncConfig{
			Interval:     15 * time.Minute,
			RequestDelay: 100 * time.Millisecond,
		},
	}
}

// Load reads defaults, then the YAML file named by CAMPUS_CONFIG, then env overrides.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CAMPUS_CONFIG"))
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", cfg.JWTSecret))
	cfg.Timezone = getenvDefault("CAMPUS_TIMEZONE", cfg.Timezone)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("LOG_FORMAT", cfg.Log.Format)

	cfg.Alerts.TickInterval = getenvDuration("ALERT_TICK_INTERVAL", cfg.Alerts.TickInterval)
	cfg.Alerts.OverrideDate = getenvDefault("ALERT_OVERRIDE_DATE", cfg.Alerts.OverrideDate)
	cfg.Alerts.OverrideTime = getenvDefault("ALERT_OVERRIDE_TIME", cfg.Alerts.OverrideTime)

	cfg.Telemetry.CommuteLimit = getenvIntDefault("TELEMETRY_COMMUTE_LIMIT", cfg.Telemetry.CommuteLimit)
	cfg.Telemetry.LiftLimit = getenvIntDefault("TELEMETRY_LIFT_LIMIT", cfg.Telemetry.LiftLimit)

	cfg.Forecast.RefreshInterval = getenvDuration("FORECAST_REFRESH_INTERVAL", cfg.Forecast.RefreshInterval)
	cfg.Forecast.Timeout = getenvDuration("FORECAST_TIMEOUT", cfg.Forecast.Timeout)
	cfg.Forecast.BaseURL = getenvDefault("OPENAI_BASE_URL", cfg.Forecast.BaseURL)
	cfg.Forecast.APIKey = getenvDefault("OPENAI_API_KEY", cfg.Forecast.APIKey)
	cfg.Forecast.Model = getenvDefault("OPENAI_MODEL", cfg.Forecast.Model)
	cfg.Forecast.Temperature = getenvFloatDefault("OPENAI_TEMPERATURE", cfg.Forecast.Temperature)
	cfg.Forecast.MaxTokens = getenvIntDefault("OPENAI_MAX_TOKENS", cfg.Forecast.MaxTokens)

	cfg.Redis.Addr = getenvDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getenvDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getenvIntDefault("REDIS_DB", cfg.Redis.DB)

	cfg.Routing.BaseURL = getenvDefault("ROUTING_BASE_URL", cfg.Routing.BaseURL)
	cfg.Routing.APIKey = getenvDefault("GOOGLE_MAPS_API_KEY", cfg.Routing.APIKey)

	cfg.Sync.Interval = getenvDuration("SYNC_INTERVAL", cfg.Sync.Interval)
	cfg.Sync.RequestDelay = getenvDuration("SYNC_REQUEST_DELAY", cfg.Sync.RequestDelay)
	if anchors := splitCSV(os.Getenv("SYNC_ANCHORS")); len(anchors) > 0 {
		cfg.Sync.Anchors = anchors
	}
	cfg.Sync.WebhookURL = getenvDefault("SYNC_WEBHOOK_URL", cfg.Sync.WebhookURL)
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Sync.RequestDelay < 0 {
		return errors.New("config: sync.request_delay must not be negative")
	}
	if c.Forecast.Temperature <= 0 || c.Forecast.Temperature > 2 {
		return errors.New("config: forecast.temperature must be within (0,2]")
	}
	if c.Forecast.MaxTokens < 0 {
		return errors.New("config: forecast.max_tokens must not be negative")
	}
	return nil
}

// Location resolves the campus timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
