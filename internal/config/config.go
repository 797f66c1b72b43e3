package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                 string  `mapstructure:"PORT"`
	DatabaseURL          string  `mapstructure:"DATABASE_URL"`
	DatabaseMaxConns     int     `mapstructure:"DATABASE_MAX_CONNS"`
	RedisURL             string  `mapstructure:"REDIS_URL"`
	RabbitMQURL          string  `mapstructure:"RABBITMQ_URL"`
	ORSAPIKey            string  `mapstructure:"ORS_API_KEY"`
	ORSBaseURL           string  `mapstructure:"ORS_BASE_URL"`
	ORSRequestsPerMinute int     `mapstructure:"ORS_REQUESTS_PER_MINUTE"`
	Geocoder             string  `mapstructure:"GEOCODER"`
	NominatimURL         string  `mapstructure:"NOMINATIM_URL"`
	NominatimUserAgent   string  `mapstructure:"NOMINATIM_USER_AGENT"`
	HubAddress           string  `mapstructure:"HUB_ADDRESS"`
	BusinessTimezone     string  `mapstructure:"BUSINESS_TIMEZONE"`
	MaxLegKm             float64 `mapstructure:"MAX_LEG_KM"`
	KMeansSeed           int64   `mapstructure:"KMEANS_SEED"`
	TemplatesPath        string  `mapstructure:"TEMPLATES_PATH"`
	SeedPath             string  `mapstructure:"SEED_PATH"`
	LogLevel             string  `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_CONNS", 10)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("ORS_API_KEY", "")
	v.SetDefault("ORS_BASE_URL", "https://api.openrouteservice.org")
	v.SetDefault("ORS_REQUESTS_PER_MINUTE", 40)
	v.SetDefault("GEOCODER", "ors")
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("NOMINATIM_USER_AGENT", "route-scheduling-service")
	v.SetDefault("HUB_ADDRESS", "")
	v.SetDefault("BUSINESS_TIMEZONE", "America/Chicago")
	v.SetDefault("MAX_LEG_KM", 100.0)
	v.SetDefault("KMEANS_SEED", 0)
	v.SetDefault("TEMPLATES_PATH", "config/task_templates.yaml")
	v.SetDefault("SEED_PATH", "data/seeds/orders.json")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.Geocoder) {
	case "ors", "nominatim":
	default:
		return fmt.Errorf("GEOCODER must be ors or nominatim, got %q", c.Geocoder)
	}
	if strings.TrimSpace(c.ORSAPIKey) == "" {
		return fmt.Errorf("ORS_API_KEY is required")
	}
	if _, err := time.LoadLocation(c.BusinessTimezone); err != nil {
		return fmt.Errorf("BUSINESS_TIMEZONE %q: %w", c.BusinessTimezone, err)
	}
	if c.MaxLegKm < 0 {
		return fmt.Errorf("MAX_LEG_KM must not be negative")
	}
	return nil
}

// Location returns the business timezone; Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Get returns an environment variable or the fallback.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
