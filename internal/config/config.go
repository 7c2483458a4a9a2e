package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/swelljoe/sunnybloom/internal/prayer"
)

// Config holds environment-based settings
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBPath        string `env:"DB_PATH" envDefault:"sunnybloom.db"`
	CacheBackend  string `env:"CACHE_BACKEND" envDefault:"sqlite"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AladhanBaseURL string        `env:"ALADHAN_BASE_URL" envDefault:"https://api.aladhan.com/v1"`
	AladhanRPS     float64       `env:"ALADHAN_RPS" envDefault:"1"`
	AladhanBurst   int           `env:"ALADHAN_BURST" envDefault:"3"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	UserAgent      string        `env:"USER_AGENT" envDefault:"sunnybloom/1.0 (contact@sunnybloom.app)"`

	CalculationMethod int    `env:"CALCULATION_METHOD" envDefault:"11"`
	LocalCalculation  bool   `env:"LOCAL_CALCULATION" envDefault:"true"`
	Connectivity      string `env:"CONNECTIVITY" envDefault:"probe"`
	ProbeAddr         string `env:"CONNECTIVITY_PROBE_ADDR" envDefault:"api.aladhan.com:443"`

	GeolocationURL     string        `env:"GEOLOCATION_URL" envDefault:"http://ip-api.com/json/"`
	GeolocationTimeout time.Duration `env:"GEOLOCATION_TIMEOUT" envDefault:"5s"`
	FallbackLatitude   float64       `env:"FALLBACK_LATITUDE" envDefault:"-6.2088"`
	FallbackLongitude  float64       `env:"FALLBACK_LONGITUDE" envDefault:"106.8456"`
	Timezone           string        `env:"TIMEZONE" envDefault:"Asia/Jakarta"`
	Locale             string        `env:"LOCALE" envDefault:"id"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then parses configuration from the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from environment variables only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	switch c.Connectivity {
	case "probe", "online", "offline":
	default:
		return fmt.Errorf("unknown CONNECTIVITY %q", c.Connectivity)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if strings.TrimSpace(c.AladhanBaseURL) == "" {
		return fmt.Errorf("ALADHAN_BASE_URL is required")
	}
	if _, err := prayer.MethodByCode(c.CalculationMethod); err != nil {
		return fmt.Errorf("invalid CALCULATION_METHOD: %w", err)
	}
	// a limiter with no burst never admits a request
	if c.AladhanRPS > 0 && c.AladhanBurst < 1 {
		return fmt.Errorf("ALADHAN_BURST must be at least 1 when ALADHAN_RPS is set, got %d", c.AladhanBurst)
	}
	return nil
}

// Location returns the configured time zone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
