package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"marketbridge/internal/logger"
)

type Server struct {
	Port              string `json:"port" yaml:"port" validate:"required"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec" validate:"gte=0"`
}

// HTTP configures the outbound client shared by all providers.
type HTTP struct {
	TimeoutSec int    `json:"timeout_sec" yaml:"timeout_sec" validate:"gte=0"`
	UserAgent  string `json:"user_agent" yaml:"user_agent"`
}

type FRED struct {
	Enabled               bool   `json:"enabled" yaml:"enabled"`
	APIKey                string `json:"api_key" yaml:"api_key"`
	BaseURL               string `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Units                 string `json:"units" yaml:"units" validate:"omitempty,oneof=lin chg ch1 pch pc1 log"`
	Frequency             string `json:"frequency" yaml:"frequency" validate:"omitempty,oneof=d w m q a"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute" validate:"gte=0"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec" validate:"gte=0"`
	Burst                 int    `json:"burst" yaml:"burst" validate:"gte=0"`
}

type Yahoo struct {
	Enabled               bool   `json:"enabled" yaml:"enabled"`
	BaseURL               string `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Interval              string `json:"interval" yaml:"interval"`
	Range                 string `json:"range" yaml:"range"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute" validate:"gte=0"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec" validate:"gte=0"`
	Burst                 int    `json:"burst" yaml:"burst" validate:"gte=0"`
}

type Cache struct {
	TTLSeconds int `json:"ttl_sec" yaml:"ttl_sec" validate:"gte=0"`
	MaxItems   int `json:"max_items" yaml:"max_items" validate:"gte=0"`
}

type Aggregate struct {
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" validate:"gte=0"`
	Attempts       int `json:"attempts" yaml:"attempts" validate:"gte=1"`
	BackoffMillis  int `json:"backoff_ms" yaml:"backoff_ms" validate:"gte=0"`
	TimeoutSec     int `json:"timeout_sec" yaml:"timeout_sec" validate:"gte=0"`
}

// Analytics holds the dashboard defaults for rolling statistics.
type Analytics struct {
	Window         int `json:"window" yaml:"window" validate:"gte=1"`
	Lag            int `json:"lag" yaml:"lag" validate:"gte=1"`
	LookbackMonths int `json:"lookback_months" yaml:"lookback_months" validate:"gte=0"`
}

type Config struct {
	Server    Server        `json:"server" yaml:"server"`
	Log       logger.Config `json:"log" yaml:"log"`
	HTTP      HTTP          `json:"http" yaml:"http"`
	FRED      FRED          `json:"fred" yaml:"fred"`
	Yahoo     Yahoo         `json:"yahoo" yaml:"yahoo"`
	Cache     Cache         `json:"cache" yaml:"cache"`
	Aggregate Aggregate     `json:"aggregate" yaml:"aggregate"`
	Analytics Analytics     `json:"analytics" yaml:"analytics"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 30},
		Log:    logger.Config{Level: "info", Format: "text", MaxSize: 50, MaxBackups: 3, MaxAge: 14},
		HTTP:   HTTP{TimeoutSec: 15},
		FRED: FRED{
			Enabled:              true,
			BaseURL:              "https://api.stlouisfed.org",
			MaxRequestsPerMinute: 120,
			Burst:                10,
		},
		Yahoo: Yahoo{
			Enabled:              true,
			BaseURL:              "https://query1.finance.yahoo.com",
			Interval:             "1d",
			Range:                "5y",
			MaxRequestsPerMinute: 60,
			Burst:                5,
		},
		Cache:     Cache{TTLSeconds: 300, MaxItems: 1000},
		Aggregate: Aggregate{MaxConcurrency: 4, Attempts: 3, BackoffMillis: 250, TimeoutSec: 10},
		Analytics: Analytics{Window: 6, Lag: 12, LookbackMonths: 18},
	}
}

// Load reads config from path, as YAML when the extension is .yaml or .yml and
// as JSON otherwise. If path is empty, config.json then config.yaml in the
// working directory are tried; if none exists defaults are used. A .env file
// in the working directory is loaded first, and environment variables then
// override select fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read .env: %w", err)
	}

	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

var validate = validator.New()

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Duration helpers.

func (s Server) RequestTimeout() time.Duration { return time.Duration(s.RequestTimeoutSec) * time.Second }
func (h HTTP) Timeout() time.Duration          { return time.Duration(h.TimeoutSec) * time.Second }
func (c Cache) TTL() time.Duration             { return time.Duration(c.TTLSeconds) * time.Second }
func (a Aggregate) Backoff() time.Duration     { return time.Duration(a.BackoffMillis) * time.Millisecond }
func (a Aggregate) Timeout() time.Duration     { return time.Duration(a.TimeoutSec) * time.Second }

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", 1, &cfg.Server.RequestTimeoutSec)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.OutputFile = v
	}

	envInt("HTTP_TIMEOUT_SEC", 1, &cfg.HTTP.TimeoutSec)
	if v := os.Getenv("HTTP_USER_AGENT"); v != "" {
		cfg.HTTP.UserAgent = v
	}

	envBool("FRED_ENABLED", &cfg.FRED.Enabled)
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		cfg.FRED.APIKey = v
	}
	if v := os.Getenv("FRED_BASE_URL"); v != "" {
		cfg.FRED.BaseURL = v
	}
	if v := os.Getenv("FRED_UNITS"); v != "" {
		cfg.FRED.Units = v
	}
	if v := os.Getenv("FRED_FREQUENCY"); v != "" {
		cfg.FRED.Frequency = v
	}
	envInt("FRED_MAX_RPM", 0, &cfg.FRED.MaxRequestsPerMinute)
	envInt("FRED_MIN_INTERVAL_SEC", 0, &cfg.FRED.MinRequestIntervalSec)
	envInt("FRED_BURST", 1, &cfg.FRED.Burst)

	envBool("YAHOO_ENABLED", &cfg.Yahoo.Enabled)
	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		cfg.Yahoo.BaseURL = v
	}
	envInt("YAHOO_MAX_RPM", 0, &cfg.Yahoo.MaxRequestsPerMinute)
	envInt("YAHOO_MIN_INTERVAL_SEC", 0, &cfg.Yahoo.MinRequestIntervalSec)
	envInt("YAHOO_BURST", 1, &cfg.Yahoo.Burst)

	envInt("CACHE_TTL_SEC", 0, &cfg.Cache.TTLSeconds)
	envInt("CACHE_MAX_ITEMS", 1, &cfg.Cache.MaxItems)

	envInt("AGGREGATE_MAX_CONCURRENCY", 1, &cfg.Aggregate.MaxConcurrency)
	envInt("AGGREGATE_ATTEMPTS", 1, &cfg.Aggregate.Attempts)
	envInt("AGGREGATE_BACKOFF_MS", 0, &cfg.Aggregate.BackoffMillis)
	envInt("AGGREGATE_TIMEOUT_SEC", 0, &cfg.Aggregate.TimeoutSec)

	envInt("ANALYTICS_WINDOW", 1, &cfg.Analytics.Window)
	envInt("ANALYTICS_LAG", 1, &cfg.Analytics.Lag)
	envInt("ANALYTICS_LOOKBACK_MONTHS", 0, &cfg.Analytics.LookbackMonths)
}

// envInt sets *dst from the named variable when it parses to at least floor.
func envInt(name string, floor int, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if x, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && x >= floor {
		*dst = x
	}
}

func envBool(name string, dst *bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}

// SplitCSV splits a comma-separated list, dropping empty elements.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
