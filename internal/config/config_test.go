package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	require.Equal(t, 6, cfg.Analytics.Window)
	require.Equal(t, 12, cfg.Analytics.Lag)
	require.Equal(t, 18, cfg.Analytics.LookbackMonths)
	require.Equal(t, 250*time.Millisecond, cfg.Aggregate.Backoff())
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"server": {"port": "9090"},
		"fred": {"api_key": "from-file", "max_requests_per_minute": 30},
		"analytics": {"window": 3, "lag": 4}
	}`)

	cfg, err := Load(path)

	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "from-file", cfg.FRED.APIKey)
	require.Equal(t, 30, cfg.FRED.MaxRequestsPerMinute)
	require.Equal(t, 3, cfg.Analytics.Window)
	require.Equal(t, 4, cfg.Analytics.Lag)
	// untouched sections keep their defaults
	require.Equal(t, "1d", cfg.Yahoo.Interval)
	require.Equal(t, 18, cfg.Analytics.LookbackMonths)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: "7070"
yahoo:
  enabled: false
  range: 1y
cache:
  ttl_sec: 60
log:
  level: debug
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	require.Equal(t, "7070", cfg.Server.Port)
	require.False(t, cfg.Yahoo.Enabled)
	require.Equal(t, "1y", cfg.Yahoo.Range)
	require.Equal(t, time.Minute, cfg.Cache.TTL())
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FRED_API_KEY", "from-env")
	t.Setenv("YAHOO_ENABLED", "no")
	t.Setenv("AGGREGATE_ATTEMPTS", "5")
	t.Setenv("ANALYTICS_WINDOW", "0") // below floor, ignored
	t.Setenv("CACHE_TTL_SEC", "abc")  // unparseable, ignored
	t.Setenv("FRED_UNITS", "pc1")

	cfg, err := Load(writeFile(t, "config.json", `{"fred": {"api_key": "from-file"}}`))

	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.FRED.APIKey)
	require.False(t, cfg.Yahoo.Enabled)
	require.Equal(t, 5, cfg.Aggregate.Attempts)
	require.Equal(t, 6, cfg.Analytics.Window)
	require.Equal(t, 300, cfg.Cache.TTLSeconds)
	require.Equal(t, "pc1", cfg.FRED.Units)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))

	require.NoError(t, err)
	require.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeFile(t, "config.json", `{"analytics": {"window": -1}}`))
	require.ErrorContains(t, err, "invalid config")

	_, err = Load(writeFile(t, "config.json", `{"fred": {"frequency": "hourly"}}`))
	require.ErrorContains(t, err, "invalid config")

	_, err = Load(writeFile(t, "config.yml", "server: [unterminated"))
	require.ErrorContains(t, err, "parse config")
}

func TestSplitCSV(t *testing.T) {
	require.Equal(t, []string{"AAPL", "MSFT"}, SplitCSV(" AAPL, ,MSFT ,"))
	require.Empty(t, SplitCSV(""))
}
