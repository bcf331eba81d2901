package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Init mutates global logrus state, so these tests do not run in parallel.

func TestInit_WritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "marketbridge.log")
	t.Cleanup(func() { logrus.SetOutput(os.Stderr); logrus.SetLevel(logrus.InfoLevel) })

	require.NoError(t, Init(Config{Level: "debug", Format: "json", OutputFile: path, MaxSize: 1}))
	logrus.WithField("symbol", "UNRATE").Debug("fetched")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"symbol":"UNRATE"`)
	require.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { logrus.SetOutput(os.Stderr); logrus.SetLevel(logrus.InfoLevel) })

	require.NoError(t, Init(Config{Level: "chatty"}))
	require.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	require.IsType(t, &logrus.TextFormatter{}, formatter(""))
}
