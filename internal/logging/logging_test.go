package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BaSui01/connkeeper/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func fileConfig(t *testing.T, level, format string) (config.LogConfig, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs", "connkeeper.log")
	cfg := config.DefaultLogConfig()
	cfg.Level = level
	cfg.Format = format
	cfg.OutputPaths = []string{path}
	return cfg, path
}

func TestNew_WritesJSONToRotatingFile(t *testing.T) {
	cfg, path := fileConfig(t, "info", "json")

	logger, cleanup, err := New(cfg)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("database connected", zap.String("component", "database"), zap.Uint64("generation", 1))
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "database connected", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "database", entry["component"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_ConsoleFormat(t *testing.T) {
	cfg, path := fileConfig(t, "debug", "console")

	logger, cleanup, err := New(cfg)
	require.NoError(t, err)
	logger.Debug("probe ok")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "probe ok")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(string(data)))))
}

func TestNew_DefaultsToStdout(t *testing.T) {
	cfg := config.DefaultLogConfig()
	cfg.OutputPaths = nil

	logger, cleanup, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, cleanup())
}

func TestNew_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	cfg := config.DefaultLogConfig()
	cfg.OutputPaths = []string{filepath.Join(blocker, "sub", "connkeeper.log")}

	_, _, err := New(cfg)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
