// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// clearLegacyEnv 屏蔽宿主环境中的旧版变量
func clearLegacyEnv(t *testing.T) {
	t.Helper()
	for _, e := range legacyEnv {
		t.Setenv(e.key, "")
	}
	t.Setenv("LOG_LEVEL", "")
}

func TestLoader_LoadDefaults(t *testing.T) {
	clearLegacyEnv(t)
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, "connkeeper.yaml", `
server:
  http_port: 8888
  read_timeout: 60s
database:
  driver: mysql
  host: db.internal
  port: 3306
  name: app
  max_conns: 20
  acquire_timeout: 5s
lifecycle:
  health_check_interval: 15s
  max_connect_attempts: 3
log:
  level: debug
  output_paths: [stdout, /var/log/connkeeper.log]
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.Database.AcquireTimeout)
	assert.Equal(t, 15*time.Second, cfg.Lifecycle.HealthCheckInterval)
	assert.Equal(t, 3, cfg.Lifecycle.MaxConnectAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/var/log/connkeeper.log"}, cfg.Log.OutputPaths)

	// 文件未覆盖的字段保持默认值
	assert.Equal(t, DefaultDatabaseConfig().User, cfg.Database.User)
	assert.Equal(t, time.Second, cfg.Lifecycle.ConnectRetryInterval)
}

func TestLoader_LoadFromTOML(t *testing.T) {
	path := writeConfig(t, "connkeeper.toml", `
[server]
http_port = 9100
shutdown_timeout = "20s"

[database]
driver = "sqlite"
name = "/tmp/connkeeper.db"

[redis]
enabled = true
addr = "cache:6380"
tls = true

[log.rotation]
max_size_mb = 10
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/connkeeper.db", cfg.Database.Name)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.TLS)
	assert.Equal(t, 10, cfg.Log.Rotation.MaxSizeMB)
	assert.Equal(t, 5, cfg.Log.Rotation.MaxBackups)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("CONNKEEPER_SERVER_HTTP_PORT", "7777")
	t.Setenv("CONNKEEPER_DATABASE_HOST", "env-db")
	t.Setenv("CONNKEEPER_DATABASE_ACQUIRE_TIMEOUT", "2s")
	t.Setenv("CONNKEEPER_REDIS_ENABLED", "true")
	t.Setenv("CONNKEEPER_LIFECYCLE_MAX_CONNECT_ATTEMPTS", "5")
	t.Setenv("CONNKEEPER_LOG_OUTPUT_PATHS", "stdout, /tmp/a.log")
	t.Setenv("CONNKEEPER_TELEMETRY_SAMPLE_RATE", "0.5")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, 2*time.Second, cfg.Database.AcquireTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 5, cfg.Lifecycle.MaxConnectAttempts)
	assert.Equal(t, []string{"stdout", "/tmp/a.log"}, cfg.Log.OutputPaths)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
}

func TestLoader_LegacyEnv(t *testing.T) {
	t.Setenv("USE_POSTGRES", "false")
	t.Setenv("POSTGRES_DB", "legacy")
	t.Setenv("POSTGRES_USER", "svc")
	t.Setenv("POSTGRES_PASSWORD", "s3cret")
	t.Setenv("POSTGRES_HOST", "postgres")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_POOL_MIN", "2")
	t.Setenv("POSTGRES_POOL_MAX", "8")
	t.Setenv("HTTP_PORT", "8001")
	t.Setenv("LOG_LEVEL", "WARN")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "legacy", cfg.Database.Name)
	assert.Equal(t, "svc", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "postgres", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 2, cfg.Database.MinConns)
	assert.Equal(t, 8, cfg.Database.MaxConns)
	assert.Equal(t, 8001, cfg.Server.HTTPPort)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_PrefixedEnvOverridesLegacy(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "legacy-host")
	t.Setenv("CONNKEEPER_DATABASE_HOST", "new-host")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "new-host", cfg.Database.Host)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "connkeeper.yaml", `
server:
  http_port: 8888
database:
  host: yaml-db
  name: yaml-name
`)
	t.Setenv("CONNKEEPER_SERVER_HTTP_PORT", "9999")
	t.Setenv("CONNKEEPER_DATABASE_HOST", "env-db")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, "yaml-name", cfg.Database.Name)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("CONNKEEPER_SERVER_HTTP_PORT", "80")

	_, err := NewLoader().
		WithValidator(func(cfg *Config) error {
			if cfg.Server.HTTPPort < 1024 {
				return assert.AnError
			}
			return nil
		}).
		Load()
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("CONNKEEPER_DATABASE_ACQUIRE_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	assert.ErrorContains(t, err, "CONNKEEPER_DATABASE_ACQUIRE_TIMEOUT")
}

func TestLoader_NonExistentFile(t *testing.T) {
	clearLegacyEnv(t)
	cfg, err := NewLoader().WithConfigPath("/non/existent/path/connkeeper.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
}

func TestLoader_InvalidFiles(t *testing.T) {
	tests := map[string]string{
		"invalid.yaml": "server:\n  http_port: [invalid\n",
		"invalid.toml": "[server\nhttp_port = ",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader().WithConfigPath(writeConfig(t, name, content)).Load()
			assert.Error(t, err)
		})
	}
}

func TestMustLoad(t *testing.T) {
	valid := writeConfig(t, "connkeeper.yaml", "server:\n  http_port: 8080\n")
	assert.NotPanics(t, func() {
		assert.Equal(t, 8080, MustLoad(valid).Server.HTTPPort)
	})

	invalid := writeConfig(t, "invalid.yaml", "invalid: [yaml")
	assert.Panics(t, func() { MustLoad(invalid) })
}
