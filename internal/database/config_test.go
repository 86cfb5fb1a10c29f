package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, 1, cfg.MinConns)
	assert.Equal(t, 10, cfg.MaxConns)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"unsupported driver", func(c *Config) { c.Driver = "oracle" }, "driver"},
		{"missing host", func(c *Config) { c.Host = "" }, "host"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port"},
		{"missing user", func(c *Config) { c.User = "" }, "user"},
		{"missing database", func(c *Config) { c.Database = "" }, "database"},
		{"zero max conns", func(c *Config) { c.MaxConns = 0 }, "max_conns"},
		{"min above max", func(c *Config) { c.MinConns = 11 }, "min_conns"},
		{"zero acquire timeout", func(c *Config) { c.AcquireTimeout = 0 }, "acquire_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfig_ValidateSQLiteSkipsNetworkFields(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, Database: "file.db", MaxConns: 1, AcquireTimeout: 1}
	assert.NoError(t, cfg.Validate())
}

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "s3cret"

	assert.Equal(t, "host=localhost port=5432 user=postgres dbname=postgres password=s3cret sslmode=disable", cfg.DSN())
	assert.Equal(t, "host=localhost port=5432 user=postgres dbname=postgres password=****** sslmode=disable", cfg.Redacted())
	assert.NotContains(t, cfg.Redacted(), "s3cret")

	cfg.Driver = DriverMySQL
	cfg.Port = 3306
	assert.Equal(t, "postgres:s3cret@tcp(localhost:3306)/postgres?parseTime=true", cfg.DSN())
	assert.NotContains(t, cfg.Redacted(), "s3cret")

	cfg.Driver = DriverSQLite
	cfg.Database = "/tmp/app.db"
	assert.Equal(t, "/tmp/app.db", cfg.DSN())
}

func TestConfig_RedactedWithoutPassword(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotContains(t, cfg.Redacted(), "password=")
}
