// =============================================================================
// 📦 connkeeper 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/connkeeper/internal/cache"
	"github.com/BaSui01/connkeeper/internal/database"
	"github.com/BaSui01/connkeeper/internal/lifecycle"
	"github.com/BaSui01/connkeeper/internal/migration"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Database:  DefaultDatabaseConfig(),
		Schema:    DefaultSchemaConfig(),
		Redis:     DefaultRedisConfig(),
		Lifecycle: DefaultLifecycleConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		HTTPPort:        8000,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxConnections:  256,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	d := database.DefaultConfig()
	return DatabaseConfig{
		Enabled:         true,
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Name:            d.Database,
		SSLMode:         d.SSLMode,
		MinConns:        d.MinConns,
		MaxConns:        d.MaxConns,
		AcquireTimeout:  d.AcquireTimeout,
		MaxConnLifetime: d.MaxConnLifetime,
		MaxIdleTime:     d.MaxIdleTime,
	}
}

// DefaultSchemaConfig 返回默认表结构配置
func DefaultSchemaConfig() SchemaConfig {
	m := migration.DefaultConfig()
	return SchemaConfig{
		Mode:        SchemaModeMigrations,
		TableName:   m.TableName,
		LockTimeout: m.LockTimeout,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	c := cache.DefaultConfig()
	return RedisConfig{
		Enabled:      false,
		Addr:         c.Addr,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DefaultTTL:   c.DefaultTTL,
	}
}

// DefaultLifecycleConfig 返回默认生命周期时序
func DefaultLifecycleConfig() LifecycleConfig {
	l := lifecycle.DefaultConfig()
	return LifecycleConfig{
		ConnectRetryInterval: l.ConnectRetryInterval,
		HealthCheckInterval:  l.HealthCheckInterval,
		RebuildRetryInterval: l.RebuildRetryInterval,
		ErrorLogInterval:     l.ErrorLogInterval,
		ProbeTimeout:         l.ProbeTimeout,
		MaxConnectAttempts:   l.MaxConnectAttempts,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
		Rotation: LogRotationConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "connkeeper",
		SampleRate:   0.1,
	}
}
