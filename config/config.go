package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/connkeeper/internal/cache"
	"github.com/BaSui01/connkeeper/internal/database"
	"github.com/BaSui01/connkeeper/internal/lifecycle"
	"github.com/BaSui01/connkeeper/internal/migration"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 connkeeper 的完整配置结构
type Config struct {
	// Server 健康检查服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Database 数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Schema 启动时的表结构初始化
	Schema SchemaConfig `yaml:"schema" env:"SCHEMA"`

	// Redis 缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Lifecycle 重试、探活与重建时序，数据库与缓存共用
	Lifecycle LifecycleConfig `yaml:"lifecycle" env:"LIFECYCLE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// 监听地址
	Host string `yaml:"host" env:"HOST"`
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 最大并发连接数，0 表示不限制
	MaxConnections int `yaml:"max_connections" env:"MAX_CONNECTIONS"`
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.HTTPPort)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 是否启用数据库
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	Host   string `yaml:"host" env:"HOST"`
	Port   int    `yaml:"port" env:"PORT"`
	User   string `yaml:"user" env:"USER"`
	// 密码，不会出现在日志中
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名；sqlite 为文件路径
	Name    string `yaml:"name" env:"NAME"`
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 启动时预热的连接数
	MinConns int `yaml:"min_conns" env:"MIN_CONNS"`
	// 最大连接数
	MaxConns int `yaml:"max_conns" env:"MAX_CONNS"`
	// 借用连接的超时
	AcquireTimeout  time.Duration `yaml:"acquire_timeout" env:"ACQUIRE_TIMEOUT"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"MAX_CONN_LIFETIME"`
	MaxIdleTime     time.Duration `yaml:"max_idle_time" env:"MAX_IDLE_TIME"`
}

// ToManagerConfig 转换为 database.Manager 配置
func (d DatabaseConfig) ToManagerConfig() database.Config {
	return database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		Database:        d.Name,
		User:            d.User,
		Password:        d.Password,
		SSLMode:         d.SSLMode,
		MinConns:        d.MinConns,
		MaxConns:        d.MaxConns,
		AcquireTimeout:  d.AcquireTimeout,
		MaxConnLifetime: d.MaxConnLifetime,
		MaxIdleTime:     d.MaxIdleTime,
	}
}

// 表结构初始化模式
const (
	SchemaModeNone       = "none"
	SchemaModeMigrations = "migrations"
	// SchemaModeModels 用 gorm 模型建表，适用于没有迁移文件的 sqlite
	SchemaModeModels = "models"
)

// SchemaConfig 表结构初始化配置
type SchemaConfig struct {
	// 模式: none, migrations, models
	Mode string `yaml:"mode" env:"MODE"`
	// 迁移版本表名
	TableName string `yaml:"table_name" env:"TABLE_NAME"`
	// 迁移锁超时
	LockTimeout time.Duration `yaml:"lock_timeout" env:"LOCK_TIMEOUT"`
}

// ToMigrationConfig 按数据库驱动生成迁移配置
func (s SchemaConfig) ToMigrationConfig(db DatabaseConfig) (migration.Config, error) {
	cfg, err := migration.ConfigFor(db.ToManagerConfig())
	if err != nil {
		return migration.Config{}, err
	}
	if s.TableName != "" {
		cfg.TableName = s.TableName
	}
	if s.LockTimeout > 0 {
		cfg.LockTimeout = s.LockTimeout
	}
	return cfg, nil
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用缓存
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB           int           `yaml:"db" env:"DB"`
	PoolSize     int           `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	DefaultTTL   time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
	TLS          bool          `yaml:"tls" env:"TLS"`
}

// ToCacheConfig 转换为 cache.Manager 配置
func (r RedisConfig) ToCacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Addr = r.Addr
	cfg.Password = r.Password
	cfg.DB = r.DB
	cfg.PoolSize = r.PoolSize
	cfg.MinIdleConns = r.MinIdleConns
	cfg.TLS = r.TLS
	if r.DefaultTTL > 0 {
		cfg.DefaultTTL = r.DefaultTTL
	}
	return cfg
}

// LifecycleConfig 连接生命周期时序
type LifecycleConfig struct {
	// 启动阶段建连失败后的重试间隔
	ConnectRetryInterval time.Duration `yaml:"connect_retry_interval" env:"CONNECT_RETRY_INTERVAL"`
	// 周期探活间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
	// 重建失败后的重试间隔
	RebuildRetryInterval time.Duration `yaml:"rebuild_retry_interval" env:"REBUILD_RETRY_INTERVAL"`
	// 建连失败日志的最小间隔
	ErrorLogInterval time.Duration `yaml:"error_log_interval" env:"ERROR_LOG_INTERVAL"`
	// 单次探活超时
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"PROBE_TIMEOUT"`
	// 最大建连次数，0 表示不限制
	MaxConnectAttempts int `yaml:"max_connect_attempts" env:"MAX_CONNECT_ATTEMPTS"`
}

// ToLifecycle 生成指定名称的生命周期配置
func (l LifecycleConfig) ToLifecycle(name string) lifecycle.Config {
	return lifecycle.Config{
		Name:                 name,
		ConnectRetryInterval: l.ConnectRetryInterval,
		HealthCheckInterval:  l.HealthCheckInterval,
		RebuildRetryInterval: l.RebuildRetryInterval,
		ErrorLogInterval:     l.ErrorLogInterval,
		ProbeTimeout:         l.ProbeTimeout,
		MaxConnectAttempts:   l.MaxConnectAttempts,
	}
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径，stdout/stderr 或文件
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
	// 文件轮转，仅对文件路径生效
	Rotation LogRotationConfig `yaml:"rotation" env:"ROTATION"`
}

// LogRotationConfig 日志文件轮转配置
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int  `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int  `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	Compress   bool `yaml:"compress" env:"COMPRESS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// ✅ 校验
// =============================================================================

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate 校验配置，返回所有问题
func (c *Config) Validate() error {
	var errs []error

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("server.http_port: invalid port %d", c.Server.HTTPPort))
	}
	if c.Server.MaxConnections < 0 {
		errs = append(errs, errors.New("server.max_connections: must not be negative"))
	}

	if c.Database.Enabled {
		dbCfg := c.Database.ToManagerConfig()
		if err := dbCfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}

	switch c.Schema.Mode {
	case "", SchemaModeNone, SchemaModeModels:
	case SchemaModeMigrations:
		if c.Database.Enabled {
			if _, err := c.Schema.ToMigrationConfig(c.Database); err != nil {
				errs = append(errs, fmt.Errorf("schema: %w", err))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("schema.mode: unknown mode %q", c.Schema.Mode))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr: must not be empty"))
	}

	if err := c.Lifecycle.ToLifecycle("").Validate(); err != nil {
		errs = append(errs, fmt.Errorf("lifecycle: %w", err))
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate: %v not in [0, 1]", c.Telemetry.SampleRate))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config validation errors: %w", err)
	}
	return nil
}
