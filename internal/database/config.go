package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// 支持的驱动
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

const redacted = "******"

// =============================================================================
// ⚙️ 连接配置
// =============================================================================

// Config 数据库连接与连接池配置，New 之后不再修改
type Config struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" json:"driver"`

	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// 数据库名，sqlite 为文件路径
	Database string `yaml:"database" json:"database"`

	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`

	// 建连时预热的连接数
	MinConns int `yaml:"min_conns" json:"min_conns"`

	// 最大打开连接数
	MaxConns int `yaml:"max_conns" json:"max_conns"`

	// 借用连接的最长等待时间
	AcquireTimeout time.Duration `yaml:"acquire_timeout" json:"acquire_timeout"`

	// 连接最大生命周期
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" json:"max_conn_lifetime"`

	// 连接最大空闲时间
	MaxIdleTime time.Duration `yaml:"max_idle_time" json:"max_idle_time"`
}

// DefaultConfig 返回默认数据库配置
func DefaultConfig() Config {
	return Config{
		Driver:          DriverPostgres,
		Host:            "localhost",
		Port:            5432,
		Database:        "postgres",
		User:            "postgres",
		SSLMode:         "disable",
		MinConns:        1,
		MaxConns:        10,
		AcquireTimeout:  30 * time.Second,
		MaxConnLifetime: time.Hour,
		MaxIdleTime:     10 * time.Minute,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigurationError{Reason: "database configuration is required"}
	}

	switch c.Driver {
	case DriverPostgres, DriverMySQL:
		if c.Host == "" {
			return &ConfigurationError{Field: "host", Reason: "is required"}
		}
		if c.Port <= 0 || c.Port > 65535 {
			return &ConfigurationError{Field: "port", Reason: fmt.Sprintf("must be between 1 and 65535, got %d", c.Port)}
		}
		if c.User == "" {
			return &ConfigurationError{Field: "user", Reason: "is required"}
		}
	case DriverSQLite:
	default:
		return &ConfigurationError{Field: "driver", Reason: fmt.Sprintf("unsupported driver %q", c.Driver)}
	}

	if c.Database == "" {
		return &ConfigurationError{Field: "database", Reason: "is required"}
	}
	if c.MaxConns <= 0 {
		return &ConfigurationError{Field: "max_conns", Reason: "must be positive"}
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return &ConfigurationError{Field: "min_conns", Reason: fmt.Sprintf("must be between 0 and max_conns (%d)", c.MaxConns)}
	}
	if c.AcquireTimeout <= 0 {
		return &ConfigurationError{Field: "acquire_timeout", Reason: "must be positive"}
	}
	if c.MaxConnLifetime < 0 || c.MaxIdleTime < 0 {
		return &ConfigurationError{Field: "max_conn_lifetime", Reason: "must not be negative"}
	}
	return nil
}

// DSN 返回驱动连接串
func (c *Config) DSN() string {
	return c.dsn(c.Password)
}

// Redacted 返回隐藏密码的连接串，用于日志
func (c *Config) Redacted() string {
	if c.Password == "" {
		return c.dsn("")
	}
	return c.dsn(redacted)
}

func (c *Config) dsn(password string) string {
	switch c.Driver {
	case DriverPostgres:
		parts := []string{
			fmt.Sprintf("host=%s", c.Host),
			fmt.Sprintf("port=%d", c.Port),
			fmt.Sprintf("user=%s", c.User),
			fmt.Sprintf("dbname=%s", c.Database),
		}
		if password != "" {
			parts = append(parts, fmt.Sprintf("password=%s", password))
		}
		if c.SSLMode != "" {
			parts = append(parts, fmt.Sprintf("sslmode=%s", c.SSLMode))
		}
		return strings.Join(parts, " ")
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, password, c.Host, c.Port, c.Database)
	case DriverSQLite:
		return c.Database
	default:
		return ""
	}
}

// dialector 按驱动创建 gorm 方言
func (c *Config) dialector() gorm.Dialector {
	switch c.Driver {
	case DriverMySQL:
		return mysql.Open(c.DSN())
	case DriverSQLite:
		return sqlite.Open(c.DSN())
	default:
		return postgres.Open(c.DSN())
	}
}
