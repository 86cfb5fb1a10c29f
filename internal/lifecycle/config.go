package lifecycle

import "time"

// Config 生命周期时序配置，零值字段使用默认值
type Config struct {
	// 管理器名称，出现在日志与指标标签中
	Name string `yaml:"name" json:"name"`

	// 建连失败后的重试间隔
	ConnectRetryInterval time.Duration `yaml:"connect_retry_interval" json:"connect_retry_interval"`

	// 健康探测间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`

	// 重建失败后的重试间隔
	RebuildRetryInterval time.Duration `yaml:"rebuild_retry_interval" json:"rebuild_retry_interval"`

	// 建连失败日志的最小间隔
	ErrorLogInterval time.Duration `yaml:"error_log_interval" json:"error_log_interval"`

	// 单次探活超时
	ProbeTimeout time.Duration `yaml:"probe_timeout" json:"probe_timeout"`

	// 最大建连次数，0 表示不限
	MaxConnectAttempts int `yaml:"max_connect_attempts" json:"max_connect_attempts"`

	Observer Observer `yaml:"-" json:"-"`
}

// DefaultConfig 返回默认生命周期配置
func DefaultConfig() Config {
	return Config{
		Name:                 "default",
		ConnectRetryInterval: time.Second,
		HealthCheckInterval:  30 * time.Second,
		RebuildRetryInterval: 10 * time.Second,
		ErrorLogInterval:     10 * time.Second,
		ProbeTimeout:         5 * time.Second,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	durations := []struct {
		field string
		value time.Duration
	}{
		{"connect_retry_interval", c.ConnectRetryInterval},
		{"health_check_interval", c.HealthCheckInterval},
		{"rebuild_retry_interval", c.RebuildRetryInterval},
		{"error_log_interval", c.ErrorLogInterval},
		{"probe_timeout", c.ProbeTimeout},
	}
	for _, d := range durations {
		if d.value < 0 {
			return &ConfigurationError{Field: d.field, Reason: "must not be negative"}
		}
	}
	if c.MaxConnectAttempts < 0 {
		return &ConfigurationError{Field: "max_connect_attempts", Reason: "must not be negative"}
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.ConnectRetryInterval == 0 {
		c.ConnectRetryInterval = def.ConnectRetryInterval
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = def.HealthCheckInterval
	}
	if c.RebuildRetryInterval == 0 {
		c.RebuildRetryInterval = def.RebuildRetryInterval
	}
	if c.ErrorLogInterval == 0 {
		c.ErrorLogInterval = def.ErrorLogInterval
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = def.ProbeTimeout
	}
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
	return c
}
