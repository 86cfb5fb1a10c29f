// =============================================================================
// 📦 connkeeper 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML/TOML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("connkeeper.yaml").
//	    WithEnvPrefix("CONNKEEPER").
//	    Load()
//
// 配置优先级: 默认值 → 配置文件 → 旧版环境变量 → 前缀环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "CONNKEEPER",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → 配置文件 → 旧版环境变量 → 前缀环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 旧版环境变量
	if err := applyLegacyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load legacy env: %w", err)
	}

	// 4. 从前缀环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从文件加载配置，.toml 按 TOML 解析，其余按 YAML 解析
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(l.configPath), ".toml") {
		if data, err = tomlToYAML(data); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// tomlToYAML 将 TOML 文档转成 YAML，复用 yaml 标签与 "30s" 形式的时长解析
func tomlToYAML(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// =============================================================================
// 🕰️ 旧版环境变量
// =============================================================================

// legacyEnv 无前缀的旧版变量，前缀变量存在时被覆盖
var legacyEnv = []struct {
	key   string
	field func(*Config) reflect.Value
}{
	{"HTTP_HOST", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Server.Host).Elem() }},
	{"HTTP_PORT", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Server.HTTPPort).Elem() }},
	{"USE_POSTGRES", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Database.Enabled).Elem() }},
	{"POSTGRES_DB", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Database.Name).Elem() }},
	{"POSTGRES_USER", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Database.User).Elem() }},
	{"POSTGRES_PASSWORD", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Database.Password).Elem() }},
	{"POSTGRES_HOST", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Database.Host).Elem() }},
	{"POSTGRES_PORT", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Database.Port).Elem() }},
	{"POSTGRES_POOL_MIN", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Database.MinConns).Elem() }},
	{"POSTGRES_POOL_MAX", func(c *Config) reflect.Value { return reflect.ValueOf(&c.Database.MaxConns).Elem() }},
}

// applyLegacyEnv 应用旧版变量；LOG_LEVEL 统一转小写
func applyLegacyEnv(cfg *Config) error {
	for _, e := range legacyEnv {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		if err := setFieldValue(e.field(cfg), v); err != nil {
			return fmt.Errorf("failed to set %s: %w", e.key, err)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
