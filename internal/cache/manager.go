package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/connkeeper/internal/lifecycle"
	"github.com/BaSui01/connkeeper/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 缓存管理器
// =============================================================================

// client 一个 go-redis 客户端即一个连接池
type client struct {
	rdb *redis.Client
}

func (c *client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *client) Close() error {
	return c.rdb.Close()
}

// Manager 缓存管理器。连接由生命周期管理器维护：启动时持续重试，
// 探活失败后重建客户端，操作在连接不可用时等待。
type Manager struct {
	config Config
	core   *lifecycle.Manager[*client]
	logger *zap.Logger
}

// Config 缓存配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr" toml:"addr"`

	// 密码
	Password string `yaml:"password" json:"-" toml:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db" toml:"db"`

	// 默认过期时间
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl" toml:"default_ttl"`

	// 单条命令的最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries" toml:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size" toml:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns" toml:"min_idle_conns"`

	// 建连超时
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout" toml:"dial_timeout"`

	// 启用 TLS
	TLS bool `yaml:"tls" json:"tls" toml:"tls"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DefaultTTL:   5 * time.Minute,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
	}
}

// Option 配置 Manager
type Option func(*lifecycle.Config)

// WithLifecycle 设置重试、探活与重建的时序，保留已设置的观察者
func WithLifecycle(cfg lifecycle.Config) Option {
	return func(lc *lifecycle.Config) {
		observer := lc.Observer
		*lc = cfg
		if cfg.Observer == nil {
			lc.Observer = observer
		}
	}
}

// WithObserver 设置状态观察者
func WithObserver(observer lifecycle.Observer) Option {
	return func(lc *lifecycle.Config) { lc.Observer = observer }
}

// NewManager 创建缓存管理器，不做 I/O。调用 Start 后开始建连。
func NewManager(config Config, logger *zap.Logger, opts ...Option) (*Manager, error) {
	if config.Addr == "" {
		return nil, &lifecycle.ConfigurationError{Field: "addr", Reason: "must not be empty"}
	}
	if config.PoolSize < 0 || config.MinIdleConns < 0 {
		return nil, &lifecycle.ConfigurationError{Field: "pool_size", Reason: "must not be negative"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	lc := lifecycle.DefaultConfig()
	lc.Name = "cache"
	for _, opt := range opts {
		opt(&lc)
	}

	m := &Manager{
		config: config,
		logger: logger.With(zap.String("component", "cache")),
	}
	core, err := lifecycle.New(lc, m.dial, logger)
	if err != nil {
		return nil, err
	}
	m.core = core
	return m, nil
}

func (m *Manager) dial(context.Context) (*client, error) {
	opts := &redis.Options{
		Addr:         m.config.Addr,
		Password:     m.config.Password,
		DB:           m.config.DB,
		MaxRetries:   m.config.MaxRetries,
		PoolSize:     m.config.PoolSize,
		MinIdleConns: m.config.MinIdleConns,
		DialTimeout:  m.config.DialTimeout,
	}
	if m.config.TLS {
		opts.TLSConfig = tlsutil.ForAddr(m.config.Addr)
	}

	m.logger.Debug("opening redis client",
		zap.String("addr", m.config.Addr),
		zap.Int("db", m.config.DB),
		zap.Bool("tls", m.config.TLS),
	)
	return &client{rdb: redis.NewClient(opts)}, nil
}

// Start 启动后台建连，立即返回
func (m *Manager) Start() {
	m.core.Start()
}

// Name 返回生命周期名称
func (m *Manager) Name() string {
	return m.core.Name()
}

// HealthSnapshot 返回当前健康状态，不阻塞
func (m *Manager) HealthSnapshot() lifecycle.Health {
	return lifecycle.NewHealth(m.core.Snapshot())
}

// Close 停止后台循环并关闭客户端，可重复调用
func (m *Manager) Close() error {
	m.logger.Info("closing cache manager")
	return m.core.Close()
}

// redis 等待连接可用，返回当前客户端
func (m *Manager) redis(ctx context.Context) (*redis.Client, error) {
	lease, err := m.core.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return lease.Pool.rdb, nil
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Get 获取缓存值，键不存在时返回 ErrCacheMiss
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	rdb, err := m.redis(ctx)
	if err != nil {
		return "", err
	}

	val, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		m.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("cache get failed: %w", err)
	}
	return val, nil
}

// Set 设置缓存值，ttl 为 0 时使用默认过期时间
func (m *Manager) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	rdb, err := m.redis(ctx)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	if err := rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		m.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// GetJSON 获取 JSON 缓存值
func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// SetJSON 设置 JSON 缓存值
func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return m.Set(ctx, key, string(data), ttl)
}

// Delete 删除缓存值
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	rdb, err := m.redis(ctx)
	if err != nil {
		return err
	}

	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		m.logger.Error("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Exists 返回存在的键数量
func (m *Manager) Exists(ctx context.Context, keys ...string) (int64, error) {
	rdb, err := m.redis(ctx)
	if err != nil {
		return 0, err
	}

	count, err := rdb.Exists(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("cache exists check failed: %w", err)
	}
	return count, nil
}

// Expire 设置键的过期时间
func (m *Manager) Expire(ctx context.Context, key string, ttl time.Duration) error {
	rdb, err := m.redis(ctx)
	if err != nil {
		return err
	}
	if err := rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("cache expire failed: %w", err)
	}
	return nil
}

// Ping 等待连接可用后探活一次
func (m *Manager) Ping(ctx context.Context) error {
	return m.core.Probe(ctx)
}

// =============================================================================
// 📊 统计信息
// =============================================================================

// Stats 缓存统计信息，INFO 未返回的字段保持为 0
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Keys        int64  `json:"keys"`
	UsedMemory  int64  `json:"used_memory"`
	MaxMemory   int64  `json:"max_memory"`
	Connections int    `json:"connections"`
	Generation  uint64 `json:"generation"`
}

// GetStats 获取缓存统计信息
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	lease, err := m.core.Wait(ctx)
	if err != nil {
		return nil, err
	}
	rdb := lease.Pool.rdb

	info, err := rdb.Info(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis info: %w", err)
	}
	keys, err := rdb.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis dbsize: %w", err)
	}

	stats := parseInfo(info)
	stats.Keys = keys
	stats.Generation = lease.Generation
	return stats, nil
}

// parseInfo 解析 INFO 输出中的 "field:value" 行
func parseInfo(info string) *Stats {
	stats := &Stats{}
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		field, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok || strings.HasPrefix(field, "#") {
			continue
		}
		switch field {
		case "keyspace_hits":
			stats.Hits, _ = strconv.ParseUint(value, 10, 64)
		case "keyspace_misses":
			stats.Misses, _ = strconv.ParseUint(value, 10, 64)
		case "used_memory":
			stats.UsedMemory, _ = strconv.ParseInt(value, 10, 64)
		case "maxmemory":
			stats.MaxMemory, _ = strconv.ParseInt(value, 10, 64)
		case "connected_clients":
			stats.Connections, _ = strconv.Atoi(value)
		}
	}
	return stats
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = errors.New("cache miss")

// ErrClosed 缓存管理器已关闭
var ErrClosed = lifecycle.ErrManagerClosed

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
