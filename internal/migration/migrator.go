package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// =============================================================================
// 📦 内嵌迁移文件
// =============================================================================

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// =============================================================================
// 📋 类型定义
// =============================================================================

// Dialect 迁移文件对应的 SQL 方言
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// ErrUnsupportedDialect 方言没有对应的迁移文件
var ErrUnsupportedDialect = errors.New("unsupported migration dialect")

// MigrationStatus 单个迁移的状态
type MigrationStatus struct {
	Version uint   `json:"version"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
	Dirty   bool   `json:"dirty"`
}

// MigrationInfo 当前迁移状态摘要
type MigrationInfo struct {
	CurrentVersion    uint `json:"current_version"`
	Dirty             bool `json:"dirty"`
	TotalMigrations   int  `json:"total_migrations"`
	AppliedMigrations int  `json:"applied_migrations"`
	PendingMigrations int  `json:"pending_migrations"`
}

// Config 迁移配置
type Config struct {
	Dialect Dialect `yaml:"dialect" json:"dialect"`
	// TableName 版本表名
	TableName string `yaml:"table_name" json:"table_name"`
	// LockTimeout 获取迁移锁的超时
	LockTimeout time.Duration `yaml:"lock_timeout" json:"lock_timeout"`
	// StatementTimeout 单条迁移语句超时，0 表示不限制
	StatementTimeout time.Duration `yaml:"statement_timeout" json:"statement_timeout"`
}

// DefaultConfig 返回默认迁移配置
func DefaultConfig() Config {
	return Config{
		Dialect:     DialectPostgres,
		TableName:   "schema_migrations",
		LockTimeout: 15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Dialect == "" {
		c.Dialect = d.Dialect
	}
	if c.TableName == "" {
		c.TableName = d.TableName
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = d.LockTimeout
	}
	return c
}

// Migrator 数据库迁移操作
type Migrator interface {
	// Up 应用所有未执行的迁移
	Up(ctx context.Context) error
	// Down 回滚最近一个迁移
	Down(ctx context.Context) error
	// DownAll 回滚全部迁移
	DownAll(ctx context.Context) error
	// Steps 正数向前、负数向后执行 n 个迁移
	Steps(ctx context.Context, n int) error
	// Goto 迁移到指定版本
	Goto(ctx context.Context, version uint) error
	// Force 只设置版本号，不执行迁移
	Force(ctx context.Context, version int) error
	// Version 返回当前版本与 dirty 标记，未执行过迁移时返回 0
	Version(ctx context.Context) (uint, bool, error)
	Status(ctx context.Context) ([]MigrationStatus, error)
	Info(ctx context.Context) (*MigrationInfo, error)
	// Close 释放迁移器，借用的连接随之关闭
	Close() error
}

// =============================================================================
// 🔧 默认实现
// =============================================================================

// DefaultMigrator 在一个借用的连接上运行 golang-migrate。
// ctx 取消后迁移会在当前迁移文件结束时停止，之后该实例不可再用。
type DefaultMigrator struct {
	config  Config
	migrate *migrate.Migrate
}

// NewMigrator 在 conn 上创建迁移器。conn 的所有权转移给迁移器，Close 时关闭。
func NewMigrator(ctx context.Context, conn *sql.Conn, cfg Config) (*DefaultMigrator, error) {
	if conn == nil {
		return nil, errors.New("connection is required")
	}
	cfg = cfg.withDefaults()

	src, err := newSource(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	driver, err := newDatabaseDriver(ctx, conn, cfg)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(cfg.Dialect), driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.LockTimeout = cfg.LockTimeout

	return &DefaultMigrator{config: cfg, migrate: m}, nil
}

func newDatabaseDriver(ctx context.Context, conn *sql.Conn, cfg Config) (database.Driver, error) {
	switch cfg.Dialect {
	case DialectPostgres:
		return postgres.WithConnection(ctx, conn, &postgres.Config{
			MigrationsTable:  cfg.TableName,
			StatementTimeout: cfg.StatementTimeout,
		})
	case DialectMySQL:
		return mysql.WithConnection(ctx, conn, &mysql.Config{
			MigrationsTable:  cfg.TableName,
			StatementTimeout: cfg.StatementTimeout,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, cfg.Dialect)
	}
}

func newSource(dialect Dialect) (source.Driver, error) {
	switch dialect {
	case DialectPostgres, DialectMySQL:
		return iofs.New(migrationsFS, "migrations/"+string(dialect))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, dialect)
	}
}

// run 执行一次迁移操作，ctx 取消时通知 golang-migrate 平滑停止
func (m *DefaultMigrator) run(ctx context.Context, op string, fn func() error) error {
	stop := context.AfterFunc(ctx, func() {
		select {
		case m.migrate.GracefulStop <- true:
		default:
		}
	})
	defer stop()

	if err := fn(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s failed: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("migration %s interrupted: %w", op, err)
	}
	return nil
}

func (m *DefaultMigrator) Up(ctx context.Context) error {
	return m.run(ctx, "up", m.migrate.Up)
}

func (m *DefaultMigrator) Down(ctx context.Context) error {
	return m.run(ctx, "down", func() error { return m.migrate.Steps(-1) })
}

func (m *DefaultMigrator) DownAll(ctx context.Context) error {
	return m.run(ctx, "down all", m.migrate.Down)
}

func (m *DefaultMigrator) Steps(ctx context.Context, n int) error {
	return m.run(ctx, "steps", func() error { return m.migrate.Steps(n) })
}

func (m *DefaultMigrator) Goto(ctx context.Context, version uint) error {
	return m.run(ctx, "goto", func() error { return m.migrate.Migrate(version) })
}

func (m *DefaultMigrator) Force(ctx context.Context, version int) error {
	return m.run(ctx, "force", func() error { return m.migrate.Force(version) })
}

func (m *DefaultMigrator) Version(ctx context.Context) (uint, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return version, dirty, nil
}

func (m *DefaultMigrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	current, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	files, err := Available(m.config.Dialect)
	if err != nil {
		return nil, err
	}
	return buildStatus(files, current, dirty), nil
}

func (m *DefaultMigrator) Info(ctx context.Context) (*MigrationInfo, error) {
	current, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	files, err := Available(m.config.Dialect)
	if err != nil {
		return nil, err
	}
	return buildInfo(files, current, dirty), nil
}

func (m *DefaultMigrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if errors.Is(dbErr, sql.ErrConnDone) {
		dbErr = nil
	}
	if err := errors.Join(sourceErr, dbErr); err != nil {
		return fmt.Errorf("failed to close migrator: %w", err)
	}
	return nil
}

// =============================================================================
// 📑 迁移文件清单
// =============================================================================

// MigrationFile 内嵌的一个迁移
type MigrationFile struct {
	Version uint
	Name    string
}

// Available 按版本升序列出方言的内嵌迁移
func Available(dialect Dialect) ([]MigrationFile, error) {
	src, err := newSource(dialect)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var files []MigrationFile
	version, err := src.First()
	for err == nil {
		r, name, readErr := src.ReadUp(version)
		if readErr != nil {
			return nil, fmt.Errorf("read migration %d: %w", version, readErr)
		}
		_ = r.Close()
		files = append(files, MigrationFile{Version: version, Name: name})
		version, err = src.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	return files, nil
}

func buildStatus(files []MigrationFile, current uint, dirty bool) []MigrationStatus {
	statuses := make([]MigrationStatus, 0, len(files))
	for _, f := range files {
		statuses = append(statuses, MigrationStatus{
			Version: f.Version,
			Name:    f.Name,
			Applied: f.Version <= current,
			Dirty:   dirty && f.Version == current,
		})
	}
	return statuses
}

func buildInfo(files []MigrationFile, current uint, dirty bool) *MigrationInfo {
	applied := 0
	for _, f := range files {
		if f.Version <= current {
			applied++
		}
	}
	return &MigrationInfo{
		CurrentVersion:    current,
		Dirty:             dirty,
		TotalMigrations:   len(files),
		AppliedMigrations: applied,
		PendingMigrations: len(files) - applied,
	}
}

// ParseDialect 解析方言名称，sqlite 没有迁移文件
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return "", fmt.Errorf("%w: %s has no migration files, use database.Models", ErrUnsupportedDialect, s)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, s)
	}
}
