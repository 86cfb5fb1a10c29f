package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/BaSui01/connkeeper/config"
	"github.com/BaSui01/connkeeper/internal/cache"
	"github.com/BaSui01/connkeeper/internal/database"
	"github.com/BaSui01/connkeeper/internal/lifecycle"
	"github.com/BaSui01/connkeeper/internal/logging"
	"github.com/BaSui01/connkeeper/internal/metrics"
	"github.com/BaSui01/connkeeper/internal/migration"
	"github.com/BaSui01/connkeeper/internal/server"
	"github.com/BaSui01/connkeeper/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger, syncLogs, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer syncLogs()

	logger.Info("starting connkeeper",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	app, err := NewApp(cfg, logger, "connkeeper")
	if err != nil {
		return err
	}
	if err := app.Run(ctx); err != nil {
		return err
	}

	logger.Info("connkeeper stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 🧩 App
// =============================================================================

// App 持有 serve 命令的全部组件
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers
	collector *metrics.Collector
	database  *database.Manager
	cache     *cache.Manager
	server    *server.Manager
}

// NewApp 组装组件，不做网络 I/O（遥测导出器除外）
func NewApp(cfg *config.Config, logger *zap.Logger, metricsNamespace string) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		providers = &telemetry.Providers{}
	}
	a.telemetry = providers

	a.collector = metrics.NewCollector(metricsNamespace, logger)
	observers := lifecycle.Observers{a.collector}
	if otelObserver, err := telemetry.NewObserver(providers.MeterProvider()); err != nil {
		logger.Warn("failed to create otel lifecycle observer", zap.Error(err))
	} else {
		observers = append(observers, otelObserver)
	}

	var sources []server.HealthSource

	if cfg.Database.Enabled {
		dbCfg := cfg.Database.ToManagerConfig()
		a.database, err = database.New(&dbCfg,
			database.WithLogger(logger),
			database.WithLifecycle(cfg.Lifecycle.ToLifecycle("database")),
			database.WithObserver(observers),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create database manager: %w", err)
		}
		a.collector.RegisterDBPool(a.database.Name(), a.database.Stats)
		sources = append(sources, a.database)
	}

	if cfg.Redis.Enabled {
		a.cache, err = cache.NewManager(cfg.Redis.ToCacheConfig(), logger,
			cache.WithLifecycle(cfg.Lifecycle.ToLifecycle("cache")),
			cache.WithObserver(observers),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache manager: %w", err)
		}
		sources = append(sources, a.cache)
	}

	router := server.NewRouter(server.RouterConfig{
		Sources:  sources,
		Recorder: a.collector,
		Version:  Version,
		Logger:   logger,
	})
	serverCfg := server.DefaultConfig()
	serverCfg.Addr = cfg.Server.Addr()
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	serverCfg.MaxConnections = cfg.Server.MaxConnections
	a.server = server.NewManager(router, serverCfg, logger)

	return a, nil
}

// Run 启动连接管理器与 HTTP 服务，阻塞到 ctx 取消或服务异常退出后依次关闭
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.database != nil {
		a.database.Start()
	}
	if a.cache != nil {
		a.cache.Start()
	}

	if err := a.server.Start(); err != nil {
		return errors.Join(err, a.shutdown())
	}

	schemaDone := make(chan struct{})
	go func() {
		defer close(schemaDone)
		a.createSchema(runCtx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-a.server.Errors():
		runErr = fmt.Errorf("http server failed: %w", err)
	}

	cancel()
	<-schemaDone
	return errors.Join(runErr, a.shutdown())
}

// createSchema 按配置建表，失败只告警，服务继续运行
func (a *App) createSchema(ctx context.Context) {
	if a.database == nil {
		return
	}
	schema, err := schemaFor(a.cfg, a.logger)
	if err != nil {
		a.logger.Warn("schema setup skipped", zap.Error(err))
		return
	}
	if schema == nil {
		return
	}
	if err := a.database.CreateSchema(ctx, schema); err != nil && ctx.Err() == nil {
		a.logger.Warn("schema setup failed, continuing without it", zap.Error(err))
	}
}

func schemaFor(cfg *config.Config, logger *zap.Logger) (database.SchemaDescriptor, error) {
	switch cfg.Schema.Mode {
	case config.SchemaModeMigrations:
		migCfg, err := cfg.Schema.ToMigrationConfig(cfg.Database)
		if err != nil {
			return nil, err
		}
		return migration.NewSchema(migCfg, logger), nil
	case config.SchemaModeModels:
		return database.Models{&database.AppMetadata{}}, nil
	default:
		return nil, nil
	}
}

// shutdown 先停 HTTP 服务，再并发关闭连接管理器，最后刷新遥测
func (a *App) shutdown() error {
	var errs []error

	if err := a.server.Shutdown(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}

	var g errgroup.Group
	if a.database != nil {
		g.Go(a.database.Close)
	}
	if a.cache != nil {
		g.Go(a.cache.Close)
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, fmt.Errorf("close managers: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
	}

	return errors.Join(errs...)
}
