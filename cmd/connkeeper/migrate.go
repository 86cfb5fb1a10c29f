package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/BaSui01/connkeeper/internal/database"
	"github.com/BaSui01/connkeeper/internal/logging"
	"github.com/BaSui01/connkeeper/internal/migration"
	"go.uber.org/zap"
)

// =============================================================================
// 🗃️ migrate 命令
// =============================================================================

// runMigrate 借用数据库管理器的连接执行迁移子命令。
// 数据库暂不可达时按生命周期配置重试，直到 --timeout 到期。
func runMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Give up when the database is not reachable within this time")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 || fs.Arg(0) == "help" {
		printUsage(stdout)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	migCfg, err := cfg.Schema.ToMigrationConfig(cfg.Database)
	if err != nil {
		return err
	}

	logCfg := cfg.Log
	logCfg.OutputPaths = []string{"stderr"}
	logger, syncLogs, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer syncLogs()

	dbCfg := cfg.Database.ToManagerConfig()
	mgr, err := database.New(&dbCfg,
		database.WithLogger(logger),
		database.WithLifecycle(cfg.Lifecycle.ToLifecycle("database")),
	)
	if err != nil {
		return err
	}
	mgr.Start()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	err = migration.WithMigrator(ctx, mgr, migCfg, func(m migration.Migrator) error {
		cli := migration.NewCLI(m)
		cli.SetOutput(stdout)
		return cli.Run(ctx, fs.Args())
	})
	if closeErr := mgr.Close(); closeErr != nil {
		logger.Warn("failed to close database manager", zap.Error(closeErr))
	}
	if errors.Is(err, migration.ErrUsage) {
		printUsage(stderr)
	}
	return err
}
