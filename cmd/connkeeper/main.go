// =============================================================================
// connkeeper 主入口
// =============================================================================
// 数据库与缓存连接守护进程，提供健康检查、Prometheus 指标与数据库迁移命令
//
// 使用方法:
//
//	connkeeper serve                         # 启动服务
//	connkeeper serve --config config.yaml    # 指定配置文件
//	connkeeper migrate up                    # 运行数据库迁移
//	connkeeper migrate status                # 查看迁移状态
//	connkeeper health                        # 检查运行中服务的就绪状态
//	connkeeper version                       # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 分发子命令，返回进程退出码
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	case "migrate":
		err = runMigrate(ctx, args[1:], stdout, stderr)
	case "health":
		err = runHealthCheck(ctx, args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "connkeeper %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `connkeeper - resilient database and cache connection manager

Usage:
  connkeeper <command> [options]

Commands:
  serve     Keep connections alive and serve health and metrics endpoints
  migrate   Database migration commands
  health    Check the readiness of a running server
  version   Show version information
  help      Show this help message

Options for 'serve' and 'migrate':
  --config <path>   Path to configuration file (YAML or TOML)

Migration subcommands:
  migrate up          Apply all pending migrations
  migrate down        Roll back the last migration
  migrate reset       Roll back all migrations
  migrate steps <n>   Apply n migrations, negative n rolls back
  migrate goto <v>    Migrate to a specific version
  migrate force <v>   Force set migration version
  migrate version     Show current migration version
  migrate status      Show migration status
  migrate info        Show migration summary

Examples:
  connkeeper serve --config /etc/connkeeper/config.yaml
  connkeeper migrate up
  connkeeper health --addr http://localhost:8000
  connkeeper version`)
}
