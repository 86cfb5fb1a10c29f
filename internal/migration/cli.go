package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
)

// ErrUsage 子命令或参数不合法
var ErrUsage = errors.New("invalid migrate usage")

// CLI 面向终端的迁移操作，输出写入 output
type CLI struct {
	migrator Migrator
	output   io.Writer
}

// NewCLI 创建 CLI，默认输出到标准输出
func NewCLI(migrator Migrator) *CLI {
	return &CLI{migrator: migrator, output: os.Stdout}
}

// SetOutput 设置输出
func (c *CLI) SetOutput(w io.Writer) {
	c.output = w
}

// Run 按子命令分发：up, down, reset, steps N, goto V, force V, version, status, info
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing subcommand", ErrUsage)
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "up":
		return c.RunUp(ctx)
	case "down":
		return c.RunDown(ctx)
	case "reset":
		return c.RunDownAll(ctx)
	case "steps":
		n, err := intArg(sub, rest)
		if err != nil {
			return err
		}
		return c.RunSteps(ctx, n)
	case "goto":
		n, err := intArg(sub, rest)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: goto version must not be negative", ErrUsage)
		}
		return c.RunGoto(ctx, uint(n))
	case "force":
		n, err := intArg(sub, rest)
		if err != nil {
			return err
		}
		return c.RunForce(ctx, n)
	case "version":
		return c.RunVersion(ctx)
	case "status":
		return c.RunStatus(ctx)
	case "info":
		return c.RunInfo(ctx)
	default:
		return fmt.Errorf("%w: unknown subcommand %q", ErrUsage, sub)
	}
}

func intArg(sub string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s takes exactly one number", ErrUsage, sub)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: invalid number %q", ErrUsage, sub, args[0])
	}
	return n, nil
}

func (c *CLI) RunUp(ctx context.Context) error {
	fmt.Fprintln(c.output, "Running migrations...")
	if err := c.migrator.Up(ctx); err != nil {
		return err
	}
	return c.printVersion(ctx, "Migrations complete.")
}

func (c *CLI) RunDown(ctx context.Context) error {
	fmt.Fprintln(c.output, "Rolling back last migration...")
	if err := c.migrator.Down(ctx); err != nil {
		return err
	}
	return c.printVersion(ctx, "Rollback complete.")
}

func (c *CLI) RunDownAll(ctx context.Context) error {
	fmt.Fprintln(c.output, "Rolling back all migrations...")
	if err := c.migrator.DownAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.output, "All migrations rolled back.")
	return nil
}

func (c *CLI) RunSteps(ctx context.Context, n int) error {
	if n >= 0 {
		fmt.Fprintf(c.output, "Applying %d migration(s)...\n", n)
	} else {
		fmt.Fprintf(c.output, "Rolling back %d migration(s)...\n", -n)
	}
	if err := c.migrator.Steps(ctx, n); err != nil {
		return err
	}
	return c.printVersion(ctx, "Complete.")
}

func (c *CLI) RunGoto(ctx context.Context, version uint) error {
	fmt.Fprintf(c.output, "Migrating to version %d...\n", version)
	if err := c.migrator.Goto(ctx, version); err != nil {
		return err
	}
	return c.printVersion(ctx, "Migration complete.")
}

// RunForce 只改写版本号，用于清除 dirty 状态
func (c *CLI) RunForce(ctx context.Context, version int) error {
	fmt.Fprintf(c.output, "Forcing version to %d...\n", version)
	if err := c.migrator.Force(ctx, version); err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Version forced to %d\n", version)
	return nil
}

func (c *CLI) RunVersion(ctx context.Context) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Fprintln(c.output, "No migrations applied yet.")
		return nil
	}
	fmt.Fprintf(c.output, "Current version: %d", version)
	if dirty {
		fmt.Fprint(c.output, " (dirty)")
	}
	fmt.Fprintln(c.output)
	return nil
}

func (c *CLI) RunStatus(ctx context.Context) error {
	statuses, err := c.migrator.Status(ctx)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Fprintln(c.output, "No migrations found.")
		return nil
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	applied := 0
	for _, s := range statuses {
		status := "Pending"
		switch {
		case s.Dirty:
			status = "Dirty"
		case s.Applied:
			status = "Applied"
		}
		if s.Applied {
			applied++
		}
		fmt.Fprintf(w, "%06d\t%s\t%s\n", s.Version, s.Name, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(c.output, "\nTotal: %d, Applied: %d, Pending: %d\n",
		len(statuses), applied, len(statuses)-applied)
	return nil
}

func (c *CLI) RunInfo(ctx context.Context) error {
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.output, "Migration Information:")
	fmt.Fprintf(c.output, "  Current Version:    %d\n", info.CurrentVersion)
	fmt.Fprintf(c.output, "  Dirty:              %v\n", info.Dirty)
	fmt.Fprintf(c.output, "  Total Migrations:   %d\n", info.TotalMigrations)
	fmt.Fprintf(c.output, "  Applied Migrations: %d\n", info.AppliedMigrations)
	fmt.Fprintf(c.output, "  Pending Migrations: %d\n", info.PendingMigrations)
	return nil
}

func (c *CLI) printVersion(ctx context.Context, prefix string) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "%s Current version: %d", prefix, version)
	if dirty {
		fmt.Fprint(c.output, " (dirty)")
	}
	fmt.Fprintln(c.output)
	return nil
}
