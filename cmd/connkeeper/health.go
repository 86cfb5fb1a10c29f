package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/connkeeper/internal/server"
	"github.com/BaSui01/connkeeper/internal/tlsutil"
)

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

// runHealthCheck 请求运行中服务的 /readyz，任一组件未连接时返回错误
func runHealthCheck(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "http://localhost:8000", "Server address")
	timeout := fs.Duration("timeout", 5*time.Second, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := tlsutil.SecureHTTPClient(*timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(*addr, "/")+"/readyz", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	var report server.HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("health check failed: status %d: invalid body: %w", resp.StatusCode, err)
	}

	names := make([]string, 0, len(report.Components))
	for name := range report.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h := report.Components[name]
		fmt.Fprintf(stdout, "%-10s %-16s generation=%d", name, h.Status, h.Generation)
		if h.LastError != "" {
			fmt.Fprintf(stdout, " last_error=%q", h.LastError)
		}
		fmt.Fprintln(stdout)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d (%s)", resp.StatusCode, report.Status)
	}
	fmt.Fprintln(stdout, "OK")
	return nil
}
