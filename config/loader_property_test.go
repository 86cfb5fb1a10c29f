package config

import (
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// 环境变量中的端口与时长原样进入配置，Validate 只接受合法端口
func TestProperty_EnvOverridesRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("env port and timeout round-trip", prop.ForAll(
		func(port int, millis int64) bool {
			timeout := time.Duration(millis) * time.Millisecond
			os.Setenv("PROPTEST_SERVER_HTTP_PORT", strconv.Itoa(port))
			os.Setenv("PROPTEST_DATABASE_ACQUIRE_TIMEOUT", timeout.String())
			defer os.Unsetenv("PROPTEST_SERVER_HTTP_PORT")
			defer os.Unsetenv("PROPTEST_DATABASE_ACQUIRE_TIMEOUT")

			cfg, err := NewLoader().WithEnvPrefix("PROPTEST").Load()
			if err != nil {
				return false
			}
			if cfg.Server.HTTPPort != port || cfg.Database.AcquireTimeout != timeout {
				return false
			}
			validPort := port > 0 && port <= 65535
			return (cfg.Validate() == nil) == validPort
		},
		gen.IntRange(-1000, 70000),
		gen.Int64Range(1, 600000),
	))

	properties.TestingRun(t)
}
