package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BaSui01/connkeeper/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New 按配置构建 logger。stdout/stderr 之外的输出路径视为文件，由 lumberjack 轮转。
// 返回的 cleanup 刷新缓冲并关闭日志文件。
func New(cfg config.LogConfig) (*zap.Logger, func() error, error) {
	level := parseLevel(cfg.Level)
	encoder := newEncoder(cfg.Format)

	paths := cfg.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}

	var (
		cores []zapcore.Core
		files []*lumberjack.Logger
	)
	for _, path := range paths {
		var ws zapcore.WriteSyncer
		switch path {
		case "stdout":
			ws = zapcore.Lock(os.Stdout)
		case "stderr":
			ws = zapcore.Lock(os.Stderr)
		default:
			if err := ensureLogDir(path); err != nil {
				return nil, nil, fmt.Errorf("prepare log file %s: %w", path, err)
			}
			file := rotatingFile(path, cfg.Rotation)
			files = append(files, file)
			ws = zapcore.AddSync(file)
		}
		cores = append(cores, zapcore.NewCore(encoder, ws, level))
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	opts = append(opts, zap.ErrorOutput(zapcore.Lock(os.Stderr)))

	logger := zap.New(zapcore.NewTee(cores...), opts...)

	cleanup := func() error {
		// stdout/stderr 在部分平台上 Sync 会返回 EINVAL，忽略
		_ = logger.Sync()
		var errs []error
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		return errors.Join(errs...)
	}
	return logger, cleanup, nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	if format == "console" {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func rotatingFile(path string, rotation config.LogRotationConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
		Compress:   rotation.Compress,
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
