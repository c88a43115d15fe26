package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the application logger is built.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string // iso8601, rfc3339, or epoch
}

// DefaultConfig returns a development-friendly console configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "iso8601",
	}
}

// ProductionConfig returns a JSON configuration suitable for log shipping.
func ProductionConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: "rfc3339",
	}
}

// New builds a zap logger from the given configuration.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoder, err := buildEncoder(cfg)
	if err != nil {
		return nil, err
	}

	sink, err := buildSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// NewForEnvironment builds a logger using sensible defaults for the
// named environment, overridden by any non-empty fields in cfg.
func NewForEnvironment(env string, cfg Config) (*zap.Logger, error) {
	base := DefaultConfig()
	if strings.EqualFold(env, "production") {
		base = ProductionConfig()
	}
	if cfg.Level != "" {
		base.Level = cfg.Level
	}
	if cfg.Format != "" {
		base.Format = cfg.Format
	}
	if cfg.Output != "" {
		base.Output = cfg.Output
	}
	if cfg.TimeFormat != "" {
		base.TimeFormat = cfg.TimeFormat
	}
	return New(base)
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func buildEncoder(cfg Config) (zapcore.Encoder, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.MessageKey = "msg"
	encoderCfg.LevelKey = "level"
	encoderCfg.CallerKey = "caller"

	switch strings.ToLower(cfg.TimeFormat) {
	case "rfc3339":
		encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	case "epoch":
		encoderCfg.EncodeTime = zapcore.EpochTimeEncoder
	case "iso8601", "":
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown time format %q", cfg.TimeFormat)
	}

	switch strings.ToLower(cfg.Format) {
	case "json", "":
		return zapcore.NewJSONEncoder(encoderCfg), nil
	case "console":
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderCfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func buildSink(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "stdout", "":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	default:
		file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return zapcore.Lock(file), nil
	}
}
