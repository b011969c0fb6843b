// Copyright 2024 Matt Brandt. All Rights Reserved.

// Package packlog builds the zap.Logger used for the codec's diagnostic
// logging (WithReaderLogger/WithWriterLogger). It is adapted from a zap
// logger factory elsewhere in the retrieval pack, trimmed to the handful
// of knobs a library's optional diagnostic logger needs: level, encoding,
// and an optional rotated file sink.
package packlog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures lumberjack-backed log rotation. A zero MaxSizeMB
// leaves the rotation size to lumberjack's own default.
type FileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// Config selects the level, encoding and destination of a diagnostic
// logger. The zero Config yields a no-op logger (zap.NewNop), matching
// Pack's default of silent operation.
type Config struct {
	Active   bool       `yaml:"active"`
	Level    string     `yaml:"level"`
	Encoding string     `yaml:"encoding"` // "json" or "console"
	Mode     string     `yaml:"mode"`     // "stdout" or "file"
	File     FileConfig `yaml:"file"`
}

// New builds a zap.Logger from cfg. An inactive (or zero) Config returns
// zap.NewNop(), so callers can always hold a non-nil logger.
func New(cfg Config) (*zap.Logger, error) {
	if !cfg.Active {
		return zap.NewNop(), nil
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("packlog: invalid level %q: %w", cfg.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer
	switch cfg.Mode {
	case "file":
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("packlog: mode=file requires a file.path")
		}
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	default:
		ws = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, ws, level)
	return zap.New(core, zap.AddCaller()), nil
}
