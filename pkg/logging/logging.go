// Package logging builds the zap loggers used by the journey commands.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log lines go.
type Options struct {
	// File is the rotated JSON log. Empty disables the file core.
	File string
	// Console mirrors log lines to stderr. The TUI turns this off since
	// the alt screen owns the terminal.
	Console bool
	Debug   bool
}

func rotator(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

func fileEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// New returns a logger for o and a flush func that must be called before exit.
func New(o Options) (*zap.Logger, func()) {
	level := zap.InfoLevel
	if o.Debug {
		level = zap.DebugLevel
	}

	var cores []zapcore.Core
	var closer *lumberjack.Logger
	if o.File != "" {
		closer = rotator(o.File)
		cores = append(cores, zapcore.NewCore(fileEncoder(), zapcore.AddSync(closer), level))
	}
	if o.Console {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		// Console only shows warnings unless debugging.
		consoleLevel := zap.WarnLevel
		if o.Debug {
			consoleLevel = zap.DebugLevel
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), consoleLevel))
	}
	if len(cores) == 0 {
		return zap.NewNop(), func() {}
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return l, func() {
		_ = l.Sync()
		if closer != nil {
			_ = closer.Close()
		}
	}
}
