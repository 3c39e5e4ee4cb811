// Package logging builds the zap logger shared by the window, the terminal
// form and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agroassist/croprec/croprec"
)

// New builds a logger at cfg.Level writing human readable lines to stderr
// and to each extra writer. When cfg.File is set the same entries are
// appended to it as JSON. The returned func closes the file and must be
// called once the logger is no longer used.
func New(cfg croprec.LogConfig, extra ...io.Writer) (*zap.Logger, func(), error) {
	return build(cfg, zapcore.Lock(os.Stderr), extra...)
}

// NewFileOnly is New without the stderr sink, for when a full-screen terminal
// UI owns the terminal. With no cfg.File every entry is dropped.
func NewFileOnly(cfg croprec.LogConfig) (*zap.Logger, func(), error) {
	return build(cfg, nil)
}

func build(cfg croprec.LogConfig, console zapcore.WriteSyncer, extra ...io.Writer) (*zap.Logger, func(), error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	prod := zap.NewProductionConfig()
	encCfg := prod.EncoderConfig
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if console != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), console, level))
	}
	for _, w := range extra {
		if w == nil {
			continue
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(w), level))
	}

	closeFn := func() {}
	if path := strings.TrimSpace(cfg.File); path != "" {
		sink, closeFile, err := zap.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level))
		closeFn = closeFile
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger.Named(croprec.AppName), closeFn, nil
}

func parseLevel(raw string) (zapcore.Level, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}
