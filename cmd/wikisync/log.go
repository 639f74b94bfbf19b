package main

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgallion1/wikisync/internal/config"
)

const (
	maxSizeMB   = 10
	maxAgeDays  = 14
	maxBackups  = 5
	compressOld = true
)

// newLogger writes JSON to stderr, keeping stdout free for the report. When
// LOG_FILE is set the same records also go to a rotated file.
func newLogger(cfg config.Config) (*slog.Logger, func()) {
	var out io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    maxSizeMB,
			MaxAge:     maxAgeDays,
			MaxBackups: maxBackups,
			Compress:   compressOld,
		}
		out = io.MultiWriter(os.Stderr, lj)
		closeFn = func() { lj.Close() }
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.SlogLevel()})), closeFn
}
