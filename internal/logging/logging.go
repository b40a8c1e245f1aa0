// Package logging configures the shared logrus logger used by every devpulse
// command and the watch daemon.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/blackwell-systems/devpulse/internal/config"
)

var (
	writerMu  sync.Mutex
	logWriter *lumberjack.Logger

	exitHandlerOnce     sync.Once
	registerExitHandler = log.RegisterExitHandler
)

// Options selects the level and destination of the standard logger.
type Options struct {
	Level string

	// ToFile routes output to a rotating file instead of Stderr.
	ToFile     bool
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Stderr overrides os.Stderr for foreground output.
	Stderr io.Writer
}

// OptionsFromConfig maps the log section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config, toFile bool) Options {
	return Options{
		Level:      cfg.Log.Level,
		ToFile:     toFile,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}
}

// Setup configures the logrus standard logger. It may be called again to
// switch destinations; a previously opened log file is closed.
func Setup(opts Options) error {
	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("logging: %w", err)
		}
		level = parsed
	}
	log.SetLevel(level)

	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}

	if !opts.ToFile {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		log.SetOutput(out)
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
		return nil
	}

	if opts.File == "" {
		return fmt.Errorf("logging: log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return fmt.Errorf("logging: failed to create log directory: %w", err)
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	logWriter = &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: opts.MaxBackups,
		Compress:   false,
	}
	log.SetOutput(logWriter)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	exitHandlerOnce.Do(func() { registerExitHandler(Close) })

	return nil
}

// Close flushes and closes the rotating log file, if one is open.
func Close() {
	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
}
