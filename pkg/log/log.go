// Package log provides the process-wide Zerolog logger: a console writer on
// stdout plus an optional size-rotated JSON file.
package log

import (
	"errors"
	"fmt"
	"io"
	stdlog "log" // Use alias to avoid conflict with package name
	"os"
	"path/filepath"
	"sync"
	"time"

	"vnic-go/pkg/appdir"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	pkgLogger      = zerolog.Nop() // Default to no-op logger
	fileWriter     *lumberjack.Logger
	mu             sync.RWMutex // Protects pkgLogger and fileWriter during Init/Close
	ErrInitialized = errors.New("log: logger already initialized")
)

// Options selects sinks and level for Init.
type Options struct {
	Level     string // zerolog level name, empty means info
	File      string // relative paths land in appdir.AppDir(); empty disables the file sink
	MaxSizeMB int
	Console   bool
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// SetStd installs a console-only logger on stdout. Command entry points use
// it until Init has run.
func SetStd() {
	setConsole(os.Stdout)
}

func setConsole(out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	pkgLogger = zerolog.New(consoleWriter(out)).With().Timestamp().Logger()
}

// SetLogger replaces the package logger, mostly for tests.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	pkgLogger = l
}

// Init builds the package logger from opts. It may be called once until Close.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if fileWriter != nil {
		return ErrInitialized
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("log: invalid level %q: %w", opts.Level, err)
		}
		level = l
	}

	var writers []io.Writer
	if opts.Console {
		writers = append(writers, consoleWriter(os.Stdout))
	}
	if opts.File != "" {
		path := opts.File
		if !filepath.IsAbs(path) {
			if err := appdir.EnsureDir(); err != nil {
				return fmt.Errorf("log: %w", err)
			}
			path = filepath.Join(appdir.AppDir(), path)
		}
		fileWriter = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    max(opts.MaxSizeMB, 1),
			MaxBackups: 3,
			Compress:   true,
		}
		writers = append(writers, fileWriter)
		stdlog.Printf("Zerolog file logger writing to %s\n", path)
	}
	if len(writers) == 0 {
		pkgLogger = zerolog.Nop()
		return nil
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	pkgLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return nil
}

// Close flushes and closes the file sink, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	pkgLogger = zerolog.Nop()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	if err != nil {
		return fmt.Errorf("error closing file logger: %w", err)
	}
	return nil
}

func logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := pkgLogger
	return &l
}

func Debug() *zerolog.Event { return logger().Debug() }
func Info() *zerolog.Event  { return logger().Info() }
func Warn() *zerolog.Event  { return logger().Warn() }
func Error() *zerolog.Event { return logger().Error() }
func Fatal() *zerolog.Event { return logger().Fatal() }

// Printf sends a log event using info level and no extra field.
// Arguments are handled in the manner of fmt.Printf.
func Printf(format string, v ...interface{}) {
	logger().Info().CallerSkipFrame(1).Msgf(format, v...)
}
