// Package log provides the process-wide structured logger for handvol.
// It wraps logrus with a nested formatter and a rotating file writer.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Fields is an alias so callers don't need to import logrus directly.
type Fields = logrus.Fields

// Options configures the global logger. The zero value logs at info level
// to stderr only.
type Options struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// Dir enables a rotating log file in the given directory.
	Dir string
}

// Init initializes the global logger. Only the first call has any effect.
func Init(opts Options) *logrus.Logger {
	once.Do(func() {
		logger = newLogger(opts, os.Stderr)
	})
	return logger
}

// New builds a standalone logger writing to w. Used by tests that want to
// inspect output without touching the global instance.
func New(opts Options, w io.Writer) *logrus.Logger {
	return newLogger(opts, w)
}

func newLogger(opts Options, w io.Writer) *logrus.Logger {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	l.SetFormatter(&formatter.Formatter{
		NoColors:        os.Getenv("APP_ENV") == "test",
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, s[len(s)-1])
		},
	})

	writers := []io.Writer{w}
	if opts.Dir != "" && os.Getenv("APP_ENV") != "test" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, fmt.Sprintf("handvol-%s.log", time.Now().Format("2006-01-02"))),
			LocalTime:  true,
			Compress:   true,
			MaxSize:    20,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}

	l.SetOutput(io.MultiWriter(writers...))
	l.SetReportCaller(true)
	return l
}

// L returns the global logger, initializing it with defaults if needed.
func L() *logrus.Logger {
	return Init(Options{})
}

func Debug(fields Fields, msg string) {
	L().WithFields(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	L().WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	L().WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	L().WithFields(fields).Error(msg)
}

// Fatal logs and exits the process.
func Fatal(fields Fields, msg string) {
	L().WithFields(fields).Fatal(msg)
}
