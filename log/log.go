// Package log is a thin structured logging layer over zerolog. It exposes
// package level helpers in three flavours: plain (Info), printf-like (Infof)
// and key/value pairs (Infow).
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"

	logTestWriterName = "log_test_writer"
)

var (
	log      zerolog.Logger
	logLevel = LogLevelInfo

	// logTestWriter is used as output when Init is called with
	// logTestWriterName, so tests can capture or discard the output.
	logTestWriter io.Writer

	// panicOnInvalidChars makes any log line with invalid UTF-8 panic. Useful
	// to catch binary data being printed with %s instead of %x.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = LogLevelError
	}
	Init(level, "stderr", nil)
}

// errorLevelWriter only forwards entries of level warn or above.
type errorLevelWriter struct {
	io.Writer
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Write(p)
}

// Init initializes the logger. Output can be "stdout", "stderr" or a file
// path. If errorOutput is not nil, warnings and errors are also written to it.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(filepath.Clean(output), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
	}
	out = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339Nano,
		NoColor:    output != "stdout" && output != "stderr",
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, &errorLevelWriter{zerolog.ConsoleWriter{
			Out:        errorOutput,
			TimeFormat: time.RFC3339Nano,
			NoColor:    true,
		}})
	}

	log = zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	switch strings.ToLower(level) {
	case LogLevelDebug:
		log = log.Level(zerolog.DebugLevel)
	case LogLevelInfo:
		log = log.Level(zerolog.InfoLevel)
	case LogLevelWarn:
		log = log.Level(zerolog.WarnLevel)
	case LogLevelError:
		log = log.Level(zerolog.ErrorLevel)
	case LogLevelFatal:
		log = log.Level(zerolog.FatalLevel)
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
	logLevel = strings.ToLower(level)
}

// Level returns the current log level.
func Level() string {
	return logLevel
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

func checkInvalidChars(msg string) {
	if panicOnInvalidChars && !utf8.ValidString(msg) {
		panic(fmt.Sprintf("log line contains invalid UTF-8: %q", msg))
	}
}

func emit(ev *zerolog.Event, msg string, keysAndValues []any) {
	checkInvalidChars(msg)
	if len(keysAndValues) > 0 {
		for i := 1; i < len(keysAndValues); i += 2 {
			if s, ok := keysAndValues[i].(string); ok {
				checkInvalidChars(s)
			}
		}
		ev = ev.Fields(keysAndValues)
	}
	ev.Msg(msg)
}

func Debug(args ...any) { emit(log.Debug(), fmt.Sprint(args...), nil) }
func Info(args ...any)  { emit(log.Info(), fmt.Sprint(args...), nil) }
func Warn(args ...any)  { emit(log.Warn(), fmt.Sprint(args...), nil) }
func Error(args ...any) { emit(log.Error(), fmt.Sprint(args...), nil) }
func Fatal(args ...any) {
	emit(log.Fatal(), fmt.Sprint(args...), nil)
	os.Exit(1)
}

func Debugf(template string, args ...any) { emit(log.Debug(), fmt.Sprintf(template, args...), nil) }
func Infof(template string, args ...any)  { emit(log.Info(), fmt.Sprintf(template, args...), nil) }
func Warnf(template string, args ...any)  { emit(log.Warn(), fmt.Sprintf(template, args...), nil) }
func Errorf(template string, args ...any) { emit(log.Error(), fmt.Sprintf(template, args...), nil) }
func Fatalf(template string, args ...any) {
	emit(log.Fatal(), fmt.Sprintf(template, args...), nil)
	os.Exit(1)
}

// Debugw logs a message with some additional context as key/value pairs.
func Debugw(msg string, keysAndValues ...any) { emit(log.Debug(), msg, keysAndValues) }

// Infow logs a message with some additional context as key/value pairs.
func Infow(msg string, keysAndValues ...any) { emit(log.Info(), msg, keysAndValues) }

// Warnw logs a message with some additional context as key/value pairs.
func Warnw(msg string, keysAndValues ...any) { emit(log.Warn(), msg, keysAndValues) }

// Errorw logs an error with a message and some additional context.
func Errorw(err error, msg string, keysAndValues ...any) {
	emit(log.Error().Err(err), msg, keysAndValues)
}
