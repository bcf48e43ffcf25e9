package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	Logger.SetLevel(logrus.InfoLevel)

	// LOG_LEVEL=debug wins over the default until the config is applied.
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if parsedLevel, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
			Logger.SetLevel(parsedLevel)
		}
	}
}

// WithComponent adds a component field to the logger
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// ApplyLevel sets the logger level from a textual level.
// An invalid value leaves the level untouched and returns the parse error.
func ApplyLevel(level string) error {
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return err
	}
	Logger.SetLevel(parsed)
	return nil
}

// NewSlogLogger returns a slog logger for libraries that only speak log/slog.
// Records are rendered by tint without colors and written through the logrus output.
func NewSlogLogger(name string) *slog.Logger {
	return newSlogLogger(Logger.Writer(), name)
}

func newSlogLogger(w io.Writer, name string) *slog.Logger {
	h := tint.NewHandler(w, &tint.Options{
		Level:   slogLevel(Logger.GetLevel()),
		NoColor: true,
	})
	return slog.New(h).With("component", name)
}

func slogLevel(l logrus.Level) slog.Level {
	switch {
	case l >= logrus.DebugLevel:
		return slog.LevelDebug
	case l == logrus.InfoLevel:
		return slog.LevelInfo
	case l == logrus.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
