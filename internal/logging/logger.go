package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vanshika/beltledger/internal/config"
)

// New builds a slog.Logger configured according to the provided logging config.
func New(cfg config.LoggingConfig) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.IncludeCaller,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", "beltledger")
}

// ParseLevel maps a textual level to slog, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RestyLogger is the logger contract expected by go-resty.
type RestyLogger interface {
	Errorf(format string, v ...any)
	Warnf(format string, v ...any)
	Debugf(format string, v ...any)
}

type restyAdapter struct {
	logger *slog.Logger
}

// RestyAdapter routes resty's printf-style logging into slog.
func RestyAdapter(logger *slog.Logger) RestyLogger {
	return restyAdapter{logger: logger.With("component", "resty")}
}

func (a restyAdapter) Errorf(format string, v ...any) { a.logger.Error(sprintf(format, v...)) }
func (a restyAdapter) Warnf(format string, v ...any)  { a.logger.Warn(sprintf(format, v...)) }
func (a restyAdapter) Debugf(format string, v ...any) { a.logger.Debug(sprintf(format, v...)) }

func sprintf(format string, v ...any) string {
	if len(v) == 0 {
		return strings.TrimSpace(format)
	}
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}

// Printfer is the single-method writer gorm's logger prints through.
type Printfer interface {
	Printf(format string, v ...any)
}

type printfAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// PrintfAdapter logs every Printf call at level under the given component.
func PrintfAdapter(logger *slog.Logger, component string, level slog.Level) Printfer {
	return printfAdapter{logger: logger.With("component", component), level: level}
}

func (a printfAdapter) Printf(format string, v ...any) {
	a.logger.Log(context.Background(), a.level, sprintf(format, v...))
}
