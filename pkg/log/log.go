package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child of the global Logger scoped to one
// component (store, scheduler, dispatch, broadcaster, api).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithMessageID returns a child of base scoped to a single message_id, for
// a call site that logs several entries about the same message.
func WithMessageID(base zerolog.Logger, messageID string) zerolog.Logger {
	return base.With().Str("message_id", messageID).Logger()
}

// WithThreadID returns a child of base scoped to a single thread_id.
func WithThreadID(base zerolog.Logger, threadID string) zerolog.Logger {
	return base.With().Str("thread_id", threadID).Logger()
}

// Info logs msg on the global Logger at info level. Component loggers
// (WithComponent) are used for everything else; this exists for the
// handful of call sites, such as process bootstrap, that run before any
// component logger is constructed.
func Info(msg string) {
	Logger.Info().Msg(msg)
}
