// Package logger owns the process-wide zerolog logger of the users API.
//
// cmd/users-api calls Init once from configuration; everything else asks for
// a Component logger so entries carry the subsystem that wrote them.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Options describes the logger built by New and Init.
type Options struct {
	Level   string    // trace, debug, info, warn or error; anything else is info
	Format  Format    // empty means FormatJSON
	Output  io.Writer // nil means os.Stdout
	Service string    // attached as "service" when set
}

var (
	mu      sync.RWMutex
	process = zerolog.Nop()
	initOne sync.Once
)

// New builds a logger from opts without touching the process logger.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(parseLevel(opts.Level)).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return ctx.Logger()
}

// Init installs the process logger. Calls after the first are ignored.
func Init(opts Options) zerolog.Logger {
	initOne.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		l := New(opts)

		mu.Lock()
		process = l
		mu.Unlock()
	})
	return Get()
}

// Get returns the process logger; before Init it discards everything.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return process
}

// Component returns the process logger tagged with component=name.
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
