// Package logger configures the process-wide slog logger.
//
// Records are written as text or JSON to stderr, or handed to the
// OpenTelemetry log bridge when telemetry is enabled. Every record is
// enriched with the run, repository and page carried by its context (see
// WithFields) and with the active trace and span ids.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// Format selects the local log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures Setup.
type Options struct {
	Verbose bool
	Format  Format

	// Output defaults to os.Stderr.
	Output io.Writer

	// OTel routes records to the global OpenTelemetry logger provider
	// instead of Output.
	OTel        bool
	ServiceName string
}

var (
	mu      sync.Mutex
	current Options
	level   = new(slog.LevelVar)
)

// Setup installs the default slog logger.
func Setup(opts Options) {
	mu.Lock()
	defer mu.Unlock()
	current = opts
	install()
}

// SetVerbose switches between debug and info level.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	current.Verbose = v
	applyLevel()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return current.Verbose
}

// SetOutput redirects local log output. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	current.Output = w
	install()
}

// install builds the handler chain. Caller holds mu.
func install() {
	applyLevel()

	var handler slog.Handler
	if current.OTel {
		name := current.ServiceName
		if name == "" {
			name = "issuesync"
		}
		handler = otelslog.NewHandler(name, otelslog.WithLoggerProvider(global.GetLoggerProvider()))
	} else {
		out := current.Output
		if out == nil {
			out = os.Stderr
		}
		hopts := &slog.HandlerOptions{Level: level}
		if current.Format == FormatJSON {
			handler = slog.NewJSONHandler(out, hopts)
		} else {
			handler = slog.NewTextHandler(out, hopts)
		}
	}

	slog.SetDefault(slog.New(NewTraceHandler(handler)))
}

// applyLevel syncs the level with the verbose flag. Caller holds mu.
func applyLevel() {
	if current.Verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// TraceHandler adds trace ids and context fields to every record.
type TraceHandler struct {
	slog.Handler
}

// NewTraceHandler wraps h.
func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	fields := GetFields(ctx)
	if fields.RunID != "" {
		r.AddAttrs(slog.String("run_id", fields.RunID))
	}
	if fields.Owner != "" {
		r.AddAttrs(slog.String("repository", fields.Owner+"/"+fields.Repo))
	}
	if fields.Page > 0 {
		r.AddAttrs(slog.Int("page", fields.Page))
	}
	if fields.Component != "" {
		r.AddAttrs(slog.String("component", fields.Component))
	}

	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}
