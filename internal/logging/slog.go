package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName is the scope name reported to the OTel log bridge.
const InstrumentationName = "routecompare"

// stdout is the console sink; tests swap it out.
var stdout io.Writer = os.Stdout

// SlogManager manages slog-based logging with optional OTel and Graylog output.
type SlogManager struct {
	logger *slog.Logger

	logProvider *sdklog.LoggerProvider
	gelfWriter  *gelf.Writer
}

// Option configures optional sinks for Setup.
type Option func(*setupOptions)

type setupOptions struct {
	gelf    io.Writer
	context ContextProvider
}

// WithGELFWriter mirrors every record as JSON to w, normally a *gelf.Writer.
func WithGELFWriter(w io.Writer) Option {
	return func(o *setupOptions) {
		o.gelf = w
	}
}

// WithContextProvider adds the attributes returned by p to every record.
func WithContextProvider(p ContextProvider) Option {
	return func(o *setupOptions) {
		o.context = p
	}
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Records go to file when it is set,
// otherwise to stdout. If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, opts ...Option) {
	var so setupOptions
	for _, opt := range opts {
		opt(&so)
	}

	lvl := parseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(stdout, handlerOpts))
	}

	if so.gelf != nil {
		handlers = append(handlers, slog.NewJSONHandler(so.gelf, handlerOpts))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if so.context != nil {
		h = NewContextHandler(h, so.context)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", level)
}

// ConnectGraylog dials a GELF UDP endpoint. The returned option is passed to
// Setup; the writer is closed by Close.
func (m *SlogManager) ConnectGraylog(addr string) (Option, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, err
	}
	w.Facility = InstrumentationName
	m.gelfWriter = w
	return WithGELFWriter(w), nil
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Close releases the Graylog connection, if any.
func (m *SlogManager) Close() error {
	if m.gelfWriter == nil {
		return nil
	}
	err := m.gelfWriter.Close()
	m.gelfWriter = nil
	return err
}

// WriteLog writes a log entry for a named component at a string level.
// Host commands arriving as text use it to report back into the log stream.
func (m *SlogManager) WriteLog(component, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "component", component)
}
