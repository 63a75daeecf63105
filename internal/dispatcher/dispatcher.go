// Package dispatcher routes named host commands (scenario loads, playback
// controls, frame queries) to their handlers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/truckmatch/routecompare/internal/dispatcher"

// ErrUnknownCommand is returned by Dispatch when no handler is registered.
var ErrUnknownCommand = errors.New("unknown command")

// ErrQueueFull is returned by a non-blocking buffered handler that had to drop.
var ErrQueueFull = errors.New("queue full")

// ErrClosed is returned by buffered handlers after Close.
var ErrClosed = errors.New("dispatcher closed")

// Queued is the result returned by buffered handlers.
const Queued = "queued"

// Event represents an incoming host command.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// ParseEvent splits a command line such as "playback:speed 2" into an Event.
func ParseEvent(line string, now time.Time) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, false
	}
	return Event{Command: fields[0], Args: fields[1:], Timestamp: now}, true
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(context.Context, Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	buffers  map[string]chan queuedEvent
	wg       sync.WaitGroup
	closed   bool
}

type queuedEvent struct {
	ctx   context.Context
	event Event
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan queuedEvent),
		logger:   logger,
	}

	m := otel.Meter(instrumentationName)

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of commands waiting in a handler queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.commands.processed",
		metric.WithDescription("Total commands processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.commands.dropped",
		metric.WithDescription("Total commands dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.commands.failed",
		metric.WithDescription("Total commands whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
// Registering the same command twice replaces the earlier handler.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := d.withFailureCount(command, h)

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg.bufferSize, cfg.blocking, handler)
	}

	d.mu.Lock()
	d.handlers[command] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(ctx, e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Commands lists the registered command names.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	return names
}

// Close stops accepting buffered work and waits for queued commands to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for cmd, buf := range d.buffers {
		close(buf)
		delete(d.buffers, cmd)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan queuedEvent, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for q := range buffer {
			h(q.ctx, q.event)
			d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		}
	}()

	if blocking {
		return func(ctx context.Context, e Event) (any, error) {
			d.mu.RLock()
			defer d.mu.RUnlock()
			if d.closed {
				return nil, ErrClosed
			}
			select {
			case buffer <- queuedEvent{ctx: context.WithoutCancel(ctx), event: e}:
				return Queued, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return func(ctx context.Context, e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}
		select {
		case buffer <- queuedEvent{ctx: context.WithoutCancel(ctx), event: e}:
			return Queued, nil
		default:
			d.dropped.Add(ctx, 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) withFailureCount(command string, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", command)
	return func(ctx context.Context, e Event) (any, error) {
		result, err := h(ctx, e)
		if err != nil {
			d.failed.Add(ctx, 1, metric.WithAttributes(cmdAttr))
		}
		return result, err
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", len(e.Args))

		result, err := h(ctx, e)

		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
