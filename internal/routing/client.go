// internal/routing/client.go
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/truckmatch/routecompare/internal/geo"
	"github.com/truckmatch/routecompare/pkg/core"
)

const instrumentationName = "github.com/truckmatch/routecompare/internal/routing"

// Fallback reasons attached to metrics and outcomes.
const (
	ReasonTransport  = "transport"
	ReasonStatus     = "status"
	ReasonDecode     = "decode"
	ReasonNoLegs     = "no_legs"
	ReasonEmptyShape = "empty_shape"
	ReasonNoInput    = "no_waypoints"
)

// maxResponseBytes caps how much of a reply is read.
const maxResponseBytes = 16 << 20

// Config holds routing client settings.
type Config struct {
	Endpoint  string
	Costing   string
	Units     string
	Timeout   time.Duration
	Precision int
}

// FetchError describes why a route request did not yield geometry.
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("route fetch failed (%s): %v", e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Outcome is reported to an OutcomeSink after every request.
type Outcome struct {
	Costing   string
	Waypoints int
	Points    int
	Duration  time.Duration
	Fallback  bool
	Reason    string
}

// OutcomeSink receives fetch outcomes, e.g. for time-series telemetry.
type OutcomeSink interface {
	RecordFetch(ctx context.Context, o Outcome)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithSink reports every outcome to s.
func WithSink(s OutcomeSink) Option {
	return func(c *Client) {
		c.sink = s
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// Client fetches road-following geometry from a Valhalla-style routing service.
// It is safe for concurrent use.
type Client struct {
	endpoint   string
	costing    string
	units      string
	precision  int
	httpClient *http.Client
	logger     *slog.Logger
	sink       OutcomeSink

	requests  metric.Int64Counter
	fallbacks metric.Int64Counter
	latency   metric.Float64Histogram
}

// New creates a new routing client.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Costing == "" {
		cfg.Costing = "auto"
	}
	if cfg.Units == "" {
		cfg.Units = "km"
	}
	if cfg.Precision <= 0 {
		cfg.Precision = geo.DefaultPrecision
	}

	c := &Client{
		endpoint:   cfg.Endpoint,
		costing:    cfg.Costing,
		units:      cfg.Units,
		precision:  cfg.Precision,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	m := otel.Meter(instrumentationName)

	var err error
	c.requests, err = m.Int64Counter(
		"routing.requests",
		metric.WithDescription("Total route requests sent to the routing service"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests counter: %w", err)
	}

	c.fallbacks, err = m.Int64Counter(
		"routing.fallbacks",
		metric.WithDescription("Route requests that fell back to straight lines"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fallbacks counter: %w", err)
	}

	c.latency, err = m.Float64Histogram(
		"routing.latency",
		metric.WithDescription("Route request duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}

	return c, nil
}

// Costing returns costing, or the configured default when it is empty.
func (c *Client) Costing(costing string) string {
	if costing == "" {
		return c.costing
	}
	return costing
}

// FetchRoute returns road geometry through all waypoints. It never fails:
// any problem is logged and the waypoints are returned verbatim as a
// straight-line path.
func (c *Client) FetchRoute(ctx context.Context, waypoints core.WaypointList, costing string) core.PathShape {
	shape, err := c.Fetch(ctx, waypoints, costing)
	if err != nil {
		c.logger.Warn("Routing failed, using straight lines",
			"error", err,
			"waypoints", len(waypoints),
			"costing", c.Costing(costing))
		return Fallback(waypoints)
	}
	return shape
}

// Fetch requests geometry and reports failures as *FetchError.
func (c *Client) Fetch(ctx context.Context, waypoints core.WaypointList, costing string) (core.PathShape, error) {
	costing = c.Costing(costing)
	start := time.Now()

	shape, err := c.fetch(ctx, waypoints, costing)

	outcome := Outcome{
		Costing:   costing,
		Waypoints: len(waypoints),
		Points:    len(shape),
		Duration:  time.Since(start),
	}
	attrs := []attribute.KeyValue{attribute.String("costing", costing)}

	var fe *FetchError
	if errors.As(err, &fe) {
		outcome.Fallback = true
		outcome.Reason = fe.Reason
		outcome.Points = len(waypoints)
		c.fallbacks.Add(ctx, 1, metric.WithAttributes(
			attribute.String("costing", costing),
			attribute.String("reason", fe.Reason)))
	}

	c.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	c.latency.Record(ctx, float64(outcome.Duration.Microseconds())/1000, metric.WithAttributes(attrs...))
	if c.sink != nil {
		c.sink.RecordFetch(ctx, outcome)
	}

	return shape, err
}

func (c *Client) fetch(ctx context.Context, waypoints core.WaypointList, costing string) (core.PathShape, error) {
	if len(waypoints) == 0 {
		return nil, &FetchError{Reason: ReasonNoInput, Err: errors.New("no waypoints")}
	}

	body, err := json.Marshal(newRouteRequest(waypoints, costing, c.units))
	if err != nil {
		return nil, &FetchError{Reason: ReasonTransport, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Reason: ReasonTransport, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Reason: ReasonTransport, Err: fmt.Errorf("route request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &FetchError{Reason: ReasonStatus, Err: fmt.Errorf("route request returned status %d", resp.StatusCode)}
	}

	var rr RouteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&rr); err != nil {
		return nil, &FetchError{Reason: ReasonDecode, Err: fmt.Errorf("failed to parse route response: %w", err)}
	}
	if rr.Trip == nil || len(rr.Trip.Legs) == 0 {
		return nil, &FetchError{Reason: ReasonNoLegs, Err: errors.New("route response has no legs")}
	}

	var shape core.PathShape
	for _, leg := range rr.Trip.Legs {
		shape = append(shape, geo.Decode(leg.Shape, c.precision)...)
	}
	if len(shape) == 0 {
		return nil, &FetchError{Reason: ReasonEmptyShape, Err: errors.New("route legs decoded to no points")}
	}

	return shape, nil
}

// Fallback is the straight-line path through the waypoints.
func Fallback(waypoints core.WaypointList) core.PathShape {
	return core.PathShape(waypoints).Clone()
}
