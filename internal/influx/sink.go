package influx

import (
	"context"
	"strconv"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/truckmatch/routecompare/internal/queue"
	"github.com/truckmatch/routecompare/internal/routing"
)

// MeasurementRouteFetch is the measurement name of route fetch outcomes.
const MeasurementRouteFetch = "route_fetch"

// DefaultSinkCapacity bounds the number of unflushed points.
const DefaultSinkCapacity = 1024

// PointWriter is implemented by Manager.
type PointWriter interface {
	WritePoint(ctx context.Context, point *influxdb2_write.Point) error
}

// Sink buffers routing outcomes as points and writes them in batches.
// RecordFetch never blocks the routing call path.
type Sink struct {
	writer  PointWriter
	pending *queue.Queue[*influxdb2_write.Point]
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSink creates a Sink writing through w.
func NewSink(w PointWriter, capacity int, log zerolog.Logger) *Sink {
	if capacity <= 0 {
		capacity = DefaultSinkCapacity
	}
	return &Sink{
		writer:  w,
		pending: queue.New[*influxdb2_write.Point](capacity),
		logger:  log,
		now:     time.Now,
	}
}

// RecordFetch implements routing.OutcomeSink.
func (s *Sink) RecordFetch(_ context.Context, o routing.Outcome) {
	if evicted := s.pending.Push(OutcomePoint(o, s.now())); evicted > 0 {
		s.logger.Warn().Int("evicted", evicted).Msg("Telemetry buffer full, dropping oldest points")
	}
}

// Pending returns the number of points waiting for Flush.
func (s *Sink) Pending() int {
	return s.pending.Len()
}

// Flush writes every buffered point. Points that fail are logged and dropped.
func (s *Sink) Flush(ctx context.Context) int {
	written := 0
	for _, p := range s.pending.Drain() {
		if err := s.writer.WritePoint(ctx, p); err != nil {
			s.logger.Error().Err(err).Msg("Error writing telemetry point")
			continue
		}
		written++
	}
	return written
}

// Run flushes every interval until ctx is done, then flushes once more.
func (s *Sink) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Flush(ctx)
		case <-ctx.Done():
			s.Flush(context.WithoutCancel(ctx))
			return
		}
	}
}

// OutcomePoint converts a fetch outcome to a route_fetch point.
func OutcomePoint(o routing.Outcome, at time.Time) *influxdb2_write.Point {
	tags := map[string]string{
		"costing":  o.Costing,
		"fallback": strconv.FormatBool(o.Fallback),
	}
	if o.Reason != "" {
		tags["reason"] = o.Reason
	}
	fields := map[string]any{
		"waypoints":   o.Waypoints,
		"points":      o.Points,
		"duration_ms": float64(o.Duration.Microseconds()) / 1000,
	}
	return influxdb2_write.NewPoint(MeasurementRouteFetch, tags, fields, at)
}
