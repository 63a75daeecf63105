package influx

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truckmatch/routecompare/internal/config"
	"github.com/truckmatch/routecompare/internal/routing"
)

type capturingWriter struct {
	mu     sync.Mutex
	points []*influxdb2_write.Point
	fail   bool
}

func (w *capturingWriter) WritePoint(_ context.Context, p *influxdb2_write.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("write refused")
	}
	w.points = append(w.points, p)
	return nil
}

func (w *capturingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.points)
}

var sinkTime = time.Unix(1700000000, 0)

func newTestSink(w PointWriter, capacity int) *Sink {
	s := NewSink(w, capacity, zerolog.Nop())
	s.now = func() time.Time { return sinkTime }
	return s
}

func TestOutcomePoint_Fallback(t *testing.T) {
	p := OutcomePoint(routing.Outcome{
		Costing:   "truck",
		Waypoints: 5,
		Points:    5,
		Duration:  1500 * time.Microsecond,
		Fallback:  true,
		Reason:    routing.ReasonTransport,
	}, sinkTime)

	lp := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.True(t, strings.HasPrefix(lp, "route_fetch,costing=truck,fallback=true,reason=transport "), lp)
	assert.Contains(t, lp, "duration_ms=1.5")
	assert.Contains(t, lp, "points=5i")
	assert.Contains(t, lp, "waypoints=5i")
}

func TestOutcomePoint_SuccessHasNoReason(t *testing.T) {
	p := OutcomePoint(routing.Outcome{Costing: "auto", Waypoints: 4, Points: 812}, sinkTime)

	lp := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.True(t, strings.HasPrefix(lp, "route_fetch,costing=auto,fallback=false "), lp)
	assert.NotContains(t, lp, "reason=")
}

func TestSink_RecordAndFlush(t *testing.T) {
	w := &capturingWriter{}
	s := newTestSink(w, 10)

	var sink routing.OutcomeSink = s
	sink.RecordFetch(context.Background(), routing.Outcome{Costing: "auto", Points: 10})
	sink.RecordFetch(context.Background(), routing.Outcome{Costing: "auto", Fallback: true, Reason: routing.ReasonStatus})

	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, 2, s.Flush(context.Background()))
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 2, w.count())
}

func TestSink_BoundedBuffer(t *testing.T) {
	w := &capturingWriter{}
	s := newTestSink(w, 2)

	for i := 0; i < 5; i++ {
		s.RecordFetch(context.Background(), routing.Outcome{Costing: "auto", Points: i})
	}

	assert.Equal(t, 2, s.Pending())
	s.Flush(context.Background())
	require.Equal(t, 2, w.count())

	lp := influxdb2_write.PointToLineProtocol(w.points[0], time.Nanosecond)
	assert.Contains(t, lp, "points=3i", "oldest outcomes are evicted first")
}

func TestSink_FlushDropsFailedPoints(t *testing.T) {
	w := &capturingWriter{fail: true}
	s := newTestSink(w, 10)

	s.RecordFetch(context.Background(), routing.Outcome{Costing: "auto"})
	assert.Equal(t, 0, s.Flush(context.Background()))
	assert.Equal(t, 0, s.Pending())
}

func TestSink_RunFlushesOnCancel(t *testing.T) {
	w := &capturingWriter{}
	s := newTestSink(w, 10)
	s.RecordFetch(context.Background(), routing.Outcome{Costing: "auto"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, w.count())
}

func TestSink_ThroughBackupManager(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "telemetry.lp.gz")
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), backup)
	require.NoError(t, m.OpenBackup())

	s := newTestSink(m, 10)
	s.RecordFetch(context.Background(), routing.Outcome{Costing: "auto", Waypoints: 4, Points: 4, Fallback: true, Reason: routing.ReasonDecode})
	require.Equal(t, 1, s.Flush(context.Background()))
	require.NoError(t, m.Close())

	lines := readBackup(t, backup)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "route_fetch,costing=auto,fallback=true,reason=decode "), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], " 1700000000000000000"), lines[0])
}
