// Package session runs one comparison: it fetches both strategy routes,
// densifies them and drives the shared playback timeline. All state is owned
// by a single control goroutine; other goroutines talk to it by posting
// closures.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/truckmatch/routecompare/internal/channel"
	"github.com/truckmatch/routecompare/internal/geo"
	"github.com/truckmatch/routecompare/internal/playback"
	"github.com/truckmatch/routecompare/internal/routing"
	"github.com/truckmatch/routecompare/internal/scenario"
	"github.com/truckmatch/routecompare/pkg/core"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("session closed")

const eventBufferSize = 256

// Config holds session settings.
type Config struct {
	Costing       string
	IntervalKm    float64
	FrameInterval time.Duration
	Speed         float64
	Viewport      geo.FitOptions
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithScheduler replaces the frame timer. Callbacks from s are moved onto
// the control goroutine.
func WithScheduler(s playback.Scheduler) Option {
	return func(e *Engine) {
		e.sched = loopScheduler{inner: s, post: e.post}
	}
}

// WithScenarioContext publishes the current scenario to ctx for log enrichment.
func WithScenarioContext(ctx *scenario.Context) Option {
	return func(e *Engine) {
		e.scenarioCtx = ctx
	}
}

type slot struct {
	path     core.PathShape
	loaded   bool
	lengthKm float64
}

// Engine is one comparison session.
type Engine struct {
	cfg         Config
	fetcher     routing.Fetcher
	logger      *slog.Logger
	sched       playback.Scheduler
	scenarioCtx *scenario.Context

	events channel.Channel[func()]
	done   chan struct{}

	baseCtx    context.Context
	baseCancel context.CancelFunc

	// owned by the control goroutine
	scenario    *core.Scenario
	placeholder string
	gen         uint64
	revision    uint64
	slots       map[core.Strategy]*slot
	player      *playback.Controller
	cancelFetch context.CancelFunc
	subs        map[int]func(Frame)
	nextSub     int
	waiters     []chan struct{}

	last atomic.Pointer[Frame]
}

// New starts a session with no scenario loaded.
func New(cfg Config, fetcher routing.Fetcher, opts ...Option) *Engine {
	if cfg.IntervalKm <= 0 {
		cfg.IntervalKm = geo.DefaultIntervalKm
	}
	if !playback.ValidSpeed(cfg.Speed) {
		cfg.Speed = 1
	}
	if cfg.Viewport.MaxZoom <= 0 {
		cfg.Viewport.MaxZoom = geo.DefaultMaxZoom
	}

	e := &Engine{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  slog.Default(),
		events:  channel.New[func()](eventBufferSize),
		done:    make(chan struct{}),
		slots:   make(map[core.Strategy]*slot),
		subs:    make(map[int]func(Frame)),
	}
	e.baseCtx, e.baseCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(e)
	}
	if e.sched == nil {
		e.sched = playback.NewFrameScheduler(cfg.FrameInterval, func(fn func()) { e.post(fn) })
	}

	e.publish()
	go e.loop()
	return e
}

func (e *Engine) loop() {
	defer close(e.done)
	for fn := range e.events.Receive() {
		fn()
	}
	e.teardown()
}

// post queues fn on the control goroutine. It reports false after Close.
func (e *Engine) post(fn func()) bool {
	return e.events.Send(fn)
}

// do runs fn on the control goroutine and waits for it to finish.
func (e *Engine) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !e.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load replaces the current scenario. Incomplete scenarios are rejected with
// the precondition error and the session shows a placeholder instead.
func (e *Engine) Load(ctx context.Context, s core.Scenario) error {
	if err := s.Validate(); err != nil {
		if doErr := e.do(ctx, func() { e.clear(PlaceholderIncomplete) }); doErr != nil {
			return doErr
		}
		return fmt.Errorf("cannot load scenario %q: %w", s.ID, err)
	}
	return e.do(ctx, func() { e.load(s) })
}

// TogglePlay starts or pauses playback.
func (e *Engine) TogglePlay(ctx context.Context) error {
	return e.do(ctx, func() {
		if e.player != nil {
			e.player.TogglePlay()
		}
	})
}

// Reset stops playback and rewinds both markers.
func (e *Engine) Reset(ctx context.Context) error {
	return e.do(ctx, func() {
		if e.player != nil {
			e.player.Reset()
		}
	})
}

// SetSpeed changes the playback multiplier.
func (e *Engine) SetSpeed(ctx context.Context, m float64) error {
	if !playback.ValidSpeed(m) {
		return fmt.Errorf("%w: %v", playback.ErrInvalidSpeed, m)
	}
	return e.do(ctx, func() {
		e.cfg.Speed = m
		if e.player != nil {
			_ = e.player.SetSpeed(m)
		}
	})
}

// Frame returns the current frame. After Close it returns the last one.
func (e *Engine) Frame() Frame {
	var f Frame
	if err := e.do(context.Background(), func() { f = e.buildFrame() }); err != nil {
		return *e.last.Load()
	}
	return f
}

// Latest returns the most recently published frame without waiting for the
// control goroutine.
func (e *Engine) Latest() Frame {
	return *e.last.Load()
}

// Subscribe registers fn for every published frame. fn runs on the control
// goroutine and must not call back into the engine.
func (e *Engine) Subscribe(fn func(Frame)) (unsubscribe func()) {
	var id int
	if e.do(context.Background(), func() {
		id = e.nextSub
		e.nextSub++
		e.subs[id] = fn
	}) != nil {
		return func() {}
	}
	return func() {
		e.post(func() { delete(e.subs, id) })
	}
}

// WaitReady blocks until both routes of the current scenario are available.
func (e *Engine) WaitReady(ctx context.Context) error {
	ready := make(chan struct{})
	err := e.do(ctx, func() {
		if e.ready() {
			close(ready)
			return
		}
		e.waiters = append(e.waiters, ready)
	})
	if err != nil {
		return err
	}
	select {
	case <-ready:
		return nil
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels pending fetches and frames and stops the control goroutine.
func (e *Engine) Close() error {
	e.events.Close()
	<-e.done
	return nil
}

// Done is closed once the session has shut down.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) load(s core.Scenario) {
	e.discard()
	e.gen++
	gen := e.gen
	e.scenario = &s
	e.placeholder = ""

	e.player = playback.NewController(e.sched)
	_ = e.player.SetSpeed(e.cfg.Speed)
	e.player.OnChange(func(core.PlaybackState) { e.publish() })

	ctx, cancel := context.WithCancel(e.baseCtx)
	e.cancelFetch = cancel

	if e.scenarioCtx != nil {
		e.scenarioCtx.Set(s, time.Now())
	}
	e.logger.Info("Loading scenario", "scenario", s.ID)

	if !s.Routable() {
		e.logger.Info("No port coordinate, routes not built", "scenario", s.ID)
		e.publish()
		return
	}

	for _, strategy := range core.Strategies {
		e.slots[strategy] = &slot{}
		waypoints := s.Waypoints(strategy)
		go func(strategy core.Strategy, waypoints core.WaypointList) {
			path := e.fetcher.FetchRoute(ctx, waypoints, e.cfg.Costing)
			dense := geo.Interpolate(path, e.cfg.IntervalKm)
			length := geo.PathLengthKm(dense)
			e.post(func() { e.deliver(gen, strategy, dense, length) })
		}(strategy, waypoints)
	}

	e.publish()
}

func (e *Engine) deliver(gen uint64, strategy core.Strategy, path core.PathShape, lengthKm float64) {
	if gen != e.gen {
		e.logger.Debug("Dropping route for replaced scenario", "strategy", strategy.String())
		return
	}
	e.slots[strategy] = &slot{path: path, loaded: true, lengthKm: lengthKm}
	e.revision++
	e.logger.Info("Route ready",
		"strategy", strategy.String(),
		"points", len(path),
		"lengthKm", lengthKm)

	e.publish()
	if e.ready() {
		for _, w := range e.waiters {
			close(w)
		}
		e.waiters = nil
	}
}

func (e *Engine) clear(placeholder string) {
	e.discard()
	e.gen++
	e.scenario = nil
	e.placeholder = placeholder
	e.revision++
	if e.scenarioCtx != nil {
		e.scenarioCtx.Clear()
	}
	e.publish()
}

// discard drops the current scenario's fetches, timeline and paths.
func (e *Engine) discard() {
	if e.cancelFetch != nil {
		e.cancelFetch()
		e.cancelFetch = nil
	}
	if e.player != nil {
		e.player.Close()
		e.player = nil
	}
	e.slots = make(map[core.Strategy]*slot)
}

func (e *Engine) teardown() {
	e.discard()
	e.baseCancel()
	for _, w := range e.waiters {
		close(w)
	}
	e.waiters = nil
	e.subs = nil
}

// ready reports whether every route the scenario can have is loaded. A
// scenario without a port has none and is ready at once.
func (e *Engine) ready() bool {
	if e.scenario == nil {
		return false
	}
	if !e.scenario.Routable() {
		return true
	}
	for _, strategy := range core.Strategies {
		if sl := e.slots[strategy]; sl == nil || !sl.loaded {
			return false
		}
	}
	return true
}

func (e *Engine) buildFrame() Frame {
	f := Frame{
		Placeholder: e.placeholder,
		Speed:       e.cfg.Speed,
		Revision:    e.revision,
		Bounds:      geo.Bounds{Empty: true},
	}
	if e.player != nil {
		st := e.player.State()
		f.Playing = st.Playing()
		f.Progress = st.Progress
		f.Speed = st.Speed
	}
	if e.scenario == nil {
		return f
	}

	s := *e.scenario
	f.ScenarioID = s.ID
	f.Port, f.Dest, f.Orig = s.Port, s.Dest, s.Orig
	f.Loading = !e.ready()
	if s.Routable() {
		for _, strategy := range core.Strategies {
			f.Routes = append(f.Routes, newRouteFrame(strategy, e.slots[strategy], f.Progress))
		}
	}
	f.Bounds = geo.ComputeBounds(geo.ViewportPoints(s)...)
	f.Camera = f.Bounds.Fit(e.cfg.Viewport)
	return f
}

func (e *Engine) publish() {
	f := e.buildFrame()
	e.last.Store(&f)
	for _, fn := range e.subs {
		fn(f)
	}
}

// loopScheduler forwards callbacks of an external scheduler to the control
// goroutine.
type loopScheduler struct {
	inner playback.Scheduler
	post  func(func()) bool
}

func (s loopScheduler) Schedule(fn func(now time.Time)) func() {
	return s.inner.Schedule(func(now time.Time) {
		s.post(func() { fn(now) })
	})
}
