// Package monitor keeps a plain-text status file describing the current
// comparison up to date.
package monitor

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/truckmatch/routecompare/internal/session"
	"github.com/truckmatch/routecompare/internal/util"
	"github.com/truckmatch/routecompare/pkg/core"
)

// DefaultInterval is how often the status file is rewritten.
const DefaultInterval = time.Second

// FrameSource is implemented by session.Engine.
type FrameSource interface {
	Latest() session.Frame
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Frames     FrameSource
	Logger     *slog.Logger
	StatusPath string
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status renders a frame as status file lines.
func Status(f session.Frame) []string {
	if f.ScenarioID == "" && f.Placeholder == "" && len(f.Routes) == 0 {
		return []string{"scenario: none"}
	}

	lines := []string{"scenario: " + f.ScenarioID}
	if f.Placeholder != "" {
		return append(lines, "status: "+f.Placeholder)
	}

	state := "paused"
	switch {
	case f.Loading:
		state = "loading"
	case f.Playing:
		state = "playing"
	}
	lines = append(lines,
		"status: "+state,
		fmt.Sprintf("progress: %s %s%%", util.ProgressBar(f.Progress, 20), util.FormatNumber(f.Progress)),
		fmt.Sprintf("speed: %sx", util.FormatNumber(f.Speed)),
	)

	lengths := make(map[string]float64, len(f.Routes))
	for _, r := range f.Routes {
		if !r.Loaded {
			lines = append(lines, fmt.Sprintf("%s: loading", r.Strategy))
			continue
		}
		lengths[r.Strategy] = r.LengthKm
		lines = append(lines, fmt.Sprintf("%s: %s, %d points", r.Strategy, util.FormatKm(r.LengthKm), r.Points))
	}

	tri, okTri := lengths[core.Triangulation.String()]
	via, okVia := lengths[core.ViaPort.String()]
	if okTri && okVia {
		lines = append(lines, "saving: "+util.FormatKm(util.SavingKm(tri, via)))
	}
	return lines
}

// WriteStatus rewrites the status file once.
func (s *Service) WriteStatus() error {
	body := strings.Join(Status(s.deps.Frames.Latest()), "\n") + "\n"
	tmp := s.deps.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	if err := os.Rename(tmp, s.deps.StatusPath); err != nil {
		return fmt.Errorf("replacing status file: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	logger := s.deps.Logger
	logger.Debug("Starting status monitor", "path", s.deps.StatusPath, "interval", s.deps.Interval)

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			if err := s.WriteStatus(); err != nil {
				logger.Error("Error writing status file", "error", err)
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the last write to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
