package scenario

import (
	"log/slog"
	"sync"
	"time"

	"github.com/truckmatch/routecompare/pkg/core"
)

// Context holds the scenario currently shown by the session.
type Context struct {
	mu       sync.RWMutex
	Scenario core.Scenario
	LoadedAt time.Time
}

// NewContext creates a Context with no scenario loaded.
func NewContext() *Context {
	return &Context{}
}

// Get returns the current scenario and when it was loaded.
func (c *Context) Get() (core.Scenario, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Scenario, c.LoadedAt
}

// Set replaces the current scenario.
func (c *Context) Set(s core.Scenario, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Scenario = s
	c.LoadedAt = at
}

// Clear forgets the current scenario.
func (c *Context) Clear() {
	c.Set(core.Scenario{}, time.Time{})
}

// Attrs returns log attributes for the current scenario. It matches
// logging.ContextProvider.
func (c *Context) Attrs() []slog.Attr {
	s, _ := c.Get()
	if s.ID == "" {
		return nil
	}
	return []slog.Attr{slog.String("scenario", s.ID)}
}
