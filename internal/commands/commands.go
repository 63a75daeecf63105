// Package commands binds the host command set to a session.
//
// Commands use a line format so the same handlers serve the interactive CLI,
// the HTTP API and WebSocket viewers:
//
//	scenario:load <id> <dest> <orig> <port>   coordinates as lat,lon or "-"
//	playback:toggle
//	playback:reset
//	playback:speed <multiplier>
//	frame
//	frame:geojson
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/truckmatch/routecompare/internal/dispatcher"
	"github.com/truckmatch/routecompare/internal/session"
	"github.com/truckmatch/routecompare/pkg/core"
)

// Command names.
const (
	LoadScenario = "scenario:load"
	TogglePlay   = "playback:toggle"
	Reset        = "playback:reset"
	SetSpeed     = "playback:speed"
	Frame        = "frame"
	GeoJSON      = "frame:geojson"
)

// Missing marks an absent coordinate in scenario:load.
const Missing = "-"

// ErrUsage is wrapped by argument errors.
var ErrUsage = errors.New("usage")

// Session is the part of session.Engine the commands drive.
type Session interface {
	Load(ctx context.Context, s core.Scenario) error
	TogglePlay(ctx context.Context) error
	Reset(ctx context.Context) error
	SetSpeed(ctx context.Context, m float64) error
	Frame() session.Frame
}

// Register adds every host command to d. Results are the frame after the
// command has been applied, except frame:geojson which returns the routes as
// a GeoJSON feature collection.
func Register(d *dispatcher.Dispatcher, s Session) {
	d.Register(LoadScenario, func(ctx context.Context, e dispatcher.Event) (any, error) {
		sc, err := ParseScenario(e.Args)
		if err != nil {
			return nil, err
		}
		if err := s.Load(ctx, sc); err != nil && !errors.Is(err, core.ErrMissingDest) &&
			!errors.Is(err, core.ErrMissingOrig) {
			return nil, err
		}
		return s.Frame(), nil
	}, dispatcher.Logged())

	d.Register(TogglePlay, func(ctx context.Context, _ dispatcher.Event) (any, error) {
		if err := s.TogglePlay(ctx); err != nil {
			return nil, err
		}
		return s.Frame(), nil
	}, dispatcher.Logged())

	d.Register(Reset, func(ctx context.Context, _ dispatcher.Event) (any, error) {
		if err := s.Reset(ctx); err != nil {
			return nil, err
		}
		return s.Frame(), nil
	}, dispatcher.Logged())

	d.Register(SetSpeed, func(ctx context.Context, e dispatcher.Event) (any, error) {
		if len(e.Args) != 1 {
			return nil, fmt.Errorf("%w: %s <multiplier>", ErrUsage, SetSpeed)
		}
		m, err := strconv.ParseFloat(e.Args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s <multiplier>: %v", ErrUsage, SetSpeed, err)
		}
		if err := s.SetSpeed(ctx, m); err != nil {
			return nil, err
		}
		return s.Frame(), nil
	}, dispatcher.Logged())

	d.Register(Frame, func(context.Context, dispatcher.Event) (any, error) {
		return s.Frame(), nil
	})

	d.Register(GeoJSON, func(context.Context, dispatcher.Event) (any, error) {
		return s.Frame().GeoJSON(), nil
	})
}

// ScenarioArgs renders a scenario as scenario:load arguments.
func ScenarioArgs(s core.Scenario) []string {
	id := s.ID
	if id == "" {
		id = Missing
	}
	return []string{id, coordArg(s.Dest), coordArg(s.Orig), coordArg(s.Port)}
}

// ParseScenario is the inverse of ScenarioArgs.
func ParseScenario(args []string) (core.Scenario, error) {
	if len(args) != 4 {
		return core.Scenario{}, fmt.Errorf("%w: %s <id> <dest> <orig> <port>", ErrUsage, LoadScenario)
	}

	var s core.Scenario
	if args[0] != Missing {
		s.ID = args[0]
	}
	targets := []**core.Coordinate{&s.Dest, &s.Orig, &s.Port}
	for i, target := range targets {
		raw := args[i+1]
		if raw == Missing {
			continue
		}
		c, err := core.ParseCoordinate(raw)
		if err != nil {
			return core.Scenario{}, err
		}
		*target = &c
	}
	return s, nil
}

func coordArg(c *core.Coordinate) string {
	if c == nil {
		return Missing
	}
	return c.String()
}
