package routing

import (
	"context"
	"log/slog"

	"github.com/truckmatch/routecompare/internal/storage"
	"github.com/truckmatch/routecompare/pkg/core"
)

// Fetcher is anything that resolves waypoints into road geometry without failing.
type Fetcher interface {
	FetchRoute(ctx context.Context, waypoints core.WaypointList, costing string) core.PathShape
}

// CachedFetcher memoizes successful routes in a session-scoped store.
// Straight-line fallbacks are never stored so a later request can still
// reach the routing service.
type CachedFetcher struct {
	client *Client
	store  storage.Backend
	logger *slog.Logger
}

// NewCachedFetcher wraps client with store.
func NewCachedFetcher(client *Client, store storage.Backend, logger *slog.Logger) *CachedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{client: client, store: store, logger: logger}
}

// FetchRoute returns the stored route when present, otherwise asks the client.
func (f *CachedFetcher) FetchRoute(ctx context.Context, waypoints core.WaypointList, costing string) core.PathShape {
	costing = f.client.Costing(costing)
	key := storage.RouteKey(waypoints, costing)

	shape, ok, err := f.store.LoadRoute(key)
	if err != nil {
		f.logger.Warn("Route cache read failed", "error", err)
	}
	if ok && len(shape) > 0 {
		f.logger.Debug("Route cache hit", "key", key, "points", len(shape))
		return shape
	}

	shape, err = f.client.Fetch(ctx, waypoints, costing)
	if err != nil {
		f.logger.Warn("Routing failed, using straight lines",
			"error", err,
			"waypoints", len(waypoints),
			"costing", costing)
		return Fallback(waypoints)
	}

	if err := f.store.SaveRoute(key, shape); err != nil {
		f.logger.Warn("Route cache write failed", "error", err)
	}
	return shape
}
