// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/truckmatch/routecompare/internal/config"
	"github.com/truckmatch/routecompare/internal/storage/memory"
	sqlitestorage "github.com/truckmatch/routecompare/internal/storage/sqlite"
)

// NewBackend creates a route store based on configuration.
func NewBackend(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Type {
	case "sqlite":
		return sqlitestorage.New(), nil
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
