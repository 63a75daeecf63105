// Package sqlitestorage implements the storage.Backend interface using a
// private in-memory SQLite database through GORM. Nothing is written to disk.
package sqlitestorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/truckmatch/routecompare/internal/database"
	"github.com/truckmatch/routecompare/pkg/core"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RouteShape is one cached route geometry row.
type RouteShape struct {
	RouteKey  string `gorm:"primaryKey"`
	Points    int
	Shape     datatypes.JSON
	CreatedAt time.Time
}

// Backend stores route shapes in an in-memory SQLite database.
type Backend struct {
	db *gorm.DB
}

// New creates a new SQLite storage backend. The database is opened by Init.
func New() *Backend {
	return &Backend{}
}

// Init opens the database and migrates the schema.
func (b *Backend) Init() error {
	db, err := database.GetSqliteDB("")
	if err != nil {
		return fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	if err := db.AutoMigrate(&RouteShape{}); err != nil {
		_ = database.Close(db)
		return fmt.Errorf("failed to migrate route shapes: %w", err)
	}
	b.db = db
	return nil
}

// Close closes the database, discarding every stored route.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	err := database.Close(b.db)
	b.db = nil
	return err
}

// SaveRoute upserts the shape stored under key.
func (b *Backend) SaveRoute(key string, shape core.PathShape) error {
	if b.db == nil {
		return errors.New("sqlite backend not initialized")
	}
	raw, err := json.Marshal(shape)
	if err != nil {
		return fmt.Errorf("failed to encode shape: %w", err)
	}
	row := RouteShape{
		RouteKey: key,
		Points:   len(shape),
		Shape:    datatypes.JSON(raw),
	}
	return b.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// LoadRoute returns the shape stored under key.
func (b *Backend) LoadRoute(key string) (core.PathShape, bool, error) {
	if b.db == nil {
		return nil, false, errors.New("sqlite backend not initialized")
	}
	var row RouteShape
	err := b.db.Where("route_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load route: %w", err)
	}

	var shape core.PathShape
	if err := json.Unmarshal(row.Shape, &shape); err != nil {
		return nil, false, fmt.Errorf("failed to decode shape: %w", err)
	}
	return shape, true, nil
}

// Len returns the number of stored routes.
func (b *Backend) Len() int {
	if b.db == nil {
		return 0
	}
	var n int64
	b.db.Model(&RouteShape{}).Count(&n)
	return int(n)
}
