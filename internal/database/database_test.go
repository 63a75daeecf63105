package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	ID   uint
	Name string
}

func TestGetSqliteDB_InMemoryDatabasesAreIsolated(t *testing.T) {
	a, err := GetSqliteDB("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(a) })

	b, err := GetSqliteDB("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(b) })

	require.NoError(t, a.AutoMigrate(&probe{}))
	require.NoError(t, a.Create(&probe{Name: "only in a"}).Error)

	assert.True(t, a.Migrator().HasTable(&probe{}))
	assert.False(t, b.Migrator().HasTable(&probe{}))
}
