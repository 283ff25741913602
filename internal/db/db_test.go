package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t,
		"chat.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		sqliteDSN("chat.db"))
	assert.Equal(t,
		"file:x.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		sqliteDSN("file:x.db?mode=rwc"))
	assert.Equal(t,
		"a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(100)",
		sqliteDSN("a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(100)"))
}

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestConnect_SQLite(t *testing.T) {
	gdb, err := Connect("sqlite", filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, AutoMigrate(gdb, &widget{}))
	require.NoError(t, gdb.Create(&widget{Name: "a"}).Error)

	var fk int
	require.NoError(t, gdb.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
