package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cmms-backend/internal/database"
	"cmms-backend/internal/model"
)

// Shared fixtures for the service tests. Every test gets its own in-memory
// database so state never leaks between cases.

var testDBCounter atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared-cache DSN keeps every pooled connection on the same
	// in-memory database; a bare ":memory:" gives each connection its own.
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role model.Role) model.User {
	t.Helper()
	user := model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestAsset(t *testing.T, db *gorm.DB, code string) model.Asset {
	t.Helper()
	asset := model.Asset{
		Code:   code,
		Name:   "Extruder " + code,
		Area:   "Line 1",
		Status: model.AssetStatusRunning,
	}
	require.NoError(t, db.Create(&asset).Error)
	return asset
}

func asActor(u model.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
