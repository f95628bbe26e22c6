// Package testutil provides shared fixtures and test doubles for package tests.
package testutil

import (
	"fmt"
	"testing"

	"isintu/internal/database"
	"isintu/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns a fresh in-memory database with every persistent
// table migrated. The pool is pinned to one connection because each SQLite
// memory connection is its own database; code under test must therefore use
// the transaction handle, never the outer db, inside a transaction.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateProfile inserts a profile with a throwaway password hash.
func CreateProfile(t testing.TB, db *gorm.DB, fullName string, role models.Role) *models.Profile {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&n).Error)

	p := &models.Profile{
		Email:    fmt.Sprintf("user%d@isintu.test", n+1),
		Password: "not-a-real-hash",
		FullName: fullName,
		Role:     role,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreatePost inserts a post with the given status.
func CreatePost(t testing.TB, db *gorm.DB, userID uint, text string, status models.PostStatus) *models.Post {
	t.Helper()

	p := &models.Post{UserID: userID, Text: text, Status: status}
	require.NoError(t, db.Create(p).Error)
	return p
}
