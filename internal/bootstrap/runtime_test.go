package bootstrap

import (
	"context"
	"testing"

	"isintu/internal/config"
	"isintu/internal/models"
	"isintu/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:                  "development",
		JWTSecret:            config.DefaultJWTSecret,
		DevRootAdminEmail:    "root@isintu.test",
		DevRootAdminPassword: "Root-Password-2026!",
		DevRootAdminName:     "Root",
	}
}

func TestEnsureDevRootAdmin_CreatesAdmin(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	require.NoError(t, EnsureDevRootAdmin(context.Background(), devConfig(), db))
	require.NoError(t, EnsureDevRootAdmin(context.Background(), devConfig(), db))

	var admins []models.Profile
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "root@isintu.test", admins[0].Email)
	assert.Equal(t, "Root", admins[0].FullName)
}

func TestEnsureDevRootAdmin_PromotesExisting(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	user := testutil.CreateProfile(t, db, "Someone", models.RoleUser)

	cfg := devConfig()
	cfg.DevRootAdminEmail = user.Email
	require.NoError(t, EnsureDevRootAdmin(context.Background(), cfg, db))

	var got models.Profile
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, "not-a-real-hash", got.Password)
}

func TestEnsureDevRootAdmin_Skips(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	prod := devConfig()
	prod.Env = "production"
	require.NoError(t, EnsureDevRootAdmin(context.Background(), prod, db))

	unset := devConfig()
	unset.DevRootAdminEmail = ""
	require.NoError(t, EnsureDevRootAdmin(context.Background(), unset, db))

	var n int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&n).Error)
	assert.Zero(t, n)

	noPassword := devConfig()
	noPassword.DevRootAdminPassword = ""
	assert.Error(t, EnsureDevRootAdmin(context.Background(), noPassword, db))
}
