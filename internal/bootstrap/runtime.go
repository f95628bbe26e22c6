// Package bootstrap wires the process-wide runtime: database, Redis and the
// development root admin.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"isintu/internal/cache"
	"isintu/internal/config"
	"isintu/internal/database"
	"isintu/internal/middleware"
	"isintu/internal/repository"
	"isintu/internal/seed"
	"isintu/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo loads the bundled demo fixtures after connecting.
	SeedDemo bool
}

// InitRuntime connects to the database and Redis, ensures the development
// root admin and optionally seeds demo content. A nil Redis client means the
// server runs without cache, rate limiting and event fan-out.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedDemo {
		if _, err := seed.Seed(ctx, db, seed.Options{}); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo content: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevRootAdmin creates or promotes DEV_ROOT_ADMIN_EMAIL in development.
// Other environments, or an unset email, are left alone.
func EnsureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if cfg.Env != "development" || cfg.DevRootAdminEmail == "" {
		return nil
	}
	if cfg.DevRootAdminPassword == "" {
		return errors.New("DEV_ROOT_ADMIN_PASSWORD must be set with DEV_ROOT_ADMIN_EMAIL")
	}

	identity := service.NewIdentityService(repository.NewProfileRepository(db), cfg.JWTSecret)
	admin, err := identity.EnsureAdmin(ctx, cfg.DevRootAdminEmail, cfg.DevRootAdminPassword, cfg.DevRootAdminName)
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured",
		slog.Uint64("user_id", uint64(admin.ID)),
		slog.String("email", admin.Email))
	return nil
}
