package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"isintu/internal/config"
	"isintu/internal/middleware"
	"isintu/internal/models"

	"gorm.io/gorm"
)

// Schema modes select how ApplySchema brings the database up to date.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// uniqueGuard is an index that toggle-like, follow and signup rely on to
// reject concurrent duplicates.
type uniqueGuard struct {
	model interface{}
	name  string
}

var uniqueGuards = []uniqueGuard{
	{&models.Profile{}, "idx_profiles_email"},
	{&models.PostLike{}, "idx_post_likes_post_user"},
	{&models.Follower{}, "idx_followers_pair"},
}

// SchemaStatus describes what ApplySchema would do for a config and what
// the database currently holds.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	MissingGuards      []string
}

// schemaPlan is the resolved policy for one config.
type schemaPlan struct {
	mode     string
	runSQL   bool
	runAuto  bool
	forced   bool
	prodLike bool
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	p := schemaPlan{
		mode:     strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		prodLike: isProdLikeEnv(cfg.Env),
	}
	if p.mode == "" {
		p.mode = SchemaModeHybrid
	}

	switch p.mode {
	case SchemaModeSQL:
		p.runSQL = true
	case SchemaModeHybrid:
		// AutoMigrate only fills gaps in development; production relies on
		// reviewed SQL alone.
		p.runSQL, p.runAuto = true, !p.prodLike
	case SchemaModeAuto:
		if p.prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return p, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		p.runAuto = true
		p.forced = p.prodLike
	default:
		return p, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", p.mode)
	}
	return p, nil
}

func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	p, err := planSchema(cfg)
	return p.runSQL, p.runAuto, err
}

// ApplySchema brings the database up to date according to DB_SCHEMA_MODE
// and then checks that the uniqueness guards exist.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}
	log := middleware.Logger

	if plan.runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.runAuto {
		if plan.forced {
			log.WarnContext(ctx, "AutoMigrate forced in a production-like environment", slog.String("env", cfg.Env))
		}
		log.InfoContext(ctx, "running AutoMigrate", slog.String("mode", plan.mode), slog.String("env", cfg.Env))
		if err := AutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	if missing := missingGuards(ctx, db); len(missing) > 0 {
		return fmt.Errorf("schema is missing unique indexes: %s", strings.Join(missing, ", "))
	}
	return nil
}

// missingGuards lists uniqueness guard indexes absent from the database.
func missingGuards(ctx context.Context, db *gorm.DB) []string {
	m := db.WithContext(ctx).Migrator()
	var missing []string
	for _, g := range uniqueGuards {
		if !m.HasIndex(g.model, g.name) {
			missing = append(missing, g.name)
		}
	}
	return missing
}

// GetSchemaStatus reports the schema policy, applied and pending migrations,
// and any missing uniqueness guards.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.runSQL,
		WillRunAutoMigrate: plan.runAuto,
		MissingGuards:      missingGuards(ctx, db),
	}
	if !plan.runSQL {
		return status, nil
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = appliedVersions(applied)
	for _, m := range GetMigrations() {
		if _, ok := applied[m.Version]; !ok {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
