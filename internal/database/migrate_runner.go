package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"isintu/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one applied migration. Checksum is empty for rows written
// before checksums were recorded.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null;default:''"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// RunMigrations applies every pending embedded migration in version order.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return applyPending(ctx, db, migrations)
}

// RollbackMigration runs the down script of an applied migration and drops
// its log row in the same transaction.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return rollback(ctx, db, migrations, version)
}

func applyPending(ctx context.Context, db *gorm.DB, registered []Migration) error {
	if err := db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("ensure migration_logs: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(appliedVersions(applied), registered); err != nil {
		return err
	}

	for i := range registered {
		m := &registered[i]
		if sum, done := applied[m.Version]; done {
			if sum != "" && sum != m.Checksum() {
				middleware.Logger.WarnContext(ctx, "applied migration differs from the embedded script",
					slog.String("migration", m.String()))
			}
			continue
		}
		if err := applyOne(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// applyOne runs the script and records it in one transaction so a failed
// script leaves no log row behind.
func applyOne(ctx context.Context, db *gorm.DB, m *Migration) error {
	start := time.Now()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply migration %s: %w", m, err)
		}
		row := MigrationLog{Version: m.Version, Name: m.Name, Checksum: m.Checksum()}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", m, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "migration applied",
		slog.String("migration", m.String()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func rollback(ctx context.Context, db *gorm.DB, registered []Migration, version int) error {
	m := findMigration(registered, version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}
	if _, ok := applied[version]; !ok {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", m, err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "migration rolled back", slog.String("migration", m.String()))
	return nil
}

// appliedMigrations maps applied versions to their recorded checksum. A
// missing log table means nothing has been applied yet.
func appliedMigrations(ctx context.Context, db *gorm.DB) (map[int]string, error) {
	var rows []MigrationLog
	err := db.WithContext(ctx).Select("version", "checksum").Order("version ASC").Find(&rows).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isMissingTableError(err) {
			return map[int]string{}, nil
		}
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}

	out := make(map[int]string, len(rows))
	for _, r := range rows {
		out[r.Version] = r.Checksum
	}
	return out, nil
}

func appliedVersions(applied map[int]string) []int {
	versions := make([]int, 0, len(applied))
	for v := range applied {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// validateAppliedVersions refuses to run against a database migrated by a
// newer build.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, version := range applied {
		if findMigration(registered, version) == nil {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf(
		"migration_logs contains versions this build does not know: %s (roll them back with the newer build or reset the development database)",
		strings.Join(unknown, ", "),
	)
}
