// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"isintu/internal/database"
	"isintu/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// readDB routes pure reads to the replica when the repository is bound to
// the primary pool. Repositories bound to a transaction keep reading through it.
func readDB(db *gorm.DB) *gorm.DB {
	if db == nil || db != database.DB {
		return db
	}
	if replica := database.GetReadDB(); replica != nil {
		return replica
	}
	return db
}

// isUniqueViolation checks if a DB error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// notFoundOr maps gorm.ErrRecordNotFound to a NOT_FOUND error for resource
// and anything else to INTERNAL_ERROR.
func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
