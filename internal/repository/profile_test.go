package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"isintu/internal/models"
	"isintu/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func TestProfileRepository_CreateDuplicateEmailIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "profiles"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Profile{Email: "a@b.c", Password: "h", FullName: "A", Role: models.RoleUser})
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_GetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE "profiles"."id" = $1 ORDER BY "profiles"."id" LIMIT $2`)).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 5)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_GetByEmailMissingReturnsNil(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProfileRepository(db)

	p, err := repo.GetByEmail(context.Background(), "nobody@isintu.test")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProfileRepository_SQLiteUniqueEmail(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Profile{Email: "dup@isintu.test", Password: "h", FullName: "A", Role: models.RoleUser}))
	err := repo.Create(ctx, &models.Profile{Email: "dup@isintu.test", Password: "h", FullName: "B", Role: models.RoleUser})
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestProfileRepository_FirstAdminAndUpdates(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	testutil.CreateProfile(t, db, "User", models.RoleUser)
	admin := testutil.CreateProfile(t, db, "Root", models.RoleAdmin)
	testutil.CreateProfile(t, db, "Second Admin", models.RoleAdmin)

	got, err := repo.GetFirstAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	require.NoError(t, repo.UpdateFullName(ctx, admin.ID, "Renamed"))
	got, err = repo.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.FullName)

	err = repo.UpdatePassword(ctx, 9999, "x")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: profiles.email")))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}
