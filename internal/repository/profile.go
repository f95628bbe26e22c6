package repository

import (
	"context"
	"errors"

	"isintu/internal/cache"
	"isintu/internal/models"
	"isintu/internal/observability"

	"gorm.io/gorm"
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetFirstAdmin(ctx context.Context) (*models.Profile, error)
	UpdateFullName(ctx context.Context, id uint, fullName string) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	UpdateRole(ctx context.Context, id uint, role models.Role) error
	ListIDs(ctx context.Context) ([]uint, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a ProfileRepository bound to db, which may be a transaction.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	defer observability.TrackQuery("insert", "profiles")()
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("An account with this email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	defer observability.TrackQuery("select", "profiles")()
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, notFoundOr(err, "Profile", id)
	}
	return &profile, nil
}

// GetByEmail returns (nil, nil) when no profile has the email.
func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	defer observability.TrackQuery("select", "profiles")()
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

// GetFirstAdmin returns the oldest admin profile.
func (r *profileRepository) GetFirstAdmin(ctx context.Context) (*models.Profile, error) {
	defer observability.TrackQuery("select", "profiles")()
	var profile models.Profile
	err := readDB(r.db).WithContext(ctx).
		Where("role = ?", models.RoleAdmin).
		Order("id ASC").
		First(&profile).Error
	if err != nil {
		return nil, notFoundOr(err, "Profile", "admin")
	}
	return &profile, nil
}

func (r *profileRepository) UpdateFullName(ctx context.Context, id uint, fullName string) error {
	return r.update(ctx, id, map[string]interface{}{"full_name": fullName})
}

func (r *profileRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.update(ctx, id, map[string]interface{}{"password": passwordHash})
}

func (r *profileRepository) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	return r.update(ctx, id, map[string]interface{}{"role": role})
}

func (r *profileRepository) update(ctx context.Context, id uint, fields map[string]interface{}) error {
	defer observability.TrackQuery("update", "profiles")()
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", id)
	}
	cache.InvalidateProfile(ctx, id)
	return nil
}

// ListIDs returns every profile id in ascending order.
func (r *profileRepository) ListIDs(ctx context.Context) ([]uint, error) {
	defer observability.TrackQuery("select", "profiles")()
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
