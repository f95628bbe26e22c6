package repository

import (
	"context"

	"isintu/internal/models"
	"isintu/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowerRepository defines the interface for follow relationships
type FollowerRepository interface {
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	Insert(ctx context.Context, followerID, followedID uint) (bool, error)
	Delete(ctx context.Context, followerID, followedID uint) (bool, error)
	DeleteByID(ctx context.Context, rowID, followedID uint) (bool, error)
	ListFollowers(ctx context.Context, followedID uint) ([]models.FollowerProfile, error)
	CountFollowers(ctx context.Context, followedID uint) (int64, error)
}

type followerRepository struct {
	db *gorm.DB
}

// NewFollowerRepository returns a FollowerRepository bound to db.
func NewFollowerRepository(db *gorm.DB) FollowerRepository {
	return &followerRepository{db: db}
}

func (r *followerRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	defer observability.TrackQuery("select", "followers")()
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follower{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Insert adds the pair and reports false when it already existed.
func (r *followerRepository) Insert(ctx context.Context, followerID, followedID uint) (bool, error) {
	defer observability.TrackQuery("insert", "followers")()
	row := models.Follower{FollowerID: followerID, FollowedID: followedID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followerRepository) Delete(ctx context.Context, followerID, followedID uint) (bool, error) {
	defer observability.TrackQuery("delete", "followers")()
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follower{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteByID removes a follower row by id, but only from followedID's own followers.
func (r *followerRepository) DeleteByID(ctx context.Context, rowID, followedID uint) (bool, error) {
	defer observability.TrackQuery("delete", "followers")()
	res := r.db.WithContext(ctx).
		Where("id = ? AND followed_id = ?", rowID, followedID).
		Delete(&models.Follower{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

const unknownFollowerName = "Unknown"

// ListFollowers returns followedID's followers, most recent first.
func (r *followerRepository) ListFollowers(ctx context.Context, followedID uint) ([]models.FollowerProfile, error) {
	defer observability.TrackQuery("select", "followers")()
	rows := []models.FollowerProfile{}
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Follower{}).
		Select("followers.id, followers.follower_id, COALESCE(profiles.full_name, ?) AS full_name, followers.created_at", unknownFollowerName).
		Joins("LEFT JOIN profiles ON profiles.id = followers.follower_id").
		Where("followers.followed_id = ?", followedID).
		Order("followers.created_at DESC, followers.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *followerRepository) CountFollowers(ctx context.Context, followedID uint) (int64, error) {
	defer observability.TrackQuery("count", "followers")()
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Follower{}).
		Where("followed_id = ?", followedID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
