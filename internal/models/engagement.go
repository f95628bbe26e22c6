package models

import "time"

// PostLike records that a user likes a post. At most one row per pair.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (PostLike) TableName() string {
	return "post_likes"
}

// Follower records that FollowerID follows FollowedID. At most one row per pair.
type Follower struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_followers_pair" json:"follower_id"`
	FollowedID uint      `gorm:"not null;uniqueIndex:idx_followers_pair;index" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follower) TableName() string {
	return "followers"
}

// FollowResult is the outcome of a follow attempt.
type FollowResult string

const (
	// FollowResultFollowed means a new follower row was written.
	FollowResultFollowed FollowResult = "followed"
	// FollowResultAlreadyFollowing means the pair already existed.
	FollowResultAlreadyFollowing FollowResult = "already_following"
)

// FollowerProfile is a follower row joined with the follower's public name.
// FullName is "Unknown" when the follower's profile no longer exists.
type FollowerProfile struct {
	ID         uint      `json:"id"`
	FollowerID uint      `json:"follower_id"`
	FullName   string    `json:"full_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Liker is one entry of a post's likes list.
type Liker struct {
	UserID   uint   `json:"user_id"`
	FullName string `json:"full_name"`
}

// LikeToggle is the result of toggling a post like.
type LikeToggle struct {
	PostID    uint `json:"post_id"`
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}
