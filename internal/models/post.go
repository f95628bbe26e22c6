package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PostStatus is the moderation state of a post.
type PostStatus string

const (
	// PostStatusPending marks a post waiting in the moderation queue.
	PostStatusPending PostStatus = "pending"
	// PostStatusPublished marks a post visible in the feed.
	PostStatusPublished PostStatus = "published"
)

// StringList is an ordered list of strings stored as a JSON array column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported StringList source %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// Post is a blog entry. Image and Video hold object-storage paths.
type Post struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Text      string     `gorm:"type:text;not null" json:"text"`
	Image     StringList `gorm:"type:text;not null;default:'[]'" json:"image"`
	Video     StringList `gorm:"type:text;not null;default:'[]'" json:"video"`
	Status    PostStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	LikeCount int        `gorm:"not null;default:0" json:"like_count"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// IsPublished reports whether the post is visible in the feed.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// PostAggregate is a feed row: the post with live engagement counts.
type PostAggregate struct {
	Post
	// CommentCount is not persisted; computed at query time
	CommentCount int `gorm:"->" json:"comment_count"`
	// Liked is true when the requesting user has a like row for the post
	Liked      bool   `gorm:"->" json:"liked"`
	AuthorName string `gorm:"->" json:"author_name"`
}

// PendingPost is a moderation queue row joined with the submitter's profile.
type PendingPost struct {
	Post
	FullName string `gorm:"->" json:"full_name"`
	Email    string `gorm:"->" json:"email"`
}
