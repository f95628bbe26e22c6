package models

import "time"

// Comment is a top-level response on a post. FullName is a snapshot of the
// author's name when the comment was written.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	FullName  string    `gorm:"size:120;not null" json:"full_name"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

// Reply answers a comment. Replies only reference a comment, so threads are
// one level deep.
type Reply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;index" json:"comment_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	FullName  string    `gorm:"size:120;not null" json:"full_name"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Reply) TableName() string {
	return "replies"
}

// CommentThread is a comment with its replies, oldest first.
type CommentThread struct {
	Comment
	Replies []Reply `json:"replies"`
}
