package models

import "time"

// NotificationStatus tracks whether the recipient has opened the notifications view.
type NotificationStatus string

const (
	// NotificationStatusUnread is the initial state of every notification.
	NotificationStatusUnread NotificationStatus = "unread"
	// NotificationStatusRead is set in bulk when the recipient opens the list.
	NotificationStatusRead NotificationStatus = "read"
)

// Notification is one recorded message for one recipient.
type Notification struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	UserID    uint               `gorm:"not null;index:idx_notifications_user_status" json:"user_id"`
	Message   string             `gorm:"type:text;not null" json:"message"`
	Status    NotificationStatus `gorm:"type:varchar(10);not null;default:'unread';index:idx_notifications_user_status" json:"status"`
	CreatedAt time.Time          `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// NotificationPage is a page of notifications plus the recipient's unread total.
type NotificationPage struct {
	Items       []Notification `json:"items"`
	UnreadCount int64          `json:"unread_count"`
}
