// Package models contains data structures for the application's domain models.
package models

import "time"

// Role is the authorization role stored on a profile.
type Role string

const (
	// RoleAdmin may publish directly and moderate the queue.
	RoleAdmin Role = "admin"
	// RoleUser submits posts for approval.
	RoleUser Role = "user"
)

// Profile is the account record: credentials plus public name and role.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FullName  string    `gorm:"size:120;not null" json:"full_name"`
	Role      Role      `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// PublicProfile is what other users may see of a profile. Email stays with
// the owner and the moderation queue.
type PublicProfile struct {
	ID        uint      `json:"id"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the view of p safe to show to other users.
func (p *Profile) Public() *PublicProfile {
	return &PublicProfile{ID: p.ID, FullName: p.FullName, Role: p.Role, CreatedAt: p.CreatedAt}
}
