package models

import "time"

// Share covers both targeted grants (SharedWithEmail set) and public links
// (PublicToken set, SharedWithEmail empty). At most one private share may
// exist per (file_id, shared_with_email) pair; that rule is checked
// explicitly before insert rather than encoded as a composite index, since
// the empty-email sentinel of public links would collide there.
type Share struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID          uint       `gorm:"not null;index" json:"file_id"`
	OwnerID         uint       `gorm:"not null;index" json:"owner_id"`
	SharedWithEmail string     `gorm:"type:varchar(255);index" json:"shared_with_email"`
	Permissions     string     `gorm:"type:varchar(10);not null" json:"permissions"`
	ShareType       string     `gorm:"type:varchar(10);not null" json:"share_type"`
	PublicToken     *string    `gorm:"type:varchar(64);uniqueIndex" json:"public_token,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`

	File File `gorm:"foreignKey:FileID" json:"file,omitempty"`
}

const (
	ShareTypePrivate = "private"
	ShareTypePublic  = "public"

	PermissionView  = "view"
	PermissionEdit  = "edit"
	PermissionAdmin = "admin"
)
