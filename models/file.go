package models

import "time"

// File is a node in the per-user tree. Folders carry Size 0 and no blob;
// ParentID nil means the node sits at the root. Trash state lives on the row
// itself so trashed nodes stay listable and restorable.
type File struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	Name          string     `gorm:"type:varchar(255);not null" json:"name"`
	OriginalName  string     `gorm:"type:varchar(255);not null" json:"original_name"`
	Size          int64      `gorm:"default:0" json:"size"`
	MimeType      string     `gorm:"type:varchar(100)" json:"mime_type"`
	Extension     string     `gorm:"type:varchar(20)" json:"extension"`
	StoragePath   string     `gorm:"type:varchar(1000)" json:"storage_path"`
	ThumbnailPath string     `gorm:"type:varchar(1000)" json:"thumbnail_path,omitempty"`
	ParentID      *uint      `gorm:"index" json:"parent_id"`
	IsFolder      bool       `gorm:"default:false;index" json:"is_folder"`
	IsStarred     bool       `gorm:"default:false;index" json:"is_starred"`
	IsDeleted     bool       `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
