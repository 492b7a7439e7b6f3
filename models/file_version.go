package models

import "time"

// FileVersion rows are immutable once written. The unique index on
// (file_id, version_number) is the storage-layer backstop for the
// read-max-then-insert numbering done in the service layer.
type FileVersion struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID        uint      `gorm:"not null;uniqueIndex:idx_file_version,priority:1" json:"file_id"`
	VersionNumber int       `gorm:"not null;uniqueIndex:idx_file_version,priority:2" json:"version_number"`
	Size          int64     `gorm:"not null" json:"size"`
	StoragePath   string    `gorm:"type:varchar(1000);not null" json:"storage_path"`
	MimeType      string    `gorm:"type:varchar(100)" json:"mime_type"`
	ChangeType    string    `gorm:"type:varchar(10);not null" json:"change_type"`
	CreatorID     uint      `gorm:"not null" json:"creator_id"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	ChangeTypeUpdate  = "update"
	ChangeTypeRestore = "restore"
)
