package models

import "time"

type UserQuota struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	PlanID         string    `gorm:"type:varchar(20);default:free" json:"plan_id"`
	StorageUsed    int64     `gorm:"default:0" json:"storage_used"`
	StorageLimit   int64     `gorm:"not null" json:"storage_limit"`
	FileCount      int64     `gorm:"default:0" json:"file_count"`
	FileCountLimit int64     `gorm:"not null" json:"file_count_limit"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
