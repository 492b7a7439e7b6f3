package models

import "time"

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255)" json:"-"`
	Name      string    `gorm:"type:varchar(100)" json:"name"`
	Avatar    string    `gorm:"type:varchar(500)" json:"avatar"`
	Provider  string    `gorm:"type:varchar(20);default:local" json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
