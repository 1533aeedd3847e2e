package model

import "time"

type Customer struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	ContactNumber string    `gorm:"type:varchar(30);not null;default:''" json:"contact_number"`
	Preferences   string    `gorm:"type:text;not null;default:''" json:"preferences"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
