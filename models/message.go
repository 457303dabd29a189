package models

import "time"

// Message is a short note from the admin to a staff member.
type Message struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Content   string `gorm:"type:text;not null"`
	StaffID   uint   `gorm:"index;not null"`
	Staff     User   `gorm:"foreignKey:StaffID;references:ID"`
	IsRead    bool   `gorm:"default:false"`
}
