package model

import "time"

type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Code      *string   `gorm:"uniqueIndex" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Grades []Grade `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
