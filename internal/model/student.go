package model

import (
	"time"

	"gorm.io/datatypes"
)

type Student struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	FirstName  string         `gorm:"not null" json:"first_name"`
	LastName   string         `gorm:"not null" json:"last_name"`
	Identifier *string        `json:"identifier"`
	GradeLevel *string        `json:"grade_level"`
	Extra      datatypes.JSON `json:"extra"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	// Grades exists only so the migrator creates the cascading foreign key.
	Grades []Grade `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
