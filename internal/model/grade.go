package model

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultMaxScore is used when a grade is recorded without an explicit maximum.
const DefaultMaxScore = 100.0

// DateLayout is the wire format of Grade.DateTaken.
const DateLayout = "2006-01-02"

// Grade is one scored assessment of a student in a subject. It only carries
// the foreign keys; names are resolved through GradeView or an id index.
type Grade struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	StudentID uint           `gorm:"not null;index" json:"student_id"`
	SubjectID uint           `gorm:"not null;index" json:"subject_id"`
	Score     float64        `gorm:"not null" json:"score"`
	MaxScore  float64        `gorm:"not null;default:100" json:"max_score"`
	DateTaken datatypes.Date `gorm:"index" json:"date_taken"`
	Note      *string        `json:"note"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// GradeView is a grade joined with the names of its student and subject.
type GradeView struct {
	Grade
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	SubjectName string `json:"subject_name"`
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return datatypes.Date{}, err
	}
	return datatypes.Date(t), nil
}

// Today returns the current UTC date.
func Today() datatypes.Date {
	now := time.Now().UTC()
	return datatypes.Date(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
}
