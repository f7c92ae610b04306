package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

// Seed inserts two students, two subjects and their grades through the
// regular services, so the same defaults and checks apply.
func Seed(ctx context.Context, db *gorm.DB) error {
	students := NewStudentService(db)
	subjects := NewSubjectService(db)
	grades := NewGradeService(db)

	ana, err := students.Create(ctx, StudentInput{FirstName: "Ana", LastName: "Lopez", GradeLevel: strPtr("10")})
	if err != nil {
		return errors.Wrap(err, "seed students")
	}
	juan, err := students.Create(ctx, StudentInput{FirstName: "Juan", LastName: "Perez", GradeLevel: strPtr("10")})
	if err != nil {
		return errors.Wrap(err, "seed students")
	}
	maths, err := subjects.Create(ctx, SubjectInput{Name: "Mathematics", Code: strPtr("MATH")})
	if err != nil {
		return errors.Wrap(err, "seed subjects")
	}
	lang, err := subjects.Create(ctx, SubjectInput{Name: "Language", Code: strPtr("LANG")})
	if err != nil {
		return errors.Wrap(err, "seed subjects")
	}

	for _, in := range []GradeInput{
		{StudentID: ana.ID, SubjectID: maths.ID, Score: floatPtr(85), DateTaken: strPtr("2025-10-01"), Note: strPtr("exam")},
		{StudentID: ana.ID, SubjectID: lang.ID, Score: floatPtr(70), DateTaken: strPtr("2025-10-05"), Note: strPtr("task")},
		{StudentID: juan.ID, SubjectID: maths.ID, Score: floatPtr(50), DateTaken: strPtr("2025-10-01"), Note: strPtr("exam")},
		{StudentID: juan.ID, SubjectID: lang.ID, Score: floatPtr(62), DateTaken: strPtr("2025-10-05"), Note: strPtr("task")},
	} {
		if _, err := grades.Create(ctx, in); err != nil {
			return errors.Wrap(err, "seed grades")
		}
	}
	return nil
}
