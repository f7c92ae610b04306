package service_test

import (
	"context"
	"testing"
	"time"

	"academictracker/internal/model"
	"academictracker/internal/service"
	"academictracker/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gradeFixture struct {
	grades   *service.GradeService
	ana      model.Student
	juan     model.Student
	math     model.Subject
	language model.Subject
}

func newGradeFixture(t *testing.T) gradeFixture {
	t.Helper()
	ctx := context.Background()
	db := setupTestDB(t)
	students := service.NewStudentService(db)
	subjects := service.NewSubjectService(db)

	f := gradeFixture{grades: service.NewGradeService(db)}
	var err error
	f.ana, err = students.Create(ctx, service.StudentInput{FirstName: "Ana", LastName: "Lopez"})
	require.NoError(t, err)
	f.juan, err = students.Create(ctx, service.StudentInput{FirstName: "Juan", LastName: "Perez"})
	require.NoError(t, err)
	f.math, err = subjects.Create(ctx, service.SubjectInput{Name: "Mathematics"})
	require.NoError(t, err)
	f.language, err = subjects.Create(ctx, service.SubjectInput{Name: "Language"})
	require.NoError(t, err)
	return f
}

func dateOf(g model.GradeView) string {
	return time.Time(g.DateTaken).Format(model.DateLayout)
}

func TestGradeCreateDefaults(t *testing.T) {
	ctx := context.Background()
	f := newGradeFixture(t)

	view, err := f.grades.Create(ctx, service.GradeInput{StudentID: f.ana.ID, SubjectID: f.math.ID, Score: floatPtr(85)})
	require.NoError(t, err)

	assert.Equal(t, 85.0, view.Score)
	assert.Equal(t, model.DefaultMaxScore, view.MaxScore)
	assert.Equal(t, time.Time(model.Today()).Format(model.DateLayout), dateOf(view))
	assert.Nil(t, view.Note)
	assert.Equal(t, "Ana", view.FirstName)
	assert.Equal(t, "Lopez", view.LastName)
	assert.Equal(t, "Mathematics", view.SubjectName)
}

func TestGradeCreateRejectsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	f := newGradeFixture(t)

	tests := []struct {
		name      string
		in        service.GradeInput
		wantField string
		wantErr   error
	}{
		{"unknown student", service.GradeInput{StudentID: 999, SubjectID: f.math.ID, Score: floatPtr(10)}, "student_id", service.ErrStudentNotFound},
		{"unknown subject", service.GradeInput{StudentID: f.ana.ID, SubjectID: 999, Score: floatPtr(10)}, "subject_id", service.ErrSubjectNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.grades.Create(ctx, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var verr *validation.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
		})
	}

	all, err := f.grades.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGradeListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	f := newGradeFixture(t)

	inputs := []service.GradeInput{
		{StudentID: f.ana.ID, SubjectID: f.math.ID, Score: floatPtr(85), DateTaken: strPtr("2025-10-01")},
		{StudentID: f.ana.ID, SubjectID: f.language.ID, Score: floatPtr(7), MaxScore: floatPtr(10), DateTaken: strPtr("2025-10-05")},
		{StudentID: f.juan.ID, SubjectID: f.math.ID, Score: floatPtr(50), DateTaken: strPtr("2025-10-01")},
		{StudentID: f.juan.ID, SubjectID: f.language.ID, Score: floatPtr(62), DateTaken: strPtr("2025-09-20"), Note: strPtr("task")},
	}
	ids := make([]uint, 0, len(inputs))
	for _, in := range inputs {
		view, err := f.grades.Create(ctx, in)
		require.NoError(t, err)
		ids = append(ids, view.ID)
	}

	tests := []struct {
		name    string
		filter  service.GradeFilter
		wantIDs []uint
	}{
		{"all, newest date first then id", service.GradeFilter{}, []uint{ids[1], ids[2], ids[0], ids[3]}},
		{"by student", service.GradeFilter{StudentID: f.juan.ID}, []uint{ids[2], ids[3]}},
		{"by subject", service.GradeFilter{SubjectID: f.math.ID}, []uint{ids[2], ids[0]}},
		{"by student and subject", service.GradeFilter{StudentID: f.ana.ID, SubjectID: f.language.ID}, []uint{ids[1]}},
		{"no match", service.GradeFilter{StudentID: 999}, []uint{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := f.grades.List(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]uint, 0, len(views))
			for _, v := range views {
				got = append(got, v.ID)
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}

	forJuan, err := f.grades.ListForStudent(ctx, f.juan.ID)
	require.NoError(t, err)
	assert.Len(t, forJuan, 2)
}

func TestGradeUpdate(t *testing.T) {
	ctx := context.Background()
	f := newGradeFixture(t)

	created, err := f.grades.Create(ctx, service.GradeInput{
		StudentID: f.ana.ID,
		SubjectID: f.math.ID,
		Score:     floatPtr(8),
		MaxScore:  floatPtr(10),
		DateTaken: strPtr("2025-10-01"),
		Note:      strPtr("quiz"),
	})
	require.NoError(t, err)

	updated, err := f.grades.Update(ctx, created.ID, service.GradeUpdate{Score: floatPtr(9), MaxScore: floatPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, 9.0, updated.Score)
	assert.Equal(t, "2025-10-01", dateOf(updated), "date is kept when none is sent")
	assert.Nil(t, updated.Note)
	assert.Equal(t, f.ana.ID, updated.StudentID)

	updated, err = f.grades.Update(ctx, created.ID, service.GradeUpdate{Score: floatPtr(70), DateTaken: strPtr("2025-11-02")})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMaxScore, updated.MaxScore)
	assert.Equal(t, "2025-11-02", dateOf(updated))

	_, err = f.grades.Update(ctx, 999, service.GradeUpdate{Score: floatPtr(1)})
	assert.ErrorIs(t, err, service.ErrGradeNotFound)
}

func TestGradeDelete(t *testing.T) {
	ctx := context.Background()
	f := newGradeFixture(t)

	created, err := f.grades.Create(ctx, service.GradeInput{StudentID: f.juan.ID, SubjectID: f.math.ID, Score: floatPtr(50)})
	require.NoError(t, err)

	require.NoError(t, f.grades.Delete(ctx, created.ID))
	_, err = f.grades.Get(ctx, created.ID)
	assert.ErrorIs(t, err, service.ErrGradeNotFound)
	assert.ErrorIs(t, f.grades.Delete(ctx, created.ID), service.ErrGradeNotFound)
}
