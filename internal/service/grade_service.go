package service

import (
	"context"
	"math"
	"time"

	"academictracker/internal/model"
	"academictracker/internal/validation"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type GradeInput struct {
	StudentID uint     `json:"student_id" validate:"required"`
	SubjectID uint     `json:"subject_id" validate:"required"`
	Score     *float64 `json:"score" validate:"required"`
	MaxScore  *float64 `json:"max_score" validate:"omitempty,gt=0"`
	DateTaken *string  `json:"date_taken" validate:"omitempty,date"`
	Note      *string  `json:"note"`
}

// GradeUpdate carries the mutable fields of a grade; its references are fixed.
type GradeUpdate struct {
	Score     *float64 `json:"score" validate:"required"`
	MaxScore  *float64 `json:"max_score" validate:"omitempty,gt=0"`
	DateTaken *string  `json:"date_taken" validate:"omitempty,date"`
	Note      *string  `json:"note"`
}

// GradeFilter narrows List; zero fields are ignored.
type GradeFilter struct {
	StudentID uint
	SubjectID uint
}

type GradeService struct {
	db *gorm.DB
}

func NewGradeService(db *gorm.DB) *GradeService {
	return &GradeService{db: db}
}

// List returns grades joined with student and subject names, most recent first.
func (s *GradeService) List(ctx context.Context, filter GradeFilter) ([]model.GradeView, error) {
	views := []model.GradeView{}
	dbQuery := s.viewQuery(ctx)

	// Apply filters
	if filter.StudentID != 0 {
		dbQuery = dbQuery.Where("grades.student_id = ?", filter.StudentID)
	}
	if filter.SubjectID != 0 {
		dbQuery = dbQuery.Where("grades.subject_id = ?", filter.SubjectID)
	}

	err := dbQuery.Order("grades.date_taken DESC").Order("grades.id DESC").Scan(&views).Error
	if err != nil {
		return nil, errors.Wrap(err, "list grades")
	}
	return views, nil
}

func (s *GradeService) Get(ctx context.Context, id uint) (model.GradeView, error) {
	var views []model.GradeView
	if err := s.viewQuery(ctx).Where("grades.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return model.GradeView{}, errors.Wrapf(err, "get grade %d", id)
	}
	if len(views) == 0 {
		return model.GradeView{}, ErrGradeNotFound
	}
	return views[0], nil
}

// ListAll returns every grade without joins, for aggregation.
func (s *GradeService) ListAll(ctx context.Context) ([]model.Grade, error) {
	var grades []model.Grade
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&grades).Error; err != nil {
		return nil, errors.Wrap(err, "list all grades")
	}
	return grades, nil
}

// ListForStudent returns the grades of one student.
func (s *GradeService) ListForStudent(ctx context.Context, studentID uint) ([]model.Grade, error) {
	var grades []model.Grade
	err := s.db.WithContext(ctx).Where("student_id = ?", studentID).Order("id ASC").Find(&grades).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list grades of student %d", studentID)
	}
	return grades, nil
}

// Create records a grade after checking that its student and subject exist.
// MaxScore defaults to 100 and DateTaken to today. Update keeps the recorded
// date when none is sent.
func (s *GradeService) Create(ctx context.Context, in GradeInput) (model.GradeView, error) {
	grade := model.Grade{StudentID: in.StudentID, SubjectID: in.SubjectID}
	upd := GradeUpdate{Score: in.Score, MaxScore: in.MaxScore, DateTaken: in.DateTaken, Note: in.Note}
	if err := upd.apply(&grade); err != nil {
		return model.GradeView{}, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, grade.StudentID, grade.SubjectID); err != nil {
			return referenceError(err)
		}
		if err := tx.Create(&grade).Error; err != nil {
			return errors.Wrap(err, "create grade")
		}
		return nil
	})
	if err != nil {
		return model.GradeView{}, err
	}
	return s.Get(ctx, grade.ID)
}

func (s *GradeService) Update(ctx context.Context, id uint, in GradeUpdate) (model.GradeView, error) {
	var grade model.Grade
	err := s.db.WithContext(ctx).First(&grade, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.GradeView{}, ErrGradeNotFound
	}
	if err != nil {
		return model.GradeView{}, errors.Wrapf(err, "get grade %d", id)
	}
	if err := in.apply(&grade); err != nil {
		return model.GradeView{}, err
	}
	err = s.db.WithContext(ctx).Model(&grade).
		Select("score", "max_score", "date_taken", "note", "updated_at").
		Updates(&grade).Error
	if err != nil {
		return model.GradeView{}, errors.Wrapf(err, "update grade %d", id)
	}
	return s.Get(ctx, id)
}

func (s *GradeService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Grade{}, id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete grade %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrGradeNotFound
	}
	return nil
}

func (s *GradeService) viewQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("grades").
		Select("grades.*, students.first_name, students.last_name, subjects.name AS subject_name").
		Joins("JOIN students ON students.id = grades.student_id").
		Joins("JOIN subjects ON subjects.id = grades.subject_id")
}

func checkReferences(tx *gorm.DB, studentID, subjectID uint) error {
	var count int64
	if err := tx.Model(&model.Student{}).Where("id = ?", studentID).Count(&count).Error; err != nil {
		return errors.Wrap(err, "check student")
	}
	if count == 0 {
		return ErrStudentNotFound
	}
	if err := tx.Model(&model.Subject{}).Where("id = ?", subjectID).Count(&count).Error; err != nil {
		return errors.Wrap(err, "check subject")
	}
	if count == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// referenceError reports a dangling reference against the offending field.
func referenceError(err error) error {
	var field string
	switch err {
	case ErrStudentNotFound:
		field = "student_id"
	case ErrSubjectNotFound:
		field = "subject_id"
	default:
		return err
	}
	return validation.NewValidationError(err, validation.FieldError{Field: field, Error: err.Error()})
}

func (in GradeUpdate) apply(grade *model.Grade) error {
	if in.Score == nil {
		return errors.New("score is required")
	}
	if math.IsNaN(*in.Score) || math.IsInf(*in.Score, 0) {
		return errors.New("score must be a finite number")
	}
	grade.Score = *in.Score
	grade.MaxScore = model.DefaultMaxScore
	if in.MaxScore != nil {
		if math.IsNaN(*in.MaxScore) || math.IsInf(*in.MaxScore, 0) || *in.MaxScore <= 0 {
			return errors.New("max_score must be a finite number greater than 0")
		}
		grade.MaxScore = *in.MaxScore
	}
	if in.DateTaken != nil && *in.DateTaken != "" {
		d, err := model.ParseDate(*in.DateTaken)
		if err != nil {
			return errors.Wrap(err, "parse date_taken")
		}
		grade.DateTaken = d
	} else if time.Time(grade.DateTaken).IsZero() {
		grade.DateTaken = model.Today()
	}
	grade.Note = optional(in.Note)
	return nil
}
