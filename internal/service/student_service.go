package service

import (
	"context"
	"encoding/json"

	"academictracker/internal/model"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StudentInput is the full record accepted by Create and Update.
type StudentInput struct {
	FirstName  string                 `json:"first_name" validate:"required"`
	LastName   string                 `json:"last_name" validate:"required"`
	Identifier *string                `json:"identifier"`
	GradeLevel *string                `json:"grade_level"`
	Extra      map[string]interface{} `json:"extra"`
}

type StudentService struct {
	db *gorm.DB
}

func NewStudentService(db *gorm.DB) *StudentService {
	return &StudentService{db: db}
}

// List returns every student, newest first.
func (s *StudentService) List(ctx context.Context) ([]model.Student, error) {
	var students []model.Student
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&students).Error; err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	return students, nil
}

func (s *StudentService) Get(ctx context.Context, id uint) (model.Student, error) {
	var student model.Student
	err := s.db.WithContext(ctx).First(&student, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Student{}, ErrStudentNotFound
	}
	if err != nil {
		return model.Student{}, errors.Wrapf(err, "get student %d", id)
	}
	return student, nil
}

func (s *StudentService) Create(ctx context.Context, in StudentInput) (model.Student, error) {
	student := model.Student{}
	if err := in.apply(&student); err != nil {
		return model.Student{}, err
	}
	if err := s.db.WithContext(ctx).Create(&student).Error; err != nil {
		return model.Student{}, errors.Wrap(err, "create student")
	}
	return student, nil
}

// Update replaces every mutable field of the student.
func (s *StudentService) Update(ctx context.Context, id uint, in StudentInput) (model.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return model.Student{}, err
	}
	if err := in.apply(&student); err != nil {
		return model.Student{}, err
	}
	err = s.db.WithContext(ctx).Model(&student).
		Select("first_name", "last_name", "identifier", "grade_level", "extra", "updated_at").
		Updates(&student).Error
	if err != nil {
		return model.Student{}, errors.Wrapf(err, "update student %d", id)
	}
	return student, nil
}

// Delete removes the student together with its grades.
func (s *StudentService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", id).Delete(&model.Grade{}).Error; err != nil {
			return errors.Wrapf(err, "delete grades of student %d", id)
		}
		res := tx.Delete(&model.Student{}, id)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete student %d", id)
		}
		if res.RowsAffected == 0 {
			return ErrStudentNotFound
		}
		return nil
	})
}

func (in StudentInput) apply(student *model.Student) error {
	student.FirstName = in.FirstName
	student.LastName = in.LastName
	student.Identifier = optional(in.Identifier)
	student.GradeLevel = optional(in.GradeLevel)
	student.Extra = nil
	if in.Extra != nil {
		raw, err := json.Marshal(in.Extra)
		if err != nil {
			return errors.Wrap(err, "encode student extra")
		}
		student.Extra = datatypes.JSON(raw)
	}
	return nil
}
