package service

import (
	"context"

	"academictracker/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type SubjectInput struct {
	Name string  `json:"name" validate:"required"`
	Code *string `json:"code"`
}

type SubjectService struct {
	db *gorm.DB
}

func NewSubjectService(db *gorm.DB) *SubjectService {
	return &SubjectService{db: db}
}

// List returns the subject catalog ordered by name.
func (s *SubjectService) List(ctx context.Context) ([]model.Subject, error) {
	var subjects []model.Subject
	if err := s.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&subjects).Error; err != nil {
		return nil, errors.Wrap(err, "list subjects")
	}
	return subjects, nil
}

func (s *SubjectService) Get(ctx context.Context, id uint) (model.Subject, error) {
	var subject model.Subject
	err := s.db.WithContext(ctx).First(&subject, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Subject{}, ErrSubjectNotFound
	}
	if err != nil {
		return model.Subject{}, errors.Wrapf(err, "get subject %d", id)
	}
	return subject, nil
}

func (s *SubjectService) Create(ctx context.Context, in SubjectInput) (model.Subject, error) {
	subject := model.Subject{Name: in.Name, Code: optional(in.Code)}
	if err := s.checkCodeUniqueness(ctx, subject.Code, 0); err != nil {
		return model.Subject{}, err
	}
	if err := s.db.WithContext(ctx).Create(&subject).Error; err != nil {
		return model.Subject{}, translateSubjectErr(err, "create subject")
	}
	return subject, nil
}

func (s *SubjectService) Update(ctx context.Context, id uint, in SubjectInput) (model.Subject, error) {
	subject, err := s.Get(ctx, id)
	if err != nil {
		return model.Subject{}, err
	}
	subject.Name = in.Name
	subject.Code = optional(in.Code)
	if err := s.checkCodeUniqueness(ctx, subject.Code, id); err != nil {
		return model.Subject{}, err
	}
	err = s.db.WithContext(ctx).Model(&subject).
		Select("name", "code", "updated_at").
		Updates(&subject).Error
	if err != nil {
		return model.Subject{}, translateSubjectErr(err, "update subject")
	}
	return subject, nil
}

// Delete removes the subject together with its grades.
func (s *SubjectService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subject_id = ?", id).Delete(&model.Grade{}).Error; err != nil {
			return errors.Wrapf(err, "delete grades of subject %d", id)
		}
		res := tx.Delete(&model.Subject{}, id)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete subject %d", id)
		}
		if res.RowsAffected == 0 {
			return ErrSubjectNotFound
		}
		return nil
	})
}

func (s *SubjectService) checkCodeUniqueness(ctx context.Context, code *string, excludedID uint) error {
	if code == nil {
		return nil
	}
	var count int64
	q := s.db.WithContext(ctx).Model(&model.Subject{}).Where("code = ?", *code)
	if excludedID != 0 {
		q = q.Where("id <> ?", excludedID)
	}
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "check subject code")
	}
	if count > 0 {
		return ErrSubjectCodeTaken
	}
	return nil
}

func translateSubjectErr(err error, op string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSubjectCodeTaken
	}
	return errors.Wrap(err, op)
}
