package service

import (
	"context"

	"academictracker/internal/analysis"
	"academictracker/internal/metrics"
	"academictracker/internal/model"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// AnalysisService reads a snapshot of the record store and hands it to the
// analysis package.
type AnalysisService struct {
	db *gorm.DB
}

func NewAnalysisService(db *gorm.DB) *AnalysisService {
	return &AnalysisService{db: db}
}

// Summary computes the report over every student and subject. The three reads
// share one transaction so the snapshot is consistent where the driver allows.
func (s *AnalysisService) Summary(ctx context.Context, opts analysis.Options) (analysis.Report, error) {
	if err := opts.Validate(); err != nil {
		return analysis.Report{}, err
	}
	timer := prometheus.NewTimer(metrics.ReportDuration.WithLabelValues("summary"))
	defer timer.ObserveDuration()

	var (
		students []model.Student
		subjects []model.Subject
		grades   []model.Grade
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id ASC").Find(&students).Error; err != nil {
			return errors.Wrap(err, "load students")
		}
		if err := tx.Order("id ASC").Find(&subjects).Error; err != nil {
			return errors.Wrap(err, "load subjects")
		}
		if err := tx.Order("id ASC").Find(&grades).Error; err != nil {
			return errors.Wrap(err, "load grades")
		}
		return nil
	})
	if err != nil {
		return analysis.Report{}, err
	}
	return analysis.ComputeReport(students, subjects, grades, opts), nil
}

// StudentSummary computes the summary of a single student.
func (s *AnalysisService) StudentSummary(ctx context.Context, studentID uint, opts analysis.Options) (analysis.StudentSummary, error) {
	if err := opts.Validate(); err != nil {
		return analysis.StudentSummary{}, err
	}
	timer := prometheus.NewTimer(metrics.ReportDuration.WithLabelValues("student"))
	defer timer.ObserveDuration()

	var (
		student  model.Student
		subjects []model.Subject
		grades   []model.Grade
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&student, studentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		if err != nil {
			return errors.Wrapf(err, "load student %d", studentID)
		}
		if err := tx.Order("id ASC").Find(&subjects).Error; err != nil {
			return errors.Wrap(err, "load subjects")
		}
		if err := tx.Where("student_id = ?", studentID).Order("id ASC").Find(&grades).Error; err != nil {
			return errors.Wrap(err, "load grades")
		}
		return nil
	})
	if err != nil {
		return analysis.StudentSummary{}, err
	}
	return analysis.SummarizeStudent(student, grades, subjects, opts), nil
}

func (s *AnalysisService) Charts(ctx context.Context, opts analysis.Options) (analysis.Charts, error) {
	report, err := s.Summary(ctx, opts)
	if err != nil {
		return analysis.Charts{}, err
	}
	return analysis.BuildCharts(report), nil
}
