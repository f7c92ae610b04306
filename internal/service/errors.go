package service

import "github.com/pkg/errors"

var (
	ErrStudentNotFound  = errors.New("student not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrGradeNotFound    = errors.New("grade not found")
	ErrSubjectCodeTaken = errors.New("a subject with this code already exists")

	ErrAnalysisDisabled = errors.New("analysis service is not configured")
	ErrAnalysisUpstream = errors.New("analysis service error")
)

// optional maps blank strings to nil.
func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
