package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"academictracker/internal/analysis"
	"academictracker/internal/model"

	"github.com/pkg/errors"
)

// maxAnalysisResponse bounds the body read back from the analysis service.
const maxAnalysisResponse = 1 << 20

type analysisPayload struct {
	StudentID uint                 `json:"studentId"`
	Name      string               `json:"name"`
	Grades    []analysisGradeEntry `json:"grades"`
}

type analysisGradeEntry struct {
	Subject  string   `json:"subject"`
	Value    float64  `json:"value"`
	MaxScore float64  `json:"maxScore"`
	Percent  *float64 `json:"percent"`
	Date     string   `json:"date"`
	Note     *string  `json:"note,omitempty"`
}

// RemoteAnalyzer forwards a student's grades to the external analysis service
// and relays its answer untouched.
type RemoteAnalyzer struct {
	url      string
	client   *http.Client
	students *StudentService
	grades   *GradeService
}

func NewRemoteAnalyzer(url string, timeout time.Duration, students *StudentService, grades *GradeService) *RemoteAnalyzer {
	return &RemoteAnalyzer{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		students: students,
		grades:   grades,
	}
}

func (a *RemoteAnalyzer) Enabled() bool {
	return a.url != ""
}

// Analyze returns the raw JSON document produced by the analysis service.
func (a *RemoteAnalyzer) Analyze(ctx context.Context, studentID uint) (json.RawMessage, error) {
	if !a.Enabled() {
		return nil, ErrAnalysisDisabled
	}
	student, err := a.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	views, err := a.grades.List(ctx, GradeFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(buildPayload(student, views))
	if err != nil {
		return nil, errors.Wrap(err, "encode analysis payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build analysis request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		log.Printf("analysis service unreachable: %v", err)
		return nil, errors.Wrap(ErrAnalysisUpstream, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalysisResponse))
	if err != nil {
		return nil, errors.Wrap(ErrAnalysisUpstream, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("analysis service answered %d for student %d", resp.StatusCode, studentID)
		return nil, errors.Wrapf(ErrAnalysisUpstream, "status %d", resp.StatusCode)
	}
	if !json.Valid(data) {
		return nil, errors.Wrap(ErrAnalysisUpstream, "response is not JSON")
	}
	return json.RawMessage(data), nil
}

func buildPayload(student model.Student, views []model.GradeView) analysisPayload {
	p := analysisPayload{
		StudentID: student.ID,
		Name:      student.FullName(),
		Grades:    make([]analysisGradeEntry, 0, len(views)),
	}
	for _, v := range views {
		entry := analysisGradeEntry{
			Subject:  v.SubjectName,
			Value:    v.Score,
			MaxScore: v.MaxScore,
			Date:     time.Time(v.DateTaken).Format(model.DateLayout),
			Note:     v.Note,
		}
		if pct, ok := analysis.Percent(v.Grade); ok {
			r := analysis.Round2(pct)
			entry.Percent = &r
		}
		p.Grades = append(p.Grades, entry)
	}
	return p
}
