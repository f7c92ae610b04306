// Package analysis computes per-subject and per-student percentage averages and
// risk flags over a snapshot of students, subjects and grades. It performs no
// I/O and keeps no state between calls.
package analysis

import (
	"math"
	"sort"

	"academictracker/internal/model"

	"github.com/pkg/errors"
)

// DefaultThreshold is the percentage below which a student is at risk.
const DefaultThreshold = 60.0

// UnknownSubjectName labels grades whose subject is missing from the catalog.
const UnknownSubjectName = "Unknown"

// ErrInvalidThreshold is returned for a NaN or infinite threshold.
var ErrInvalidThreshold = errors.New("threshold must be a finite number")

// Options parameterizes a computation. Threshold is a percentage; averages
// strictly below it flag a subject or a student.
type Options struct {
	Threshold float64
}

// DefaultOptions uses DefaultThreshold.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold}
}

// Validate rejects a threshold that is not a finite number.
func (o Options) Validate() error {
	if !finite(o.Threshold) {
		return ErrInvalidThreshold
	}
	return nil
}

// SubjectPercent is the rounded average of one student in one subject.
type SubjectPercent struct {
	SubjectID      uint    `json:"subject_id"`
	SubjectName    string  `json:"subject_name"`
	PercentAverage float64 `json:"percent_average"`
}

// StudentSummary is the standing of one student. GeneralAverage is nil when
// the student has no usable grade.
type StudentSummary struct {
	Student            model.Student    `json:"student"`
	GeneralAverage     *float64         `json:"general_average"`
	PerSubjectAverages []SubjectPercent `json:"per_subject_averages"`
	NeedsImprovement   []SubjectPercent `json:"needs_improvement"`
	IsAtRisk           bool             `json:"is_at_risk"`
}

// SubjectAverage is the average of a subject across all students, nil
// without data.
type SubjectAverage struct {
	Subject        model.Subject `json:"subject"`
	PercentAverage *float64      `json:"percent_average"`
}

// Report is the full analysis: the threshold used, one summary per student
// and one average per subject.
type Report struct {
	Threshold        float64          `json:"threshold"`
	StudentSummaries []StudentSummary `json:"student_summaries"`
	SubjectAverages  []SubjectAverage `json:"subject_averages"`
}

// Percent converts a grade to a percentage of its maximum score. Grades with a
// non-positive maximum, or a score or maximum that is not a finite number, have
// no percentage and are left out of every average.
func Percent(g model.Grade) (float64, bool) {
	if !finite(g.Score) || !finite(g.MaxScore) || g.MaxScore <= 0 {
		return 0, false
	}
	p := g.Score / g.MaxScore * 100
	if !finite(p) {
		return 0, false
	}
	return p, true
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Round2 rounds to two decimals, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// AverageForSubject returns the mean percentage of the grades recorded for
// subjectID, or nil when there is none.
func AverageForSubject(subjectID uint, grades []model.Grade) *float64 {
	var m mean
	for _, g := range grades {
		if g.SubjectID != subjectID {
			continue
		}
		if p, ok := Percent(g); ok {
			m.add(p)
		}
	}
	return m.rounded()
}

// SummarizeStudent groups the student's grades by subject. The general average
// is the mean of the per-subject averages, so every graded subject weighs the
// same whatever its number of grades. Grades of other students are ignored.
func SummarizeStudent(student model.Student, grades []model.Grade, subjects []model.Subject, opts Options) StudentSummary {
	return summarize(student, grades, newCatalog(subjects), opts.Threshold)
}

// ComputeReport summarizes every student and averages every subject across
// all grades. Output order follows the input order of students and subjects.
func ComputeReport(students []model.Student, subjects []model.Subject, grades []model.Grade, opts Options) Report {
	cat := newCatalog(subjects)

	byStudent := make(map[uint][]model.Grade, len(students))
	bySubject := make(map[uint]*mean, len(subjects))
	for _, g := range grades {
		byStudent[g.StudentID] = append(byStudent[g.StudentID], g)
		p, ok := Percent(g)
		if !ok {
			continue
		}
		m := bySubject[g.SubjectID]
		if m == nil {
			m = &mean{}
			bySubject[g.SubjectID] = m
		}
		m.add(p)
	}

	report := Report{
		Threshold:        opts.Threshold,
		StudentSummaries: make([]StudentSummary, 0, len(students)),
		SubjectAverages:  make([]SubjectAverage, 0, len(subjects)),
	}
	for _, s := range students {
		report.StudentSummaries = append(report.StudentSummaries, summarize(s, byStudent[s.ID], cat, opts.Threshold))
	}
	for _, sub := range subjects {
		var avg *float64
		if m := bySubject[sub.ID]; m != nil {
			avg = m.rounded()
		}
		report.SubjectAverages = append(report.SubjectAverages, SubjectAverage{Subject: sub, PercentAverage: avg})
	}
	return report
}

func summarize(student model.Student, grades []model.Grade, cat catalog, threshold float64) StudentSummary {
	perSubject := make(map[uint]*mean)
	for _, g := range grades {
		if g.StudentID != student.ID {
			continue
		}
		p, ok := Percent(g)
		if !ok {
			continue
		}
		m := perSubject[g.SubjectID]
		if m == nil {
			m = &mean{}
			perSubject[g.SubjectID] = m
		}
		m.add(p)
	}

	summary := StudentSummary{
		Student:            student,
		PerSubjectAverages: make([]SubjectPercent, 0, len(perSubject)),
		NeedsImprovement:   make([]SubjectPercent, 0),
	}

	var general mean
	for _, id := range cat.order(perSubject) {
		sp := SubjectPercent{
			SubjectID:      id,
			SubjectName:    cat.name(id),
			PercentAverage: *perSubject[id].rounded(),
		}
		summary.PerSubjectAverages = append(summary.PerSubjectAverages, sp)
		if sp.PercentAverage < threshold {
			summary.NeedsImprovement = append(summary.NeedsImprovement, sp)
		}
		general.add(sp.PercentAverage)
	}

	summary.GeneralAverage = general.rounded()
	summary.IsAtRisk = summary.GeneralAverage != nil && *summary.GeneralAverage < threshold
	return summary
}

// catalog indexes the subject list by id, keeping its order.
type catalog struct {
	ids   []uint
	names map[uint]string
}

func newCatalog(subjects []model.Subject) catalog {
	c := catalog{ids: make([]uint, 0, len(subjects)), names: make(map[uint]string, len(subjects))}
	for _, s := range subjects {
		if _, dup := c.names[s.ID]; dup {
			continue
		}
		c.ids = append(c.ids, s.ID)
		c.names[s.ID] = s.Name
	}
	return c
}

func (c catalog) name(id uint) string {
	if n, ok := c.names[id]; ok {
		return n
	}
	return UnknownSubjectName
}

// order returns the keys of present in catalog order, followed by unknown
// subject ids in ascending order.
func (c catalog) order(present map[uint]*mean) []uint {
	out := make([]uint, 0, len(present))
	for _, id := range c.ids {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	var unknown []uint
	for id := range present {
		if _, ok := c.names[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(out, unknown...)
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(x float64) {
	m.sum += x
	m.n++
}

// rounded returns nil for an empty mean so "no data" never reads as 0.
func (m *mean) rounded() *float64 {
	if m.n == 0 {
		return nil
	}
	v := Round2(m.sum / float64(m.n))
	return &v
}
