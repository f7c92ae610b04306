package handler

import (
	"bytes"
	"log"
	"net/http"

	"academictracker/internal/analysis"
	"academictracker/internal/model"
	"academictracker/internal/service"
	"academictracker/web"
)

type pageData struct {
	Students []model.Student
	Subjects []model.Subject
	Report   analysis.Report
	Charts   analysis.Charts
}

// PageHandler renders the single server-side page.
type PageHandler struct {
	studentService  *service.StudentService
	subjectService  *service.SubjectService
	analysisService *service.AnalysisService
	defaults        analysis.Options
}

func NewPageHandler(students *service.StudentService, subjects *service.SubjectService, analysisService *service.AnalysisService, defaults analysis.Options) *PageHandler {
	return &PageHandler{
		studentService:  students,
		subjectService:  subjects,
		analysisService: analysisService,
		defaults:        defaults,
	}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	opts, err := analysisOptions(r, h.defaults)
	if err != nil {
		writeError(w, err)
		return
	}

	var data pageData
	if data.Students, err = h.studentService.List(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	if data.Subjects, err = h.subjectService.List(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	if data.Report, err = h.analysisService.Summary(r.Context(), opts); err != nil {
		writeError(w, err)
		return
	}
	data.Charts = analysis.BuildCharts(data.Report)

	var buf bytes.Buffer
	if err := web.Templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.Printf("render index: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
