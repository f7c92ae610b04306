package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"academictracker/internal/analysis"
	"academictracker/internal/service"
)

// Analyzer is the opaque external analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, studentID uint) (json.RawMessage, error)
}

type AnalysisHandler struct {
	analysisService *service.AnalysisService
	remote          Analyzer
	defaults        analysis.Options
}

func NewAnalysisHandler(analysisService *service.AnalysisService, remote Analyzer, defaults analysis.Options) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService, remote: remote, defaults: defaults}
}

// Summary serves the report over every student and subject.
func (h *AnalysisHandler) Summary(w http.ResponseWriter, r *http.Request) {
	opts, err := analysisOptions(r, h.defaults)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.analysisService.Summary(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *AnalysisHandler) StudentSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := analysisOptions(r, h.defaults)
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := h.analysisService.StudentSummary(r.Context(), id, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *AnalysisHandler) Charts(w http.ResponseWriter, r *http.Request) {
	opts, err := analysisOptions(r, h.defaults)
	if err != nil {
		writeError(w, err)
		return
	}
	charts, err := h.analysisService.Charts(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, charts)
}

// Remote relays the external analysis of one student.
func (h *AnalysisHandler) Remote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "studentId")
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.remote.Analyze(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
