package handler

import (
	"net/http"

	"academictracker/internal/service"
	"academictracker/internal/validation"
)

type GradeHandler struct {
	gradeService *service.GradeService
}

func NewGradeHandler(gradeService *service.GradeService) *GradeHandler {
	return &GradeHandler{gradeService: gradeService}
}

// ListGrades accepts the optional student_id and subject_id filters.
func (h *GradeHandler) ListGrades(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		filter service.GradeFilter
		fields []validation.FieldError
	)
	if v := query.Get("student_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			fields = append(fields, validation.FieldError{Field: "student_id", Error: err.Error()})
		}
		filter.StudentID = id
	}
	if v := query.Get("subject_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			fields = append(fields, validation.FieldError{Field: "subject_id", Error: err.Error()})
		}
		filter.SubjectID = id
	}
	if len(fields) > 0 {
		writeError(w, validation.NewValidationError(validation.ErrInvalidInput, fields...))
		return
	}

	grades, err := h.gradeService.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grades)
}

func (h *GradeHandler) GetGrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	grade, err := h.gradeService.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grade)
}

func (h *GradeHandler) CreateGrade(w http.ResponseWriter, r *http.Request) {
	var in service.GradeInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	grade, err := h.gradeService.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grade)
}

func (h *GradeHandler) UpdateGrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var in service.GradeUpdate
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	grade, err := h.gradeService.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grade)
}

func (h *GradeHandler) DeleteGrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.gradeService.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": 1})
}
