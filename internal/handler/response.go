package handler

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"

	"academictracker/internal/analysis"
	"academictracker/internal/service"
	"academictracker/internal/validation"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

var (
	errInvalidID   = errors.New("id must be a positive integer")
	errInvalidBody = errors.New("request body must be valid JSON")
)

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

// writeJSON encodes v before writing the status, so an encoding failure is
// answered with a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Println("Error encoding response:", err)
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Error: http.StatusText(status)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, errInvalidID), errors.Is(err, errInvalidBody), errors.Is(err, analysis.ErrInvalidThreshold):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrStudentNotFound), errors.Is(err, service.ErrSubjectNotFound), errors.Is(err, service.ErrGradeNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrSubjectCodeTaken):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:  err.Error(),
			Fields: []validation.FieldError{{Field: "code", Error: err.Error()}},
		})
	case errors.Is(err, service.ErrAnalysisDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrAnalysisUpstream):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		log.Printf("internal error: %+v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return validation.Struct(dst)
}

func pathID(r *http.Request, name string) (uint, error) {
	return parseID(mux.Vars(r)[name])
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// analysisOptions reads the optional threshold query parameter.
func analysisOptions(r *http.Request, defaults analysis.Options) (analysis.Options, error) {
	opts := defaults
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
			return opts, analysis.ErrInvalidThreshold
		}
		opts.Threshold = t
	}
	return opts, nil
}
