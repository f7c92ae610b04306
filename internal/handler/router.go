package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Students *StudentHandler
	Subjects *SubjectHandler
	Grades   *GradeHandler
	Analysis *AnalysisHandler
	Imports  *ImportHandler
	Progress *ProgressHandler
	Page     *PageHandler
}

// NewRouter registers every route of the tracker.
func NewRouter(h Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, instrument)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/", h.Page.Index).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/students", h.Students.ListStudents).Methods("GET")
	api.HandleFunc("/students", h.Students.CreateStudent).Methods("POST")
	api.HandleFunc("/students/{id:[0-9]+}", h.Students.GetStudent).Methods("GET")
	api.HandleFunc("/students/{id:[0-9]+}", h.Students.UpdateStudent).Methods("PUT")
	api.HandleFunc("/students/{id:[0-9]+}", h.Students.DeleteStudent).Methods("DELETE")

	api.HandleFunc("/subjects", h.Subjects.ListSubjects).Methods("GET")
	api.HandleFunc("/subjects", h.Subjects.CreateSubject).Methods("POST")
	api.HandleFunc("/subjects/{id:[0-9]+}", h.Subjects.GetSubject).Methods("GET")
	api.HandleFunc("/subjects/{id:[0-9]+}", h.Subjects.UpdateSubject).Methods("PUT")
	api.HandleFunc("/subjects/{id:[0-9]+}", h.Subjects.DeleteSubject).Methods("DELETE")

	api.HandleFunc("/grades", h.Grades.ListGrades).Methods("GET")
	api.HandleFunc("/grades", h.Grades.CreateGrade).Methods("POST")
	api.HandleFunc("/grades/import", h.Imports.ImportGrades).Methods("POST")
	api.HandleFunc("/grades/{id:[0-9]+}", h.Grades.GetGrade).Methods("GET")
	api.HandleFunc("/grades/{id:[0-9]+}", h.Grades.UpdateGrade).Methods("PUT")
	api.HandleFunc("/grades/{id:[0-9]+}", h.Grades.DeleteGrade).Methods("DELETE")

	api.HandleFunc("/imports/progress", h.Progress.GetAllProgress).Methods("GET")
	api.HandleFunc("/imports/progress/file", h.Progress.GetFileProgress).Methods("GET")
	api.HandleFunc("/imports/events", h.Progress.SSEProgress).Methods("GET")

	api.HandleFunc("/analysis/summary", h.Analysis.Summary).Methods("GET")
	api.HandleFunc("/analysis/charts", h.Analysis.Charts).Methods("GET")
	api.HandleFunc("/analysis/students/{id:[0-9]+}", h.Analysis.StudentSummary).Methods("GET")
	api.HandleFunc("/analysis/{studentId:[0-9]+}", h.Analysis.Remote).Methods("GET")

	return r
}
