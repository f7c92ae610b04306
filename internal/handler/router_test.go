package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"academictracker/internal/analysis"
	"academictracker/internal/database"
	"academictracker/internal/handler"
	"academictracker/internal/service"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, studentID uint) (json.RawMessage, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

type testServer struct {
	router   *mux.Router
	analyzer *MockAnalyzer
}

// newTestServer wires every handler over an in-memory database. seed fills it
// with two students, two subjects and four grades.
func newTestServer(t *testing.T, seed bool) *testServer {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	if seed {
		require.NoError(t, service.Seed(context.Background(), db))
	}

	studentService := service.NewStudentService(db)
	subjectService := service.NewSubjectService(db)
	analysisService := service.NewAnalysisService(db)
	importService := service.NewImportService(db)
	analyzer := new(MockAnalyzer)
	defaults := analysis.DefaultOptions()

	router := handler.NewRouter(handler.Handlers{
		Students: handler.NewStudentHandler(studentService),
		Subjects: handler.NewSubjectHandler(subjectService),
		Grades:   handler.NewGradeHandler(service.NewGradeService(db)),
		Analysis: handler.NewAnalysisHandler(analysisService, analyzer, defaults),
		Imports:  handler.NewImportHandler(importService, t.TempDir()),
		Progress: handler.NewProgressHandler(importService),
		Page:     handler.NewPageHandler(studentService, subjectService, analysisService, defaults),
	})
	return &testServer{router: router, analyzer: analyzer}
}

// do sends a request with an optional JSON body and returns the recorder.
func (s *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), w.Body.String())
}

type apiError struct {
	Error  string `json:"error"`
	Fields []struct {
		Field string `json:"field"`
		Error string `json:"error"`
	} `json:"fields"`
}
