package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"academictracker/internal/handler"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCSVProcessor struct {
	mock.Mock
}

func (m *MockCSVProcessor) ProcessCSV(filePath string) error {
	args := m.Called(filePath)
	return args.Error(0)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

type importResponse struct {
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

func savedAs(dir, original string) interface{} {
	return mock.MatchedBy(func(path string) bool {
		return filepath.Dir(path) == dir && strings.HasSuffix(filepath.Base(path), "_"+original)
	})
}

func TestImportGrades(t *testing.T) {
	uploadDir := filepath.Join(t.TempDir(), "uploads")
	processor := new(MockCSVProcessor)
	processor.On("ProcessCSV", savedAs(uploadDir, "grades.csv")).Return(nil)
	processor.On("ProcessCSV", savedAs(uploadDir, "more.csv")).Return(errors.New("bad header"))

	h := handler.NewImportHandler(processor, uploadDir)
	body, contentType := multipartBody(t, map[string]string{
		"grades.csv": "student_id,subject_id,score\n1,1,95\n",
		"more.csv":   "foo,bar\n",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/grades/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.ImportGrades(w, req)
	h.Wait()

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var resp importResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Files, 2)

	var gradesFile string
	for _, name := range resp.Files {
		if strings.HasSuffix(name, "_grades.csv") {
			gradesFile = name
		}
	}
	require.NotEmpty(t, gradesFile)
	saved, err := os.ReadFile(filepath.Join(uploadDir, gradesFile))
	require.NoError(t, err)
	assert.Equal(t, "student_id,subject_id,score\n1,1,95\n", string(saved))
	processor.AssertExpectations(t)
}

func TestImportGradesSameNameKeepsBothFiles(t *testing.T) {
	uploadDir := t.TempDir()
	processor := new(MockCSVProcessor)
	processor.On("ProcessCSV", savedAs(uploadDir, "grades.csv")).Return(nil)
	h := handler.NewImportHandler(processor, uploadDir)

	var names []string
	for _, content := range []string{"first\n", "second\n"} {
		body, contentType := multipartBody(t, map[string]string{"grades.csv": content})
		req := httptest.NewRequest(http.MethodPost, "/api/grades/import", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		h.ImportGrades(w, req)
		require.Equal(t, http.StatusAccepted, w.Code)

		var resp importResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Files, 1)
		names = append(names, resp.Files[0])
	}
	h.Wait()

	assert.NotEqual(t, names[0], names[1])
	first, err := os.ReadFile(filepath.Join(uploadDir, names[0]))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))
	second, err := os.ReadFile(filepath.Join(uploadDir, names[1]))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
	processor.AssertNumberOfCalls(t, "ProcessCSV", 2)
}

func TestImportGradesWithoutFiles(t *testing.T) {
	processor := new(MockCSVProcessor)
	h := handler.NewImportHandler(processor, t.TempDir())

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/grades/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.ImportGrades(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no files uploaded")
	processor.AssertNotCalled(t, "ProcessCSV", mock.Anything)
}

func TestImportGradesEndToEnd(t *testing.T) {
	srv := newTestServer(t, true)

	body, contentType := multipartBody(t, map[string]string{
		"batch.csv": "student_id,subject_id,score,max_score,date_taken,note\n1,1,40,50,2025-11-10,\n",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/grades/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var resp importResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Files, 1)

	assert.Eventually(t, func() bool {
		rec := srv.do(t, http.MethodGet, "/api/imports/progress/file?fileName="+url.QueryEscape(resp.Files[0]), nil)
		return rec.Code == http.StatusOK && bytes.Contains(rec.Body.Bytes(), []byte(`"status":"completed"`))
	}, 5*time.Second, 20*time.Millisecond)

	rec := srv.do(t, http.MethodGet, "/api/grades?student_id=1&subject_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []gradeJSON
	decodeBody(t, rec, &list)
	require.Len(t, list, 2)
	assert.Equal(t, 40.0, list[0].Score)
	assert.Equal(t, 50.0, list[0].MaxScore)
}
