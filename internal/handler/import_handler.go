package handler

import (
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const maxUploadSize = 32 << 20 // 32MB

// CSVProcessor imports one saved CSV file.
type CSVProcessor interface {
	ProcessCSV(filePath string) error
}

type ImportHandler struct {
	importService CSVProcessor
	uploadDir     string
	wg            sync.WaitGroup
}

func NewImportHandler(importService CSVProcessor, uploadDir string) *ImportHandler {
	return &ImportHandler{importService: importService, uploadDir: uploadDir}
}

// ImportGrades saves the uploaded CSV files and imports them in the background.
// The answer lists the saved names, which key the progress endpoints.
func (h *ImportHandler) ImportGrades(w http.ResponseWriter, r *http.Request) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		writeError(w, errors.Wrap(err, "create upload directory"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large or bad request"})
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no files uploaded"})
		return
	}

	fileNames := make([]string, 0, len(files))
	for _, fh := range files {
		// unique per upload so files sharing a name never share a path or progress entry
		name := uuid.NewString() + "_" + filepath.Base(fh.Filename)
		savePath := filepath.Join(h.uploadDir, name)
		if err := saveUpload(fh, savePath); err != nil {
			log.Printf("Error saving upload %s: %v", name, err)
			continue
		}
		fileNames = append(fileNames, name)

		h.wg.Add(1)
		go func(filePath string) {
			defer h.wg.Done()
			if err := h.importService.ProcessCSV(filePath); err != nil {
				log.Printf("Error importing file %s: %v", filePath, err)
			}
		}(savePath)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "files uploaded, import started",
		"files":   fileNames,
	})
}

// Wait blocks until every background import has finished.
func (h *ImportHandler) Wait() {
	h.wg.Wait()
}

func saveUpload(fh *multipart.FileHeader, savePath string) error {
	file, err := fh.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	outFile, err := os.Create(savePath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, file); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}
