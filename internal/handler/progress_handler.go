package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"

	"academictracker/internal/service"
)

type ProgressService interface {
	GetFileProgress(fileName string) *service.ProgressInfo
	GetAllFileProgress() []*service.ProgressInfo
	RegisterProgressListener(ch chan *service.ProgressInfo)
	UnregisterProgressListener(ch chan *service.ProgressInfo)
}

type ProgressHandler struct {
	importService ProgressService
}

func NewProgressHandler(importService ProgressService) *ProgressHandler {
	return &ProgressHandler{importService: importService}
}

// GetFileProgress returns the progress for a specific file
func (h *ProgressHandler) GetFileProgress(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("fileName")
	if fileName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "fileName parameter is required"})
		return
	}

	progress := h.importService.GetFileProgress(filepath.Base(fileName))
	if progress == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "file not found or not being processed"})
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// GetAllProgress returns the progress for all files being processed
func (h *ProgressHandler) GetAllProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.importService.GetAllFileProgress())
}

// SSEProgress streams progress updates to the client using Server-Sent Events.
func (h *ProgressHandler) SSEProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	progressChan := make(chan *service.ProgressInfo, 16)
	h.importService.RegisterProgressListener(progressChan)
	defer h.importService.UnregisterProgressListener(progressChan)

	for {
		select {
		case progress := <-progressChan:
			data, err := json.Marshal(progress)
			if err != nil {
				log.Println("Error marshaling progress:", err)
				continue
			}
			if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				log.Println("Error writing SSE data:", err)
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
