package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/AnshRaj112/visited-regions-backend/internal/middleware"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/services"
)

type UploadResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	URL     string         `json:"image_url,omitempty"`
	Key     string         `json:"key,omitempty"`
	Region  *models.Region `json:"region,omitempty"`
}

// UploadImage handles POST /api/upload: multipart "file" plus "region_code",
// optional "attach=true" to append the image to the region right away.
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	// Form overhead on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(services.MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.log, services.NewValidationError("file", "must be at most 10MB"))
			return
		}
		writeError(w, h.log, services.NewValidationError("body", "must be multipart/form-data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.log, services.NewValidationError("file", "is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxUploadSize+1))
	if err != nil {
		writeError(w, h.log, services.NewValidationError("file", "could not be read"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	result, err := h.editor.Upload(r.Context(), middleware.SessionFromContext(r.Context()), services.UploadInput{
		RegionCode:  r.FormValue("region_code"),
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
		Attach:      strings.EqualFold(r.FormValue("attach"), "true"),
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Message: "File uploaded successfully",
		URL:     result.URL,
		Key:     result.Key,
		Region:  result.Region,
	})
}

// DeleteImage handles DELETE /api/upload?key=regions/{code}/{file}.
func (h *AdminHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		writeError(w, h.log, services.NewValidationError("key", "is required"))
		return
	}
	if err := h.editor.DeleteImage(r.Context(), middleware.SessionFromContext(r.Context()), key); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Image deleted")
}
