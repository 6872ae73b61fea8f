package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/middleware"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/services"
)

// AdminHandler serves the admin-only region editing endpoints.
type AdminHandler struct {
	editor *services.RegionEditor
	log    logger.Logger
}

func NewAdminHandler(editor *services.RegionEditor, log logger.Logger) *AdminHandler {
	return &AdminHandler{editor: editor, log: log}
}

// UpdateRegion handles PATCH /api/regions/{code}.
func (h *AdminHandler) UpdateRegion(w http.ResponseWriter, r *http.Request) {
	var patch models.RegionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.log, err)
		return
	}

	region, err := h.editor.Update(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "code"), patch)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Region updated",
		"region":  region,
	})
}

// RegionHistory handles GET /api/admin/regions/{code}/history?limit=.
func (h *AdminHandler) RegionHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	edits, err := h.editor.History(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "code"), limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"edits":   edits,
	})
}
