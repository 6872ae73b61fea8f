package handlers

import (
	"net/http"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/middleware"
	"github.com/AnshRaj112/visited-regions-backend/internal/services"
)

// SaveVisitsRequest is the full desired visited set.
type SaveVisitsRequest struct {
	VisitedRegionCodes []string `json:"visited_region_codes"`
}

type VisitHandler struct {
	ledger *services.Ledger
	log    logger.Logger
}

func NewVisitHandler(ledger *services.Ledger, log logger.Logger) *VisitHandler {
	return &VisitHandler{ledger: ledger, log: log}
}

// List handles GET /api/user-visits.
func (h *VisitHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.ListVisits(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"visits":  entries,
	})
}

// Save handles POST /api/user-visits. The body replaces the user's visited
// set; unknown region codes are ignored.
func (h *VisitHandler) Save(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, h.log, services.ErrUnauthorized)
		return
	}

	var req SaveVisitsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.VisitedRegionCodes == nil {
		writeError(w, h.log, services.NewValidationError("visited_region_codes", "must be an array of region codes"))
		return
	}

	result, err := h.ledger.Reconcile(r.Context(), sess, req.VisitedRegionCodes)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"added":   result.Added,
		"removed": result.Removed,
	})
}

// Progress handles GET /api/user-visits/progress.
func (h *VisitHandler) Progress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.ledger.Progress(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"progress": progress,
	})
}
