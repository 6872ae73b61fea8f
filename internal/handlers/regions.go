package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/middleware"
	"github.com/AnshRaj112/visited-regions-backend/internal/services"
)

// RegionHandler serves the public region catalog.
type RegionHandler struct {
	catalog *services.Catalog
	ledger  *services.Ledger
	log     logger.Logger
}

func NewRegionHandler(catalog *services.Catalog, ledger *services.Ledger, log logger.Logger) *RegionHandler {
	return &RegionHandler{catalog: catalog, ledger: ledger, log: log}
}

// List handles GET /api/regions?q=&sort=name|population|code&visited=true|false.
func (h *RegionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := services.RegionQuery{
		Text: q.Get("q"),
		Sort: q.Get("sort"),
	}
	switch strings.ToLower(q.Get("visited")) {
	case "true":
		query.Filter = services.VisitedOnly
	case "false":
		query.Filter = services.UnvisitedOnly
	}

	if query.Filter != services.VisitedAny {
		entries, err := h.ledger.ListVisits(r.Context(), middleware.SessionFromContext(r.Context()))
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		query.Visited = make(map[string]bool, len(entries))
		for _, code := range services.VisitedCodes(entries) {
			query.Visited[strings.ToLower(code)] = true
		}
	}

	regions, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"regions": regions,
		"count":   len(regions),
	})
}

// Get handles GET /api/regions/{code}.
func (h *RegionHandler) Get(w http.ResponseWriter, r *http.Request) {
	region, err := h.catalog.GetRegion(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"region":  region,
	})
}

// Resolve handles GET /api/regions/resolve?name=, used by the map widget to
// turn a clicked shape's display name into a region code.
func (h *RegionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	code, err := h.catalog.ResolveName(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"code":    code,
	})
}
