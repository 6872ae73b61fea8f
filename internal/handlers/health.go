package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger func(ctx context.Context) error

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// Ready handles GET /readyz: 200 when every dependency answers, 503 otherwise.
func Ready(log logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(deps))
		ready := true
		for name, ping := range deps {
			if err := ping(ctx); err != nil {
				log.Warn("readiness check failed", logger.String("dependency", name), logger.Error(err))
				status[name] = "down"
				ready = false
				continue
			}
			status[name] = "up"
		}

		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{
			"success":      ready,
			"dependencies": status,
		})
	}
}
