package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/visited-regions-backend/internal/handlers"
	"github.com/AnshRaj112/visited-regions-backend/internal/middleware"
)

// Handlers groups everything the route table dispatches to.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Regions *handlers.RegionHandler
	Visits  *handlers.VisitHandler
	Admin   *handlers.AdminHandler
	Socket  *handlers.VisitSocket
	// Redis backs the shared write limits; nil disables them.
	Redis *redis.Client
}

const requestTimeout = 30 * time.Second

var (
	visitSaveLimit = middleware.WriteLimit{Name: "visits", MaxRequests: 30, Window: time.Minute}
	uploadLimit    = middleware.WriteLimit{Name: "upload", MaxRequests: 20, Window: time.Minute}
)

// SetupRoutes registers the API. The session middleware must already be
// installed on r.
func SetupRoutes(r chi.Router, h Handlers) {
	// WebSocket endpoint for multi-tab visit updates; long-lived, so it sits
	// outside the request timeout.
	r.With(middleware.RequireUser).Get("/ws/visits", h.Socket.Serve)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))
		setupAPI(r, h)
	})
}

func setupAPI(r chi.Router, h Handlers) {
	// Auth routes
	r.Post("/api/auth/signup", h.Auth.Signup)
	r.Post("/api/auth/signin", h.Auth.Signin)
	r.Post("/api/auth/signout", h.Auth.Signout)
	r.With(middleware.RequireUser).Get("/api/auth/me", h.Auth.Me)

	// Region catalog
	r.Get("/api/regions", h.Regions.List)
	r.Get("/api/regions/resolve", h.Regions.Resolve)
	r.Get("/api/regions/{code}", h.Regions.Get)
	r.With(middleware.RequireAdmin).Patch("/api/regions/{code}", h.Admin.UpdateRegion)

	// Visits of the signed-in user
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/api/user-visits", h.Visits.List)
		r.Get("/api/user-visits/progress", h.Visits.Progress)
		r.With(middleware.RedisRateLimit(h.Redis, visitSaveLimit)).Post("/api/user-visits", h.Visits.Save)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.With(middleware.RedisRateLimit(h.Redis, uploadLimit)).Post("/api/upload", h.Admin.UploadImage)
		r.Delete("/api/upload", h.Admin.DeleteImage)
		r.Get("/api/admin/regions/{code}/history", h.Admin.RegionHistory)
	})
}
