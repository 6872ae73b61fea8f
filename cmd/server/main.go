package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/visited-regions-backend/internal/config"
	"github.com/AnshRaj112/visited-regions-backend/internal/database"
	"github.com/AnshRaj112/visited-regions-backend/internal/handlers"
	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/middleware"
	"github.com/AnshRaj112/visited-regions-backend/internal/routes"
	"github.com/AnshRaj112/visited-regions-backend/internal/services"
	"github.com/AnshRaj112/visited-regions-backend/internal/store"
)

func main() {
	// Load env
	envErr := godotenv.Load()
	cfg := config.Load()

	log := logger.New(cfg.LogLevel, !cfg.IsProduction())
	defer log.Sync()

	if envErr != nil {
		log.Info("No .env file found")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", logger.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Connecting to PostgreSQL...")
	db, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", logger.Error(err))
	}
	defer db.Close()

	log.Info("Connecting to Redis...")
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		log.Fatal("Failed to connect to Redis", logger.Error(err))
	}
	defer rdb.Close()

	var audit services.AuditLog = services.NopAudit{}
	if cfg.MongoURI != "" {
		log.Info("Connecting to MongoDB...")
		mongoClient, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", logger.Error(err))
		}
		defer database.DisconnectMongo(mongoClient)

		mongoAudit := services.NewMongoAudit(mongoDB)
		if err := mongoAudit.EnsureIndexes(ctx); err != nil {
			log.Warn("failed to ensure region edit indexes", logger.Error(err))
		}
		audit = mongoAudit
	} else {
		log.Warn("MONGODB_URI not set; region edit history is disabled")
	}

	var images services.ImageStore
	if cfg.CloudinaryConfigured() {
		cld, err := services.NewCloudinaryStore(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Warn("File uploads will not be available", logger.Error(err))
		} else {
			images = cld
			log.Info("Cloudinary image store initialized")
		}
	} else {
		log.Warn("Cloudinary credentials not found. File uploads will not be available")
	}

	st := store.New(db)
	hub := services.NewVisitHub()
	events := services.NewVisitEvents(rdb, hub, log)
	events.Start(ctx)

	catalog := services.NewCatalog(st.Regions, services.NewRedisCache(rdb, cfg.CatalogCacheTTL), log)
	ledger := services.NewLedger(st.Visits, catalog, events, log)
	auth := services.NewAuth(st.Users, services.NewRedisSessions(rdb, cfg.SessionTTL), log)
	editor := services.NewRegionEditor(st.Regions, catalog, images, audit, cfg.ImageMaxWidth, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.AccessLog(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Info("Production security enabled", logger.String("allowed_host", cfg.AllowedHost))
	}

	// Health checks (no session, no timeout)
	r.Get("/health", handlers.Health)
	r.Get("/readyz", handlers.Ready(log, map[string]handlers.Pinger{
		"postgres": st.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}))

	h := routes.Handlers{
		Auth:    handlers.NewAuthHandler(auth, log),
		Regions: handlers.NewRegionHandler(catalog, ledger, log),
		Visits:  handlers.NewVisitHandler(ledger, log),
		Admin:   handlers.NewAdminHandler(editor, log),
		Socket:  handlers.NewVisitSocket(hub, cfg.AllowedOrigins, log),
		Redis:   rdb,
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(auth))
		routes.SetupRoutes(r, h)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Visited regions backend running", logger.String("addr", srv.Addr), logger.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logger.Error(err))
	}
}
