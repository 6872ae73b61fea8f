package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/visited-regions-backend/internal/config"
	"github.com/AnshRaj112/visited-regions-backend/internal/database"
	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/seed"
	"github.com/AnshRaj112/visited-regions-backend/internal/services"
	"github.com/AnshRaj112/visited-regions-backend/internal/store"
)

// Seeds the region catalog and drops the cached copy so the API serves the
// fresh rows immediately.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.New(cfg.LogLevel, !cfg.IsProduction())
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", logger.Error(err))
	}
	defer db.Close()

	st := store.New(db)
	if _, err := seed.Run(ctx, st.Regions, log); err != nil {
		log.Fatal("seeding failed", logger.Error(err))
	}

	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		log.Warn("Redis unavailable; cached catalog not invalidated", logger.Error(err))
		return
	}
	defer rdb.Close()
	if err := services.NewRedisCache(rdb, cfg.CatalogCacheTTL).InvalidateRegions(ctx); err != nil {
		log.Warn("failed to invalidate region cache", logger.Error(err))
	}
}
