package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ConnectPostgres connects to PostgreSQL and makes sure the schema exists.
func ConnectPostgres(ctx context.Context, postgresURI string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	if err = InitPostgresTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(ctx context.Context, db *sqlx.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		// Region catalog; code is the stable identifier shared with the map geodata
		`CREATE TABLE IF NOT EXISTS regions (
			id SERIAL PRIMARY KEY,
			code VARCHAR(50) NOT NULL UNIQUE,
			name VARCHAR(100) NOT NULL,
			population INTEGER,
			short_description VARCHAR(200),
			description VARCHAR(2000),
			places_to_visit VARCHAR(1000),
			images TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		// Visit ledger (many-to-many between users and regions)
		`CREATE TABLE IF NOT EXISTS user_visits (
			id SERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			region_code VARCHAR(50) NOT NULL REFERENCES regions(code) ON DELETE CASCADE,
			visited_at TIMESTAMP NOT NULL DEFAULT NOW(),
			notes VARCHAR(500),
			rating INTEGER CHECK (rating BETWEEN 1 AND 5),
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, region_code)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users(LOWER(email))`,
		`CREATE INDEX IF NOT EXISTS idx_regions_code_lower ON regions(LOWER(code))`,
		`CREATE INDEX IF NOT EXISTS idx_regions_name_lower ON regions(LOWER(name))`,
		`CREATE INDEX IF NOT EXISTS idx_user_visits_user_id ON user_visits(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_visits_region_code ON user_visits(region_code)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}
