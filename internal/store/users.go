package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

// ErrDuplicate is returned when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("store: duplicate")

type UserStore struct {
	db *sqlx.DB
}

func (s *UserStore) Create(ctx context.Context, u models.User) (models.User, error) {
	var created models.User
	err := s.db.GetContext(ctx, &created, `
		INSERT INTO users (id, name, email, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, name, email, password_hash, is_admin, created_at, updated_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.IsAdmin)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.User{}, ErrDuplicate
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, name, email, password_hash, is_admin, created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER($1)
	`, email)
	if err != nil {
		return models.User{}, notFound(err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, name, email, password_hash, is_admin, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
	if err != nil {
		return models.User{}, notFound(err)
	}
	return u, nil
}
