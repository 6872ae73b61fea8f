package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

type VisitStore struct {
	db *sqlx.DB
}

// ListEntries returns the user's visits joined with region names.
func (s *VisitStore) ListEntries(ctx context.Context, userID uuid.UUID) ([]models.VisitEntry, error) {
	entries := []models.VisitEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT uv.region_code, r.name AS region_name, uv.visited_at
		FROM user_visits uv
		JOIN regions r ON r.code = uv.region_code
		WHERE uv.user_id = $1
		ORDER BY uv.region_code
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return entries, nil
}

// Count returns how many regions the user has visited.
func (s *VisitStore) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM user_visits WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}
	return n, nil
}

// VisitTx is the set of statements a reconcile runs inside one transaction.
type VisitTx interface {
	CurrentCodes(ctx context.Context, userID uuid.UUID) ([]string, error)
	ExistingRegionCodes(ctx context.Context, lowerCodes []string) ([]string, error)
	Insert(ctx context.Context, userID uuid.UUID, codes []string) (int, error)
	Delete(ctx context.Context, userID uuid.UUID, codes []string) (int, error)
}

// InTx runs fn in a transaction, committing only when fn returns nil.
func (s *VisitStore) InTx(ctx context.Context, fn func(tx VisitTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&visitTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommit, err)
	}
	return nil
}

type visitTx struct {
	tx *sqlx.Tx
}

// CurrentCodes locks and returns the user's visit rows.
func (t *visitTx) CurrentCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	codes := []string{}
	err := t.tx.SelectContext(ctx, &codes,
		`SELECT region_code FROM user_visits WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return nil, fmt.Errorf("current visits: %w", err)
	}
	return codes, nil
}

// ExistingRegionCodes returns the stored codes whose lower-cased form is in lowerCodes.
func (t *visitTx) ExistingRegionCodes(ctx context.Context, lowerCodes []string) ([]string, error) {
	codes := []string{}
	if len(lowerCodes) == 0 {
		return codes, nil
	}
	err := t.tx.SelectContext(ctx, &codes,
		`SELECT code FROM regions WHERE LOWER(code) = ANY($1)`, pq.Array(lowerCodes))
	if err != nil {
		return nil, fmt.Errorf("existing regions: %w", err)
	}
	return codes, nil
}

func (t *visitTx) Insert(ctx context.Context, userID uuid.UUID, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO user_visits (user_id, region_code)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (user_id, region_code) DO NOTHING
	`, userID, pq.Array(codes))
	if err != nil {
		return 0, fmt.Errorf("insert visits: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (t *visitTx) Delete(ctx context.Context, userID uuid.UUID, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM user_visits WHERE user_id = $1 AND region_code = ANY($2)`, userID, pq.Array(codes))
	if err != nil {
		return 0, fmt.Errorf("delete visits: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
