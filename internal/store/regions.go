package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

const regionColumns = `id, code, name, population, short_description, description,
	places_to_visit, images, created_at, updated_at`

type RegionStore struct {
	db *sqlx.DB
}

// List returns every region ordered by display name.
func (s *RegionStore) List(ctx context.Context) ([]models.Region, error) {
	regions := []models.Region{}
	err := s.db.SelectContext(ctx, &regions, `SELECT `+regionColumns+` FROM regions ORDER BY name, code`)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	return regions, nil
}

// GetByCode does an exact, case-sensitive lookup.
func (s *RegionStore) GetByCode(ctx context.Context, code string) (models.Region, error) {
	var region models.Region
	err := s.db.GetContext(ctx, &region, `SELECT `+regionColumns+` FROM regions WHERE code = $1`, code)
	if err != nil {
		return models.Region{}, notFound(err)
	}
	return region, nil
}

// GetByCodeFold matches the code case-insensitively.
func (s *RegionStore) GetByCodeFold(ctx context.Context, code string) (models.Region, error) {
	var region models.Region
	err := s.db.GetContext(ctx, &region,
		`SELECT `+regionColumns+` FROM regions WHERE LOWER(code) = LOWER($1) ORDER BY code LIMIT 1`, code)
	if err != nil {
		return models.Region{}, notFound(err)
	}
	return region, nil
}

// Count returns the number of regions in the catalog.
func (s *RegionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM regions`); err != nil {
		return 0, fmt.Errorf("count regions: %w", err)
	}
	return n, nil
}

// Update applies the fields present in patch to the region with the given code.
func (s *RegionStore) Update(ctx context.Context, code string, patch models.RegionPatch) (models.Region, error) {
	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Population != nil {
		add("population", *patch.Population)
	}
	if patch.ShortDescription != nil {
		add("short_description", *patch.ShortDescription)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.PlacesToVisit != nil {
		add("places_to_visit", *patch.PlacesToVisit)
	}
	if patch.Images != nil {
		add("images", pq.StringArray(*patch.Images))
	}
	if len(sets) == 0 {
		return s.GetByCode(ctx, code)
	}

	args = append(args, code)
	query := fmt.Sprintf(`UPDATE regions SET %s, updated_at = NOW() WHERE code = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), regionColumns)

	var region models.Region
	if err := s.db.GetContext(ctx, &region, query, args...); err != nil {
		return models.Region{}, notFound(err)
	}
	return region, nil
}

// AppendImage adds url to the end of the region's image list.
func (s *RegionStore) AppendImage(ctx context.Context, code, url string) (models.Region, error) {
	var region models.Region
	err := s.db.GetContext(ctx, &region, `
		UPDATE regions SET images = array_append(images, $2), updated_at = NOW()
		WHERE code = $1
		RETURNING `+regionColumns, code, url)
	if err != nil {
		return models.Region{}, notFound(err)
	}
	return region, nil
}

// RemoveImage drops every occurrence of url from the region's image list.
func (s *RegionStore) RemoveImage(ctx context.Context, code, url string) (models.Region, error) {
	var region models.Region
	err := s.db.GetContext(ctx, &region, `
		UPDATE regions SET images = array_remove(images, $2), updated_at = NOW()
		WHERE code = $1
		RETURNING `+regionColumns, code, url)
	if err != nil {
		return models.Region{}, notFound(err)
	}
	return region, nil
}

// Upsert inserts a region or refreshes its descriptive fields. Used by the seeder.
func (s *RegionStore) Upsert(ctx context.Context, r models.Region) error {
	images := r.Images
	if images == nil {
		images = pq.StringArray{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO regions (code, name, population, short_description, description, places_to_visit, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			population = EXCLUDED.population,
			short_description = EXCLUDED.short_description,
			description = EXCLUDED.description,
			places_to_visit = EXCLUDED.places_to_visit,
			images = EXCLUDED.images,
			updated_at = NOW()
	`, r.Code, r.Name, r.Population, r.ShortDescription, r.Description, r.PlacesToVisit, images)
	if err != nil {
		return fmt.Errorf("upsert region %s: %w", r.Code, err)
	}
	return nil
}
