package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/store"
)

// RegionRepository is the persistence the catalog and editor need.
type RegionRepository interface {
	List(ctx context.Context) ([]models.Region, error)
	GetByCode(ctx context.Context, code string) (models.Region, error)
	GetByCodeFold(ctx context.Context, code string) (models.Region, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, code string, patch models.RegionPatch) (models.Region, error)
	AppendImage(ctx context.Context, code, url string) (models.Region, error)
	RemoveImage(ctx context.Context, code, url string) (models.Region, error)
}

// Catalog is the read side of the region reference data.
type Catalog struct {
	repo  RegionRepository
	cache RegionCache
	log   logger.Logger
}

func NewCatalog(repo RegionRepository, cache RegionCache, log logger.Logger) *Catalog {
	if cache == nil {
		cache = nopCache{}
	}
	return &Catalog{repo: repo, cache: cache, log: log}
}

// ListRegions returns all regions ordered by name, served from cache when possible.
func (c *Catalog) ListRegions(ctx context.Context) ([]models.Region, error) {
	regions, ok, err := c.cache.GetRegions(ctx)
	if err != nil {
		c.log.Warn("region cache read failed", logger.Error(err))
	}
	if ok {
		return regions, nil
	}

	// Taken before the read so an edit committed meanwhile voids the write.
	gen, genErr := c.cache.Generation(ctx)

	regions, err = c.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if genErr != nil {
		c.log.Warn("region cache generation read failed", logger.Error(genErr))
		return regions, nil
	}
	if err := c.cache.SetRegions(ctx, gen, regions); err != nil {
		c.log.Warn("region cache write failed", logger.Error(err))
	}
	return regions, nil
}

// GetRegion looks a region up by code, retrying case-insensitively when the
// exact match fails.
func (c *Catalog) GetRegion(ctx context.Context, code string) (models.Region, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.Region{}, ErrNotFound
	}

	region, err := c.repo.GetByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		region, err = c.repo.GetByCodeFold(ctx, code)
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.Region{}, fmt.Errorf("region %q: %w", code, ErrNotFound)
	case err != nil:
		return models.Region{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return region, nil
}

// Total returns the number of regions in the catalog.
func (c *Catalog) Total(ctx context.Context) (int, error) {
	regions, ok, err := c.cache.GetRegions(ctx)
	if err == nil && ok {
		return len(regions), nil
	}
	n, err := c.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return n, nil
}

// ResolveName maps a display name, as emitted by the map widget, to a region
// code. Matching is on the trimmed, case-folded name.
func (c *Catalog) ResolveName(ctx context.Context, name string) (string, error) {
	key := normalizeName(name)
	if key == "" {
		return "", ErrNotFound
	}
	regions, err := c.ListRegions(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range regions {
		if normalizeName(r.Name) == key {
			return r.Code, nil
		}
	}
	return "", fmt.Errorf("region name %q: %w", name, ErrNotFound)
}

// Invalidate drops the cached region list.
func (c *Catalog) Invalidate(ctx context.Context) {
	if err := c.cache.InvalidateRegions(ctx); err != nil {
		c.log.Warn("region cache invalidation failed", logger.Error(err))
	}
}

// Search filters and sorts the catalog the way the region list page does.
func (c *Catalog) Search(ctx context.Context, q RegionQuery) ([]models.Region, error) {
	regions, err := c.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	return FilterRegions(regions, q), nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

const (
	SortByName       = "name"
	SortByPopulation = "population"
	SortByCode       = "code"
)

// VisitedFilter restricts a search to visited or unvisited regions.
type VisitedFilter int

const (
	VisitedAny VisitedFilter = iota
	VisitedOnly
	UnvisitedOnly
)

// RegionQuery describes a region list search.
type RegionQuery struct {
	Text    string
	Sort    string
	Filter  VisitedFilter
	Visited map[string]bool // lower-cased codes; consulted only when Filter != VisitedAny
}

// FilterRegions returns a new slice with the regions matching q, sorted.
func FilterRegions(regions []models.Region, q RegionQuery) []models.Region {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]models.Region, 0, len(regions))
	for _, r := range regions {
		if text != "" && !matchesText(r, text) {
			continue
		}
		visited := q.Visited[strings.ToLower(r.Code)]
		if q.Filter == VisitedOnly && !visited {
			continue
		}
		if q.Filter == UnvisitedOnly && visited {
			continue
		}
		out = append(out, r)
	}

	switch q.Sort {
	case SortByPopulation:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].Population, out[j].Population
			if a == nil || b == nil {
				return a != nil
			}
			return *a > *b
		})
	case SortByCode:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	}
	return out
}

func matchesText(r models.Region, text string) bool {
	if strings.Contains(strings.ToLower(r.Name), text) || strings.Contains(strings.ToLower(r.Code), text) {
		return true
	}
	return r.Description != nil && strings.Contains(strings.ToLower(*r.Description), text)
}
