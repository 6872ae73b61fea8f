package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/services/servicetest"
)

type memCache struct {
	regions []models.Region
	ok      bool
	gen     int64
	sets    int
}

func (c *memCache) GetRegions(context.Context) ([]models.Region, bool, error) {
	return c.regions, c.ok, nil
}

func (c *memCache) Generation(context.Context) (int64, error) {
	return c.gen, nil
}

func (c *memCache) SetRegions(_ context.Context, gen int64, regions []models.Region) error {
	if gen != c.gen {
		return nil
	}
	c.regions, c.ok = regions, true
	c.sets++
	return nil
}

func (c *memCache) InvalidateRegions(context.Context) error {
	c.regions, c.ok = nil, false
	c.gen++
	return nil
}

// gatedRegions holds List after it has read the rows until release is closed.
type gatedRegions struct {
	*servicetest.Regions
	listing chan struct{}
	release chan struct{}
}

func (g *gatedRegions) List(ctx context.Context) ([]models.Region, error) {
	rows, err := g.Regions.List(ctx)
	select {
	case g.listing <- struct{}{}:
	default:
	}
	<-g.release
	return rows, err
}

func testRegions() *servicetest.Regions {
	ohrid := servicetest.Region("mk-46", "Ohrid", 51428)
	desc := "Lake Ohrid, UNESCO heritage"
	ohrid.Description = &desc
	noPop := servicetest.Region("mk-99x", "Zelenikovo", 0)
	noPop.Population = nil
	return servicetest.NewRegions(
		servicetest.Region("mk-01", "Aračinovo", 11233),
		servicetest.Region("MK-03", "Bitola", 74550),
		ohrid,
		noPop,
	)
}

func TestGetRegionCaseInsensitive(t *testing.T) {
	catalog := NewCatalog(testRegions(), nil, logger.Nop())
	ctx := context.Background()

	for _, code := range []string{"mk-46", "MK-46", " Mk-46 "} {
		r, err := catalog.GetRegion(ctx, code)
		if err != nil || r.Name != "Ohrid" {
			t.Errorf("GetRegion(%q) = %q, %v", code, r.Name, err)
		}
	}
	// Stored upper-case code found through the folded lookup.
	if r, err := catalog.GetRegion(ctx, "mk-03"); err != nil || r.Code != "MK-03" {
		t.Errorf("GetRegion(mk-03) = %+v, %v", r, err)
	}
	for _, code := range []string{"mk-999", "", "   "} {
		if _, err := catalog.GetRegion(ctx, code); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetRegion(%q) error = %v, want ErrNotFound", code, err)
		}
	}
}

func TestGetRegionStoreFailure(t *testing.T) {
	regions := testRegions()
	regions.Err = errors.New("db down")
	catalog := NewCatalog(regions, nil, logger.Nop())

	if _, err := catalog.GetRegion(context.Background(), "mk-46"); !errors.Is(err, ErrStore) {
		t.Errorf("GetRegion() error = %v, want ErrStore", err)
	}
	if _, err := catalog.ListRegions(context.Background()); !errors.Is(err, ErrStore) {
		t.Errorf("ListRegions() error = %v, want ErrStore", err)
	}
}

func TestListRegionsUsesCache(t *testing.T) {
	regions := testRegions()
	cache := &memCache{}
	catalog := NewCatalog(regions, cache, logger.Nop())
	ctx := context.Background()

	first, err := catalog.ListRegions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cache.sets != 1 || len(first) != 4 {
		t.Fatalf("cache sets = %d, regions = %d", cache.sets, len(first))
	}

	regions.Err = errors.New("db down")
	if _, err := catalog.ListRegions(ctx); err != nil {
		t.Errorf("cached ListRegions() error = %v", err)
	}
	if n, err := catalog.Total(ctx); err != nil || n != 4 {
		t.Errorf("Total() = %d, %v", n, err)
	}

	catalog.Invalidate(ctx)
	if _, err := catalog.ListRegions(ctx); !errors.Is(err, ErrStore) {
		t.Errorf("ListRegions() after invalidate error = %v, want ErrStore", err)
	}
}

func TestListRegionsDropsWriteAfterConcurrentEdit(t *testing.T) {
	repo := &gatedRegions{
		Regions: testRegions(),
		listing: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache := &memCache{}
	catalog := NewCatalog(repo, cache, logger.Nop())
	editor := NewRegionEditor(repo, catalog, nil, &servicetest.Audit{}, 0, logger.Nop())
	admin := &models.Session{UserID: uuid.New(), IsAdmin: true}
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := catalog.ListRegions(ctx)
		done <- err
	}()

	// The reader holds the pre-edit rows while the edit commits.
	<-repo.listing
	if _, err := editor.Update(ctx, admin, "mk-46", models.RegionPatch{Name: strPtr("Ohrid Lake")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("ListRegions() error = %v", err)
	}

	if cache.ok {
		t.Error("stale region list was cached after the edit")
	}
	regions, err := catalog.ListRegions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range regions {
		if r.Code == "mk-46" && r.Name != "Ohrid Lake" {
			t.Errorf("mk-46 name = %q, want the edited name", r.Name)
		}
	}
}

func TestResolveName(t *testing.T) {
	catalog := NewCatalog(testRegions(), nil, logger.Nop())
	ctx := context.Background()

	for _, name := range []string{"Ohrid", " ohrid ", "OHRID"} {
		if code, err := catalog.ResolveName(ctx, name); err != nil || code != "mk-46" {
			t.Errorf("ResolveName(%q) = %q, %v", name, code, err)
		}
	}
	if code, err := catalog.ResolveName(ctx, "aračinovo"); err != nil || code != "mk-01" {
		t.Errorf("ResolveName(aračinovo) = %q, %v", code, err)
	}
	for _, name := range []string{"Ohri", ""} {
		if _, err := catalog.ResolveName(ctx, name); !errors.Is(err, ErrNotFound) {
			t.Errorf("ResolveName(%q) error = %v, want ErrNotFound", name, err)
		}
	}
}

func codesOf(regions []models.Region) string {
	codes := make([]string, len(regions))
	for i, r := range regions {
		codes[i] = r.Code
	}
	return strings.Join(codes, ",")
}

func TestFilterRegions(t *testing.T) {
	all, _ := testRegions().List(context.Background())
	visited := map[string]bool{"mk-46": true, "mk-03": true}

	tests := []struct {
		name  string
		query RegionQuery
		want  string
	}{
		{"default sort by name", RegionQuery{}, "mk-01,MK-03,mk-46,mk-99x"},
		{"population desc, nil last", RegionQuery{Sort: SortByPopulation}, "MK-03,mk-46,mk-01,mk-99x"},
		{"by code", RegionQuery{Sort: SortByCode}, "MK-03,mk-01,mk-46,mk-99x"},
		{"text on name", RegionQuery{Text: "bit"}, "MK-03"},
		{"text on description", RegionQuery{Text: "unesco"}, "mk-46"},
		{"text on code", RegionQuery{Text: "MK-0"}, "mk-01,MK-03"},
		{"visited only", RegionQuery{Filter: VisitedOnly, Visited: visited}, "MK-03,mk-46"},
		{"unvisited only", RegionQuery{Filter: UnvisitedOnly, Visited: visited}, "mk-01,mk-99x"},
		{"no match", RegionQuery{Text: "skopje"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := codesOf(FilterRegions(all, tt.query)); got != tt.want {
				t.Errorf("FilterRegions() = %s, want %s", got, tt.want)
			}
		})
	}
}
