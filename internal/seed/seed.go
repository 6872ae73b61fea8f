// Package seed loads the municipality catalog shipped with the binary.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

//go:embed regions.yaml
var regionsYAML []byte

type regionRecord struct {
	Code             string   `yaml:"code"`
	Name             string   `yaml:"name"`
	Population       *int     `yaml:"population"`
	ShortDescription *string  `yaml:"short_description"`
	Description      *string  `yaml:"description"`
	PlacesToVisit    *string  `yaml:"places_to_visit"`
	Images           []string `yaml:"images"`
}

type catalogFile struct {
	Regions []regionRecord `yaml:"regions"`
}

// RegionWriter is satisfied by store.RegionStore.
type RegionWriter interface {
	Upsert(ctx context.Context, r models.Region) error
}

// Regions decodes the embedded catalog.
func Regions() ([]models.Region, error) {
	return parse(regionsYAML)
}

func parse(data []byte) ([]models.Region, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}

	seen := make(map[string]bool, len(file.Regions))
	regions := make([]models.Region, 0, len(file.Regions))
	for i, rec := range file.Regions {
		code := strings.TrimSpace(rec.Code)
		name := strings.TrimSpace(rec.Name)
		if code == "" || name == "" {
			return nil, fmt.Errorf("region #%d: code and name are required", i+1)
		}
		if seen[strings.ToLower(code)] {
			return nil, fmt.Errorf("region %s: duplicate code", code)
		}
		seen[strings.ToLower(code)] = true

		images := pq.StringArray(rec.Images)
		if images == nil {
			images = pq.StringArray{}
		}
		regions = append(regions, models.Region{
			Code:             code,
			Name:             name,
			Population:       rec.Population,
			ShortDescription: rec.ShortDescription,
			Description:      rec.Description,
			PlacesToVisit:    rec.PlacesToVisit,
			Images:           images,
		})
	}
	return regions, nil
}

// Run upserts every embedded region. Existing rows get their fields reset to
// the shipped values; visits are untouched.
func Run(ctx context.Context, w RegionWriter, log logger.Logger) (int, error) {
	regions, err := Regions()
	if err != nil {
		return 0, err
	}
	for _, r := range regions {
		if err := w.Upsert(ctx, r); err != nil {
			return 0, err
		}
	}
	log.Info("seeded regions", logger.Int("count", len(regions)))
	return len(regions), nil
}
