package models

import (
	"time"

	"github.com/lib/pq"
)

// Region is a municipality on the map, keyed by its short code (e.g. "mk-46").
type Region struct {
	ID               int            `db:"id" json:"id"`
	Code             string         `db:"code" json:"code"`
	Name             string         `db:"name" json:"name"`
	Population       *int           `db:"population" json:"population,omitempty"`
	ShortDescription *string        `db:"short_description" json:"short_description,omitempty"`
	Description      *string        `db:"description" json:"description,omitempty"`
	PlacesToVisit    *string        `db:"places_to_visit" json:"places_to_visit,omitempty"`
	Images           pq.StringArray `db:"images" json:"images"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// RegionPatch is a partial update of a region. Nil fields are left untouched.
type RegionPatch struct {
	Name             *string   `json:"name,omitempty" validate:"omitnil,min=1,max=100"`
	Population       *int      `json:"population,omitempty" validate:"omitnil,min=0,max=2147483647"`
	ShortDescription *string   `json:"short_description,omitempty" validate:"omitnil,max=200"`
	Description      *string   `json:"description,omitempty" validate:"omitnil,max=2000"`
	PlacesToVisit    *string   `json:"places_to_visit,omitempty" validate:"omitnil,max=1000"`
	Images           *[]string `json:"images,omitempty" validate:"omitnil,max=20,dive,http_url,max=500"`
}

// Empty reports whether the patch carries no field at all.
func (p RegionPatch) Empty() bool {
	return p.Name == nil && p.Population == nil && p.ShortDescription == nil &&
		p.Description == nil && p.PlacesToVisit == nil && p.Images == nil
}

// Fields lists the names of the fields present in the patch.
func (p RegionPatch) Fields() []string {
	var out []string
	if p.Name != nil {
		out = append(out, "name")
	}
	if p.Population != nil {
		out = append(out, "population")
	}
	if p.ShortDescription != nil {
		out = append(out, "short_description")
	}
	if p.Description != nil {
		out = append(out, "description")
	}
	if p.PlacesToVisit != nil {
		out = append(out, "places_to_visit")
	}
	if p.Images != nil {
		out = append(out, "images")
	}
	return out
}
