package models

import (
	"time"

	"github.com/google/uuid"
)

// Visit marks a region as visited by a user. At most one row per (user, region).
type Visit struct {
	ID         int       `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	RegionCode string    `db:"region_code" json:"region_code"`
	VisitedAt  time.Time `db:"visited_at" json:"visited_at"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	Rating     *int      `db:"rating" json:"rating,omitempty"`
	IsPublic   bool      `db:"is_public" json:"is_public"`
}

// VisitEntry is a visit joined with the region's display name.
type VisitEntry struct {
	RegionCode string    `db:"region_code" json:"region_code"`
	RegionName string    `db:"region_name" json:"region_name"`
	VisitedAt  time.Time `db:"visited_at" json:"visited_at"`
}

// ReconcileResult reports how many visits a save added and removed.
type ReconcileResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Progress summarises how much of the catalog a user has visited.
type Progress struct {
	Visited int     `json:"visited"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}
