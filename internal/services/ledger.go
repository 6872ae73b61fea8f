package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/store"
)

// VisitRepository is the persistence the ledger needs.
type VisitRepository interface {
	ListEntries(ctx context.Context, userID uuid.UUID) ([]models.VisitEntry, error)
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	InTx(ctx context.Context, fn func(tx store.VisitTx) error) error
}

// VisitNotifier is told about every committed change to a user's visits.
type VisitNotifier interface {
	PublishVisitsChanged(ctx context.Context, userID uuid.UUID, result models.ReconcileResult) error
}

// Ledger owns the per-user set of visited regions.
type Ledger struct {
	visits  VisitRepository
	catalog *Catalog
	events  VisitNotifier
	log     logger.Logger
}

func NewLedger(visits VisitRepository, catalog *Catalog, events VisitNotifier, log logger.Logger) *Ledger {
	return &Ledger{visits: visits, catalog: catalog, events: events, log: log}
}

// ListVisits returns the signed-in user's visits with region names.
func (l *Ledger) ListVisits(ctx context.Context, sess *models.Session) ([]models.VisitEntry, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	entries, err := l.visits.ListEntries(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return entries, nil
}

// Reconcile makes the user's persisted visits equal to desired, minus codes
// that are not in the catalog. Inserts and deletes commit together or not at all.
func (l *Ledger) Reconcile(ctx context.Context, sess *models.Session, desired []string) (models.ReconcileResult, error) {
	if sess == nil {
		return models.ReconcileResult{}, ErrUnauthorized
	}
	normalized := NormalizeCodes(desired)

	var result models.ReconcileResult
	err := l.visits.InTx(ctx, func(tx store.VisitTx) error {
		current, err := tx.CurrentCodes(ctx, sess.UserID)
		if err != nil {
			return err
		}
		existing, err := tx.ExistingRegionCodes(ctx, normalized)
		if err != nil {
			return err
		}

		// Keyed by lower-cased code; values are the codes as stored.
		stored := make(map[string]string, len(existing)+len(current))
		for _, code := range existing {
			stored[strings.ToLower(code)] = code
		}
		known := make([]string, 0, len(normalized))
		for _, code := range normalized {
			if _, ok := stored[code]; ok {
				known = append(known, code)
			}
		}
		currentLower := make([]string, 0, len(current))
		for _, code := range current {
			lc := strings.ToLower(code)
			stored[lc] = code
			currentLower = append(currentLower, lc)
		}

		toAdd, toRemove := Diff(currentLower, known)
		added, err := tx.Insert(ctx, sess.UserID, storedCodes(toAdd, stored))
		if err != nil {
			return err
		}
		removed, err := tx.Delete(ctx, sess.UserID, storedCodes(toRemove, stored))
		if err != nil {
			return err
		}
		result = models.ReconcileResult{Added: added, Removed: removed}
		return nil
	})
	if err != nil {
		l.log.Error("reconcile visits failed", logger.String("user_id", sess.UserID.String()), logger.Error(err))
		if errors.Is(err, store.ErrCommit) {
			return models.ReconcileResult{}, fmt.Errorf("%w: %v", ErrPartialReconcile, err)
		}
		return models.ReconcileResult{}, fmt.Errorf("%w: %v", ErrStore, err)
	}

	if l.events != nil && (result.Added > 0 || result.Removed > 0) {
		if err := l.events.PublishVisitsChanged(ctx, sess.UserID, result); err != nil {
			l.log.Warn("publish visits_changed failed", logger.Error(err))
		}
	}
	return result, nil
}

// Progress reports how many catalog regions the user has visited.
func (l *Ledger) Progress(ctx context.Context, sess *models.Session) (models.Progress, error) {
	if sess == nil {
		return models.Progress{}, ErrUnauthorized
	}
	visited, err := l.visits.Count(ctx, sess.UserID)
	if err != nil {
		return models.Progress{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	total, err := l.catalog.Total(ctx)
	if err != nil {
		return models.Progress{}, err
	}
	return NewProgress(visited, total), nil
}

// NewProgress computes the percentage rounded to one decimal.
func NewProgress(visited, total int) models.Progress {
	p := models.Progress{Visited: visited, Total: total}
	if total > 0 {
		p.Percent = math.Round(float64(visited)/float64(total)*1000) / 10
	}
	return p
}

// NormalizeCodes lower-cases and trims each code, dropping blanks and
// duplicates while keeping first-seen order.
func NormalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Diff returns desired − current and current − desired.
func Diff(current, desired []string) (toAdd, toRemove []string) {
	cur := make(map[string]struct{}, len(current))
	for _, c := range current {
		cur[c] = struct{}{}
	}
	want := make(map[string]struct{}, len(desired))
	for _, d := range desired {
		want[d] = struct{}{}
		if _, ok := cur[d]; !ok {
			toAdd = append(toAdd, d)
		}
	}
	for _, c := range current {
		if _, ok := want[c]; !ok {
			toRemove = append(toRemove, c)
		}
	}
	return toAdd, toRemove
}

// VisitedCodes extracts the region codes from a visit listing.
func VisitedCodes(entries []models.VisitEntry) []string {
	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.RegionCode
	}
	return codes
}

func storedCodes(lower []string, stored map[string]string) []string {
	out := make([]string, 0, len(lower))
	for _, c := range lower {
		out = append(out, stored[c])
	}
	return out
}
