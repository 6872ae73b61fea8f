package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

func TestEmbeddedCatalog(t *testing.T) {
	regions, err := Regions()
	if err != nil {
		t.Fatalf("Regions() error = %v", err)
	}
	if len(regions) != 71 {
		t.Fatalf("len(regions) = %d, want 71", len(regions))
	}

	byCode := make(map[string]models.Region, len(regions))
	for _, r := range regions {
		byCode[r.Code] = r
	}
	ohrid, ok := byCode["mk-46"]
	if !ok || ohrid.Name != "Ohrid" {
		t.Fatalf("mk-46 = %+v, want Ohrid", ohrid)
	}
	if _, ok := byCode["mk-71"]; !ok {
		t.Error("mk-71 missing from catalog")
	}
	if _, ok := byCode["mk-99"]; ok {
		t.Error("mk-99 must not be in the catalog")
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"missing name":   "regions:\n  - code: mk-01\n",
		"duplicate code": "regions:\n  - {code: mk-01, name: A}\n  - {code: MK-01, name: B}\n",
		"not yaml":       "regions: [",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parse([]byte(input)); err == nil {
				t.Error("parse() error = nil, want error")
			}
		})
	}
}

type recordingWriter struct {
	codes []string
	fail  error
}

func (w *recordingWriter) Upsert(_ context.Context, r models.Region) error {
	if w.fail != nil {
		return w.fail
	}
	w.codes = append(w.codes, r.Code)
	return nil
}

func TestRun(t *testing.T) {
	w := &recordingWriter{}
	n, err := Run(context.Background(), w, logger.Nop())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 71 || len(w.codes) != 71 {
		t.Errorf("Run() = %d upserts (%d recorded), want 71", n, len(w.codes))
	}

	boom := errors.New("db down")
	if _, err := Run(context.Background(), &recordingWriter{fail: boom}, logger.Nop()); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}
