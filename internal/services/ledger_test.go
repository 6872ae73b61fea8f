package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/services/servicetest"
)

func newTestLedger(t *testing.T) (*Ledger, *servicetest.Visits, *servicetest.Notifier, *models.Session) {
	t.Helper()
	regions := servicetest.NewRegions(
		servicetest.Region("mk-01", "Aračinovo", 11233),
		servicetest.Region("mk-46", "Ohrid", 51428),
		servicetest.Region("mk-71", "Štip", 44866),
	)
	visits := servicetest.NewVisits(regions)
	notifier := &servicetest.Notifier{}
	catalog := NewCatalog(regions, nil, logger.Nop())
	sess := &models.Session{UserID: uuid.New()}
	return NewLedger(visits, catalog, notifier, logger.Nop()), visits, notifier, sess
}

func TestNormalizeCodes(t *testing.T) {
	got := NormalizeCodes([]string{"mk-01", "mk-01", " MK-01 ", "", "  ", "Mk-46"})
	want := []string{"mk-01", "mk-46"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeCodes() = %v, want %v", got, want)
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name             string
		current, desired []string
		add, remove      []string
	}{
		{"empty", nil, nil, nil, nil},
		{"add only", nil, []string{"mk-46"}, []string{"mk-46"}, nil},
		{"remove only", []string{"mk-46"}, nil, nil, []string{"mk-46"}},
		{"mixed", []string{"mk-46", "mk-71"}, []string{"mk-71", "mk-01"}, []string{"mk-01"}, []string{"mk-46"}},
		{"unchanged", []string{"mk-46"}, []string{"mk-46"}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			add, remove := Diff(tt.current, tt.desired)
			if !reflect.DeepEqual(add, tt.add) || !reflect.DeepEqual(remove, tt.remove) {
				t.Errorf("Diff() = %v, %v; want %v, %v", add, remove, tt.add, tt.remove)
			}
		})
	}
}

func TestReconcileAddsOhrid(t *testing.T) {
	ledger, visits, notifier, sess := newTestLedger(t)

	res, err := ledger.Reconcile(context.Background(), sess, []string{"mk-46"})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res != (models.ReconcileResult{Added: 1}) {
		t.Errorf("Reconcile() = %+v, want added 1 removed 0", res)
	}
	if got := visits.Codes(sess.UserID); !reflect.DeepEqual(got, []string{"mk-46"}) {
		t.Errorf("stored visits = %v", got)
	}
	if len(notifier.Results) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.Results))
	}
}

func TestReconcileDropsUnknownCodes(t *testing.T) {
	ledger, visits, _, sess := newTestLedger(t)
	visits.Set(sess.UserID, "mk-46", "mk-71")

	res, err := ledger.Reconcile(context.Background(), sess, []string{"mk-71", "mk-99"})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res != (models.ReconcileResult{Removed: 1}) {
		t.Errorf("Reconcile() = %+v, want added 0 removed 1", res)
	}
	if got := visits.Codes(sess.UserID); !reflect.DeepEqual(got, []string{"mk-71"}) {
		t.Errorf("stored visits = %v, want [mk-71]", got)
	}
}

func TestReconcileDuplicatesCollapse(t *testing.T) {
	ledger, visits, _, sess := newTestLedger(t)

	res, err := ledger.Reconcile(context.Background(), sess, []string{"mk-01", "mk-01", " MK-01 "})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
	if got := visits.Codes(sess.UserID); !reflect.DeepEqual(got, []string{"mk-01"}) {
		t.Errorf("stored visits = %v", got)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	ledger, _, notifier, sess := newTestLedger(t)
	desired := []string{"mk-46", "MK-71", "mk-99"}

	if _, err := ledger.Reconcile(context.Background(), sess, desired); err != nil {
		t.Fatal(err)
	}
	res, err := ledger.Reconcile(context.Background(), sess, desired)
	if err != nil {
		t.Fatal(err)
	}
	if res != (models.ReconcileResult{}) {
		t.Errorf("second Reconcile() = %+v, want zero", res)
	}
	if len(notifier.Results) != 1 {
		t.Errorf("notifications = %d, want 1 (no-op saves are silent)", len(notifier.Results))
	}

	entries, err := ledger.ListVisits(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if got := VisitedCodes(entries); !reflect.DeepEqual(got, []string{"mk-46", "mk-71"}) {
		t.Errorf("ListVisits() = %v, want desired ∩ catalog", got)
	}
}

func TestReconcileRollsBack(t *testing.T) {
	ledger, visits, notifier, sess := newTestLedger(t)
	visits.Set(sess.UserID, "mk-46")
	visits.DeleteErr = errors.New("connection reset")

	_, err := ledger.Reconcile(context.Background(), sess, []string{"mk-01"})
	if !errors.Is(err, ErrStore) {
		t.Fatalf("Reconcile() error = %v, want ErrStore", err)
	}
	if got := visits.Codes(sess.UserID); !reflect.DeepEqual(got, []string{"mk-46"}) {
		t.Errorf("stored visits = %v, want insert rolled back", got)
	}
	if len(notifier.Results) != 0 {
		t.Error("failed reconcile must not notify")
	}
}

func TestReconcileCommitFailure(t *testing.T) {
	ledger, visits, _, sess := newTestLedger(t)
	visits.CommitErr = errors.New("server closed the connection")

	_, err := ledger.Reconcile(context.Background(), sess, []string{"mk-01"})
	if !errors.Is(err, ErrPartialReconcile) {
		t.Fatalf("Reconcile() error = %v, want ErrPartialReconcile", err)
	}
}

func TestLedgerRequiresSession(t *testing.T) {
	ledger, _, _, _ := newTestLedger(t)
	ctx := context.Background()

	if entries, err := ledger.ListVisits(ctx, nil); !errors.Is(err, ErrUnauthorized) || entries != nil {
		t.Errorf("ListVisits(nil) = %v, %v; want nil, ErrUnauthorized", entries, err)
	}
	if _, err := ledger.Reconcile(ctx, nil, []string{"mk-46"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Reconcile(nil) error = %v", err)
	}
	if _, err := ledger.Progress(ctx, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Progress(nil) error = %v", err)
	}
}

func TestProgress(t *testing.T) {
	ledger, visits, _, sess := newTestLedger(t)
	visits.Set(sess.UserID, "mk-46")

	p, err := ledger.Progress(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if p != (models.Progress{Visited: 1, Total: 3, Percent: 33.3}) {
		t.Errorf("Progress() = %+v", p)
	}
	if got := NewProgress(0, 0); got.Percent != 0 {
		t.Errorf("NewProgress(0, 0).Percent = %v", got.Percent)
	}
	if got := NewProgress(2, 3); got.Percent != 66.7 {
		t.Errorf("NewProgress(2, 3).Percent = %v", got.Percent)
	}
}
