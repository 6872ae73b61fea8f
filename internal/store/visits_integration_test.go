//go:build integration

// Run with: POSTGRES_TEST_URI=postgres://... go test -tags integration ./internal/store/
package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/visited-regions-backend/internal/database"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

type pgFixture struct {
	store  *Store
	userID uuid.UUID
	codes  []string // region codes created for this test, stored upper-case
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	uri := os.Getenv("POSTGRES_TEST_URI")
	if uri == "" {
		t.Skip("POSTGRES_TEST_URI not set")
	}
	ctx := context.Background()
	db, err := database.ConnectPostgres(ctx, uri)
	if err != nil {
		t.Fatalf("ConnectPostgres() error = %v", err)
	}
	st := New(db)

	prefix := "T" + strings.ToUpper(uuid.NewString()[:8])
	f := &pgFixture{store: st}
	for _, n := range []string{"-A", "-B", "-C"} {
		code := prefix + n
		if err := st.Regions.Upsert(ctx, models.Region{Code: code, Name: code}); err != nil {
			t.Fatal(err)
		}
		f.codes = append(f.codes, code)
	}
	user, err := st.Users.Create(ctx, models.User{
		ID: uuid.New(), Name: "Integration", Email: strings.ToLower(prefix) + "@example.mk", PasswordHash: "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	f.userID = user.ID

	t.Cleanup(func() {
		db.Exec(`DELETE FROM users WHERE id = $1`, f.userID)
		db.Exec(`DELETE FROM regions WHERE code LIKE $1`, prefix+"%")
		db.Close()
	})
	return f
}

func (f *pgFixture) visited(t *testing.T) []string {
	t.Helper()
	entries, err := f.store.Visits.ListEntries(context.Background(), f.userID)
	if err != nil {
		t.Fatal(err)
	}
	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.RegionCode
	}
	sort.Strings(codes)
	return codes
}

func TestVisitTxCommitsInsertAndDelete(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	a, b, c := f.codes[0], f.codes[1], f.codes[2]

	err := f.store.Visits.InTx(ctx, func(tx VisitTx) error {
		n, err := tx.Insert(ctx, f.userID, []string{a, b})
		if err != nil || n != 2 {
			t.Errorf("Insert() = %d, %v", n, err)
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = f.store.Visits.InTx(ctx, func(tx VisitTx) error {
		existing, err := tx.ExistingRegionCodes(ctx, []string{strings.ToLower(c), "no-such-region"})
		if err != nil {
			return err
		}
		if len(existing) != 1 || existing[0] != c {
			t.Errorf("ExistingRegionCodes() = %v, want [%s]", existing, c)
		}
		added, err := tx.Insert(ctx, f.userID, []string{b, c})
		if err != nil {
			return err
		}
		removed, err := tx.Delete(ctx, f.userID, []string{a})
		if err != nil {
			return err
		}
		if added != 1 || removed != 1 {
			t.Errorf("added, removed = %d, %d, want 1, 1", added, removed)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := f.visited(t); strings.Join(got, ",") != b+","+c {
		t.Errorf("visits = %v, want [%s %s]", got, b, c)
	}
}

func TestVisitTxRollsBackOnError(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.store.Visits.InTx(ctx, func(tx VisitTx) error {
		if _, err := tx.Insert(ctx, f.userID, f.codes); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}
	if got := f.visited(t); len(got) != 0 {
		t.Errorf("visits after rollback = %v, want none", got)
	}

	// A failing statement inside the transaction undoes the earlier insert too.
	err = f.store.Visits.InTx(ctx, func(tx VisitTx) error {
		if _, err := tx.Insert(ctx, f.userID, f.codes[:1]); err != nil {
			return err
		}
		_, err := tx.Insert(ctx, f.userID, []string{"no-such-region"})
		return err
	})
	if err == nil {
		t.Fatal("InTx() error = nil, want foreign key violation")
	}
	if got := f.visited(t); len(got) != 0 {
		t.Errorf("visits after failed statement = %v, want none", got)
	}
}

func TestVisitTxLocksUserRows(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	a, b := f.codes[0], f.codes[1]
	if err := f.store.Visits.InTx(ctx, func(tx VisitTx) error {
		_, err := tx.Insert(ctx, f.userID, []string{a})
		return err
	}); err != nil {
		t.Fatal(err)
	}

	locked := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- f.store.Visits.InTx(ctx, func(tx VisitTx) error {
			if _, err := tx.CurrentCodes(ctx, f.userID); err != nil {
				return err
			}
			if _, err := tx.Insert(ctx, f.userID, []string{b}); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	seen := make(chan []string, 1)
	second := make(chan error, 1)
	go func() {
		second <- f.store.Visits.InTx(ctx, func(tx VisitTx) error {
			codes, err := tx.CurrentCodes(ctx, f.userID)
			seen <- codes
			return err
		})
	}()

	select {
	case codes := <-seen:
		t.Fatalf("second transaction read %v while rows were locked", codes)
	case <-time.After(200 * time.Millisecond):
	}
	close(release)
	if err := <-first; err != nil {
		t.Fatal(err)
	}
	if err := <-second; err != nil {
		t.Fatal(err)
	}
	// READ COMMITTED: the blocked FOR UPDATE returns the re-checked locked row.
	codes := <-seen
	if len(codes) == 0 || codes[0] != a {
		t.Errorf("second transaction saw %v, want it to include %s", codes, a)
	}
}
