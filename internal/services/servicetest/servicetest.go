// Package servicetest provides in-memory implementations of the repositories
// and collaborators the services depend on, for use in tests.
package servicetest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/store"
)

// Regions is an in-memory region table.
type Regions struct {
	mu      sync.Mutex
	regions map[string]models.Region
	nextID  int
	// Err, when set, is returned by every call.
	Err error
	// AppendErr fails AppendImage only.
	AppendErr error
}

func NewRegions(regions ...models.Region) *Regions {
	r := &Regions{regions: make(map[string]models.Region)}
	for _, region := range regions {
		r.Put(region)
	}
	return r
}

// Region is a shorthand for a catalog entry with a name and population.
func Region(code, name string, population int) models.Region {
	return models.Region{Code: code, Name: name, Population: &population, Images: pq.StringArray{}}
}

// Put inserts or replaces a region.
func (r *Regions) Put(region models.Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if region.ID == 0 {
		r.nextID++
		region.ID = r.nextID
	}
	if region.Images == nil {
		region.Images = pq.StringArray{}
	}
	r.regions[region.Code] = region
}

func (r *Regions) List(ctx context.Context) ([]models.Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]models.Region, 0, len(r.regions))
	for _, region := range r.regions {
		out = append(out, clone(region))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Regions) GetByCode(ctx context.Context, code string) (models.Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return models.Region{}, r.Err
	}
	region, ok := r.regions[code]
	if !ok {
		return models.Region{}, store.ErrNotFound
	}
	return clone(region), nil
}

func (r *Regions) GetByCodeFold(ctx context.Context, code string) (models.Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return models.Region{}, r.Err
	}
	for c, region := range r.regions {
		if strings.EqualFold(c, code) {
			return clone(region), nil
		}
	}
	return models.Region{}, store.ErrNotFound
}

func (r *Regions) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	return len(r.regions), nil
}

func (r *Regions) Update(ctx context.Context, code string, patch models.RegionPatch) (models.Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return models.Region{}, r.Err
	}
	region, ok := r.regions[code]
	if !ok {
		return models.Region{}, store.ErrNotFound
	}
	if patch.Name != nil {
		region.Name = *patch.Name
	}
	if patch.Population != nil {
		region.Population = patch.Population
	}
	if patch.ShortDescription != nil {
		region.ShortDescription = patch.ShortDescription
	}
	if patch.Description != nil {
		region.Description = patch.Description
	}
	if patch.PlacesToVisit != nil {
		region.PlacesToVisit = patch.PlacesToVisit
	}
	if patch.Images != nil {
		region.Images = append(pq.StringArray{}, *patch.Images...)
	}
	region.UpdatedAt = time.Now()
	r.regions[code] = region
	return clone(region), nil
}

func (r *Regions) AppendImage(ctx context.Context, code, url string) (models.Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AppendErr != nil {
		return models.Region{}, r.AppendErr
	}
	region, ok := r.regions[code]
	if !ok {
		return models.Region{}, store.ErrNotFound
	}
	region.Images = append(append(pq.StringArray{}, region.Images...), url)
	r.regions[code] = region
	return clone(region), nil
}

func (r *Regions) RemoveImage(ctx context.Context, code, url string) (models.Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	region, ok := r.regions[code]
	if !ok {
		return models.Region{}, store.ErrNotFound
	}
	kept := pq.StringArray{}
	for _, img := range region.Images {
		if img != url {
			kept = append(kept, img)
		}
	}
	region.Images = kept
	r.regions[code] = region
	return clone(region), nil
}

// Codes returns the stored codes, sorted.
func (r *Regions) Codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.regions))
	for c := range r.regions {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func clone(region models.Region) models.Region {
	region.Images = append(pq.StringArray{}, region.Images...)
	return region
}

// Visits is an in-memory user_visits table with all-or-nothing transactions.
type Visits struct {
	mu      sync.Mutex
	regions *Regions
	rows    map[uuid.UUID][]string

	// Failure injection for InTx.
	InsertErr error
	DeleteErr error
	CommitErr error
	ListErr   error
}

func NewVisits(regions *Regions) *Visits {
	return &Visits{regions: regions, rows: make(map[uuid.UUID][]string)}
}

// Set replaces a user's stored codes.
func (v *Visits) Set(userID uuid.UUID, codes ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows[userID] = append([]string(nil), codes...)
}

// Codes returns a user's stored codes, sorted.
func (v *Visits) Codes(userID uuid.UUID) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := append([]string{}, v.rows[userID]...)
	sort.Strings(out)
	return out
}

func (v *Visits) ListEntries(ctx context.Context, userID uuid.UUID) ([]models.VisitEntry, error) {
	if v.ListErr != nil {
		return nil, v.ListErr
	}
	codes := v.Codes(userID)
	entries := make([]models.VisitEntry, 0, len(codes))
	for _, code := range codes {
		region, err := v.regions.GetByCode(ctx, code)
		if err != nil {
			continue
		}
		entries = append(entries, models.VisitEntry{RegionCode: code, RegionName: region.Name})
	}
	return entries, nil
}

func (v *Visits) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	return len(v.Codes(userID)), nil
}

func (v *Visits) InTx(ctx context.Context, fn func(tx store.VisitTx) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	work := make(map[uuid.UUID][]string, len(v.rows))
	for id, codes := range v.rows {
		work[id] = append([]string(nil), codes...)
	}
	tx := &visitTx{v: v, rows: work}
	if err := fn(tx); err != nil {
		return err
	}
	if v.CommitErr != nil {
		return fmt.Errorf("%w: %v", store.ErrCommit, v.CommitErr)
	}
	v.rows = work
	return nil
}

type visitTx struct {
	v    *Visits
	rows map[uuid.UUID][]string
}

func (t *visitTx) CurrentCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return append([]string{}, t.rows[userID]...), nil
}

func (t *visitTx) ExistingRegionCodes(ctx context.Context, lowerCodes []string) ([]string, error) {
	want := make(map[string]bool, len(lowerCodes))
	for _, c := range lowerCodes {
		want[c] = true
	}
	out := []string{}
	for _, code := range t.v.regions.Codes() {
		if want[strings.ToLower(code)] {
			out = append(out, code)
		}
	}
	return out, nil
}

func (t *visitTx) Insert(ctx context.Context, userID uuid.UUID, codes []string) (int, error) {
	if t.v.InsertErr != nil {
		return 0, t.v.InsertErr
	}
	have := make(map[string]bool)
	for _, c := range t.rows[userID] {
		have[c] = true
	}
	n := 0
	for _, c := range codes {
		if have[c] {
			continue
		}
		have[c] = true
		t.rows[userID] = append(t.rows[userID], c)
		n++
	}
	return n, nil
}

func (t *visitTx) Delete(ctx context.Context, userID uuid.UUID, codes []string) (int, error) {
	if t.v.DeleteErr != nil {
		return 0, t.v.DeleteErr
	}
	drop := make(map[string]bool, len(codes))
	for _, c := range codes {
		drop[c] = true
	}
	kept := t.rows[userID][:0:0]
	n := 0
	for _, c := range t.rows[userID] {
		if drop[c] {
			n++
			continue
		}
		kept = append(kept, c)
	}
	t.rows[userID] = kept
	return n, nil
}

// Users is an in-memory users table.
type Users struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func NewUsers() *Users {
	return &Users{users: make(map[uuid.UUID]models.User)}
}

func (u *Users) Create(ctx context.Context, user models.User) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return models.User{}, store.ErrDuplicate
		}
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	u.users[user.ID] = user
	return user, nil
}

func (u *Users) GetByEmail(ctx context.Context, email string) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (u *Users) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return user, nil
}

// Sessions is an in-memory session store keeping one session per user.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	Err      error
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]models.Session)}
}

func (s *Sessions) Create(ctx context.Context, sess models.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	for token, existing := range s.sessions {
		if existing.UserID == sess.UserID {
			delete(s.sessions, token)
		}
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	s.sessions[token] = sess
	return token, nil
}

func (s *Sessions) Get(ctx context.Context, token string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sess, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *Sessions) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Images is an in-memory object store serving https://img.test/{key}.
type Images struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	PutErr  error
}

func NewImages() *Images {
	return &Images{Objects: make(map[string][]byte), Types: make(map[string]string)}
}

func (i *Images) Put(ctx context.Context, data []byte, key, contentType string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.PutErr != nil {
		return "", i.PutErr
	}
	i.Objects[key] = data
	i.Types[key] = contentType
	return "https://img.test/" + key, nil
}

func (i *Images) Delete(ctx context.Context, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.Objects[key]; !ok {
		return errors.New("object not found")
	}
	delete(i.Objects, key)
	delete(i.Types, key)
	return nil
}

// Audit records region edits in memory.
type Audit struct {
	mu    sync.Mutex
	Edits []models.RegionEdit
}

func (a *Audit) Record(ctx context.Context, edit models.RegionEdit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Edits = append(a.Edits, edit)
	return nil
}

func (a *Audit) History(ctx context.Context, code string, limit int64) ([]models.RegionEdit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []models.RegionEdit{}
	for i := len(a.Edits) - 1; i >= 0; i-- {
		if a.Edits[i].RegionCode == code {
			out = append(out, a.Edits[i])
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Notifier collects visits_changed notifications.
type Notifier struct {
	mu      sync.Mutex
	Results []models.ReconcileResult
}

func (n *Notifier) PublishVisitsChanged(ctx context.Context, userID uuid.UUID, result models.ReconcileResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Results = append(n.Results, result)
	return nil
}
