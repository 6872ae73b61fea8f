// Package visitsync keeps a client's visited-region set in step with the
// server ledger.
//
// A Tracker moves between four states:
//
//	Clean      the local set mirrors the last state read from or written to the server
//	Dirty      local edits have not been saved since the last toggle
//	Saving     a save is in flight
//	LoadFailed the initial fetch failed; call Load again to retry
//
// Dirty tracks "a toggle happened since the last save", not a net difference:
// toggling a region on and off again leaves the tracker Dirty.
package visitsync

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

type State int

const (
	Clean State = iota
	Dirty
	Saving
	LoadFailed
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	case LoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

var (
	// ErrBusy is returned when the set is edited while a save is in flight.
	ErrBusy = errors.New("visitsync: save in progress")
	// ErrNotLoaded is returned when the set is edited before a successful load.
	ErrNotLoaded = errors.New("visitsync: visits not loaded")
)

// SaveResult mirrors the server's reconcile counts.
type SaveResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Backend is the server side of the protocol.
type Backend interface {
	// Fetch returns the codes currently persisted for the signed-in user.
	Fetch(ctx context.Context) ([]string, error)
	// Replace sends the full desired set.
	Replace(ctx context.Context, codes []string) (SaveResult, error)
}

// Tracker owns the visited set of one signed-in session. It is safe for
// concurrent use.
type Tracker struct {
	backend Backend
	// loads joins concurrent Load calls of one session onto a single fetch.
	loads singleflight.Group

	mu      sync.Mutex
	state   State
	visited map[string]struct{}
	server  map[string]struct{} // last known server set
	loaded  bool
	// session is bumped by Logout so late load or save results from the
	// previous session are dropped.
	session uint64
}

func NewTracker(backend Backend) *Tracker {
	return &Tracker{
		backend: backend,
		state:   Clean,
		visited: map[string]struct{}{},
		server:  map[string]struct{}{},
	}
}

// Load fetches the server set once per session. After a successful load
// further calls return nil without fetching, so local edits are never
// clobbered. A failed load leaves the tracker in LoadFailed. Calls made while
// a fetch is in flight wait for it and return its error.
func (t *Tracker) Load(ctx context.Context) error {
	t.mu.Lock()
	if t.loaded {
		t.mu.Unlock()
		return nil
	}
	session := t.session
	t.mu.Unlock()

	_, err, _ := t.loads.Do(strconv.FormatUint(session, 10), func() (interface{}, error) {
		return nil, t.load(ctx, session)
	})
	return err
}

func (t *Tracker) load(ctx context.Context, session uint64) error {
	t.mu.Lock()
	if t.loaded || session != t.session {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	codes, err := t.backend.Fetch(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if session != t.session {
		return nil
	}
	if err != nil {
		// A cancelled caller did not observe a server failure.
		if !errors.Is(err, context.Canceled) {
			t.state = LoadFailed
		}
		return err
	}
	t.server = toSet(codes)
	t.visited = copySet(t.server)
	t.loaded = true
	t.state = Clean
	return nil
}

// Toggle flips membership of code and reports whether it is now visited.
func (t *Tracker) Toggle(code string) (bool, error) {
	code = normalize(code)
	if code == "" {
		return false, errors.New("visitsync: empty region code")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.state == Saving:
		return false, ErrBusy
	case t.state == LoadFailed || !t.loaded:
		return false, ErrNotLoaded
	}

	_, on := t.visited[code]
	if on {
		delete(t.visited, code)
	} else {
		t.visited[code] = struct{}{}
	}
	t.state = Dirty
	return !on, nil
}

// Save sends the local set when Dirty and is a no-op otherwise. The server
// set is updated optimistically and restored if the request fails; local
// edits are kept either way. The request is not cancelled with ctx so that
// leaving a page does not abort a save halfway.
func (t *Tracker) Save(ctx context.Context) (SaveResult, error) {
	t.mu.Lock()
	if t.state != Dirty {
		t.mu.Unlock()
		return SaveResult{}, nil
	}
	snapshot := t.server
	t.server = copySet(t.visited)
	desired := sortedCodes(t.visited)
	t.state = Saving
	session := t.session
	t.mu.Unlock()

	result, err := t.backend.Replace(context.WithoutCancel(ctx), desired)

	t.mu.Lock()
	defer t.mu.Unlock()
	if session != t.session {
		return result, err
	}
	if err != nil {
		t.server = snapshot
		t.state = Dirty
		return SaveResult{}, err
	}
	t.state = Clean
	return result, nil
}

// Logout discards local edits without saving and resets to an empty Clean set.
func (t *Tracker) Logout() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session++
	t.state = Clean
	t.visited = map[string]struct{}{}
	t.server = map[string]struct{}{}
	t.loaded = false
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Dirty reports whether there are unsaved edits.
func (t *Tracker) Dirty() bool {
	return t.State() == Dirty
}

// Visited returns the local set, sorted.
func (t *Tracker) Visited() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedCodes(t.visited)
}

// Synced returns the last set known to be on the server, sorted.
func (t *Tracker) Synced() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedCodes(t.server)
}

func (t *Tracker) IsVisited(code string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.visited[normalize(code)]
	return ok
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c = normalize(c); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func sortedCodes(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
