package editor

import (
	"sync"
	"time"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// Session is one player's live verb-editing state. Exactly zero or
// one exists per player at any time; the Store owns the lifecycle.
type Session struct {
	Owner        moodb.ObjID
	Target       Resolved
	Buf          *Buffer
	Opened       time.Time
	LastModified time.Time
	LastActive   time.Time

	// SubstOnCompile enables the deterministic text-substitution pass
	// over a private copy of the buffer at compile time.
	SubstOnCompile bool
}

// Dirty reports whether the session has uncommitted edits.
func (s *Session) Dirty() bool { return s.Buf.Dirty() }

// Touch stamps the session as recently used.
func (s *Session) Touch(now time.Time) { s.LastActive = now }

// Store is the process-wide registry of editing sessions, keyed by
// player. The game loop is single-threaded, but the admin API reads
// sessions from other goroutines, hence the mutex.
type Store struct {
	mu       sync.Mutex
	sessions map[moodb.ObjID]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[moodb.ObjID]*Session)}
}

// Open starts a session for owner over the given source lines. Any
// existing session, clean or dirty, blocks the load with
// ErrPendingSession; the caller must compile or abort it first.
func (st *Store) Open(owner moodb.ObjID, target Resolved, lines []string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[owner]; ok {
		return nil, ErrPendingSession
	}
	now := time.Now()
	s := &Session{
		Owner:      owner,
		Target:     target,
		Buf:        NewBuffer(lines),
		Opened:     now,
		LastActive: now,
	}
	st.sessions[owner] = s
	return s, nil
}

// Get returns owner's session, or ErrNothingLoaded.
func (st *Store) Get(owner moodb.ObjID) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[owner]
	if !ok {
		return nil, ErrNothingLoaded
	}
	return s, nil
}

// Abort removes owner's session regardless of dirty state.
func (st *Store) Abort(owner moodb.ObjID) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[owner]; !ok {
		return ErrNothingLoaded
	}
	delete(st.sessions, owner)
	return nil
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// All returns a snapshot of the live sessions (for the admin API).
func (st *Store) All() []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// Sweep evicts sessions idle longer than maxIdle and returns the
// owners whose sessions were dropped. A maxIdle of zero disables
// eviction entirely: by default abandoned sessions persist so a
// player can reconnect and pick up where they left off. Callers drive
// the sweep explicitly (a ticker in the server); eviction never
// happens as a hidden side effect of another operation.
func (st *Store) Sweep(maxIdle time.Duration, now time.Time) []moodb.ObjID {
	if maxIdle <= 0 {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	var evicted []moodb.ObjID
	for owner, s := range st.sessions {
		if now.Sub(s.LastActive) > maxIdle {
			delete(st.sessions, owner)
			evicted = append(evicted, owner)
		}
	}
	return evicted
}
