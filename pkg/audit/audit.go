package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit trail record.
type Entry struct {
	ID       string            `json:"id"`
	Time     time.Time         `json:"time"`
	Event    string            `json:"event"`
	Message  string            `json:"message"`
	JobID    string            `json:"job_id,omitempty"`
	NodeID   string            `json:"node_id,omitempty"`
	ClientID string            `json:"client_id,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Log records farm state transitions. Entries are kept in a bounded
// in-memory window and optionally appended to a persistent Store.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
	store   Store
}

// Store is the persistence hook for audit entries.
type Store interface {
	Append(e Entry) error
	Close() error
}

// New creates a log retaining at most max in-memory entries.
func New(max int) *Log {
	if max <= 0 {
		max = 1000
	}
	return &Log{max: max}
}

// WithStore attaches a persistent store. Entries recorded from now on are
// also appended to it.
func (l *Log) WithStore(store Store) *Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store = store
	return l
}

// Record adds an entry, assigning its id and timestamp if unset.
func (l *Log) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}

	if l.store != nil {
		// Persistence is best-effort; the in-memory trail is canonical
		// for the process lifetime.
		_ = l.store.Append(e)
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail returns the most recent n entries, oldest first.
func (l *Log) Tail(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}
