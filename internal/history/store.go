package history

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/unkn0wn-root/reqbox/internal/errdef"
)

// Capacity is the number of entries the log keeps.
const Capacity = 20

// RecordKey is the storage key of the persisted log.
const RecordKey = "sandbox.history"

type Entry struct {
	ID            string `json:"id"`
	Method        string `json:"method"`
	Path          string `json:"path"`
	Status        int    `json:"status"`
	TimestampISO  string `json:"timestampIso"`
	ElapsedMillis int64  `json:"elapsedMillis"`
}

// Timestamp parses TimestampISO, returning the zero time when malformed.
func (e Entry) Timestamp() time.Time {
	ts, err := time.Parse(time.RFC3339Nano, e.TimestampISO)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// NewEntry stamps a summary of a finished dispatch with a fresh id.
func NewEntry(method, path string, status int, elapsedMillis int64, at time.Time) Entry {
	return Entry{
		ID:            ulid.Make().String(),
		Method:        method,
		Path:          path,
		Status:        status,
		TimestampISO:  at.UTC().Format(time.RFC3339Nano),
		ElapsedMillis: elapsedMillis,
	}
}

// Backend persists the whole log as one value.
type Backend interface {
	Read() ([]Entry, bool, error)
	Write(entries []Entry) error
}

// Store is the capped, most-recent-first execution log. Eviction happens by
// insertion order only.
type Store struct {
	backend    Backend
	maxEntries int
	entries    []Entry
	mu         sync.RWMutex
	loaded     bool
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, maxEntries: Capacity}
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoadedLocked()
}

// Append prepends entry, truncates to capacity and persists the result. A
// failed persist keeps the in-memory log and reports a persistence error.
func (s *Store) Append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		// keep recording even when the stored log is unreadable
		s.entries = []Entry{}
		s.loaded = true
		s.insertLocked(entry)
		return err
	}

	s.insertLocked(entry)
	return s.persistLocked()
}

func (s *Store) insertLocked(entry Entry) {
	next := make([]Entry, 0, len(s.entries)+1)
	next = append(next, entry)
	next = append(next, s.entries...)
	if len(next) > s.maxEntries {
		next = next[:s.maxEntries]
	}
	s.entries = next
}

func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copies := make([]Entry, len(s.entries))
	copy(copies, s.entries)
	return copies
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) persistLocked() error {
	if s.backend == nil {
		return nil
	}
	snapshot := make([]Entry, len(s.entries))
	copy(snapshot, s.entries)
	if err := s.backend.Write(snapshot); err != nil {
		return errdef.Wrap(errdef.CodePersistence, err, "persist history")
	}
	return nil
}

func (s *Store) ensureLoadedLocked() error {
	if s.loaded {
		return nil
	}
	if s.backend == nil {
		s.entries = []Entry{}
		s.loaded = true
		return nil
	}

	entries, ok, err := s.backend.Read()
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "read history")
	}
	if !ok || entries == nil {
		entries = []Entry{}
	}
	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}
	s.entries = entries
	s.loaded = true
	return nil
}
