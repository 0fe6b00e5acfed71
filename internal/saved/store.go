// Package saved keeps the operator's named request snapshots.
//
// Entries are immutable once created: there is no update, so re-saving an
// edited request yields a new id. Names are free text and may repeat.
package saved

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/unkn0wn-root/reqbox/internal/draft"
	"github.com/unkn0wn-root/reqbox/internal/errdef"
)

// RecordKey is the storage key of the persisted collection.
const RecordKey = "sandbox.saved"

type Request struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Method   draft.Method        `json:"method"`
	Path     string              `json:"path"`
	BodyText string              `json:"bodyText"`
	Headers  []draft.HeaderEntry `json:"headers"`
}

// Draft copies the saved fields into a fresh draft.
func (r Request) Draft() draft.RequestDraft {
	d := draft.RequestDraft{
		Method:   r.Method,
		Path:     r.Path,
		BodyText: r.BodyText,
		Headers:  make([]draft.HeaderEntry, len(r.Headers)),
	}
	copy(d.Headers, r.Headers)
	return d
}

func (r Request) clone() Request {
	out := r
	if r.Headers != nil {
		out.Headers = make([]draft.HeaderEntry, len(r.Headers))
		copy(out.Headers, r.Headers)
	}
	return out
}

// Backend persists the whole collection as one value.
type Backend interface {
	Read() ([]Request, bool, error)
	Write(requests []Request) error
}

type Store struct {
	backend Backend
	newID   func() string

	mu       sync.RWMutex
	requests []Request
	loaded   bool
}

type Option func(*Store)

// WithIDGenerator overrides the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted collection, seeding Defaults when nothing has been
// stored yet. The seed is persisted immediately so it is not applied twice.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoadedLocked()
}

func (s *Store) ensureLoadedLocked() error {
	if s.loaded {
		return nil
	}
	if s.backend == nil {
		s.requests = Defaults()
		s.loaded = true
		return nil
	}

	requests, ok, err := s.backend.Read()
	if err != nil {
		return errdef.Wrap(errdef.CodePersistence, err, "read saved requests")
	}
	s.loaded = true
	if !ok {
		s.requests = Defaults()
		return s.persistLocked()
	}
	if requests == nil {
		requests = []Request{}
	}
	s.requests = requests
	return nil
}

// List returns the collection in insertion order.
func (s *Store) List() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Request, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.clone()
	}
	return out
}

// Get returns the entry with id.
func (s *Store) Get(id string) (Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.requests[idx].clone(), true
	}
	return Request{}, false
}

// Create snapshots d under name. Only enabled, keyed headers are kept.
func (s *Store) Create(name string, d draft.RequestDraft) (Request, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Request{}, errdef.New(errdef.CodeValidation, "request name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return Request{}, err
	}

	req := Request{
		ID:       s.newID(),
		Name:     name,
		Method:   d.Method,
		Path:     d.Path,
		BodyText: d.BodyText,
		Headers:  d.EnabledHeaders(),
	}
	s.requests = append(s.requests, req)
	return req.clone(), s.persistLocked()
}

// LoadDraft returns a draft copied from the entry with id.
func (s *Store) LoadDraft(id string) (draft.RequestDraft, error) {
	req, ok := s.Get(id)
	if !ok {
		return draft.RequestDraft{}, errdef.New(errdef.CodeNotFound, "saved request %q not found", id)
	}
	return req.Draft(), nil
}

// Remove deletes the entry with id. Unknown ids are a no-op.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil
	}
	next := make([]Request, 0, len(s.requests)-1)
	next = append(next, s.requests[:idx]...)
	next = append(next, s.requests[idx+1:]...)
	s.requests = next
	return s.persistLocked()
}

// Find returns entries whose name fuzzily matches query, best match first.
// A blank query returns the whole list.
func (s *Store) Find(query string) []Request {
	query = strings.TrimSpace(query)
	all := s.List()
	if query == "" {
		return all
	}

	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name
	}
	ranks := fuzzy.RankFindFold(query, names)
	sort.Stable(ranks)

	out := make([]Request, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, all[rank.OriginalIndex])
	}
	return out
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.requests {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked() error {
	if s.backend == nil {
		return nil
	}
	snapshot := make([]Request, len(s.requests))
	for i, r := range s.requests {
		snapshot[i] = r.clone()
	}
	if err := s.backend.Write(snapshot); err != nil {
		return errdef.Wrap(errdef.CodePersistence, err, "persist saved requests")
	}
	return nil
}
