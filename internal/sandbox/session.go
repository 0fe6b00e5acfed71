// Package sandbox holds the process-wide state of one sandbox: the draft
// being edited, the current outcome slot and the two persisted stores.
//
// Stores load once in Open and persist on every mutation. There is no
// teardown.
package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/unkn0wn-root/reqbox/internal/credential"
	"github.com/unkn0wn-root/reqbox/internal/dispatch"
	"github.com/unkn0wn-root/reqbox/internal/draft"
	"github.com/unkn0wn-root/reqbox/internal/errdef"
	"github.com/unkn0wn-root/reqbox/internal/history"
	"github.com/unkn0wn-root/reqbox/internal/httpclient"
	"github.com/unkn0wn-root/reqbox/internal/saved"
)

type Ordering string

const (
	// OrderingLastWriterWins applies every completion as it arrives.
	OrderingLastWriterWins Ordering = "last-writer-wins"
	// OrderingLatestIssued applies only the completion of the most recently
	// issued dispatch.
	OrderingLatestIssued Ordering = "latest-issued"
)

func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderingLastWriterWins:
		return OrderingLastWriterWins, nil
	case OrderingLatestIssued:
		return OrderingLatestIssued, nil
	default:
		return "", errdef.New(errdef.CodeConfig, "unknown ordering %q", s)
	}
}

type Config struct {
	Client      httpclient.Doer
	Credentials credential.Source
	BaseURL     string
	Ordering    Ordering
	Saved       *saved.Store
	History     *history.Store
	Logger      *slog.Logger
	// DispatchOptions are passed to dispatch.New. The history recorder is
	// always added last.
	DispatchOptions []dispatch.Option
}

// Ticket identifies one issued dispatch and the draft it was issued with.
type Ticket struct {
	Seq   uint64
	Draft draft.RequestDraft
}

type Session struct {
	dispatcher *dispatch.Dispatcher
	creds      credential.Source
	baseURL    string
	ordering   Ordering
	saved      *saved.Store
	history    *history.Store
	logger     *slog.Logger

	mu         sync.Mutex
	draft      draft.RequestDraft
	outcome    *dispatch.Outcome
	previous   *dispatch.Outcome
	inflight   int
	lastIssued uint64
}

// Open builds a session and loads both stores. Load failures are returned
// joined, but the session is still usable: the failed store starts empty and
// later mutations try to persist again.
func Open(cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Saved == nil {
		cfg.Saved = saved.NewStore(nil)
	}
	if cfg.History == nil {
		cfg.History = history.NewStore(nil)
	}
	if cfg.Credentials == nil {
		cfg.Credentials = credential.Static("")
	}
	ordering := cfg.Ordering
	if ordering == "" {
		ordering = OrderingLastWriterWins
	}

	opts := append([]dispatch.Option{dispatch.WithLogger(logger)}, cfg.DispatchOptions...)
	opts = append(opts, dispatch.WithRecorder(cfg.History))

	s := &Session{
		dispatcher: dispatch.New(cfg.Client, opts...),
		creds:      cfg.Credentials,
		baseURL:    cfg.BaseURL,
		ordering:   ordering,
		saved:      cfg.Saved,
		history:    cfg.History,
		logger:     logger,
		draft:      draft.New(),
	}

	var errs error
	if err := s.saved.Load(); err != nil {
		logger.Warn("saved requests not loaded", "error", err)
		errs = errors.Join(errs, err)
	}
	if err := s.history.Load(); err != nil {
		logger.Warn("history not loaded", "error", err)
		errs = errors.Join(errs, err)
	}
	return s, errs
}

func (s *Session) BaseURL() string { return s.baseURL }

func (s *Session) Ordering() Ordering { return s.ordering }

// Draft returns a copy of the current draft.
func (s *Session) Draft() draft.RequestDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Edit applies fn to the current draft.
func (s *Session) Edit(fn func(d *draft.RequestDraft)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.draft)
}

// Begin issues a ticket for the current draft. The session stays loading
// until every issued ticket has completed.
func (s *Session) Begin() Ticket {
	seq := s.dispatcher.NextSeq()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	if seq > s.lastIssued {
		s.lastIssued = seq
	}
	return Ticket{Seq: seq, Draft: s.draft.Clone()}
}

// Run dispatches t. The credential is read now, not when t was issued.
// applied reports whether the outcome reached the outcome slot; history
// records the completion either way.
func (s *Session) Run(ctx context.Context, t Ticket) (out dispatch.Outcome, applied bool) {
	token, _, err := s.creds.Token()
	if err != nil {
		s.logger.Warn("credential unavailable", "error", err)
		token = ""
	}
	out = s.dispatcher.ExecuteSeq(ctx, t.Seq, t.Draft, token, s.baseURL)
	return out, s.complete(out)
}

// Execute is Begin followed by Run.
func (s *Session) Execute(ctx context.Context) (dispatch.Outcome, bool) {
	return s.Run(ctx, s.Begin())
}

func (s *Session) complete(out dispatch.Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		s.inflight--
	}

	if s.ordering == OrderingLatestIssued && out.Seq != s.lastIssued {
		s.logger.Debug("stale completion dropped", "seq", out.Seq, "latest", s.lastIssued)
		return false
	}
	s.previous = s.outcome
	s.outcome = &out
	return true
}

// Outcome returns the current outcome slot. ok is false before the first
// completion.
func (s *Session) Outcome() (dispatch.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return dispatch.Outcome{}, false
	}
	return *s.outcome, true
}

// Previous returns the outcome the current one replaced.
func (s *Session) Previous() (dispatch.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previous == nil {
		return dispatch.Outcome{}, false
	}
	return *s.previous, true
}

// Loading reports whether any issued dispatch is still pending.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Save snapshots the current draft under name.
func (s *Session) Save(name string) (saved.Request, error) {
	return s.saved.Create(name, s.Draft())
}

// LoadSaved replaces the draft with a copy of the saved request.
func (s *Session) LoadSaved(id string) error {
	d, err := s.saved.LoadDraft(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.draft = d
	s.mu.Unlock()
	return nil
}

func (s *Session) RemoveSaved(id string) error {
	return s.saved.Remove(id)
}

func (s *Session) Saved() []saved.Request {
	return s.saved.List()
}

func (s *Session) FindSaved(query string) []saved.Request {
	return s.saved.Find(query)
}

func (s *Session) History() []history.Entry {
	return s.history.Entries()
}
