package sandbox

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/reqbox/internal/credential"
	"github.com/unkn0wn-root/reqbox/internal/draft"
	"github.com/unkn0wn-root/reqbox/internal/errdef"
	"github.com/unkn0wn-root/reqbox/internal/history"
	"github.com/unkn0wn-root/reqbox/internal/kvstore"
	"github.com/unkn0wn-root/reqbox/internal/saved"
)

type fixture struct {
	kv      *kvstore.MemoryStore
	server  *httptest.Server
	session *Session

	mu       sync.Mutex
	lastAuth string
}

func newFixture(t *testing.T, ordering Ordering) *fixture {
	t.Helper()
	f := &fixture{kv: kvstore.NewMemoryStore()}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"path":"`+r.URL.Path+`"}`)
	}))
	t.Cleanup(f.server.Close)

	s, err := Open(Config{
		Client:      f.server.Client(),
		Credentials: credential.NewStoreSource(f.kv, credential.DefaultKey),
		BaseURL:     f.server.URL,
		Ordering:    ordering,
		Saved:       saved.NewStore(kvstore.NewRecord[[]saved.Request](f.kv, saved.RecordKey)),
		History:     history.NewStore(kvstore.NewRecord[[]history.Entry](f.kv, history.RecordKey)),
	})
	require.NoError(t, err)
	f.session = s
	return f
}

func (f *fixture) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func setPath(path string) func(*draft.RequestDraft) {
	return func(d *draft.RequestDraft) { d.SetPath(path) }
}

func TestOpenState(t *testing.T) {
	f := newFixture(t, "")
	s := f.session

	assert.Equal(t, OrderingLastWriterWins, s.Ordering())
	assert.Equal(t, draft.New(), s.Draft())
	assert.Len(t, s.Saved(), len(saved.Defaults()))
	assert.Empty(t, s.History())
	assert.False(t, s.Loading())
	_, ok := s.Outcome()
	assert.False(t, ok)
}

func TestExecuteAppliesOutcomeAndHistory(t *testing.T) {
	f := newFixture(t, OrderingLastWriterWins)
	s := f.session

	out, applied := s.Execute(context.Background())
	require.True(t, applied)
	assert.Equal(t, 200, out.Status)

	current, ok := s.Outcome()
	require.True(t, ok)
	assert.Equal(t, out.Seq, current.Seq)
	assert.False(t, s.Loading())

	entries := s.History()
	require.Len(t, entries, 1)
	assert.Equal(t, "GET", entries[0].Method)
	assert.Equal(t, draft.DefaultPath, entries[0].Path)
	assert.Equal(t, 200, entries[0].Status)
}

func TestLoadingTracksIssuedDispatch(t *testing.T) {
	f := newFixture(t, OrderingLastWriterWins)
	s := f.session

	ticket := s.Begin()
	assert.True(t, s.Loading())
	s.Run(context.Background(), ticket)
	assert.False(t, s.Loading())
}

func TestLoadingStaysSetWhileAnyDispatchIsPending(t *testing.T) {
	f := newFixture(t, OrderingLastWriterWins)
	s := f.session
	ctx := context.Background()

	first := s.Begin()
	second := s.Begin()

	_, applied := s.Run(ctx, first)
	require.True(t, applied)
	assert.True(t, s.Loading(), "second dispatch has not completed")

	_, applied = s.Run(ctx, second)
	require.True(t, applied)
	assert.False(t, s.Loading())
}

func TestLatestIssuedDropsStaleCompletion(t *testing.T) {
	f := newFixture(t, OrderingLatestIssued)
	s := f.session
	ctx := context.Background()

	s.Edit(setPath("/first"))
	first := s.Begin()
	s.Edit(setPath("/second"))
	second := s.Begin()
	require.Greater(t, second.Seq, first.Seq)

	_, applied := s.Run(ctx, second)
	assert.True(t, applied)
	assert.True(t, s.Loading(), "first dispatch is still pending")

	_, applied = s.Run(ctx, first)
	assert.False(t, applied)
	assert.False(t, s.Loading())

	current, ok := s.Outcome()
	require.True(t, ok)
	assert.Equal(t, second.Seq, current.Seq)
	assert.Equal(t, map[string]any{"path": "/second"}, current.Body)
	assert.Len(t, s.History(), 2, "history records every completion")
}

func TestLastWriterWinsAppliesLateCompletion(t *testing.T) {
	f := newFixture(t, OrderingLastWriterWins)
	s := f.session
	ctx := context.Background()

	s.Edit(setPath("/first"))
	first := s.Begin()
	s.Edit(setPath("/second"))
	second := s.Begin()

	s.Run(ctx, second)
	_, applied := s.Run(ctx, first)
	assert.True(t, applied)

	current, _ := s.Outcome()
	assert.Equal(t, first.Seq, current.Seq)
	prev, ok := s.Previous()
	require.True(t, ok)
	assert.Equal(t, second.Seq, prev.Seq)
}

func TestTicketFreezesDraft(t *testing.T) {
	f := newFixture(t, "")
	s := f.session

	s.Edit(setPath("/frozen"))
	ticket := s.Begin()
	s.Edit(setPath("/later"))

	out, _ := s.Run(context.Background(), ticket)
	assert.Equal(t, map[string]any{"path": "/frozen"}, out.Body)
}

func TestCredentialReadAtDispatchTime(t *testing.T) {
	f := newFixture(t, "")
	s := f.session
	src := credential.NewStoreSource(f.kv, credential.DefaultKey)

	ticket := s.Begin()
	require.NoError(t, src.Set("fresh-token"))
	s.Run(context.Background(), ticket)
	assert.Equal(t, "Bearer fresh-token", f.auth())

	require.NoError(t, src.Clear())
	s.Execute(context.Background())
	assert.Equal(t, "Bearer null", f.auth())
}

func TestSaveAndLoadSaved(t *testing.T) {
	f := newFixture(t, "")
	s := f.session

	s.Edit(func(d *draft.RequestDraft) {
		d.SetMethod(draft.MethodPost)
		d.SetPath("/v1/text/scramble")
		d.SetBody(`{"text":"abc"}`)
		d.AddHeader()
		d.UpdateHeader(1, draft.FieldKey, "X-Off")
		d.SetHeaderEnabled(1, false)
	})
	created, err := s.Save("Scramble abc")
	require.NoError(t, err)
	assert.Len(t, created.Headers, 1)

	s.Edit(func(d *draft.RequestDraft) { *d = draft.New() })
	require.NoError(t, s.LoadSaved(created.ID))

	got := s.Draft()
	assert.Equal(t, draft.MethodPost, got.Method)
	assert.Equal(t, "/v1/text/scramble", got.Path)
	assert.Equal(t, `{"text":"abc"}`, got.BodyText)
	assert.Equal(t, created.Headers, got.Headers)

	require.NoError(t, s.RemoveSaved(created.ID))
	require.NoError(t, s.RemoveSaved(created.ID))
	assert.True(t, errdef.Is(s.LoadSaved(created.ID), errdef.CodeNotFound))
	assert.Len(t, s.FindSaved("health"), 1)
}

func TestSaveRejectsBlankName(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.session.Save("   ")
	assert.True(t, errdef.Is(err, errdef.CodeValidation))
	assert.Len(t, f.session.Saved(), len(saved.Defaults()))
}

func TestOpenReportsUnreadableHistory(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Put(history.RecordKey, []byte("{broken")))

	s, err := Open(Config{
		History: history.NewStore(kvstore.NewRecord[[]history.Entry](kv, history.RecordKey)),
	})
	require.Error(t, err)
	require.NotNil(t, s)
	assert.True(t, errdef.Is(err, errdef.CodePersistence))
	assert.Empty(t, s.History())
}

func TestParseOrdering(t *testing.T) {
	got, err := ParseOrdering("Latest-Issued")
	require.NoError(t, err)
	assert.Equal(t, OrderingLatestIssued, got)

	got, err = ParseOrdering("")
	require.NoError(t, err)
	assert.Equal(t, OrderingLastWriterWins, got)

	_, err = ParseOrdering("random")
	assert.True(t, errdef.Is(err, errdef.CodeConfig))
}
