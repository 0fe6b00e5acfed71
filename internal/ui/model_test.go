package ui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/unkn0wn-root/reqbox/internal/credential"
	"github.com/unkn0wn-root/reqbox/internal/draft"
	"github.com/unkn0wn-root/reqbox/internal/history"
	"github.com/unkn0wn-root/reqbox/internal/kvstore"
	"github.com/unkn0wn-root/reqbox/internal/sandbox"
	"github.com/unkn0wn-root/reqbox/internal/saved"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func newTestModel(t *testing.T, ordering sandbox.Ordering, clip func(string) error) Model {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"path":"`+r.URL.Path+`"}`)
	}))
	t.Cleanup(srv.Close)

	kv := kvstore.NewMemoryStore()
	session, err := sandbox.Open(sandbox.Config{
		Client:      srv.Client(),
		Credentials: credential.NewStoreSource(kv, credential.DefaultKey),
		BaseURL:     srv.URL,
		Ordering:    ordering,
		Saved:       saved.NewStore(kvstore.NewRecord[[]saved.Request](kv, saved.RecordKey)),
		History:     history.NewStore(kvstore.NewRecord[[]history.Entry](kv, history.RecordKey)),
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	m := New(Config{Session: session, Clipboard: clip})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func collectMsgs(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collectMsgs(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findOutcome(t *testing.T, cmd tea.Cmd) outcomeMsg {
	t.Helper()
	for _, msg := range collectMsgs(cmd) {
		if out, ok := msg.(outcomeMsg); ok {
			return out
		}
	}
	t.Fatalf("command produced no outcome")
	return outcomeMsg{}
}

func deliver(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := New(Config{Session: mustSession(t)})
	if got := m.View(); got != "Initializing..." {
		t.Fatalf("expected placeholder view, got %q", got)
	}
}

func mustSession(t *testing.T) *sandbox.Session {
	t.Helper()
	s, err := sandbox.Open(sandbox.Config{})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s
}

func TestSendAppliesOutcome(t *testing.T) {
	m := newTestModel(t, sandbox.OrderingLastWriterWins, nil)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.sending != 1 {
		t.Fatalf("expected one request in flight, got %d", m.sending)
	}
	if !strings.HasPrefix(m.statusMessage.text, "Sending GET ") {
		t.Fatalf("unexpected status %q", m.statusMessage.text)
	}
	if !m.session.Loading() {
		t.Fatalf("expected session to be loading")
	}

	out := findOutcome(t, cmd)
	if !out.applied || out.outcome.Status != http.StatusOK {
		t.Fatalf("unexpected outcome %+v", out)
	}
	m = deliver(t, m, out)
	if m.sending != 0 {
		t.Fatalf("expected no request in flight, got %d", m.sending)
	}
	if m.statusMessage.level != statusSuccess || !strings.HasPrefix(m.statusMessage.text, "200 OK") {
		t.Fatalf("unexpected status %+v", m.statusMessage)
	}
	if got := len(m.session.History()); got != 1 {
		t.Fatalf("expected one history entry, got %d", got)
	}
	view := m.View()
	if !strings.Contains(view, "200 OK") || !strings.Contains(view, "/v1/health") {
		t.Fatalf("response not rendered:\n%s", view)
	}
}

func TestLatestIssuedDiscardsStaleCompletion(t *testing.T) {
	m := newTestModel(t, sandbox.OrderingLatestIssued, nil)

	m, first := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m, second := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.sending != 2 {
		t.Fatalf("expected two requests in flight, got %d", m.sending)
	}

	stale := findOutcome(t, first)
	if stale.applied {
		t.Fatalf("superseded completion must not apply")
	}
	m = deliver(t, m, stale)
	if m.statusMessage.level != statusWarn || !strings.Contains(m.statusMessage.text, "stale") {
		t.Fatalf("unexpected status %+v", m.statusMessage)
	}

	fresh := findOutcome(t, second)
	if !fresh.applied {
		t.Fatalf("latest completion must apply")
	}
	m = deliver(t, m, fresh)
	current, ok := m.session.Outcome()
	if !ok || current.Seq != fresh.ticket.Seq {
		t.Fatalf("expected outcome #%d, got %+v", fresh.ticket.Seq, current)
	}
	if m.sending != 0 {
		t.Fatalf("expected nothing in flight, got %d", m.sending)
	}
}

func TestCycleMethodAndTypePath(t *testing.T) {
	m := newTestModel(t, "", nil)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if got := m.session.Draft().Method; got != draft.MethodPost {
		t.Fatalf("expected POST after cycling, got %s", got)
	}

	m = typeText(t, m, "/extra")
	if got := m.session.Draft().Path; got != draft.DefaultPath+"/extra" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestHeaderEditing(t *testing.T) {
	m := newTestModel(t, "", nil)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusHeaders {
		t.Fatalf("expected headers focus, got %s", m.focus)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	if m.session.Draft().Headers[0].Enabled {
		t.Fatalf("expected first header disabled")
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !m.session.Draft().Headers[0].Enabled {
		t.Fatalf("expected space to re-enable the header")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	if m.prompt != promptHeader {
		t.Fatalf("expected header prompt to open")
	}
	m = typeText(t, m, "X-Trace: abc")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	headers := m.session.Draft().Headers
	if len(headers) != 2 {
		t.Fatalf("expected two headers, got %d", len(headers))
	}
	if got := headers[1]; got.Key != "X-Trace" || got.Value != "abc" || !got.Enabled {
		t.Fatalf("unexpected header %+v", got)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if got := len(m.session.Draft().Headers); got != 1 {
		t.Fatalf("expected header removed, got %d", got)
	}
}

func TestSavePromptRejectsBlankName(t *testing.T) {
	m := newTestModel(t, "", nil)
	before := len(m.session.Saved())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.statusMessage.level != statusError {
		t.Fatalf("expected validation error, got %+v", m.statusMessage)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = typeText(t, m, "Health Check")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	list := m.session.Saved()
	if len(list) != before+1 || list[len(list)-1].Name != "Health Check" {
		t.Fatalf("unexpected saved list %+v", list)
	}
	if m.prompt != promptNone {
		t.Fatalf("prompt should close after saving")
	}
}

func TestLoadSavedFromSidebar(t *testing.T) {
	m := newTestModel(t, "", nil)
	for m.focus != focusSaved {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	d := m.session.Draft()
	if d.Method != draft.MethodPost || d.Path != "/v1/text/scramble" {
		t.Fatalf("unexpected draft %+v", d)
	}
	if m.pathInput.Value() != d.Path || m.bodyInput.Value() != d.BodyText {
		t.Fatalf("inputs not refreshed from draft")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	for _, req := range m.session.Saved() {
		if req.ID == "default-scramble" {
			t.Fatalf("expected selected request removed")
		}
	}
}

func TestCopyBody(t *testing.T) {
	var copied string
	m := newTestModel(t, "", func(s string) error {
		copied = s
		return nil
	})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	if cmd != nil || m.statusMessage.level != statusWarn {
		t.Fatalf("expected warning without a response")
	}

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = deliver(t, m, findOutcome(t, cmd))
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	for _, msg := range collectMsgs(cmd) {
		m = deliver(t, m, msg)
	}
	if !strings.Contains(copied, `"path": "/v1/health"`) {
		t.Fatalf("unexpected clipboard contents %q", copied)
	}
	if m.statusMessage.level != statusSuccess {
		t.Fatalf("unexpected status %+v", m.statusMessage)
	}
}

func TestDiffToggle(t *testing.T) {
	m := newTestModel(t, "", nil)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = deliver(t, m, findOutcome(t, cmd))
	m = typeText(t, m, "/other")
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = deliver(t, m, findOutcome(t, cmd))

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlF})
	content := m.responseContent()
	if !strings.Contains(content, "+  \"path\": \"/v1/health/other\"") {
		t.Fatalf("expected diff of bodies, got:\n%s", content)
	}
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t, "", nil)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF1})
	if view := m.View(); !strings.Contains(view, "send request") {
		t.Fatalf("help not rendered:\n%s", view)
	}
}

func TestVisibleWindow(t *testing.T) {
	if got := visibleWindow(0, 0, 5); got != nil {
		t.Fatalf("expected nil for empty list, got %v", got)
	}
	got := visibleWindow(10, 7, 3)
	if len(got) != 3 || got[0] != 5 || got[2] != 7 {
		t.Fatalf("unexpected window %v", got)
	}
}

func TestSplitHeaderInput(t *testing.T) {
	cases := map[string][2]string{
		"Accept: text/plain": {"Accept", "text/plain"},
		"X-Token":            {"X-Token", ""},
		" A : b:c ":          {"A", "b:c"},
	}
	for in, want := range cases {
		k, v := splitHeaderInput(in)
		if k != want[0] || v != want[1] {
			t.Fatalf("splitHeaderInput(%q) = %q, %q", in, k, v)
		}
	}
}
