// Package ui is the bubbletea front end of the sandbox.
package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/reqbox/internal/bindings"
	"github.com/unkn0wn-root/reqbox/internal/config"
	"github.com/unkn0wn-root/reqbox/internal/responseview"
	"github.com/unkn0wn-root/reqbox/internal/sandbox"
	"github.com/unkn0wn-root/reqbox/internal/theme"
)

var _ tea.Model = Model{}

type paneFocus int

const (
	focusPath paneFocus = iota
	focusHeaders
	focusBody
	focusResponse
	focusSaved
	focusHistory
	focusCount
)

func (f paneFocus) String() string {
	switch f {
	case focusPath:
		return "path"
	case focusHeaders:
		return "headers"
	case focusBody:
		return "body"
	case focusResponse:
		return "response"
	case focusSaved:
		return "saved"
	case focusHistory:
		return "history"
	default:
		return ""
	}
}

type promptKind int

const (
	promptNone promptKind = iota
	promptSaveName
	promptHeader
)

const (
	minSidebarWidthPixels = 24
	minEditorPaneHeight   = 8
	minResponsePaneHeight = 6
	statusBarHeight       = 1
	headerBarHeight       = 1
)

type Config struct {
	Session *sandbox.Session
	Keys    *bindings.Map
	Theme   *theme.Theme
	// Highlight enables chroma colouring of JSON bodies.
	Highlight bool
	Layout    config.LayoutSettings
	// Clipboard overrides the system clipboard, mainly for tests.
	Clipboard func(string) error
	Version   string
}

type Model struct {
	session   *sandbox.Session
	keys      *bindings.Map
	theme     theme.Theme
	viewOpts  responseview.Options
	layout    config.LayoutSettings
	clipboard func(string) error
	version   string
	ctx       context.Context

	width  int
	height int
	ready  bool

	focus       paneFocus
	pathInput   textinput.Model
	bodyInput   textarea.Model
	promptInput textinput.Model
	prompt      promptKind
	response    viewport.Model
	spinner     spinner.Model

	headerCursor  int
	savedCursor   int
	historyCursor int

	statusMessage statusMsg
	showHelp      bool
	showDiff      bool
	sending       int
}

func New(cfg Config) Model {
	th := theme.DefaultTheme()
	if cfg.Theme != nil {
		th = *cfg.Theme
	}
	keys := cfg.Keys
	if keys == nil {
		keys = bindings.DefaultMap()
	}
	clip := cfg.Clipboard
	if clip == nil {
		clip = writeClipboard
	}

	path := textinput.New()
	path.Prompt = ""
	path.Placeholder = "/v1/health"

	body := textarea.New()
	body.Placeholder = "request body"
	body.ShowLineNumbers = false
	body.Prompt = ""

	promptInput := textinput.New()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		session:     cfg.Session,
		keys:        keys,
		theme:       th,
		viewOpts:    responseview.Options{Theme: th, Highlight: cfg.Highlight, ShowHeaders: true},
		layout:      config.NormaliseLayoutSettings(cfg.Layout),
		clipboard:   clip,
		version:     cfg.Version,
		ctx:         context.Background(),
		pathInput:   path,
		bodyInput:   body,
		promptInput: promptInput,
		response:    viewport.New(0, 0),
		spinner:     sp,
		focus:       focusPath,
	}
	m.syncInputsFromDraft()
	m.applyFocus()
	m.refreshResponse()
	return m
}

// WithContext sets the context dispatches run under.
func (m Model) WithContext(ctx context.Context) Model {
	if ctx != nil {
		m.ctx = ctx
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) syncInputsFromDraft() {
	d := m.session.Draft()
	m.pathInput.SetValue(d.Path)
	m.bodyInput.SetValue(d.BodyText)
	if m.headerCursor >= len(d.Headers) {
		m.headerCursor = maxInt(len(d.Headers)-1, 0)
	}
}

func (m *Model) applyFocus() {
	m.pathInput.Blur()
	m.bodyInput.Blur()
	switch m.focus {
	case focusPath:
		m.pathInput.Focus()
	case focusBody:
		m.bodyInput.Focus()
	}
}

func (m *Model) cycleFocus(delta int) {
	next := (int(m.focus) + delta + int(focusCount)) % int(focusCount)
	m.focus = paneFocus(next)
	m.applyFocus()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampIndex(idx, n int) int {
	if n == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}
