package ui

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/reqbox/internal/dispatch"
	"github.com/unkn0wn-root/reqbox/internal/sandbox"
)

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
	statusError
	statusSuccess
)

type statusMsg struct {
	text  string
	level statusLevel
}

// outcomeMsg carries one finished dispatch back into the event loop.
type outcomeMsg struct {
	ticket  sandbox.Ticket
	outcome dispatch.Outcome
	applied bool
}

type clipboardMsg struct {
	err error
}

func writeClipboard(text string) error {
	return clipboard.WriteAll(text)
}

func (m *Model) setStatusMessage(msg statusMsg) {
	m.statusMessage = msg
}

func (m Model) dispatchCmd(t sandbox.Ticket) tea.Cmd {
	session := m.session
	ctx := m.ctx
	return func() tea.Msg {
		out, applied := session.Run(ctx, t)
		return outcomeMsg{ticket: t, outcome: out, applied: applied}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	write := m.clipboard
	return func() tea.Msg {
		return clipboardMsg{err: write(text)}
	}
}
