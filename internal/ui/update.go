package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/reqbox/internal/bindings"
	"github.com/unkn0wn-root/reqbox/internal/draft"
	"github.com/unkn0wn-root/reqbox/internal/errdef"
	"github.com/unkn0wn-root/reqbox/internal/responseview"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.applyLayout()
		return m, nil
	case outcomeMsg:
		return m.handleOutcome(msg), nil
	case clipboardMsg:
		if msg.err != nil {
			m.setStatusMessage(statusMsg{text: "Copy failed: " + msg.err.Error(), level: statusError})
		} else {
			m.setStatusMessage(statusMsg{text: "Response body copied", level: statusSuccess})
		}
		return m, nil
	case statusMsg:
		m.setStatusMessage(msg)
		return m, nil
	case spinner.TickMsg:
		if m.sending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocused(msg)
}

func (m Model) handleOutcome(msg outcomeMsg) Model {
	if m.sending > 0 {
		m.sending--
	}
	if !msg.applied {
		m.setStatusMessage(statusMsg{
			text:  fmt.Sprintf("Discarded stale response #%d", msg.ticket.Seq),
			level: statusWarn,
		})
		return m
	}
	level := statusSuccess
	switch responseview.Classify(msg.outcome.Status) {
	case responseview.ClassTransportFailure, responseview.ClassClientOrServer:
		level = statusError
	case responseview.ClassRedirect, responseview.ClassInformational:
		level = statusInfo
	}
	m.setStatusMessage(statusMsg{text: responseview.Summary(msg.outcome), level: level})
	m.historyCursor = 0
	m.refreshResponse()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	if action, ok := m.keys.Match(msg.String()); ok {
		if next, cmd, handled := m.runAction(action); handled {
			return next, cmd
		}
	}

	switch m.focus {
	case focusHeaders:
		return m.handleHeaderListKey(msg.String())
	case focusSaved:
		return m.handleSavedListKey(msg.String())
	case focusHistory:
		return m.handleHistoryListKey(msg.String())
	}
	return m.updateFocused(msg)
}

// runAction reports handled=false when the action does not apply to the
// focused pane so the key falls through to the widget.
func (m Model) runAction(action bindings.ActionID) (Model, tea.Cmd, bool) {
	switch action {
	case bindings.ActionQuit:
		return m, tea.Quit, true
	case bindings.ActionSend:
		next, cmd := m.send()
		return next, cmd, true
	case bindings.ActionCycleMethod:
		m.session.Edit(func(d *draft.RequestDraft) { d.SetMethod(d.Method.Next()) })
		return m, nil, true
	case bindings.ActionFocusNext:
		m.cycleFocus(1)
		return m, nil, true
	case bindings.ActionFocusPrev:
		m.cycleFocus(-1)
		return m, nil, true
	case bindings.ActionAddHeader:
		m.session.Edit(func(d *draft.RequestDraft) { d.AddHeader() })
		m.headerCursor = len(m.session.Draft().Headers) - 1
		m.applyLayout()
		m.focus = focusHeaders
		m.applyFocus()
		m.openPrompt(promptHeader, "")
		return m, nil, true
	case bindings.ActionToggleHeader:
		if m.focus != focusHeaders {
			return m, nil, false
		}
		m.toggleHeader()
		return m, nil, true
	case bindings.ActionRemoveHeader:
		if m.focus != focusHeaders {
			return m, nil, false
		}
		idx := m.headerCursor
		m.session.Edit(func(d *draft.RequestDraft) { d.RemoveHeader(idx) })
		m.headerCursor = clampIndex(m.headerCursor, len(m.session.Draft().Headers))
		m.applyLayout()
		return m, nil, true
	case bindings.ActionSaveRequest:
		m.openPrompt(promptSaveName, "")
		return m, nil, true
	case bindings.ActionRemoveSaved:
		if m.focus != focusSaved {
			return m, nil, false
		}
		m.removeSelectedSaved()
		return m, nil, true
	case bindings.ActionCopyBody:
		out, ok := m.session.Outcome()
		if !ok {
			m.setStatusMessage(statusMsg{text: "No response to copy", level: statusWarn})
			return m, nil, true
		}
		return m, m.copyCmd(responseview.BodyText(out)), true
	case bindings.ActionToggleDiff:
		m.showDiff = !m.showDiff
		m.refreshResponse()
		return m, nil, true
	case bindings.ActionToggleHelp:
		m.showHelp = !m.showHelp
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) send() (Model, tea.Cmd) {
	m.commitInputs()
	ticket := m.session.Begin()
	m.sending++
	target := m.session.BaseURL() + ticket.Draft.Path
	m.setStatusMessage(statusMsg{
		text:  fmt.Sprintf("Sending %s %s", ticket.Draft.Method, target),
		level: statusInfo,
	})
	return m, tea.Batch(m.dispatchCmd(ticket), m.spinner.Tick)
}

// commitInputs pushes widget contents into the session draft.
func (m *Model) commitInputs() {
	path := m.pathInput.Value()
	body := m.bodyInput.Value()
	m.session.Edit(func(d *draft.RequestDraft) {
		d.SetPath(path)
		d.SetBody(body)
	})
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusPath:
		m.pathInput, cmd = m.pathInput.Update(msg)
		m.commitInputs()
	case focusBody:
		m.bodyInput, cmd = m.bodyInput.Update(msg)
		m.commitInputs()
	case focusResponse:
		m.response, cmd = m.response.Update(msg)
	}
	return m, cmd
}

func (m Model) handleHeaderListKey(key string) (tea.Model, tea.Cmd) {
	headers := m.session.Draft().Headers
	switch key {
	case "up", "k":
		m.headerCursor = clampIndex(m.headerCursor-1, len(headers))
	case "down", "j":
		m.headerCursor = clampIndex(m.headerCursor+1, len(headers))
	case " ":
		m.toggleHeader()
	case "enter":
		if len(headers) == 0 {
			return m, nil
		}
		h := headers[clampIndex(m.headerCursor, len(headers))]
		seed := ""
		if h.Key != "" || h.Value != "" {
			seed = h.Key + ": " + h.Value
		}
		m.openPrompt(promptHeader, seed)
	}
	return m, nil
}

func (m Model) handleSavedListKey(key string) (tea.Model, tea.Cmd) {
	list := m.session.Saved()
	switch key {
	case "up", "k":
		m.savedCursor = clampIndex(m.savedCursor-1, len(list))
	case "down", "j":
		m.savedCursor = clampIndex(m.savedCursor+1, len(list))
	case "enter":
		if len(list) == 0 {
			return m, nil
		}
		req := list[clampIndex(m.savedCursor, len(list))]
		if err := m.session.LoadSaved(req.ID); err != nil {
			m.setStatusMessage(statusMsg{text: errdef.Message(err), level: statusError})
			return m, nil
		}
		m.headerCursor = 0
		m.syncInputsFromDraft()
		m.applyLayout()
		m.setStatusMessage(statusMsg{text: "Loaded " + req.Name, level: statusInfo})
	}
	return m, nil
}

func (m Model) handleHistoryListKey(key string) (tea.Model, tea.Cmd) {
	entries := m.session.History()
	switch key {
	case "up", "k":
		m.historyCursor = clampIndex(m.historyCursor-1, len(entries))
	case "down", "j":
		m.historyCursor = clampIndex(m.historyCursor+1, len(entries))
	case "enter":
		if len(entries) == 0 {
			return m, nil
		}
		e := entries[clampIndex(m.historyCursor, len(entries))]
		method, ok := draft.ParseMethod(e.Method)
		if !ok {
			method = draft.MethodGet
		}
		m.session.Edit(func(d *draft.RequestDraft) {
			d.SetMethod(method)
			d.SetPath(e.Path)
		})
		m.syncInputsFromDraft()
		m.setStatusMessage(statusMsg{text: "Recalled " + e.Method + " " + e.Path, level: statusInfo})
	}
	return m, nil
}

func (m *Model) toggleHeader() {
	headers := m.session.Draft().Headers
	if len(headers) == 0 {
		return
	}
	idx := clampIndex(m.headerCursor, len(headers))
	enabled := !headers[idx].Enabled
	m.session.Edit(func(d *draft.RequestDraft) { d.SetHeaderEnabled(idx, enabled) })
}

func (m *Model) removeSelectedSaved() {
	list := m.session.Saved()
	if len(list) == 0 {
		return
	}
	req := list[clampIndex(m.savedCursor, len(list))]
	if err := m.session.RemoveSaved(req.ID); err != nil {
		m.setStatusMessage(statusMsg{text: errdef.Message(err), level: statusError})
		return
	}
	m.savedCursor = clampIndex(m.savedCursor, len(list)-1)
	m.setStatusMessage(statusMsg{text: "Removed " + req.Name, level: statusInfo})
}

func (m *Model) openPrompt(kind promptKind, seed string) {
	m.prompt = kind
	switch kind {
	case promptSaveName:
		m.promptInput.Prompt = "Save as: "
		m.promptInput.Placeholder = "request name"
	case promptHeader:
		m.promptInput.Prompt = "Header: "
		m.promptInput.Placeholder = "Key: Value"
	}
	m.promptInput.SetValue(seed)
	m.promptInput.CursorEnd()
	m.pathInput.Blur()
	m.bodyInput.Blur()
	m.promptInput.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.promptInput.Blur()
	m.promptInput.SetValue("")
	m.applyFocus()
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		value := m.promptInput.Value()
		kind := m.prompt
		m.closePrompt()
		switch kind {
		case promptSaveName:
			m.commitInputs()
			req, err := m.session.Save(value)
			if err != nil {
				m.setStatusMessage(statusMsg{text: errdef.Message(err), level: statusError})
				return m, nil
			}
			m.savedCursor = len(m.session.Saved()) - 1
			m.setStatusMessage(statusMsg{text: "Saved " + req.Name, level: statusSuccess})
		case promptHeader:
			m.applyHeaderInput(value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

// applyHeaderInput writes "Key: Value" into the header under the cursor.
func (m *Model) applyHeaderInput(raw string) {
	headers := m.session.Draft().Headers
	if len(headers) == 0 {
		return
	}
	key, value := splitHeaderInput(raw)
	idx := clampIndex(m.headerCursor, len(headers))
	m.session.Edit(func(d *draft.RequestDraft) {
		d.UpdateHeader(idx, draft.FieldKey, key)
		d.UpdateHeader(idx, draft.FieldValue, value)
	})
}

func splitHeaderInput(raw string) (string, string) {
	key, value, found := strings.Cut(raw, ":")
	if !found {
		return strings.TrimSpace(raw), ""
	}
	return strings.TrimSpace(key), strings.TrimSpace(value)
}
