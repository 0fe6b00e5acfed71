package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/unkn0wn-root/reqbox/internal/bindings"
	"github.com/unkn0wn-root/reqbox/internal/draft"
	"github.com/unkn0wn-root/reqbox/internal/responseview"
)

// paneChrome is the border plus padding a pane spends on each axis.
const paneChrome = 2

func (m *Model) applyLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, main := m.columnWidths()
	editorH, responseH := m.rowHeights()

	inner := maxInt(main-paneChrome, 10)
	m.pathInput.Width = maxInt(inner-8, 4)

	headerRows := len(m.session.Draft().Headers)
	bodyH := maxInt(editorH-paneChrome-3-headerRows, 2)
	m.bodyInput.SetWidth(inner)
	m.bodyInput.SetHeight(bodyH)

	m.response.Width = inner
	m.response.Height = maxInt(responseH-paneChrome-1, 1)
	m.refreshResponse()
}

func (m Model) columnWidths() (int, int) {
	sidebar := int(float64(m.width) * m.layout.SidebarWidth)
	if sidebar < minSidebarWidthPixels {
		sidebar = minInt(minSidebarWidthPixels, m.width/2)
	}
	return sidebar, maxInt(m.width-sidebar, 0)
}

func (m Model) rowHeights() (int, int) {
	avail := maxInt(m.height-headerBarHeight-statusBarHeight, 0)
	editor := int(float64(avail) * m.layout.EditorSplit)
	editor = maxInt(editor, minInt(minEditorPaneHeight, avail))
	response := avail - editor
	if response < minResponsePaneHeight && avail >= minEditorPaneHeight+minResponsePaneHeight {
		response = minResponsePaneHeight
		editor = avail - response
	}
	return editor, maxInt(response, 0)
}

// refreshResponse re-renders the response pane from the session.
func (m *Model) refreshResponse() {
	m.response.SetContent(m.responseContent())
	m.response.GotoTop()
}

func (m Model) responseContent() string {
	if m.session.Loading() && !m.hasOutcome() {
		return m.theme.Muted.Render("Waiting for response…")
	}
	out, ok := m.session.Outcome()
	if !ok {
		return m.theme.Muted.Render("No response yet. Press " + m.keyHint(bindings.ActionSend) + " to send.")
	}
	if m.showDiff {
		prev, ok := m.session.Previous()
		if !ok {
			return m.theme.Muted.Render("Nothing to compare yet.")
		}
		diff := responseview.Diff(prev, out)
		if diff == "" {
			return m.theme.Muted.Render("Bodies are identical.")
		}
		return m.colouriseDiff(diff)
	}
	return responseview.Render(out, m.viewOpts)
}

func (m Model) hasOutcome() bool {
	_, ok := m.session.Outcome()
	return ok
}

func (m Model) colouriseDiff(diff string) string {
	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = m.theme.PaneTitle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = m.theme.DiffAdded.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = m.theme.DiffRemoved.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) keyHint(action bindings.ActionID) string {
	if keys := m.keys.Keys(action); len(keys) > 0 {
		return keys[0]
	}
	return string(action)
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	sidebarW, mainW := m.columnWidths()
	editorH, responseH := m.rowHeights()

	sidebar := m.renderSidebar(sidebarW, editorH+responseH)
	main := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderEditor(mainW, editorH),
		m.renderResponse(mainW, responseH),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderStatusBar())
}

func (m Model) paneStyle(base lipgloss.Style, focused bool, width, height int) lipgloss.Style {
	style := base.Width(maxInt(width-paneChrome, 1)).Height(maxInt(height-paneChrome, 1))
	if focused {
		style = style.BorderForeground(m.theme.FocusBorder)
	}
	return style
}

func (m Model) renderHeader() string {
	d := m.session.Draft()
	brand := m.theme.HeaderBrand.Render("reqbox")
	method := m.methodBadge(d.Method)
	target := m.theme.HeaderValue.Render(m.session.BaseURL())
	ordering := m.theme.Muted.Render(string(m.session.Ordering()))
	line := lipgloss.JoinHorizontal(lipgloss.Center, brand, " ", method, " ", target, "  ", ordering)
	return m.theme.Header.Render(ansi.Truncate(line, maxInt(m.width-2, 1), "…"))
}

func (m Model) methodBadge(method draft.Method) string {
	return lipgloss.NewStyle().
		Foreground(m.theme.MethodColors.Method(string(method))).
		Bold(true).
		Render(string(method))
}

func (m Model) renderEditor(width, height int) string {
	d := m.session.Draft()
	inner := maxInt(width-paneChrome, 1)

	var b strings.Builder
	b.WriteString(m.paneTitle("Request", m.focus == focusPath || m.focus == focusBody))
	b.WriteString("\n")
	b.WriteString(m.methodBadge(d.Method))
	b.WriteString(" ")
	b.WriteString(m.pathInput.View())
	b.WriteString("\n")
	b.WriteString(m.paneTitle("Headers", m.focus == focusHeaders))
	b.WriteString("\n")
	if len(d.Headers) == 0 {
		b.WriteString(m.theme.Muted.Render("(none)"))
		b.WriteString("\n")
	}
	for i, h := range d.Headers {
		b.WriteString(m.renderHeaderRow(i, h, inner))
		b.WriteString("\n")
	}
	if d.Method.AllowsBody() {
		b.WriteString(m.bodyInput.View())
	} else {
		b.WriteString(m.theme.Muted.Render(fmt.Sprintf("%s requests carry no body", d.Method)))
	}

	focused := m.focus == focusPath || m.focus == focusBody || m.focus == focusHeaders
	return m.paneStyle(m.theme.EditorBorder, focused, width, height).Render(b.String())
}

func (m Model) renderHeaderRow(i int, h draft.HeaderEntry, width int) string {
	mark := "[x]"
	if !h.Enabled {
		mark = "[ ]"
	}
	key := h.Key
	if key == "" {
		key = "<key>"
	}
	text := runewidth.Truncate(fmt.Sprintf("%s %s: %s", mark, key, h.Value), width, "…")
	switch {
	case m.focus == focusHeaders && i == m.headerCursor:
		return m.theme.ListItemActive.Render(runewidth.FillRight(text, width))
	case !h.Enabled:
		return m.theme.HeaderDisabled.Render(text)
	default:
		return m.theme.HeaderKey.Render(text)
	}
}

func (m Model) renderResponse(width, height int) string {
	title := "Response"
	if m.showDiff {
		title = "Response diff"
	}
	if m.sending > 0 {
		title += " " + m.spinner.View()
	}
	content := m.paneTitle(title, m.focus == focusResponse) + "\n" + m.response.View()
	return m.paneStyle(m.theme.ResponseBorder, m.focus == focusResponse, width, height).Render(content)
}

func (m Model) renderSidebar(width, height int) string {
	inner := maxInt(width-paneChrome, 1)
	savedH := maxInt((height-paneChrome)/2, 1)

	var b strings.Builder
	b.WriteString(m.paneTitle("Saved", m.focus == focusSaved))
	b.WriteString("\n")
	list := m.session.Saved()
	if len(list) == 0 {
		b.WriteString(m.theme.Muted.Render("(empty)"))
		b.WriteString("\n")
	}
	for _, idx := range visibleWindow(len(list), m.savedCursor, savedH-1) {
		r := list[idx]
		line := fmt.Sprintf("%-6s %s", r.Method, r.Name)
		b.WriteString(m.listRow(line, inner, m.focus == focusSaved && idx == m.savedCursor))
		b.WriteString("\n")
	}

	b.WriteString(m.paneTitle("History", m.focus == focusHistory))
	b.WriteString("\n")
	entries := m.session.History()
	if len(entries) == 0 {
		b.WriteString(m.theme.Muted.Render("(empty)"))
	}
	historyH := maxInt(height-paneChrome-savedH-1, 1)
	for _, idx := range visibleWindow(len(entries), m.historyCursor, historyH) {
		e := entries[idx]
		line := fmt.Sprintf("%3d %-6s %s", e.Status, e.Method, e.Path)
		b.WriteString(m.listRow(line, inner, m.focus == focusHistory && idx == m.historyCursor))
		b.WriteString("\n")
	}

	focused := m.focus == focusSaved || m.focus == focusHistory
	return m.paneStyle(m.theme.SidebarBorder, focused, width, height).Render(strings.TrimSuffix(b.String(), "\n"))
}

func (m Model) listRow(text string, width int, active bool) string {
	text = runewidth.Truncate(text, width, "…")
	if active {
		return m.theme.ListItemActive.Render(runewidth.FillRight(text, width))
	}
	return m.theme.ListItem.Render(text)
}

// visibleWindow returns the indexes of at most size rows that keep cursor in
// view.
func visibleWindow(n, cursor, size int) []int {
	if n == 0 || size <= 0 {
		return nil
	}
	start := 0
	if cursor >= size {
		start = cursor - size + 1
	}
	end := minInt(start+size, n)
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

func (m Model) paneTitle(title string, focused bool) string {
	if focused {
		return m.theme.StatusBarKey.Render(title)
	}
	return m.theme.PaneTitle.Render(title)
}

func (m Model) renderStatusBar() string {
	if m.prompt != promptNone {
		return m.theme.StatusBar.Render(m.promptInput.View())
	}

	text := m.statusMessage.text
	var styled string
	switch m.statusMessage.level {
	case statusError:
		styled = m.theme.Error.Render(text)
	case statusSuccess:
		styled = m.theme.Success.Render(text)
	case statusWarn:
		styled = m.theme.StatusBarKey.Render(text)
	default:
		styled = m.theme.StatusBarValue.Render(text)
	}

	right := m.theme.Muted.Render(fmt.Sprintf("%s  %s help", m.focus, m.keyHint(bindings.ActionToggleHelp)))
	gap := maxInt(m.width-lipgloss.Width(styled)-lipgloss.Width(right)-2, 1)
	line := styled + strings.Repeat(" ", gap) + right
	return m.theme.StatusBar.Render(ansi.Truncate(line, maxInt(m.width-2, 1), "…"))
}

func (m Model) renderHelp() string {
	lines := append([]string{m.theme.PaneTitle.Render("Key bindings"), ""}, m.keys.Help()...)
	lines = append(lines, "", m.theme.Muted.Render("enter: edit header / load saved / recall history   space: toggle header"))
	return m.theme.AppFrame.Width(maxInt(m.width-paneChrome, 1)).Render(strings.Join(lines, "\n"))
}
