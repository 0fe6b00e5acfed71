// Package responseview turns dispatch outcomes into text for the terminal.
package responseview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/quick"
	udiff "github.com/aymanbagabas/go-udiff"
	"github.com/charmbracelet/lipgloss"

	"github.com/unkn0wn-root/reqbox/internal/dispatch"
	"github.com/unkn0wn-root/reqbox/internal/theme"
)

type Class string

const (
	ClassSuccess          Class = "success"
	ClassRedirect         Class = "redirect"
	ClassClientOrServer   Class = "clientOrServerError"
	ClassTransportFailure Class = "transportFailure"
	ClassInformational    Class = "informational"
)

// Classify buckets a status code. 0 is a transport failure; 1xx and anything
// outside 100-599 is informational.
func Classify(status int) Class {
	switch {
	case status == 0:
		return ClassTransportFailure
	case status >= 200 && status <= 299:
		return ClassSuccess
	case status >= 300 && status <= 399:
		return ClassRedirect
	case status >= 400 && status <= 599:
		return ClassClientOrServer
	default:
		return ClassInformational
	}
}

// FormatBody pretty-prints structured values with two-space indentation and
// returns text bodies untouched.
func FormatBody(body any) string {
	switch v := body.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	return encodeJSON(body)
}

func encodeJSON(body any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(body); err != nil {
		return fmt.Sprint(body)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// BodyText formats the body of out. Bodies decoded from JSON are always
// encoded back as JSON, so a JSON string keeps its quotes.
func BodyText(out dispatch.Outcome) string {
	if !out.BodyJSON {
		return FormatBody(out.Body)
	}
	return encodeJSON(out.Body)
}

// Summary is the one-line status of an outcome.
func Summary(out dispatch.Outcome) string {
	if out.TransportFailed() {
		msg := out.ErrorMessage()
		if msg == "" {
			msg = out.StatusText
		}
		return fmt.Sprintf("%s: %s (%d ms)", dispatch.TransportStatusText, msg, out.ElapsedMillis)
	}
	text := strings.TrimSpace(out.StatusText)
	if text == "" {
		return fmt.Sprintf("%d (%d ms)", out.Status, out.ElapsedMillis)
	}
	return fmt.Sprintf("%d %s (%d ms)", out.Status, text, out.ElapsedMillis)
}

// FormatHeaders lists headers as "name: value" lines sorted by name.
func FormatHeaders(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(headers[k])
	}
	return b.String()
}

type Options struct {
	Theme       theme.Theme
	Highlight   bool
	ShowHeaders bool
}

func DefaultOptions() Options {
	return Options{Theme: theme.DefaultTheme(), Highlight: true, ShowHeaders: true}
}

// Render produces the full response pane text: status line, optional header
// block and the body.
func Render(out dispatch.Outcome, opts Options) string {
	th := opts.Theme
	sections := []string{StatusStyle(th, Classify(out.Status)).Render(Summary(out))}

	if opts.ShowHeaders && len(out.Headers) > 0 {
		sections = append(sections, th.ResponseHeaders.Render(FormatHeaders(out.Headers)))
	}

	body := BodyText(out)
	if body != "" {
		_, isText := out.Body.(string)
		if opts.Highlight && (out.BodyJSON || !isText) {
			sections = append(sections, Highlight(body, th.ChromaStyle))
		} else {
			sections = append(sections, th.ResponseContent.Render(body))
		}
	}
	return strings.Join(sections, "\n\n")
}

// StatusStyle picks the status line style for class.
func StatusStyle(th theme.Theme, class Class) lipgloss.Style {
	switch class {
	case ClassSuccess:
		return th.Outcome.Success
	case ClassRedirect:
		return th.Outcome.Redirect
	case ClassClientOrServer:
		return th.Outcome.Failure
	case ClassTransportFailure:
		return th.Outcome.Transport
	default:
		return th.Outcome.Informational
	}
}

// Highlight colours JSON text with chroma. On failure the input comes back
// unchanged.
func Highlight(src, style string) string {
	if style == "" {
		style = "dracula"
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, src, "json", "terminal256", style); err != nil {
		return src
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Diff is a unified diff between the bodies of two outcomes. It is empty
// when the bodies match.
func Diff(prev, cur dispatch.Outcome) string {
	left := BodyText(prev)
	right := BodyText(cur)
	if left == right {
		return ""
	}
	return udiff.Unified(label(prev), label(cur), ensureNewline(left), ensureNewline(right))
}

func label(out dispatch.Outcome) string {
	if out.Seq == 0 {
		return out.URL
	}
	return fmt.Sprintf("#%d %s", out.Seq, out.URL)
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
