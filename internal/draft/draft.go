// Package draft holds the request currently being edited in the sandbox.
//
// Mutators never validate; a draft may hold disabled or blank header rows and
// body text for methods that cannot carry one. Filtering happens when the draft
// is turned into a wire request.
package draft

import (
	"net/http"
	"strconv"
	"strings"
)

type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

var methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// Methods lists the supported methods in display order.
func Methods() []Method {
	out := make([]Method, len(methods))
	copy(out, methods)
	return out
}

// ParseMethod accepts a method name in any case.
func ParseMethod(s string) (Method, bool) {
	up := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, m := range methods {
		if m == up {
			return m, true
		}
	}
	return "", false
}

// AllowsBody reports whether requests with this method carry a body.
func (m Method) AllowsBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch:
		return true
	default:
		return false
	}
}

// Next cycles through Methods, wrapping around.
func (m Method) Next() Method {
	for i, candidate := range methods {
		if candidate == m {
			return methods[(i+1)%len(methods)]
		}
	}
	return MethodGet
}

type HeaderEntry struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Transmittable reports whether the entry reaches the wire.
func (h HeaderEntry) Transmittable() bool {
	return h.Enabled && strings.TrimSpace(h.Key) != ""
}

type HeaderField string

const (
	FieldKey     HeaderField = "key"
	FieldValue   HeaderField = "value"
	FieldEnabled HeaderField = "enabled"
)

type RequestDraft struct {
	Method   Method        `json:"method"`
	Path     string        `json:"path"`
	BodyText string        `json:"bodyText"`
	Headers  []HeaderEntry `json:"headers"`
}

const DefaultPath = "/v1/health"

// New returns the draft the sandbox opens with.
func New() RequestDraft {
	return RequestDraft{
		Method: MethodGet,
		Path:   DefaultPath,
		Headers: []HeaderEntry{
			{Key: "Content-Type", Value: "application/json", Enabled: true},
		},
	}
}

func (d *RequestDraft) SetMethod(m Method) { d.Method = m }

func (d *RequestDraft) SetPath(path string) { d.Path = path }

func (d *RequestDraft) SetBody(text string) { d.BodyText = text }

// AddHeader appends an empty, enabled row.
func (d *RequestDraft) AddHeader() {
	d.Headers = append(d.Headers, HeaderEntry{Enabled: true})
}

// UpdateHeader sets one field of the row at index. For FieldEnabled the value
// is parsed with strconv.ParseBool and anything unparsable disables the row.
// Out-of-range indexes are ignored.
func (d *RequestDraft) UpdateHeader(index int, field HeaderField, value string) {
	if index < 0 || index >= len(d.Headers) {
		return
	}
	h := &d.Headers[index]
	switch field {
	case FieldKey:
		h.Key = value
	case FieldValue:
		h.Value = value
	case FieldEnabled:
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		h.Enabled = err == nil && enabled
	}
}

// SetHeaderEnabled is the typed form of UpdateHeader(index, FieldEnabled, ...).
func (d *RequestDraft) SetHeaderEnabled(index int, enabled bool) {
	if index < 0 || index >= len(d.Headers) {
		return
	}
	d.Headers[index].Enabled = enabled
}

func (d *RequestDraft) RemoveHeader(index int) {
	if index < 0 || index >= len(d.Headers) {
		return
	}
	d.Headers = append(d.Headers[:index:index], d.Headers[index+1:]...)
}

// Clone returns a deep copy.
func (d RequestDraft) Clone() RequestDraft {
	out := d
	out.Headers = cloneHeaders(d.Headers)
	return out
}

// AllowsBody reports whether the body text is dispatched.
func (d RequestDraft) AllowsBody() bool {
	return d.Method.AllowsBody() && d.BodyText != ""
}

// EnabledHeaders returns the rows that reach the wire, in list order.
func (d RequestDraft) EnabledHeaders() []HeaderEntry {
	out := make([]HeaderEntry, 0, len(d.Headers))
	for _, h := range d.Headers {
		if h.Transmittable() {
			out = append(out, h)
		}
	}
	return out
}

// TransmitHeaders folds the enabled rows into a header set. Later duplicates
// win; names compare case-insensitively as on the wire.
func (d RequestDraft) TransmitHeaders() http.Header {
	out := make(http.Header)
	for _, h := range d.EnabledHeaders() {
		out.Set(strings.TrimSpace(h.Key), h.Value)
	}
	return out
}

func cloneHeaders(in []HeaderEntry) []HeaderEntry {
	if in == nil {
		return nil
	}
	out := make([]HeaderEntry, len(in))
	copy(out, in)
	return out
}
