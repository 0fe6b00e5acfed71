package responseview

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/unkn0wn-root/reqbox/internal/dispatch"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func TestClassify(t *testing.T) {
	cases := map[int]Class{
		0:   ClassTransportFailure,
		100: ClassInformational,
		199: ClassInformational,
		200: ClassSuccess,
		204: ClassSuccess,
		299: ClassSuccess,
		301: ClassRedirect,
		399: ClassRedirect,
		400: ClassClientOrServer,
		404: ClassClientOrServer,
		599: ClassClientOrServer,
		600: ClassInformational,
		-1:  ClassInformational,
	}
	for status, want := range cases {
		if got := Classify(status); got != want {
			t.Fatalf("Classify(%d) = %s, want %s", status, got, want)
		}
	}
}

func TestFormatBody(t *testing.T) {
	if got := FormatBody("plain <b>text</b>"); got != "plain <b>text</b>" {
		t.Fatalf("text body changed: %q", got)
	}
	if got := FormatBody(nil); got != "" {
		t.Fatalf("nil body should render empty, got %q", got)
	}

	body := map[string]any{"a": json.Number("1"), "html": "<tag>", "list": []any{"x"}}
	want := "{\n  \"a\": 1,\n  \"html\": \"<tag>\",\n  \"list\": [\n    \"x\"\n  ]\n}"
	if got := FormatBody(body); got != want {
		t.Fatalf("unexpected pretty body:\n%s", got)
	}
}

func TestSummary(t *testing.T) {
	ok := dispatch.Outcome{Status: 200, StatusText: "OK", ElapsedMillis: 12}
	if got := Summary(ok); got != "200 OK (12 ms)" {
		t.Fatalf("unexpected summary %q", got)
	}
	failed := dispatch.Outcome{
		Status:        0,
		StatusText:    dispatch.TransportStatusText,
		Body:          map[string]any{"error": "connection refused"},
		ElapsedMillis: 3,
	}
	if got := Summary(failed); got != "Error: connection refused (3 ms)" {
		t.Fatalf("unexpected transport summary %q", got)
	}
}

func TestFormatHeadersSorted(t *testing.T) {
	got := FormatHeaders(map[string]string{"x-b": "2", "content-type": "application/json", "x-a": "1"})
	want := "content-type: application/json\nx-a: 1\nx-b: 2"
	if got != want {
		t.Fatalf("unexpected headers:\n%s", got)
	}
}

func TestBodyTextKeepsJSONStringQuoted(t *testing.T) {
	jsonString := dispatch.Outcome{Status: 200, Body: "ok", BodyJSON: true}
	if got := BodyText(jsonString); got != `"ok"` {
		t.Fatalf("expected quoted JSON string, got %q", got)
	}
	text := dispatch.Outcome{Status: 200, Body: "ok"}
	if got := BodyText(text); got != "ok" {
		t.Fatalf("expected raw text, got %q", got)
	}

	opts := DefaultOptions()
	opts.Highlight = false
	if got := Render(jsonString, opts); !strings.Contains(got, `"ok"`) {
		t.Fatalf("render dropped JSON quotes:\n%s", got)
	}
	if diff := Diff(text, jsonString); diff == "" {
		t.Fatalf("expected JSON string and text body to differ")
	}
}

func TestRenderPlainProfile(t *testing.T) {
	opts := DefaultOptions()
	opts.Highlight = false
	out := dispatch.Outcome{
		Status:     201,
		StatusText: "Created",
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       map[string]any{"id": "abc"},
	}
	got := Render(out, opts)
	for _, part := range []string{"201 Created", "content-type: application/json", "\"id\": \"abc\""} {
		if !strings.Contains(got, part) {
			t.Fatalf("render missing %q:\n%s", part, got)
		}
	}

	opts.ShowHeaders = false
	if strings.Contains(Render(out, opts), "content-type") {
		t.Fatalf("headers rendered when disabled")
	}
}

func TestHighlightKeepsContent(t *testing.T) {
	src := "{\n  \"a\": 1\n}"
	got := Highlight(src, "")
	if !strings.Contains(got, "\"a\"") {
		t.Fatalf("highlight lost content: %q", got)
	}
}

func TestDiff(t *testing.T) {
	prev := dispatch.Outcome{Seq: 1, URL: "http://api/v1/health", Body: map[string]any{"status": "ok"}}
	cur := dispatch.Outcome{Seq: 2, URL: "http://api/v1/health", Body: map[string]any{"status": "degraded"}}

	diff := Diff(prev, cur)
	if !strings.Contains(diff, "-  \"status\": \"ok\"") || !strings.Contains(diff, "+  \"status\": \"degraded\"") {
		t.Fatalf("unexpected diff:\n%s", diff)
	}
	if Diff(prev, prev) != "" {
		t.Fatalf("identical bodies should not diff")
	}
}
