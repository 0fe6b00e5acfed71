package nettrace

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorPhases(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCollector()
	c.Begin(PhaseDNS, base)
	c.End(PhaseDNS, base.Add(5*time.Millisecond), nil)
	c.Begin(PhaseConnect, base.Add(5*time.Millisecond))
	c.End(PhaseConnect, base.Add(15*time.Millisecond), nil)
	c.Begin(PhaseTransfer, base.Add(20*time.Millisecond))
	c.Complete(base.Add(30 * time.Millisecond))

	tl := c.Timeline()
	if tl == nil {
		t.Fatalf("expected timeline")
	}
	if tl.Duration != 30*time.Millisecond {
		t.Fatalf("unexpected total %v", tl.Duration)
	}
	if got := tl.Sum(PhaseConnect); got != 10*time.Millisecond {
		t.Fatalf("unexpected connect %v", got)
	}
	last := tl.Phases[len(tl.Phases)-1]
	if last.Kind != PhaseTransfer || last.Err != "incomplete" {
		t.Fatalf("open phase not closed as incomplete: %+v", last)
	}
}

func TestCollectorEmpty(t *testing.T) {
	if tl := NewCollector().Timeline(); tl != nil {
		t.Fatalf("expected nil timeline, got %+v", tl)
	}
	var tl *Timeline
	if tl.Sum(PhaseDNS) != 0 || tl.Breakdown() != nil || tl.Clone() != nil {
		t.Fatalf("nil timeline helpers must be safe")
	}
}

func TestFailKeepsFirstError(t *testing.T) {
	c := NewCollector()
	c.Mark(time.Now())
	c.Fail(errors.New("first"))
	c.Fail(errors.New("second"))
	c.Fail(nil)
	if got := c.Timeline().Err; got != "first" {
		t.Fatalf("expected first error, got %q", got)
	}
}

func TestBreakdownMarksReusedConnection(t *testing.T) {
	base := time.Now()
	c := NewCollector()
	c.Instant(PhaseConnect, base, true)
	c.Begin(PhaseTTFB, base)
	c.End(PhaseTTFB, base.Add(2*time.Millisecond), nil)

	lines := c.Timeline().Breakdown()
	if len(lines) != 3 {
		t.Fatalf("unexpected breakdown %q", lines)
	}
	if !strings.HasPrefix(lines[0], "connect") || !strings.HasSuffix(lines[0], "(reused)") {
		t.Fatalf("unexpected connect line %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "total") {
		t.Fatalf("expected total last, got %q", lines[2])
	}
}

func TestSessionTracesRealRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	s := NewSession()
	req, err := http.NewRequestWithContext(s.Start(context.Background()), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	tl := s.Finish(readErr)
	if tl == nil {
		t.Fatalf("expected timeline")
	}
	kinds := make(map[PhaseKind]bool)
	for _, p := range tl.Phases {
		kinds[p.Kind] = true
	}
	for _, want := range []PhaseKind{PhaseConnect, PhaseTTFB, PhaseTransfer} {
		if !kinds[want] {
			t.Fatalf("missing %s phase in %+v", want, tl.Phases)
		}
	}
	if tl.Err != "" {
		t.Fatalf("unexpected error %q", tl.Err)
	}
}
