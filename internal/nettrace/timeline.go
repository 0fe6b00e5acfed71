// Package nettrace records where the time of one HTTP exchange went.
package nettrace

import (
	"fmt"
	"sort"
	"time"
)

type PhaseKind string

const (
	PhaseDNS      PhaseKind = "dns"
	PhaseConnect  PhaseKind = "connect"
	PhaseTLS      PhaseKind = "tls"
	PhaseReqBody  PhaseKind = "request_body"
	PhaseTTFB     PhaseKind = "ttfb"
	PhaseTransfer PhaseKind = "transfer"
	PhaseTotal    PhaseKind = "total"
)

// phaseOrder is the display order of Breakdown.
var phaseOrder = []PhaseKind{PhaseDNS, PhaseConnect, PhaseTLS, PhaseReqBody, PhaseTTFB, PhaseTransfer}

type Phase struct {
	Kind     PhaseKind
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Err      string
	// Reused is set on connect phases served from the idle pool.
	Reused bool
}

type Timeline struct {
	Started   time.Time
	Completed time.Time
	Duration  time.Duration
	Err       string
	Phases    []Phase
}

func (tl *Timeline) Clone() *Timeline {
	if tl == nil {
		return nil
	}
	out := *tl
	out.Phases = make([]Phase, len(tl.Phases))
	copy(out.Phases, tl.Phases)
	return &out
}

// Sum totals the phases of kind. A redirected request can resolve and
// connect more than once.
func (tl *Timeline) Sum(kind PhaseKind) time.Duration {
	if tl == nil {
		return 0
	}
	if kind == PhaseTotal {
		return tl.Duration
	}
	var total time.Duration
	for _, p := range tl.Phases {
		if p.Kind == kind && p.Duration > 0 {
			total += p.Duration
		}
	}
	return total
}

// ConnectionReused reports whether any connect phase came from the pool.
func (tl *Timeline) ConnectionReused() bool {
	if tl == nil {
		return false
	}
	for _, p := range tl.Phases {
		if p.Kind == PhaseConnect && p.Reused {
			return true
		}
	}
	return false
}

// Breakdown renders one "kind  duration" line per observed phase plus the
// total.
func (tl *Timeline) Breakdown() []string {
	if tl == nil {
		return nil
	}
	seen := make(map[PhaseKind]bool, len(tl.Phases))
	for _, p := range tl.Phases {
		seen[p.Kind] = true
	}

	lines := make([]string, 0, len(phaseOrder)+1)
	for _, kind := range phaseOrder {
		if !seen[kind] {
			continue
		}
		line := fmt.Sprintf("%-13s %s", kind, formatDuration(tl.Sum(kind)))
		if kind == PhaseConnect && tl.ConnectionReused() {
			line += " (reused)"
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("%-13s %s", PhaseTotal, formatDuration(tl.Duration)))
	if tl.Err != "" {
		lines = append(lines, "error         "+tl.Err)
	}
	return lines
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}

func normalizePhases(phases []Phase) []Phase {
	if len(phases) <= 1 {
		return phases
	}

	sorted := make([]Phase, len(phases))
	copy(sorted, phases)
	sort.SliceStable(sorted, func(i, j int) bool {
		si := sorted[i]
		sj := sorted[j]
		if si.Start.Equal(sj.Start) {
			return si.End.Before(sj.End)
		}
		return si.Start.Before(sj.Start)
	})
	return sorted
}
