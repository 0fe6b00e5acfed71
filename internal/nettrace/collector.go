package nettrace

import (
	"sync"
	"time"
)

// Collector accumulates phases reported from httptrace callbacks, which may
// run on transport goroutines.
type Collector struct {
	mu       sync.Mutex
	started  time.Time
	finished time.Time
	err      string
	phases   []Phase
	active   map[PhaseKind]time.Time
}

func NewCollector() *Collector {
	return &Collector{active: make(map[PhaseKind]time.Time)}
}

// Mark moves the start of the timeline back to ts.
func (c *Collector) Mark(ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started.IsZero() || ts.Before(c.started) {
		c.started = ts
	}
}

func (c *Collector) Begin(kind PhaseKind, ts time.Time) {
	if kind == "" || kind == PhaseTotal {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started.IsZero() || ts.Before(c.started) {
		c.started = ts
	}
	c.active[kind] = ts
}

// End closes the open phase of kind. An End without Begin records a zero
// length phase.
func (c *Collector) End(kind PhaseKind, ts time.Time, err error) {
	c.end(kind, ts, err, false)
}

// Instant records a zero length phase, used for pooled connections.
func (c *Collector) Instant(kind PhaseKind, ts time.Time, reused bool) {
	c.Begin(kind, ts)
	c.end(kind, ts, nil, reused)
}

func (c *Collector) end(kind PhaseKind, ts time.Time, err error, reused bool) {
	if kind == "" || kind == PhaseTotal {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	start, ok := c.active[kind]
	if !ok {
		start = ts
	}
	if ts.Before(start) {
		ts = start
	}

	phase := Phase{Kind: kind, Start: start, End: ts, Duration: ts.Sub(start), Reused: reused}
	if err != nil {
		phase.Err = err.Error()
	}
	c.phases = append(c.phases, phase)
	delete(c.active, kind)
	if ts.After(c.finished) {
		c.finished = ts
	}
}

func (c *Collector) Active(kind PhaseKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[kind]
	return ok
}

// Fail keeps the first error reported.
func (c *Collector) Fail(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == "" {
		c.err = err.Error()
	}
}

// Complete closes every open phase as incomplete.
func (c *Collector) Complete(ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ts.After(c.finished) {
		c.finished = ts
	}
	for kind, start := range c.active {
		c.phases = append(c.phases, Phase{
			Kind:     kind,
			Start:    start,
			End:      ts,
			Duration: ts.Sub(start),
			Err:      "incomplete",
		})
	}
	c.active = make(map[PhaseKind]time.Time)
}

// Timeline snapshots the collected phases. It is nil when nothing was
// recorded.
func (c *Collector) Timeline() *Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.phases) == 0 && c.started.IsZero() {
		return nil
	}

	ph := make([]Phase, len(c.phases))
	copy(ph, c.phases)
	ph = normalizePhases(ph)

	tl := &Timeline{
		Started:   c.started,
		Completed: c.finished,
		Err:       c.err,
		Phases:    ph,
	}
	if !tl.Started.IsZero() && !tl.Completed.Before(tl.Started) {
		tl.Duration = tl.Completed.Sub(tl.Started)
	}
	return tl
}
