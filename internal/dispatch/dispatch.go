// Package dispatch turns a request draft into a single HTTP round trip and
// reconciles whatever happens into an Outcome.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/reqbox/internal/credential"
	"github.com/unkn0wn-root/reqbox/internal/draft"
	"github.com/unkn0wn-root/reqbox/internal/errdef"
	"github.com/unkn0wn-root/reqbox/internal/history"
	"github.com/unkn0wn-root/reqbox/internal/httpclient"
	"github.com/unkn0wn-root/reqbox/internal/nettrace"
	"github.com/unkn0wn-root/reqbox/internal/telemetry"
)

// TransportStatusText is the status text of an outcome that never got a
// response.
const TransportStatusText = "Error"

// Recorder receives one history entry per completed dispatch.
type Recorder interface {
	Append(entry history.Entry) error
}

type RecorderFunc func(entry history.Entry) error

func (f RecorderFunc) Append(entry history.Entry) error { return f(entry) }

type Dispatcher struct {
	client      httpclient.Doer
	policy      credential.Policy
	placeholder string
	telemetry   telemetry.Instrumenter
	logger      *slog.Logger
	recorder    Recorder
	now         func() time.Time

	seq atomic.Uint64
}

type Option func(*Dispatcher)

func WithCredentialPolicy(policy credential.Policy, placeholder string) Option {
	return func(d *Dispatcher) {
		if policy != "" {
			d.policy = policy
		}
		d.placeholder = placeholder
	}
}

func WithTelemetry(instr telemetry.Instrumenter) Option {
	return func(d *Dispatcher) {
		if instr != nil {
			d.telemetry = instr
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder sets where completed dispatches are reported.
func WithRecorder(rec Recorder) Option {
	return func(d *Dispatcher) { d.recorder = rec }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// New builds a dispatcher around client. A nil client means http.DefaultClient.
func New(client httpclient.Doer, opts ...Option) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	d := &Dispatcher{
		client:      client,
		policy:      credential.PolicySend,
		placeholder: credential.DefaultPlaceholder,
		telemetry:   telemetry.Noop(),
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NextSeq issues the next dispatch sequence number. Numbers start at 1.
func (d *Dispatcher) NextSeq() uint64 {
	return d.seq.Add(1)
}

// Execute dispatches dr under a freshly issued sequence number.
func (d *Dispatcher) Execute(ctx context.Context, dr draft.RequestDraft, token, baseURL string) Outcome {
	return d.ExecuteSeq(ctx, d.NextSeq(), dr, token, baseURL)
}

// ExecuteSeq dispatches dr under a sequence number issued earlier by NextSeq.
// It never fails: transport problems come back as a status 0 outcome. The
// recorder sees every completion.
func (d *Dispatcher) ExecuteSeq(ctx context.Context, seq uint64, dr draft.RequestDraft, token, baseURL string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	target := baseURL + dr.Path
	started := d.now()

	out := d.roundTrip(ctx, seq, dr, token, target)
	out.Seq = seq
	out.URL = target

	d.record(history.NewEntry(string(dr.Method), dr.Path, out.Status, out.ElapsedMillis, started))
	return out
}

func (d *Dispatcher) roundTrip(ctx context.Context, seq uint64, dr draft.RequestDraft, token, target string) Outcome {
	token = strings.TrimSpace(token)
	auth, include, err := credential.Authorization(d.policy, d.placeholder, token)
	if err != nil {
		d.logger.Warn("dispatch blocked", "seq", seq, "path", dr.Path, "error", err)
		return transportFailure(err, 0)
	}
	if token != "" {
		if info := credential.Inspect(token); info.Expired(d.now()) {
			d.logger.Warn("credential expired", "subject", info.Subject, "expired_at", info.ExpiresAt)
		}
	}

	var body io.Reader
	if dr.AllowsBody() {
		body = strings.NewReader(dr.BodyText)
	}
	req, err := http.NewRequestWithContext(ctx, string(dr.Method), target, body)
	if err != nil {
		return transportFailure(errdef.Wrap(errdef.CodeHTTP, err, "build request"), 0)
	}
	if include {
		req.Header.Set("Authorization", auth)
	}
	for key, values := range dr.TransmitHeaders() {
		req.Header[key] = values
	}

	spanCtx, span := d.telemetry.Start(req.Context(), telemetry.RequestStart{
		HTTPRequest: req,
		Path:        dr.Path,
		Seq:         seq,
	})
	trace := nettrace.NewSession()
	req = req.WithContext(trace.Start(spanCtx))

	d.logger.Debug("dispatch", "seq", seq, "method", req.Method, "url", target)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		elapsed := roundMillis(time.Since(start))
		d.logger.Warn("transport failure", "seq", seq, "url", target, "error", err)
		span.End(telemetry.RequestResult{Err: err, ElapsedMillis: elapsed})
		out := transportFailure(err, elapsed)
		out.Timeline = trace.Finish(err)
		return out
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := roundMillis(time.Since(start))
	timeline := trace.Finish(err)
	if err != nil {
		err = errdef.Wrap(errdef.CodeHTTP, err, "read response body")
		d.logger.Warn("transport failure", "seq", seq, "url", target, "error", err)
		span.End(telemetry.RequestResult{Err: err, StatusCode: resp.StatusCode, ElapsedMillis: elapsed})
		out := transportFailure(err, elapsed)
		out.Timeline = timeline
		return out
	}
	span.End(telemetry.RequestResult{StatusCode: resp.StatusCode, ElapsedMillis: elapsed})
	d.logger.Debug("timing",
		"seq", seq,
		"connect", timeline.Sum(nettrace.PhaseConnect),
		"ttfb", timeline.Sum(nettrace.PhaseTTFB),
		"transfer", timeline.Sum(nettrace.PhaseTransfer),
		"reused", timeline.ConnectionReused(),
	)

	decoded, err := httpclient.DecodeBody(raw, resp.Header)
	if err != nil {
		d.logger.Debug("body left encoded", "seq", seq, "error", err)
		decoded = raw
	}

	respBody, isJSON := parseBody(decoded, resp.Header.Get("Content-Type"))
	d.logger.Debug("dispatch complete", "seq", seq, "status", resp.StatusCode, "elapsed_ms", elapsed)
	return Outcome{
		Status:        resp.StatusCode,
		StatusText:    httpclient.StatusText(resp),
		Headers:       flattenHeaders(resp.Header),
		Body:          respBody,
		BodyJSON:      isJSON,
		ElapsedMillis: elapsed,
		Timeline:      timeline,
	}
}

func (d *Dispatcher) record(entry history.Entry) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Append(entry); err != nil {
		d.logger.Warn("history not persisted", "error", err)
	}
}

func transportFailure(err error, elapsed int64) Outcome {
	return Outcome{
		Status:        0,
		StatusText:    TransportStatusText,
		Headers:       map[string]string{},
		Body:          map[string]any{"error": err.Error()},
		ElapsedMillis: elapsed,
		Err:           err,
	}
}

// parseBody yields a JSON value for JSON content types and the raw text for
// everything else, including JSON that does not parse. ok reports whether the
// value came from JSON.
func parseBody(data []byte, contentType string) (value any, ok bool) {
	if !httpclient.IsJSON(contentType) {
		return string(data), false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return string(data), false
	}
	if _, err := dec.Token(); err != io.EOF {
		return string(data), false
	}
	return value, true
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	return out
}

func roundMillis(d time.Duration) int64 {
	return d.Round(time.Millisecond).Milliseconds()
}
