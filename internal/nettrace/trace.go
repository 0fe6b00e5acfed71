package nettrace

import (
	"context"
	"crypto/tls"
	"net/http/httptrace"
	"time"
)

// Session wires an httptrace.ClientTrace to a Collector.
type Session struct {
	collector *Collector
	trace     *httptrace.ClientTrace
	now       func() time.Time
}

func NewSession() *Session {
	s := &Session{collector: NewCollector(), now: time.Now}
	s.trace = &httptrace.ClientTrace{
		DNSStart:          func(httptrace.DNSStartInfo) { s.collector.Begin(PhaseDNS, s.now()) },
		DNSDone:           s.onDNSDone,
		ConnectStart:      func(string, string) { s.collector.Begin(PhaseConnect, s.now()) },
		ConnectDone:       s.onConnectDone,
		GotConn:           s.onGotConn,
		TLSHandshakeStart: func() { s.collector.Begin(PhaseTLS, s.now()) },
		TLSHandshakeDone:  s.onTLSHandshakeDone,
		WroteHeaders:      func() { s.collector.Begin(PhaseReqBody, s.now()) },
		WroteRequest:      s.onWroteRequest,
		GotFirstResponseByte: func() {
			now := s.now()
			s.collector.End(PhaseTTFB, now, nil)
			s.collector.Begin(PhaseTransfer, now)
		},
	}
	return s
}

// Start marks the beginning of the exchange and returns ctx carrying the
// client trace.
func (s *Session) Start(ctx context.Context) context.Context {
	s.collector.Mark(s.now())
	return httptrace.WithClientTrace(ctx, s.trace)
}

func (s *Session) onDNSDone(info httptrace.DNSDoneInfo) {
	s.collector.End(PhaseDNS, s.now(), info.Err)
	s.collector.Fail(info.Err)
}

func (s *Session) onConnectDone(_, _ string, err error) {
	s.collector.End(PhaseConnect, s.now(), err)
	s.collector.Fail(err)
}

func (s *Session) onGotConn(info httptrace.GotConnInfo) {
	if info.Reused {
		s.collector.Instant(PhaseConnect, s.now(), true)
	}
}

func (s *Session) onTLSHandshakeDone(_ tls.ConnectionState, err error) {
	s.collector.End(PhaseTLS, s.now(), err)
	s.collector.Fail(err)
}

func (s *Session) onWroteRequest(info httptrace.WroteRequestInfo) {
	now := s.now()
	s.collector.End(PhaseReqBody, now, info.Err)
	if info.Err != nil {
		s.collector.Fail(info.Err)
		return
	}
	s.collector.Begin(PhaseTTFB, now)
}

// Finish closes the transfer phase and returns the timeline. err is the
// transport or body read failure, if any.
func (s *Session) Finish(err error) *Timeline {
	now := s.now()
	if s.collector.Active(PhaseTransfer) {
		s.collector.End(PhaseTransfer, now, err)
	}
	s.collector.Fail(err)
	s.collector.Complete(now)
	return s.collector.Timeline()
}
