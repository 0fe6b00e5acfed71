package dispatch

import "github.com/unkn0wn-root/reqbox/internal/nettrace"

// Outcome is the reconciled result of one dispatch. Status 0 means no
// response was received; Body then holds {"error": message}.
type Outcome struct {
	Seq           uint64            `json:"seq"`
	Status        int               `json:"status"`
	StatusText    string            `json:"statusText"`
	Headers       map[string]string `json:"responseHeaders"`
	Body          any               `json:"body"`
	ElapsedMillis int64             `json:"elapsedMillis"`
	URL           string            `json:"url"`
	// BodyJSON is set when Body was decoded from a JSON payload, so a JSON
	// string stays distinguishable from a text body.
	BodyJSON bool `json:"-"`

	Err error `json:"-"`
	// Timeline is the phase breakdown of the exchange, nil when the request
	// never left the process.
	Timeline *nettrace.Timeline `json:"-"`
}

// TransportFailed reports whether no response was received.
func (o Outcome) TransportFailed() bool {
	return o.Status == 0
}

// ErrorMessage returns the transport failure message, or "" when a response
// was received.
func (o Outcome) ErrorMessage() string {
	if !o.TransportFailed() {
		return ""
	}
	if m, ok := o.Body.(map[string]any); ok {
		if msg, ok := m["error"].(string); ok {
			return msg
		}
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return ""
}
