package httpclient

import (
	"net/http"
	"time"
)

// Options configures the transport the dispatcher sends through. The zero
// value follows redirects, has no timeout and honours proxy env vars.
type Options struct {
	Timeout            time.Duration
	NoFollowRedirects  bool
	InsecureSkipVerify bool
	ProxyURL           string
}

// Doer is the subset of *http.Client the dispatcher depends on.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New builds an *http.Client for opts.
func New(opts Options) (*http.Client, error) {
	transport, err := buildTransport(opts)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Transport: transport}
	if opts.Timeout > 0 {
		client.Timeout = opts.Timeout
	}
	if opts.NoFollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client, nil
}

// StatusText returns the reason phrase of a response, falling back to the
// canonical text for the code when the server sent none.
func StatusText(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	status := resp.Status
	if len(status) > 4 && status[3] == ' ' {
		return status[4:]
	}
	return http.StatusText(resp.StatusCode)
}
