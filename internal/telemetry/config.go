package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	envEndpoint    = "REQBOX_TRACE_OTEL_ENDPOINT"
	envInsecure    = "REQBOX_TRACE_OTEL_INSECURE"
	envService     = "REQBOX_TRACE_OTEL_SERVICE"
	envDialTimeout = "REQBOX_TRACE_OTEL_TIMEOUT"
	envHeaders     = "REQBOX_TRACE_OTEL_HEADERS"

	envStdEndpoint = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"

	DefaultServiceName = "reqbox"
)

type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
	DialTimeout time.Duration
	Headers     map[string]string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// ConfigFromEnv reads exporter settings; the reqbox variables take precedence
// over the standard OTEL one.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := Config{ServiceName: DefaultServiceName}
	if getenv == nil {
		return cfg
	}

	cfg.Endpoint = strings.TrimSpace(getenv(envEndpoint))
	if cfg.Endpoint == "" {
		cfg.Endpoint = strings.TrimSpace(getenv(envStdEndpoint))
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(getenv(envInsecure))); err == nil {
		cfg.Insecure = v
	}
	if v := strings.TrimSpace(getenv(envService)); v != "" {
		cfg.ServiceName = v
	}
	if v, err := time.ParseDuration(strings.TrimSpace(getenv(envDialTimeout))); err == nil {
		cfg.DialTimeout = v
	}
	if headers, err := ParseHeaders(getenv(envHeaders)); err == nil {
		cfg.Headers = headers
	}
	return cfg
}

// ParseHeaders parses "k=v, k2=v2". Blank input yields nil.
func ParseHeaders(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header pair %q", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
