package httpclient

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func brotliBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(data); err != nil {
		t.Fatalf("brotli write: %v", err)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("brotli close: %v", err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil)
}

func TestDecodeBodyContentEncodings(t *testing.T) {
	payload := []byte(`{"status":"ok"}`)
	cases := map[string][]byte{
		"gzip":     gzipBytes(t, payload),
		"br":       brotliBytes(t, payload),
		"zstd":     zstdBytes(t, payload),
		"identity": payload,
	}
	for enc, data := range cases {
		t.Run(enc, func(t *testing.T) {
			got, err := DecodeBody(data, http.Header{"Content-Encoding": {enc}})
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("expected %q, got %q", payload, got)
			}
		})
	}
}

func TestDecodeBodyStackedEncodings(t *testing.T) {
	payload := []byte("hello")
	data := brotliBytes(t, gzipBytes(t, payload))
	got, err := DecodeBody(data, http.Header{"Content-Encoding": {"gzip, br"}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestDecodeBodyUnsupportedEncoding(t *testing.T) {
	if _, err := DecodeBody([]byte("x"), http.Header{"Content-Encoding": {"compress"}}); err == nil {
		t.Fatalf("expected error for unsupported encoding")
	}
}

func TestDecodeBodyTranscodesCharset(t *testing.T) {
	latin1 := []byte{'c', 'a', 'f', 0xe9}
	got, err := DecodeBody(latin1, http.Header{"Content-Type": {"text/plain; charset=ISO-8859-1"}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != "café" {
		t.Fatalf("expected café, got %q", got)
	}

	raw := []byte("plain")
	got, _ = DecodeBody(raw, http.Header{"Content-Type": {"text/plain"}})
	if string(got) != "plain" {
		t.Fatalf("expected body untouched, got %q", got)
	}
}

func TestIsJSON(t *testing.T) {
	cases := map[string]bool{
		"application/json":                true,
		"application/json; charset=utf-8": true,
		"application/problem+json":        true,
		"APPLICATION/JSON":                true,
		"text/plain":                      false,
		"text/html; charset=utf-8":        false,
		"":                                false,
	}
	for ct, want := range cases {
		if got := IsJSON(ct); got != want {
			t.Fatalf("IsJSON(%q) = %v, want %v", ct, got, want)
		}
	}
}
