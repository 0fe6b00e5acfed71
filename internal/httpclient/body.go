package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"

	"github.com/unkn0wn-root/reqbox/internal/errdef"
)

// DecodeBody undoes any Content-Encoding the transport left in place and
// transcodes a declared non-UTF-8 charset to UTF-8.
func DecodeBody(body []byte, header http.Header) ([]byte, error) {
	decoded, err := decodeContentEncoding(body, header.Values("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	return transcode(decoded, header.Get("Content-Type")), nil
}

func decodeContentEncoding(body []byte, values []string) ([]byte, error) {
	var encodings []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if enc := strings.ToLower(strings.TrimSpace(part)); enc != "" {
				encodings = append(encodings, enc)
			}
		}
	}

	// encodings are listed in the order they were applied
	out := body
	for i := len(encodings) - 1; i >= 0; i-- {
		var err error
		out, err = decodeOne(out, encodings[i])
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeHTTP, err, "decode %s body", encodings[i])
		}
	}
	return out, nil
}

func decodeOne(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "identity":
		return data, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = zr.Close() }()
		return io.ReadAll(zr)
	case "deflate":
		// servers disagree on zlib-wrapped vs raw deflate
		if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
			defer func() { _ = zr.Close() }()
			return io.ReadAll(zr)
		}
		fr := flate.NewReader(bytes.NewReader(data))
		defer func() { _ = fr.Close() }()
		return io.ReadAll(fr)
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	case "zstd":
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, errdef.New(errdef.CodeHTTP, "unsupported content encoding %q", encoding)
	}
}

func transcode(body []byte, contentType string) []byte {
	if contentType == "" {
		return body
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	label := strings.ToLower(strings.TrimSpace(params["charset"]))
	if label == "" || label == "utf-8" || label == "utf8" {
		return body
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}

// IsJSON reports whether the content type names a JSON payload:
// application/json or any +json structured suffix.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
