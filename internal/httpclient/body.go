package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// BodySource supplies a fresh request body for every request built from one
// RequestSpec. The zero value is an empty body.
type BodySource struct {
	inline []byte
	path   string
	size   int64
}

// NewBodySource picks the inline body or the body file of spec. GET requests
// never carry a body.
func NewBodySource(spec RequestSpec) (BodySource, error) {
	path := strings.TrimSpace(spec.BodyFile)
	switch {
	case spec.Body != "" && path != "":
		return BodySource{}, errors.New("body and body file cannot both be provided")
	case strings.EqualFold(strings.TrimSpace(spec.Method), http.MethodGet):
		return BodySource{}, nil
	case spec.Body != "":
		return BodySource{inline: []byte(spec.Body), size: int64(len(spec.Body))}, nil
	case path == "":
		return BodySource{}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return BodySource{}, fmt.Errorf("body file: %w", err)
	}
	if info.IsDir() {
		return BodySource{}, fmt.Errorf("body file %q is a directory", path)
	}
	return BodySource{path: path, size: info.Size()}, nil
}

// Len is the Content-Length of every body Open returns.
func (b BodySource) Len() int64 { return b.size }

// Open returns a reader positioned at the start of the body. File bodies are
// reopened on every call.
func (b BodySource) Open() (io.ReadCloser, error) {
	switch {
	case b.size == 0:
		return http.NoBody, nil
	case b.path != "":
		f, err := os.Open(b.path)
		if err != nil {
			return nil, fmt.Errorf("body file: %w", err)
		}
		return f, nil
	default:
		return io.NopCloser(bytes.NewReader(b.inline)), nil
	}
}
