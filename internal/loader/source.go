package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when a document does not exist at the source.
var ErrNotFound = errors.New("document not found")

// FetchError describes a failed document fetch.
type FetchError struct {
	Document string
	Location string
	Status   int // HTTP status, 0 for local sources
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s (%s): status %d", e.Document, e.Location, e.Status)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Document, e.Location, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Source fetches raw documents by name.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	// Location resolves a relative name to a path or URL.
	Location(name string) string
}

// NewSource returns an HTTPSource for http(s) URLs and a DirSource otherwise.
func NewSource(base string) Source {
	if isURL(base) {
		return NewHTTPSource(base)
	}
	return NewDirSource(base)
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DirSource reads documents from a local directory. A missing document is
// looked up again with a .gz or .zst suffix and decompressed.
type DirSource struct {
	Dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) Location(name string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(name))
}

func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Location(name)
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, &FetchError{Document: name, Location: path, Err: err}
	}

	for _, ext := range []string{".gz", ".zst"} {
		data, err := os.ReadFile(path + ext)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &FetchError{Document: name, Location: path + ext, Err: err}
		}
		data, err = decompress(ext, data)
		if err != nil {
			return nil, &FetchError{Document: name, Location: path + ext, Err: err}
		}
		return data, nil
	}

	return nil, &FetchError{Document: name, Location: path, Err: ErrNotFound}
}

func decompress(ext string, data []byte) ([]byte, error) {
	switch ext {
	case ".gz":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close() //nolint:errcheck
		return io.ReadAll(r)
	case ".zst":
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return d.DecodeAll(data, nil)
	}
	return data, nil
}

// HTTPSource fetches documents relative to a base URL.
type HTTPSource struct {
	Base    string
	Client  *http.Client
	limiter *rate.Limiter
}

// Default request pacing for remote documents.
const (
	DefaultRequestInterval = 100 * time.Millisecond
	DefaultRequestBurst    = 4
)

func NewHTTPSource(base string) *HTTPSource {
	return &HTTPSource{
		Base:    base,
		Client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(DefaultRequestInterval), DefaultRequestBurst),
	}
}

func (s *HTTPSource) Location(name string) string {
	u, err := url.JoinPath(s.Base, strings.Split(name, "/")...)
	if err != nil {
		return strings.TrimSuffix(s.Base, "/") + "/" + name
	}
	return u
}

func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	location := s.Location(name)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Document: name, Location: location, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &FetchError{Document: name, Location: location, Err: err}
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Document: name, Location: location, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fe := &FetchError{Document: name, Location: location, Status: resp.StatusCode}
		if resp.StatusCode == http.StatusNotFound {
			fe.Err = ErrNotFound
		}
		return nil, fe
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &FetchError{Document: name, Location: location, Err: err}
		}
		defer gz.Close() //nolint:errcheck
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{Document: name, Location: location, Err: err}
	}
	return data, nil
}
