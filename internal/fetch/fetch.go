// Package fetch retrieves remote images for description requests.
//
// Downloads go through a scoped temporary file that is removed on every exit
// path, and are bounded by a timeout and a byte cap. Only http and https URLs
// are accepted.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	// Registered image formats for decode validation.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/genrelay/genrelay/llm"
)

// Sentinel errors for failures caused by the caller's input.
var (
	// ErrScheme is returned for URLs that are not http or https.
	ErrScheme = errors.New("unsupported URL scheme")
	// ErrTooLarge is returned when the resource exceeds the configured byte cap.
	ErrTooLarge = errors.New("image exceeds size limit")
	// ErrNotImage is returned when the downloaded bytes are not a supported image format.
	ErrNotImage = errors.New("not a supported image format")
)

// RemoteError reports a failure to retrieve the URL itself: the host was
// unreachable or answered with a non-2xx status.
type RemoteError struct {
	URL    string
	Status int // 0 if the request never completed
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Fetcher downloads and validates remote images.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	tempDir  string // "" means the OS default
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithTempDir overrides the directory for scratch files. Used by tests to
// observe cleanup.
func WithTempDir(dir string) Option {
	return func(f *Fetcher) { f.tempDir = dir }
}

// New creates a Fetcher with the given request timeout and download byte cap.
func New(timeout time.Duration, maxBytes int64, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchImage downloads the resource at rawURL, verifies it decodes as an
// image, and returns the encoded bytes with their sniffed MIME type. The
// download lands in a temporary file that is removed before FetchImage
// returns, on success and on every failure path.
func (f *Fetcher) FetchImage(ctx context.Context, rawURL string) (llm.Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return llm.Image{}, fmt.Errorf("parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return llm.Image{}, fmt.Errorf("%w: %q", ErrScheme, u.Scheme)
	}

	tmp, err := os.CreateTemp(f.tempDir, "genrelay-image-*")
	if err != nil {
		return llm.Image{}, fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := f.download(ctx, rawURL, tmp); err != nil {
		return llm.Image{}, err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return llm.Image{}, fmt.Errorf("rewinding temp file: %w", err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return llm.Image{}, fmt.Errorf("reading temp file: %w", err)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return llm.Image{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	return llm.Image{
		MIMEType: http.DetectContentType(data),
		Data:     data,
	}, nil
}

// download streams the response body into w, honoring the byte cap.
func (f *Fetcher) download(ctx context.Context, rawURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return &RemoteError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{URL: rawURL, Status: resp.StatusCode}
	}

	// Read one byte past the cap so an exactly-capped body is still accepted.
	n, err := io.Copy(w, io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return &RemoteError{URL: rawURL, Err: err}
	}
	if n > f.maxBytes {
		return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	return nil
}
