// Package source resolves an image specifier to a decoded image.
//
// A specifier is either an http(s) URL, fetched once, or a local file path.
package source

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
	"strings"
	"time"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Source errors.
var (
	ErrInputNotFound         = errors.New("input not found")
	ErrInvalidInputSpecifier = errors.New("invalid input specifier")
	ErrRemoteFetchFailed     = errors.New("remote fetch failed")
	ErrInvalidImage          = errors.New("invalid image")
)

// DefaultMaxBytes caps remote and local reads when Loader.MaxBytes is zero.
const DefaultMaxBytes = 64 << 20

// Loader fetches and decodes images.
type Loader struct {
	Client   *http.Client
	MaxBytes int64
}

// NewLoader returns a Loader whose HTTP client uses the given timeout.
func NewLoader(timeout time.Duration, maxBytes int64) *Loader {
	return &Loader{
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: maxBytes,
	}
}

// IsRemote reports whether input names an http or https resource.
func IsRemote(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load resolves input and decodes it. The returned format is the decoder
// name registered with the image package.
func (l *Loader) Load(ctx context.Context, input string) (image.Image, string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, "", fmt.Errorf("%w: empty image path", ErrInvalidInputSpecifier)
	}

	var (
		data []byte
		err  error
	)
	if IsRemote(input) {
		data, err = l.fetch(ctx, input)
	} else {
		data, err = l.readLocal(input)
	}
	if err != nil {
		return nil, "", err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrInvalidImage, input, err)
	}
	return img, format, nil
}

func (l *Loader) limit() int64 {
	if l.MaxBytes > 0 {
		return l.MaxBytes
	}
	return DefaultMaxBytes
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: malformed URL %q", ErrInvalidInputSpecifier, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInputSpecifier, err)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrRemoteFetchFailed, rawURL, resp.StatusCode)
	}

	data, err := readLimited(resp.Body, l.limit())
	if errors.Is(err, ErrInvalidImage) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteFetchFailed, err)
	}
	return data, nil
}

func (l *Loader) readLocal(path string) ([]byte, error) {
	if strings.Contains(path, "://") {
		return nil, fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidInputSpecifier, path)
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInputSpecifier, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidInputSpecifier, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return readLimited(f, l.limit())
}

// readLimited reads r fully, failing if it holds more than n bytes.
func readLimited(r io.Reader, n int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, n+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > n {
		return nil, fmt.Errorf("%w: input exceeds %d bytes", ErrInvalidImage, n)
	}
	return data, nil
}
