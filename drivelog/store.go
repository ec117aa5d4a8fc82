package drivelog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Filesystem Opener
// -----------------------------------------------------------------------------

// fsOpener implements Opener for local file paths.
type fsOpener struct{}

// NewFSOpener creates an Opener reading references as local file paths.
func NewFSOpener() Opener {
	return &fsOpener{}
}

func (f *fsOpener) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	file, err := os.Open(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("drivelog: %w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("drivelog: %w: open %s: %w", ErrFetch, ref, err)
	}
	return file, nil
}

// -----------------------------------------------------------------------------
// HTTP Opener
// -----------------------------------------------------------------------------

// httpOpener implements Opener for http and https references.
type httpOpener struct {
	client *http.Client
}

// DefaultFetchTimeout bounds a single segment file download.
const DefaultFetchTimeout = 60 * time.Second

// NewHTTPOpener creates an Opener fetching references over HTTP. A zero
// timeout uses DefaultFetchTimeout; an unmet deadline surfaces as ErrFetch.
func NewHTTPOpener(timeout time.Duration) Opener {
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}
	return &httpOpener{client: &http.Client{Timeout: timeout}}
}

func (h *httpOpener) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("drivelog: %w: %s: %w", ErrFetch, ref, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drivelog: %w: get %s: %w", ErrFetch, ref, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("drivelog: %w: %s", ErrNotFound, ref)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("drivelog: %w: get %s: status %d", ErrFetch, ref, resp.StatusCode)
	}
	return resp.Body, nil
}

// -----------------------------------------------------------------------------
// Memory Opener
// -----------------------------------------------------------------------------

// MemoryOpener is an in-memory Opener for tests and fixtures.
//
// MemoryOpener is safe for concurrent use and counts how many times each
// reference was opened.
type MemoryOpener struct {
	mu    sync.Mutex
	data  map[string][]byte
	opens map[string]int
}

// NewMemoryOpener creates an empty in-memory Opener.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{
		data:  make(map[string][]byte),
		opens: make(map[string]int),
	}
}

// Add registers the bytes served for a reference, replacing any previous
// content.
func (m *MemoryOpener) Add(ref string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[ref] = append([]byte(nil), data...)
}

// OpenCount returns how many times the reference has been opened.
func (m *MemoryOpener) OpenCount(ref string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[ref]
}

func (m *MemoryOpener) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	m.mu.Lock()
	data, exists := m.data[ref]
	if exists {
		m.opens[ref]++
	}
	m.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("drivelog: %w: %s", ErrNotFound, ref)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// -----------------------------------------------------------------------------
// Dispatch Opener
// -----------------------------------------------------------------------------

// DispatchOpener routes references to openers by URL scheme, with a
// fallback for scheme-less references.
type DispatchOpener struct {
	schemes  map[string]Opener
	fallback Opener
}

// NewDispatchOpener creates a scheme-dispatching Opener. References without
// a scheme go to the fallback.
func NewDispatchOpener(fallback Opener) *DispatchOpener {
	return &DispatchOpener{
		schemes:  make(map[string]Opener),
		fallback: fallback,
	}
}

// Register routes references with the given scheme (e.g. "https", "s3") to
// the opener.
func (d *DispatchOpener) Register(scheme string, o Opener) {
	d.schemes[scheme] = o
}

func (d *DispatchOpener) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	scheme, _, found := strings.Cut(ref, "://")
	if !found {
		return d.fallback.Open(ctx, ref)
	}
	o, ok := d.schemes[scheme]
	if !ok {
		return nil, fmt.Errorf("drivelog: %w: no opener for scheme %q", ErrFetch, scheme)
	}
	return o.Open(ctx, ref)
}

// defaultOpener serves local paths, http, and https references.
func defaultOpener() Opener {
	d := NewDispatchOpener(NewFSOpener())
	h := NewHTTPOpener(0)
	d.Register("http", h)
	d.Register("https", h)
	return d
}

// -----------------------------------------------------------------------------
// Caching Opener
// -----------------------------------------------------------------------------

// CachingOpener wraps another Opener with an on-disk byte cache keyed by a
// stable hash of the reference.
//
// A cached entry becomes visible only through a temp-file+rename pair, so a
// failed or partial download never leaves a corrupt entry for concurrent
// readers; reads of cached entries need no locking.
type CachingOpener struct {
	inner Opener
	dir   string
}

// CacheEnvVar is the environment toggle read by CacheFromEnv.
const CacheEnvVar = "DRIVELOG_CACHE"

// CacheFromEnv reports whether the process-level cache toggle is set.
// Constructors take the cache decision explicitly; this helper exists so
// callers can thread the conventional environment switch through.
func CacheFromEnv() bool {
	return os.Getenv(CacheEnvVar) == "1"
}

// NewCachingOpener creates a caching wrapper storing fetched bytes under
// dir. The directory is created if missing.
func NewCachingOpener(inner Opener, dir string) (*CachingOpener, error) {
	if inner == nil {
		return nil, fmt.Errorf("drivelog: inner opener is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("drivelog: cache dir: %w", err)
	}
	return &CachingOpener{inner: inner, dir: dir}, nil
}

func (c *CachingOpener) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	entry := filepath.Join(c.dir, cacheKey(ref))

	if file, err := os.Open(entry); err == nil {
		return file, nil
	}

	rc, err := c.inner.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	tmp, err := os.CreateTemp(c.dir, ".drivelog-fetch-*")
	if err != nil {
		return nil, fmt.Errorf("drivelog: %w: cache temp file: %w", ErrFetch, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("drivelog: %w: caching %s: %w", ErrFetch, ref, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("drivelog: %w: caching %s: %w", ErrFetch, ref, err)
	}
	if err := os.Rename(tmpName, entry); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("drivelog: %w: caching %s: %w", ErrFetch, ref, err)
	}

	file, err := os.Open(entry)
	if err != nil {
		return nil, fmt.Errorf("drivelog: %w: reading cache entry for %s: %w", ErrFetch, ref, err)
	}
	return file, nil
}

func cacheKey(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:])
}
