package drivelog

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Filesystem opener
// -----------------------------------------------------------------------------

func TestFSOpener_Open(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()
	path := filepath.Join(dir, "qlog.jsonl")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, err := NewFSOpener().Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestFSOpener_NotFound(t *testing.T) {
	_, err := NewFSOpener().Open(t.Context(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Memory opener
// -----------------------------------------------------------------------------

func TestMemoryOpener_CountsOpens(t *testing.T) {
	ctx := t.Context()
	m := NewMemoryOpener()
	m.Add("ref", []byte("data"))

	for i := 0; i < 3; i++ {
		rc, err := m.Open(ctx, "ref")
		if err != nil {
			t.Fatal(err)
		}
		_ = rc.Close()
	}
	if got := m.OpenCount("ref"); got != 3 {
		t.Errorf("expected 3 opens, got %d", got)
	}

	if _, err := m.Open(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if got := m.OpenCount("missing"); got != 0 {
		t.Errorf("missing refs must not count opens, got %d", got)
	}
}

// -----------------------------------------------------------------------------
// Dispatch opener
// -----------------------------------------------------------------------------

func TestDispatchOpener_Routes(t *testing.T) {
	ctx := t.Context()

	fallback := NewMemoryOpener()
	fallback.Add("local/path", []byte("local"))
	schemed := NewMemoryOpener()
	schemed.Add("mem://bucket/key", []byte("remote"))

	d := NewDispatchOpener(fallback)
	d.Register("mem", schemed)

	rc, err := d.Open(ctx, "local/path")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "local" {
		t.Errorf("fallback route returned %q", data)
	}

	rc, err = d.Open(ctx, "mem://bucket/key")
	if err != nil {
		t.Fatal(err)
	}
	data, _ = io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "remote" {
		t.Errorf("scheme route returned %q", data)
	}

	if _, err := d.Open(ctx, "ftp://host/file"); !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch for unregistered scheme, got: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Caching opener
// -----------------------------------------------------------------------------

func TestCachingOpener_FetchesOnceAcrossInstances(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	inner := NewMemoryOpener()
	inner.Add("https://data.example.com/rlog.zst", []byte("segment bytes"))

	for i := 0; i < 2; i++ {
		c, err := NewCachingOpener(inner, dir)
		if err != nil {
			t.Fatal(err)
		}
		rc, err := c.Open(ctx, "https://data.example.com/rlog.zst")
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "segment bytes" {
			t.Errorf("iteration %d: unexpected content %q", i, data)
		}
	}

	if got := inner.OpenCount("https://data.example.com/rlog.zst"); got != 1 {
		t.Errorf("expected exactly one inner fetch, got %d", got)
	}
}

func TestCachingOpener_EntryIsKeyedByHash(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	inner := NewMemoryOpener()
	inner.Add("ref-a", []byte("a"))

	c, err := NewCachingOpener(inner, dir)
	if err != nil {
		t.Fatal(err)
	}
	rc, err := c.Open(ctx, "ref-a")
	if err != nil {
		t.Fatal(err)
	}
	_ = rc.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one cache entry, got %d", len(entries))
	}
	if name := entries[0].Name(); name != cacheKey("ref-a") {
		t.Errorf("entry %q is not the reference hash %q", name, cacheKey("ref-a"))
	}
}

// failingReader errors partway through a read.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (failingReader) Close() error             { return nil }

// failingOpener returns a reader that errors mid-stream.
type failingOpener struct{}

func (failingOpener) Open(context.Context, string) (io.ReadCloser, error) {
	return failingReader{}, nil
}

func TestCachingOpener_PartialDownloadLeavesNoEntry(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	c, err := NewCachingOpener(failingOpener{}, dir)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Open(ctx, "ref")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			t.Errorf("partial download left visible entry %q", e.Name())
		}
	}
}

func TestCachingOpener_InnerErrorPropagates(t *testing.T) {
	c, err := NewCachingOpener(NewMemoryOpener(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Open(t.Context(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Environment toggle
// -----------------------------------------------------------------------------

func TestCacheFromEnv(t *testing.T) {
	t.Setenv(CacheEnvVar, "1")
	if !CacheFromEnv() {
		t.Error("expected cache enabled")
	}
	t.Setenv(CacheEnvVar, "0")
	if CacheFromEnv() {
		t.Error("expected cache disabled")
	}
	t.Setenv(CacheEnvVar, "")
	if CacheFromEnv() {
		t.Error("expected cache disabled by default")
	}
}
