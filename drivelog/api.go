// Package drivelog resolves route identifiers into ordered, replayable
// streams of recorded log records.
//
// A route identifier names a recorded drive (device id plus drive name),
// optionally narrowed to a sub-range of its segments and to a preferred log
// variant. Drivelog parses the identifier, resolves the range against the
// backend, fetches the per-segment files from local disk, HTTP, or an
// object store, and exposes the decoded records as one logical stream.
// Drivelog is read-only: it never writes to the backend.
package drivelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// -----------------------------------------------------------------------------
// Core types
// -----------------------------------------------------------------------------

// Route identifies a recorded drive: a device id and a drive name.
// Routes are immutable value types once parsed.
type Route struct {
	// DongleID is the 16 hex character device identifier.
	DongleID string

	// Name is the drive timestamp name, e.g. "2024-01-03--09-37-12".
	Name string
}

// String returns the canonical route form "dongle|name".
func (r Route) String() string {
	return r.DongleID + "|" + r.Name
}

// ReadMode selects which per-segment log variant to read.
type ReadMode string

const (
	// ModeQuick reads only the compact low-rate log variant.
	ModeQuick ReadMode = "q"

	// ModeFull reads only the complete high-rate log variant.
	ModeFull ReadMode = "r"

	// ModeAuto prefers the full log and falls back to the quick log per
	// segment when the full log is unavailable.
	ModeAuto ReadMode = "a"
)

// SegmentFiles holds the file references for one segment's log variants.
// An empty string means that variant is unavailable.
type SegmentFiles struct {
	// Quick is the reference to the compact log file, if any.
	Quick string `json:"quick_log,omitempty"`

	// Full is the reference to the complete log file, if any.
	Full string `json:"full_log,omitempty"`
}

// Record is a single decoded log record.
//
// The wire encoding of the payload is owned by the Codec that produced the
// record; drivelog only interprets the discriminant and timestamp.
type Record struct {
	// Which discriminates the record type, e.g. "carParams".
	Which string `json:"which"`

	// LogMonoTime is the monotonic capture time in nanoseconds.
	LogMonoTime uint64 `json:"logMonoTime"`

	// Data is the raw record payload.
	Data json.RawMessage `json:"data,omitempty"`
}

// -----------------------------------------------------------------------------
// Backend interface
// -----------------------------------------------------------------------------

// Backend answers route-level lookups against the recording service.
//
// Both calls are invoked lazily and memoized by their consumers: a
// SegmentRange asks for the segment count at most once, and a Reader asks
// for the file map at most once.
type Backend interface {
	// MaxSegmentCount returns the number of segments recorded for the route.
	MaxSegmentCount(ctx context.Context, route Route) (int, error)

	// SegmentFiles returns the per-segment file references for the route,
	// ordered by ascending segment index.
	SegmentFiles(ctx context.Context, route Route) ([]SegmentFiles, error)
}

// -----------------------------------------------------------------------------
// Opener interface
// -----------------------------------------------------------------------------

// Opener retrieves the raw bytes behind a file reference.
//
// Implementations may target the local filesystem, HTTP, or object stores.
// The interface is intentionally minimal to avoid backend-specific leakage;
// retry and backoff policies belong in wrapping implementations.
type Opener interface {
	// Open returns a reader for the referenced file.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// -----------------------------------------------------------------------------
// Codec interface
// -----------------------------------------------------------------------------

// Codec decodes a segment file's bytes into records.
//
// Codecs are pluggable and orthogonal to fetching and decompression.
type Codec interface {
	// Name returns the codec identifier (for example, "jsonl").
	Name() string

	// Decode reads all records from the given reader in recorded order.
	Decode(r io.Reader) ([]Record, error)
}

// -----------------------------------------------------------------------------
// Decompressor interface
// -----------------------------------------------------------------------------

// Decompressor unwraps a segment file's compression layer.
//
// Decompressors are pluggable and selected by file extension; see
// decompressorFor.
type Decompressor interface {
	// Name returns the decompressor identifier (for example, "zstd").
	Name() string

	// Extension returns the file extension (for example, ".zst", "").
	Extension() string

	// Decompress wraps a reader with decompression.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrNotFound indicates a requested record or file does not exist.
	ErrNotFound = errNotFound{}

	// ErrParse indicates a malformed identifier or segment range.
	ErrParse = errors.New("invalid identifier")

	// ErrResolution indicates a backend lookup failed or returned
	// inconsistent data.
	ErrResolution = errors.New("resolution failed")

	// ErrFetch indicates a network or storage failure retrieving a segment
	// file.
	ErrFetch = errors.New("fetch failed")

	// ErrDecode indicates a segment file was retrieved but its contents are
	// malformed.
	ErrDecode = errors.New("decode failed")
)

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

// ParseError describes an identifier or segment range grammar violation.
type ParseError struct {
	// Input is the rejected identifier.
	Input string

	// Message describes the violation.
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Input, e.Message)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

func parseErrorf(input, format string, args ...any) error {
	return &ParseError{Input: input, Message: fmt.Sprintf(format, args...)}
}
