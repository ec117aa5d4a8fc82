package drivelog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"os"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Reader Configuration
// -----------------------------------------------------------------------------

// readerConfig holds the resolved configuration for a reader.
type readerConfig struct {
	mode       ReadMode
	backend    Backend
	opener     Opener
	codec      Codec
	cacheDir   string
	sortByTime bool
}

// Option configures reader construction.
type Option interface {
	applyReader(*readerConfig) error
}

type optionFunc func(*readerConfig) error

func (f optionFunc) applyReader(cfg *readerConfig) error { return f(cfg) }

// WithMode sets the default read mode. An explicit source suffix in the
// identifier overrides it. Default: ModeFull.
func WithMode(mode ReadMode) Option {
	return optionFunc(func(cfg *readerConfig) error {
		if _, ok := sourceTable[mode]; !ok {
			return fmt.Errorf("unknown read mode %q", mode)
		}
		cfg.mode = mode
		return nil
	})
}

// WithBackend sets the backend used to resolve segment counts and file
// maps. Required for route identifiers; unused for explicit file readers.
func WithBackend(b Backend) Option {
	return optionFunc(func(cfg *readerConfig) error {
		cfg.backend = b
		return nil
	})
}

// WithOpener sets the Opener used to fetch segment files.
// Default: local paths plus http and https.
func WithOpener(o Opener) Option {
	return optionFunc(func(cfg *readerConfig) error {
		if o == nil {
			return errors.New("opener must not be nil")
		}
		cfg.opener = o
		return nil
	})
}

// WithCodec sets the record codec. Default: NewJSONLCodec().
func WithCodec(c Codec) Option {
	return optionFunc(func(cfg *readerConfig) error {
		if c == nil {
			return errors.New("codec must not be nil")
		}
		cfg.codec = c
		return nil
	})
}

// WithCache enables the on-disk fetch cache under dir, so repeated fetches
// of the same reference across reader instances reuse the downloaded
// bytes. Combine with CacheFromEnv for the conventional process toggle.
func WithCache(dir string) Option {
	return optionFunc(func(cfg *readerConfig) error {
		if dir == "" {
			return errors.New("cache dir must not be empty")
		}
		cfg.cacheDir = dir
		return nil
	})
}

// WithSortByTime orders each segment's records by monotonic timestamp
// after decoding.
func WithSortByTime() Option {
	return optionFunc(func(cfg *readerConfig) error {
		cfg.sortByTime = true
		return nil
	})
}

func buildConfig(opts []Option) (*readerConfig, error) {
	cfg := &readerConfig{
		mode:   ModeFull,
		opener: defaultOpener(),
		codec:  NewJSONLCodec(),
	}
	for _, opt := range opts {
		if err := opt.applyReader(cfg); err != nil {
			return nil, fmt.Errorf("drivelog: %w", err)
		}
	}
	if cfg.cacheDir != "" {
		cached, err := NewCachingOpener(cfg.opener, cfg.cacheDir)
		if err != nil {
			return nil, err
		}
		cfg.opener = cached
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------
// Reader
// -----------------------------------------------------------------------------

// Reader exposes the decoded records of one or more log segments as a
// single logical ordered stream.
//
// Fetching is deferred until first consumption; each segment is fetched and
// decoded at most once per Reader, so re-iteration replays the retained
// records. Segments whose fetch or decode fails are dropped from the
// stream rather than failing it; Skipped reports how many.
type Reader struct {
	segments    []*segmentFetcher
	unavailable int
}

// NewReader constructs a reader from a route identifier, a tool URL
// embedding one, a local file path, or a direct file URL.
//
// Route identifiers are resolved through the configured Backend; malformed
// identifiers and failed lookups abort construction. Per-segment source
// selection follows the read mode, dropping segments with no usable
// variant.
func NewReader(ctx context.Context, identifier string, opts ...Option) (*Reader, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newReader(ctx, identifier, cfg)
}

// NewReaderFromIdentifiers constructs a reader concatenating the segment
// streams of several identifiers, in the given order.
func NewReaderFromIdentifiers(ctx context.Context, identifiers []string, opts ...Option) (*Reader, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	merged := &Reader{}
	for _, identifier := range identifiers {
		r, err := newReader(ctx, identifier, cfg)
		if err != nil {
			return nil, err
		}
		merged.segments = append(merged.segments, r.segments...)
		merged.unavailable += r.unavailable
	}
	return merged, nil
}

// NewReaderFromFiles constructs a reader over explicit file references,
// bypassing route and range resolution entirely. References are read in
// the given order.
func NewReaderFromFiles(refs []string, opts ...Option) (*Reader, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	r := &Reader{}
	for _, ref := range refs {
		r.segments = append(r.segments, newSegmentFetcher(ref, cfg.opener, cfg.codec, cfg.sortByTime))
	}
	return r, nil
}

func newReader(ctx context.Context, identifier string, cfg *readerConfig) (*Reader, error) {
	if isDirectRef(identifier) {
		return &Reader{
			segments: []*segmentFetcher{newSegmentFetcher(identifier, cfg.opener, cfg.codec, cfg.sortByTime)},
		}, nil
	}

	sr, err := ParseIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	mode := cfg.mode
	if sr.Mode() != "" {
		mode = sr.Mode()
	}

	if cfg.backend == nil {
		return nil, fmt.Errorf("drivelog: %w: backend required to resolve %q", ErrResolution, identifier)
	}

	idxs, err := sr.SegmentIndexes(ctx, cfg.backend)
	if err != nil {
		return nil, err
	}

	files, err := cfg.backend.SegmentFiles(ctx, sr.Route())
	if err != nil {
		return nil, fmt.Errorf("drivelog: %w: segment files for %s: %w", ErrResolution, sr.Route(), err)
	}

	r := &Reader{}
	for _, idx := range idxs {
		if idx < 0 || idx >= len(files) {
			r.unavailable++
			continue
		}
		ref, ok := sourceFor(mode, files[idx])
		if !ok {
			r.unavailable++
			continue
		}
		r.segments = append(r.segments, newSegmentFetcher(ref, cfg.opener, cfg.codec, cfg.sortByTime))
	}
	return r, nil
}

// isDirectRef reports whether the identifier names a file directly: a URL
// without an embedded route identifier, or an existing local path.
func isDirectRef(identifier string) bool {
	if strings.Contains(identifier, "://") {
		u, err := url.Parse(identifier)
		if err != nil {
			return true
		}
		query := u.Query()
		for _, param := range identifierQueryParams {
			if query.Get(param) != "" {
				return false
			}
		}
		return true
	}

	info, err := os.Stat(identifier)
	return err == nil && !info.IsDir()
}

// SegmentCount returns the number of readable segments the reader holds.
func (r *Reader) SegmentCount() int {
	return len(r.segments)
}

// Skipped returns the number of segments dropped so far: segments with no
// usable source at construction plus segments whose fetch or decode
// failed during consumption.
func (r *Reader) Skipped() int {
	n := r.unavailable
	for _, seg := range r.segments {
		if seg.failed() {
			n++
		}
	}
	return n
}

// Iterate returns the logical record stream, ordered by ascending segment
// index and by recorded order within each segment. The sequence is finite
// and restartable: re-iteration replays the retained records without
// re-fetching. Failing segments are skipped.
func (r *Reader) Iterate(ctx context.Context) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, seg := range r.segments {
			records, err := seg.Records(ctx)
			if err != nil {
				continue
			}
			for _, rec := range records {
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// Records materializes the full stream. Equivalent to collecting Iterate.
func (r *Reader) Records(ctx context.Context) []Record {
	var out []Record
	for rec := range r.Iterate(ctx) {
		out = append(out, rec)
	}
	return out
}

// First returns the first record in stream order whose discriminant equals
// which, fetching no segments beyond the first match. Returns ErrNotFound
// when no record matches.
func (r *Reader) First(ctx context.Context, which string) (Record, error) {
	for rec := range r.Iterate(ctx) {
		if rec.Which == which {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// Filter returns the sub-stream of records whose discriminant equals
// which, in stream order. Restartable like Iterate.
func (r *Reader) Filter(ctx context.Context, which string) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for rec := range r.Iterate(ctx) {
			if rec.Which == which {
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Parallel segment map
// -----------------------------------------------------------------------------

// RunAcrossSegments applies fn to every segment's record slice using up to
// workers concurrent workers, returning one result per readable segment in
// ascending segment-index order regardless of completion order. Segments
// whose fetch fails are skipped, matching Iterate, so for an identity fn
// the total record count across results equals the Iterate count.
func RunAcrossSegments[T any](ctx context.Context, r *Reader, workers int, fn func([]Record) T) ([]T, error) {
	if workers < 1 {
		return nil, fmt.Errorf("drivelog: worker count must be at least 1, got %d", workers)
	}
	if workers > len(r.segments) {
		workers = len(r.segments)
	}

	results := make([]T, len(r.segments))
	done := make([]bool, len(r.segments))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				records, err := r.segments[i].Records(ctx)
				if err != nil {
					continue
				}
				results[i] = fn(records)
				done[i] = true
			}
		}()
	}
	for i := range r.segments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Reassemble in segment order, dropping failed segments.
	out := make([]T, 0, len(results))
	for i, ok := range done {
		if ok {
			out = append(out, results[i])
		}
	}
	return out, nil
}
