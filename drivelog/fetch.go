package drivelog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Segment fetcher
// -----------------------------------------------------------------------------

// segmentFetcher retrieves and decodes one segment file at most once,
// retaining the decoded records for replay. Distinct fetcher instances for
// the same reference are independent; cross-instance reuse comes from a
// CachingOpener, not from the fetcher.
type segmentFetcher struct {
	ref        string
	opener     Opener
	codec      Codec
	sortByTime bool

	once    sync.Once
	done    atomic.Bool
	records []Record
	err     error
}

func newSegmentFetcher(ref string, opener Opener, codec Codec, sortByTime bool) *segmentFetcher {
	return &segmentFetcher{
		ref:        ref,
		opener:     opener,
		codec:      codec,
		sortByTime: sortByTime,
	}
}

// Records returns the segment's decoded records in recorded order. The
// fetch and decode run on the first call only; every later call, from any
// goroutine, returns the retained result.
func (f *segmentFetcher) Records(ctx context.Context) ([]Record, error) {
	f.once.Do(func() {
		f.records, f.err = f.fetch(ctx)
		f.done.Store(true)
	})
	return f.records, f.err
}

// failed reports whether a completed fetch ended in error. It never
// triggers a fetch.
func (f *segmentFetcher) failed() bool {
	return f.done.Load() && f.err != nil
}

func (f *segmentFetcher) fetch(ctx context.Context) ([]Record, error) {
	rc, err := f.opener.Open(ctx, f.ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	dec, err := decompressorFor(f.ref).Decompress(rc)
	if err != nil {
		return nil, fmt.Errorf("drivelog: %w: decompressing %s: %w", ErrDecode, f.ref, err)
	}
	defer func() { _ = dec.Close() }()

	records, err := f.codec.Decode(dec)
	if err != nil {
		return nil, fmt.Errorf("drivelog: %w: decoding %s: %w", ErrDecode, f.ref, err)
	}

	if f.sortByTime {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].LogMonoTime < records[j].LogMonoTime
		})
	}
	return records, nil
}
