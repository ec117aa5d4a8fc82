package drivelog

import (
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Selector
// -----------------------------------------------------------------------------

type selectorKind int

const (
	selAll selectorKind = iota
	selIndex
	selList
	selSlice
)

// Selector describes which segment indices of a route to include.
//
// A selector is one of: all segments, a single index, an explicit index
// list, or a slice with the usual sequence-slicing semantics. Indices may be
// negative (counted from the end) and a slice's bounds may be omitted.
type Selector struct {
	kind  selectorKind
	index int
	list  []int

	start, stop, step *int
}

// SelectAll returns a selector covering every segment of a route.
func SelectAll() Selector {
	return Selector{kind: selAll}
}

// SelectIndex returns a selector for a single segment index.
// Negative indices count from the end of the route.
func SelectIndex(i int) Selector {
	return Selector{kind: selIndex, index: i}
}

// SelectIndexes returns a selector for an explicit list of segment indices,
// resolved independently and kept in the given order.
func SelectIndexes(idxs ...int) Selector {
	list := make([]int, len(idxs))
	copy(list, idxs)
	return Selector{kind: selList, list: list}
}

// SelectSlice returns a slice selector. Nil fields are omitted bounds:
// start defaults to the sequence start, stop to the sequence end, and step
// to 1.
func SelectSlice(start, stop, step *int) Selector {
	return Selector{kind: selSlice, start: start, stop: stop, step: step}
}

// String renders the selector in its canonical identifier form. The "all"
// selector renders as the empty string.
func (s Selector) String() string {
	switch s.kind {
	case selIndex:
		return strconv.Itoa(s.index)
	case selList:
		parts := make([]string, len(s.list))
		for i, idx := range s.list {
			parts[i] = strconv.Itoa(idx)
		}
		return strings.Join(parts, ",")
	case selSlice:
		out := formatBound(s.start) + ":" + formatBound(s.stop)
		if s.step != nil {
			out += ":" + formatBound(s.step)
		}
		return out
	default:
		return ""
	}
}

func formatBound(b *int) string {
	if b == nil {
		return ""
	}
	return strconv.Itoa(*b)
}

// needsLength reports whether resolving the selector requires the route's
// segment count. It is true for "all", for any negative index, and for
// slices missing an explicit non-negative stop or containing a negative
// bound. A fully-specified non-negative slice resolves without the count.
func (s Selector) needsLength() bool {
	switch s.kind {
	case selAll:
		return true
	case selIndex:
		return s.index < 0
	case selList:
		for _, idx := range s.list {
			if idx < 0 {
				return true
			}
		}
		return false
	case selSlice:
		if s.stop == nil || *s.stop < 0 {
			return true
		}
		return s.start != nil && *s.start < 0
	default:
		return false
	}
}

// resolve expands the selector into concrete segment indices. n is the
// route's segment count; it is consulted only when needsLength reports
// true, so callers may pass any value otherwise. Bounds of non-negative
// indices are not checked here; out-of-range segments surface as
// unavailable at read time.
func (s Selector) resolve(n int) []int {
	switch s.kind {
	case selAll:
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	case selIndex:
		return []int{resolveIndex(s.index, n)}
	case selList:
		out := make([]int, len(s.list))
		for i, idx := range s.list {
			out[i] = resolveIndex(idx, n)
		}
		return out
	case selSlice:
		if !s.needsLength() {
			// An explicit non-negative stop bounds the sequence on its own:
			// slice over [0, stop] as if that were the whole route.
			n = *s.stop + 1
		}
		return expandSlice(n, s.start, s.stop, s.step)
	default:
		return nil
	}
}

func resolveIndex(idx, n int) int {
	if idx < 0 {
		return n + idx
	}
	return idx
}

// expandSlice yields the indices that slicing a sequence of length n with
// [start:stop:step] would produce, matching general sequence-slicing
// semantics including negative bounds and clamping.
func expandSlice(n int, startP, stopP, stepP *int) []int {
	step := 1
	if stepP != nil {
		step = *stepP
	}

	var start, stop int
	if step > 0 {
		start, stop = 0, n
	} else {
		start, stop = n-1, -1
	}

	if startP != nil {
		start = clampBound(*startP, n, step)
	}
	if stopP != nil {
		stop = clampBound(*stopP, n, step)
	}

	var out []int
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out
}

func clampBound(b, n, step int) int {
	if b < 0 {
		b += n
	}
	if b < 0 {
		if step < 0 {
			return -1
		}
		return 0
	}
	if b >= n {
		if step < 0 {
			return n - 1
		}
		return n
	}
	return b
}
