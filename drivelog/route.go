package drivelog

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Identifier grammar
// -----------------------------------------------------------------------------

// Identifier grammar, beyond the route itself:
//
//	identifier := route ["--" index] | route ["/" selector] ["/" mode]
//	selector   := index | slice | ""            ("" means all segments)
//	slice      := [index] ":" [index] [":" [index]]
//	mode       := "q" | "r" | "a"
//
// The id/name separator is "|" or "/", interchangeably. A bare "--N" suffix
// is sugar for "/N" and accepts a single index only.
const (
	dongleIDPattern  = `[a-f0-9]{16}`
	routeNamePattern = `[0-9]{4}-[0-9]{2}-[0-9]{2}--[0-9]{2}-[0-9]{2}-[0-9]{2}`
	slicePattern     = `[+-]?[0-9]*(?::[+-]?[0-9]*)?(?::[+-]?[0-9]*)?`
)

var segmentRangeRE = regexp.MustCompile(
	`^(?P<dongle>` + dongleIDPattern + `)[|/](?P<name>` + routeNamePattern + `)` +
		`(?:(?P<sep>--|/)(?P<sel>` + slicePattern + `))?` +
		`(?:/(?P<mode>[qra]))?$`)

// Query parameters under which tool URLs embed a route identifier.
var identifierQueryParams = []string{"route", "onebox"}

// ParseIdentifier turns a raw identifier, or a tool URL embedding one in its
// query string, into a SegmentRange. The embedded identifier's id/name
// separator may appear literally or percent-encoded.
//
// Any grammar violation returns a *ParseError.
func ParseIdentifier(identifier string) (*SegmentRange, error) {
	raw := identifier
	if strings.Contains(identifier, "://") {
		u, err := url.Parse(identifier)
		if err != nil {
			return nil, parseErrorf(raw, "not a valid URL: %v", err)
		}
		query := u.Query()
		embedded := ""
		for _, param := range identifierQueryParams {
			if v := query.Get(param); v != "" {
				embedded = v
				break
			}
		}
		if embedded == "" {
			return nil, parseErrorf(raw, "URL carries no route identifier")
		}
		identifier = embedded
	}
	return NewSegmentRange(identifier)
}

// -----------------------------------------------------------------------------
// SegmentRange
// -----------------------------------------------------------------------------

// SegmentRange is a route plus a selector describing which of its segments
// to include, and an optional explicit read mode.
//
// A SegmentRange has a canonical string form stable under reparsing, and
// memoizes the backend segment-count lookup for its lifetime.
type SegmentRange struct {
	route Route
	sel   Selector
	mode  ReadMode // empty when the identifier carried no mode suffix

	countOnce sync.Once
	count     int
	countErr  error
}

// NewSegmentRange parses a segment range in identifier grammar, without URL
// unwrapping. Any grammar violation returns a *ParseError.
func NewSegmentRange(identifier string) (*SegmentRange, error) {
	m := segmentRangeRE.FindStringSubmatch(identifier)
	if m == nil {
		return nil, parseErrorf(identifier, "does not match segment range grammar")
	}

	dongle := m[segmentRangeRE.SubexpIndex("dongle")]
	name := m[segmentRangeRE.SubexpIndex("name")]
	sep := m[segmentRangeRE.SubexpIndex("sep")]
	rawSel := m[segmentRangeRE.SubexpIndex("sel")]
	mode := m[segmentRangeRE.SubexpIndex("mode")]

	if sep == "--" && strings.Contains(rawSel, ":") {
		return nil, parseErrorf(identifier, "the -- form accepts a single index, not a slice")
	}

	sel, err := parseSelector(identifier, rawSel)
	if err != nil {
		return nil, err
	}

	return &SegmentRange{
		route: Route{DongleID: dongle, Name: name},
		sel:   sel,
		mode:  ReadMode(mode),
	}, nil
}

// parseSelector parses the selector portion of an identifier. Numeric fields
// must be well-formed integers; a bare sign or trailing garbage is rejected.
func parseSelector(identifier, raw string) (Selector, error) {
	if raw == "" {
		return SelectAll(), nil
	}

	if !strings.Contains(raw, ":") {
		idx, err := parseIndexField(identifier, raw)
		if err != nil {
			return Selector{}, err
		}
		return SelectIndex(idx), nil
	}

	fields := strings.Split(raw, ":")
	if len(fields) > 3 {
		return Selector{}, parseErrorf(identifier, "slice has more than two colons")
	}

	bounds := make([]*int, 3)
	for i, f := range fields {
		if f == "" {
			continue
		}
		v, err := parseIndexField(identifier, f)
		if err != nil {
			return Selector{}, err
		}
		bounds[i] = &v
	}
	if bounds[2] != nil && *bounds[2] == 0 {
		return Selector{}, parseErrorf(identifier, "slice step must not be zero")
	}

	return SelectSlice(bounds[0], bounds[1], bounds[2]), nil
}

func parseIndexField(identifier, field string) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, parseErrorf(identifier, "malformed index %q", field)
	}
	return v, nil
}

// Route returns the parsed route.
func (sr *SegmentRange) Route() Route {
	return sr.route
}

// Selector returns the parsed range selector.
func (sr *SegmentRange) Selector() Selector {
	return sr.sel
}

// Mode returns the explicit read mode from the identifier's source suffix,
// or the empty string when none was given.
func (sr *SegmentRange) Mode() ReadMode {
	return sr.mode
}

// String returns the canonical form "id|name[/selector][/mode]". Parsing
// the canonical form yields an equal SegmentRange.
func (sr *SegmentRange) String() string {
	out := sr.route.String()
	if sel := sr.sel.String(); sel != "" {
		out += "/" + sel
	}
	if sr.mode != "" {
		out += "/" + string(sr.mode)
	}
	return out
}

// SegmentIndexes resolves the selector into concrete segment indices,
// ordered as the selector dictates.
//
// The backend segment-count lookup happens only when the selector
// structurally requires it (see Selector) and at most once per
// SegmentRange; repeated resolution reuses the memoized count.
func (sr *SegmentRange) SegmentIndexes(ctx context.Context, backend Backend) ([]int, error) {
	if !sr.sel.needsLength() {
		return sr.sel.resolve(0), nil
	}

	sr.countOnce.Do(func() {
		if backend == nil {
			sr.countErr = fmt.Errorf("drivelog: %w: backend required to resolve %q", ErrResolution, sr.String())
			return
		}
		n, err := backend.MaxSegmentCount(ctx, sr.route)
		if err != nil {
			sr.countErr = fmt.Errorf("drivelog: %w: segment count for %s: %w", ErrResolution, sr.route, err)
			return
		}
		if n <= 0 {
			sr.countErr = fmt.Errorf("drivelog: %w: route %s reports %d segments", ErrResolution, sr.route, n)
			return
		}
		sr.count = n
	})
	if sr.countErr != nil {
		return nil, sr.countErr
	}

	return sr.sel.resolve(sr.count), nil
}
