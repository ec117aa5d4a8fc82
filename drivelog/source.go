package drivelog

// -----------------------------------------------------------------------------
// Source selection
// -----------------------------------------------------------------------------

// variant identifies one of a segment's log file variants.
type variant int

const (
	variantNone variant = iota
	variantQuick
	variantFull
)

// availability is a bitmask of which variants a segment has on offer.
type availability uint8

const (
	availQuick availability = 1 << iota
	availFull
)

// sourceTable maps (mode, availability) to the chosen variant. Indexed by
// the availability bitmask; a variantNone entry means the segment has no
// usable source under that mode and is dropped from the read.
var sourceTable = map[ReadMode][4]variant{
	ModeQuick: {variantNone, variantQuick, variantNone, variantQuick},
	ModeFull:  {variantNone, variantNone, variantFull, variantFull},
	ModeAuto:  {variantNone, variantQuick, variantFull, variantFull},
}

// sourceFor returns the file reference to read for a segment under the
// given mode, or ok=false when the segment has no usable source.
func sourceFor(mode ReadMode, files SegmentFiles) (ref string, ok bool) {
	var avail availability
	if files.Quick != "" {
		avail |= availQuick
	}
	if files.Full != "" {
		avail |= availFull
	}

	table, known := sourceTable[mode]
	if !known {
		return "", false
	}

	switch table[avail] {
	case variantQuick:
		return files.Quick, true
	case variantFull:
		return files.Full, true
	default:
		return "", false
	}
}
