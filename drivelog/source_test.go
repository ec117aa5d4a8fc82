package drivelog

import "testing"

func TestSourceFor(t *testing.T) {
	both := SegmentFiles{Quick: "q.jsonl", Full: "r.jsonl"}
	quickOnly := SegmentFiles{Quick: "q.jsonl"}
	fullOnly := SegmentFiles{Full: "r.jsonl"}
	neither := SegmentFiles{}

	tests := []struct {
		name     string
		mode     ReadMode
		files    SegmentFiles
		expected string
		ok       bool
	}{
		{"quick/both", ModeQuick, both, "q.jsonl", true},
		{"quick/quick only", ModeQuick, quickOnly, "q.jsonl", true},
		{"quick/full only", ModeQuick, fullOnly, "", false},
		{"quick/neither", ModeQuick, neither, "", false},

		{"full/both", ModeFull, both, "r.jsonl", true},
		{"full/quick only", ModeFull, quickOnly, "", false},
		{"full/full only", ModeFull, fullOnly, "r.jsonl", true},
		{"full/neither", ModeFull, neither, "", false},

		{"auto/both", ModeAuto, both, "r.jsonl", true},
		{"auto/quick only", ModeAuto, quickOnly, "q.jsonl", true},
		{"auto/full only", ModeAuto, fullOnly, "r.jsonl", true},
		{"auto/neither", ModeAuto, neither, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := sourceFor(tt.mode, tt.files)
			if ok != tt.ok || ref != tt.expected {
				t.Errorf("sourceFor(%q, %+v) = (%q, %v), expected (%q, %v)",
					tt.mode, tt.files, ref, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestSourceFor_UnknownMode(t *testing.T) {
	if _, ok := sourceFor(ReadMode("x"), SegmentFiles{Quick: "q"}); ok {
		t.Error("unknown mode must select nothing")
	}
}
