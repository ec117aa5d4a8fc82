package drivelog

import (
	"strings"
	"testing"
)

func TestJSONLCodec_Decode(t *testing.T) {
	codec := NewJSONLCodec()

	input := `{"which":"carParams","logMonoTime":100,"data":{"fingerprint":"X"}}
{"which":"gpsLocation","logMonoTime":200}

{"which":"carParams","logMonoTime":300}
`
	records, err := codec.Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Which != "carParams" || records[0].LogMonoTime != 100 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if string(records[0].Data) != `{"fingerprint":"X"}` {
		t.Errorf("unexpected payload: %s", records[0].Data)
	}
	if records[1].Which != "gpsLocation" {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestJSONLCodec_DecodeEmpty(t *testing.T) {
	codec := NewJSONLCodec()
	records, err := codec.Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestJSONLCodec_DecodeMalformed(t *testing.T) {
	codec := NewJSONLCodec()
	_, err := codec.Decode(strings.NewReader(`{"which":"carParams"}` + "\n" + `not json`))
	if err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestJSONLCodec_Name(t *testing.T) {
	if got := NewJSONLCodec().Name(); got != "jsonl" {
		t.Errorf("expected jsonl, got %q", got)
	}
}
