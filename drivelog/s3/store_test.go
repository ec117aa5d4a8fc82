package s3

import (
	"errors"
	"io"
	"testing"

	"github.com/pithecene-io/drivelog/drivelog"
)

func TestNew_RequiresClient(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestOpener_Open(t *testing.T) {
	client := NewMockS3Client()
	client.Seed("logs", "route/0/rlog.zst", []byte("segment bytes"))

	opener, err := New(client)
	if err != nil {
		t.Fatal(err)
	}

	rc, err := opener.Open(t.Context(), "s3://logs/route/0/rlog.zst")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "segment bytes" {
		t.Errorf("unexpected object content: %q", data)
	}
	if client.GetObjectCalls != 1 {
		t.Errorf("expected 1 GetObject call, got %d", client.GetObjectCalls)
	}
}

func TestOpener_OpenMissing(t *testing.T) {
	opener, err := New(NewMockS3Client())
	if err != nil {
		t.Fatal(err)
	}

	_, err = opener.Open(t.Context(), "s3://logs/route/9/rlog.zst")
	if !errors.Is(err, drivelog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestOpener_OpenBadRef(t *testing.T) {
	opener, err := New(NewMockS3Client())
	if err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{
		"logs/route/0/rlog.zst",
		"s3://",
		"s3://logs",
		"s3://logs/",
		"s3:///key",
	} {
		if _, err := opener.Open(t.Context(), ref); !errors.Is(err, drivelog.ErrFetch) {
			t.Errorf("Open(%q): expected ErrFetch, got: %v", ref, err)
		}
	}
}

func TestSplitRef(t *testing.T) {
	bucket, key, err := splitRef("s3://logs/a/b/c.jsonl")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "logs" || key != "a/b/c.jsonl" {
		t.Errorf("got bucket=%q key=%q", bucket, key)
	}
}
