// Package s3 provides an S3-compatible segment file Opener for drivelog.
//
// This adapter supports AWS S3, MinIO, LocalStack, Cloudflare R2, and other
// S3-compatible object stores. References use the form "s3://bucket/key";
// register the opener for the "s3" scheme on a drivelog.DispatchOpener or
// pass it directly with drivelog.WithOpener.
//
// The read path is intentionally narrow: drivelog never writes segment
// files, so only GetObject is required of the client.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pithecene-io/drivelog/drivelog"
)

// API defines the subset of the S3 client interface used by the opener.
// This enables testing with mock implementations.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener implements drivelog.Opener against an S3-compatible backend.
type Opener struct {
	client API
}

// New creates an S3 opener with the given client.
//
// The client must be pre-configured with credentials, region, and endpoint.
// Use NewClient or github.com/aws/aws-sdk-go-v2/config to build one.
func New(client API) (*Opener, error) {
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	return &Opener{client: client}, nil
}

// Open retrieves the object behind an "s3://bucket/key" reference.
// Returns drivelog.ErrNotFound when the object does not exist.
func (o *Opener) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, key, err := splitRef(ref)
	if err != nil {
		return nil, err
	}

	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3: %w: %s", drivelog.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("s3: %w: get %s: %w", drivelog.ErrFetch, ref, err)
	}

	return out.Body, nil
}

func splitRef(ref string) (bucket, key string, err error) {
	rest, found := strings.CutPrefix(ref, "s3://")
	if !found {
		return "", "", fmt.Errorf("s3: %w: reference %q is not s3://bucket/key", drivelog.ErrFetch, ref)
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3: %w: reference %q is not s3://bucket/key", drivelog.ErrFetch, ref)
	}
	return bucket, key, nil
}

// isNotFound checks if an error represents a missing S3 object.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}

// -----------------------------------------------------------------------------
// Mock S3 Client for Testing
// -----------------------------------------------------------------------------

// MockS3Client is a test double for API.
type MockS3Client struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// GetObjectCalls counts GetObject invocations for test assertions.
	GetObjectCalls int
}

// NewMockS3Client creates a new mock S3 client for testing.
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{
		objects: make(map[string][]byte),
	}
}

// Seed stores an object under bucket/key.
func (m *MockS3Client) Seed(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = append([]byte(nil), data...)
}

// GetObject implements API.GetObject for testing.
func (m *MockS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)

	m.mu.Lock()
	m.GetObjectCalls++
	data, exists := m.objects[key]
	m.mu.Unlock()

	if !exists {
		return nil, &types.NoSuchKey{}
	}

	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}
