package drivelog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// -----------------------------------------------------------------------------
// HTTP Backend
// -----------------------------------------------------------------------------

// BackendConfig holds configuration for the HTTP backend client.
type BackendConfig struct {
	// BaseURL is the recording service's API root. Required.
	BaseURL string

	// Timeout bounds each lookup request. Zero uses DefaultFetchTimeout.
	Timeout time.Duration

	// Client optionally overrides the HTTP client; Timeout is ignored when
	// set.
	Client *http.Client
}

// HTTPBackend implements Backend against the recording service's REST API.
//
// Lookup endpoints:
//
//	GET {base}/v1/routes/{dongle}/{name}        -> {"segment_count": N}
//	GET {base}/v1/routes/{dongle}/{name}/files  -> {"quick_logs": [...], "full_logs": [...]}
//
// The file lists are indexed by segment; an empty or missing entry means
// that variant is unavailable for the segment.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates an HTTP backend client.
func NewHTTPBackend(cfg BackendConfig) (*HTTPBackend, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("drivelog: backend base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("drivelog: backend base URL: %w", err)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPBackend{
		baseURL: cfg.BaseURL,
		client:  client,
	}, nil
}

type routeInfoResponse struct {
	SegmentCount int `json:"segment_count"`
}

type routeFilesResponse struct {
	QuickLogs []string `json:"quick_logs"`
	FullLogs  []string `json:"full_logs"`
}

// MaxSegmentCount returns the number of segments recorded for the route.
func (b *HTTPBackend) MaxSegmentCount(ctx context.Context, route Route) (int, error) {
	var info routeInfoResponse
	if err := b.getJSON(ctx, b.routeURL(route, ""), &info); err != nil {
		return 0, err
	}
	return info.SegmentCount, nil
}

// SegmentFiles returns the route's per-segment file references, ordered by
// ascending segment index.
func (b *HTTPBackend) SegmentFiles(ctx context.Context, route Route) ([]SegmentFiles, error) {
	var files routeFilesResponse
	if err := b.getJSON(ctx, b.routeURL(route, "/files"), &files); err != nil {
		return nil, err
	}

	n := len(files.QuickLogs)
	if len(files.FullLogs) > n {
		n = len(files.FullLogs)
	}

	out := make([]SegmentFiles, n)
	for i := range out {
		if i < len(files.QuickLogs) {
			out[i].Quick = files.QuickLogs[i]
		}
		if i < len(files.FullLogs) {
			out[i].Full = files.FullLogs[i]
		}
	}
	return out, nil
}

func (b *HTTPBackend) routeURL(route Route, suffix string) string {
	return fmt.Sprintf("%s/v1/routes/%s/%s%s",
		b.baseURL, url.PathEscape(route.DongleID), url.PathEscape(route.Name), suffix)
}

func (b *HTTPBackend) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, u)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup %s: status %d", u, resp.StatusCode)
	}

	if err := jsonCodec.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("lookup %s: %w", u, err)
	}
	return nil
}
