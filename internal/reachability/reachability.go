// Package reachability implements the Image Reachability Probe: a HEAD
// check on a file's source image URL. Faces whose source image cannot be
// reached are dropped before grouping, since the UI has nothing to render
// for them.
package reachability

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout matches the configuration default (headTimeoutMs = 5000).
const DefaultTimeout = 5 * time.Second

// Prober checks whether an image URL is currently reachable.
type Prober struct {
	client *http.Client
}

// New creates a Prober with the given timeout applied to every probe.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{client: &http.Client{Timeout: timeout}}
}

// Reachable issues a HEAD request and reports whether the response status
// is in [200, 300). A missing URL, any transport error, timeout, or
// non-2xx response is treated as unreachable.
func (p *Prober) Reachable(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
