package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ricirt/video-download-worker/internal/domain"
)

// HTTPStreamer opens direct media URLs over plain HTTP.
type HTTPStreamer struct {
	client *http.Client
}

// NewHTTPStreamer creates an HTTPStreamer. The header timeout bounds how long
// a provider may take to start responding; body transfer is bounded by the
// caller's context because videos can be large.
func NewHTTPStreamer(headerTimeout time.Duration) *HTTPStreamer {
	return &HTTPStreamer{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: headerTimeout,
			},
		},
	}
}

// Open issues a GET for mediaURL and returns the response body.
func (s *HTTPStreamer) Open(ctx context.Context, mediaURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: create request: %v", domain.ErrFetch, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: download media: %v", domain.ErrFetch, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: unexpected status code: %d", domain.ErrFetch, resp.StatusCode)
	}

	size := resp.ContentLength
	if size < 0 {
		size = 0
	}
	return resp.Body, size, nil
}
