package fetcher_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/video-download-worker/internal/domain"
	"github.com/ricirt/video-download-worker/internal/fetcher"
)

func TestHTTPStreamer_Open(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "mp4-bytes")
	}))
	defer srv.Close()

	s := fetcher.NewHTTPStreamer(5 * time.Second)

	t.Run("ok", func(t *testing.T) {
		body, size, err := s.Open(context.Background(), srv.URL+"/video.mp4")
		require.NoError(t, err)
		defer body.Close()

		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "mp4-bytes", string(data))
		assert.Equal(t, int64(len("mp4-bytes")), size)
	})

	t.Run("non-200 is a fetch error", func(t *testing.T) {
		_, _, err := s.Open(context.Background(), srv.URL+"/missing")
		assert.ErrorIs(t, err, domain.ErrFetch)
	})

	t.Run("malformed url is a fetch error", func(t *testing.T) {
		_, _, err := s.Open(context.Background(), "not-a-url")
		assert.ErrorIs(t, err, domain.ErrFetch)
	})
}
