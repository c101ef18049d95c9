// Package youtube fetches videos through github.com/kkdai/youtube/v2.
package youtube

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	yt "github.com/kkdai/youtube/v2"

	"github.com/ricirt/video-download-worker/internal/domain"
	"github.com/ricirt/video-download-worker/internal/fetcher"
)

// client is the subset of *yt.Client the fetcher needs.
type client interface {
	GetVideoContext(ctx context.Context, url string) (*yt.Video, error)
	GetStreamContext(ctx context.Context, video *yt.Video, format *yt.Format) (io.ReadCloser, int64, error)
}

// Fetcher resolves YouTube watch URLs (or bare video IDs) to a progressive
// stream.
type Fetcher struct {
	client client
}

// New creates a Fetcher that uses httpClient for all provider traffic.
func New(httpClient *http.Client) *Fetcher {
	return &Fetcher{client: &yt.Client{HTTPClient: httpClient}}
}

// NewWithClient builds a fetcher around a custom client (tests).
func NewWithClient(c client) *Fetcher {
	return &Fetcher{client: c}
}

// Fetch looks up the video, picks a format with SelectFormat and opens it.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) (*fetcher.Media, error) {
	video, err := f.client.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve video: %v", domain.ErrFetch, err)
	}

	format, err := SelectFormat(video.Formats)
	if err != nil {
		return nil, err
	}

	body, size, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("%w: open stream itag=%d: %v", domain.ErrFetch, format.ItagNo, err)
	}

	return &fetcher.Media{Title: video.Title, Body: body, Size: size}, nil
}

// SelectFormat prefers the highest-resolution progressive format, one that
// carries audio and video in a single file. Without one it falls back to the
// highest-resolution video format of any kind. Within either group an mp4
// container wins over webm, since files are stored with an .mp4 extension.
func SelectFormat(formats yt.FormatList) (*yt.Format, error) {
	var progressive, video []yt.Format
	for _, f := range formats {
		if !strings.HasPrefix(f.MimeType, "video/") {
			continue
		}
		video = append(video, f)
		if f.AudioChannels > 0 {
			progressive = append(progressive, f)
		}
	}

	candidates := progressive
	if len(candidates) == 0 {
		candidates = video
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no video stream available", domain.ErrFetch)
	}
	if mp4 := onlyMP4(candidates); len(mp4) > 0 {
		candidates = mp4
	}

	best := slices.MaxFunc(candidates, func(a, b yt.Format) int {
		if c := cmp.Compare(a.Height, b.Height); c != 0 {
			return c
		}
		return cmp.Compare(a.Bitrate, b.Bitrate)
	})
	return &best, nil
}

func onlyMP4(formats []yt.Format) []yt.Format {
	var out []yt.Format
	for _, f := range formats {
		if strings.HasPrefix(f.MimeType, "video/mp4") {
			out = append(out, f)
		}
	}
	return out
}

var _ fetcher.Fetcher = (*Fetcher)(nil)
