// Package ytdlp resolves media through a local yt-dlp binary and streams the
// resolved URL over HTTP.
package ytdlp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"

	"github.com/ricirt/video-download-worker/internal/domain"
	"github.com/ricirt/video-download-worker/internal/fetcher"
)

// resolveTimeout bounds the yt-dlp metadata lookup, not the download.
const resolveTimeout = 2 * time.Minute

// command is the part of *goytdlp.Command the fetcher runs.
type command interface {
	Run(ctx context.Context, args ...string) (*goytdlp.Result, error)
}

// streamer opens a direct media URL.
type streamer interface {
	Open(ctx context.Context, mediaURL string) (io.ReadCloser, int64, error)
}

var _ command = (*goytdlp.Command)(nil)

// Fetcher uses yt-dlp's "b" selector, the best format that contains both
// video and audio, falling back to the best video stream when none exists.
type Fetcher struct {
	newCommand func() command
	streamer   streamer
}

// New creates a Fetcher for the given yt-dlp binary.
func New(binaryPath string, s streamer) *Fetcher {
	return NewWithCommand(func() command { return resolveCommand(binaryPath) }, s)
}

// NewWithCommand builds a fetcher around a custom command factory (tests).
func NewWithCommand(newCommand func() command, s streamer) *Fetcher {
	return &Fetcher{newCommand: newCommand, streamer: s}
}

// resolveCommand prints the title and the direct URLs of the selected format
// without downloading anything. A fresh builder per job keeps concurrent
// workers from sharing flag state.
func resolveCommand(binaryPath string) *goytdlp.Command {
	return goytdlp.New().
		SetExecutable(binaryPath).
		Format("b/bv*").
		Print("title").
		Print("urls").
		NoPlaylist().
		NoWarnings()
}

// Fetch asks yt-dlp for the title and direct URL, then opens the stream.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) (*fetcher.Media, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	res, err := f.newCommand().Run(resolveCtx, sourceURL)
	if err != nil {
		if res != nil && res.Stderr != "" {
			return nil, fmt.Errorf("%w: yt-dlp: %v: %s", domain.ErrFetch, err, strings.TrimSpace(res.Stderr))
		}
		return nil, fmt.Errorf("%w: yt-dlp: %v", domain.ErrFetch, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: yt-dlp returned no result", domain.ErrFetch)
	}

	title, mediaURL, err := parseOutput(res.Stdout)
	if err != nil {
		return nil, err
	}

	body, size, err := f.streamer.Open(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	return &fetcher.Media{Title: title, Body: body, Size: size}, nil
}

// parseOutput reads the "--print title --print urls" output: the title on
// the first line, then one URL per requested format. Only the first URL is
// used.
func parseOutput(out string) (string, string, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return "", "", fmt.Errorf("%w: yt-dlp returned no media URL", domain.ErrFetch)
	}
	title := strings.TrimSpace(lines[0])
	mediaURL := strings.TrimSpace(lines[1])
	if mediaURL == "" {
		return "", "", fmt.Errorf("%w: yt-dlp returned an empty media URL", domain.ErrFetch)
	}
	return title, mediaURL, nil
}

var _ fetcher.Fetcher = (*Fetcher)(nil)
