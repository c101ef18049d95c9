// Package fetcher resolves a source URL into a title and a readable media
// stream. Concrete backends live in the youtube and ytdlp subpackages.
package fetcher

import (
	"context"
	"io"
)

// Media is a resolved, not yet consumed, media stream.
// The caller owns Body and must close it.
type Media struct {
	Title string
	Body  io.ReadCloser
	// Size is the expected stream length in bytes, or 0 when unknown.
	Size int64
}

// Fetcher abstracts the external media provider.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) (*Media, error)
}
