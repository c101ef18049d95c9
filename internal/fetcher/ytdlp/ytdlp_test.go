package ytdlp

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	goytdlp "github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/video-download-worker/internal/domain"
)

type fakeStreamer struct {
	gotURL string
	err    error
}

func (s *fakeStreamer) Open(_ context.Context, mediaURL string) (io.ReadCloser, int64, error) {
	s.gotURL = mediaURL
	if s.err != nil {
		return nil, 0, s.err
	}
	return io.NopCloser(strings.NewReader("bytes")), 5, nil
}

// fakeCommand records the URL it was run with and returns a canned result.
type fakeCommand struct {
	result      *goytdlp.Result
	err         error
	gotArgs     []string
	hasDeadline bool
}

func (c *fakeCommand) Run(ctx context.Context, args ...string) (*goytdlp.Result, error) {
	c.gotArgs = args
	_, c.hasDeadline = ctx.Deadline()
	return c.result, c.err
}

func (c *fakeCommand) factory() func() command {
	return func() command { return c }
}

func TestParseOutput(t *testing.T) {
	title, u, err := parseOutput("Test Video\nhttps://cdn.example/v.mp4\nhttps://cdn.example/a.m4a\n")
	require.NoError(t, err)
	assert.Equal(t, "Test Video", title)
	assert.Equal(t, "https://cdn.example/v.mp4", u)

	_, _, err = parseOutput("Only a title\n")
	assert.ErrorIs(t, err, domain.ErrFetch)

	_, _, err = parseOutput("")
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestResolveCommand(t *testing.T) {
	cmd := resolveCommand("/usr/bin/yt-dlp")
	require.NotNil(t, cmd)
	assert.NotSame(t, cmd, resolveCommand("/usr/bin/yt-dlp"), "each job needs its own builder")
}

func TestFetcher_Fetch(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		cmd := &fakeCommand{result: &goytdlp.Result{Stdout: "Test Video\nhttps://cdn.example/v.mp4\n"}}
		s := &fakeStreamer{}

		m, err := NewWithCommand(cmd.factory(), s).Fetch(context.Background(), "https://example.com/watch?v=abc")
		require.NoError(t, err)
		defer m.Body.Close()

		assert.Equal(t, "Test Video", m.Title)
		assert.Equal(t, int64(5), m.Size)
		assert.Equal(t, "https://cdn.example/v.mp4", s.gotURL)
		assert.Equal(t, []string{"https://example.com/watch?v=abc"}, cmd.gotArgs)
		assert.True(t, cmd.hasDeadline, "resolution must run under a deadline")
	})

	t.Run("binary failure includes stderr", func(t *testing.T) {
		cmd := &fakeCommand{
			result: &goytdlp.Result{Stderr: "ERROR: not-a-url is not a valid URL"},
			err:    errors.New("exit status 1"),
		}
		_, err := NewWithCommand(cmd.factory(), &fakeStreamer{}).Fetch(context.Background(), "not-a-url")
		assert.ErrorIs(t, err, domain.ErrFetch)
		assert.Contains(t, err.Error(), "not a valid URL")
	})

	t.Run("failure without result", func(t *testing.T) {
		cmd := &fakeCommand{err: errors.New("executable not found")}
		_, err := NewWithCommand(cmd.factory(), &fakeStreamer{}).Fetch(context.Background(), "abc")
		assert.ErrorIs(t, err, domain.ErrFetch)
	})

	t.Run("missing url", func(t *testing.T) {
		cmd := &fakeCommand{result: &goytdlp.Result{Stdout: "Only a title\n"}}
		s := &fakeStreamer{}
		_, err := NewWithCommand(cmd.factory(), s).Fetch(context.Background(), "abc")
		assert.ErrorIs(t, err, domain.ErrFetch)
		assert.Empty(t, s.gotURL)
	})

	t.Run("stream failure", func(t *testing.T) {
		cmd := &fakeCommand{result: &goytdlp.Result{Stdout: "T\nhttps://cdn.example/v.mp4"}}
		s := &fakeStreamer{err: domain.ErrFetch}
		_, err := NewWithCommand(cmd.factory(), s).Fetch(context.Background(), "abc")
		assert.ErrorIs(t, err, domain.ErrFetch)
	})
}
