package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ricirt/video-download-worker/internal/domain"
)

func TestReasonFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.FailureReason
	}{
		{"nil", nil, domain.ReasonNone},
		{"decode", fmt.Errorf("read payload: %w", domain.ErrDecode), domain.ReasonDecode},
		{"storage", fmt.Errorf("%w: disk full", domain.ErrStorage), domain.ReasonStorage},
		{"fetch", fmt.Errorf("%w: no formats", domain.ErrFetch), domain.ReasonFetch},
		{"unclassified counts as fetch", errors.New("boom"), domain.ReasonFetch},
		{"queue full", domain.ErrQueueFull, domain.ReasonRejected},
		{"queue closed", domain.ErrQueueClosed, domain.ReasonRejected},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.ReasonFor(tc.err))
		})
	}
}

func TestJob_Lifecycle(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("succeed", func(t *testing.T) {
		j := domain.NewJob("id-1", now)
		assert.Equal(t, domain.StatusProcessing, j.Status)

		j.Succeed("/data/id-1.mp4", 42, now.Add(time.Second))
		assert.Equal(t, domain.StatusSucceeded, j.Status)
		assert.Equal(t, domain.OutcomeSuccess, j.Outcome)
		assert.Equal(t, int64(42), j.Bytes)
		assert.NotNil(t, j.CompletedAt)
	})

	t.Run("fail", func(t *testing.T) {
		j := domain.NewJob("id-2", now)
		j.Fail(fmt.Errorf("%w: 404", domain.ErrFetch), now)
		assert.Equal(t, domain.StatusFailed, j.Status)
		assert.Equal(t, domain.OutcomeFailure, j.Outcome)
		assert.Equal(t, domain.ReasonFetch, j.FailureReason)
		assert.Contains(t, j.Error, "404")
	})

	t.Run("clone does not share completion time", func(t *testing.T) {
		j := domain.NewJob("id-3", now)
		j.Succeed("p", 1, now)
		c := j.Clone()
		*c.CompletedAt = now.Add(time.Hour)
		assert.Equal(t, now, *j.CompletedAt)
	})
}

func TestNotifications(t *testing.T) {
	f := domain.FailureNotification()
	assert.Equal(t, domain.TopicSendMessage, f.Topic)
	assert.Equal(t, "Failed to start video download", f.Payload)

	s := domain.SuccessNotification("Test Video", "abc", false)
	assert.Equal(t, domain.TopicSendMessage, s.Topic)
	assert.Equal(t, "Video download finished: Test Video", s.Payload)

	withID := domain.SuccessNotification("Test Video", "abc", true)
	assert.Equal(t, "Video download finished: Test Video (abc)", withID.Payload)
}
