package domain

import (
	"errors"
	"time"
)

// Status tracks the lifecycle of a download job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Outcome is the final result reported on the outbound topic.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// FailureReason labels the stage at which a job failed.
type FailureReason string

const (
	ReasonNone     FailureReason = ""
	ReasonDecode   FailureReason = "decode"
	ReasonFetch    FailureReason = "fetch"
	ReasonStorage  FailureReason = "storage"
	ReasonRejected FailureReason = "rejected"
)

// ReasonFor maps a job error onto its failure reason.
// Errors that match no sentinel are attributed to the fetch stage, since the
// fetcher is the only collaborator allowed to return arbitrary errors.
func ReasonFor(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrDecode):
		return ReasonDecode
	case errors.Is(err, ErrStorage):
		return ReasonStorage
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrQueueClosed):
		return ReasonRejected
	default:
		return ReasonFetch
	}
}

// Job is one unit of work: one inbound message, one URL to fetch.
// Jobs live only in memory and are discarded once evicted from the history.
type Job struct {
	ID            string        `json:"id"`
	SourceURL     string        `json:"source_url"`
	Title         string        `json:"title,omitempty"`
	Status        Status        `json:"status"`
	Outcome       Outcome       `json:"outcome,omitempty"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
	Error         string        `json:"error,omitempty"`
	FilePath      string        `json:"file_path,omitempty"`
	Bytes         int64         `json:"bytes"`
	ReceivedAt    time.Time     `json:"received_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// NewJob creates a job in the processing state.
func NewJob(id string, receivedAt time.Time) *Job {
	return &Job{
		ID:         id,
		Status:     StatusProcessing,
		ReceivedAt: receivedAt,
	}
}

// Succeed records a completed download.
func (j *Job) Succeed(path string, n int64, at time.Time) {
	j.Status = StatusSucceeded
	j.Outcome = OutcomeSuccess
	j.FilePath = path
	j.Bytes = n
	j.CompletedAt = &at
}

// Fail records a failed job and classifies the cause.
func (j *Job) Fail(err error, at time.Time) {
	j.Status = StatusFailed
	j.Outcome = OutcomeFailure
	j.FailureReason = ReasonFor(err)
	j.Error = err.Error()
	j.CompletedAt = &at
}

// Clone returns a copy that does not share the CompletedAt pointer.
func (j *Job) Clone() *Job {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
