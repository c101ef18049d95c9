package domain

import "fmt"

// Fixed broker topics.
const (
	TopicVideoDownload = "video_download"
	TopicSendMessage   = "send_message"
)

const (
	failurePayload = "Failed to start video download"
	successPrefix  = "Video download finished: "
)

// Notification is a text payload bound for a named outbound topic.
// It has no identity beyond its content and is fire-and-forget.
type Notification struct {
	Topic   string
	Payload string
}

// FailureNotification is sent whenever a job cannot complete.
func FailureNotification() Notification {
	return Notification{Topic: TopicSendMessage, Payload: failurePayload}
}

// SuccessNotification reports a finished download by title. When includeID
// is set the job id is appended so consumers can locate the stored file.
func SuccessNotification(title, jobID string, includeID bool) Notification {
	payload := successPrefix + title
	if includeID {
		payload = fmt.Sprintf("%s (%s)", payload, jobID)
	}
	return Notification{Topic: TopicSendMessage, Payload: payload}
}
