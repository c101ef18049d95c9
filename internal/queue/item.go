package queue

import "time"

// Item is one inbound broker message waiting for a worker.
type Item struct {
	Payload    []byte
	Topic      string
	MessageID  uint16
	ReceivedAt time.Time
}
