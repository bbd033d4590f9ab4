// Package notify provides pluggable delivery of invitation messages.
//
// It defines a transport-agnostic Service interface with SMTP mail and Twilio
// SMS implementations. Delivery is fire-and-forget from the caller's
// perspective: a failure is surfaced as a reportable error and never retried
// here.
package notify

import (
	"context"
	"sync"
)

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// Send delivers one message to a recipient. The subject may be ignored by
	// transports without a subject concept.
	Send(ctx context.Context, to, subject, body string) error
}

// Recorder is an in-memory Service that captures sent messages for tests.
type Recorder struct {
	mu       sync.Mutex
	messages []RecordedMessage
	// FailWith, when set, is returned by every Send call.
	FailWith error
}

// RecordedMessage is one captured Send call.
type RecordedMessage struct {
	To      string
	Subject string
	Body    string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send captures the message, or fails when FailWith is set.
func (r *Recorder) Send(ctx context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.messages = append(r.messages, RecordedMessage{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of the captured messages.
func (r *Recorder) Messages() []RecordedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedMessage, len(r.messages))
	copy(out, r.messages)
	return out
}
