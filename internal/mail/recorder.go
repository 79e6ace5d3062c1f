package mail

import (
	"context"
	"sync"
)

// Recorder keeps every message it is asked to send. Handy for tests and
// local tooling that need to read tokens out of outgoing mail.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message sent to the address.
func (r *Recorder) Last(to string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].To == to {
			return r.messages[i], true
		}
	}
	return Message{}, false
}
