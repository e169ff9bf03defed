package mailer

import (
	"context"
	"sync"
	"time"
)

// Recorder is an in-memory Gateway for tests. It keeps every accepted
// message and can be told to fail or to stall.
type Recorder struct {
	mu   sync.Mutex
	sent []Message

	// Delay is slept (honouring ctx) before each send.
	Delay time.Duration
	// Err, when set, is returned instead of accepting the message.
	Err error
	// FailTimes makes the first n sends return Err; zero means always.
	FailTimes int
	calls     int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(ctx context.Context, msg Message) error {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.Err != nil && (r.FailTimes == 0 || r.calls <= r.FailTimes) {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the accepted messages in send order.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Calls returns the number of Send calls, failed ones included.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

var _ Gateway = (*Recorder)(nil)
