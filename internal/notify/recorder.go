package notify

import (
	"context"
	"sync"
)

var _ Notifier = (*Recorder)(nil)

// Recorder keeps toasts in memory. Used where no session queue exists,
// e.g. to return toasts inline with a response.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, toast Toast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, toast)
	return nil
}

func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}
