package pairing

import (
	"sync"

	"github.com/aretw0/pairgate/pkg/domain"
)

// Responder delivers at most one Outcome per request.
type Responder struct {
	once    sync.Once
	done    chan struct{}
	outcome domain.Outcome
}

// NewResponder creates an unanswered Responder.
func NewResponder() *Responder {
	return &Responder{done: make(chan struct{})}
}

// Respond records o if nothing was answered yet and reports whether it did.
func (r *Responder) Respond(o domain.Outcome) bool {
	first := false
	r.once.Do(func() {
		r.outcome = o
		first = true
		close(r.done)
	})
	return first
}

// Done is closed once an Outcome is recorded.
func (r *Responder) Done() <-chan struct{} {
	return r.done
}

// Sent reports whether an Outcome was recorded.
func (r *Responder) Sent() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Outcome returns the recorded answer. It is only meaningful after Done.
func (r *Responder) Outcome() domain.Outcome {
	<-r.done
	return r.outcome
}
