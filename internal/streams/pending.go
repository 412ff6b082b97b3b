// File: internal/streams/pending.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PendingQueue marshals stream add/remove requests coming from any
// goroutine (the protocol layer reacting to a control-plane change, a CLI
// reconfiguration command) onto a FIFO that the TX tick drains into the
// Table at the top of its own goroutine, so Table.NextEligible's hot path
// stays exactly as documented: single-goroutine owned, no locking.

package streams

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/rtbrick/bngblaster-core/api"
)

// admissionRequest is either an add (stream set) or a remove (name set),
// never both.
type admissionRequest struct {
	stream api.Stream
	remove string
}

// PendingQueue is the auxiliary FIFO an egress ring's TX tick drains into
// its stream table before running the round-robin pass.
type PendingQueue struct {
	mu sync.Mutex
	q  *queue.Queue
}

// NewPendingQueue returns an empty queue.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{q: queue.New()}
}

// Enqueue registers a stream for addition on the next Drain. Safe to call
// from any goroutine.
func (p *PendingQueue) Enqueue(s api.Stream) {
	p.mu.Lock()
	p.q.Add(admissionRequest{stream: s})
	p.mu.Unlock()
}

// EnqueueRemove registers a stream for removal by name on the next Drain.
// Safe to call from any goroutine.
func (p *PendingQueue) EnqueueRemove(name string) {
	p.mu.Lock()
	p.q.Add(admissionRequest{remove: name})
	p.mu.Unlock()
}

// Drain applies every request queued since the last Drain to table, in
// FIFO order, then returns. Meant to be called once at the top of each TX
// tick by the single goroutine that owns table — Table.Add/Remove are not
// otherwise safe for concurrent use.
func (p *PendingQueue) Drain(table api.StreamTable) {
	p.mu.Lock()
	pending := p.q
	p.q = queue.New()
	p.mu.Unlock()

	for pending.Length() > 0 {
		req := pending.Remove().(admissionRequest)
		if req.stream != nil {
			table.Add(req.stream)
		} else {
			table.Remove(req.remove)
		}
	}
}

// Len reports the number of requests not yet drained, used by tests.
func (p *PendingQueue) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.q.Length()
}
