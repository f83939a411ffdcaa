package node

import (
	"context"

	"github.com/hashpool/snarkOS-1/util/log"
)

// Router is a named, bounded mailbox owned by one subsystem. Producers
// enqueue with Send; the owning subsystem drains Receive in its own
// loop. Send is a one-way transfer with no reply path: the producer
// learns whether the message was enqueued, never what became of it.
type Router struct {
	name string
	ch   chan interface{}
}

func NewRouter(name string, capacity uint32) *Router {
	return &Router{
		name: name,
		ch:   make(chan interface{}, capacity),
	}
}

func (r *Router) Name() string {
	return r.name
}

// Send enqueues a message, blocking while the mailbox is full. A closed
// mailbox or an expired context is logged and swallowed: command
// delivery is best effort and the caller's outcome never depends on it.
func (r *Router) Send(ctx context.Context, msg interface{}) {
	defer func() {
		if err := recover(); err != nil {
			log.Warningf("%s mailbox closed, dropping message", r.name)
		}
	}()

	select {
	case r.ch <- msg:
	case <-ctx.Done():
		log.Warningf("%s mailbox send abandoned: %v", r.name, ctx.Err())
	}
}

// Receive is the owning subsystem's drain side.
func (r *Router) Receive() <-chan interface{} {
	return r.ch
}

// Close stops the mailbox. Only the owning subsystem closes it, after
// its drain loop has exited.
func (r *Router) Close() {
	close(r.ch)
}
