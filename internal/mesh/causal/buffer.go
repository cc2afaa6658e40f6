// Package causal delivers chat messages in causal and per-sender FIFO order.
package causal

import (
	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/vclock"
)

// DeliverFunc is called once per delivered message, in delivery order.
type DeliverFunc func(msg *content.Chat)

// Buffer holds received chat messages until their causal predecessors have
// been delivered. It is not safe for concurrent use.
type Buffer struct {
	self    int32
	clock   *vclock.Clock
	pending []*content.Chat
	deliver DeliverFunc

	delivered uint64
	stale     uint64
}

// NewBuffer returns a buffer for process self. deliver may be nil.
func NewBuffer(self int32, deliver DeliverFunc) *Buffer {
	if deliver == nil {
		deliver = func(*content.Chat) {}
	}
	return &Buffer{self: self, clock: vclock.New(), deliver: deliver}
}

// SetSelf changes the identity whose entry Stamp advances.
func (b *Buffer) SetSelf(self int32) {
	b.self = self
}

// Stamp advances the own clock entry for an outgoing message and returns a
// copy of the clock to attach to it.
func (b *Buffer) Stamp() *vclock.Clock {
	// self is never negative once assigned by a server
	_ = b.clock.Increment(b.self)
	return b.clock.Clone()
}

// Receive queues msg and delivers every message that became deliverable.
// It returns the number of messages delivered by this call. Messages that
// can never become deliverable again, because their sender entry is already
// covered by the local clock, are discarded.
func (b *Buffer) Receive(msg *content.Chat) int {
	if msg == nil || msg.Clock == nil {
		return 0
	}
	if msg.Clock.Get(msg.Sender) <= b.clock.Get(msg.Sender) {
		b.stale++
		return 0
	}
	b.pending = append(b.pending, msg)
	return b.flush()
}

func (b *Buffer) flush() int {
	total := 0
	for {
		n := 0
		kept := b.pending[:0]
		for _, msg := range b.pending {
			if b.clock.PrecedesAndFIFO(msg.Clock, msg.Sender) {
				b.deliver(msg)
				if msg.Sender != b.self {
					_ = b.clock.Increment(msg.Sender)
				}
				n++
				continue
			}
			kept = append(kept, msg)
		}
		clear(b.pending[len(kept):])
		b.pending = kept
		b.delivered += uint64(n)
		total += n
		if n == 0 {
			return total
		}
	}
}

// Pending returns the number of messages waiting for delivery.
func (b *Buffer) Pending() int {
	return len(b.pending)
}

// Delivered returns the number of messages delivered so far.
func (b *Buffer) Delivered() uint64 {
	return b.delivered
}

// Stale returns the number of messages discarded as already delivered.
func (b *Buffer) Stale() uint64 {
	return b.stale
}

// Clock returns a copy of the local clock.
func (b *Buffer) Clock() *vclock.Clock {
	return b.clock.Clone()
}
