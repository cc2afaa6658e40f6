// Package vclock implements the vector clock used for causal chat delivery.
package vclock

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNegative is returned when a process id or counter value is negative.
var ErrNegative = errors.New("vclock: negative process id or counter")

// Clock maps process ids to event counters. Absent entries read as 0.
// The zero value is an empty clock ready to use. A Clock is not safe for
// concurrent use.
type Clock struct {
	entries map[int32]int32
}

// New returns an empty clock.
func New() *Clock {
	return &Clock{}
}

// FromMap builds a clock from explicit entries.
func FromMap(m map[int32]int32) (*Clock, error) {
	c := New()
	for id, v := range m {
		if err := c.Set(id, v); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Get returns the counter of process id, or 0 if absent.
func (c *Clock) Get(id int32) int32 {
	if c == nil {
		return 0
	}
	return c.entries[id]
}

// Set assigns the counter of process id.
func (c *Clock) Set(id, v int32) error {
	if id < 0 || v < 0 {
		return fmt.Errorf("%w: entry %d=%d", ErrNegative, id, v)
	}
	if c.entries == nil {
		c.entries = make(map[int32]int32)
	}
	c.entries[id] = v
	return nil
}

// Increment adds one to the counter of process id.
func (c *Clock) Increment(id int32) error {
	return c.Set(id, c.Get(id)+1)
}

// Max raises every entry to the larger of the two clocks. A nil other is a
// no-op.
func (c *Clock) Max(other *Clock) {
	if other == nil {
		return
	}
	for id, v := range other.entries {
		if v > c.Get(id) {
			// other only holds validated entries
			_ = c.Set(id, v)
		}
	}
}

// PrecedesAndFIFO reports whether a message stamped with sender's clock may
// be delivered at c: it must be the next message from sender and every
// other event it depends on must already be reflected in c. A nil sender
// clock is never deliverable.
func (c *Clock) PrecedesAndFIFO(sender *Clock, senderID int32) bool {
	if sender == nil {
		return false
	}
	if sender.Get(senderID) != c.Get(senderID)+1 {
		return false
	}
	for id, v := range sender.entries {
		if id == senderID {
			continue
		}
		if v > c.Get(id) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of c.
func (c *Clock) Clone() *Clock {
	out := New()
	if c == nil || len(c.entries) == 0 {
		return out
	}
	out.entries = make(map[int32]int32, len(c.entries))
	for id, v := range c.entries {
		out.entries[id] = v
	}
	return out
}

// IDs returns the process ids with an explicit entry, in ascending order.
func (c *Clock) IDs() []int32 {
	if c == nil {
		return nil
	}
	ids := make([]int32, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of explicit entries.
func (c *Clock) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// String formats the clock as {id:value ...} in id order.
func (c *Clock) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range c.IDs() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d:%d", id, c.entries[id])
	}
	b.WriteByte('}')
	return b.String()
}
