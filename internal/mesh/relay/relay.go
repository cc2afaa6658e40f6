// Package relay implements flood forwarding of client messages across the
// server mesh with duplicate suppression.
//
// Every client message is stamped once, by the server its client is attached
// to, with that server's next sequence number. Each server remembers the
// highest sequence number it has forwarded per client and drops anything not
// strictly above it, so a flood over a cyclic topology reaches every node
// exactly once.
package relay

// Table records the last forwarded sequence number per client identity.
// It is not safe for concurrent use; the owning node guards it.
type Table struct {
	last map[int32]int32
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{last: make(map[int32]int32)}
}

// Admit reports whether seq from clientID has not been seen yet, and if so
// records it.
func (t *Table) Admit(clientID, seq int32) bool {
	if last, ok := t.last[clientID]; ok && seq <= last {
		return false
	}
	t.last[clientID] = seq
	return true
}

// Last returns the last admitted sequence number of clientID.
func (t *Table) Last(clientID int32) (seq int32, ok bool) {
	seq, ok = t.last[clientID]
	return seq, ok
}

// Len returns the number of clients tracked.
func (t *Table) Len() int {
	return len(t.last)
}

// Relay combines the table with the node's outbound sequence counter.
// It is not safe for concurrent use.
type Relay struct {
	table *Table
	seq   int32

	forwarded uint64
	dropped   uint64
}

// New returns a Relay whose first stamped sequence number is 1.
func New() *Relay {
	return &Relay{table: NewTable()}
}

// NextSeq returns the next value of the node's sequence counter.
func (r *Relay) NextSeq() int32 {
	r.seq++
	return r.seq
}

// Seq returns the last value handed out by NextSeq.
func (r *Relay) Seq() int32 {
	return r.seq
}

// StampLocal assigns the next sequence number to a message from an attached
// client and records it, so the copy echoed back by the mesh is dropped.
func (r *Relay) StampLocal(clientID int32) int32 {
	seq := r.NextSeq()
	r.table.Admit(clientID, seq)
	r.forwarded++
	return seq
}

// AdmitRelayed decides whether a message relayed by a peer must be flooded
// further.
func (r *Relay) AdmitRelayed(clientID, seq int32) bool {
	if r.table.Admit(clientID, seq) {
		r.forwarded++
		return true
	}
	r.dropped++
	return false
}

// Table exposes the underlying table.
func (r *Relay) Table() *Table {
	return r.table
}

// Stats returns the number of forwarded and dropped messages.
func (r *Relay) Stats() (forwarded, dropped uint64) {
	return r.forwarded, r.dropped
}

// Targets returns every handle in groups except from, preserving order.
func Targets[H comparable](from H, groups ...[]H) []H {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]H, 0, n)
	for _, g := range groups {
		for _, h := range g {
			if h != from {
				out = append(out, h)
			}
		}
	}
	return out
}
