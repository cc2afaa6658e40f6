// Package election implements the minimum-identity wave election run among
// the servers of a mesh.
//
// An initiator floods a token tagged with its own identity. A node adopts
// the wave of the smallest initiator it has seen, re-floods that wave's token
// to every neighbor except the one it adopted it from (its parent), and once
// it holds one token of the wave per neighbor echoes a token back to its
// parent. The initiator whose own wave completes is the leader and announces
// itself; announcements are flooded once per node, and a node knows the
// result once it has heard the announcement from every neighbor.
//
// Engine is a pure state machine. It does no I/O and is not safe for
// concurrent use: callers hold their node lock across a call and perform the
// returned sends after releasing it.
package election

import (
	"github.com/yndnr/chatmesh-go/internal/mesh/content"
)

// Status is the election status of one node.
type Status int

const (
	Dormant Status = iota
	Initiator
	Leader
	NonLeader
)

func (s Status) String() string {
	switch s {
	case Dormant:
		return "dormant"
	case Initiator:
		return "initiator"
	case Leader:
		return "leader"
	case NonLeader:
		return "non-leader"
	default:
		return "unknown"
	}
}

// Send is one outbound message produced by the engine.
type Send[H comparable] struct {
	To      H
	Content content.Content
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	wakeUp bool
}

// WithWakeUp makes a dormant node that is reached by the wave of a larger
// initiator start its own wave instead of joining. With it, the elected
// leader is the smallest identity of the whole graph rather than the
// smallest initiator.
func WithWakeUp() Option {
	return func(c *config) { c.wakeUp = true }
}

// Engine holds the election state of one node. H identifies a neighbor
// link.
type Engine[H comparable] struct {
	self int32
	cfg  config

	wave    int32
	hasWave bool

	parent    H
	hasParent bool

	tokens  map[int32]int
	leaders int
	winner  int32
	status  Status
	done    bool
}

// New returns a dormant engine for node self.
func New[H comparable](self int32, opts ...Option) *Engine[H] {
	e := &Engine[H]{self: self}
	for _, opt := range opts {
		opt(&e.cfg)
	}
	e.Reset()
	return e
}

// Reset returns the engine to Dormant so a new election can run.
func (e *Engine[H]) Reset() {
	var zero H
	e.wave, e.hasWave = 0, false
	e.parent, e.hasParent = zero, false
	e.tokens = make(map[int32]int)
	e.leaders = 0
	e.winner = 0
	e.status = Dormant
	e.done = false
}

// Start makes this node an initiator. It is a no-op when the node already
// runs its own wave, has adopted the wave of a smaller initiator, or the
// election has finished.
func (e *Engine[H]) Start(neighbors []H) []Send[H] {
	if e.done || (e.hasWave && e.wave <= e.self) {
		return nil
	}
	e.status = Initiator
	return e.adopt(e.self, nil, neighbors)
}

// OnToken handles an election token received from neighbor from.
func (e *Engine[H]) OnToken(from H, tok *content.ElectionToken, neighbors []H) []Send[H] {
	if tok == nil {
		return nil
	}

	var out []Send[H]
	if e.cfg.wakeUp && !e.hasWave && !e.done && e.self < tok.Initiator {
		out = e.Start(neighbors)
	}

	if !e.hasWave || tok.Initiator < e.wave {
		out = append(out, e.adopt(tok.Initiator, &from, neighbors)...)
	}
	if tok.Initiator != e.wave {
		// token of a wave that lost against the adopted one
		return out
	}

	e.tokens[e.wave]++
	if e.tokens[e.wave] != len(neighbors) {
		return out
	}
	if e.wave == e.self {
		e.status = Leader
		e.winner = e.self
		return append(out, e.flood(&content.ElectionLeader{Sender: e.self, Initiator: e.self}, neighbors, nil)...)
	}
	if e.hasParent {
		out = append(out, Send[H]{To: e.parent, Content: &content.ElectionToken{Sender: e.self, Initiator: e.wave}})
	}
	return out
}

// OnLeader handles a leader announcement received from a neighbor.
func (e *Engine[H]) OnLeader(_ H, l *content.ElectionLeader, neighbors []H) []Send[H] {
	if l == nil || e.done {
		return nil
	}

	var out []Send[H]
	if e.leaders == 0 && l.Initiator != e.self {
		out = e.flood(&content.ElectionLeader{Sender: e.self, Initiator: l.Initiator}, neighbors, nil)
	}
	e.leaders++
	e.winner = l.Initiator
	if e.leaders >= len(neighbors) {
		e.finish()
	}
	return out
}

// adopt switches to the wave of initiator, with parent as the link it came
// from (nil for an own wave), and floods the wave's token.
func (e *Engine[H]) adopt(initiator int32, parent *H, neighbors []H) []Send[H] {
	var zero H
	e.wave, e.hasWave = initiator, true
	e.parent, e.hasParent = zero, false
	if parent != nil {
		e.parent, e.hasParent = *parent, true
	}
	e.tokens[initiator] = 0

	if parent == nil && len(neighbors) == 0 {
		e.winner = e.self
		e.status = Leader
		e.done = true
		return nil
	}
	return e.flood(&content.ElectionToken{Sender: e.self, Initiator: initiator}, neighbors, parent)
}

func (e *Engine[H]) flood(c content.Content, neighbors []H, except *H) []Send[H] {
	out := make([]Send[H], 0, len(neighbors))
	for _, n := range neighbors {
		if except != nil && n == *except {
			continue
		}
		out = append(out, Send[H]{To: n, Content: c})
	}
	return out
}

func (e *Engine[H]) finish() {
	e.done = true
	if e.winner == e.self {
		e.status = Leader
	} else {
		e.status = NonLeader
	}
}

// Status returns the current status.
func (e *Engine[H]) Status() Status {
	return e.status
}

// Done reports whether the result of the election is known locally.
func (e *Engine[H]) Done() bool {
	return e.done
}

// Winner returns the last announced leader, valid once a leader message
// was seen or this node won.
func (e *Engine[H]) Winner() int32 {
	return e.winner
}

// Wave returns the adopted wave id.
func (e *Engine[H]) Wave() (id int32, ok bool) {
	return e.wave, e.hasWave
}

// Parent returns the link the adopted wave arrived on.
func (e *Engine[H]) Parent() (h H, ok bool) {
	return e.parent, e.hasParent
}

// TokenCount returns the number of tokens received for the adopted wave.
func (e *Engine[H]) TokenCount() int {
	if !e.hasWave {
		return 0
	}
	return e.tokens[e.wave]
}

// LeaderCount returns the number of leader announcements received.
func (e *Engine[H]) LeaderCount() int {
	return e.leaders
}
