// Package content defines the payload variants carried inside frames and
// their binary encoding.
//
// Payloads use the protobuf wire format. Field 1 holds the Kind tag; the
// remaining fields depend on the variant:
//
//	Chat            2: sender  3: text  4: id  5: clock entry (repeated, {1: process, 2: counter})
//	ElectionToken   2: sender  3: initiator
//	ElectionLeader  2: sender  3: initiator
package content

import (
	"fmt"

	"github.com/yndnr/chatmesh-go/internal/mesh/vclock"
)

// Kind tags a payload variant.
type Kind int32

const (
	KindUnknown Kind = iota
	KindChat
	KindElectionToken
	KindElectionLeader
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindElectionToken:
		return "election-token"
	case KindElectionLeader:
		return "election-leader"
	default:
		return fmt.Sprintf("kind(%d)", int32(k))
	}
}

// Content is implemented by every payload variant.
//
// Kind must not dereference its receiver so the kind of a variant can be
// read from a nil pointer.
type Content interface {
	Kind() Kind
}

// Chat is one chat line. Clock is the sender's vector clock at send time
// and ID a unique message id.
type Chat struct {
	Sender int32
	Text   string
	ID     string
	Clock  *vclock.Clock
}

// Kind implements Content.
func (*Chat) Kind() Kind { return KindChat }

// ElectionToken carries a wave of the election started by Initiator.
type ElectionToken struct {
	Sender    int32
	Initiator int32
}

// Kind implements Content.
func (*ElectionToken) Kind() Kind { return KindElectionToken }

// ElectionLeader announces Initiator as the elected leader.
type ElectionLeader struct {
	Sender    int32
	Initiator int32
}

// Kind implements Content.
func (*ElectionLeader) Kind() Kind { return KindElectionLeader }
