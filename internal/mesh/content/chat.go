package content

import (
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/chatmesh-go/internal/mesh/vclock"
)

// NewChat returns a chat message with a fresh ULID.
func NewChat(sender int32, text string, clock *vclock.Clock) *Chat {
	return &Chat{
		Sender: sender,
		Text:   text,
		ID:     ulid.Make().String(),
		Clock:  clock,
	}
}
