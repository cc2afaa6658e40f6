package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
)

// IdentitySize is the payload size of an identity frame.
const IdentitySize = 4

// IdentityPayload encodes the identity a server assigns to a new client as
// a single big-endian int32.
func IdentityPayload(id int32) []byte {
	b := make([]byte, IdentitySize)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

// ParseIdentity decodes a payload built by IdentityPayload.
func ParseIdentity(p []byte) (int32, error) {
	if len(p) != IdentitySize {
		return 0, domain.ErrMalformedAction.WithDetails(fmt.Sprintf("identity payload of %d bytes, want %d", len(p), IdentitySize))
	}
	return int32(binary.BigEndian.Uint32(p)), nil
}
