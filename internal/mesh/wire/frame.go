package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// HeaderSize is the fixed size of the frame header in bytes.
	HeaderSize = 16

	// MaxPayloadLen bounds the payload a decoder accepts.
	MaxPayloadLen = 16 << 20
)

// Frame is one unit on the wire.
type Frame struct {
	Type    int32
	Sender  int32
	Seq     int32
	Payload []byte
}

// PayloadLen returns the length field written for f.
func (f Frame) PayloadLen() int32 {
	return int32(len(f.Payload))
}

func (f Frame) String() string {
	return fmt.Sprintf("frame{type=%d sender=%d seq=%d len=%d}", f.Type, f.Sender, f.Seq, len(f.Payload))
}

// AppendFrame appends the encoding of f to dst.
func AppendFrame(dst []byte, f Frame) []byte {
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(f.Type))
	binary.BigEndian.PutUint32(header[4:8], uint32(f.Sender))
	binary.BigEndian.PutUint32(header[8:12], uint32(f.Seq))
	binary.BigEndian.PutUint32(header[12:16], uint32(len(f.Payload)))
	dst = append(dst, header[:]...)
	return append(dst, f.Payload...)
}

// Encode returns the wire encoding of f.
func Encode(f Frame) []byte {
	return AppendFrame(make([]byte, 0, HeaderSize+len(f.Payload)), f)
}

// WriteFrame writes a frame built from the given fields to w in a single
// Write call.
func WriteFrame(w io.Writer, typ, sender, seq int32, payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return fmt.Errorf("wire: payload of %d bytes exceeds limit %d", len(payload), MaxPayloadLen)
	}
	buf := Encode(Frame{Type: typ, Sender: sender, Seq: seq, Payload: payload})
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wire: write frame: %w", err)
	}
	return nil
}
