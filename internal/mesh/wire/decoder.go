package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
)

// Status is the state of a Decoder after a call to Decode.
type Status int

const (
	// HeaderPending means fewer than HeaderSize header bytes have arrived.
	HeaderPending Status = iota
	// HeaderComplete means the header is parsed and no payload byte is read yet.
	HeaderComplete
	// PayloadPending means part of the payload has arrived.
	PayloadPending
	// PayloadComplete means a whole frame is available through Frame.
	PayloadComplete
	// Closed means the stream ended or failed. It is terminal.
	Closed
)

func (s Status) String() string {
	switch s {
	case HeaderPending:
		return "header-pending"
	case HeaderComplete:
		return "header-complete"
	case PayloadPending:
		return "payload-pending"
	case PayloadComplete:
		return "payload-complete"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Decoder assembles frames from a byte stream that may deliver data in
// arbitrary fragments. The zero value is ready to use.
//
// A Decoder is not safe for concurrent use; each connection owns one.
type Decoder struct {
	status Status

	header [HeaderSize]byte
	hn     int

	typ, sender, seq int32
	payload          []byte
	pn               int

	// pending holds a read error returned together with data. It is
	// reported on the next read attempt so the data is not lost.
	pending error
	err     error
}

// NewDecoder returns a Decoder in the HeaderPending state.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Status returns the status reported by the last Decode.
func (d *Decoder) Status() Status {
	return d.status
}

// Err returns the reason the decoder is Closed, or nil.
func (d *Decoder) Err() error {
	return d.err
}

// Decode consumes as many bytes from src as are needed to complete the
// current frame. A read of zero bytes with a nil error means no more data is
// available right now and the current status is returned; call Decode again
// when more data arrives. io.EOF or any other read error moves the decoder to
// Closed. A header or payload cut short by closure is discarded.
//
// After PayloadComplete the frame is available through Frame until the next
// call to Decode, which starts assembling the following frame.
func (d *Decoder) Decode(src io.Reader) Status {
	switch d.status {
	case Closed:
		return Closed
	case PayloadComplete:
		d.reset()
	}

	if d.status == HeaderPending {
		for d.hn < HeaderSize {
			n, ok := d.read(src, d.header[d.hn:])
			d.hn += n
			if !ok {
				return d.status
			}
			if n == 0 {
				return d.status
			}
		}
		d.typ = int32(binary.BigEndian.Uint32(d.header[0:4]))
		d.sender = int32(binary.BigEndian.Uint32(d.header[4:8]))
		d.seq = int32(binary.BigEndian.Uint32(d.header[8:12]))
		size := int32(binary.BigEndian.Uint32(d.header[12:16]))
		if size < 0 || size > MaxPayloadLen {
			d.close(domain.ErrFrameTooLarge.WithDetails(
				fmt.Sprintf("type %d announces %d payload bytes, limit %d", d.typ, size, MaxPayloadLen)))
			return d.status
		}
		d.payload = make([]byte, size)
		d.pn = 0
		d.status = HeaderComplete
	}

	for d.pn < len(d.payload) {
		n, ok := d.read(src, d.payload[d.pn:])
		d.pn += n
		if !ok {
			return d.status
		}
		if n > 0 {
			d.status = PayloadPending
		} else {
			return d.status
		}
	}

	d.status = PayloadComplete
	return d.status
}

// Frame returns the most recently completed frame. ok is false unless the
// last Decode reported PayloadComplete.
func (d *Decoder) Frame() (f Frame, ok bool) {
	if d.status != PayloadComplete {
		return Frame{}, false
	}
	return Frame{Type: d.typ, Sender: d.sender, Seq: d.seq, Payload: d.payload}, true
}

// read performs one read into p. ok is false once the decoder is Closed.
func (d *Decoder) read(src io.Reader, p []byte) (n int, ok bool) {
	if d.pending != nil {
		d.close(d.pending)
		return 0, false
	}
	n, err := src.Read(p)
	if n < 0 || n > len(p) {
		d.close(io.ErrShortBuffer)
		return 0, false
	}
	if err != nil {
		if n == 0 {
			d.close(err)
			return 0, false
		}
		d.pending = err
	}
	return n, true
}

func (d *Decoder) close(err error) {
	d.status = Closed
	d.payload = nil
	if err == io.EOF {
		d.err = domain.ErrStreamClosed
		return
	}
	d.err = domain.ErrStreamClosed.WithCause(err)
}

func (d *Decoder) reset() {
	d.status = HeaderPending
	d.hn = 0
	d.payload = nil
	d.pn = 0
	d.typ, d.sender, d.seq = 0, 0, 0
}
