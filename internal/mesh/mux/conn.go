package mux

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
)

// Kind tells what is on the other end of a connection.
type Kind int

const (
	KindPeer Kind = iota
	KindClient
	// KindServer is the link from a client to its server.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindPeer:
		return "peer"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Conn is a connection registered with a Loop.
type Conn struct {
	id   uint64
	kind Kind
	nc   net.Conn

	// owned by the loop goroutine
	dec     *wire.Decoder
	in      inbox
	removed bool

	out          chan []byte
	done         chan struct{}
	closing      atomic.Bool
	flushTimeout time.Duration
}

func newConn(id uint64, kind Kind, nc net.Conn, queueSize int, flushTimeout time.Duration) *Conn {
	return &Conn{
		id:           id,
		kind:         kind,
		nc:           nc,
		dec:          wire.NewDecoder(),
		out:          make(chan []byte, queueSize),
		done:         make(chan struct{}),
		flushTimeout: flushTimeout,
	}
}

// ID returns the node-local handle id.
func (c *Conn) ID() uint64 { return c.id }

// Kind returns the kind the connection was registered with.
func (c *Conn) Kind() Kind { return c.kind }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr { return c.nc.LocalAddr() }

func (c *Conn) String() string {
	return fmt.Sprintf("%s#%d(%s)", c.kind, c.id, c.nc.RemoteAddr())
}

// Send queues f for writing. It never blocks: a full queue yields
// ErrTransientSend and a closing connection ErrStreamClosed. Frames queued
// on one connection are written in order.
func (c *Conn) Send(f wire.Frame) error {
	if len(f.Payload) > wire.MaxPayloadLen {
		return domain.ErrFrameTooLarge.WithDetails(f.String())
	}
	if c.closing.Load() {
		return domain.ErrStreamClosed.WithDetails(c.String())
	}
	select {
	case c.out <- wire.Encode(f):
		return nil
	default:
		return domain.ErrTransientSend.WithDetails(fmt.Sprintf("%s: send queue full", c))
	}
}

// Close stops accepting frames, flushes what is queued within the flush
// timeout and closes the socket. The Loop reports the closure to its
// Handler.
func (c *Conn) Close() error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}
	_ = c.nc.SetWriteDeadline(time.Now().Add(c.flushTimeout))
	close(c.done)
	return nil
}

// writeLoop owns the socket close.
func (c *Conn) writeLoop(onError func(error)) {
	defer c.nc.Close()
	for {
		select {
		case b := <-c.out:
			if _, err := c.nc.Write(b); err != nil {
				onError(err)
				return
			}
		case <-c.done:
			for {
				select {
				case b := <-c.out:
					if _, err := c.nc.Write(b); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// inbox buffers bytes handed over by the reader goroutine. An empty inbox
// reads as (0, nil) until the reader reports the end of the stream.
type inbox struct {
	buf []byte
	err error
}

func (b *inbox) Read(p []byte) (int, error) {
	if len(b.buf) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, nil
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

func (b *inbox) write(p []byte) {
	if len(b.buf) == 0 {
		b.buf = p
		return
	}
	b.buf = append(b.buf, p...)
}

func (b *inbox) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
