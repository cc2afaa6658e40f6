package mux

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

type recorder struct {
	mu      sync.Mutex
	opened  []*Conn
	frames  chan wire.Frame
	closed  chan error
	onOpen  func(c *Conn)
	onFrame func(c *Conn, f wire.Frame)
}

func newRecorder() *recorder {
	return &recorder{frames: make(chan wire.Frame, 64), closed: make(chan error, 8)}
}

func (r *recorder) OnOpen(c *Conn) {
	r.mu.Lock()
	r.opened = append(r.opened, c)
	r.mu.Unlock()
	if r.onOpen != nil {
		r.onOpen(c)
	}
}

func (r *recorder) OnFrame(c *Conn, f wire.Frame) {
	if r.onFrame != nil {
		r.onFrame(c, f)
	}
	r.frames <- f
}

func (r *recorder) OnClose(_ *Conn, err error) { r.closed <- err }

func startLoop(t *testing.T, h Handler, cfg Config) *Loop {
	t.Helper()
	cfg.Logger = logger.Nop()
	l := New(h, cfg)
	go l.Run(context.Background())
	t.Cleanup(l.Stop)
	return l
}

func nextFrame(t *testing.T, ch <-chan wire.Frame) wire.Frame {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame")
		return wire.Frame{}
	}
}

func TestLoop_FragmentedFramesInOrder(t *testing.T) {
	rec := newRecorder()
	l := startLoop(t, rec, Config{})

	local, remote := net.Pipe()
	l.Attach(local, KindPeer)

	var stream []byte
	for i := int32(0); i < 20; i++ {
		stream = wire.AppendFrame(stream, wire.Frame{Type: 1000, Sender: 7, Seq: i, Payload: make([]byte, int(i)*13)})
	}
	go func() {
		for len(stream) > 0 {
			n := min(5, len(stream))
			if _, err := remote.Write(stream[:n]); err != nil {
				return
			}
			stream = stream[n:]
		}
	}()

	for i := int32(0); i < 20; i++ {
		f := nextFrame(t, rec.frames)
		if f.Seq != i || len(f.Payload) != int(i)*13 {
			t.Fatalf("frame %d = %v", i, f)
		}
	}

	remote.Close()
	select {
	case err := <-rec.closed:
		if !errors.Is(err, domain.ErrStreamClosed) {
			t.Fatalf("close error = %v, want StreamClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnClose not called")
	}
}

func TestLoop_SendAndEcho(t *testing.T) {
	rec := newRecorder()
	rec.onFrame = func(c *Conn, f wire.Frame) {
		f.Seq++
		if err := c.Send(f); err != nil {
			t.Errorf("Send: %v", err)
		}
	}
	l := startLoop(t, rec, Config{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	l.Listen(ln, KindClient)

	nc, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer nc.Close()

	if err := wire.WriteFrame(nc, 1000, 101, 1, []byte("ping")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	d := wire.NewDecoder()
	_ = nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	if st := d.Decode(nc); st != wire.PayloadComplete {
		t.Fatalf("Decode() = %v, err = %v", st, d.Err())
	}
	f, _ := d.Frame()
	if f.Seq != 2 || string(f.Payload) != "ping" {
		t.Fatalf("echo = %v", f)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.opened) != 1 || rec.opened[0].Kind() != KindClient {
		t.Fatalf("opened = %v", rec.opened)
	}
}

func TestLoop_MalformedLengthClosesConnection(t *testing.T) {
	rec := newRecorder()
	l := startLoop(t, rec, Config{})

	local, remote := net.Pipe()
	defer remote.Close()
	l.Attach(local, KindPeer)

	header := wire.Encode(wire.Frame{Type: 1})
	header[12] = 0x7f
	go remote.Write(header)

	select {
	case err := <-rec.closed:
		if !errors.Is(err, domain.ErrFrameTooLarge) {
			t.Fatalf("close error = %v, want FrameTooLarge", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("connection not closed")
	}
	if l.Len() != 0 {
		t.Fatalf("Len() = %d after close", l.Len())
	}
}

func TestConn_SendAfterClose(t *testing.T) {
	rec := newRecorder()
	l := startLoop(t, rec, Config{})

	local, remote := net.Pipe()
	defer remote.Close()
	go io.Copy(io.Discard, remote)
	c := l.Attach(local, KindPeer)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Send(wire.Frame{Type: 1}); !errors.Is(err, domain.ErrStreamClosed) {
		t.Fatalf("Send after Close = %v, want StreamClosed", err)
	}
}

func TestConn_QueueFull(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	// no writer goroutine drains this queue
	c := newConn(1, KindPeer, local, 2, time.Second)
	for i := 0; i < 2; i++ {
		if err := c.Send(wire.Frame{}); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	if err := c.Send(wire.Frame{}); !errors.Is(err, domain.ErrTransientSend) {
		t.Fatalf("Send on full queue = %v, want TransientSend", err)
	}
}

func TestLoop_StopClosesConnections(t *testing.T) {
	rec := newRecorder()
	l := New(rec, Config{Logger: logger.Nop()})
	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	local, remote := net.Pipe()
	l.Attach(local, KindPeer)

	l.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	_ = remote.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := remote.Read(make([]byte, 1)); err == nil {
		t.Fatal("connection still open after Stop")
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	l := New(newRecorder(), Config{Logger: logger.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	if err := l.Run(context.Background()); err == nil {
		t.Fatal("second Run succeeded")
	}
}

func TestInbox(t *testing.T) {
	var in inbox
	p := make([]byte, 4)
	if n, err := in.Read(p); n != 0 || err != nil {
		t.Fatalf("empty Read = %d, %v", n, err)
	}
	in.write([]byte("abcdef"))
	if n, _ := in.Read(p); n != 4 || string(p) != "abcd" {
		t.Fatalf("Read = %d %q", n, p[:n])
	}
	in.fail(io.EOF)
	if n, err := in.Read(p); n != 2 || err != nil {
		t.Fatalf("Read rest = %d, %v", n, err)
	}
	if _, err := in.Read(p); err != io.EOF {
		t.Fatalf("Read after drain = %v, want EOF", err)
	}
}
