package mux

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

// Handler receives connection events. All calls for accepted connections,
// and every OnFrame and OnClose, happen on the loop goroutine. OnOpen for
// connections passed to Attach runs on the caller of Attach.
type Handler interface {
	OnOpen(c *Conn)
	OnFrame(c *Conn, f wire.Frame)
	OnClose(c *Conn, err error)
}

// Config tunes a Loop.
type Config struct {
	// QueueSize is the outbound queue length per connection.
	QueueSize int
	// ReadBufferSize is the size of each socket read.
	ReadBufferSize int
	// FlushTimeout bounds writing queued frames when a connection closes.
	FlushTimeout time.Duration
	// EventBacklog is the capacity of the loop's event channel.
	EventBacklog int

	Logger logger.Logger
}

// DefaultConfig returns the default loop settings.
func DefaultConfig() Config {
	return Config{
		QueueSize:      1024,
		ReadBufferSize: 4096,
		FlushTimeout:   2 * time.Second,
		EventBacklog:   256,
	}
}

type eventKind int

const (
	evOpen eventKind = iota
	evData
	evClosed
)

type event struct {
	kind eventKind
	conn *Conn
	data []byte
	err  error
}

// Loop is the event loop of one node.
type Loop struct {
	cfg     Config
	handler Handler
	log     logger.Logger

	events chan event
	stop   chan struct{}
	done   chan struct{}

	stopOnce     sync.Once
	shutdownOnce sync.Once
	running      atomic.Bool
	nextID       atomic.Uint64
	wg           sync.WaitGroup

	mu        sync.Mutex
	listeners []net.Listener
	conns     map[uint64]*Conn
}

// New returns a Loop dispatching to h. Zero fields of cfg take their
// defaults.
func New(h Handler, cfg Config) *Loop {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = def.ReadBufferSize
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = def.FlushTimeout
	}
	if cfg.EventBacklog <= 0 {
		cfg.EventBacklog = def.EventBacklog
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Component(nil, logger.ComponentCommunication)
	}
	return &Loop{
		cfg:     cfg,
		handler: h,
		log:     log,
		events:  make(chan event, cfg.EventBacklog),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		conns:   make(map[uint64]*Conn),
	}
}

// Listen accepts connections of the given kind from ln until the loop
// stops. The loop takes ownership of ln.
func (l *Loop) Listen(ln net.Listener, kind Kind) {
	l.mu.Lock()
	l.listeners = append(l.listeners, ln)
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.acceptLoop(ln, kind)
	}()
}

func (l *Loop) acceptLoop(ln net.Listener, kind Kind) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || l.stopped() {
				return
			}
			l.log.Error("accept failed", "address", ln.Addr().String(), "error", err)
			return
		}
		c := l.register(nc, kind)
		if !l.post(event{kind: evOpen, conn: c}) {
			_ = c.Close()
			return
		}
	}
}

// Attach registers an already established connection, calls OnOpen on the
// calling goroutine and starts reading from it.
func (l *Loop) Attach(nc net.Conn, kind Kind) *Conn {
	c := l.register(nc, kind)
	l.open(c)
	return c
}

func (l *Loop) register(nc net.Conn, kind Kind) *Conn {
	c := newConn(l.nextID.Add(1), kind, nc, l.cfg.QueueSize, l.cfg.FlushTimeout)

	l.mu.Lock()
	l.conns[c.id] = c
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		c.writeLoop(func(err error) {
			l.log.Warn("write failed", "conn", c.String(), "error", err)
		})
	}()
	return c
}

func (l *Loop) open(c *Conn) {
	l.handler.OnOpen(c)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.readLoop(c)
	}()
}

func (l *Loop) readLoop(c *Conn) {
	buf := make([]byte, l.cfg.ReadBufferSize)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !l.post(event{kind: evData, conn: c, data: chunk}) {
				return
			}
		}
		if err != nil {
			l.post(event{kind: evClosed, conn: c, err: err})
			return
		}
	}
}

func (l *Loop) post(ev event) bool {
	select {
	case l.events <- ev:
		return true
	case <-l.stop:
		return false
	}
}

// Run processes events until ctx is cancelled or Stop is called. On return
// all listeners and connections are closed.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("mux: loop already running")
	}
	defer close(l.done)
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.stop:
			return nil
		case ev := <-l.events:
			l.handle(ev)
		}
	}
}

func (l *Loop) handle(ev event) {
	c := ev.conn
	if c.removed {
		return
	}
	switch ev.kind {
	case evOpen:
		l.open(c)
	case evData:
		c.in.write(ev.data)
		l.drain(c)
	case evClosed:
		c.in.fail(ev.err)
		l.drain(c)
	}
}

func (l *Loop) drain(c *Conn) {
	for !c.removed {
		switch c.dec.Decode(&c.in) {
		case wire.PayloadComplete:
			f, _ := c.dec.Frame()
			l.handler.OnFrame(c, f)
		case wire.Closed:
			l.remove(c, c.dec.Err())
			return
		default:
			return
		}
	}
}

func (l *Loop) remove(c *Conn, err error) {
	if c.removed {
		return
	}
	c.removed = true

	l.mu.Lock()
	delete(l.conns, c.id)
	l.mu.Unlock()

	_ = c.Close()
	l.handler.OnClose(c, err)
}

// Stop stops the loop and waits for its goroutines to exit.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	if l.running.Load() {
		<-l.done
		return
	}
	l.shutdown()
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Len returns the number of registered connections.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

func (l *Loop) stopped() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

func (l *Loop) shutdown() {
	l.shutdownOnce.Do(func() {
		l.stopOnce.Do(func() { close(l.stop) })

		l.mu.Lock()
		listeners := l.listeners
		l.listeners = nil
		conns := make([]*Conn, 0, len(l.conns))
		for _, c := range l.conns {
			conns = append(conns, c)
		}
		l.mu.Unlock()

		for _, ln := range listeners {
			_ = ln.Close()
		}
		for _, c := range conns {
			_ = c.Close()
		}
		l.wg.Wait()
	})
}
