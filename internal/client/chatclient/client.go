package chatclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
	"github.com/yndnr/chatmesh-go/internal/mesh/causal"
	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/intercept"
	"github.com/yndnr/chatmesh-go/internal/mesh/mux"
	"github.com/yndnr/chatmesh-go/internal/mesh/router"
	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
	"github.com/yndnr/chatmesh-go/internal/telemetry/metric"
)

// Defaults for Config.
const (
	DefaultDialTimeout      = 5 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultInterceptDelay   = 50 * time.Millisecond
)

// CommandQuit ends a console session.
const CommandQuit = "quit"

// Config describes how a client connects.
type Config struct {
	ServerAddr       string
	DialTimeout      time.Duration
	HandshakeTimeout time.Duration

	Intercept InterceptConfig
}

// InterceptConfig configures fault injection on received messages.
type InterceptConfig struct {
	Enabled bool
	Delay   time.Duration
	// Rules in intercept.ParseRule syntax.
	Rules []string
}

// Message is a delivered chat message.
type Message struct {
	ID     string `json:"id" yaml:"id"`
	Sender int32  `json:"sender" yaml:"sender"`
	Text   string `json:"text" yaml:"text"`
	Clock  string `json:"clock" yaml:"clock"`
}

// Client is a chat participant attached to one server.
type Client struct {
	cfg Config
	id  int32

	log     logger.Logger
	chatLog logger.Logger
	metrics *metric.Registry
	out     io.Writer
	onQuit  func()

	loop        *mux.Loop
	conn        *mux.Conn
	router      *router.Router[*mux.Conn]
	interceptor *intercept.Interceptor

	disconnected chan struct{}
	closeOnce    sync.Once

	sendMu sync.Mutex

	// outMu orders console writes. It is taken before mu is released.
	outMu sync.Mutex

	mu         sync.Mutex
	buf        *causal.Buffer
	history    []Message
	seen       map[string]struct{}
	fresh      []Message
	sent       uint64
	duplicates uint64
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the base logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(r *metric.Registry) Option {
	return func(c *Client) { c.metrics = r }
}

// WithOutput sets where delivered messages are printed, one per line.
func WithOutput(w io.Writer) Option {
	return func(c *Client) { c.out = w }
}

// WithQuitHandler sets what the console "quit" command does. The default
// stops the client.
func WithQuitHandler(fn func()) Option {
	return func(c *Client) { c.onQuit = fn }
}

// Dial connects to the server at cfg.ServerAddr and waits for the identity
// the server assigns. The returned client processes incoming messages once
// Run is called.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	c := &Client{
		cfg:          cfg,
		id:           -1,
		out:          io.Discard,
		disconnected: make(chan struct{}),
		seen:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Default()
	}
	if c.metrics == nil {
		c.metrics = metric.NewRegistry()
	}
	if c.onQuit == nil {
		c.onQuit = c.Stop
	}

	var routerOpts []router.Option
	if cfg.Intercept.Enabled {
		rules := make([]intercept.Rule, 0, len(cfg.Intercept.Rules))
		for _, spec := range cfg.Intercept.Rules {
			r, err := intercept.ParseRule(spec)
			if err != nil {
				return nil, domain.ErrConfiguration.WithCause(err)
			}
			rules = append(rules, r)
		}
		delay := cfg.Intercept.Delay
		if delay <= 0 {
			delay = DefaultInterceptDelay
		}
		c.interceptor = intercept.New(c.id, delay, rules...)
		routerOpts = append(routerOpts,
			router.WithScheduler(c.interceptor.Scheduler),
			router.WithErrorHandler(func(id router.ActionID, err error) {
				c.log.Warn("message rejected", "action", id.String(), "error", err)
				c.metrics.RecordDispatchError(domain.GetErrorCode(err))
			}))
	}

	d := net.Dialer{Timeout: cfg.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", cfg.ServerAddr)
	if err != nil {
		return nil, domain.ErrConfiguration.WithCause(fmt.Errorf("connect to %s: %w", cfg.ServerAddr, err))
	}
	id, err := handshake(nc, cfg.HandshakeTimeout)
	if err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("handshake with %s: %w", cfg.ServerAddr, err)
	}

	c.id = id
	c.log = c.log.With("client", id)
	c.chatLog = logger.Component(c.log, logger.ComponentChat)
	c.interceptor.SetSelf(id)
	c.buf = causal.NewBuffer(id, c.deliver)

	c.router = router.New[*mux.Conn](routerOpts...)
	router.Register(c.router, router.ActionChat, c.onChat)

	c.loop = mux.New(c, mux.Config{Logger: logger.Component(c.log, logger.ComponentCommunication)})
	c.conn = c.loop.Attach(nc, mux.KindServer)

	c.log.Info("connected", "server", domain.ServerOf(id), "addr", cfg.ServerAddr, "as", domain.DescribeClient(id))
	return c, nil
}

// handshake reads the identity frame a server sends first on a new client
// link. It reads no byte past that frame.
func handshake(nc net.Conn, timeout time.Duration) (int32, error) {
	if err := nc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	dec := wire.NewDecoder()
	for {
		switch dec.Decode(nc) {
		case wire.PayloadComplete:
			if err := nc.SetReadDeadline(time.Time{}); err != nil {
				return 0, err
			}
			f, _ := dec.Frame()
			if f.Type != router.HandshakeType {
				return 0, domain.ErrMalformedAction.WithDetails(fmt.Sprintf("expected identity frame, got type %d", f.Type))
			}
			return wire.ParseIdentity(f.Payload)
		case wire.Closed:
			return 0, dec.Err()
		}
	}
}

// Run processes incoming messages until ctx is cancelled or Stop is called.
func (c *Client) Run(ctx context.Context) error {
	return c.loop.Run(ctx)
}

// Stop closes the connection. It must not be called from a message handler.
func (c *Client) Stop() {
	c.loop.Stop()
}

// Done is closed once Run has returned.
func (c *Client) Done() <-chan struct{} {
	return c.loop.Done()
}

// Disconnected is closed when the server link is gone.
func (c *Client) Disconnected() <-chan struct{} {
	return c.disconnected
}

// ID returns the identity assigned by the server.
func (c *Client) ID() int32 {
	return c.id
}

// WaitDelayed blocks until all handlers postponed by fault injection have
// run.
func (c *Client) WaitDelayed() {
	c.interceptor.Wait()
}

// Send broadcasts text to every other client of the mesh.
func (c *Client) Send(text string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	clock := c.buf.Stamp()
	c.sent++
	c.mu.Unlock()

	msg := content.NewChat(c.id, text, clock)
	payload, err := content.Marshal(msg)
	if err != nil {
		return err
	}
	if err := c.conn.Send(wire.Frame{Type: int32(router.ActionChat), Sender: c.id, Payload: payload}); err != nil {
		c.metrics.RecordSendFailure(c.conn.Kind().String())
		return err
	}
	c.metrics.RecordSent(router.ActionChat.String())
	c.metrics.ChatSent.Inc()
	c.chatLog.Debug("chat sent", "id", msg.ID, "clock", clock.String(), logger.TextKey, text)
	return nil
}

// SubmitLine handles one line typed on the client console: "quit" ends the
// session and anything else is sent as chat.
func (c *Client) SubmitLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	switch strings.TrimSpace(line) {
	case "":
	case CommandQuit:
		c.log.Info("quit requested from console")
		c.onQuit()
	default:
		if err := c.Send(line); err != nil {
			c.log.Warn("chat not sent", "error", err)
		}
	}
}
