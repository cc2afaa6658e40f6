package chatserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/election"
	"github.com/yndnr/chatmesh-go/internal/mesh/intercept"
	"github.com/yndnr/chatmesh-go/internal/mesh/mux"
	"github.com/yndnr/chatmesh-go/internal/mesh/relay"
	"github.com/yndnr/chatmesh-go/internal/mesh/router"
	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
	"github.com/yndnr/chatmesh-go/internal/server/config"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
	"github.com/yndnr/chatmesh-go/internal/telemetry/metric"
)

// DialTimeout bounds connecting to one neighbor at startup.
const DialTimeout = 5 * time.Second

// inbound is the origin handed to route handlers: the link a frame arrived
// on and the frame header.
type inbound struct {
	conn  *mux.Conn
	frame wire.Frame
}

// state is everything a handler may mutate. It is guarded by Server.mu,
// which is never held across a send.
type state struct {
	peers     []*mux.Conn
	clients   []*mux.Conn
	clientIDs map[*mux.Conn]int32
	clientSeq int32

	// held queues chats of a client waiting for its rate limit, oldest
	// first. A queue's head stays until it has been forwarded.
	held map[int32][]heldChat

	relay    *relay.Relay
	election *election.Engine[*mux.Conn]
}

// Server is one node of the server mesh.
type Server struct {
	cfg *config.ServerConfig
	id  int32

	log      logger.Logger
	chatLog  logger.Logger
	electLog logger.Logger
	metrics  *metric.Registry
	onQuit   func()

	loop        *mux.Loop
	router      *router.Router[inbound]
	interceptor *intercept.Interceptor
	limiters    *relay.Limiters

	clientLn net.Listener
	serverLn net.Listener

	mu sync.Mutex
	st state
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the base logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics sets the metrics registry. Without it every server gets its
// own registry.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Server) { s.metrics = r }
}

// WithQuitHandler sets what the console "quit" command does. The default
// stops the server.
func WithQuitHandler(fn func()) Option {
	return func(s *Server) { s.onQuit = fn }
}

// New binds the listeners of cfg, connects to every configured neighbor and
// returns a server ready to Run. Bind and dial failures are configuration
// faults.
func New(ctx context.Context, cfg *config.ServerConfig, opts ...Option) (*Server, error) {
	s := &Server{
		cfg: cfg,
		id:  cfg.Node.ID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	s.log = s.log.With("node", s.id)
	s.chatLog = logger.Component(s.log, logger.ComponentChat)
	s.electLog = logger.Component(s.log, logger.ComponentElection)
	if s.metrics == nil {
		s.metrics = metric.NewRegistry()
	}
	if s.onQuit == nil {
		s.onQuit = s.Stop
	}
	if err := s.metrics.Register(metric.NewCollector(s.nodeStats)); err != nil {
		s.log.Warn("node collector not registered", "error", err)
	}

	var electOpts []election.Option
	if cfg.Election.WakeUp {
		electOpts = append(electOpts, election.WithWakeUp())
	}
	s.st = state{
		clientIDs: make(map[*mux.Conn]int32),
		held:      make(map[int32][]heldChat),
		relay:     relay.New(),
		election:  election.New[*mux.Conn](s.id, electOpts...),
	}
	s.limiters = relay.NewLimiters(cfg.Relay.ClientRateLimit, cfg.Relay.ClientBurst)

	routerOpts := []router.Option{
		router.WithErrorHandler(func(id router.ActionID, err error) {
			s.dispatchFailed(nil, id, err)
		}),
	}
	if cfg.Intercept.Enabled {
		rules := make([]intercept.Rule, 0, len(cfg.Intercept.Rules))
		for _, spec := range cfg.Intercept.Rules {
			r, err := intercept.ParseRule(spec)
			if err != nil {
				return nil, domain.ErrConfiguration.WithCause(err)
			}
			rules = append(rules, r)
		}
		s.interceptor = intercept.New(s.id, cfg.Intercept.Delay, rules...)
		routerOpts = append(routerOpts, router.WithScheduler(s.interceptor.Scheduler))
	}
	s.router = router.New[inbound](routerOpts...)
	router.Register(s.router, router.ActionChat, s.onChat)
	router.Register(s.router, router.ActionElectionToken, s.onToken)
	router.Register(s.router, router.ActionElectionLeader, s.onLeader)

	s.loop = mux.New(s, mux.Config{
		QueueSize: cfg.Relay.QueueSize,
		Logger:    logger.Component(s.log, logger.ComponentCommunication),
	})

	if err := s.listen(); err != nil {
		return nil, err
	}
	if err := s.dialNeighbors(ctx); err != nil {
		s.loop.Stop()
		return nil, err
	}
	return s, nil
}

func (s *Server) listen() error {
	var err error
	s.clientLn, err = net.Listen("tcp", s.cfg.Listen.ClientAddr)
	if err != nil {
		return domain.ErrConfiguration.WithCause(fmt.Errorf("listen for clients on %s: %w", s.cfg.Listen.ClientAddr, err))
	}
	s.serverLn, err = net.Listen("tcp", s.cfg.Listen.ServerAddr)
	if err != nil {
		_ = s.clientLn.Close()
		return domain.ErrConfiguration.WithCause(fmt.Errorf("listen for servers on %s: %w", s.cfg.Listen.ServerAddr, err))
	}
	s.loop.Listen(s.clientLn, mux.KindClient)
	s.loop.Listen(s.serverLn, mux.KindPeer)

	s.log.Info("listening",
		"client_addr", s.clientLn.Addr().String(),
		"server_addr", s.serverLn.Addr().String())
	return nil
}

func (s *Server) dialNeighbors(ctx context.Context) error {
	d := net.Dialer{Timeout: DialTimeout}
	for _, n := range s.cfg.Neighbors {
		addr := n.Address()
		nc, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return domain.ErrConfiguration.WithCause(fmt.Errorf("connect to server %d at %s: %w", n.ID, addr, err))
		}
		c := s.loop.Attach(nc, mux.KindPeer)
		s.log.Info("connected to neighbor", "peer", n.ID, "conn", c.String())
	}
	return nil
}

// Run processes network events until ctx is cancelled or Stop is called.
func (s *Server) Run(ctx context.Context) error {
	return s.loop.Run(ctx)
}

// Stop closes every connection and listener. It must not be called from a
// frame handler.
func (s *Server) Stop() {
	s.loop.Stop()
}

// Done is closed once Run has returned.
func (s *Server) Done() <-chan struct{} {
	return s.loop.Done()
}

// ID returns the server identity.
func (s *Server) ID() int32 {
	return s.id
}

// ClientAddr returns the address clients connect to.
func (s *Server) ClientAddr() net.Addr {
	return s.clientLn.Addr()
}

// ServerAddr returns the address neighbors connect to.
func (s *Server) ServerAddr() net.Addr {
	return s.serverLn.Addr()
}

// Metrics returns the registry the server records into.
func (s *Server) Metrics() *metric.Registry {
	return s.metrics
}

// WaitDelayed blocks until all handlers postponed by fault injection have
// run.
func (s *Server) WaitDelayed() {
	s.interceptor.Wait()
}

func (s *Server) send(c *mux.Conn, f wire.Frame) {
	action := router.ActionID(f.Type).String()
	if err := c.Send(f); err != nil {
		s.log.Warn("send failed", "conn", c.String(), "action", action, "error", err)
		s.metrics.RecordSendFailure(c.Kind().String())
		return
	}
	s.metrics.RecordSent(action)
}

func (s *Server) sendAll(targets []*mux.Conn, f wire.Frame) {
	for _, c := range targets {
		s.send(c, f)
	}
}

func (s *Server) sendContent(c *mux.Conn, id router.ActionID, msg content.Content) {
	payload, err := content.Marshal(msg)
	if err != nil {
		s.log.Error("encode content", "action", id.String(), "error", err)
		return
	}
	s.send(c, wire.Frame{Type: int32(id), Sender: s.id, Payload: payload})
}
