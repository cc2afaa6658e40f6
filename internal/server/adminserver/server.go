package adminserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yndnr/chatmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

// StatusFunc returns the JSON-encodable state of the node.
type StatusFunc func() any

// Config configures the admin server.
type Config struct {
	Addr    string
	Status  StatusFunc
	Metrics http.Handler
	Logger  logger.Logger

	// TLSCertFile and TLSKeyFile switch the listener to HTTPS.
	TLSCertFile string
	TLSKeyFile  string
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Build buildinfo.Info `json:"build" yaml:"build"`
	Node  any            `json:"node" yaml:"node"`
}

// Server is the admin HTTP server.
type Server struct {
	cfg     Config
	log     logger.Logger
	handler http.Handler
	srv     *http.Server
}

// New builds the admin server. Nothing listens until Serve or
// ListenAndServe is called.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	s := &Server{cfg: cfg, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(accessLog(log))

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	s.handler = r
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe binds cfg.Addr and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.cfg.TLSCertFile != "" {
		s.log.Info("admin server listening", "addr", ln.Addr().String(), "tls", true)
		err = s.srv.ServeTLS(ln, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	} else {
		s.log.Info("admin server listening", "addr", ln.Addr().String())
		err = s.srv.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Build: buildinfo.Get()}
	if s.cfg.Status != nil {
		resp.Node = s.cfg.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
