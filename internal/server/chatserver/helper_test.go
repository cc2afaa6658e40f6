package chatserver

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/router"
	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
	"github.com/yndnr/chatmesh-go/internal/server/config"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

const ioTimeout = 2 * time.Second

func testConfig(id int32) *config.ServerConfig {
	cfg := config.Default(id)
	cfg.Listen.ClientAddr = "127.0.0.1:0"
	cfg.Listen.ServerAddr = "127.0.0.1:0"
	return cfg
}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	if os.Getenv("CHATMESH_TEST_LOG") == "" {
		return logger.Nop()
	}
	l, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: os.Stderr})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return logger.Component(l, logger.ComponentTest)
}

func startServer(t *testing.T, cfg *config.ServerConfig, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithLogger(testLogger(t))}, opts...)
	s, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	go func() { _ = s.Run(context.Background()) }()
	t.Cleanup(s.Stop)
	return s
}

func dial(t *testing.T, addr net.Addr) net.Conn {
	t.Helper()
	nc, err := net.DialTimeout("tcp", addr.String(), ioTimeout)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { nc.Close() })
	return nc
}

// dialClient connects a raw client and returns it with its identity.
func dialClient(t *testing.T, s *Server) (net.Conn, int32) {
	t.Helper()
	nc := dial(t, s.ClientAddr())
	f := readFrame(t, nc)
	if f.Type != router.HandshakeType {
		t.Fatalf("first frame type = %d, want identity", f.Type)
	}
	id, err := wire.ParseIdentity(f.Payload)
	if err != nil {
		t.Fatalf("decode identity: %v", err)
	}
	return nc, id
}

func tryReadFrame(nc net.Conn, timeout time.Duration) (wire.Frame, error) {
	if err := nc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return wire.Frame{}, err
	}
	defer nc.SetReadDeadline(time.Time{})
	dec := wire.NewDecoder()
	for {
		switch dec.Decode(nc) {
		case wire.PayloadComplete:
			f, _ := dec.Frame()
			return f, nil
		case wire.Closed:
			return wire.Frame{}, dec.Err()
		}
	}
}

func readFrame(t *testing.T, nc net.Conn) wire.Frame {
	t.Helper()
	f, err := tryReadFrame(nc, ioTimeout)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func readContent(t *testing.T, nc net.Conn) (wire.Frame, content.Content) {
	t.Helper()
	f := readFrame(t, nc)
	c, err := content.Unmarshal(f.Payload)
	if err != nil {
		t.Fatalf("decode payload of %v: %v", f, err)
	}
	return f, c
}

func expectNoFrame(t *testing.T, nc net.Conn) {
	t.Helper()
	f, err := tryReadFrame(nc, 150*time.Millisecond)
	if err == nil {
		t.Fatalf("unexpected frame %v", f)
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("read: %v, want timeout", err)
	}
}

func writeContent(t *testing.T, nc net.Conn, typ, sender, seq int32, c content.Content) {
	t.Helper()
	if err := wire.WriteFrame(nc, typ, sender, seq, content.MustMarshal(c)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(ioTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
