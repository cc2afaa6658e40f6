package command

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/chatmesh-go/internal/server/chatserver"
	"github.com/yndnr/chatmesh-go/internal/server/config"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

const waitTimeout = 3 * time.Second

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// runApp runs the client app with an isolated config file and returns what it
// printed.
func runApp(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	out := &safeBuffer{}
	err := runAppTo(t, stdin, out, args...)
	return out.String(), err
}

func runAppTo(t *testing.T, stdin io.Reader, out io.Writer, args ...string) error {
	t.Helper()
	app := App()
	app.Reader = stdin
	app.Writer = out
	app.ErrWriter = io.Discard
	full := append([]string{"chatmesh-client", "--config", filepath.Join(t.TempDir(), "client.yaml")}, args...)
	return app.Run(full)
}

func startServer(t *testing.T, id int32) *chatserver.Server {
	t.Helper()
	cfg := config.Default(id)
	cfg.Listen.ClientAddr = "127.0.0.1:0"
	cfg.Listen.ServerAddr = "127.0.0.1:0"
	srv, err := chatserver.New(context.Background(), cfg, chatserver.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("chatserver.New() error = %v", err)
	}
	go func() { _ = srv.Run(context.Background()) }()
	t.Cleanup(srv.Stop)
	return srv
}
