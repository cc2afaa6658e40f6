// Package tests runs whole meshes of servers and clients on loopback
// sockets.
package tests

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/chatmesh-go/internal/client/chatclient"
	"github.com/yndnr/chatmesh-go/internal/server/chatserver"
	"github.com/yndnr/chatmesh-go/internal/server/config"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

const waitTimeout = 5 * time.Second

// testLogger logs to stderr when CHATMESH_TEST_LOG is set.
func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	level := os.Getenv("CHATMESH_TEST_LOG")
	if level == "" {
		return logger.Nop()
	}
	l, err := logger.New(logger.Config{Level: level, Format: "text"})
	if err != nil {
		t.Fatal(err)
	}
	return logger.Component(l, logger.ComponentTest)
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

// mesh starts servers on loopback and wires them along edges.
type mesh struct {
	t       *testing.T
	servers map[int32]*chatserver.Server
	degree  map[int32]int
}

func newMesh(t *testing.T) *mesh {
	return &mesh{t: t, servers: make(map[int32]*chatserver.Server), degree: make(map[int32]int)}
}

// add starts server id, dialing the already running servers in dial.
func (m *mesh) add(id int32, dial ...int32) *chatserver.Server {
	return m.addWith(id, func(*config.ServerConfig) {}, dial...)
}

func (m *mesh) addWith(id int32, tune func(*config.ServerConfig), dial ...int32) *chatserver.Server {
	m.t.Helper()
	cfg := config.Default(id)
	cfg.Listen.ClientAddr = "127.0.0.1:0"
	cfg.Listen.ServerAddr = "127.0.0.1:0"
	for _, peer := range dial {
		other, ok := m.servers[peer]
		if !ok {
			m.t.Fatalf("server %d must start before %d dials it", peer, id)
		}
		cfg.Neighbors = append(cfg.Neighbors, config.Neighbor{ID: peer, Addr: other.ServerAddr().String()})
		m.degree[peer]++
		m.degree[id]++
	}
	tune(cfg)
	if err := config.Verify(cfg); err != nil {
		m.t.Fatalf("config of server %d: %v", id, err)
	}

	srv, err := chatserver.New(context.Background(), cfg, chatserver.WithLogger(testLogger(m.t)))
	if err != nil {
		m.t.Fatalf("start server %d: %v", id, err)
	}
	go func() { _ = srv.Run(context.Background()) }()
	m.t.Cleanup(srv.Stop)
	m.servers[id] = srv
	return srv
}

// settle waits until every server has registered all its links.
func (m *mesh) settle() {
	m.t.Helper()
	for id, srv := range m.servers {
		want := m.degree[id]
		waitFor(m.t, fmt.Sprintf("server %d to see %d peers", id, want), func() bool {
			return srv.Snapshot().Peers == want
		})
	}
}

func (m *mesh) client(server int32, intercept ...string) *chatclient.Client {
	m.t.Helper()
	cfg := chatclient.Config{ServerAddr: m.servers[server].ClientAddr().String()}
	if len(intercept) > 0 {
		cfg.Intercept = chatclient.InterceptConfig{Enabled: true, Delay: 300 * time.Millisecond, Rules: intercept}
	}
	c, err := chatclient.Dial(context.Background(), cfg, chatclient.WithLogger(testLogger(m.t)))
	if err != nil {
		m.t.Fatalf("client of server %d: %v", server, err)
	}
	go func() { _ = c.Run(context.Background()) }()
	m.t.Cleanup(c.Stop)

	srv := m.servers[server]
	waitFor(m.t, "client registration", func() bool {
		for _, id := range srv.Snapshot().Clients {
			if id == c.ID() {
				return true
			}
		}
		return false
	})
	return c
}

// received lists the texts a client got, sorted.
func received(c *chatclient.Client) string {
	var texts []string
	for _, m := range c.History() {
		texts = append(texts, m.Text)
	}
	sort.Strings(texts)
	return strings.Join(texts, ",")
}
