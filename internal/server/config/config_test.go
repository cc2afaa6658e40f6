package config

import (
	"errors"
	"testing"
	"time"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
)

func TestDefault(t *testing.T) {
	cfg := Default(3)

	if cfg.Node.ID != 3 {
		t.Errorf("Node.ID = %d, want 3", cfg.Node.ID)
	}
	if cfg.Listen.ClientAddr != ":2053" {
		t.Errorf("Listen.ClientAddr = %q, want %q", cfg.Listen.ClientAddr, ":2053")
	}
	if cfg.Listen.ServerAddr != ":2153" {
		t.Errorf("Listen.ServerAddr = %q, want %q", cfg.Listen.ServerAddr, ":2153")
	}
	if !cfg.Election.WakeUp {
		t.Error("Election.WakeUp should be enabled by default")
	}
	if cfg.Intercept.Enabled {
		t.Error("Intercept should be disabled by default")
	}
	if cfg.Intercept.Delay != DefaultInterceptDelay {
		t.Errorf("Intercept.Delay = %v, want %v", cfg.Intercept.Delay, DefaultInterceptDelay)
	}
	if cfg.Relay.QueueSize != DefaultQueueSize {
		t.Errorf("Relay.QueueSize = %d, want %d", cfg.Relay.QueueSize, DefaultQueueSize)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default) failed: %v", err)
	}
}

func TestNeighbor_Address(t *testing.T) {
	tests := []struct {
		name string
		n    Neighbor
		want string
	}{
		{"conventional port", Neighbor{Host: "localhost", ID: 4}, "localhost:2154"},
		{"ipv6 host", Neighbor{Host: "::1", ID: 0}, "[::1]:2150"},
		{"explicit addr", Neighbor{Host: "ignored", ID: 4, Addr: "10.0.0.1:9000"}, "10.0.0.1:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.n.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ServerConfig)
	}{
		{"negative id", func(c *ServerConfig) { c.Node.ID = -1 }},
		{"id too large", func(c *ServerConfig) { c.Node.ID = MaxNodeID + 1 }},
		{"bad client addr", func(c *ServerConfig) { c.Listen.ClientAddr = "nope" }},
		{"same listen addrs", func(c *ServerConfig) { c.Listen.ServerAddr = c.Listen.ClientAddr }},
		{"bad admin addr", func(c *ServerConfig) { c.Admin.Addr = "localhost" }},
		{"admin cert without key", func(c *ServerConfig) { c.Admin.TLSCertFile = "admin.pem" }},
		{"self neighbor", func(c *ServerConfig) { c.Neighbors = []Neighbor{{Host: "h", ID: 1}} }},
		{"duplicate neighbor", func(c *ServerConfig) {
			c.Neighbors = []Neighbor{{Host: "h", ID: 2}, {Host: "k", ID: 2}}
		}},
		{"neighbor without host", func(c *ServerConfig) { c.Neighbors = []Neighbor{{ID: 2}} }},
		{"negative rate", func(c *ServerConfig) { c.Relay.ClientRateLimit = -1 }},
		{"zero queue", func(c *ServerConfig) { c.Relay.QueueSize = 0 }},
		{"negative delay", func(c *ServerConfig) { c.Intercept.Delay = -time.Second }},
		{"bad rule", func(c *ServerConfig) { c.Intercept.Rules = []string{"everything"} }},
		{"bad log level", func(c *ServerConfig) { c.Log.Level = "loud" }},
		{"bad log format", func(c *ServerConfig) { c.Log.Format = "xml" }},
		{"bad component level", func(c *ServerConfig) { c.Log.Components = map[string]string{"election": "chatty"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(1)
			tt.modify(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() should fail")
			}
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Verify() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestVerify_ValidNeighbors(t *testing.T) {
	cfg := Default(1)
	cfg.Admin.Addr = "127.0.0.1:9090"
	cfg.Neighbors = []Neighbor{{Host: "localhost", ID: 0}, {Addr: "127.0.0.1:2152", ID: 2}}
	cfg.Intercept.Rules = []string{"self-initiated-tokens", "chat:101@102"}
	cfg.Log.Components = map[string]string{"election": "debug", "communication": "warn"}

	if err := Verify(cfg); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestVerify_EphemeralListenAddrs(t *testing.T) {
	cfg := Default(1)
	cfg.Listen.ClientAddr = "127.0.0.1:0"
	cfg.Listen.ServerAddr = "127.0.0.1:0"
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify() rejected ephemeral listen addresses: %v", err)
	}

	cfg.Listen.ClientAddr = "127.0.0.1:2051"
	cfg.Listen.ServerAddr = "127.0.0.1:2051"
	if err := Verify(cfg); err == nil {
		t.Error("Verify() accepted one fixed port for both listeners")
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantID    int32
		wantPeers []Neighbor
		wantErr   bool
	}{
		{name: "id only", args: []string{"0"}, wantID: 0},
		{
			name:      "two neighbors",
			args:      []string{"4", "localhost", "0", "hostB", "1"},
			wantID:    4,
			wantPeers: []Neighbor{{Host: "localhost", ID: 0}, {Host: "hostB", ID: 1}},
		},
		{name: "empty", args: nil, wantErr: true},
		{name: "dangling host", args: []string{"1", "localhost"}, wantErr: true},
		{name: "bad id", args: []string{"x"}, wantErr: true},
		{name: "bad peer id", args: []string{"1", "localhost", "y"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, peers, err := ParseArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if id != tt.wantID {
				t.Errorf("id = %d, want %d", id, tt.wantID)
			}
			if len(peers) != len(tt.wantPeers) {
				t.Fatalf("peers = %v, want %v", peers, tt.wantPeers)
			}
			for i := range peers {
				if peers[i] != tt.wantPeers[i] {
					t.Errorf("peers[%d] = %+v, want %+v", i, peers[i], tt.wantPeers[i])
				}
			}
		})
	}
}

func TestPorts(t *testing.T) {
	if ClientPort(0) != 2050 || ServerPort(0) != 2150 {
		t.Errorf("ports for id 0 = %d/%d", ClientPort(0), ServerPort(0))
	}
	if ClientPort(7) != 2057 || ServerPort(7) != 2157 {
		t.Errorf("ports for id 7 = %d/%d", ClientPort(7), ServerPort(7))
	}
}
