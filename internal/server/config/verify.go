package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
	"github.com/yndnr/chatmesh-go/internal/mesh/intercept"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

// MaxNodeID keeps derived client identities inside int32.
const MaxNodeID = 1<<31/100 - 1

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyNode(cfg); err != nil {
		return domain.ErrConfiguration.WithCause(err)
	}
	if err := verifyNeighbors(cfg.Node.ID, cfg.Neighbors); err != nil {
		return domain.ErrConfiguration.WithCause(err)
	}
	if err := verifyIntercept(&cfg.Intercept); err != nil {
		return domain.ErrConfiguration.WithCause(err)
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return domain.ErrConfiguration.WithCause(err)
	}
	return nil
}

func verifyNode(cfg *ServerConfig) error {
	if cfg.Node.ID < 0 || cfg.Node.ID > MaxNodeID {
		return fmt.Errorf("node.id %d out of range [0, %d]", cfg.Node.ID, MaxNodeID)
	}
	for name, addr := range map[string]string{
		"listen.client_addr": cfg.Listen.ClientAddr,
		"listen.server_addr": cfg.Listen.ServerAddr,
		"admin.addr":         cfg.Admin.Addr,
	} {
		if addr == "" && name == "admin.addr" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if (cfg.Admin.TLSCertFile == "") != (cfg.Admin.TLSKeyFile == "") {
		return fmt.Errorf("admin.tls_cert_file and admin.tls_key_file must be set together")
	}
	if cfg.Listen.ClientAddr == cfg.Listen.ServerAddr && !ephemeral(cfg.Listen.ClientAddr) {
		return fmt.Errorf("listen.client_addr and listen.server_addr are both %q", cfg.Listen.ClientAddr)
	}
	if cfg.Relay.ClientRateLimit < 0 {
		return fmt.Errorf("relay.client_rate_limit must not be negative")
	}
	if cfg.Relay.QueueSize < 1 {
		return fmt.Errorf("relay.queue_size must be at least 1")
	}
	return nil
}

func verifyNeighbors(self int32, neighbors []Neighbor) error {
	seen := make(map[int32]bool, len(neighbors))
	for i, n := range neighbors {
		if n.ID == self {
			return fmt.Errorf("neighbors[%d]: id %d is this node", i, n.ID)
		}
		if n.ID < 0 || n.ID > MaxNodeID {
			return fmt.Errorf("neighbors[%d]: id %d out of range", i, n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("neighbors[%d]: duplicate id %d", i, n.ID)
		}
		seen[n.ID] = true
		if strings.TrimSpace(n.Host) == "" && n.Addr == "" {
			return fmt.Errorf("neighbors[%d]: host is required", i)
		}
	}
	return nil
}

func verifyIntercept(cfg *InterceptSection) error {
	if cfg.Delay < 0 {
		return fmt.Errorf("intercept.delay must not be negative")
	}
	for _, r := range cfg.Rules {
		if _, err := intercept.ParseRule(r); err != nil {
			return fmt.Errorf("intercept.rules: %w", err)
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "text", "console", "json":
	default:
		return fmt.Errorf("log.format %q is not text or json", cfg.Format)
	}
	for name, level := range cfg.Components {
		if _, err := logger.ParseLevel(level); err != nil {
			return fmt.Errorf("log.components.%s: %w", name, err)
		}
	}
	return nil
}

// ephemeral reports whether addr asks the kernel for a free port.
func ephemeral(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	return err == nil && (port == "0" || port == "")
}
