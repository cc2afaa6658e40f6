package config

import "time"

// ServerConfig is the root configuration for chatmesh-server.
type ServerConfig struct {
	Node      NodeSection      `koanf:"node"`
	Listen    ListenSection    `koanf:"listen"`
	Neighbors []Neighbor       `koanf:"neighbors"`
	Relay     RelaySection     `koanf:"relay"`
	Election  ElectionSection  `koanf:"election"`
	Intercept InterceptSection `koanf:"intercept"`
	Admin     AdminSection     `koanf:"admin"`
	Log       LogSection       `koanf:"log"`
}

// NodeSection identifies this server in the mesh.
type NodeSection struct {
	// ID is the server identity. Client identities are derived from it
	// (ID*100 + client sequence), so it must stay below MaxNodeID.
	ID int32 `koanf:"id"`
}

// ListenSection configures the accepting sockets.
type ListenSection struct {
	// ClientAddr accepts local chat clients.
	ClientAddr string `koanf:"client_addr"`

	// ServerAddr accepts peer servers.
	ServerAddr string `koanf:"server_addr"`
}

// Neighbor is a peer server this node dials at startup.
type Neighbor struct {
	Host string `koanf:"host"`
	ID   int32  `koanf:"id"`

	// Addr overrides the conventional host:ServerPort(ID) address.
	Addr string `koanf:"addr"`
}

// Address returns the dial address of the neighbor.
func (n Neighbor) Address() string {
	if n.Addr != "" {
		return n.Addr
	}
	return JoinHostPort(n.Host, ServerPort(n.ID))
}

// RelaySection configures flood forwarding.
type RelaySection struct {
	// ClientRateLimit is the sustained chat messages per second accepted
	// from one local client. Zero disables limiting.
	ClientRateLimit float64 `koanf:"client_rate_limit"`
	ClientBurst     int     `koanf:"client_burst"`

	// QueueSize bounds the outbound frames buffered per connection.
	QueueSize int `koanf:"queue_size"`
}

// ElectionSection configures the leader election.
type ElectionSection struct {
	// WakeUp lets a dormant node with a smaller identity start its own
	// wave when it first sees a token, so the global minimum always wins.
	WakeUp bool `koanf:"wake_up"`
}

// InterceptSection configures test fault injection.
type InterceptSection struct {
	Enabled bool          `koanf:"enabled"`
	Delay   time.Duration `koanf:"delay"`

	// Rules in intercept.ParseRule syntax.
	Rules []string `koanf:"rules"`
}

// AdminSection configures the status/metrics HTTP listener.
type AdminSection struct {
	// Addr is empty to disable the admin listener.
	Addr string `koanf:"addr"`

	// TLSCertFile and TLSKeyFile serve the listener over HTTPS when both
	// are set.
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Components overrides Level per component: general, communication,
	// chat, election.
	Components map[string]string `koanf:"components"`
}
