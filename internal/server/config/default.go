package config

import (
	"net"
	"strconv"
	"time"
)

// Default configuration values.
const (
	ClientPortBase = 2050
	ServerPortBase = 2150

	DefaultQueueSize      = 256
	DefaultClientBurst    = 20
	DefaultInterceptDelay = 50 * time.Millisecond

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// ClientPort returns the conventional client port of server id.
func ClientPort(id int32) int {
	return ClientPortBase + int(id)
}

// ServerPort returns the conventional peer port of server id.
func ServerPort(id int32) int {
	return ServerPortBase + int(id)
}

// JoinHostPort formats host and port as a dial address.
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Default returns the default configuration of server id.
func Default(id int32) *ServerConfig {
	return &ServerConfig{
		Node: NodeSection{ID: id},
		Listen: ListenSection{
			ClientAddr: JoinHostPort("", ClientPort(id)),
			ServerAddr: JoinHostPort("", ServerPort(id)),
		},
		Relay: RelaySection{
			ClientBurst: DefaultClientBurst,
			QueueSize:   DefaultQueueSize,
		},
		Election: ElectionSection{WakeUp: true},
		Intercept: InterceptSection{
			Delay: DefaultInterceptDelay,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
