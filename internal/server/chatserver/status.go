package chatserver

import (
	"slices"

	"github.com/yndnr/chatmesh-go/internal/mesh/election"
	"github.com/yndnr/chatmesh-go/internal/telemetry/metric"
)

// Snapshot is a point-in-time view of a server.
type Snapshot struct {
	ID         int32   `json:"id" yaml:"id"`
	ClientAddr string  `json:"client_addr" yaml:"client_addr"`
	ServerAddr string  `json:"server_addr" yaml:"server_addr"`
	Peers      int     `json:"peers" yaml:"peers"`
	Clients    []int32 `json:"clients" yaml:"clients"`

	Election ElectionSnapshot `json:"election" yaml:"election"`
	Relay    RelaySnapshot    `json:"relay" yaml:"relay"`
}

// ElectionSnapshot is the local election state.
type ElectionSnapshot struct {
	Status         string `json:"status" yaml:"status"`
	Done           bool   `json:"done" yaml:"done"`
	Winner         int32  `json:"winner" yaml:"winner"`
	Wave           *int32 `json:"wave,omitempty" yaml:"wave,omitempty"`
	Tokens         int    `json:"tokens" yaml:"tokens"`
	LeaderMessages int    `json:"leader_messages" yaml:"leader_messages"`

	status election.Status
}

// RelaySnapshot holds the forwarding counters.
type RelaySnapshot struct {
	Seq            int32  `json:"seq" yaml:"seq"`
	Forwarded      uint64 `json:"forwarded" yaml:"forwarded"`
	Dropped        uint64 `json:"dropped" yaml:"dropped"`
	TrackedClients int    `json:"tracked_clients" yaml:"tracked_clients"`
}

// Snapshot returns the current state of the server.
func (s *Server) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:         s.id,
		ClientAddr: s.clientLn.Addr().String(),
		ServerAddr: s.serverLn.Addr().String(),
		Peers:      len(s.st.peers),
		Clients:    make([]int32, 0, len(s.st.clientIDs)),
	}
	for _, id := range s.st.clientIDs {
		snap.Clients = append(snap.Clients, id)
	}
	slices.Sort(snap.Clients)

	e := s.st.election
	snap.Election = ElectionSnapshot{
		Status:         e.Status().String(),
		Done:           e.Done(),
		Winner:         e.Winner(),
		Tokens:         e.TokenCount(),
		LeaderMessages: e.LeaderCount(),
		status:         e.Status(),
	}
	if wave, ok := e.Wave(); ok {
		snap.Election.Wave = &wave
	}

	r := s.st.relay
	forwarded, dropped := r.Stats()
	snap.Relay = RelaySnapshot{
		Seq:            r.Seq(),
		Forwarded:      forwarded,
		Dropped:        dropped,
		TrackedClients: r.Table().Len(),
	}
	return snap
}

func (s *Server) nodeStats() metric.NodeStats {
	snap := s.Snapshot()
	return metric.NodeStats{
		Peers:          snap.Peers,
		Clients:        len(snap.Clients),
		ElectionStatus: int(snap.Election.status),
		ElectionWinner: snap.Election.Winner,
		TokenCount:     snap.Election.Tokens,
		LeaderCount:    snap.Election.LeaderMessages,
	}
}
