package chatserver

import (
	"strings"
)

// Console commands. Any other non-empty line starts an election.
const (
	CommandQuit   = "quit"
	CommandStatus = "status"
	CommandReset  = "reset"
)

// SubmitLine handles one line typed on the server console.
func (s *Server) SubmitLine(line string) {
	switch cmd := strings.TrimSpace(line); cmd {
	case "":
	case CommandQuit:
		s.log.Info("quit requested from console")
		s.onQuit()
	case CommandStatus:
		snap := s.Snapshot()
		s.electLog.Info("election status",
			"status", snap.Election.Status,
			"leader", snap.Election.Winner,
			"tokens", snap.Election.Tokens,
			"leader_messages", snap.Election.LeaderMessages,
			"peers", snap.Peers)
	case CommandReset:
		s.ResetElection()
	default:
		s.StartElection()
	}
}

// StartElection makes this server an initiator. Repeated calls while the
// election runs or after it finished do nothing.
func (s *Server) StartElection() {
	s.mu.Lock()
	before := s.st.election.Status()
	sends := s.st.election.Start(s.st.peers)
	after, done := s.st.election.Status(), s.st.election.Done()
	s.mu.Unlock()

	if after == before {
		s.electLog.Info("election already running or finished", "status", after.String())
		return
	}
	s.metrics.ElectionsStarted.Inc()
	s.electLog.Info("election started", "status", after.String())
	if done {
		s.electLog.Info("election finished without neighbors", "status", after.String(), "leader", s.id)
	}
	s.sendElection(sends)
}

// ResetElection returns the local election state to dormant. Every server
// of the mesh must be reset before the next election.
func (s *Server) ResetElection() {
	s.mu.Lock()
	s.st.election.Reset()
	s.mu.Unlock()
	s.electLog.Info("election reset")
}
