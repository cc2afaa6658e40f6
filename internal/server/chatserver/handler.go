package chatserver

import (
	"fmt"
	"slices"
	"time"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/election"
	"github.com/yndnr/chatmesh-go/internal/mesh/mux"
	"github.com/yndnr/chatmesh-go/internal/mesh/relay"
	"github.com/yndnr/chatmesh-go/internal/mesh/router"
	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

// OnOpen registers a new link. A client is assigned its identity and told
// about it before anything else is queued on its link.
func (s *Server) OnOpen(c *mux.Conn) {
	s.metrics.ConnectionOpened(c.Kind().String())

	switch c.Kind() {
	case mux.KindPeer:
		s.mu.Lock()
		s.st.peers = append(s.st.peers, c)
		s.mu.Unlock()
		s.log.Info("peer connected", "conn", c.String())

	case mux.KindClient:
		s.mu.Lock()
		if s.st.clientSeq+1 >= domain.ClientIDOffset {
			s.mu.Unlock()
			s.log.Warn("client rejected, identity space exhausted", "conn", c.String())
			_ = c.Close()
			return
		}
		s.st.clientSeq++
		id := domain.ClientIdentity(s.id, s.st.clientSeq)
		s.st.clientIDs[c] = id
		s.st.clients = append(s.st.clients, c)
		s.mu.Unlock()

		s.log.Info("client connected", "conn", c.String(), "client", id)
		s.send(c, wire.Frame{Type: router.HandshakeType, Sender: s.id, Payload: wire.IdentityPayload(id)})
	}
}

// OnFrame routes one decoded frame.
func (s *Server) OnFrame(c *mux.Conn, f wire.Frame) {
	id := router.ActionID(f.Type)
	s.metrics.RecordReceived(id.String())
	if err := s.router.Dispatch(inbound{conn: c, frame: f}, f); err != nil {
		s.dispatchFailed(c, id, err)
	}
}

// OnClose forgets a link.
func (s *Server) OnClose(c *mux.Conn, err error) {
	s.metrics.ConnectionClosed(c.Kind().String())

	s.mu.Lock()
	s.st.peers = slices.DeleteFunc(s.st.peers, func(p *mux.Conn) bool { return p == c })
	s.st.clients = slices.DeleteFunc(s.st.clients, func(p *mux.Conn) bool { return p == c })
	id, isClient := s.st.clientIDs[c]
	delete(s.st.clientIDs, c)
	s.mu.Unlock()

	attrs := []any{"conn", c.String()}
	if isClient {
		s.limiters.Forget(id)
		attrs = append(attrs, "client", id)
	}
	if err != nil {
		attrs = append(attrs, "reason", err)
	}
	s.log.Info("connection closed", attrs...)
}

func (s *Server) dispatchFailed(c *mux.Conn, id router.ActionID, err error) {
	attrs := []any{"action", id.String(), "error", err}
	if c != nil {
		attrs = append(attrs, "conn", c.String())
	}
	s.log.Warn("message rejected", attrs...)
	s.metrics.RecordDispatchError(domain.GetErrorCode(err))
}

// onChat floods a chat message to every neighbor and client except the link
// it came from, once per message.
func (s *Server) onChat(in inbound, msg *content.Chat) error {
	var clientID, seq int32

	s.mu.Lock()
	switch in.conn.Kind() {
	case mux.KindClient:
		id, ok := s.st.clientIDs[in.conn]
		if !ok {
			s.mu.Unlock()
			return domain.ErrMalformedAction.WithDetails("chat from unregistered client " + in.conn.String())
		}
		if msg.Sender != id {
			s.mu.Unlock()
			return domain.ErrMalformedAction.WithDetails(fmt.Sprintf("client %d sent chat as %d", id, msg.Sender))
		}
		wait := s.limiters.Reserve(id)
		if wait > 0 || len(s.st.held[id]) > 0 {
			first := len(s.st.held[id]) == 0
			s.st.held[id] = append(s.st.held[id], heldChat{in: in, msg: msg, due: time.Now().Add(wait)})
			s.mu.Unlock()
			s.metrics.RelayRateLimited.Inc()
			s.chatLog.Debug("chat held by rate limit", "client", id, "id", msg.ID, "delay", wait)
			if first {
				time.AfterFunc(wait, func() { s.releaseHeld(id) })
			}
			return nil
		}
		clientID, seq = id, s.st.relay.StampLocal(id)

	case mux.KindPeer:
		clientID, seq = in.frame.Sender, in.frame.Seq
		if !s.st.relay.AdmitRelayed(clientID, seq) {
			s.mu.Unlock()
			s.metrics.RelayDuplicates.Inc()
			s.chatLog.Debug("duplicate chat dropped", "client", clientID, "seq", seq, "id", msg.ID)
			return nil
		}

	default:
		s.mu.Unlock()
		return domain.ErrMalformedAction.WithDetails("chat on " + in.conn.String())
	}
	targets := relay.Targets(in.conn, s.st.peers, s.st.clients)
	s.mu.Unlock()

	s.forwardChat(in, msg, clientID, seq, targets)
	return nil
}

// heldChat is a client chat waiting for its rate limit.
type heldChat struct {
	in  inbound
	msg *content.Chat
	due time.Time
}

// releaseHeld forwards the oldest held chat of a client and schedules the
// next one. Only one release per client is pending at any time.
func (s *Server) releaseHeld(id int32) {
	select {
	case <-s.Done():
		return
	default:
	}

	s.mu.Lock()
	queue := s.st.held[id]
	if len(queue) == 0 {
		s.mu.Unlock()
		return
	}
	h := queue[0]
	seq := s.st.relay.StampLocal(id)
	targets := relay.Targets(h.in.conn, s.st.peers, s.st.clients)
	s.mu.Unlock()

	s.forwardChat(h.in, h.msg, id, seq, targets)

	s.mu.Lock()
	queue = s.st.held[id][1:]
	if len(queue) == 0 {
		delete(s.st.held, id)
	} else {
		s.st.held[id] = queue
	}
	s.mu.Unlock()
	if len(queue) > 0 {
		time.AfterFunc(time.Until(queue[0].due), func() { s.releaseHeld(id) })
	}
}

func (s *Server) forwardChat(in inbound, msg *content.Chat, clientID, seq int32, targets []*mux.Conn) {
	s.metrics.RelayForwarded.Inc()
	s.chatLog.Debug("chat relayed",
		"client", clientID,
		"seq", seq,
		"id", msg.ID,
		"targets", len(targets),
		logger.TextKey, msg.Text)

	s.sendAll(targets, wire.Frame{
		Type:    int32(router.ActionChat),
		Sender:  clientID,
		Seq:     seq,
		Payload: in.frame.Payload,
	})
}

func (s *Server) onToken(in inbound, tok *content.ElectionToken) error {
	if in.conn.Kind() != mux.KindPeer {
		return domain.ErrMalformedAction.WithDetails("election token on " + in.conn.String())
	}
	s.mu.Lock()
	sends := s.st.election.OnToken(in.conn, tok, s.st.peers)
	status, count := s.st.election.Status(), s.st.election.TokenCount()
	s.mu.Unlock()

	s.electLog.Debug("token received",
		"from", tok.Sender,
		"initiator", tok.Initiator,
		"status", status.String(),
		"tokens", count)
	s.sendElection(sends)
	return nil
}

func (s *Server) onLeader(in inbound, l *content.ElectionLeader) error {
	if in.conn.Kind() != mux.KindPeer {
		return domain.ErrMalformedAction.WithDetails("leader announcement on " + in.conn.String())
	}
	s.mu.Lock()
	wasDone := s.st.election.Done()
	sends := s.st.election.OnLeader(in.conn, l, s.st.peers)
	done, status, winner := s.st.election.Done(), s.st.election.Status(), s.st.election.Winner()
	s.mu.Unlock()

	s.electLog.Debug("leader announcement received", "from", l.Sender, "leader", l.Initiator)
	if done && !wasDone {
		s.electLog.Info("election finished", "status", status.String(), "leader", winner)
	}
	s.sendElection(sends)
	return nil
}

func (s *Server) sendElection(sends []election.Send[*mux.Conn]) {
	for _, out := range sends {
		id := router.ActionElectionToken
		if out.Content.Kind() == content.KindElectionLeader {
			id = router.ActionElectionLeader
		}
		s.sendContent(out.To, id, out.Content)
	}
}
