package chatclient

import (
	"fmt"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/mux"
	"github.com/yndnr/chatmesh-go/internal/mesh/router"
	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

// OnOpen implements mux.Handler.
func (c *Client) OnOpen(conn *mux.Conn) {
	c.metrics.ConnectionOpened(conn.Kind().String())
}

// OnFrame implements mux.Handler.
func (c *Client) OnFrame(conn *mux.Conn, f wire.Frame) {
	id := router.ActionID(f.Type)
	c.metrics.RecordReceived(id.String())
	if err := c.router.Dispatch(conn, f); err != nil {
		c.log.Warn("message rejected", "action", id.String(), "error", err)
		c.metrics.RecordDispatchError(domain.GetErrorCode(err))
	}
}

// OnClose implements mux.Handler.
func (c *Client) OnClose(conn *mux.Conn, err error) {
	c.metrics.ConnectionClosed(conn.Kind().String())
	c.closeOnce.Do(func() { close(c.disconnected) })
	c.log.Info("disconnected from server", "reason", err)
}

func (c *Client) onChat(_ *mux.Conn, msg *content.Chat) error {
	c.mu.Lock()
	c.buf.Receive(msg)
	fresh := c.fresh
	c.fresh = nil
	pending := c.buf.Pending()
	c.outMu.Lock()
	c.mu.Unlock()
	defer c.outMu.Unlock()

	if len(fresh) == 0 {
		c.chatLog.Debug("chat held back", "id", msg.ID, "sender", msg.Sender, "pending", pending)
	}
	for _, m := range fresh {
		c.metrics.ChatDelivered.Inc()
		c.chatLog.Debug("chat delivered", "id", m.ID, "sender", m.Sender, "clock", m.Clock, logger.TextKey, m.Text)
		fmt.Fprintf(c.out, "%d: %s\n", m.Sender, m.Text)
	}
	return nil
}

// deliver runs under c.mu from inside Buffer.Receive.
func (c *Client) deliver(msg *content.Chat) {
	if msg.ID != "" {
		if _, dup := c.seen[msg.ID]; dup {
			c.duplicates++
			c.chatLog.Error("chat delivered twice", "id", msg.ID, "sender", msg.Sender)
			return
		}
		c.seen[msg.ID] = struct{}{}
	}
	m := Message{ID: msg.ID, Sender: msg.Sender, Text: msg.Text, Clock: msg.Clock.String()}
	c.history = append(c.history, m)
	c.fresh = append(c.fresh, m)
}
