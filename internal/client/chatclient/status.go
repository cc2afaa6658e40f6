package chatclient

// Snapshot holds the client counters.
type Snapshot struct {
	ID         int32  `json:"id" yaml:"id"`
	Sent       uint64 `json:"sent" yaml:"sent"`
	Delivered  uint64 `json:"delivered" yaml:"delivered"`
	Pending    int    `json:"pending" yaml:"pending"`
	Stale      uint64 `json:"stale" yaml:"stale"`
	Duplicates uint64 `json:"duplicates" yaml:"duplicates"`
	Clock      string `json:"clock" yaml:"clock"`
}

// Snapshot returns the current counters.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:         c.id,
		Sent:       c.sent,
		Delivered:  c.buf.Delivered(),
		Pending:    c.buf.Pending(),
		Stale:      c.buf.Stale(),
		Duplicates: c.duplicates,
		Clock:      c.buf.Clock().String(),
	}
}

// History returns the delivered messages in delivery order.
func (c *Client) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}
