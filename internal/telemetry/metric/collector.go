package metric

import "github.com/prometheus/client_golang/prometheus"

// NodeStats is a point-in-time view of node state.
type NodeStats struct {
	Peers   int
	Clients int

	ElectionStatus int
	ElectionWinner int32
	TokenCount     int
	LeaderCount    int

	ChatPending int
}

// Collector samples NodeStats at scrape time, so values that live under the
// node lock need no separate bookkeeping.
type Collector struct {
	stats func() NodeStats

	peers          *prometheus.Desc
	clients        *prometheus.Desc
	electionStatus *prometheus.Desc
	electionWinner *prometheus.Desc
	tokenCount     *prometheus.Desc
	leaderCount    *prometheus.Desc
	chatPending    *prometheus.Desc
}

// NewCollector returns a collector reading stats from fn.
func NewCollector(fn func() NodeStats) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &Collector{
		stats:          fn,
		peers:          desc("peers", "Connected neighbor servers."),
		clients:        desc("clients", "Attached clients."),
		electionStatus: desc("election_status", "Election status: 0 dormant, 1 initiator, 2 leader, 3 non-leader."),
		electionWinner: desc("election_winner", "Last announced leader identity."),
		tokenCount:     desc("election_tokens", "Tokens received for the adopted wave."),
		leaderCount:    desc("election_leader_messages", "Leader announcements received."),
		chatPending:    desc("chat_pending", "Chat messages waiting for causal delivery."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.peers
	ch <- c.clients
	ch <- c.electionStatus
	ch <- c.electionWinner
	ch <- c.tokenCount
	ch <- c.leaderCount
	ch <- c.chatPending
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	gauge(c.peers, float64(s.Peers))
	gauge(c.clients, float64(s.Clients))
	gauge(c.electionStatus, float64(s.ElectionStatus))
	gauge(c.electionWinner, float64(s.ElectionWinner))
	gauge(c.tokenCount, float64(s.TokenCount))
	gauge(c.leaderCount, float64(s.LeaderCount))
	gauge(c.chatPending, float64(s.ChatPending))
}
