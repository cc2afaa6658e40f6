package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chatmesh-go/internal/cli/connection"
	"github.com/yndnr/chatmesh-go/internal/cli/output"
	"github.com/yndnr/chatmesh-go/internal/infra/tlsroots"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the state of a server",
		ArgsUsage: "[ADMIN_URL]",
		Action:    statusAction,
	}
}

// statusView is the table layout of a server status.
type statusView struct {
	ID         int32   `json:"id"`
	Version    string  `json:"version"`
	Peers      int     `json:"peers"`
	Clients    []int32 `json:"clients"`
	Election   string  `json:"election"`
	Leader     string  `json:"leader"`
	Tokens     int     `json:"tokens"`
	Forwarded  uint64  `json:"forwarded"`
	Dropped    uint64  `json:"dropped"`
	ClientAddr string  `json:"client_addr" table:"wide"`
	ServerAddr string  `json:"server_addr" table:"wide"`
	Seq        int32   `json:"seq" table:"wide"`
}

func newStatusView(st *connection.Status) statusView {
	n := st.Node
	leader := "-"
	if n.Election.Done {
		leader = fmt.Sprintf("%d", n.Election.Winner)
	}
	return statusView{
		ID:         n.ID,
		Version:    st.Build.Version,
		Peers:      n.Peers,
		Clients:    n.Clients,
		Election:   n.Election.Status,
		Leader:     leader,
		Tokens:     n.Election.Tokens,
		Forwarded:  n.Relay.Forwarded,
		Dropped:    n.Relay.Dropped,
		ClientAddr: n.ClientAddr,
		ServerAddr: n.ServerAddr,
		Seq:        n.Relay.Seq,
	}
}

func statusAction(c *cli.Context) error {
	cfg := GetConfig(c)
	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}
	admin := c.Args().First()
	if admin == "" {
		admin = cfg.Admin
	}

	roots, err := tlsroots.Load(cfg.AdminCA)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	client := connection.NewHTTPClient(admin, connection.WithTLSConfig(roots.TLSConfig()))
	st, err := client.Status(c.Context)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	var data any = st
	if format == output.FormatTable {
		data = newStatusView(st)
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(c.App.Writer, data)
}
