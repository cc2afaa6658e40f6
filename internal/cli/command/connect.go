package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chatmesh-go/internal/cli/repl"
	"github.com/yndnr/chatmesh-go/internal/client/chatclient"
)

// ConnectCommand returns the connect command.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Attach to a server and chat; type quit to leave",
		ArgsUsage: "[SERVER]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "intercept-rule",
				Usage: `delay matching messages, e.g. "chat:101@103" (repeatable)`,
			},
			&cli.DurationFlag{
				Name:  "intercept-delay",
				Usage: "how long intercepted messages are held",
				Value: chatclient.DefaultInterceptDelay,
			},
		},
		Action: connectAction,
	}
}

func connectAction(c *cli.Context) error {
	cfg := GetConfig(c)
	server := c.Args().First()
	if server == "" {
		server = cfg.Server
	}
	log, err := newLogger(cfg, c.App.ErrWriter)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	rules := c.StringSlice("intercept-rule")
	client, err := chatclient.Dial(ctx, chatclient.Config{
		ServerAddr: server,
		Intercept: chatclient.InterceptConfig{
			Enabled: len(rules) > 0,
			Delay:   c.Duration("intercept-delay"),
			Rules:   rules,
		},
	},
		chatclient.WithLogger(log),
		chatclient.WithOutput(c.App.Writer),
		chatclient.WithQuitHandler(cancel))
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "connected to %s as client %d\n", server, client.ID())

	go func() { _ = client.Run(ctx) }()
	go func() {
		select {
		case <-client.Disconnected():
			fmt.Fprintln(c.App.ErrWriter, "server closed the connection")
			cancel()
		case <-ctx.Done():
		}
	}()

	history := repl.NewHistory(cfg.History, 0)
	if err := history.Load(); err != nil {
		log.Warn("history not loaded", "error", err)
	}
	console := repl.New(client.SubmitLine,
		repl.WithInput(c.App.Reader),
		repl.WithOutput(c.App.Writer),
		repl.WithHistory(history))
	runErr := console.Run(ctx)

	cancel()
	client.Stop()
	if err := history.Save(); err != nil {
		log.Warn("history not saved", "error", err)
	}
	return runErr
}
