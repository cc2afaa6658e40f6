// Package command defines the chatmesh-client commands on urfave/cli/v2.
//
//   - connect (default): attach to a server and chat from the console
//   - status: query a server's admin endpoint and print its state
package command
