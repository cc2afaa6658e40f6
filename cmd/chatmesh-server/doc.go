// Package main provides the entry point for chatmesh-server.
//
// A server relays chat messages between its local clients and its neighbor
// servers, and takes part in leader elections started from any server
// console.
//
// Usage:
//
//	chatmesh-server [flags] <id> [<host> <peerId>]...
//	chatmesh-server --config /etc/chatmesh/server.yaml
//
// Console lines: "quit" stops the server, "status" logs the election
// state, "reset" clears it and any other line starts an election.
package main
