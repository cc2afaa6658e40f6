// Package main provides the entry point for chatmesh-client.
//
// Usage:
//
//	chatmesh-client [flags] [SERVER]          attach and chat, "quit" leaves
//	chatmesh-client connect --intercept-rule chat:101@103 localhost:2051
//	chatmesh-client -o json status http://localhost:9090
package main
