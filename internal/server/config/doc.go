// Package config provides the chatmesh-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (identity range, neighbor list, addresses)
//   - args.go: Positional "<id> [<host> <peerId>]..." command line form
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
