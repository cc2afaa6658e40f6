// Package config holds the chatmesh-client configuration (~/.chatmesh/client.yaml).
//
// Values are resolved as flag > CHATMESH_* environment variable > file >
// default.
package config
