// Package domain defines the core domain vocabulary for chatmesh.
//
// It has no IO dependencies. This package contains:
//
//   - Errors: coded domain errors (stream, action, configuration, send)
//   - Identity: client identity arithmetic shared by servers and clients
package domain
