// Package buildinfo exposes version information of the chatmesh binaries.
//
// Release builds inject the values with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/chatmesh-go/internal/infra/buildinfo.Version=v0.3.0 \
//	    -X github.com/yndnr/chatmesh-go/internal/infra/buildinfo.Commit=abc123"
//
// Development builds fall back to the VCS data recorded by the Go toolchain.
package buildinfo
