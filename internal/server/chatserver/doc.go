// Package chatserver implements a server node of the chat mesh.
//
// A server accepts local clients and neighbor servers on two listeners and
// dials the neighbors named in its configuration. Every client gets an
// identity derived from the server identity on connect. Chat messages from
// local clients are stamped with the server's sequence counter and flooded
// through the mesh; every server forwards each message once. Servers also run
// the leader election over the neighbor links.
//
// All network events of a server are handled on its mux loop. Handler state
// lives in one struct behind one mutex, which is released before any frame
// is queued.
package chatserver
