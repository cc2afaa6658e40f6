// Package chatclient implements a chat participant of the mesh.
//
// A client connects to one server, learns its identity from the first frame
// the server sends, and from then on exchanges chat messages through that
// server. Each outgoing message carries the client's vector clock; incoming
// messages are held back until every message they causally depend on has
// been delivered.
package chatclient
