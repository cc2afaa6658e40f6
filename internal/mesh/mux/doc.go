// Package mux multiplexes the connections of one node onto a single event
// loop.
//
// Each connection gets a reader goroutine that performs the blocking socket
// reads and posts the bytes to the loop, and a writer goroutine draining an
// outbound queue. The loop is the only goroutine that decodes frames and
// calls the Handler, so frames of one node are never handled concurrently by
// the loop and a slow peer only ever stalls its own writer.
package mux
