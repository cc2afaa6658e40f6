// Package wire implements the chatmesh frame format.
//
// Every frame is a 16-byte big-endian header followed by the payload:
//
//	[type:4][sender:4][seq:4][payloadLen:4][payload...]
//
// Frames are written whole by Encode/WriteFrame and read back incrementally
// by Decoder, which tolerates arbitrarily fragmented input and never reads
// past the end of the frame it is assembling.
package wire
