// Package repl reads console lines for the chatmesh binaries.
//
// Each non-empty line is recorded in a History and handed to the node's
// SubmitLine. The loop ends on "quit", end of input or context cancellation.
package repl
