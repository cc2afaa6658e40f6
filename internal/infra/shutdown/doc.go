// Package shutdown coordinates graceful process termination.
//
// A Handler collects cleanup hooks and runs them, newest first, when the
// process receives SIGINT or SIGTERM or when Trigger is called (for example
// by a console "quit" command). Hooks share one timeout.
package shutdown
