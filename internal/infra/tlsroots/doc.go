// Package tlsroots builds the trusted root pool used to verify a server's
// admin endpoint when it is served over HTTPS.
package tlsroots
