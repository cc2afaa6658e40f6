// Package connection talks to the admin endpoint of a chatmesh server.
package connection
