package domain

import "fmt"

// ClientIDOffset separates the server part from the per-server client
// sequence in a client identity: identity = server*ClientIDOffset + seq.
const ClientIDOffset = 100

// ClientIdentity computes the identity a server assigns to its n-th client.
func ClientIdentity(serverID, clientSeq int32) int32 {
	return serverID*ClientIDOffset + clientSeq
}

// ServerOf returns the identity of the server that assigned a client identity.
func ServerOf(clientID int32) int32 {
	return clientID / ClientIDOffset
}

// ClientIndexOf returns the per-server sequence part of a client identity.
func ClientIndexOf(clientID int32) int32 {
	return clientID % ClientIDOffset
}

// DescribeClient renders a client identity as "client <n> of server <s>".
func DescribeClient(clientID int32) string {
	return fmt.Sprintf("client %d of server %d", ClientIndexOf(clientID), ServerOf(clientID))
}
