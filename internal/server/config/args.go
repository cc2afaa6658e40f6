package config

import (
	"fmt"
	"strconv"
)

// ParseArgs reads the positional form "<id> [<host> <peerId>]...".
// It returns the node id and its neighbors.
func ParseArgs(args []string) (int32, []Neighbor, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("missing server id")
	}
	if len(args)%2 != 1 {
		return 0, nil, fmt.Errorf("neighbors must be given as <host> <peerId> pairs")
	}
	id, err := parseID(args[0])
	if err != nil {
		return 0, nil, fmt.Errorf("server id: %w", err)
	}
	var neighbors []Neighbor
	for i := 1; i < len(args); i += 2 {
		peer, err := parseID(args[i+1])
		if err != nil {
			return 0, nil, fmt.Errorf("peer id %q: %w", args[i+1], err)
		}
		neighbors = append(neighbors, Neighbor{Host: args[i], ID: peer})
	}
	return id, neighbors, nil
}

func parseID(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
