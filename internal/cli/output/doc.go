// Package output renders command results for chatmesh-client.
//
// Three formats are supported: an aligned table (default), indented JSON and
// YAML. The table formatter flattens nested structs into dotted field names
// so a node status fits one FIELD/VALUE listing.
package output
