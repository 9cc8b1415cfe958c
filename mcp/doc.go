// Package mcp defines the Model Context Protocol message and type
// definitions used by this server.
//
// Only the subset of the protocol this server speaks is modeled: the
// initialize lifecycle, ping, and the tools capability. Types are plain
// structs with JSON tags matching the wire protocol; they carry no
// behavior beyond serialization.
package mcp
