// Package stdio implements the single-connection MCP session layer over
// stdin/stdout. One process serves one client: messages are
// newline-delimited JSON-RPC, requests are handled strictly in arrival
// order, and responses are written in that same order. Standard error
// carries diagnostics only; protocol data never goes there.
//
// The lifecycle is a small state machine: only initialize (and ping) is
// accepted until the client sends notifications/initialized, after
// which tools/list and tools/call are served until EOF or context
// cancellation ends the loop.
//
// Options allow supplying alternate io.Reader / io.Writer or a custom
// logger.
package stdio
