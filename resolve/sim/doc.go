// Package sim is an in-memory emulation of the DaVinci Resolve scripting
// object graph. It backs the server's simulation connection mode and the
// repository's tests.
//
// The emulation mirrors the host application's observable quirks where
// they matter to callers: timeline names are not unique, bin creation
// does not deduplicate, and accessors report absence rather than failing
// when the state a caller hoped for is not there.
package sim
