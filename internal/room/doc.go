// Package room implements the single-room chat server.
//
// A Service owns three loops: the accept loop performs the blocking name
// handshake for each new connection, the broadcast loop polls every member
// once per pass and relays text to everyone else, and the optional admin
// HTTP server exposes members, the message log and metrics.
//
// Registry and Log are guarded by independent locks. The registry lock is
// held for a whole broadcast pass and never across a handshake read.
package room
