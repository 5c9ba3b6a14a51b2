// Package session owns the chattest connection transports.
//
// Ownership boundary:
// - blocking transport used for the name handshake
// - polling transport used once a member is in the room
// - read outcome classification and dial backoff
//
// A connection is owned by exactly one transport at a time; converting
// between them consumes the source handle.
package session
