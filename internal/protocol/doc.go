// Package protocol owns the chattest wire contract.
//
// Ownership boundary:
// - message variants and their code bytes
// - variant encode/decode on top of frame primitives
// - byte-per-character text codec
//
// Wire layout: 1-byte code, 4-byte big-endian length, payload. MessageFrom
// and Welcome payloads start with a 4-byte length of their first string; the
// second string fills the rest of the payload.
package protocol
