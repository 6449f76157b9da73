// Package ids defines the small set of identifier types shared across
// the simulation, network, and protocol layers, kept in one leaf package
// so none of them has to depend on another just to name an id.
package ids

// PlayerID uniquely identifies a player for the server's lifetime. Zero
// is reserved to mean "no player".
type PlayerID uint64

// NoPlayer is the reserved "none" sentinel.
const NoPlayer PlayerID = 0

// ClientID uniquely identifies a TCP connection. Distinct namespace from
// PlayerID; a ClientID is freed on close and never reused.
type ClientID uint64
