// Package visibility maintains, for every player, the set of other
// players the server has already told them about — the source of truth
// for enter/leave diffs broadcast each tick. The design is grounded on
// the reverse-visibility-index broadcast pattern retrieved from
// udisondev/la2go (known_by is that project's per-object observer cache),
// turning disconnect cost from O(N) into O(degree).
package visibility

import "github.com/cgrimes21/dyewars/internal/ids"

// Tracker holds the bidirectional known-player index.
type Tracker struct {
	knownPlayers map[ids.PlayerID]map[ids.PlayerID]struct{}
	knownBy      map[ids.PlayerID]map[ids.PlayerID]struct{}

	// scratch buffers reused across Update calls to avoid per-call
	// allocation; safe because Update is only ever called from the single
	// game-thread goroutine. The slices returned by Update alias these
	// buffers and are only valid until the next Update call.
	enteredScratch map[ids.PlayerID]struct{}
	leftScratch    map[ids.PlayerID]struct{}
	enteredBuf     []ids.PlayerID
	leftBuf        []ids.PlayerID
}

// New builds an empty tracker.
func New() *Tracker {
	return &Tracker{
		knownPlayers:   make(map[ids.PlayerID]map[ids.PlayerID]struct{}),
		knownBy:        make(map[ids.PlayerID]map[ids.PlayerID]struct{}),
		enteredScratch: make(map[ids.PlayerID]struct{}),
		leftScratch:    make(map[ids.PlayerID]struct{}),
	}
}

// Join registers observer so it has an (initially empty) known set. Safe
// to call multiple times.
func (t *Tracker) Join(observer ids.PlayerID) {
	if _, ok := t.knownPlayers[observer]; !ok {
		t.knownPlayers[observer] = make(map[ids.PlayerID]struct{})
	}
	if _, ok := t.knownBy[observer]; !ok {
		t.knownBy[observer] = make(map[ids.PlayerID]struct{})
	}
}

// Update computes the enter/leave diff between observer's current known
// set and candidates, applies it to both indices, and returns the two
// diff sets. The returned slices are the tracker's reused scratch
// buffers: they are overwritten by the next Update call, so callers that
// need them longer must copy them first.
func (t *Tracker) Update(observer ids.PlayerID, candidates map[ids.PlayerID]struct{}) (entered, left []ids.PlayerID) {
	t.Join(observer)
	known := t.knownPlayers[observer]

	for k := range t.enteredScratch {
		delete(t.enteredScratch, k)
	}
	for k := range t.leftScratch {
		delete(t.leftScratch, k)
	}

	for c := range candidates {
		if _, ok := known[c]; !ok {
			t.enteredScratch[c] = struct{}{}
		}
	}
	for k := range known {
		if _, ok := candidates[k]; !ok {
			t.leftScratch[k] = struct{}{}
		}
	}

	t.enteredBuf = t.enteredBuf[:0]
	t.leftBuf = t.leftBuf[:0]

	for e := range t.enteredScratch {
		known[e] = struct{}{}
		t.Join(e)
		t.knownBy[e][observer] = struct{}{}
		t.enteredBuf = append(t.enteredBuf, e)
	}
	for l := range t.leftScratch {
		delete(known, l)
		if by, ok := t.knownBy[l]; ok {
			delete(by, observer)
		}
		t.leftBuf = append(t.leftBuf, l)
	}
	return t.enteredBuf, t.leftBuf
}

// RemovePlayer drops id from every index it participates in, in
// O(degree(id)) time: only the players who know id, and the players id
// knows, are touched.
func (t *Tracker) RemovePlayer(id ids.PlayerID) {
	for a := range t.knownBy[id] {
		if known, ok := t.knownPlayers[a]; ok {
			delete(known, id)
		}
	}
	for b := range t.knownPlayers[id] {
		if by, ok := t.knownBy[b]; ok {
			delete(by, id)
		}
	}
	delete(t.knownPlayers, id)
	delete(t.knownBy, id)
}

// ObserversOf returns a copy of the set of players who currently know
// about id — the knownBy index that makes RemovePlayer O(degree).
// Callers that need to notify everyone watching a departing player must
// capture this before calling RemovePlayer, since RemovePlayer erases it.
func (t *Tracker) ObserversOf(id ids.PlayerID) []ids.PlayerID {
	by, ok := t.knownBy[id]
	if !ok {
		return nil
	}
	out := make([]ids.PlayerID, 0, len(by))
	for observer := range by {
		out = append(out, observer)
	}
	return out
}

// Knows reports whether observer currently knows about target, for tests
// asserting the bidirectional invariant.
func (t *Tracker) Knows(observer, target ids.PlayerID) bool {
	known, ok := t.knownPlayers[observer]
	if !ok {
		return false
	}
	_, ok = known[target]
	return ok
}

// KnownSet returns a copy of observer's current known set, for tests and
// the "post-state equals candidate set" invariant.
func (t *Tracker) KnownSet(observer ids.PlayerID) map[ids.PlayerID]struct{} {
	out := make(map[ids.PlayerID]struct{})
	for k := range t.knownPlayers[observer] {
		out[k] = struct{}{}
	}
	return out
}
