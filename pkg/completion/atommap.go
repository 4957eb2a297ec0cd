package completion

import (
	"fmt"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
)

// AtomMap is a multiset of completed atom fingerprints (spec §3's
// Completion::AtomMap), with each occurrence tagged by the visit it
// completed in so matchPast/matchCurrent (spec §4.6) can tell visits
// apart.
//
// AtomMap is an immutable value: every mutating-looking method returns
// a new AtomMap, leaving the receiver untouched, matching spec §4.3's
// functional `AtomMap::matchAtom(protoAtom) -> (AtomMap', matched)`
// signature.
type AtomMap[D comparable] struct {
	entries map[string]*atomEntry[D]
}

type atomEntry[D comparable] struct {
	match  stepmodel.AtomMatch[D]
	visits []uuid.UUID
}

// New returns an empty AtomMap.
func New[D comparable]() AtomMap[D] {
	return AtomMap[D]{entries: map[string]*atomEntry[D]{}}
}

func key[D comparable](match stepmodel.AtomMatch[D]) string {
	return fmt.Sprintf("%#v", match)
}

func (m AtomMap[D]) clone() AtomMap[D] {
	out := AtomMap[D]{entries: make(map[string]*atomEntry[D], len(m.entries))}
	for k, e := range m.entries {
		visits := make([]uuid.UUID, len(e.visits))
		copy(visits, e.visits)
		out.entries[k] = &atomEntry[D]{match: e.match, visits: visits}
	}
	return out
}

// Increment adds one occurrence of match completed in visit and
// returns the resulting map.
func (m AtomMap[D]) Increment(match stepmodel.AtomMatch[D], visit uuid.UUID) AtomMap[D] {
	out := m.clone()
	k := key(match)
	e, ok := out.entries[k]
	if !ok {
		e = &atomEntry[D]{match: match}
		out.entries[k] = e
	}
	e.visits = append(e.visits, visit)
	return out
}

// Count returns how many unconsumed occurrences of match remain.
func (m AtomMap[D]) Count(match stepmodel.AtomMatch[D]) int {
	if e, ok := m.entries[key(match)]; ok {
		return len(e.visits)
	}
	return 0
}

// Len returns the number of distinct atom fingerprints with at least
// one unconsumed occurrence.
func (m AtomMap[D]) Len() int { return len(m.entries) }

// MatchAtom implements spec §4.3's AtomMap::matchAtom: if match's
// fingerprint has an unconsumed occurrence in any visit, consume one
// and return (newMap, true); otherwise return (m, false) unchanged.
func (m AtomMap[D]) MatchAtom(match stepmodel.AtomMatch[D]) (AtomMap[D], bool) {
	out, _, ok := m.matchWhere(match, func(uuid.UUID) bool { return true })
	return out, ok
}

// MatchVisit consumes one occurrence of match completed specifically
// in visit, if present.
func (m AtomMap[D]) MatchVisit(match stepmodel.AtomMatch[D], visit uuid.UUID) (AtomMap[D], bool) {
	out, _, ok := m.matchWhere(match, func(v uuid.UUID) bool { return v == visit })
	return out, ok
}

// MatchExcept implements spec §4.6's matchPast: consumes one occurrence
// of match completed in any visit other than excludeVisit, returning
// that occurrence's visit id.
func (m AtomMap[D]) MatchExcept(match stepmodel.AtomMatch[D], excludeVisit uuid.UUID) (AtomMap[D], uuid.UUID, bool) {
	return m.matchWhere(match, func(v uuid.UUID) bool { return v != excludeVisit })
}

// Contains reports whether match has an unconsumed occurrence
// completed in visit, without consuming it.
func (m AtomMap[D]) Contains(match stepmodel.AtomMatch[D], visit uuid.UUID) bool {
	e, ok := m.entries[key(match)]
	if !ok {
		return false
	}
	for _, v := range e.visits {
		if v == visit {
			return true
		}
	}
	return false
}

func (m AtomMap[D]) matchWhere(match stepmodel.AtomMatch[D], pred func(uuid.UUID) bool) (AtomMap[D], uuid.UUID, bool) {
	k := key(match)
	e, ok := m.entries[k]
	if !ok {
		return m, uuid.UUID{}, false
	}
	for i, v := range e.visits {
		if !pred(v) {
			continue
		}
		out := m.clone()
		oe := out.entries[k]
		oe.visits = append(oe.visits[:i], oe.visits[i+1:]...)
		if len(oe.visits) == 0 {
			delete(out.entries, k)
		}
		return out, v, true
	}
	return m, uuid.UUID{}, false
}
