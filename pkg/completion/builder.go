package completion

import (
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
)

// Role distinguishes the acquisition and science matchers, which reset
// differently (spec §4.3).
type Role int

const (
	RoleAcquisition Role = iota
	RoleScience
)

type progress[D comparable] struct {
	atomID        uuid.UUID
	expectedCount int
	collected     []stepmodel.StepKey[D]
}

// Builder is the per-sequence (acquisition or science) state machine of
// spec §4.3: it folds recorded steps into a Reset/InProgress automaton
// and accumulates fully-matched atoms into an AtomMap.
//
// Builder is mutated in place by Next/Reset — unlike AtomMap, which is
// an immutable value — because it is the caller-owned fold state for
// one observation's completion tracking, analogous to how
// pkg/session.Manager owns and mutates its session map directly rather
// than threading a new Manager through every call.
type Builder[D comparable] struct {
	role      Role
	idBase    uint16
	completed AtomMap[D]
	current   *progress[D] // nil means Reset state
	visit     uuid.UUID    // the visit Next is currently folding steps under
}

// SetVisit records which visit subsequent Next calls belong to, so a
// committed atom can be attributed to the visit it completed in (spec
// §4.6's matchPast/matchCurrent). State.Fold resets both builders
// before a visit change is ever folded in, so every Next call between
// two Resets belongs to one visit — callers only need to call this
// once per visit, not per step.
func (b *Builder[D]) SetVisit(v uuid.UUID) { b.visit = v }

// NewBuilder returns a Builder in the Reset state with an empty
// completed map.
func NewBuilder[D comparable](role Role) *Builder[D] {
	return &Builder[D]{role: role, completed: New[D]()}
}

// IDBase is the current id-base counter (spec §6): it increments every
// time an acquisition Builder resets, so acquisition atom ids minted
// after a reset never collide with ids minted before any earlier
// reset. It is always zero for a science Builder.
func (b *Builder[D]) IDBase() uint16 { return b.idBase }

// closeCurrent commits the in-progress atom into completed if it is
// fully matched, and clears current either way.
func (b *Builder[D]) closeCurrent() {
	if b.current == nil {
		return
	}
	if len(b.current.collected) == b.current.expectedCount {
		b.completed = b.completed.Increment(stepmodel.AtomMatch[D](b.current.collected), b.visit)
	}
	b.current = nil
}

// Next folds one recorded step into the builder (spec §4.3's
// transition function):
//
//	Reset -> InProgress(aid, expectedCount, [step])
//	InProgress(a, n, acc) with aid == a -> append step
//	InProgress(a, n, acc) with aid != a -> close previous, start new
func (b *Builder[D]) Next(aid uuid.UUID, expectedCount int, step stepmodel.StepKey[D]) {
	if b.current == nil {
		b.current = &progress[D]{atomID: aid, expectedCount: expectedCount, collected: []stepmodel.StepKey[D]{step}}
		return
	}
	if b.current.atomID == aid {
		b.current.collected = append(b.current.collected, step)
		return
	}
	b.closeCurrent()
	b.current = &progress[D]{atomID: aid, expectedCount: expectedCount, collected: []stepmodel.StepKey[D]{step}}
}

// Reset applies spec §4.3's reset rule for this builder's role:
//
//   - Acquisition: discards any in-progress partial atom (never commits
//     it) and increments the id-base counter.
//   - Science: closes (commits) the in-progress atom if fully matched,
//     otherwise discards it; the id-base is untouched.
func (b *Builder[D]) Reset() {
	switch b.role {
	case RoleAcquisition:
		b.current = nil
		b.idBase++
	case RoleScience:
		b.closeCurrent()
	}
}

// Build returns the completed AtomMap, closing a complete in-progress
// atom or discarding a partial one — without mutating the builder, so
// it is safe to call mid-fold to inspect current state.
func (b *Builder[D]) Build() AtomMap[D] {
	if b.current != nil && len(b.current.collected) == b.current.expectedCount {
		return b.completed.Increment(stepmodel.AtomMatch[D](b.current.collected), b.visit)
	}
	return b.completed
}

// MatchAtom consumes one occurrence of match from the completed map if
// present, regardless of which visit completed it (spec §4.3's
// "generator consumes completions atomically per atom").
func (b *Builder[D]) MatchAtom(match stepmodel.AtomMatch[D]) bool {
	next, ok := b.completed.MatchAtom(match)
	if ok {
		b.completed = next
	}
	return ok
}

// MatchCurrent implements spec §4.6's matchCurrent: consumes an
// occurrence of match completed in currentVisit, if any.
func (b *Builder[D]) MatchCurrent(match stepmodel.AtomMatch[D], currentVisit uuid.UUID) bool {
	next, ok := b.completed.MatchVisit(match, currentVisit)
	if ok {
		b.completed = next
	}
	return ok
}

// MatchPast implements spec §4.6's matchPast: consumes an occurrence
// of match completed in any visit other than currentVisit, returning
// that occurrence's visit id.
func (b *Builder[D]) MatchPast(match stepmodel.AtomMatch[D], currentVisit uuid.UUID) (uuid.UUID, bool) {
	next, visit, ok := b.completed.MatchExcept(match, currentVisit)
	if ok {
		b.completed = next
	}
	return visit, ok
}

// ConsumeInVisit consumes match's occurrence completed in visit, if
// present — used by the arc-pair suppression rule (spec §4.6) to check
// and consume a paired arc atom's completion in the same visit a
// science atom matched past in.
func (b *Builder[D]) ConsumeInVisit(match stepmodel.AtomMatch[D], visit uuid.UUID) bool {
	next, ok := b.completed.MatchVisit(match, visit)
	if ok {
		b.completed = next
	}
	return ok
}
