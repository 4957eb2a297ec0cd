package sequence

import (
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/completion"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
)

// Stream is a pull-based lazy sequence, spec §5's "iterator that holds
// the fold state by value and advances it on each pull": calling it
// again after it returns ok=false is undefined (callers stop pulling).
type Stream[A any] func() (A, bool)

// AtomResult is the A in spec §6's ProtoExecutionConfig<S, A> once the
// pipeline has reached the atom-builder stage: either a ready Atom or
// a per-atom error (e.g. a smart-gcal lookup failure isolated to this
// atom, spec §7's partial-failure semantics).
type AtomResult[D any] struct {
	Atom *stepmodel.Atom[D]
	Err  error
}

// ProtoExecutionConfig is spec §6's
// `ProtoExecutionConfig<S, A> = (static, acquisition: Stream<A>, science: Stream<A>)`.
type ProtoExecutionConfig[S any, D any] struct {
	Static      S
	Acquisition Stream[AtomResult[D]]
	Science     Stream[AtomResult[D]]
}

// Source is the uniform shape both pkg/instrument/f2.Generator and
// pkg/instrument/gmos.Generator are adapted to: produce the next batch
// of already id-assigned, time-estimated atoms (a batch, since GMOS may
// zip an arc atom alongside a science atom in one pull), or ok=false
// once the generator has nothing more to offer right now.
type Source[D any] interface {
	Next(when time.Time) ([]stepmodel.Atom[D], bool)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc[D any] func(when time.Time) ([]stepmodel.Atom[D], bool)

func (f SourceFunc[D]) Next(when time.Time) ([]stepmodel.Atom[D], bool) { return f(when) }

// matchOf builds the AtomMatch key for an already-built Atom, the same
// (instrumentConfig, stepConfig) projection ProtoAtom-stage matching
// uses (spec §3's AtomMatch definition); ids do not participate in
// matching, so deriving it post-build is equivalent to deriving it
// pre-build.
func matchOf[D comparable](atom stepmodel.Atom[D]) stepmodel.AtomMatch[D] {
	m := make(stepmodel.AtomMatch[D], len(atom.Steps))
	for i, s := range atom.Steps {
		m[i] = stepmodel.StepKey[D]{InstrumentConfig: s.InstrumentConfig, StepConfig: s.StepConfig}
	}
	return m
}

// FilterCompleted wraps src with spec §4.6's completion filter: each
// nominal atom produced by src is looked up in builder's completed
// AtomMap; if already matched there (executed in a past visit or
// earlier in the current one), it is consumed and suppressed — the
// stream skips straight to the next nominal atom instead of yielding
// it.
func FilterCompleted[D comparable](src Source[D], builder *completion.Builder[D]) Source[D] {
	return SourceFunc[D](func(when time.Time) ([]stepmodel.Atom[D], bool) {
		for {
			atoms, ok := src.Next(when)
			if !ok {
				return nil, false
			}
			out := atoms[:0]
			for _, atom := range atoms {
				if builder.MatchAtom(matchOf(atom)) {
					continue // already executed: suppress
				}
				out = append(out, atom)
			}
			if len(out) > 0 {
				return out, true
			}
			// Every atom in this batch was already completed; pull
			// the next nominal batch instead of yielding an empty one.
		}
	})
}

// FilterCompletedVisit wraps src with spec §4.6's two-phase science
// completion filter, applied per emitted batch: F2 always yields
// single-atom batches, while GMOS's arc-zipping pipe (spec §4.5) may
// zip an arc atom alongside the science atom in the same batch.
// scienceIndex identifies which atom in a batch is the science atom
// matchPast/matchCurrent is evaluated against; every other atom in the
// batch is treated as a paired calibration atom (GMOS's arc) subject
// to the same visit's arc-pair suppression rule.
//
// For each batch: matchPast first tries to consume the science atom
// from a visit other than currentVisit. If it matches visit v, every
// paired atom in the batch is checked (and consumed) against v too —
// if all of them were also completed in v, the whole batch is
// suppressed ("the pair is suppressed entirely"); otherwise the
// science atom is dropped but the unpaired atoms are still emitted
// (the caller still needs, e.g., a standalone arc). If the science
// atom has no past match, matchCurrent is tried against currentVisit;
// a match there suppresses the whole batch outright (already emitted
// earlier in this visit). Only if neither matches does the batch pass
// through unchanged.
func FilterCompletedVisit[D comparable](
	src Source[D],
	builder *completion.Builder[D],
	currentVisit uuid.UUID,
	scienceIndex func(atoms []stepmodel.Atom[D]) int,
) Source[D] {
	return SourceFunc[D](func(when time.Time) ([]stepmodel.Atom[D], bool) {
		for {
			atoms, ok := src.Next(when)
			if !ok {
				return nil, false
			}
			if len(atoms) == 0 {
				continue
			}

			sIdx := scienceIndex(atoms)
			scienceMatch := matchOf(atoms[sIdx])

			if visit, matched := builder.MatchPast(scienceMatch, currentVisit); matched {
				allPaired := true
				for i, atom := range atoms {
					if i == sIdx {
						continue
					}
					if !builder.ConsumeInVisit(matchOf(atom), visit) {
						allPaired = false
					}
				}
				if allPaired {
					continue // whole batch already satisfied in a past visit
				}
				var remaining []stepmodel.Atom[D]
				for i, atom := range atoms {
					if i != sIdx {
						remaining = append(remaining, atom)
					}
				}
				if len(remaining) > 0 {
					return remaining, true
				}
				continue
			}

			if builder.MatchCurrent(scienceMatch, currentVisit) {
				continue // already emitted earlier in the current visit
			}
			return atoms, true
		}
	})
}

// Flatten turns a batch-yielding Source into a single-atom Stream,
// e.g. to drive a ProtoExecutionConfig's per-atom AtomResult stream.
func Flatten[D any](src Source[D]) Stream[AtomResult[D]] {
	var queue []stepmodel.Atom[D]
	return func() (AtomResult[D], bool) {
		for len(queue) == 0 {
			atoms, ok := src.Next(time.Now())
			if !ok {
				return AtomResult[D]{}, false
			}
			queue = atoms
		}
		atom := queue[0]
		queue = queue[1:]
		return AtomResult[D]{Atom: &atom}, true
	}
}
