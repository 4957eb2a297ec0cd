// Package completion implements spec §4.3: folding recorded
// steps/atoms into a queryable AtomMap per sequence (acquisition,
// science) so the generator can skip already-executed work.
package completion

import (
	"github.com/codeready-toolchain/obsseq/pkg/seqid"
	"github.com/google/uuid"
)

// Context is the (visitID, sequenceType) pair whose change triggers a
// reset of both matchers (spec §4.3).
type Context struct {
	VisitID      uuid.UUID
	SequenceType seqid.SequenceType
}

// State is the per-observation completion tracker: one Builder for
// acquisition, one for science (spec §4.3's "acq and sci are separate").
type State[D comparable] struct {
	Acq *Builder[D]
	Sci *Builder[D]
	ctx *Context
}

// NewState returns a fresh completion tracker with both matchers in
// the Reset state.
func NewState[D comparable]() *State[D] {
	return &State[D]{
		Acq: NewBuilder[D](RoleAcquisition),
		Sci: NewBuilder[D](RoleScience),
	}
}

// resetTriggered reports whether ctx differs from the last context
// seen, per spec §4.3: "any of (a) first transition into a new visit
// id, or (b) sequence-type switch, triggers reset on both acquisition
// and science matchers before processing the new step."
func (s *State[D]) resetTriggered(ctx Context) bool {
	return s.ctx == nil || s.ctx.VisitID != ctx.VisitID || s.ctx.SequenceType != ctx.SequenceType
}

// Fold applies one recorded step to the tracker: resetting both
// matchers if the visit or sequence type changed since the last fold,
// then routing the step to the acquisition or science builder.
// expectedCount is the number of steps the nominal atom the step
// belongs to is expected to have — supplied by the caller, which knows
// the nominal sequence the step is being matched against.
func (s *State[D]) Fold(rec StepRecord[D], expectedCount int) {
	ctx := Context{VisitID: rec.VisitID, SequenceType: rec.SequenceType}
	if s.resetTriggered(ctx) {
		s.Acq.Reset()
		s.Sci.Reset()
	}
	s.ctx = &ctx

	builder := s.builderFor(rec.SequenceType)
	builder.SetVisit(rec.VisitID)
	builder.Next(rec.AtomID, expectedCount, rec.key())
}

// builderFor returns the Acq or Sci builder for the given sequence type.
func (s *State[D]) builderFor(t seqid.SequenceType) *Builder[D] {
	if t == seqid.SequenceTypeAcquisition {
		return s.Acq
	}
	return s.Sci
}

// ResetVisit forces a reset of both matchers, for callers that learn
// about a new visit before the first step record in it arrives (spec
// §4.4's resetVisit).
func (s *State[D]) ResetVisit() {
	s.Acq.Reset()
	s.Sci.Reset()
	s.ctx = nil
}
