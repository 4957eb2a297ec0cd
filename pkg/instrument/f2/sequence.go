package f2

import (
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// SequenceRecord is the top-level per-observation Flamingos-2 state
// (spec §4.4).
type SequenceRecord struct {
	steps           StepDefinition
	current         *AtomTracker
	block           *Interval
	pending         *Interval
	stop            bool
	completedCycles int
}

// NewSequenceRecord starts a fresh record for the given step
// definition.
func NewSequenceRecord(steps StepDefinition) *SequenceRecord {
	return &SequenceRecord{steps: steps}
}

// Stopped reports whether SequenceCommand::Stop has been folded in.
func (r *SequenceRecord) Stopped() bool { return r.stop }

// CompletedCycles is the number of ABBA cycles committed so far.
func (r *SequenceRecord) CompletedCycles() int { return r.completedCycles }

// Next folds one recorded step into the record's tracker, per spec
// §4.4's transition table. isScience distinguishes science vs. gcal steps;
// calKey identifies which calibration step matched (ignored for
// science steps).
func (r *SequenceRecord) Next(isScience bool, calKey stepmodel.StepKey[Config], ts time.Time) {
	switch {
	case r.current == nil:
		r.startTrackerFor(isScience, calKey, ts)
	case r.current.IsAbba() && isScience:
		r.current.MatchScience(ts)
	case r.current.IsAbba() && !isScience:
		r.commitCurrent()
		r.current = NewCalibrations(r.expectedCalKeys())
		r.current.MatchCalibration(calKey, ts)
	case !r.current.IsAbba() && !isScience:
		if !r.current.MatchCalibration(calKey, ts) {
			return
		}
	case !r.current.IsAbba() && isScience:
		r.commitCurrent()
		r.current = NewAbba()
		r.current.MatchScience(ts)
	}
	r.completion()
}

func (r *SequenceRecord) startTrackerFor(isScience bool, calKey stepmodel.StepKey[Config], ts time.Time) {
	if isScience {
		r.current = NewAbba()
		r.current.MatchScience(ts)
		return
	}
	r.current = NewCalibrations(r.expectedCalKeys())
	r.current.MatchCalibration(calKey, ts)
}

func (r *SequenceRecord) expectedCalKeys() []stepmodel.StepKey[Config] {
	steps := r.steps.Calibrations
	keys := make([]stepmodel.StepKey[Config], len(steps))
	for i, s := range steps {
		keys[i] = stepmodel.StepKey[Config]{InstrumentConfig: s.InstrumentConfig, StepConfig: s.StepConfig}
	}
	return keys
}

// completion commits the current tracker if it has just become
// complete (spec §4.4's `completion()`).
func (r *SequenceRecord) completion() {
	if r.current == nil || !r.current.Complete() {
		return
	}
	r.commitCurrent()
	r.current = nil
}

// commitCurrent applies the effect of a completed tracker without
// clearing it (used both from completion() and when a tracker is
// abandoned mid-cycle by a kind switch — spec §4.4 only commits
// *complete* trackers, so this is a no-op unless Complete() holds).
func (r *SequenceRecord) commitCurrent() {
	if r.current == nil || !r.current.Complete() {
		return
	}
	if r.current.IsAbba() {
		iv := r.current.Interval()
		if r.pending == nil {
			r.pending = &iv
		} else {
			u := r.pending.Union(iv)
			r.pending = &u
		}
		r.completedCycles++
	} else {
		r.pending = nil
		iv := r.current.Interval()
		if r.block == nil {
			r.block = &iv
		} else {
			u := r.block.Union(iv)
			r.block = &u
		}
	}
}

// EndBlockEarly sets the stop flag (caused by a recorded
// SequenceCommand::Stop).
func (r *SequenceRecord) EndBlockEarly() { r.stop = true }

// ResetVisit clears all in-progress state on a new visit.
func (r *SequenceRecord) ResetVisit() {
	r.current = nil
	r.block = nil
	r.pending = nil
	r.stop = false
}

// NextAtoms computes the next batch of nominal atoms to emit, given
// the current time and a cap on ABBA cycles per call, applying spec
// §4.4's remainingAtomsInBlock layout.
func (r *SequenceRecord) NextAtoms(when time.Time, cycleEstimate stepmodel.TimeSpan, maxCycles int) []stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]] {
	if r.stop {
		return nil
	}
	plan := remainingAtomsInBlock(when, r.block, r.pending, cycleEstimate, maxCycles)
	out := make([]stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]], len(plan))
	for i, s := range plan {
		switch s.Kind {
		case NominalAbbaCycle:
			out[i] = r.steps.AbbaCycle()
		case NominalNighttimeCalibrations:
			out[i] = r.steps.NighttimeCalibrations()
		}
	}
	return out
}
