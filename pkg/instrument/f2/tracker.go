package f2

import (
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// Interval is a closed time interval, used to accumulate the span an
// in-progress atom has been observed over.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Union returns the smallest interval containing both i and other.
func (i Interval) Union(other Interval) Interval {
	u := i
	if other.Start.Before(u.Start) {
		u.Start = other.Start
	}
	if other.End.After(u.End) {
		u.End = other.End
	}
	return u
}

// TimeSpan returns the interval's duration.
func (i Interval) TimeSpan() stepmodel.TimeSpan {
	return stepmodel.TimeSpan(i.End.Sub(i.Start))
}

// abbaPhase is the position reached within one ABBA cycle.
type abbaPhase int

const (
	phaseA0 abbaPhase = iota
	phaseB0
	phaseB1
	phaseA1
	phaseEnd
)

// AtomTracker is the per-in-progress-atom state machine of spec §4.4:
// either mid-way through an ABBA cycle, or mid-way through a
// calibration atom. The zero value is not meaningful; use NewAbba or
// NewCalibrations.
type AtomTracker struct {
	abba         bool
	phase        abbaPhase
	interval     Interval
	expectedCals []stepmodel.StepKey[Config]
}

// NewAbba starts a tracker at the A0 position.
func NewAbba() *AtomTracker {
	return &AtomTracker{abba: true, phase: phaseA0}
}

// NewCalibrations starts a calibrations tracker expecting the given
// steps, in order, to be matched (order does not matter for matching,
// only for determining completeness — spec §4.4's "removes the first
// matching expected step").
func NewCalibrations(expected []stepmodel.StepKey[Config]) *AtomTracker {
	cp := make([]stepmodel.StepKey[Config], len(expected))
	copy(cp, expected)
	return &AtomTracker{abba: false, expectedCals: cp}
}

// IsAbba reports whether this tracker is mid-ABBA-cycle.
func (t *AtomTracker) IsAbba() bool { return t.abba }

// Complete reports whether the tracker has matched everything it
// expects: End phase for Abba, an empty expected list for
// Calibrations.
func (t *AtomTracker) Complete() bool {
	if t.abba {
		return t.phase == phaseEnd
	}
	return len(t.expectedCals) == 0
}

// Interval returns the union of time intervals observed so far.
func (t *AtomTracker) Interval() Interval { return t.interval }

// foldTs widens t.interval to also cover ts. The zero Interval has no
// observations yet, so the first fold must replace it rather than
// union with it (a zero Start/End would otherwise drag Start back to
// year 1).
func (t *AtomTracker) foldTs(ts time.Time) {
	if t.interval.Start.IsZero() && t.interval.End.IsZero() {
		t.interval = Interval{Start: ts, End: ts}
		return
	}
	t.interval = Interval{Start: ts, End: ts}.Union(t.interval)
}

// MatchScience folds a recorded science step into an Abba tracker at
// time ts, per spec §4.4: a mismatched phase resets to A0 and
// re-processes the step from scratch (so a spurious extra step
// restarts the match).
func (t *AtomTracker) MatchScience(ts time.Time) {
	if !t.abba {
		return
	}
	switch t.phase {
	case phaseA0:
		t.phase = phaseB0
	case phaseB0:
		t.phase = phaseB1
	case phaseB1:
		t.phase = phaseA1
	case phaseA1:
		t.phase = phaseEnd
	case phaseEnd:
		// Spurious extra science step after End: restart from A0,
		// counting this step as the new cycle's first.
		t.phase = phaseB0
	}
	t.foldTs(ts)
}

// MatchCalibration folds a recorded gcal step matching key into a
// Calibrations tracker at time ts, removing the first matching
// expected entry.
func (t *AtomTracker) MatchCalibration(key stepmodel.StepKey[Config], ts time.Time) bool {
	if t.abba {
		return false
	}
	for i, exp := range t.expectedCals {
		if exp == key {
			t.expectedCals = append(t.expectedCals[:i], t.expectedCals[i+1:]...)
			t.foldTs(ts)
			return true
		}
	}
	return false
}
