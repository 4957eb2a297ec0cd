package f2

import (
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// NominalAtom names which nominal atom kind remainingAtomsInBlock
// scheduled next.
type NominalAtom int

const (
	NominalAbbaCycle NominalAtom = iota
	NominalNighttimeCalibrations
)

// ScheduledAtom is one entry of the block-layout plan.
type ScheduledAtom struct {
	Kind NominalAtom
}

// remainingAtomsInBlock implements spec §4.4's block layout algorithm:
// it decides how many ABBA cycles fit before MaxVisitLength closes the
// block, and whether a mid-block calibration must be inserted.
//
// blockStart and pending are nil when absent (spec's Option<Interval>).
func remainingAtomsInBlock(
	when time.Time,
	blockStart *Interval,
	pending *Interval,
	cycleEstimate stepmodel.TimeSpan,
	maxCycles int,
) []ScheduledAtom {
	now := when
	if pending != nil && pending.End.After(now) {
		now = pending.End
	}
	if blockStart != nil && blockStart.End.After(now) {
		now = blockStart.End
	}

	var blockStartPrime time.Time
	switch {
	case blockStart != nil:
		blockStartPrime = blockStart.Start
	case pending != nil:
		blockStartPrime = pending.Start
	default:
		blockStartPrime = now
	}
	end := blockStartPrime.Add(MaxVisitLength)

	remaining := end.Sub(now)
	cycles := 0
	if cycleEstimate > 0 && remaining > 0 {
		cycles = int(remaining / time.Duration(cycleEstimate))
		if cycles > maxCycles {
			cycles = maxCycles
		}
		if cycles < 0 {
			cycles = 0
		}
	}

	var pendingSpan stepmodel.TimeSpan
	if pending != nil {
		pendingSpan = pending.TimeSpan()
	}
	scienceTime := stepmodel.TimeSpan(cycles)*cycleEstimate + pendingSpan

	if scienceTime < stepmodel.TimeSpan(MaxSciencePeriod) {
		var out []ScheduledAtom
		for i := 0; i < cycles; i++ {
			out = append(out, ScheduledAtom{Kind: NominalAbbaCycle})
		}
		if cycles > 0 || pending != nil {
			out = append(out, ScheduledAtom{Kind: NominalNighttimeCalibrations})
		}
		return out
	}

	// Mid-block calibration insertion.
	scienceStart := now
	if pending != nil {
		scienceStart = pending.Start
	}
	nominalCalTime := scienceStart.Add(time.Duration(scienceTime) / 2)

	fullPreCalCycles := 0
	if cycleEstimate > 0 {
		fullPreCalCycles = int(nominalCalTime.Sub(now) / time.Duration(cycleEstimate))
	}
	preCalCycles := fullPreCalCycles
	if cycleEstimate > 0 {
		remainder := nominalCalTime.Sub(now) - time.Duration(fullPreCalCycles)*time.Duration(cycleEstimate)
		if remainder >= time.Duration(cycleEstimate)/2 {
			preCalCycles++
		}
	}
	if preCalCycles > cycles {
		preCalCycles = cycles
	}
	if preCalCycles < 0 {
		preCalCycles = 0
	}
	postCalCycles := cycles - preCalCycles

	var out []ScheduledAtom
	for i := 0; i < preCalCycles; i++ {
		out = append(out, ScheduledAtom{Kind: NominalAbbaCycle})
	}
	out = append(out, ScheduledAtom{Kind: NominalNighttimeCalibrations})
	for i := 0; i < postCalCycles; i++ {
		out = append(out, ScheduledAtom{Kind: NominalAbbaCycle})
	}
	if postCalCycles > 0 {
		out = append(out, ScheduledAtom{Kind: NominalNighttimeCalibrations})
	}
	return out
}
