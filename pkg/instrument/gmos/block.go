package gmos

import (
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// WavelengthBlock is the per-wavelength-dither accumulator of spec
// §4.5: it tracks recorded science and calibration timestamps for one
// adjustment, and decides how many more science exposures remain valid
// before calibrations expire.
type WavelengthBlock struct {
	Adjustment stepmodel.Adjustment
	goal       Goal
	steps      []stepmodel.StepKey[Config] // expected cal steps with multiplicity
	science    []time.Time
	cal        map[stepmodel.StepKey[Config]][]time.Time
	completed  int
}

// NewWavelengthBlock starts a fresh, unrecorded block for one
// adjustment.
func NewWavelengthBlock(goal Goal, expectedCals []stepmodel.StepKey[Config]) *WavelengthBlock {
	return &WavelengthBlock{
		Adjustment: goal.Adjustment,
		goal:       goal,
		steps:      expectedCals,
		cal:        make(map[stepmodel.StepKey[Config]][]time.Time),
	}
}

// CalibrationExpiration is the earliest time any recorded calibration
// in this block expires: min(all cal timestamps) + CalValidityPeriod.
// The zero time means no calibration has been recorded yet.
func (b *WavelengthBlock) CalibrationExpiration() time.Time {
	var earliest time.Time
	for _, times := range b.cal {
		for _, t := range times {
			if earliest.IsZero() || t.Before(earliest) {
				earliest = t
			}
		}
	}
	if earliest.IsZero() {
		return time.Time{}
	}
	return earliest.Add(CalValidityPeriod)
}

// countValidAt counts timestamps for key still valid (within
// CalValidityPeriod) at t.
func (b *WavelengthBlock) countValidAt(key stepmodel.StepKey[Config], t time.Time) int {
	n := 0
	for _, ts := range b.cal[key] {
		if !t.After(ts.Add(CalValidityPeriod)) {
			n++
		}
	}
	return n
}

// MissingCalsAt returns, for each (step, requiredCount) this block's
// steps expect, the shortfall against still-valid recorded instances at
// t.
func (b *WavelengthBlock) MissingCalsAt(t time.Time) map[stepmodel.StepKey[Config]]int {
	required := make(map[stepmodel.StepKey[Config]]int)
	for _, k := range b.steps {
		required[k]++
	}
	missing := make(map[stepmodel.StepKey[Config]]int)
	for key, req := range required {
		have := b.countValidAt(key, t)
		if have < req {
			missing[key] = req - have
		}
	}
	return missing
}

// HasValidCalibrations reports whether MissingCalsAt(t) is empty.
func (b *WavelengthBlock) HasValidCalibrations(t time.Time) bool {
	return len(b.MissingCalsAt(t)) == 0
}

// ScienceCount is the number of recorded science timestamps for which
// HasValidCalibrations held.
func (b *WavelengthBlock) ScienceCount() int {
	n := 0
	for _, t := range b.science {
		if b.HasValidCalibrations(t) {
			n++
		}
	}
	return n
}

// RemainingScienceExposuresAt implements spec §4.5's
// remainingScienceExposuresAt.
func (b *WavelengthBlock) RemainingScienceExposuresAt(t time.Time, expTime stepmodel.TimeSpan) int {
	scienceCount := b.ScienceCount()
	byBlockCap := b.goal.PerBlock - scienceCount
	byTotalGoal := b.goal.Total - (b.completed + scienceCount)

	expiration := b.CalibrationExpiration()
	if expiration.IsZero() {
		// No calibration recorded yet: the ones still to take are taken
		// at t, so their validity window starts at t.
		expiration = t.Add(CalValidityPeriod)
	}
	byValidity := 0
	if expTime > 0 {
		byValidity = int(expiration.Sub(t) / time.Duration(expTime))
	}

	n := byBlockCap
	if byTotalGoal < n {
		n = byTotalGoal
	}
	if byValidity < n {
		n = byValidity
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Settle clears recorded science and calibration timestamps and rolls
// ScienceCount into completed, per spec §4.5's `settle()`.
func (b *WavelengthBlock) Settle() {
	b.completed += b.ScienceCount()
	b.science = nil
	b.cal = make(map[stepmodel.StepKey[Config]][]time.Time)
}

// matches reports whether key (instrument config + wavelength/offset
// adjustment) belongs to this block.
func (b *WavelengthBlock) matches(adj stepmodel.Adjustment) bool {
	return adj == b.Adjustment
}

// Record folds one recorded step into the block, per spec §4.5's
// `record(stepRecord)`: if adj doesn't match this block, Settle (close
// it) first; otherwise append to science or cal by kind.
func (b *WavelengthBlock) Record(adj stepmodel.Adjustment, key stepmodel.StepKey[Config], isScience bool, ts time.Time) {
	if !b.matches(adj) {
		b.Settle()
		return
	}
	if isScience {
		b.science = append(b.science, ts)
		return
	}
	b.cal[key] = append(b.cal[key], ts)
}
