package f2

import (
	"testing"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onSlitOffsets() OffsetPattern {
	return OffsetPattern{
		{P: 0, Q: 0},
		{P: 0, Q: 10},
		{P: 0, Q: 10},
		{P: 0, Q: 0},
	}
}

func TestNewOffsetPatternRejectsWrongLength(t *testing.T) {
	_, err := NewOffsetPattern([]stepmodel.Offset{{P: 0, Q: 0}})
	assert.ErrorIs(t, err, ErrWrongOffsetCount)
}

func TestValidateRejectsNonPositiveExposure(t *testing.T) {
	err := Validate(0, onSlitOffsets(), stepmodel.TimeSpan(time.Minute))
	assert.ErrorIs(t, err, ErrNonPositiveExposure)
}

func TestValidateRejectsAllOffSlit(t *testing.T) {
	offsets := OffsetPattern{
		{P: 0, Q: 60}, {P: 0, Q: 60}, {P: 0, Q: -60}, {P: 0, Q: -60},
	}
	err := Validate(stepmodel.TimeSpan(time.Second), offsets, stepmodel.TimeSpan(time.Minute))
	assert.ErrorIs(t, err, ErrNoOnSlitExposure)
}

func TestValidateRejectsCycleTooLong(t *testing.T) {
	err := Validate(stepmodel.TimeSpan(time.Second), onSlitOffsets(), stepmodel.TimeSpan(MaxSciencePeriod))
	assert.ErrorIs(t, err, ErrCycleTooLong)
}

func TestValidateAccepts(t *testing.T) {
	err := Validate(stepmodel.TimeSpan(time.Second), onSlitOffsets(), stepmodel.TimeSpan(time.Minute))
	assert.NoError(t, err)
}

func TestAtomTrackerAbbaCompletesInOrder(t *testing.T) {
	tr := NewAbba()
	now := time.Now()
	assert.False(t, tr.Complete())
	tr.MatchScience(now)
	tr.MatchScience(now.Add(time.Minute))
	tr.MatchScience(now.Add(2 * time.Minute))
	assert.False(t, tr.Complete())
	tr.MatchScience(now.Add(3 * time.Minute))
	assert.True(t, tr.Complete())
}

func TestAtomTrackerCalibrationsCompleteWhenAllMatched(t *testing.T) {
	keys := []stepmodel.StepKey[Config]{
		{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepFlat}},
		{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepArc}},
	}
	tr := NewCalibrations(keys)
	assert.False(t, tr.Complete())
	assert.True(t, tr.MatchCalibration(keys[0], time.Now()))
	assert.False(t, tr.Complete())
	assert.True(t, tr.MatchCalibration(keys[1], time.Now()))
	assert.True(t, tr.Complete())
}

func TestAtomTrackerCalibrationsRejectsUnexpectedKey(t *testing.T) {
	keys := []stepmodel.StepKey[Config]{{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepFlat}}}
	tr := NewCalibrations(keys)
	other := stepmodel.StepKey[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepArc}}
	assert.False(t, tr.MatchCalibration(other, time.Now()))
}

func TestSequenceRecordCommitsAbbaCycleOnCompletion(t *testing.T) {
	steps := StepDefinition{
		A0: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}},
		B0: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}},
		B1: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}},
		A1: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}},
	}
	rec := NewSequenceRecord(steps)
	now := time.Now()
	sciKey := stepmodel.StepKey[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}}

	for i := 0; i < 4; i++ {
		rec.Next(true, sciKey, now.Add(time.Duration(i)*time.Minute))
	}
	assert.Equal(t, 1, rec.CompletedCycles())
}

func TestSequenceRecordKindSwitchStartsNewTracker(t *testing.T) {
	steps := StepDefinition{
		A0: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}},
		B0: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}},
		B1: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}},
		A1: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}},
		Calibrations: []stepmodel.ProtoStep[Config]{
			{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepFlat}},
		},
	}
	rec := NewSequenceRecord(steps)
	now := time.Now()
	sciKey := stepmodel.StepKey[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}}
	calKey := stepmodel.StepKey[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepFlat}}

	// Only two science steps before a gcal interrupts: the partial
	// ABBA cycle is abandoned (never committed) and a Calibrations
	// tracker starts.
	rec.Next(true, sciKey, now)
	rec.Next(true, sciKey, now.Add(time.Minute))
	rec.Next(false, calKey, now.Add(2*time.Minute))

	assert.Equal(t, 0, rec.CompletedCycles())
}

func TestSequenceRecordEndBlockEarlyStopsNextAtoms(t *testing.T) {
	rec := NewSequenceRecord(StepDefinition{})
	rec.EndBlockEarly()
	assert.True(t, rec.Stopped())
	atoms := rec.NextAtoms(time.Now(), stepmodel.TimeSpan(time.Minute), 100)
	assert.Empty(t, atoms)
}

func TestSequenceRecordResetVisitClearsState(t *testing.T) {
	rec := NewSequenceRecord(StepDefinition{})
	rec.EndBlockEarly()
	rec.ResetVisit()
	assert.False(t, rec.Stopped())
}

func TestRemainingAtomsInBlockFillsCyclesThenCalibration(t *testing.T) {
	now := time.Now()
	cycleEstimate := stepmodel.TimeSpan(10 * time.Minute)
	plan := remainingAtomsInBlock(now, nil, nil, cycleEstimate, 5)
	require.NotEmpty(t, plan)
	assert.Equal(t, NominalNighttimeCalibrations, plan[len(plan)-1].Kind)
	for _, s := range plan[:len(plan)-1] {
		assert.Equal(t, NominalAbbaCycle, s.Kind)
	}
}

func TestRemainingAtomsInBlockRespectsMaxCycles(t *testing.T) {
	now := time.Now()
	cycleEstimate := stepmodel.TimeSpan(time.Minute)
	plan := remainingAtomsInBlock(now, nil, nil, cycleEstimate, 3)
	cycles := 0
	for _, s := range plan {
		if s.Kind == NominalAbbaCycle {
			cycles++
		}
	}
	assert.LessOrEqual(t, cycles, 3)
}

func TestGeneratorEmitsFirstAbbaCycle(t *testing.T) {
	steps := StepDefinition{
		A0: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, InstrumentConfig: Config{ExposureTime: stepmodel.TimeSpan(time.Second)}},
		B0: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, InstrumentConfig: Config{ExposureTime: stepmodel.TimeSpan(time.Second)}},
		B1: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, InstrumentConfig: Config{ExposureTime: stepmodel.TimeSpan(time.Second)}},
		A1: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, InstrumentConfig: Config{ExposureTime: stepmodel.TimeSpan(time.Second)}},
	}
	rec := NewSequenceRecord(steps)
	calc := fakeCalc{}
	gen := NewGenerator(rec, uuid.New(), calc, stepmodel.TimeSpan(4*time.Second), 100, 100)

	atom, ok := gen.Next(time.Now())
	require.True(t, ok)
	assert.Len(t, atom.Steps, 4)
}

// TestGeneratorStopsAtGoalCycles drives a pure generation run (no
// folded execution history) to exhaustion and checks it terminates
// after yielding exactly goalCycles ABBA-cycle atoms, per spec §4.4's
// "generate() yields atoms until goalCycles are complete" — even
// though record.CompletedCycles() never advances without folded
// records, Generator tracks its own yielded cycles so Done() still
// fires.
func TestGeneratorStopsAtGoalCycles(t *testing.T) {
	steps := StepDefinition{
		A0: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, InstrumentConfig: Config{ExposureTime: stepmodel.TimeSpan(time.Second)}},
		B0: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, InstrumentConfig: Config{ExposureTime: stepmodel.TimeSpan(time.Second)}},
		B1: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, InstrumentConfig: Config{ExposureTime: stepmodel.TimeSpan(time.Second)}},
		A1: stepmodel.ProtoStep[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, InstrumentConfig: Config{ExposureTime: stepmodel.TimeSpan(time.Second)}},
	}
	const goalCycles = 2
	rec := NewSequenceRecord(steps)
	calc := fakeCalc{}
	gen := NewGenerator(rec, uuid.New(), calc, stepmodel.TimeSpan(4*time.Second), goalCycles, 1)

	cycles := 0
	now := time.Now()
	for {
		atom, ok := gen.Next(now)
		if !ok {
			break
		}
		if atom.Description == "ABBA Cycle" {
			cycles++
		}
	}

	assert.Equal(t, goalCycles, cycles)
	assert.True(t, gen.Done())
}

type fakeCalc struct{}

func (fakeCalc) EstimateStep(_ struct{}, _ *stepmodel.ProtoStep[Config], current stepmodel.ProtoStep[Config]) stepmodel.TimeSpan {
	return current.InstrumentConfig.ExposureTime
}
