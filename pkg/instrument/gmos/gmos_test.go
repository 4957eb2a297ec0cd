package gmos

import (
	"testing"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalsForRejectsNonScienceTarget(t *testing.T) {
	_, err := GoalsFor(TargetSpectroPhotometric, nil, stepmodel.TimeSpan(time.Minute), 10)
	assert.ErrorIs(t, err, ErrSpectroPhotometricNotImplemented)
}

func TestGoalsForSpreadsEvenlyWhenUnderCapacity(t *testing.T) {
	adjustments := []stepmodel.Adjustment{{Q: 0}, {Q: 1}, {Q: 2}}
	// maxExpPerBlock = 3600s / 60s = 60 per block; 3*60=180 >= exposureCount(5)
	goals, err := GoalsFor(TargetScience, adjustments, stepmodel.TimeSpan(60*time.Second), 5)
	require.NoError(t, err)
	require.Len(t, goals, 3)
	total := 0
	for _, g := range goals {
		total += g.Total
	}
	assert.Equal(t, 5, total)
	// first 5%3=2 adjustments get the extra exposure
	assert.Equal(t, 2, goals[0].Total)
	assert.Equal(t, 2, goals[1].Total)
	assert.Equal(t, 1, goals[2].Total)
}

func TestGoalsForFillsFullBlocksWhenOverCapacity(t *testing.T) {
	adjustments := []stepmodel.Adjustment{{Q: 0}, {Q: 1}}
	// maxExpPerBlock = 60; exposureCount = 200 > size*maxExpPerBlock(120)
	goals, err := GoalsFor(TargetScience, adjustments, stepmodel.TimeSpan(60*time.Second), 200)
	require.NoError(t, err)
	total := 0
	for _, g := range goals {
		assert.Equal(t, 60, g.PerBlock)
		total += g.Total
	}
	assert.Equal(t, 200, total)
}

var testKey = stepmodel.StepKey[Config]{StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepArc}}

func TestWavelengthBlockMissingCalsAtInitiallyAll(t *testing.T) {
	b := NewWavelengthBlock(Goal{PerBlock: 10, Total: 10}, []stepmodel.StepKey[Config]{testKey})
	missing := b.MissingCalsAt(time.Now())
	assert.Equal(t, 1, missing[testKey])
}

func TestWavelengthBlockHasValidCalibrationsAfterRecording(t *testing.T) {
	b := NewWavelengthBlock(Goal{PerBlock: 10, Total: 10}, []stepmodel.StepKey[Config]{testKey})
	now := time.Now()
	b.Record(b.Adjustment, testKey, false, now)
	assert.True(t, b.HasValidCalibrations(now))
	assert.False(t, b.HasValidCalibrations(now.Add(CalValidityPeriod+time.Minute)))
}

func TestWavelengthBlockRecordOnMismatchSettles(t *testing.T) {
	b := NewWavelengthBlock(Goal{PerBlock: 10, Total: 10}, nil)
	now := time.Now()
	b.Record(b.Adjustment, stepmodel.StepKey[Config]{}, true, now)
	assert.Equal(t, 1, len(b.science))

	other := stepmodel.Adjustment{Q: 999}
	b.Record(other, stepmodel.StepKey[Config]{}, true, now)
	assert.Equal(t, 1, b.completed, "mismatched adjustment should settle and roll the prior science count into completed")
}

func TestRemainingScienceExposuresAtRespectsBlockCap(t *testing.T) {
	b := NewWavelengthBlock(Goal{PerBlock: 2, Total: 100}, nil)
	now := time.Now()
	b.Record(b.Adjustment, stepmodel.StepKey[Config]{}, true, now)
	n := b.RemainingScienceExposuresAt(now, stepmodel.TimeSpan(time.Minute))
	assert.Equal(t, 1, n)
}

func TestLocationForFirstIndexIsAfter(t *testing.T) {
	assert.Equal(t, CalLocationAfter, LocationFor(0))
	assert.Equal(t, CalLocationBefore, LocationFor(1))
}

func TestArcSeenDeduplicatesWithinVisit(t *testing.T) {
	seen := NewArcSeen(uuid.New())
	cfg := Config{Grating: "B600"}
	assert.True(t, seen.NeedsArc(cfg))
	seen.Observe(cfg)
	assert.False(t, seen.NeedsArc(cfg))
}

func TestArcSeenResetsOnNewVisit(t *testing.T) {
	seen := NewArcSeen(uuid.New())
	cfg := Config{Grating: "B600"}
	seen.Observe(cfg)
	seen.ResetVisit(uuid.New())
	assert.True(t, seen.NeedsArc(cfg))
}

func TestZipAppendsArcWhenNeeded(t *testing.T) {
	seen := NewArcSeen(uuid.New())
	sciStep := stepmodel.ProtoStep[Config]{InstrumentConfig: Config{Grating: "B600"}}
	atom := stepmodel.NewProtoAtom("Science", []stepmodel.ProtoStep[Config]{sciStep})

	zipped := Zip(seen, atom, 0, func(d Config) stepmodel.ProtoStep[Config] {
		return stepmodel.ProtoStep[Config]{InstrumentConfig: d, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepArc}}
	})
	require.NotNil(t, zipped.Arc)
	assert.Equal(t, CalLocationAfter, zipped.Location)

	zipped2 := Zip(seen, atom, 0, func(d Config) stepmodel.ProtoStep[Config] {
		return stepmodel.ProtoStep[Config]{InstrumentConfig: d}
	})
	assert.Nil(t, zipped2.Arc, "arc already observed for this config in this visit should not repeat")
}

func TestAcquisitionGeneratorEmitsInitialThenRepeatsSlit(t *testing.T) {
	steps := AcquisitionSteps{}
	g := NewAcquisitionGenerator(steps)
	first := g.Next()
	assert.Equal(t, "Acquisition - Initial", first.Description)
	second := g.Next()
	assert.Equal(t, "Acquisition - Slit", second.Description)
	third := g.Next()
	assert.Equal(t, "Acquisition - Slit", third.Description)
}

func TestAcquisitionGeneratorResetVisitRestartsAtInitial(t *testing.T) {
	g := NewAcquisitionGenerator(AcquisitionSteps{})
	g.Next()
	g.Next()
	g.ResetVisit()
	assert.Equal(t, "Acquisition - Initial", g.Next().Description)
}

type fakeFactory struct{}

func (fakeFactory) ScienceStep(adj stepmodel.Adjustment) stepmodel.ProtoStep[Config] {
	return stepmodel.ProtoStep[Config]{InstrumentConfig: Config{ExposureTime: stepmodel.TimeSpan(time.Minute)}}
}
func (fakeFactory) CalStep(adj stepmodel.Adjustment, key stepmodel.StepKey[Config]) stepmodel.ProtoStep[Config] {
	return stepmodel.ProtoStep[Config]{StepConfig: key.StepConfig}
}
func (fakeFactory) ArcStep(d Config) stepmodel.ProtoStep[Config] {
	return stepmodel.ProtoStep[Config]{InstrumentConfig: d, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepArc}}
}
func (fakeFactory) ExpectedCalKeys(adj stepmodel.Adjustment) []stepmodel.StepKey[Config] {
	return []stepmodel.StepKey[Config]{testKey}
}

type fakeCalc struct{}

func (fakeCalc) EstimateStep(_ struct{}, _ *stepmodel.ProtoStep[Config], current stepmodel.ProtoStep[Config]) stepmodel.TimeSpan {
	return current.InstrumentConfig.ExposureTime
}

func TestGeneratorProducesAtomsUntilGoalMet(t *testing.T) {
	goals := []Goal{{Adjustment: stepmodel.Adjustment{Q: 0}, PerBlock: 2, Total: 2}}
	gen := NewGenerator(goals, fakeFactory{}, uuid.New(), uuid.New(), fakeCalc{}, stepmodel.TimeSpan(time.Minute))

	atoms, ok := gen.Next(time.Now())
	require.True(t, ok)
	require.NotEmpty(t, atoms)
}
