package stepmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustmentsZipsToLCM(t *testing.T) {
	adjs := Adjustments([]Wavelength{1, 2, 3}, []float64{10, -10})
	require.Len(t, adjs, 6)
	assert.Equal(t, Adjustment{DeltaLambda: 1, Q: 10}, adjs[0])
	assert.Equal(t, Adjustment{DeltaLambda: 2, Q: -10}, adjs[1])
	assert.Equal(t, Adjustment{DeltaLambda: 3, Q: 10}, adjs[2])
	assert.Equal(t, Adjustment{DeltaLambda: 1, Q: -10}, adjs[3])
}

func TestAdjustmentsEmptyInputsSubstituteZero(t *testing.T) {
	adjs := Adjustments(nil, []float64{5})
	require.Len(t, adjs, 1)
	assert.Equal(t, Wavelength(0), adjs[0].DeltaLambda)
	assert.Equal(t, 5.0, adjs[0].Q)
}

func TestProtoAtomPanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() {
		NewProtoAtom[int]("empty", nil)
	})
}

func TestProtoAtomStepsAreCopied(t *testing.T) {
	a := NewProtoAtom("x", []int{1, 2, 3})
	steps := a.Steps()
	steps[0] = 99
	assert.Equal(t, []int{1, 2, 3}, a.Steps())
}

type dummyConfig struct {
	Exposure int
	Grating  string
}

func TestProtoStepMatches(t *testing.T) {
	base := ProtoStep[dummyConfig]{
		InstrumentConfig: dummyConfig{Exposure: 10, Grating: "R400"},
		StepConfig:       StepConfig{Kind: StepScience},
		TelescopeConfig:  TelescopeConfig{Offset: Offset{P: 0, Q: 15}},
		ObserveClass:     ObserveClassScience,
		Breakpoint:       true,
	}
	other := base
	other.Breakpoint = false // breakpoints ignored by Matches

	assert.True(t, base.Matches(other, Equal[dummyConfig]))

	changed := other.WithInstrumentConfig(dummyConfig{Exposure: 20, Grating: "R400"})
	assert.False(t, base.Matches(changed, Equal[dummyConfig]))
}

func TestMatchOfOrderedEquality(t *testing.T) {
	mk := func(exp int) ProtoStep[dummyConfig] {
		return ProtoStep[dummyConfig]{
			InstrumentConfig: dummyConfig{Exposure: exp},
			StepConfig:       StepConfig{Kind: StepScience},
		}
	}
	a := NewProtoAtom("a", []ProtoStep[dummyConfig]{mk(1), mk(2)})
	b := NewProtoAtom("b", []ProtoStep[dummyConfig]{mk(1), mk(2)})
	c := NewProtoAtom("c", []ProtoStep[dummyConfig]{mk(2), mk(1)})

	assert.Equal(t, MatchOf(a), MatchOf(b))
	assert.NotEqual(t, MatchOf(a), MatchOf(c))
}

func TestAdjustChainAppliesInOrder(t *testing.T) {
	setExposure := func(d dummyConfig) dummyConfig { d.Exposure = 30; return d }
	setGrating := func(d dummyConfig) dummyConfig { d.Grating = "B600"; return d }

	out := Apply(dummyConfig{}, Adjust[dummyConfig](setExposure), Adjust[dummyConfig](setGrating))
	assert.Equal(t, dummyConfig{Exposure: 30, Grating: "B600"}, out)
}
