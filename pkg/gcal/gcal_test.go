package gcal

import (
	"errors"
	"testing"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Disperser string
	Exposure  stepmodel.TimeSpan
}

func keyFn(c testConfig, kind stepmodel.StepKind) (Key, error) {
	return Key{Instrument: "TEST", Disperser: c.Disperser, ObserveType: kind}, nil
}

func TestExpandStepNonSmartGcalIsNoop(t *testing.T) {
	exp := NewTableExpander(map[Key][]Entry[testConfig]{}, keyFn)
	step := stepmodel.ProtoStep[testConfig]{
		InstrumentConfig: testConfig{Disperser: "R400"},
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepScience},
	}
	out, err := exp.ExpandStep(step)
	require.NoError(t, err)
	assert.Equal(t, []stepmodel.ProtoStep[testConfig]{step}, out)
}

func TestExpandStepMissingMappingFails(t *testing.T) {
	exp := NewTableExpander(map[Key][]Entry[testConfig]{}, keyFn)
	step := stepmodel.ProtoStep[testConfig]{
		InstrumentConfig: testConfig{Disperser: "R400"},
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepSmartGcalFlat},
	}
	_, err := exp.ExpandStep(step)
	require.Error(t, err)
	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Contains(t, err.Error(), "missing Smart GCAL mapping")
}

func TestExpandStepResolvesMultipleEntries(t *testing.T) {
	key := Key{Instrument: "TEST", Disperser: "R400", ObserveType: stepmodel.StepSmartGcalFlat}
	table := map[Key][]Entry[testConfig]{
		key: {
			{Gcal: stepmodel.GcalConfig{Lamp: stepmodel.GcalLampQH}, ExposureTime: 10,
				Adjust: func(c testConfig) testConfig { c.Exposure = 10; return c }},
			{Gcal: stepmodel.GcalConfig{Lamp: stepmodel.GcalLampIRHigh}, ExposureTime: 20,
				Adjust: func(c testConfig) testConfig { c.Exposure = 20; return c }},
		},
	}
	exp := NewTableExpander(table, keyFn)
	step := stepmodel.ProtoStep[testConfig]{
		InstrumentConfig: testConfig{Disperser: "R400"},
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepSmartGcalFlat},
	}
	out, err := exp.ExpandStep(step)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, stepmodel.StepFlat, out[0].StepConfig.Kind)
	assert.False(t, out[0].StepConfig.IsSmartGcal())
	assert.Equal(t, stepmodel.TimeSpan(10), out[0].InstrumentConfig.Exposure)
	assert.Equal(t, stepmodel.TimeSpan(20), out[1].InstrumentConfig.Exposure)
}

func TestExpandStepIsMemoizedPerKey(t *testing.T) {
	calls := 0
	counting := func(c testConfig) testConfig {
		calls++
		return c
	}
	key := Key{Instrument: "TEST", Disperser: "R400", ObserveType: stepmodel.StepSmartGcalArc}
	table := map[Key][]Entry[testConfig]{key: {{Gcal: stepmodel.GcalConfig{Lamp: stepmodel.GcalLampArArc}, Adjust: counting}}}
	exp := NewTableExpander(table, keyFn)

	step := stepmodel.ProtoStep[testConfig]{
		InstrumentConfig: testConfig{Disperser: "R400"},
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepSmartGcalArc},
	}
	_, err := exp.ExpandStep(step)
	require.NoError(t, err)
	_, err = exp.ExpandStep(step)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second lookup for the same key should hit the cache")
}

func TestExpandAtomPartialFailureIsolated(t *testing.T) {
	key := Key{Instrument: "TEST", Disperser: "R400", ObserveType: stepmodel.StepSmartGcalFlat}
	table := map[Key][]Entry[testConfig]{key: {{Gcal: stepmodel.GcalConfig{}}}}
	exp := NewTableExpander(table, keyFn)

	good := stepmodel.ProtoAtom[stepmodel.ProtoStep[testConfig]]{}
	good = stepmodel.NewProtoAtom("good", []stepmodel.ProtoStep[testConfig]{
		{InstrumentConfig: testConfig{Disperser: "R400"}, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepSmartGcalFlat}},
	})
	bad := stepmodel.NewProtoAtom("bad", []stepmodel.ProtoStep[testConfig]{
		{InstrumentConfig: testConfig{Disperser: "B600"}, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepSmartGcalFlat}},
	})

	results := exp.ExpandSequence([]stepmodel.ProtoAtom[stepmodel.ProtoStep[testConfig]]{good, bad})
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}
