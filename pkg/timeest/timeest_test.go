package timeest

import (
	"testing"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/seqid"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummyConfig struct {
	Exposure stepmodel.TimeSpan
	Grating  string
}

func testCalc() OverheadCalculator[dummyConfig] {
	return NewOverheadCalculator(
		stepmodel.TimeSpan(10*time.Second),
		stepmodel.TimeSpan(30*time.Second),
		func(c dummyConfig) stepmodel.TimeSpan { return c.Exposure },
		func(prior, current dummyConfig) bool { return prior.Grating != current.Grating },
	)
}

func protoStep(exposure time.Duration, grating string) stepmodel.ProtoStep[dummyConfig] {
	return stepmodel.ProtoStep[dummyConfig]{
		InstrumentConfig: dummyConfig{Exposure: stepmodel.TimeSpan(exposure), Grating: grating},
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepScience},
	}
}

func TestEstimateStepFirstStepAlwaysPaysReconfig(t *testing.T) {
	calc := testCalc()
	step := protoStep(100*time.Second, "B600")
	got := calc.EstimateStep(struct{}{}, nil, step)
	assert.Equal(t, stepmodel.TimeSpan(100*time.Second+10*time.Second+30*time.Second), got)
}

func TestEstimateStepSameConfigSkipsReconfig(t *testing.T) {
	calc := testCalc()
	prior := protoStep(100*time.Second, "B600")
	current := protoStep(50*time.Second, "B600")
	got := calc.EstimateStep(struct{}{}, &prior, current)
	assert.Equal(t, stepmodel.TimeSpan(50*time.Second+10*time.Second), got)
}

func TestEstimateStepChangedGratingPaysReconfig(t *testing.T) {
	calc := testCalc()
	prior := protoStep(100*time.Second, "B600")
	current := protoStep(50*time.Second, "R400")
	got := calc.EstimateStep(struct{}{}, &prior, current)
	assert.Equal(t, stepmodel.TimeSpan(50*time.Second+10*time.Second+30*time.Second), got)
}

func TestEstimateTotalThreadsLastAcrossSteps(t *testing.T) {
	calc := testCalc()
	steps := []stepmodel.ProtoStep[dummyConfig]{
		protoStep(100*time.Second, "B600"),
		protoStep(100*time.Second, "B600"), // no reconfig
		protoStep(50*time.Second, "R400"),  // reconfig
	}
	total, last := EstimateTotal[struct{}](calc, struct{}{}, Last[dummyConfig]{}, steps)

	expected := stepmodel.TimeSpan(100*time.Second+10*time.Second+30*time.Second) +
		stepmodel.TimeSpan(100*time.Second+10*time.Second) +
		stepmodel.TimeSpan(50*time.Second+10*time.Second+30*time.Second)
	assert.Equal(t, expected, total)
	assert.Equal(t, expected, last.Elapsed)
	require.NotNil(t, last.Step)
	assert.Equal(t, "R400", last.Step.InstrumentConfig.Grating)
}

func TestEstimateTotalEmptyStepsIsNoop(t *testing.T) {
	calc := testCalc()
	prior := Last[dummyConfig]{Elapsed: stepmodel.TimeSpan(5 * time.Second)}
	total, last := EstimateTotal[struct{}](calc, struct{}{}, prior, nil)
	assert.Equal(t, stepmodel.TimeSpan(0), total)
	assert.Equal(t, prior, last)
}

func TestBuildAtomAssignsDeterministicIDs(t *testing.T) {
	calc := testCalc()
	namespace := uuid.New()
	steps := []stepmodel.ProtoStep[dummyConfig]{
		protoStep(100*time.Second, "B600"),
		protoStep(50*time.Second, "B600"),
	}

	atom, last := BuildAtom[struct{}](calc, struct{}{}, namespace, seqid.SequenceTypeScience, "test atom", 2, 0, steps, Last[dummyConfig]{})

	wantAtomID := seqid.AtomID(namespace, seqid.SequenceTypeScience, 2)
	assert.Equal(t, wantAtomID, atom.ID)
	require.Len(t, atom.Steps, 2)
	assert.Equal(t, seqid.StepID(wantAtomID, 0), atom.Steps[0].ID)
	assert.Equal(t, seqid.StepID(wantAtomID, 1), atom.Steps[1].ID)
	assert.Equal(t, "test atom", atom.Description)
	assert.Equal(t, last.Elapsed, atom.Steps[0].Estimate+atom.Steps[1].Estimate)
}

func TestBuildAtomIsDeterministic(t *testing.T) {
	calc := testCalc()
	namespace := uuid.New()
	steps := []stepmodel.ProtoStep[dummyConfig]{protoStep(100*time.Second, "B600")}

	atom1, _ := BuildAtom[struct{}](calc, struct{}{}, namespace, seqid.SequenceTypeAcquisition, "a", 0, 0, steps, Last[dummyConfig]{})
	atom2, _ := BuildAtom[struct{}](calc, struct{}{}, namespace, seqid.SequenceTypeAcquisition, "a", 0, 0, steps, Last[dummyConfig]{})

	assert.Equal(t, atom1.ID, atom2.ID)
	assert.Equal(t, atom1.Steps[0].ID, atom2.Steps[0].ID)
}

func TestBuildAtomStepIndexBaseOffsetsStepIDs(t *testing.T) {
	calc := testCalc()
	namespace := uuid.New()
	steps := []stepmodel.ProtoStep[dummyConfig]{protoStep(10*time.Second, "B600")}

	atom, _ := BuildAtom[struct{}](calc, struct{}{}, namespace, seqid.SequenceTypeScience, "", 0, 7, steps, Last[dummyConfig]{})

	wantAtomID := seqid.AtomID(namespace, seqid.SequenceTypeScience, 0)
	assert.Equal(t, seqid.StepID(wantAtomID, 7), atom.Steps[0].ID)
}
