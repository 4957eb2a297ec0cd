// Package timeest implements the stateful time-estimate calculation and
// atom construction of spec §4.7: turning a description plus a list of
// ProtoSteps into an Atom with assigned ids and per-step time
// estimates.
package timeest

import (
	"github.com/codeready-toolchain/obsseq/pkg/seqid"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/google/uuid"
)

// Last holds whatever a Calculator needs to remember about the
// previous step in order to price the next one (e.g. the previous
// instrument config, to compute a reconfiguration overhead). The
// per-sequence configuration that never changes step to step is not
// held here; it is passed to the Calculator as its static argument.
type Last[D any] struct {
	Step    *stepmodel.ProtoStep[D]
	Elapsed stepmodel.TimeSpan
}

// Calculator is the external contract spec §4.7 names
// TimeEstimateCalculator<S, D>.
type Calculator[S any, D any] interface {
	// EstimateStep prices one step given the calculator's static config
	// and the prior step (nil for the first step in the sequence).
	EstimateStep(static S, prior *stepmodel.ProtoStep[D], current stepmodel.ProtoStep[D]) stepmodel.TimeSpan
}

// EstimateTotal sums the estimate of every step in steps, threading
// Last through each call the way spec §4.7's `estimateTotalNel`
// state-monad does.
func EstimateTotal[S any, D any](calc Calculator[S, D], static S, prior Last[D], steps []stepmodel.ProtoStep[D]) (stepmodel.TimeSpan, Last[D]) {
	var total stepmodel.TimeSpan
	for i := range steps {
		var priorStep *stepmodel.ProtoStep[D]
		if i == 0 {
			priorStep = prior.Step
		} else {
			priorStep = &steps[i-1]
		}
		total += calc.EstimateStep(static, priorStep, steps[i])
	}
	last := Last[D]{Elapsed: prior.Elapsed + total}
	if len(steps) > 0 {
		s := steps[len(steps)-1]
		last.Step = &s
	} else {
		last.Step = prior.Step
	}
	return total, last
}

// BuildAtom consumes (description, atomIndex, stepIndexBase, steps) and
// produces an Atom[D] plus the advanced Last[D] state, per spec §4.7:
//
//  1. price every step via the Calculator, advancing state after each;
//  2. derive atomId = seqid.AtomID(namespace, sequenceType, atomIndex);
//  3. derive each stepId = seqid.StepID(atomId, stepIndexBase+i);
//  4. emit the Atom.
func BuildAtom[S any, D any](
	calc Calculator[S, D],
	static S,
	namespace uuid.UUID,
	sequenceType seqid.SequenceType,
	description string,
	atomIndex int32,
	stepIndexBase int32,
	steps []stepmodel.ProtoStep[D],
	prior Last[D],
) (stepmodel.Atom[D], Last[D]) {
	atomID := seqid.AtomID(namespace, sequenceType, atomIndex)

	outSteps := make([]stepmodel.Step[D], len(steps))
	last := prior
	for i, step := range steps {
		var priorStep *stepmodel.ProtoStep[D]
		if i == 0 {
			priorStep = last.Step
		} else {
			priorStep = &steps[i-1]
		}
		estimate := calc.EstimateStep(static, priorStep, step)
		outSteps[i] = stepmodel.Step[D]{
			ID:              seqid.StepID(atomID, stepIndexBase+int32(i)),
			InstrumentConfig: step.InstrumentConfig,
			StepConfig:      step.StepConfig,
			TelescopeConfig: step.TelescopeConfig,
			Estimate:        estimate,
			ObserveClass:    step.ObserveClass,
			Breakpoint:      step.Breakpoint,
		}
		last.Elapsed += estimate
		s := step
		last.Step = &s
	}

	return stepmodel.Atom[D]{ID: atomID, Description: description, Steps: outSteps}, last
}
