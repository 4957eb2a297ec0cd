package f2

import "github.com/codeready-toolchain/obsseq/pkg/stepmodel"

// StepDefinition holds the four ABBA science positions and the
// calibration proto-steps expanded from a smart flat and a smart arc
// (spec §4.4), with readMode/reads adjusted to match the final
// per-step exposure time.
type StepDefinition struct {
	A0, B0, B1, A1 stepmodel.ProtoStep[Config]
	Calibrations   []stepmodel.ProtoStep[Config]
}

// AbbaSteps returns the four science steps in ABBA order.
func (d StepDefinition) AbbaSteps() []stepmodel.ProtoStep[Config] {
	return []stepmodel.ProtoStep[Config]{d.A0, d.B0, d.B1, d.A1}
}

// AbbaCycle builds the nominal "ABBA Cycle" atom (spec §4.4).
func (d StepDefinition) AbbaCycle() stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]] {
	return stepmodel.NewProtoAtom("ABBA Cycle", d.AbbaSteps())
}

// NighttimeCalibrations builds the nominal "Nighttime Calibrations"
// atom (spec §4.4): flats then arcs, in the order supplied by
// Calibrations (the caller arranges flats-then-arcs when assembling
// StepDefinition).
func (d StepDefinition) NighttimeCalibrations() stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]] {
	return stepmodel.NewProtoAtom("Nighttime Calibrations", d.Calibrations)
}
