package timeest

import "github.com/codeready-toolchain/obsseq/pkg/stepmodel"

// OverheadCalculator is the default Calculator (spec §4.7): every step
// costs its own exposure time plus a fixed base overhead, plus a
// reconfiguration overhead when the instrument setup changed from the
// prior step. The first step in a sequence (prior == nil) always pays
// the reconfiguration overhead, since the instrument must be configured
// from scratch.
//
// Exposure time lives inside the instrument-specific D, not in
// stepmodel.StepConfig, so OverheadCalculator takes accessor functions
// rather than reading a fixed field.
type OverheadCalculator[D any] struct {
	// BaseOverhead is charged on every step regardless of what changed.
	BaseOverhead stepmodel.TimeSpan
	// ReconfigOverhead is added on top of BaseOverhead when Reconfigured
	// reports a configuration change between the prior and current
	// step's instrument config (or there was no prior step).
	ReconfigOverhead stepmodel.TimeSpan
	// Exposure extracts the exposure time of one step's instrument
	// config.
	Exposure func(D) stepmodel.TimeSpan
	// Reconfigured reports whether current requires an instrument
	// reconfiguration relative to prior. Instrument packages supply
	// this, since only they know which fields of D matter (e.g. F2's
	// disperser/filter/FPU, GMOS's grating/filter/FPU).
	Reconfigured func(prior, current D) bool
}

// NewOverheadCalculator builds an OverheadCalculator from fixed base and
// reconfiguration overheads plus the instrument-supplied exposure
// accessor and change-detector.
func NewOverheadCalculator[D any](
	base, reconfig stepmodel.TimeSpan,
	exposure func(D) stepmodel.TimeSpan,
	reconfigured func(prior, current D) bool,
) OverheadCalculator[D] {
	return OverheadCalculator[D]{
		BaseOverhead:     base,
		ReconfigOverhead: reconfig,
		Exposure:         exposure,
		Reconfigured:     reconfigured,
	}
}

// EstimateStep implements Calculator[struct{}, D]; the static argument
// is unused since the overheads are fixed on the calculator itself.
func (c OverheadCalculator[D]) EstimateStep(_ struct{}, prior *stepmodel.ProtoStep[D], current stepmodel.ProtoStep[D]) stepmodel.TimeSpan {
	total := c.Exposure(current.InstrumentConfig) + c.BaseOverhead
	if prior == nil || c.Reconfigured(prior.InstrumentConfig, current.InstrumentConfig) {
		total += c.ReconfigOverhead
	}
	return total
}
