package gmos

import (
	"github.com/codeready-toolchain/obsseq/pkg/gcal"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// KeyFunc derives a GMOS Config's smart-gcal lookup key (spec §4.2) as
// a point lookup at the config's central wavelength: this module does
// not ship Gemini's full wavelength-bucketed ranges, so low and high
// are always equal.
func KeyFunc(cfg Config, kind stepmodel.StepKind) (gcal.Key, error) {
	return gcal.Key{
		Instrument:     "GMOS",
		Disperser:      cfg.Grating,
		Filter:         cfg.Filter,
		FPU:            cfg.FPU,
		ObserveType:    kind,
		WavelengthLow:  cfg.CentralWave,
		WavelengthHigh: cfg.CentralWave,
	}, nil
}

// ConfigFor derives the concrete Config for one wavelength-block
// adjustment from a base Config (spec §4.5): the adjustment shifts the
// base's central wavelength by DeltaLambda.
func ConfigFor(base Config, adj stepmodel.Adjustment) Config {
	cfg := base
	cfg.CentralWave = base.CentralWave + adj.DeltaLambda
	return cfg
}

// DefaultFactory is the built-in ScienceStepFactory (spec §4.5):
// science proto-steps are derived directly from a base Config per
// adjustment; flat/arc proto-steps are resolved once per adjustment
// through a smart-gcal Expander rather than hand-built, so a caller's
// gcal table is the single source of truth for calibration-unit
// settings.
type DefaultFactory struct {
	Base     Config
	Expander gcal.Expander[Config]
}

// ScienceStep builds the nominal science proto-step for adjustment adj
// (spec §4.5): the adjustment's Q becomes the spatial offset, its
// DeltaLambda shifts the central wavelength.
func (f DefaultFactory) ScienceStep(adj stepmodel.Adjustment) stepmodel.ProtoStep[Config] {
	return stepmodel.ProtoStep[Config]{
		InstrumentConfig: ConfigFor(f.Base, adj),
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepScience},
		TelescopeConfig:  stepmodel.TelescopeConfig{Offset: stepmodel.Offset{Q: adj.Q}, Guide: stepmodel.GuideEnabled},
		ObserveClass:     stepmodel.ObserveClassScience,
	}
}

func (f DefaultFactory) flatPlaceholder(adj stepmodel.Adjustment) stepmodel.ProtoStep[Config] {
	return stepmodel.ProtoStep[Config]{
		InstrumentConfig: ConfigFor(f.Base, adj),
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepSmartGcalFlat},
		ObserveClass:     stepmodel.ObserveClassDayCal,
	}
}

// ExpectedCalKeys resolves adj's flat placeholder through the
// expander and returns the resulting concrete flat key(s) (a smart-gcal
// entry may expand to more than one flat at different lamp settings).
func (f DefaultFactory) ExpectedCalKeys(adj stepmodel.Adjustment) []stepmodel.StepKey[Config] {
	resolved, err := f.Expander.ExpandStep(f.flatPlaceholder(adj))
	if err != nil || len(resolved) == 0 {
		return nil
	}
	keys := make([]stepmodel.StepKey[Config], len(resolved))
	for i, s := range resolved {
		keys[i] = stepmodel.StepKey[Config]{InstrumentConfig: s.InstrumentConfig, StepConfig: s.StepConfig}
	}
	return keys
}

// CalStep rebuilds the concrete calibration proto-step for key, one of
// the keys ExpectedCalKeys(adj) returned.
func (f DefaultFactory) CalStep(adj stepmodel.Adjustment, key stepmodel.StepKey[Config]) stepmodel.ProtoStep[Config] {
	return stepmodel.ProtoStep[Config]{
		InstrumentConfig: key.InstrumentConfig,
		StepConfig:       key.StepConfig,
		ObserveClass:     stepmodel.ObserveClassDayCal,
	}
}

// ArcStep resolves a smart-gcal arc placeholder at config d through the
// expander. If the expander cannot resolve it, the unresolved
// placeholder is returned unchanged so the caller's downstream error
// handling (not this factory) surfaces the lookup failure.
func (f DefaultFactory) ArcStep(d Config) stepmodel.ProtoStep[Config] {
	placeholder := stepmodel.ProtoStep[Config]{
		InstrumentConfig: d,
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepSmartGcalArc},
		ObserveClass:     stepmodel.ObserveClassProgramCal,
	}
	resolved, err := f.Expander.ExpandStep(placeholder)
	if err != nil || len(resolved) == 0 {
		return placeholder
	}
	return resolved[0]
}
