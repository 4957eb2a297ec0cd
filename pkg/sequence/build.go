package sequence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/completion"
	"github.com/codeready-toolchain/obsseq/pkg/config"
	"github.com/codeready-toolchain/obsseq/pkg/gcal"
	"github.com/codeready-toolchain/obsseq/pkg/instrument/f2"
	"github.com/codeready-toolchain/obsseq/pkg/instrument/gmos"
	"github.com/codeready-toolchain/obsseq/pkg/seqid"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/codeready-toolchain/obsseq/pkg/timeest"
	"github.com/google/uuid"
)

// Smart-gcal placeholder exposure times: the caller has no real Gemini
// smart-gcal dataset to draw from, so each observation's Build derives
// a table scoped only to the keys its own instrument config can ever
// need (spec §4.2 still treats it as a genuine lookup, just over a
// minimal table instead of a product-wide one).
const (
	f2FlatExposure   = stepmodel.TimeSpan(1 * time.Second)
	f2ArcExposure    = stepmodel.TimeSpan(10 * time.Second)
	gmosFlatExposure = stepmodel.TimeSpan(1 * time.Second)
	gmosArcExposure  = stepmodel.TimeSpan(20 * time.Second)

	// f2MaxCyclesPerCall caps how many ABBA cycles one NextAtoms pull
	// may schedule, bounding the work (and the size of one generated
	// page) of a single Source.Next call.
	f2MaxCyclesPerCall = 4
)

// Build assembles spec §6's Generator::Result for one observation: the
// acquisition+science ProtoExecutionConfig, wired from smart-gcal
// expansion through the two-phase completion filter, behind the
// instrument-erased Handle surface internal/httpapi drives.
func Build(params config.GeneratorParams, commit seqid.CommitHash, visit uuid.UUID) (Handle, *Error) {
	switch params.Instrument {
	case config.InstrumentF2:
		return buildF2(params, commit, visit)
	case config.InstrumentGMOSNorth, config.InstrumentGMOSSouth:
		return buildGMOS(params, commit, visit)
	default:
		return nil, InvalidData(fmt.Sprintf("unknown instrument %q", params.Instrument))
	}
}

// BuildF2 is the typed (non-erased) counterpart of Build for
// Flamingos-2 callers that already know D = f2.Config.
func BuildF2(params config.GeneratorParams, commit seqid.CommitHash, visit uuid.UUID) (*Success[f2.Config], *Error) {
	h, err := buildF2(params, commit, visit)
	if err != nil {
		return nil, err
	}
	return toSuccess(h, params, visit), nil
}

// BuildGMOS is the typed counterpart of Build for GMOS callers.
func BuildGMOS(params config.GeneratorParams, commit seqid.CommitHash, visit uuid.UUID) (*Success[gmos.Config], *Error) {
	h, err := buildGMOS(params, commit, visit)
	if err != nil {
		return nil, err
	}
	return toSuccess(h, params, visit), nil
}

// toSuccess re-derives the Success[D] value a typed caller wants from
// an already-built instrumentHandle: a single filtered snapshot of the
// streams at the given visit, rather than the handle's
// re-filter-per-pull behavior (callers of the typed surface drive
// their own Flatten/Stream directly and have no later visit change to
// react to).
func toSuccess[D comparable](h *instrumentHandle[D], params config.GeneratorParams, visit uuid.UUID) *Success[D] {
	sci := FilterCompletedVisit[D](h.rawSci, h.completion.Sci, visit, h.scienceIndex)
	acq := FilterCompletedVisit[D](h.rawAcq, h.completion.Acq, visit, h.scienceIndex)
	return &Success[D]{
		ObservationID: h.observationID,
		ITCResult:     params.ITC,
		Config: ProtoExecutionConfig[config.GeneratorParams, D]{
			Static:      params,
			Acquisition: Flatten(acq),
			Science:     Flatten(sci),
		},
	}
}

func singleIndex[D any](atoms []stepmodel.Atom[D]) int { return 0 }

func jsonUnmarshaler[D any]() func(json.RawMessage) (D, error) {
	return func(raw json.RawMessage) (D, error) {
		var d D
		err := json.Unmarshal(raw, &d)
		return d, err
	}
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// buildF2 assembles the Flamingos-2 side of spec §6: deriving the
// nominal ABBA step definition and a scoped smart-gcal table from
// params, then wiring the generator through the visit-aware completion
// filter.
func buildF2(params config.GeneratorParams, commit seqid.CommitHash, visit uuid.UUID) (*instrumentHandle[f2.Config], *Error) {
	raw := params.F2
	if raw == nil {
		return nil, InvalidData("f2 instrument requires an f2 config block")
	}

	exposureTime := stepmodel.TimeSpan(time.Duration(params.ITC.ExposureTimeMillis) * time.Millisecond)

	readMode := f2.DefaultReadMode(exposureTime)
	if raw.ExplicitReadMode != nil {
		parsed, err := f2.ParseReadMode(*raw.ExplicitReadMode)
		if err != nil {
			return nil, InvalidData(err.Error())
		}
		readMode = parsed
	}
	reads := f2.DefaultReads(readMode)
	if raw.ExplicitReads != nil {
		reads = *raw.ExplicitReads
	}

	base := f2.Config{
		Disperser:    raw.Disperser,
		Filter:       raw.Filter,
		FPU:          raw.FPU,
		ReadMode:     readMode,
		Reads:        reads,
		ExposureTime: exposureTime,
	}

	offsets := make([]stepmodel.Offset, len(raw.Offsets))
	for i, o := range raw.Offsets {
		offsets[i] = stepmodel.Offset{P: o.P, Q: o.Q}
	}
	pattern, err := f2.NewOffsetPattern(offsets)
	if err != nil {
		return nil, SequenceUnavailable(params.ObservationID, err)
	}

	abbaSteps := make([]stepmodel.ProtoStep[f2.Config], 4)
	for i, off := range pattern {
		abbaSteps[i] = stepmodel.ProtoStep[f2.Config]{
			InstrumentConfig: base,
			StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepScience},
			TelescopeConfig:  stepmodel.TelescopeConfig{Offset: off, Guide: stepmodel.GuideEnabled},
			ObserveClass:     stepmodel.ObserveClassScience,
		}
	}

	calc := defaultF2Calculator()
	cycleEstimate, _ := timeest.EstimateTotal[struct{}, f2.Config](calc, struct{}{}, timeest.Last[f2.Config]{}, abbaSteps)

	if err := f2.Validate(exposureTime, pattern, cycleEstimate); err != nil {
		return nil, SequenceUnavailable(params.ObservationID, err)
	}

	expander := gcal.NewTableExpander(f2GcalTable(base), f2.KeyFunc)

	flats, err := expander.ExpandStep(stepmodel.ProtoStep[f2.Config]{
		InstrumentConfig: base,
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepSmartGcalFlat},
		ObserveClass:     stepmodel.ObserveClassDayCal,
	})
	if err != nil {
		return nil, SequenceUnavailable(params.ObservationID, err)
	}
	arcs, err := expander.ExpandStep(stepmodel.ProtoStep[f2.Config]{
		InstrumentConfig: base,
		StepConfig:       stepmodel.StepConfig{Kind: stepmodel.StepSmartGcalArc},
		ObserveClass:     stepmodel.ObserveClassProgramCal,
	})
	if err != nil {
		return nil, SequenceUnavailable(params.ObservationID, err)
	}

	calibrations := make([]stepmodel.ProtoStep[f2.Config], 0, len(flats)+len(arcs))
	calibrations = append(calibrations, flats...)
	calibrations = append(calibrations, arcs...)

	stepDef := f2.StepDefinition{A0: abbaSteps[0], B0: abbaSteps[1], B1: abbaSteps[2], A1: abbaSteps[3], Calibrations: calibrations}

	namespace := params.Namespace(commit)
	record := f2.NewSequenceRecord(stepDef)
	exposuresPerCycle := 0
	for _, off := range pattern {
		if f2.IsOnSlit(off) {
			exposuresPerCycle++
		}
	}
	goalCycles := ceilDiv(params.ITC.ExposureCount, exposuresPerCycle)
	gen := f2.NewGenerator(record, namespace, calc, cycleEstimate, goalCycles, f2MaxCyclesPerCall)

	comp := completion.NewState[f2.Config]()
	comp.Acq.SetVisit(visit)
	comp.Sci.SetVisit(visit)

	sciSrc := SourceFunc[f2.Config](func(when time.Time) ([]stepmodel.Atom[f2.Config], bool) {
		atom, ok := gen.Next(when)
		if !ok {
			return nil, false
		}
		return []stepmodel.Atom[f2.Config]{atom}, true
	})

	acqCfg := base
	acqCfg.ExposureTime = gmos.StandinAcquisitionTime
	acqSteps := AcquisitionSteps[f2.Config]{
		CCD2Alignment: stepmodel.ProtoStep[f2.Config]{InstrumentConfig: acqCfg, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, ObserveClass: stepmodel.ObserveClassAcquisition},
		P10Nudge:      stepmodel.ProtoStep[f2.Config]{InstrumentConfig: acqCfg, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, ObserveClass: stepmodel.ObserveClassAcquisition},
		SlitCenter:    stepmodel.ProtoStep[f2.Config]{InstrumentConfig: acqCfg, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, ObserveClass: stepmodel.ObserveClassAcquisition},
		SlitRepeat:    stepmodel.ProtoStep[f2.Config]{InstrumentConfig: acqCfg, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, ObserveClass: stepmodel.ObserveClassAcquisitionCal},
	}
	acqGen := NewAcquisitionGenerator(acqSteps)
	acqSrc := newAcquisitionSource(acqGen, calc, namespace, comp.Acq)

	return &instrumentHandle[f2.Config]{
		observationID: params.ObservationID,
		fp:            params.Fingerprint(),
		completion:    comp,
		currentVisit:  visit,
		rawAcq:        acqSrc,
		rawSci:        sciSrc,
		scienceIndex:  singleIndex[f2.Config],
		unmarshal:     jsonUnmarshaler[f2.Config](),
	}, nil
}

// newAcquisitionSource adapts a generic AcquisitionGenerator into a
// Source, deriving each atom's index from the completion builder's
// current id-base so an acquisition reset (spec §4.3, §6) never
// collides with ids minted before it.
func newAcquisitionSource[D any](gen *AcquisitionGenerator[D], calc timeest.Calculator[struct{}, D], namespace uuid.UUID, builder *completion.Builder[D]) Source[D] {
	var rawIndex int32
	var last timeest.Last[D]
	lastIDBase := builder.IDBase()
	return SourceFunc[D](func(when time.Time) ([]stepmodel.Atom[D], bool) {
		if idBase := builder.IDBase(); idBase != lastIDBase {
			lastIDBase = idBase
			rawIndex = 0
			last = timeest.Last[D]{}
		}
		proto := gen.Next()
		atomIndex := seqid.AcquisitionAtomIndex(builder.IDBase(), rawIndex)
		atom, advanced := timeest.BuildAtom[struct{}, D](calc, struct{}{}, namespace, seqid.SequenceTypeAcquisition, proto.Description, atomIndex, 0, proto.Steps(), last)
		last = advanced
		rawIndex++
		return []stepmodel.Atom[D]{atom}, true
	})
}

func f2GcalTable(base f2.Config) map[gcal.Key][]gcal.Entry[f2.Config] {
	flatKey, _ := f2.KeyFunc(base, stepmodel.StepSmartGcalFlat)
	arcKey, _ := f2.KeyFunc(base, stepmodel.StepSmartGcalArc)
	return map[gcal.Key][]gcal.Entry[f2.Config]{
		flatKey: {{
			Gcal:         stepmodel.GcalConfig{Lamp: stepmodel.GcalLampQH, Shutter: stepmodel.GcalShutterOpen},
			ExposureTime: f2FlatExposure,
			Adjust: func(c f2.Config) f2.Config {
				c.ExposureTime = f2FlatExposure
				c.ReadMode = f2.DefaultReadMode(f2FlatExposure)
				c.Reads = f2.DefaultReads(c.ReadMode)
				return c
			},
		}},
		arcKey: {{
			Gcal:         stepmodel.GcalConfig{Lamp: stepmodel.GcalLampArArc, Shutter: stepmodel.GcalShutterOpen},
			ExposureTime: f2ArcExposure,
			Adjust: func(c f2.Config) f2.Config {
				c.ExposureTime = f2ArcExposure
				c.ReadMode = f2.DefaultReadMode(f2ArcExposure)
				c.Reads = f2.DefaultReads(c.ReadMode)
				return c
			},
		}},
	}
}

func defaultF2Calculator() timeest.OverheadCalculator[f2.Config] {
	return timeest.NewOverheadCalculator[f2.Config](
		stepmodel.TimeSpan(10*time.Second),
		stepmodel.TimeSpan(60*time.Second),
		func(c f2.Config) stepmodel.TimeSpan { return c.ExposureTime },
		func(prior, current f2.Config) bool {
			return prior.Disperser != current.Disperser || prior.Filter != current.Filter ||
				prior.FPU != current.FPU || prior.ReadMode != current.ReadMode
		},
	)
}

// buildGMOS assembles the GMOS long-slit side of spec §6: the
// wavelength-block goals and a smart-gcal table scoped to the
// observation's distinct per-adjustment configs, wired through the
// existing gmos.Generator (which already produces arc-zipped batches
// matching the Source contract directly).
func buildGMOS(params config.GeneratorParams, commit seqid.CommitHash, visit uuid.UUID) (*instrumentHandle[gmos.Config], *Error) {
	raw := params.GMOS
	if raw == nil {
		return nil, InvalidData("gmos instrument requires a gmos config block")
	}

	exposureTime := stepmodel.TimeSpan(time.Duration(params.ITC.ExposureTimeMillis) * time.Millisecond)

	xbin := 1
	if raw.XBin != nil {
		xbin = *raw.XBin
	}

	base := gmos.Config{
		Grating:      raw.Grating,
		Filter:       raw.Filter,
		FPU:          raw.FPU,
		XBin:         xbin,
		YBin:         raw.YBin,
		CentralWave:  stepmodel.Wavelength(raw.CentralWaveNM),
		ExposureTime: exposureTime,
	}

	deltaLambdas := make([]stepmodel.Wavelength, len(raw.WavelengthDithers))
	for i, d := range raw.WavelengthDithers {
		deltaLambdas[i] = stepmodel.Wavelength(d)
	}
	adjustments := stepmodel.Adjustments(deltaLambdas, raw.SpatialOffsetsQ)

	goals, err := gmos.GoalsFor(gmos.TargetScience, adjustments, exposureTime, params.ITC.ExposureCount)
	if err != nil {
		return nil, SequenceUnavailable(params.ObservationID, err)
	}

	expander := gcal.NewTableExpander(gmosGcalTable(base, adjustments), gmos.KeyFunc)
	factory := gmos.DefaultFactory{Base: base, Expander: expander}

	calc := defaultGMOSCalculator()
	namespace := params.Namespace(commit)
	gen := gmos.NewGenerator(goals, factory, namespace, visit, calc, exposureTime)

	comp := completion.NewState[gmos.Config]()
	comp.Acq.SetVisit(visit)
	comp.Sci.SetVisit(visit)

	sciSrc := Source[gmos.Config](gen)

	acqCfg := base
	acqCfg.ExposureTime = gmos.StandinAcquisitionTime
	acqSteps := gmos.AcquisitionSteps{
		CCD2Alignment: stepmodel.ProtoStep[gmos.Config]{InstrumentConfig: acqCfg, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, ObserveClass: stepmodel.ObserveClassAcquisition},
		P10Nudge:      stepmodel.ProtoStep[gmos.Config]{InstrumentConfig: acqCfg, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, ObserveClass: stepmodel.ObserveClassAcquisition},
		SlitCenter:    stepmodel.ProtoStep[gmos.Config]{InstrumentConfig: acqCfg, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, ObserveClass: stepmodel.ObserveClassAcquisition},
		SlitRepeat:    stepmodel.ProtoStep[gmos.Config]{InstrumentConfig: acqCfg, StepConfig: stepmodel.StepConfig{Kind: stepmodel.StepScience}, ObserveClass: stepmodel.ObserveClassAcquisitionCal},
	}
	acqGen := gmos.NewAcquisitionGenerator(acqSteps)
	acqSrc := newGMOSAcquisitionSource(acqGen, calc, namespace, comp.Acq)

	return &instrumentHandle[gmos.Config]{
		observationID: params.ObservationID,
		fp:            params.Fingerprint(),
		completion:    comp,
		currentVisit:  visit,
		rawAcq:        acqSrc,
		rawSci:        sciSrc,
		scienceIndex:  gmosScienceIndex,
		unmarshal:     jsonUnmarshaler[gmos.Config](),
	}, nil
}

// gmosScienceIndex locates the science atom within a batch that may
// also carry a zipped arc atom (spec §4.5), so FilterCompletedVisit
// evaluates matchPast/matchCurrent against the right one.
func gmosScienceIndex(atoms []stepmodel.Atom[gmos.Config]) int {
	for i, a := range atoms {
		if a.Description == "Science" {
			return i
		}
	}
	return 0
}

// newGMOSAcquisitionSource mirrors newAcquisitionSource for GMOS's own
// (non-generic) AcquisitionGenerator type.
func newGMOSAcquisitionSource(gen *gmos.AcquisitionGenerator, calc timeest.Calculator[struct{}, gmos.Config], namespace uuid.UUID, builder *completion.Builder[gmos.Config]) Source[gmos.Config] {
	var rawIndex int32
	var last timeest.Last[gmos.Config]
	lastIDBase := builder.IDBase()
	return SourceFunc[gmos.Config](func(when time.Time) ([]stepmodel.Atom[gmos.Config], bool) {
		if idBase := builder.IDBase(); idBase != lastIDBase {
			lastIDBase = idBase
			rawIndex = 0
			last = timeest.Last[gmos.Config]{}
		}
		proto := gen.Next()
		atomIndex := seqid.AcquisitionAtomIndex(builder.IDBase(), rawIndex)
		atom, advanced := timeest.BuildAtom[struct{}, gmos.Config](calc, struct{}{}, namespace, seqid.SequenceTypeAcquisition, proto.Description, atomIndex, 0, proto.Steps(), last)
		last = advanced
		rawIndex++
		return []stepmodel.Atom[gmos.Config]{atom}, true
	})
}

func gmosGcalTable(base gmos.Config, adjustments []stepmodel.Adjustment) map[gcal.Key][]gcal.Entry[gmos.Config] {
	table := make(map[gcal.Key][]gcal.Entry[gmos.Config])
	for _, adj := range adjustments {
		cfg := gmos.ConfigFor(base, adj)
		flatKey, _ := gmos.KeyFunc(cfg, stepmodel.StepSmartGcalFlat)
		arcKey, _ := gmos.KeyFunc(cfg, stepmodel.StepSmartGcalArc)
		table[flatKey] = []gcal.Entry[gmos.Config]{{
			Gcal:         stepmodel.GcalConfig{Lamp: stepmodel.GcalLampQH, Shutter: stepmodel.GcalShutterOpen},
			ExposureTime: gmosFlatExposure,
			Adjust: func(c gmos.Config) gmos.Config {
				c.ExposureTime = gmosFlatExposure
				return c
			},
		}}
		table[arcKey] = []gcal.Entry[gmos.Config]{{
			Gcal:         stepmodel.GcalConfig{Lamp: stepmodel.GcalLampCuArArc, Shutter: stepmodel.GcalShutterOpen},
			ExposureTime: gmosArcExposure,
			Adjust: func(c gmos.Config) gmos.Config {
				c.ExposureTime = gmosArcExposure
				return c
			},
		}}
	}
	return table
}

func defaultGMOSCalculator() timeest.OverheadCalculator[gmos.Config] {
	return timeest.NewOverheadCalculator[gmos.Config](
		stepmodel.TimeSpan(10*time.Second),
		stepmodel.TimeSpan(90*time.Second),
		func(c gmos.Config) stepmodel.TimeSpan { return c.ExposureTime },
		func(prior, current gmos.Config) bool {
			return prior.Grating != current.Grating || prior.Filter != current.Filter ||
				prior.FPU != current.FPU || prior.XBin != current.XBin || prior.YBin != current.YBin
		},
	)
}
