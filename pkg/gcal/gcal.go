// Package gcal implements the smart-gcal expander contract of spec
// §4.2: resolving an abstract "smart arc/flat" placeholder step to one
// or more concrete calibration steps, looked up from a table keyed on
// instrument configuration and wavelength range.
//
// The core treats an Expander as a pure function of its inputs for a
// given instance (spec §4.2); TableExpander caches its per-key result
// so repeated lookups for the same instrument configuration do no
// repeated work, following the in-memory registry shape of the
// teacher's pkg/config.AgentRegistry.
package gcal

import (
	"fmt"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// Key identifies a smart-gcal table entry: the instrument state and
// wavelength range a placeholder step needs resolved.
type Key struct {
	Instrument     string
	Disperser      string
	Filter         string
	FPU            string
	ObserveType    stepmodel.StepKind // StepSmartGcalArc or StepSmartGcalFlat
	WavelengthLow  stepmodel.Wavelength
	WavelengthHigh stepmodel.Wavelength
}

func (k Key) String() string {
	kind := "flat"
	if k.ObserveType == stepmodel.StepSmartGcalArc {
		kind = "arc"
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s[%g,%g]", k.Instrument, k.Disperser, k.Filter, k.FPU, kind, k.WavelengthLow, k.WavelengthHigh)
}

// Entry is one concrete calibration the table maps a Key to. A Key may
// map to several Entries (e.g. two flats at different lamp settings),
// in which case expansion produces one concrete step per Entry, in
// table order.
type Entry[D any] struct {
	Gcal         stepmodel.GcalConfig
	ExposureTime stepmodel.TimeSpan
	// Adjust further tailors the instrument config of the expanded step
	// (e.g. F2 recomputing ReadMode/Reads to match ExposureTime). Nil
	// leaves the instrument config unchanged: the expander does not
	// itself apply ExposureTime to the config.
	Adjust stepmodel.Adjust[D]
}

// KeyFunc derives the lookup Key for one instrument config plus the
// smart-gcal placeholder kind being resolved. Each instrument package
// supplies its own.
type KeyFunc[D any] func(config D, kind stepmodel.StepKind) (Key, error)

// LookupError reports a missing smart-gcal mapping (spec §6's error
// message: "Could not generate a sequence, missing Smart GCAL mapping:
// <key>").
type LookupError struct {
	Key Key
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("Could not generate a sequence, missing Smart GCAL mapping: %s", e.Key)
}

// Expander is the contract consumed by the core (spec §4.2).
type Expander[D any] interface {
	ExpandStep(step stepmodel.ProtoStep[D]) ([]stepmodel.ProtoStep[D], error)
	ExpandAtom(atom stepmodel.ProtoAtom[stepmodel.ProtoStep[D]]) (stepmodel.ProtoAtom[stepmodel.ProtoStep[D]], error)
}

// TableExpander is a concrete, in-memory Expander backed by a
// map[Key][]Entry built once at construction.
type TableExpander[D any] struct {
	table map[Key][]Entry[D]
	keyFn KeyFunc[D]
	cache map[Key][]stepmodel.ProtoStep[D]
}

// NewTableExpander builds an expander from a static table and the
// instrument's key-derivation function.
func NewTableExpander[D any](table map[Key][]Entry[D], keyFn KeyFunc[D]) *TableExpander[D] {
	cp := make(map[Key][]Entry[D], len(table))
	for k, v := range table {
		cp[k] = append([]Entry[D](nil), v...)
	}
	return &TableExpander[D]{table: cp, keyFn: keyFn, cache: make(map[Key][]stepmodel.ProtoStep[D])}
}

// ExpandStep resolves a single smart-gcal placeholder step into one or
// more concrete steps. It is a no-op (step unchanged, wrapped in a
// singleton slice) for a step that is not a smart-gcal placeholder.
func (e *TableExpander[D]) ExpandStep(step stepmodel.ProtoStep[D]) ([]stepmodel.ProtoStep[D], error) {
	if !step.StepConfig.IsSmartGcal() {
		return []stepmodel.ProtoStep[D]{step}, nil
	}

	key, err := e.keyFn(step.InstrumentConfig, step.StepConfig.Kind)
	if err != nil {
		return nil, err
	}

	if cached, ok := e.cache[key]; ok {
		return cloneAll(cached, step), nil
	}

	entries, ok := e.table[key]
	if !ok || len(entries) == 0 {
		return nil, &LookupError{Key: key}
	}

	resultKind := stepmodel.StepFlat
	if key.ObserveType == stepmodel.StepSmartGcalArc {
		resultKind = stepmodel.StepArc
	}

	out := make([]stepmodel.ProtoStep[D], 0, len(entries))
	for _, entry := range entries {
		cfg := step.InstrumentConfig
		if entry.Adjust != nil {
			cfg = entry.Adjust(cfg)
		}
		out = append(out, stepmodel.ProtoStep[D]{
			InstrumentConfig: cfg,
			StepConfig:       stepmodel.StepConfig{Kind: resultKind, Gcal: entry.Gcal},
			TelescopeConfig:  step.TelescopeConfig,
			ObserveClass:     step.ObserveClass,
			Breakpoint:       step.Breakpoint,
		})
	}
	e.cache[key] = out
	return out, nil
}

func cloneAll[D any](cached []stepmodel.ProtoStep[D], template stepmodel.ProtoStep[D]) []stepmodel.ProtoStep[D] {
	out := make([]stepmodel.ProtoStep[D], len(cached))
	for i, c := range cached {
		c.TelescopeConfig = template.TelescopeConfig
		c.ObserveClass = template.ObserveClass
		c.Breakpoint = template.Breakpoint
		out[i] = c
	}
	return out
}

// ExpandAtom resolves every smart-gcal placeholder in atom, preserving
// step order; each placeholder may expand to several steps.
func (e *TableExpander[D]) ExpandAtom(atom stepmodel.ProtoAtom[stepmodel.ProtoStep[D]]) (stepmodel.ProtoAtom[stepmodel.ProtoStep[D]], error) {
	var out []stepmodel.ProtoStep[D]
	for _, step := range atom.Steps() {
		expanded, err := e.ExpandStep(step)
		if err != nil {
			return stepmodel.ProtoAtom[stepmodel.ProtoStep[D]]{}, fmt.Errorf("expanding atom %q: %w", atom.Description, err)
		}
		out = append(out, expanded...)
	}
	return stepmodel.NewProtoAtom(atom.Description, out), nil
}

// ExpandSequenceResult pairs an expanded atom with the error that
// stopped it, matching spec §4.2's Result[ProtoAtom, String] per atom
// and §7's partial-failure semantics: one atom's failure does not stop
// the rest of the stream.
type ExpandSequenceResult[D any] struct {
	Atom stepmodel.ProtoAtom[stepmodel.ProtoStep[D]]
	Err  error
}

// ExpandSequence expands each atom in seq independently, collecting
// per-atom failures instead of aborting (spec §4.2, §7).
func (e *TableExpander[D]) ExpandSequence(seq []stepmodel.ProtoAtom[stepmodel.ProtoStep[D]]) []ExpandSequenceResult[D] {
	out := make([]ExpandSequenceResult[D], len(seq))
	for i, atom := range seq {
		expanded, err := e.ExpandAtom(atom)
		out[i] = ExpandSequenceResult[D]{Atom: expanded, Err: err}
	}
	return out
}
