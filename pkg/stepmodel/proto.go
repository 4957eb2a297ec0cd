package stepmodel

import "github.com/google/uuid"

// ObserveClass classifies a step for scheduling/QA purposes.
type ObserveClass int

const (
	ObserveClassScience ObserveClass = iota
	ObserveClassProgramCal
	ObserveClassPartnerCal
	ObserveClassAcquisition
	ObserveClassAcquisitionCal
	ObserveClassDayCal
)

// ProtoStep is a step prior to id/time assignment (spec §3, §4.1). D is
// the instrument-specific dynamic config record (e.g. an F2 or GMOS
// config). ProtoStep lives only until promoted to a Step by an
// AtomBuilder.
type ProtoStep[D any] struct {
	InstrumentConfig D
	StepConfig       StepConfig
	TelescopeConfig  TelescopeConfig
	ObserveClass     ObserveClass
	Breakpoint       bool
}

// WithInstrumentConfig returns a copy of p with InstrumentConfig
// replaced, following the lens-style update pattern spec §4.1 calls
// for.
func (p ProtoStep[D]) WithInstrumentConfig(d D) ProtoStep[D] {
	p.InstrumentConfig = d
	return p
}

// WithStepConfig returns a copy of p with StepConfig replaced.
func (p ProtoStep[D]) WithStepConfig(s StepConfig) ProtoStep[D] {
	p.StepConfig = s
	return p
}

// WithTelescopeConfig returns a copy of p with TelescopeConfig
// replaced.
func (p ProtoStep[D]) WithTelescopeConfig(tc TelescopeConfig) ProtoStep[D] {
	p.TelescopeConfig = tc
	return p
}

// Matches reports whether a recorded step matches this proto-step, per
// spec §4.1: instrument config, step config, telescope config, and
// observe class must all be equal. Breakpoints and ids are ignored.
//
// D is compared with equalConfig, since instrument dynamic
// configs generally contain only comparable fields but callers may
// want a custom equality (e.g. ignoring a cosmetic field); pass
// stepmodel.Equal[D] for plain ==.
func (p ProtoStep[D]) Matches(other ProtoStep[D], equalConfig func(a, b D) bool) bool {
	return equalConfig(p.InstrumentConfig, other.InstrumentConfig) &&
		p.StepConfig == other.StepConfig &&
		p.TelescopeConfig == other.TelescopeConfig &&
		p.ObserveClass == other.ObserveClass
}

// Equal is the plain == equality function for comparable D, usable as
// the equalConfig argument to Matches and to build an AtomMatch key
// function.
func Equal[D comparable](a, b D) bool {
	return a == b
}

// ProtoAtom is an ordered, non-empty sequence of steps with an optional
// description (spec §3). The zero value is invalid; use NewProtoAtom.
type ProtoAtom[P any] struct {
	Description string
	steps       []P
}

// NewProtoAtom builds a ProtoAtom from a non-empty slice. It panics if
// steps is empty: an empty ProtoAtom violates spec §3's invariant and
// can only arise from a programming error in this module, never from
// caller-supplied data (every instrument generator always seeds at
// least one step before constructing a ProtoAtom).
func NewProtoAtom[P any](description string, steps []P) ProtoAtom[P] {
	if len(steps) == 0 {
		panic("stepmodel: ProtoAtom must have at least one step")
	}
	cp := make([]P, len(steps))
	copy(cp, steps)
	return ProtoAtom[P]{Description: description, steps: cp}
}

// Steps returns the atom's steps. The returned slice is a copy; callers
// must not rely on aliasing.
func (a ProtoAtom[P]) Steps() []P {
	cp := make([]P, len(a.steps))
	copy(cp, a.steps)
	return cp
}

// Len returns the number of steps.
func (a ProtoAtom[P]) Len() int { return len(a.steps) }

// StepKey is the (instrumentConfig, stepConfig) pair that §3 uses to
// define AtomMatch equality.
type StepKey[D comparable] struct {
	InstrumentConfig D
	StepConfig       StepConfig
}

// AtomMatch is the ordered list of (instrumentConfig, stepConfig) pairs
// of an atom's steps (spec §3's AtomMatch). Two atoms match iff their
// AtomMatches are equal.
type AtomMatch[D comparable] []StepKey[D]

// MatchOf builds the AtomMatch for a ProtoAtom of ProtoSteps.
func MatchOf[D comparable](atom ProtoAtom[ProtoStep[D]]) AtomMatch[D] {
	steps := atom.Steps()
	m := make(AtomMatch[D], len(steps))
	for i, s := range steps {
		m[i] = StepKey[D]{InstrumentConfig: s.InstrumentConfig, StepConfig: s.StepConfig}
	}
	return m
}

// Step is an atom-bound step: a ProtoStep plus an assigned id and time
// estimate (spec §3).
type Step[D any] struct {
	ID              uuid.UUID
	InstrumentConfig D
	StepConfig       StepConfig
	TelescopeConfig  TelescopeConfig
	Estimate         TimeSpan
	ObserveClass     ObserveClass
	Breakpoint       bool
}

// Atom is an emitted atom: an id plus its time-estimated, id-assigned
// steps (spec §3). Steps is always non-empty.
type Atom[D any] struct {
	ID          uuid.UUID
	Description string
	Steps       []Step[D]
}
