package gmos

import (
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// StandinAcquisitionTime is the fixed placeholder exposure time used
// for acquisition steps until the ITC produces a real one (spec §4.5,
// §9 Open Question decision).
const StandinAcquisitionTime = stepmodel.TimeSpan(10_000_000_000) // 10s, in time.Duration nanoseconds

// AcquisitionSteps holds the concrete proto-steps for the fixed initial
// 3-atom acquisition sequence and the repeating slit-acquisition atom
// (spec §4.5).
type AcquisitionSteps struct {
	CCD2Alignment stepmodel.ProtoStep[Config]
	P10Nudge      stepmodel.ProtoStep[Config]
	SlitCenter    stepmodel.ProtoStep[Config]
	SlitRepeat    stepmodel.ProtoStep[Config]
}

// InitialAtom builds the fixed "Acquisition - Initial" atom: CCD2
// alignment, p10 nudge, slit-center exposure, in that order.
func (s AcquisitionSteps) InitialAtom() stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]] {
	return stepmodel.NewProtoAtom("Acquisition - Initial", []stepmodel.ProtoStep[Config]{
		s.CCD2Alignment, s.P10Nudge, s.SlitCenter,
	})
}

// SlitAtom builds one repeating "Acquisition - Slit" atom.
func (s AcquisitionSteps) SlitAtom() stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]] {
	return stepmodel.NewProtoAtom("Acquisition - Slit", []stepmodel.ProtoStep[Config]{s.SlitRepeat})
}

// AcquisitionGenerator yields the fixed initial atom once, then repeats
// the slit atom forever (the caller's completion matcher, reset per
// visit with an incremented id base, is what bounds how many are
// actually emitted — spec §4.5, §6).
type AcquisitionGenerator struct {
	steps   AcquisitionSteps
	emitted int
}

// NewAcquisitionGenerator returns a fresh acquisition atom generator.
func NewAcquisitionGenerator(steps AcquisitionSteps) *AcquisitionGenerator {
	return &AcquisitionGenerator{steps: steps}
}

// Next returns the next nominal acquisition atom: the initial 3-step
// atom first, then the repeating slit atom forever after.
func (g *AcquisitionGenerator) Next() stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]] {
	if g.emitted == 0 {
		g.emitted++
		return g.steps.InitialAtom()
	}
	g.emitted++
	return g.steps.SlitAtom()
}

// ResetVisit restarts the generator at the initial atom, per spec's
// "completion matcher resets per visit".
func (g *AcquisitionGenerator) ResetVisit() {
	g.emitted = 0
}
