package sequence

import "github.com/codeready-toolchain/obsseq/pkg/stepmodel"

// AcquisitionSteps holds the concrete proto-steps for the fixed initial
// 3-atom acquisition sequence and the repeating slit-acquisition atom
// every instrument shares (spec §4.5's "Acquisition sequence (per
// instrument)"). pkg/instrument/gmos ships its own copy of this same
// shape; this generic version serves every other instrument (F2) so
// the acquisition pattern is not duplicated per instrument package.
type AcquisitionSteps[D any] struct {
	CCD2Alignment stepmodel.ProtoStep[D]
	P10Nudge      stepmodel.ProtoStep[D]
	SlitCenter    stepmodel.ProtoStep[D]
	SlitRepeat    stepmodel.ProtoStep[D]
}

// InitialAtom builds the fixed "Acquisition - Initial" atom.
func (s AcquisitionSteps[D]) InitialAtom() stepmodel.ProtoAtom[stepmodel.ProtoStep[D]] {
	return stepmodel.NewProtoAtom("Acquisition - Initial", []stepmodel.ProtoStep[D]{
		s.CCD2Alignment, s.P10Nudge, s.SlitCenter,
	})
}

// SlitAtom builds one repeating "Acquisition - Slit" atom.
func (s AcquisitionSteps[D]) SlitAtom() stepmodel.ProtoAtom[stepmodel.ProtoStep[D]] {
	return stepmodel.NewProtoAtom("Acquisition - Slit", []stepmodel.ProtoStep[D]{s.SlitRepeat})
}

// AcquisitionGenerator yields the fixed initial atom once, then repeats
// the slit atom forever; the caller's completion matcher (reset per
// visit with an incremented id base) is what bounds how many are
// actually consumed.
type AcquisitionGenerator[D any] struct {
	steps   AcquisitionSteps[D]
	emitted int
}

// NewAcquisitionGenerator returns a fresh acquisition atom generator.
func NewAcquisitionGenerator[D any](steps AcquisitionSteps[D]) *AcquisitionGenerator[D] {
	return &AcquisitionGenerator[D]{steps: steps}
}

// Next returns the next nominal acquisition atom.
func (g *AcquisitionGenerator[D]) Next() stepmodel.ProtoAtom[stepmodel.ProtoStep[D]] {
	if g.emitted == 0 {
		g.emitted++
		return g.steps.InitialAtom()
	}
	g.emitted++
	return g.steps.SlitAtom()
}

// ResetVisit restarts the generator at the initial atom.
func (g *AcquisitionGenerator[D]) ResetVisit() {
	g.emitted = 0
}
