package gmos

import (
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/seqid"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/codeready-toolchain/obsseq/pkg/timeest"
	"github.com/google/uuid"
)

// ScienceStepFactory builds the concrete science proto-step and the
// expected calibration proto-steps/keys for one wavelength block's
// adjustment.
type ScienceStepFactory interface {
	ScienceStep(adj stepmodel.Adjustment) stepmodel.ProtoStep[Config]
	CalStep(adj stepmodel.Adjustment, key stepmodel.StepKey[Config]) stepmodel.ProtoStep[Config]
	ArcStep(d Config) stepmodel.ProtoStep[Config]
	ExpectedCalKeys(adj stepmodel.Adjustment) []stepmodel.StepKey[Config]
}

// Generator drives the wavelength-block rotation, arc-zipping, and id
// assignment for GMOS long-slit science sequences (spec §4.5).
type Generator struct {
	blocks       []*WavelengthBlock
	factory      ScienceStepFactory
	arcSeen      *ArcSeen
	namespace    uuid.UUID
	calc         timeest.Calculator[struct{}, Config]
	exposureTime stepmodel.TimeSpan
	atomIndex    int32
	stepIndex    int32
	last         timeest.Last[Config]
	cursor       int
}

// NewGenerator builds a Generator for the given goals (one per
// adjustment, spec §4.5's goalsFor output). exposureTime is the science
// exposure time used both to price RemainingScienceExposuresAt against
// the calibration validity window and to advance the timeest state.
func NewGenerator(
	goals []Goal,
	factory ScienceStepFactory,
	namespace uuid.UUID,
	visit uuid.UUID,
	calc timeest.Calculator[struct{}, Config],
	exposureTime stepmodel.TimeSpan,
) *Generator {
	blocks := make([]*WavelengthBlock, len(goals))
	for i, g := range goals {
		blocks[i] = NewWavelengthBlock(g, factory.ExpectedCalKeys(g.Adjustment))
	}
	return &Generator{
		blocks:       blocks,
		factory:      factory,
		arcSeen:      NewArcSeen(visit),
		namespace:    namespace,
		calc:         calc,
		exposureTime: exposureTime,
	}
}

// Done reports whether every block has met its total goal.
func (g *Generator) Done() bool {
	for _, b := range g.blocks {
		if b.completed+b.ScienceCount() < b.goal.Total {
			return false
		}
	}
	return true
}

// Next produces the next science atom (and, if the arc-zipping pipe
// decides one is needed, an Arc atom placed before or after it by the
// zip's Location), rotating
// through wavelength blocks round-robin.
func (g *Generator) Next(when time.Time) ([]stepmodel.Atom[Config], bool) {
	if g.Done() || len(g.blocks) == 0 {
		return nil, false
	}

	var block *WavelengthBlock
	for i := 0; i < len(g.blocks); i++ {
		idx := (g.cursor + i) % len(g.blocks)
		b := g.blocks[idx]
		if b.completed+b.ScienceCount() < b.goal.Total {
			block = b
			g.cursor = (idx + 1) % len(g.blocks)
			break
		}
	}
	if block == nil {
		return nil, false
	}

	plan := block.RemainderAt(
		when,
		g.exposureTime,
		func() stepmodel.ProtoStep[Config] { return g.factory.ScienceStep(block.Adjustment) },
		func(key stepmodel.StepKey[Config]) stepmodel.ProtoStep[Config] { return g.factory.CalStep(block.Adjustment, key) },
	)
	if len(plan.Steps) == 0 {
		return nil, false
	}

	scienceAtom := stepmodel.NewProtoAtom("Science", plan.Steps)
	zipped := Zip(g.arcSeen, scienceAtom, 0, g.factory.ArcStep)

	var protoAtoms []stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]]
	if zipped.Arc != nil && zipped.Location == CalLocationBefore {
		protoAtoms = append(protoAtoms, *zipped.Arc)
	}
	protoAtoms = append(protoAtoms, zipped.Science)
	if zipped.Arc != nil && zipped.Location == CalLocationAfter {
		protoAtoms = append(protoAtoms, *zipped.Arc)
	}

	out := make([]stepmodel.Atom[Config], len(protoAtoms))
	for i, pa := range protoAtoms {
		atom, last := timeest.BuildAtom[struct{}](g.calc, struct{}{}, g.namespace, seqid.SequenceTypeScience, pa.Description, g.atomIndex, g.stepIndex, pa.Steps(), g.last)
		g.last = last
		g.atomIndex++
		g.stepIndex += int32(pa.Len())
		out[i] = atom
	}
	return out, true
}
