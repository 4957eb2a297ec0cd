package f2

import (
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/seqid"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
	"github.com/codeready-toolchain/obsseq/pkg/timeest"
	"github.com/google/uuid"
)

// Generator drives SequenceRecord through remainingAtomsInBlock and
// assigns ids/time estimates via pkg/timeest, yielding one Atom per
// Next call until goalCycles ABBA cycles have been completed (spec
// §4.4's "generate() yields atoms until goalCycles are complete").
type Generator struct {
	record        *SequenceRecord
	namespace     uuid.UUID
	calc          timeest.Calculator[struct{}, Config]
	cycleEstimate stepmodel.TimeSpan
	goalCycles    int
	maxCyclesCall int
	atomIndex     int32
	last          timeest.Last[Config]

	// generatedCycles counts ABBA cycles this Generator has itself
	// yielded, independent of record.CompletedCycles (which only
	// advances once folded execution history closes a tracker). A pure
	// generation run with no folded records still needs to terminate at
	// goalCycles (spec §4.4).
	generatedCycles int

	queued []stepmodel.ProtoAtom[stepmodel.ProtoStep[Config]]
}

// NewGenerator builds a Generator. namespace is this observation's id
// namespace (spec §6); cycleEstimate is the time estimate of one ABBA
// cycle, used to size blocks; goalCycles bounds how many completed ABBA
// cycles the stream produces before it stops; maxCyclesPerCall caps how
// many cycles a single NextAtoms call can schedule (spec's maxCycles
// argument to remainingAtomsInBlock).
func NewGenerator(
	record *SequenceRecord,
	namespace uuid.UUID,
	calc timeest.Calculator[struct{}, Config],
	cycleEstimate stepmodel.TimeSpan,
	goalCycles int,
	maxCyclesPerCall int,
) *Generator {
	return &Generator{
		record:        record,
		namespace:     namespace,
		calc:          calc,
		cycleEstimate: cycleEstimate,
		goalCycles:    goalCycles,
		maxCyclesCall: maxCyclesPerCall,
	}
}

// Done reports whether the goal has been reached or the sequence was
// stopped. Cycles folded back from recorded execution
// (record.CompletedCycles) and cycles this Generator has already
// yielded but not yet seen folded back (generatedCycles) both count
// toward goalCycles, so a pure generation run terminates on its own.
func (g *Generator) Done() bool {
	return g.record.Stopped() || g.record.CompletedCycles()+g.generatedCycles >= g.goalCycles
}

// Next produces the next Atom in the stream, or ok=false once Done.
// when is the current time, used to evaluate the block layout.
func (g *Generator) Next(when time.Time) (stepmodel.Atom[Config], bool) {
	for len(g.queued) == 0 {
		if g.Done() {
			return stepmodel.Atom[Config]{}, false
		}
		g.queued = g.record.NextAtoms(when, g.cycleEstimate, g.maxCyclesCall)
		if len(g.queued) == 0 {
			// No progress possible (e.g. block already past
			// MaxVisitLength with nothing pending): stop to avoid
			// spinning.
			return stepmodel.Atom[Config]{}, false
		}
	}

	proto := g.queued[0]
	g.queued = g.queued[1:]

	if proto.Description == "ABBA Cycle" {
		g.generatedCycles++
	}

	description := proto.Description
	steps := proto.Steps()
	atom, last := timeest.BuildAtom[struct{}](g.calc, struct{}{}, g.namespace, seqid.SequenceTypeScience, description, g.atomIndex, 0, steps, g.last)
	g.last = last
	g.atomIndex++
	return atom, true
}
