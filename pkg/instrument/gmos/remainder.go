package gmos

import (
	"fmt"
	"sort"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// RemainderPlan is the ordered list of proto-steps a block's
// RemainderAt produced, plus the science-exposure count it committed.
type RemainderPlan struct {
	Steps []stepmodel.ProtoStep[Config]
	N     int
}

// RemainderAt implements spec §4.5's `remainderAt(t, expTime)`: it
// computes the missing calibrations plus n science steps, ordering
// calibrations first if no science has been recorded yet for this
// block, otherwise science first then the closing calibrations; then
// settles the block with completed += n.
//
// scienceStep and calStep build the concrete ProtoStep for a science
// exposure and a given missing calibration key respectively; they are
// supplied by the caller since only it knows the full instrument
// config (FPU, binning, etc.) to attach.
func (b *WavelengthBlock) RemainderAt(
	t time.Time,
	expTime stepmodel.TimeSpan,
	scienceStep func() stepmodel.ProtoStep[Config],
	calStep func(stepmodel.StepKey[Config]) stepmodel.ProtoStep[Config],
) RemainderPlan {
	n := b.RemainingScienceExposuresAt(t, expTime)
	missing := b.MissingCalsAt(t)

	keys := make([]stepmodel.StepKey[Config], 0, len(missing))
	for key := range missing {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%#v", keys[i]) < fmt.Sprintf("%#v", keys[j])
	})

	var calSteps []stepmodel.ProtoStep[Config]
	for _, key := range keys {
		for i := 0; i < missing[key]; i++ {
			calSteps = append(calSteps, calStep(key))
		}
	}

	var sciSteps []stepmodel.ProtoStep[Config]
	for i := 0; i < n; i++ {
		sciSteps = append(sciSteps, scienceStep())
	}

	var out []stepmodel.ProtoStep[Config]
	noScienceYet := len(b.science) == 0
	if noScienceYet {
		out = append(out, calSteps...)
		out = append(out, sciSteps...)
	} else {
		out = append(out, sciSteps...)
		out = append(out, calSteps...)
	}

	// The n science steps above are the plan handed back to the caller
	// to record later; they are not yet in b.science, so Settle only
	// rolls in the science already recorded and completed must be
	// bumped by n directly.
	b.Settle()
	b.completed += n

	return RemainderPlan{Steps: out, N: n}
}
