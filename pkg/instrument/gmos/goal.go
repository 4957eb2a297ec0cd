package gmos

import (
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// Goal is the per-adjustment exposure target of spec §4.5: how many
// exposures to take per wavelength block, and in total across the
// observation.
type Goal struct {
	Adjustment stepmodel.Adjustment
	PerBlock   int
	Total      int
}

// GoalsFor implements spec §4.5's `goalsFor` algorithm for
// TargetScience; it returns ErrSpectroPhotometricNotImplemented for any
// other target.
func GoalsFor(target Target, adjustments []stepmodel.Adjustment, exposureTime stepmodel.TimeSpan, itcExposures int) ([]Goal, error) {
	if target != TargetScience {
		return nil, ErrSpectroPhotometricNotImplemented
	}
	size := len(adjustments)
	if size == 0 || exposureTime <= 0 {
		return nil, nil
	}

	maxExpPerBlock := int(time.Duration(SciencePeriod) / time.Duration(exposureTime))
	if maxExpPerBlock < 1 {
		maxExpPerBlock = 1
	}

	goals := make([]Goal, size)

	if itcExposures <= size*maxExpPerBlock {
		perBlock := itcExposures / size
		extra := itcExposures % size
		for i, adj := range adjustments {
			total := perBlock
			blockSize := perBlock
			if i < extra {
				total++
				blockSize++
			}
			goals[i] = Goal{Adjustment: adj, PerBlock: blockSize, Total: total}
		}
		return goals, nil
	}

	fullBlocks := itcExposures / maxExpPerBlock
	remainder := itcExposures % maxExpPerBlock
	fullBlocksMod := fullBlocks % size
	for i, adj := range adjustments {
		base := (fullBlocks / size) * maxExpPerBlock
		var extra int
		switch {
		case i < fullBlocksMod:
			extra = maxExpPerBlock
		case i == fullBlocksMod:
			extra = remainder
		default:
			extra = 0
		}
		goals[i] = Goal{Adjustment: adj, PerBlock: maxExpPerBlock, Total: base + extra}
	}
	return goals, nil
}
