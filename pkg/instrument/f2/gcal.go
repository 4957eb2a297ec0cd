package f2

import (
	"github.com/codeready-toolchain/obsseq/pkg/gcal"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// KeyFunc derives this Config's smart-gcal lookup key (spec §4.2):
// Flamingos-2's calibration unit setup depends only on
// disperser/filter/FPU, never on wavelength, so the key's wavelength
// range is always the zero range.
func KeyFunc(cfg Config, kind stepmodel.StepKind) (gcal.Key, error) {
	return gcal.Key{
		Instrument:  "F2",
		Disperser:   cfg.Disperser,
		Filter:      cfg.Filter,
		FPU:         cfg.FPU,
		ObserveType: kind,
	}, nil
}
