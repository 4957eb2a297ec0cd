// Package f2 implements the Flamingos-2 long-slit generator of spec
// §4.4: an ABBA-dithered science pattern with periodic night-time
// calibrations, bounded per-visit by time.
package f2

import (
	"errors"
	"fmt"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/fingerprint"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// SlitLength is spec §4.4's slit length: offsets with |q| > SlitLength/2
// are off-slit and unguided.
const SlitLength = 108.0 // arcsec

// MaxVisitLength is the elapsed time after which a block must close for
// a telluric break.
const MaxVisitLength = 3 * time.Hour

// MaxSciencePeriod is the total science time within a block after which
// a mid-block calibration atom must be inserted.
const MaxSciencePeriod = 90 * time.Minute

// ReadMode is the detector readout mode, chosen to match the per-step
// exposure time once smart-gcal expansion fixes it.
type ReadMode int

const (
	ReadModeBright ReadMode = iota
	ReadModeMedium
	ReadModeFaint
)

func (m ReadMode) String() string {
	switch m {
	case ReadModeBright:
		return "Bright"
	case ReadModeMedium:
		return "Medium"
	case ReadModeFaint:
		return "Faint"
	default:
		return "Unknown"
	}
}

// ParseReadMode parses an explicit_read_mode YAML value, matching
// ReadMode.String's spelling.
func ParseReadMode(s string) (ReadMode, error) {
	switch s {
	case "Bright":
		return ReadModeBright, nil
	case "Medium":
		return ReadModeMedium, nil
	case "Faint":
		return ReadModeFaint, nil
	default:
		return 0, fmt.Errorf("f2: unknown read mode %q", s)
	}
}

// DefaultReadMode picks the detector readout mode for an exposure time
// when the caller has not pinned an explicit one: short exposures read
// out fastest (Bright) and tolerate the read noise, long exposures read
// out slowest (Faint) to keep it below the sky/dark background.
func DefaultReadMode(exposureTime stepmodel.TimeSpan) ReadMode {
	switch {
	case exposureTime < stepmodel.TimeSpan(21*time.Second):
		return ReadModeBright
	case exposureTime < stepmodel.TimeSpan(85*time.Second):
		return ReadModeMedium
	default:
		return ReadModeFaint
	}
}

// DefaultReads is the detector read count paired with mode when the
// caller has not pinned an explicit one.
func DefaultReads(mode ReadMode) int {
	switch mode {
	case ReadModeBright:
		return 1
	case ReadModeMedium:
		return 4
	default:
		return 8
	}
}

// Config is Flamingos-2's instrument-specific dynamic config (the D in
// stepmodel.ProtoStep[D]).
type Config struct {
	Disperser    string
	Filter       string
	FPU          string
	ReadMode     ReadMode
	Reads        int
	ExposureTime stepmodel.TimeSpan
}

// WriteHash implements fingerprint.Hashable.
func (c Config) WriteHash(h *fingerprint.HashBytes) {
	h.String(c.Disperser).String(c.Filter).String(c.FPU).
		Int64(int64(c.ReadMode)).Int64(int64(c.Reads)).Int64(int64(c.ExposureTime))
}

// Equal is the plain field-equality comparesTo function for Config,
// suitable as the equalConfig argument to ProtoStep.Matches.
func Equal(a, b Config) bool { return a == b }

var (
	// ErrNonPositiveExposure is spec §4.4's exposureTime <= 0 validation
	// error.
	ErrNonPositiveExposure = errors.New("Flamingos 2 Long Slit requires a positive exposure time.")

	// ErrWrongOffsetCount is spec §4.4's offsets.length != 4 validation
	// error.
	ErrWrongOffsetCount = errors.New("Exactly 4 offset positions are needed for the Flamingos 2 Long Slit ABBA pattern.")

	// ErrCycleTooLong is spec §4.4's cycleEstimate >= MaxSciencePeriod
	// validation error.
	ErrCycleTooLong = errors.New("Estimated ABBA cycle time exceeds or equals what is allowed: it must be less than 90 minutes.")

	// ErrNoOnSlitExposure is spec §4.4's "no science step is on slit"
	// validation error (guards a divide-by-zero downstream).
	ErrNoOnSlitExposure = errors.New("At least one exposure must be taken on slit.")
)

// OffsetPattern is the four ABBA offsets in order (a0, b0, b1, a1).
type OffsetPattern [4]stepmodel.Offset

// NewOffsetPattern validates and converts a caller-supplied offset list
// into an OffsetPattern (spec §4.4's "config.offsets.length != 4").
func NewOffsetPattern(offsets []stepmodel.Offset) (OffsetPattern, error) {
	if len(offsets) != 4 {
		return OffsetPattern{}, ErrWrongOffsetCount
	}
	return OffsetPattern{offsets[0], offsets[1], offsets[2], offsets[3]}, nil
}

// IsOnSlit reports whether an offset is on-slit per spec §4.4: p must
// be zero and |q| must not exceed half the slit length.
func IsOnSlit(o stepmodel.Offset) bool {
	return o.P == 0 && absF(o.Q) <= SlitLength/2
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Validate checks the constraints of spec §4.4 against offsets and the
// estimated ABBA-cycle time.
func Validate(exposureTime stepmodel.TimeSpan, offsets OffsetPattern, cycleEstimate stepmodel.TimeSpan) error {
	if exposureTime <= 0 {
		return ErrNonPositiveExposure
	}
	onSlit := false
	for _, o := range offsets {
		if IsOnSlit(o) {
			onSlit = true
			break
		}
	}
	if !onSlit {
		return ErrNoOnSlitExposure
	}
	if cycleEstimate >= stepmodel.TimeSpan(MaxSciencePeriod) {
		return ErrCycleTooLong
	}
	return nil
}
