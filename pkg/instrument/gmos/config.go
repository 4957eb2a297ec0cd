// Package gmos implements the GMOS long-slit generator of spec §4.5:
// rotating through wavelength dithers crossed with spatial offsets
// ("wavelength blocks"), with flats/arcs attached per block and a
// validity window within which calibrations do not need retaking.
package gmos

import (
	"errors"
	"time"

	"github.com/codeready-toolchain/obsseq/pkg/fingerprint"
	"github.com/codeready-toolchain/obsseq/pkg/stepmodel"
)

// CalValidityPeriod is how long a recorded calibration remains valid.
const CalValidityPeriod = 90 * time.Minute

// SciencePeriod is the nominal time target per wavelength block.
const SciencePeriod = 1 * time.Hour

// Sampling is the slit sampling factor used to derive x-binning.
const Sampling = 2.0

// Config is GMOS's instrument-specific dynamic config (the D in
// stepmodel.ProtoStep[D]).
type Config struct {
	Grating      string
	Filter       string
	FPU          string
	XBin         int
	YBin         int
	CentralWave  stepmodel.Wavelength
	ExposureTime stepmodel.TimeSpan
}

// WriteHash implements fingerprint.Hashable.
func (c Config) WriteHash(h *fingerprint.HashBytes) {
	h.String(c.Grating).String(c.Filter).String(c.FPU).
		Int64(int64(c.XBin)).Int64(int64(c.YBin)).
		Int64(int64(c.CentralWave)).Int64(int64(c.ExposureTime))
}

// Equal is the plain field-equality comparesTo function for Config.
func Equal(a, b Config) bool { return a == b }

// Target distinguishes the two acquisition/science goals §9's Open
// Question resolves: only ScienceTarget is implemented.
type Target int

const (
	TargetScience Target = iota
	TargetSpectroPhotometric
)

// ErrSpectroPhotometricNotImplemented is returned by goalsFor for
// Target values other than TargetScience (spec §9 Open Question
// decision: spectrophotometric standards are out of scope).
var ErrSpectroPhotometricNotImplemented = errors.New("gmos: spectrophotometric standard target goals are not implemented")
