package config

import "github.com/codeready-toolchain/obsseq/pkg/instrument/f2"

// defaultF2Offsets is the standard ABBA dither pattern applied when a
// user omits offsets entirely.
var defaultF2Offsets = []Offset{{P: 0, Q: 15}, {P: 0, Q: -15}, {P: 0, Q: -15}, {P: 0, Q: 15}}

// defaultGMOSYAML carries the GMOS long-slit defaults merged over any
// user-supplied block (spec §9: YBin=Two, standard read mode/gain/ROI).
var defaultGMOSYAML = GMOSYAMLConfig{
	YBin:        2,
	AmpReadMode: "slow",
	AmpGain:     "low",
	ROI:         "full",
}

// DeriveReadMode implements spec §9's F2 ReadMode derivation: exposure
// time >=85s picks Faint, >=21s picks Medium, otherwise Bright. Reads
// follows directly from the derived mode.
func DeriveReadMode(exposureSeconds float64) (f2.ReadMode, int) {
	switch {
	case exposureSeconds >= 85:
		return f2.ReadModeFaint, 8
	case exposureSeconds >= 21:
		return f2.ReadModeMedium, 4
	default:
		return f2.ReadModeBright, 1
	}
}

// ResolveF2ReadMode applies an explicit user override when present,
// otherwise derives ReadMode/Reads from the exposure time.
func ResolveF2ReadMode(cfg *F2YAMLConfig, exposureSeconds float64) (f2.ReadMode, int) {
	if cfg.ExplicitReadMode != nil {
		mode, _ := DeriveReadMode(exposureSeconds)
		for _, m := range []f2.ReadMode{f2.ReadModeBright, f2.ReadModeMedium, f2.ReadModeFaint} {
			if m.String() == *cfg.ExplicitReadMode {
				mode = m
				break
			}
		}
		reads := 1
		if cfg.ExplicitReads != nil {
			reads = *cfg.ExplicitReads
		}
		return mode, reads
	}
	return DeriveReadMode(exposureSeconds)
}
