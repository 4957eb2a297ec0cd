// Package config assembles a per-observation GeneratorParams from YAML
// configuration plus an ITC result, the way the teacher's own config
// package assembles its registries: load, merge defaults, validate.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	validatorpkg "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/obsseq/pkg/fingerprint"
	"github.com/codeready-toolchain/obsseq/pkg/seqid"
)

// Instrument names accepted in YAML.
const (
	InstrumentF2        = "f2"
	InstrumentGMOSNorth = "gmos-north"
	InstrumentGMOSSouth = "gmos-south"
)

// IntegrationTime is the ITC's oracle result (spec §3, §6):
// `(exposureTime, exposureCount)`.
type IntegrationTime struct {
	ExposureTimeMillis int64 `yaml:"exposure_time_ms" validate:"gte=0"`
	ExposureCount      int   `yaml:"exposure_count" validate:"gt=0"`
}

// F2YAMLConfig is the Flamingos-2 `Config` record of spec §9:
// `{disperser, filter, fpu, explicitReadMode?, explicitReads?,
// explicitDecker?, explicitReadoutMode?, offsets}`.
type F2YAMLConfig struct {
	Disperser           string   `yaml:"disperser" validate:"required"`
	Filter              string   `yaml:"filter" validate:"required"`
	FPU                 string   `yaml:"fpu" validate:"required"`
	ExplicitReadMode    *string  `yaml:"explicit_read_mode,omitempty"`
	ExplicitReads       *int     `yaml:"explicit_reads,omitempty"`
	ExplicitDecker      string   `yaml:"explicit_decker,omitempty"`
	ExplicitReadoutMode string   `yaml:"explicit_readout_mode,omitempty"`
	Offsets             []Offset `yaml:"offsets" validate:"len=4,dive"`
}

// Offset mirrors stepmodel.Offset for YAML unmarshalling.
type Offset struct {
	P float64 `yaml:"p"`
	Q float64 `yaml:"q"`
}

// GMOSYAMLConfig is the GMOS long-slit `Config` record of spec §9.
type GMOSYAMLConfig struct {
	Grating           string    `yaml:"grating" validate:"required"`
	Filter            string    `yaml:"filter,omitempty"`
	FPU               string    `yaml:"fpu" validate:"required"`
	CentralWaveNM     float64   `yaml:"central_wavelength_nm" validate:"gt=0"`
	XBin              *int      `yaml:"x_bin,omitempty"`
	YBin              int       `yaml:"y_bin"`
	AmpReadMode       string    `yaml:"amp_read_mode,omitempty"`
	AmpGain           string    `yaml:"amp_gain,omitempty"`
	ROI               string    `yaml:"roi,omitempty"`
	WavelengthDithers []float64 `yaml:"wavelength_dithers"`
	SpatialOffsetsQ   []float64 `yaml:"spatial_offsets_q"`
}

// GeneratorParamsYAML is the file-level shape loaded from disk: one of
// F2 or GMOS is populated depending on Instrument.
type GeneratorParamsYAML struct {
	ObservationID string          `yaml:"observation_id" validate:"required"`
	Instrument    string          `yaml:"instrument" validate:"required,oneof=f2 gmos-north gmos-south"`
	ITC           IntegrationTime `yaml:"itc"`
	F2            *F2YAMLConfig   `yaml:"f2,omitempty"`
	GMOS          *GMOSYAMLConfig `yaml:"gmos,omitempty"`
}

// GeneratorParams is the fully resolved, defaulted, validated
// parameter set spec §4.8 fingerprints and spec §2's pipeline step 1
// ("parameter assembly") produces.
type GeneratorParams struct {
	ObservationID string
	Instrument    string
	ITC           IntegrationTime
	F2            *F2YAMLConfig
	GMOS          *GMOSYAMLConfig
}

// WriteHash implements fingerprint.Hashable (spec §4.8): every field
// that can change sequence output is folded in, in this fixed order.
func (p GeneratorParams) WriteHash(h *fingerprint.HashBytes) {
	h.String(p.ObservationID).String(p.Instrument).
		Int64(p.ITC.ExposureTimeMillis).Int64(int64(p.ITC.ExposureCount))
	if p.F2 != nil {
		h.String(p.F2.Disperser).String(p.F2.Filter).String(p.F2.FPU)
		if p.F2.ExplicitReadMode != nil {
			h.String(*p.F2.ExplicitReadMode)
		}
		if p.F2.ExplicitReads != nil {
			h.Int64(int64(*p.F2.ExplicitReads))
		}
		for _, o := range p.F2.Offsets {
			h.Int64(int64(o.P * 1000)).Int64(int64(o.Q * 1000))
		}
	}
	if p.GMOS != nil {
		h.String(p.GMOS.Grating).String(p.GMOS.Filter).String(p.GMOS.FPU).
			Int64(int64(p.GMOS.CentralWaveNM * 1000))
		if p.GMOS.XBin != nil {
			h.Int64(int64(*p.GMOS.XBin))
		}
		h.Int64(int64(p.GMOS.YBin))
		for _, d := range p.GMOS.WavelengthDithers {
			h.Int64(int64(d * 1000))
		}
		for _, q := range p.GMOS.SpatialOffsetsQ {
			h.Int64(int64(q * 1000))
		}
	}
}

// Fingerprint computes this GeneratorParams' cache-key digest (spec
// §4.8).
func (p GeneratorParams) Fingerprint() [16]byte { return fingerprint.Of(p) }

// Namespace derives this observation's id namespace from the build's
// commit hash and this params value's own fingerprint (spec §6).
func (p GeneratorParams) Namespace(commit seqid.CommitHash) uuid.UUID {
	return seqid.Namespace(commit, p.ObservationID, p.Fingerprint())
}

// Load reads and validates a GeneratorParams from configDir/filename,
// expanding environment references and merging built-in defaults the
// way the teacher's own loader merges user YAML over its built-ins.
func Load(ctx context.Context, configDir, filename string) (*GeneratorParams, error) {
	log := slog.With("config_dir", configDir, "file", filename)
	log.Info("loading generator params")

	path := filepath.Join(configDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(filename, fmt.Errorf("%w: %s", ErrConfigNotFound, path))
		}
		return nil, NewLoadError(filename, err)
	}
	data = ExpandEnv(data)

	var raw GeneratorParamsYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, NewLoadError(filename, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	ApplyDefaults(&raw)

	if err := Validate(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	params := GeneratorParams{
		ObservationID: raw.ObservationID,
		Instrument:    raw.Instrument,
		ITC:           raw.ITC,
		F2:            raw.F2,
		GMOS:          raw.GMOS,
	}
	log.Info("generator params loaded", "instrument", params.Instrument)
	return &params, nil
}

// ApplyDefaults merges built-in defaults into raw via dario.cat/mergo,
// the same override semantics the teacher uses to layer user
// configuration over its own built-ins.
func ApplyDefaults(raw *GeneratorParamsYAML) {
	if raw.F2 != nil && len(raw.F2.Offsets) == 0 {
		raw.F2.Offsets = append([]Offset(nil), defaultF2Offsets...)
	}
	if raw.GMOS != nil {
		_ = mergo.Merge(raw.GMOS, defaultGMOSYAML)
	}
}

// Validate runs struct-tag validation (go-playground/validator) plus
// the cross-field "instrument names a populated sub-config" rule tags
// alone cannot express.
func Validate(raw *GeneratorParamsYAML) error {
	v := validatorpkg.New()
	if err := v.Struct(raw); err != nil {
		return err
	}
	switch raw.Instrument {
	case InstrumentF2:
		if raw.F2 == nil {
			return fmt.Errorf("instrument %q requires an f2 config block", raw.Instrument)
		}
	case InstrumentGMOSNorth, InstrumentGMOSSouth:
		if raw.GMOS == nil {
			return fmt.Errorf("instrument %q requires a gmos config block", raw.Instrument)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownInstrument, raw.Instrument)
	}
	return nil
}
