// Package sequence is the facade of spec §6: it assembles the
// completion filter, smart-gcal expansion, and atom builder around a
// per-instrument nominal generator (pkg/instrument/f2,
// pkg/instrument/gmos) into the externally-visible
// ProtoExecutionConfig/Result surface the ODB consumes.
package sequence

import (
	"fmt"

	"github.com/codeready-toolchain/obsseq/pkg/config"
)

// Success is the ok variant of Generator::Result (spec §6): the
// resolved acquisition/science streams for one observation, alongside
// the ITC result and GeneratorParams that produced them.
type Success[D any] struct {
	ObservationID string
	ITCResult     config.IntegrationTime
	Config        ProtoExecutionConfig[config.GeneratorParams, D]
}

// ErrorCode tags why a Generator failed to produce a sequence (spec
// §6's Generator::Result error variants).
type ErrorCode int

const (
	ErrorCodeSequenceUnavailable ErrorCode = iota
	ErrorCodeItcService
	ErrorCodeInvalidData
)

// Error is the error value type spec §7 calls for: all expected
// failures returned by value, never panics/exceptions.
type Error struct {
	Code          ErrorCode
	ObservationID string
	Reason        string
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrorCodeSequenceUnavailable:
		return fmt.Sprintf("sequence unavailable for observation %s: %s", e.ObservationID, e.Reason)
	case ErrorCodeItcService:
		return fmt.Sprintf("ITC service error for observation %s: %s", e.ObservationID, e.Reason)
	default:
		return fmt.Sprintf("invalid data: %s", e.Reason)
	}
}

// SequenceUnavailable wraps an F2/GMOS validation error (spec §6).
func SequenceUnavailable(observationID string, reason error) *Error {
	return &Error{Code: ErrorCodeSequenceUnavailable, ObservationID: observationID, Reason: reason.Error()}
}

// ItcServiceError wraps an ITC failure for a target.
func ItcServiceError(observationID, reason string) *Error {
	return &Error{Code: ErrorCodeItcService, ObservationID: observationID, Reason: reason}
}

// InvalidData wraps a caller data-shape failure.
func InvalidData(message string) *Error {
	return &Error{Code: ErrorCodeInvalidData, Reason: message}
}

// GcalLookupMissing builds the user-visible message for a missing
// smart-gcal mapping (spec §6's exact error copy).
func GcalLookupMissing(key string) string {
	return fmt.Sprintf("Could not generate a sequence, missing Smart GCAL mapping: %s", key)
}
