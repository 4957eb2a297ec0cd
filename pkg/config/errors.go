// Package config assembles per-instrument GeneratorParams from YAML
// configuration plus ITC results, the way pkg/config in the teacher
// assembles its own registries: load, merge defaults, validate.
package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound indicates the configuration file was not found.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrValidationFailed indicates configuration validation failed.
	ErrValidationFailed = errors.New("configuration validation failed")

	// ErrUnknownInstrument indicates an instrument field names
	// something other than "f2" or "gmos-north"/"gmos-south".
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// LoadError wraps configuration loading errors with file context.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("failed to load %s: %v", e.File, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError creates a new load error.
func NewLoadError(file string, err error) *LoadError { return &LoadError{File: file, Err: err} }

// ValidationError wraps a single field validation failure, the shape
// go-playground/validator.v10's FieldError is adapted to.
type ValidationError struct {
	Field string
	Tag   string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q failed validation %q: %v", e.Field, e.Tag, e.Err)
}
func (e *ValidationError) Unwrap() error { return e.Err }
