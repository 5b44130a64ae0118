package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Dataset errors
	ErrEmptyDataset     = errors.New("empty dataset")
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrMalformedDataset = errors.New("malformed dataset")

	// Training errors
	ErrTrainingFailed = errors.New("training failed")
	ErrNoChampion     = fmt.Errorf("%w: no candidate produced a usable score", ErrTrainingFailed)

	// Artifact errors
	ErrArtifactMismatch    = errors.New("artifact mismatch")
	ErrArtifactUnavailable = errors.New("artifact unavailable")

	// Inference errors
	ErrUnknownCategory = errors.New("unknown category")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrInvalidInput    = errors.New("invalid input")
)

// UnknownCategoryError reports a categorical value outside the training-time domain.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("%v: field %s has no code for value %q", ErrUnknownCategory, e.Field, e.Value)
}

func (e *UnknownCategoryError) Unwrap() error { return ErrUnknownCategory }

// SchemaMismatchError reports a field that is absent, unexpected or out of order.
type SchemaMismatchError struct {
	Field  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%v: field %s: %s", ErrSchemaMismatch, e.Field, e.Reason)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// InvalidInputError reports a value that fails domain validation.
type InvalidInputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%v: field %s=%g: %s", ErrInvalidInput, e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// ArtifactMismatchError reports an incomplete or inconsistent artifact set.
type ArtifactMismatchError struct {
	Missing []string
	Reason  string
}

func (e *ArtifactMismatchError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%v: missing %s", ErrArtifactMismatch, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%v: %s", ErrArtifactMismatch, e.Reason)
}

func (e *ArtifactMismatchError) Unwrap() error { return ErrArtifactMismatch }

// ArtifactUnavailableError is returned by every prediction once artifact loading failed.
type ArtifactUnavailableError struct {
	Cause error
}

func (e *ArtifactUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", ErrArtifactUnavailable, e.Cause)
	}
	return ErrArtifactUnavailable.Error()
}

// Unwrap exposes both the sentinel and the load failure.
func (e *ArtifactUnavailableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrArtifactUnavailable}
	}
	return []error{ErrArtifactUnavailable, e.Cause}
}

// TrainingFailedError reports a candidate that could not be fit or scored.
type TrainingFailedError struct {
	Model string
	Cause error
}

func (e *TrainingFailedError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%v: %v", ErrTrainingFailed, e.Cause)
	}
	return fmt.Sprintf("%v: %s: %v", ErrTrainingFailed, e.Model, e.Cause)
}

func (e *TrainingFailedError) Unwrap() error { return ErrTrainingFailed }

// Error constructors with context
func NewUnknownCategoryError(field, value string) error {
	return &UnknownCategoryError{Field: field, Value: value}
}

func NewSchemaMismatchError(field, reason string) error {
	return &SchemaMismatchError{Field: field, Reason: reason}
}

func NewInvalidInputError(field string, value float64, reason string) error {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

func NewMissingArtifactsError(missing ...string) error {
	return &ArtifactMismatchError{Missing: missing}
}

func NewArtifactMismatchError(format string, args ...interface{}) error {
	return &ArtifactMismatchError{Reason: fmt.Sprintf(format, args...)}
}

func NewTrainingFailedError(model string, cause error) error {
	return &TrainingFailedError{Model: model, Cause: cause}
}

func NewMalformedDatasetError(row int, column string, reason string) error {
	return fmt.Errorf("%w: row %d column %s: %s", ErrMalformedDataset, row, column, reason)
}

// Error checking helpers

// IsRefusal reports whether err is an inference-time refusal to predict.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrInvalidInput)
}

func IsArtifactError(err error) bool {
	return errors.Is(err, ErrArtifactMismatch) ||
		errors.Is(err, ErrArtifactUnavailable)
}
