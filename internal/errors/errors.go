package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"cropyield/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code is taken from the
// innermost classified error when there is one.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the first AppError in the chain, else the
// code of the domain error it wraps, else INTERNAL_ERROR.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code != "" && appErr.Code != CodeInternalError {
		return appErr.Code
	}
	for _, k := range kinds {
		if stderrors.Is(err, k.sentinel) {
			return k.code
		}
	}
	return CodeInternalError
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"

	CodeEmptyDataset        = "EMPTY_DATASET"
	CodeDatasetNotFound     = "DATASET_NOT_FOUND"
	CodeMalformedDataset    = "MALFORMED_DATASET"
	CodeTrainingFailed      = "TRAINING_FAILED"
	CodeArtifactMismatch    = "ARTIFACT_MISMATCH"
	CodeArtifactUnavailable = "ARTIFACT_UNAVAILABLE"
	CodeUnknownCategory     = "UNKNOWN_CATEGORY"
	CodeSchemaMismatch      = "SCHEMA_MISMATCH"
)

type kindEntry struct {
	sentinel error
	kind     string
	code     string
}

// kinds is checked in order; ArtifactUnavailable wraps its load failure and
// must win over it.
var kinds = []kindEntry{
	{core.ErrArtifactUnavailable, "ArtifactUnavailableError", CodeArtifactUnavailable},
	{core.ErrArtifactMismatch, "ArtifactMismatchError", CodeArtifactMismatch},
	{core.ErrUnknownCategory, "UnknownCategoryError", CodeUnknownCategory},
	{core.ErrSchemaMismatch, "SchemaMismatchError", CodeSchemaMismatch},
	{core.ErrInvalidInput, "InvalidInputError", CodeInvalidInput},
	{core.ErrEmptyDataset, "EmptyDatasetError", CodeEmptyDataset},
	{core.ErrDatasetNotFound, "DatasetNotFoundError", CodeDatasetNotFound},
	{core.ErrMalformedDataset, "MalformedDatasetError", CodeMalformedDataset},
	{core.ErrTrainingFailed, "TrainingFailedError", CodeTrainingFailed},
}

// Kind names the error taxonomy entry err belongs to.
func Kind(err error) string {
	for _, k := range kinds {
		if stderrors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		switch appErr.Code {
		case CodeUnauthorized:
			return "Unauthorized"
		case CodeConfigInvalid:
			return "ConfigInvalid"
		case CodeValidationError, CodeInvalidInput:
			return "InvalidRequest"
		}
	}
	return "InternalError"
}

// Detail is the caller-facing description of an error.
type Detail struct {
	Kind     string   `json:"kind"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Field    string   `json:"field,omitempty"`
	Value    any      `json:"value,omitempty"`
	Artifact []string `json:"artifact,omitempty"`
}

// Describe extracts the kind, code and diagnostic context from err.
func Describe(err error) Detail {
	d := Detail{Kind: Kind(err), Code: GetCode(err), Message: err.Error()}

	var uc *core.UnknownCategoryError
	var sm *core.SchemaMismatchError
	var ii *core.InvalidInputError
	var am *core.ArtifactMismatchError
	switch {
	case stderrors.As(err, &uc):
		d.Field, d.Value = uc.Field, uc.Value
	case stderrors.As(err, &sm):
		d.Field = sm.Field
	case stderrors.As(err, &ii):
		d.Field = ii.Field
		d.Value = formatValue(ii.Value)
	case stderrors.As(err, &am):
		d.Artifact = am.Missing
	}
	return d
}

// formatValue keeps non-finite numbers JSON-encodable.
func formatValue(v float64) any {
	s := fmt.Sprintf("%g", v)
	if strings.Contains(s, "Inf") || strings.Contains(s, "NaN") {
		return s
	}
	return v
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
