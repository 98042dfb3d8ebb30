package domain

import (
	"errors"
	"fmt"
)

// pipeline error kinds, match with errors.Is
var (
	ErrEnvironmentUnsupported = errors.New("environment unsupported")
	ErrEngineLoadFailed       = errors.New("engine load failed")
	ErrEngineInitFailed       = errors.New("engine init failed")
	ErrInvalidRange           = errors.New("invalid trim range")
	ErrStageWriteFailed       = errors.New("stage write failed")
	ErrCommandFailed          = errors.New("command failed")
	ErrOutputReadFailed       = errors.New("output read failed")
	ErrEmptyInput             = errors.New("no clips to merge")
	ErrFetchFailed            = errors.New("clip fetch failed")
	ErrInvalidBackground      = errors.New("invalid background file")
	ErrLocatorNotAllowed      = errors.New("clip locator not allowed")
)

// PipelineError 每個 operation 只往外拋一次的錯誤
type PipelineError struct {
	Op    Operation
	Phase Phase
	Kind  error
	Err   error
	// Warnings 失敗後清理產生的非致命錯誤
	Warnings []string
}

// Error human-readable summary, prefixed by the failing operation
func (e *PipelineError) Error() string {
	cause := e.Kind
	if e.Err != nil {
		cause = e.Err
	}
	if cause == nil {
		return e.Op.FailurePrefix()
	}
	return fmt.Sprintf("%s: %v", e.Op.FailurePrefix(), cause)
}

// Unwrap exposes both the kind and the underlying error
func (e *PipelineError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewPipelineError build a PipelineError
func NewPipelineError(op Operation, phase Phase, kind, err error) *PipelineError {
	return &PipelineError{Op: op, Phase: phase, Kind: kind, Err: err}
}

// IsCallerError reports kinds caused by bad input rather than the engine or network
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInvalidBackground) ||
		errors.Is(err, ErrLocatorNotAllowed)
}

// IsEngineUnavailable reports kinds raised while acquiring the engine
func IsEngineUnavailable(err error) bool {
	return errors.Is(err, ErrEnvironmentUnsupported) ||
		errors.Is(err, ErrEngineLoadFailed) ||
		errors.Is(err, ErrEngineInitFailed)
}
