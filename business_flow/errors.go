// Package businessflow contains the registration, abstract and identifier administration use cases
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/conference-registry/sequence"
)

// Business flow error constants
var (
	// Event-related errors
	ErrEventNotFound      = errors.New("event not found")
	ErrEventInactive      = errors.New("event is inactive")
	ErrEventCodeExists    = errors.New("event code already exists")
	ErrInvalidEventConfig = errors.New("invalid event identifier configuration")

	// Registration-related errors
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrPublicIDTaken        = errors.New("public ID already exists in this event")

	// Import-related errors
	ErrImportFileEmpty       = errors.New("import file has no data rows")
	ErrImportFileTooLarge    = errors.New("import file has too many rows")
	ErrImportFormatUnknown   = errors.New("unsupported import file format")
	ErrImportHeaderMalformed = errors.New("import file header is missing required columns")

	// Abstract-related errors
	ErrAbstractTitleRequired = errors.New("abstract title is required")
	ErrAbstractBodyRequired  = errors.New("abstract body is required")

	// Sequence-related errors
	ErrUnknownResourceKind = errors.New("unknown resource kind")

	// Pagination errors
	ErrInvalidPage     = errors.New("invalid page")
	ErrInvalidPageSize = errors.New("invalid page size")
)

// Error codes surfaced for identifier allocation failures
const (
	CodeNamespaceNotConfigured = "ID_NAMESPACE_NOT_CONFIGURED"
	CodeInvalidBlockSize       = "INVALID_ID_BLOCK_SIZE"
	CodeAllocationFailed       = "ID_ALLOCATION_FAILED"
	CodeNamespaceExhausted     = "ID_NAMESPACE_EXHAUSTED"
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// allocationError maps allocator errors to business errors. The sequence sentinel stays in the
// chain, so callers can still test with sequence.IsRetryable.
func allocationError(err error) error {
	switch {
	case sequence.IsNamespaceResolution(err):
		return NewBusinessError(CodeNamespaceNotConfigured, "Identifier settings for this event are missing or invalid", err)
	case sequence.IsInvalidCount(err):
		return NewBusinessError(CodeInvalidBlockSize, "Requested identifier block size is invalid", err)
	case errors.Is(err, sequence.ErrNamespaceExhausted):
		return NewBusinessError(CodeNamespaceExhausted, "No identifiers are left for this event and resource kind", err)
	case sequence.IsAllocationFailure(err):
		return NewBusinessError(CodeAllocationFailed, "Identifier allocation is temporarily unavailable, please retry", err)
	default:
		return NewBusinessError("ID_ALLOCATION_ERROR", "Identifier allocation failed", err)
	}
}

func IsEventNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}

func IsEventInactive(err error) bool {
	return errors.Is(err, ErrEventInactive)
}

func IsEventCodeExists(err error) bool {
	return errors.Is(err, ErrEventCodeExists)
}

func IsInvalidEventConfig(err error) bool {
	return errors.Is(err, ErrInvalidEventConfig)
}

func IsRegistrationNotFound(err error) bool {
	return errors.Is(err, ErrRegistrationNotFound)
}

func IsPublicIDTaken(err error) bool {
	return errors.Is(err, ErrPublicIDTaken)
}

func IsImportError(err error) bool {
	return errors.Is(err, ErrImportFileEmpty) ||
		errors.Is(err, ErrImportFileTooLarge) ||
		errors.Is(err, ErrImportFormatUnknown) ||
		errors.Is(err, ErrImportHeaderMalformed)
}

func IsUnknownResourceKind(err error) bool {
	return errors.Is(err, ErrUnknownResourceKind)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

// IsNamespaceNotConfigured reports an event without usable identifier settings
func IsNamespaceNotConfigured(err error) bool {
	return sequence.IsNamespaceResolution(err)
}

// IsAllocationUnavailable reports a transient identifier allocation failure
func IsAllocationUnavailable(err error) bool {
	return sequence.IsRetryable(err)
}
