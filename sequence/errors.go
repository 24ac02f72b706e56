// Package sequence issues unique, monotonically increasing, human readable identifiers
// (REG-0007, ABS-EVT-00012) for registrations and abstracts.
package sequence

import (
	"context"
	"errors"
	"fmt"
)

// Allocation error classes. Every error returned by the allocator wraps exactly one of these.
var (
	// ErrNamespaceResolution means the event is missing or has no usable ID configuration.
	// Not retryable until an administrator fixes the configuration.
	ErrNamespaceResolution = errors.New("namespace resolution failed")

	// ErrInvalidCount means a block reservation was requested with count <= 0.
	ErrInvalidCount = errors.New("invalid block count")

	// ErrAllocationFailure means the counter store or the system of record could not be
	// reached, rejected the write, or timed out. No number was consumed; safe to retry.
	ErrAllocationFailure = errors.New("allocation failure")

	// ErrInvalidNumber is returned by Format for numbers outside [1, MaxNumber].
	ErrInvalidNumber = errors.New("number out of range")

	// ErrNamespaceExhausted is wrapped together with ErrAllocationFailure when an allocation
	// would pass MaxNumber. Retrying does not help.
	ErrNamespaceExhausted = errors.New("namespace exhausted")
)

func IsNamespaceResolution(err error) bool {
	return errors.Is(err, ErrNamespaceResolution)
}

func IsInvalidCount(err error) bool {
	return errors.Is(err, ErrInvalidCount)
}

func IsAllocationFailure(err error) bool {
	return errors.Is(err, ErrAllocationFailure)
}

// IsRetryable reports whether the caller may retry the whole create operation unchanged.
func IsRetryable(err error) bool {
	return IsAllocationFailure(err) && !errors.Is(err, ErrNamespaceExhausted)
}

// errorClass returns a low-cardinality label for metrics.
func errorClass(err error) string {
	switch {
	case IsNamespaceResolution(err):
		return "namespace_resolution"
	case IsInvalidCount(err):
		return "invalid_count"
	case IsAllocationFailure(err):
		return "allocation_failure"
	default:
		return "unknown"
	}
}

func allocationFailure(op, namespace string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: timed out: %w", ErrAllocationFailure, op, namespace, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrAllocationFailure, op, namespace, err)
}
