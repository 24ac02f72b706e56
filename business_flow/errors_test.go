package businessflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amirphl/conference-registry/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"NamespaceResolution", fmt.Errorf("%w: event e1 not found", sequence.ErrNamespaceResolution), CodeNamespaceNotConfigured, false},
		{"InvalidCount", fmt.Errorf("%w: 0", sequence.ErrInvalidCount), CodeInvalidBlockSize, false},
		{"AllocationFailure", fmt.Errorf("%w: advance ns: redis down", sequence.ErrAllocationFailure), CodeAllocationFailed, true},
		{"Exhausted", fmt.Errorf("%w: advance ns: %w", sequence.ErrAllocationFailure, sequence.ErrNamespaceExhausted), CodeNamespaceExhausted, false},
		{"Unclassified", errors.New("boom"), "ID_ALLOCATION_ERROR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := allocationError(tt.err)

			var be *BusinessError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.code, be.Code)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.retryable, sequence.IsRetryable(err))
		})
	}

	assert.True(t, IsNamespaceNotConfigured(allocationError(fmt.Errorf("%w: x", sequence.ErrNamespaceResolution))))
	assert.True(t, IsAllocationUnavailable(allocationError(fmt.Errorf("%w: x", sequence.ErrAllocationFailure))))
}

func TestNormalizePage(t *testing.T) {
	page, limit, err := normalizePage(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	_, _, err = normalizePage(-1, 10)
	assert.True(t, IsInvalidPage(err))

	_, _, err = normalizePage(1, 101)
	assert.True(t, IsInvalidPageSize(err))
}
