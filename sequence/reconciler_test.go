package sequence

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestCorrectedFloor(t *testing.T) {
	ctx := context.Background()
	ns := &NamespaceConfig{Namespace: "e1_registration_id", EventID: "e1", Kind: ResourceRegistration, Prefix: "REG", StartNumber: 1, PadWidth: 4}

	t.Run("NoRecordsUsesBaseline", func(t *testing.T) {
		r := NewReconciler(newFakeRecords(), NewMemoryStore(), nil, discardLogger())
		floor, highest, err := r.CorrectedFloor(ctx, ns)
		require.NoError(t, err)
		assert.Equal(t, int64(0), floor)
		assert.Nil(t, highest)
	})

	t.Run("HighestObservedWins", func(t *testing.T) {
		records := newFakeRecords()
		records.insert("e1", ResourceRegistration, "REG-0003", "REG-0050", "REGX-9999", "REG-X-1", "legacy-77")
		r := NewReconciler(records, NewMemoryStore(), nil, discardLogger())

		floor, highest, err := r.CorrectedFloor(ctx, ns)
		require.NoError(t, err)
		assert.Equal(t, int64(50), floor)
		assert.Equal(t, ptr(50), highest)
	})

	t.Run("BaselineAboveObserved", func(t *testing.T) {
		records := newFakeRecords()
		records.insert("e1", ResourceRegistration, "REG-0005")
		r := NewReconciler(records, NewMemoryStore(), nil, discardLogger())

		cfg := *ns
		cfg.StartNumber = 100
		floor, _, err := r.CorrectedFloor(ctx, &cfg)
		require.NoError(t, err)
		assert.Equal(t, int64(99), floor)
	})

	t.Run("ScanFailure", func(t *testing.T) {
		records := newFakeRecords()
		records.err = errors.New("db down")
		r := NewReconciler(records, NewMemoryStore(), nil, discardLogger())

		_, _, err := r.CorrectedFloor(ctx, ns)
		assert.True(t, IsAllocationFailure(err))
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	ns := &NamespaceConfig{Namespace: "e1_registration_id", EventID: "e1", Kind: ResourceRegistration, Prefix: "REG", StartNumber: 1, PadWidth: 4}

	t.Run("HealsDriftedCounter", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.ForceFloor(ctx, ns.Namespace, 3))
		records := newFakeRecords()
		records.insert("e1", ResourceRegistration, "REG-0001", "REG-0002", "REG-0003", "REG-0050")

		report, err := NewReconciler(records, store, nil, discardLogger()).Reconcile(ctx, ns)
		require.NoError(t, err)
		assert.True(t, report.Healed)
		assert.Equal(t, ptr(3), report.StoredBefore)
		assert.Equal(t, ptr(50), report.HighestObserved)
		assert.Equal(t, int64(50), report.Floor)

		v, _, err := store.Current(ctx, ns.Namespace)
		require.NoError(t, err)
		assert.Equal(t, int64(50), v)
	})

	t.Run("NeverLowersCounter", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.ForceFloor(ctx, ns.Namespace, 80))
		records := newFakeRecords()
		records.insert("e1", ResourceRegistration, "REG-0050")

		report, err := NewReconciler(records, store, nil, discardLogger()).Reconcile(ctx, ns)
		require.NoError(t, err)
		assert.False(t, report.Healed)

		v, _, err := store.Current(ctx, ns.Namespace)
		require.NoError(t, err)
		assert.Equal(t, int64(80), v)
	})

	t.Run("InitializesMissingCounter", func(t *testing.T) {
		store := NewMemoryStore()
		report, err := NewReconciler(newFakeRecords(), store, nil, discardLogger()).Reconcile(ctx, ns)
		require.NoError(t, err)
		assert.Nil(t, report.StoredBefore)
		assert.False(t, report.Healed)

		v, ok, err := store.Current(ctx, ns.Namespace)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(0), v)
	})
}
