package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/conference-registry/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceCounterRepositoryImpl keeps identifier counters in the sequence_counters table.
// Every operation runs against r.DB and ignores any transaction carried by ctx: a counter
// row must never stay locked for the lifetime of a caller's transaction.
type SequenceCounterRepositoryImpl struct {
	*BaseRepository[models.SequenceCounter, struct{}]
}

// NewSequenceCounterRepository creates a new sequence counter repository
func NewSequenceCounterRepository(db *gorm.DB) SequenceCounterRepository {
	return &SequenceCounterRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SequenceCounter, struct{}](db),
	}
}

type counterRow struct {
	LastValue int64
}

// AtomicIncrement adds delta to the namespace counter, creating it at baseline first if absent
func (r *SequenceCounterRepositoryImpl) AtomicIncrement(ctx context.Context, namespace string, baseline, delta int64) (int64, int64, error) {
	var row counterRow
	err := r.DB.WithContext(ctx).Raw(`
		INSERT INTO sequence_counters (namespace, last_value, created_at, updated_at)
		VALUES (@namespace, CAST(@baseline AS BIGINT) + CAST(@delta AS BIGINT),
		        CURRENT_TIMESTAMP AT TIME ZONE 'UTC', CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
		ON CONFLICT (namespace) DO UPDATE
		SET last_value = sequence_counters.last_value + CAST(@delta AS BIGINT),
		    updated_at = CURRENT_TIMESTAMP AT TIME ZONE 'UTC'
		RETURNING last_value
	`, map[string]any{"namespace": namespace, "baseline": baseline, "delta": delta}).Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment sequence counter %s: %w", namespace, err)
	}
	return row.LastValue - delta, row.LastValue, nil
}

// AdvanceFromFloor raises the counter to floor if it is lower (or absent) and adds delta.
// The row is locked before the upsert, in a short transaction of its own, so no other
// allocation can observe the intermediate value and healed reflects the value replaced.
func (r *SequenceCounterRepositoryImpl) AdvanceFromFloor(ctx context.Context, namespace string, floor, delta int64) (int64, int64, bool, error) {
	var (
		row    counterRow
		healed bool
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior []int64
		if err := tx.Raw(`SELECT last_value FROM sequence_counters WHERE namespace = ? FOR UPDATE`, namespace).
			Scan(&prior).Error; err != nil {
			return err
		}
		healed = len(prior) == 0 || prior[0] < floor

		return tx.Raw(`
			INSERT INTO sequence_counters (namespace, last_value, created_at, updated_at)
			VALUES (@namespace, CAST(@floor AS BIGINT) + CAST(@delta AS BIGINT),
			        CURRENT_TIMESTAMP AT TIME ZONE 'UTC', CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
			ON CONFLICT (namespace) DO UPDATE
			SET last_value = GREATEST(sequence_counters.last_value, CAST(@floor AS BIGINT)) + CAST(@delta AS BIGINT),
			    updated_at = CURRENT_TIMESTAMP AT TIME ZONE 'UTC'
			RETURNING last_value
		`, map[string]any{"namespace": namespace, "floor": floor, "delta": delta}).Scan(&row).Error
	})
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to advance sequence counter %s: %w", namespace, err)
	}
	return row.LastValue - delta, row.LastValue, healed, nil
}

// ForceFloor sets the counter to max(current, floor); it never lowers a counter
func (r *SequenceCounterRepositoryImpl) ForceFloor(ctx context.Context, namespace string, floor int64) error {
	counter := &models.SequenceCounter{Namespace: namespace, LastValue: floor}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "namespace"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_value": clause.Expr{SQL: "GREATEST(sequence_counters.last_value, EXCLUDED.last_value)"},
			"updated_at": clause.Expr{SQL: "CURRENT_TIMESTAMP AT TIME ZONE 'UTC'"},
		}),
	}).Create(counter).Error
	if err != nil {
		return fmt.Errorf("failed to force floor on sequence counter %s: %w", namespace, err)
	}
	return nil
}

// Current returns the stored counter value, with ok=false when the namespace has none
func (r *SequenceCounterRepositoryImpl) Current(ctx context.Context, namespace string) (int64, bool, error) {
	counter, err := r.ByNamespace(ctx, namespace)
	if err != nil {
		return 0, false, err
	}
	if counter == nil {
		return 0, false, nil
	}
	return counter.LastValue, true, nil
}

// ByNamespace retrieves a counter row by namespace
func (r *SequenceCounterRepositoryImpl) ByNamespace(ctx context.Context, namespace string) (*models.SequenceCounter, error) {
	var counter models.SequenceCounter
	err := r.DB.WithContext(ctx).Where("namespace = ?", namespace).First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sequence counter %s: %w", namespace, err)
	}
	return &counter, nil
}
