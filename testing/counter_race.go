package testing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

// CounterStore is the part of a sequence counter store RunFloorRace drives.
type CounterStore interface {
	AtomicIncrement(ctx context.Context, namespace string, baseline, delta int64) (int64, int64, error)
	ForceFloor(ctx context.Context, namespace string, floor int64) error
	AdvanceFromFloor(ctx context.Context, namespace string, floor, delta int64) (int64, int64, bool, error)
}

// RunFloorRace raises floors on namespace while other goroutines increment it, mixing
// AtomicIncrement and AdvanceFromFloor. Every returned value must be distinct, and an
// increment that started after a floor call returned must land above that floor.
func RunFloorRace(t *testing.T, store CounterStore, namespace string) {
	t.Helper()
	ctx := context.Background()

	const (
		floorWorkers     = 4
		incrementWorkers = 8
		rounds           = 20
	)

	type floorMark struct{ value, doneAt int64 }
	type increment struct{ next, startedAt int64 }

	var (
		clock  atomic.Int64
		mu     sync.Mutex
		floors []floorMark
		incs   []increment
		wg     sync.WaitGroup
	)

	for w := 0; w < floorWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 1; r <= rounds; r++ {
				floor := int64(r*100 + w)
				if err := store.ForceFloor(ctx, namespace, floor); err != nil {
					t.Errorf("force floor %d: %v", floor, err)
					return
				}
				mark := floorMark{value: floor, doneAt: clock.Add(1)}
				mu.Lock()
				floors = append(floors, mark)
				mu.Unlock()
			}
		}(w)
	}

	for w := 0; w < incrementWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				startedAt := clock.Add(1)
				var (
					next int64
					err  error
				)
				if (w+r)%2 == 0 {
					_, next, err = store.AtomicIncrement(ctx, namespace, 0, 1)
				} else {
					_, next, _, err = store.AdvanceFromFloor(ctx, namespace, 0, 1)
				}
				if err != nil {
					t.Errorf("increment: %v", err)
					return
				}
				mu.Lock()
				incs = append(incs, increment{next: next, startedAt: startedAt})
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[int64]bool, len(incs))
	for _, inc := range incs {
		assert.False(t, seen[inc.next], "value %d returned twice", inc.next)
		seen[inc.next] = true

		for _, f := range floors {
			if f.doneAt < inc.startedAt {
				assert.Greater(t, inc.next, f.value, "increment started after floor %d was raised", f.value)
			}
		}
	}
	assert.Len(t, incs, incrementWorkers*rounds)
}
