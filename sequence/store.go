package sequence

import "context"

// Store is durable namespace -> integer counter storage.
//
// Every method is a single indivisible operation at the storage layer and is safe to call
// concurrently from any number of processes. A failed call leaves the counter unchanged.
type Store interface {
	// AtomicIncrement adds delta to the counter, creating it at baseline first when absent,
	// and returns the values before and after the increment.
	AtomicIncrement(ctx context.Context, namespace string, baseline, delta int64) (prev, next int64, err error)

	// ForceFloor raises the counter to floor when it is lower (creating it at floor when absent).
	// It never lowers a counter.
	ForceFloor(ctx context.Context, namespace string, floor int64) error

	// AdvanceFromFloor raises the counter to floor when it is lower or absent and then adds
	// delta, all in one step. prev is the healed value the delta was added to; healed reports
	// whether the floor replaced the stored value.
	AdvanceFromFloor(ctx context.Context, namespace string, floor, delta int64) (prev, next int64, healed bool, err error)

	// Current returns the stored value; ok is false when the namespace has never been used.
	Current(ctx context.Context, namespace string) (value int64, ok bool, err error)
}
