package sequence

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	// DefaultStoreTimeout bounds every store and scan call made by the allocator.
	DefaultStoreTimeout = 3 * time.Second

	// DefaultMaxBlockSize caps a single block reservation.
	DefaultMaxBlockSize = 10000
)

// Block is a contiguous range [First, Last] reserved for one caller.
type Block struct {
	Namespace string
	Prefix    string
	PadWidth  int
	First     int64
	Last      int64
}

func (b Block) Count() int64 {
	return b.Last - b.First + 1
}

// IDs renders every number of the block in order.
func (b Block) IDs() ([]string, error) {
	return FormatRange(b.Prefix, b.First, int(b.Count()), b.PadWidth)
}

type Option func(*Allocator)

func WithStoreTimeout(d time.Duration) Option {
	return func(a *Allocator) {
		if d > 0 {
			a.storeTimeout = d
		}
	}
}

func WithMaxBlockSize(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxBlockSize = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *Allocator) {
		a.metrics = m
	}
}

// Allocator issues identifiers. It holds no counter state of its own: uniqueness comes from
// the Store, so any number of Allocator instances may share one Store.
type Allocator struct {
	resolver   *Resolver
	reconciler *Reconciler
	store      Store

	storeTimeout time.Duration
	maxBlockSize int
	logger       *log.Logger
	metrics      *Metrics
}

func NewAllocator(source ConfigSource, scanner RecordScanner, store Store, opts ...Option) *Allocator {
	a := &Allocator{
		resolver:     NewResolver(source),
		store:        store,
		storeTimeout: DefaultStoreTimeout,
		maxBlockSize: DefaultMaxBlockSize,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.reconciler = NewReconciler(scanner, store, a.metrics, a.logger)
	return a
}

func (a *Allocator) Resolver() *Resolver {
	return a.resolver
}

func (a *Allocator) Reconciler() *Reconciler {
	return a.reconciler
}

// NextNumber allocates one number for the (event, kind) namespace.
func (a *Allocator) NextNumber(ctx context.Context, eventID string, kind ResourceKind) (int64, error) {
	b, err := a.advance(ctx, eventID, kind, 1, 0, "single")
	if err != nil {
		return 0, err
	}
	return b.First, nil
}

// ReserveBlock reserves count contiguous numbers. The caller owns every number of the
// returned block and may assign them to new records without further coordination.
func (a *Allocator) ReserveBlock(ctx context.Context, eventID string, kind ResourceKind, count int) (*Block, error) {
	return a.ReserveBlockAbove(ctx, eventID, kind, count, 0)
}

// ReserveBlockAbove is ReserveBlock with an extra floor: every reserved number is greater
// than above. Callers that are about to store records carrying explicit numbers pass the
// highest of those numbers so the block cannot collide with them.
func (a *Allocator) ReserveBlockAbove(ctx context.Context, eventID string, kind ResourceKind, count int, above int64) (*Block, error) {
	if count <= 0 {
		err := fmt.Errorf("%w: count must be positive, got %d", ErrInvalidCount, count)
		a.metrics.observeFailure(kind, err)
		return nil, err
	}
	if count > a.maxBlockSize {
		err := fmt.Errorf("%w: count %d exceeds maximum block size %d", ErrInvalidCount, count, a.maxBlockSize)
		a.metrics.observeFailure(kind, err)
		return nil, err
	}
	return a.advance(ctx, eventID, kind, int64(count), above, "block")
}

// AllocateNext returns the next formatted identifier, e.g. "REG-0007".
func (a *Allocator) AllocateNext(ctx context.Context, eventID string, kind ResourceKind) (string, error) {
	b, err := a.advance(ctx, eventID, kind, 1, 0, "single")
	if err != nil {
		return "", err
	}
	return Format(b.Prefix, b.First, b.PadWidth)
}

// AllocateBlock returns count contiguous formatted identifiers.
func (a *Allocator) AllocateBlock(ctx context.Context, eventID string, kind ResourceKind, count int) ([]string, error) {
	return a.AllocateBlockAbove(ctx, eventID, kind, count, 0)
}

// AllocateBlockAbove returns count contiguous formatted identifiers numbered above above.
func (a *Allocator) AllocateBlockAbove(ctx context.Context, eventID string, kind ResourceKind, count int, above int64) ([]string, error) {
	b, err := a.ReserveBlockAbove(ctx, eventID, kind, count, above)
	if err != nil {
		return nil, err
	}
	return b.IDs()
}

// advance resolves the namespace, computes the reconciled floor and advances the counter by
// delta in one atomic store step, so drift healing cannot interleave with other allocations.
func (a *Allocator) advance(ctx context.Context, eventID string, kind ResourceKind, delta, above int64, mode string) (*Block, error) {
	start := time.Now()
	b, err := a.doAdvance(ctx, eventID, kind, delta, above)
	if err != nil {
		a.metrics.observeFailure(kind, err)
		if IsAllocationFailure(err) {
			a.logger.Printf("sequence: %s allocation for event %s kind %s failed: %v", mode, eventID, kind, err)
		}
		return nil, err
	}
	a.metrics.observeAllocation(kind, mode, delta, time.Since(start))
	return b, nil
}

func (a *Allocator) doAdvance(ctx context.Context, eventID string, kind ResourceKind, delta, above int64) (*Block, error) {
	rctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	ns, err := a.resolver.Resolve(rctx, eventID, kind)
	cancel()
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	floor, _, err := a.reconciler.CorrectedFloor(sctx, ns)
	cancel()
	if err != nil {
		return nil, err
	}
	scanned := floor
	if above > floor {
		floor = above
	}
	if floor > MaxNumber-delta {
		return nil, allocationFailure("advance", ns.Namespace, fmt.Errorf("%w: floor %d leaves no room for %d more", ErrNamespaceExhausted, floor, delta))
	}

	actx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	prev, next, healed, err := a.store.AdvanceFromFloor(actx, ns.Namespace, floor, delta)
	cancel()
	if err != nil {
		return nil, allocationFailure("advance", ns.Namespace, err)
	}
	if next-prev != delta {
		return nil, allocationFailure("advance", ns.Namespace, fmt.Errorf("store returned range (%d, %d] for delta %d", prev, next, delta))
	}
	if next > MaxNumber {
		return nil, allocationFailure("advance", ns.Namespace, fmt.Errorf("%w: counter reached %d", ErrNamespaceExhausted, next))
	}
	// Drift only when the scanned floor won; a counter created at the baseline is a first use.
	if healed && floor == scanned && scanned > ns.Baseline() {
		a.metrics.observeHeal(kind)
		a.logger.Printf("sequence: counter %s was behind, advanced from floor %d", ns.Namespace, floor)
	}

	return &Block{
		Namespace: ns.Namespace,
		Prefix:    ns.Prefix,
		PadWidth:  ns.PadWidth,
		First:     prev + 1,
		Last:      next,
	}, nil
}

// Peek reports the stored counter and the number the next single allocation would return,
// without allocating. Used for inspection only; the answer can be stale immediately.
func (a *Allocator) Peek(ctx context.Context, eventID string, kind ResourceKind) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()

	ns, err := a.resolver.Resolve(ctx, eventID, kind)
	if err != nil {
		return nil, err
	}
	stored, ok, err := a.store.Current(ctx, ns.Namespace)
	if err != nil {
		return nil, allocationFailure("read", ns.Namespace, err)
	}
	floor, highest, err := a.reconciler.CorrectedFloor(ctx, ns)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Config: *ns, HighestObserved: highest, Floor: floor}
	next := floor
	if ok {
		snap.Stored = &stored
		if stored > next {
			next = stored
		}
	}
	snap.NextNumber = next + 1
	snap.NextID, err = Format(ns.Prefix, snap.NextNumber, ns.PadWidth)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Snapshot is a point-in-time view of one namespace.
type Snapshot struct {
	Config          NamespaceConfig
	Stored          *int64
	HighestObserved *int64
	Floor           int64
	NextNumber      int64
	NextID          string
}

// Reconcile resolves the namespace and applies an explicit heal.
func (a *Allocator) Reconcile(ctx context.Context, eventID string, kind ResourceKind) (*ReconcileReport, error) {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()

	ns, err := a.resolver.Resolve(ctx, eventID, kind)
	if err != nil {
		return nil, err
	}
	return a.reconciler.Reconcile(ctx, ns)
}
