package sequence

import (
	"context"
	"log"
)

// RecordScanner scans the system of record for identifiers already issued under prefix.
// It returns the highest numeric suffix among identifiers that fully match
// SuffixPattern(prefix), or nil when none match.
type RecordScanner interface {
	ScanHighestIssued(ctx context.Context, eventID string, kind ResourceKind, prefix string) (*int64, error)
}

// ReconcileReport describes one explicit reconciliation.
type ReconcileReport struct {
	Namespace       string
	StoredBefore    *int64
	HighestObserved *int64
	Floor           int64
	Healed          bool
}

// Reconciler keeps the stored counter ahead of every identifier present in the system of
// record, including identifiers inserted without going through the allocator.
type Reconciler struct {
	scanner RecordScanner
	store   Store
	metrics *Metrics
	logger  *log.Logger
}

func NewReconciler(scanner RecordScanner, store Store, metrics *Metrics, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{scanner: scanner, store: store, metrics: metrics, logger: logger}
}

// CorrectedFloor returns max(highestObserved, startNumber-1): the lowest value the counter
// may hold so that the next increment exceeds every identifier already present.
func (r *Reconciler) CorrectedFloor(ctx context.Context, ns *NamespaceConfig) (int64, *int64, error) {
	highest, err := r.scanner.ScanHighestIssued(ctx, ns.EventID, ns.Kind, ns.Prefix)
	if err != nil {
		return 0, nil, allocationFailure("scan", ns.Namespace, err)
	}
	floor := ns.Baseline()
	if highest != nil && *highest > floor {
		floor = *highest
	}
	return floor, highest, nil
}

// Reconcile computes the corrected floor and applies it with Store.ForceFloor.
// The allocator does not call this: it folds the floor into its increment instead.
// Reconcile serves explicit healing (admin requests and the background scheduler).
func (r *Reconciler) Reconcile(ctx context.Context, ns *NamespaceConfig) (*ReconcileReport, error) {
	before, ok, err := r.store.Current(ctx, ns.Namespace)
	if err != nil {
		return nil, allocationFailure("read", ns.Namespace, err)
	}
	floor, highest, err := r.CorrectedFloor(ctx, ns)
	if err != nil {
		return nil, err
	}
	if err := r.store.ForceFloor(ctx, ns.Namespace, floor); err != nil {
		return nil, allocationFailure("force floor", ns.Namespace, err)
	}

	report := &ReconcileReport{
		Namespace:       ns.Namespace,
		HighestObserved: highest,
		Floor:           floor,
	}
	if ok {
		report.StoredBefore = &before
		report.Healed = before < floor
	}
	if report.Healed {
		r.metrics.observeHeal(ns.Kind)
		r.logger.Printf("sequence: healed %s from %d to %d", ns.Namespace, before, floor)
	}
	return report, nil
}
