// Package scheduler runs background maintenance jobs
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/amirphl/conference-registry/models"
	"github.com/amirphl/conference-registry/sequence"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EventLister lists the events whose counters are kept reconciled
type EventLister interface {
	ListActive(ctx context.Context) ([]*models.Event, error)
}

// CounterReconciler heals one identifier counter
type CounterReconciler interface {
	Reconcile(ctx context.Context, eventID string, kind sequence.ResourceKind) (*sequence.ReconcileReport, error)
}

// ReconcileScheduler periodically raises every active event's identifier counters past the
// highest identifier present in storage, so drift from manual inserts is healed before the
// next allocation has to do it inline.
type ReconcileScheduler struct {
	events      EventLister
	reconciler  CounterReconciler
	logger      *log.Logger
	interval    time.Duration
	concurrency int

	logFile io.Closer
}

func NewReconcileScheduler(events EventLister, reconciler CounterReconciler, logger *log.Logger, interval time.Duration, concurrency int) *ReconcileScheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReconcileScheduler{
		events:      events,
		reconciler:  reconciler,
		logger:      logger,
		interval:    interval,
		concurrency: concurrency,
	}
}

// WithLogDir makes the scheduler log to stdout and a rotated file under dir
func (s *ReconcileScheduler) WithLogDir(dir string) *ReconcileScheduler {
	if dir == "" {
		return s
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Printf("scheduler: failed to create log dir %s: %v", dir, err)
		return s
	}
	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "reconcile_scheduler.log"),
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	s.logFile = rotating
	s.logger = log.New(io.MultiWriter(os.Stdout, rotating), "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	return s
}

// Start launches the reconcile loop in a background goroutine and returns a stop function
func (s *ReconcileScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
		if s.logFile != nil {
			_ = s.logFile.Close()
		}
	}
}

// runOnce reconciles both counters of every active event. A failing namespace is logged and
// does not stop the others.
func (s *ReconcileScheduler) runOnce(ctx context.Context) (healed, failed int) {
	events, err := s.events.ListActive(ctx)
	if err != nil {
		s.logger.Printf("scheduler: list active events failed: %v", err)
		return 0, 0
	}

	var healedCount, failedCount atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, event := range events {
		eventID := event.UUID.String()
		for _, kind := range sequence.ResourceKinds {
			g.Go(func() error {
				report, err := s.reconciler.Reconcile(gctx, eventID, kind)
				if err != nil {
					failedCount.Add(1)
					s.logger.Printf("scheduler: reconcile %s/%s failed: %v", eventID, kind, err)
					return nil
				}
				if report.Healed {
					healedCount.Add(1)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	healed, failed = int(healedCount.Load()), int(failedCount.Load())
	s.logger.Printf("scheduler: reconciled %d events, %d counters healed, %d failed", len(events), healed, failed)
	return healed, failed
}
