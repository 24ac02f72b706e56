package sequence

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEvent = "evt-1"

func newTestAllocator(t *testing.T, store Store, opts ...Option) (*Allocator, *fakeSource, *fakeRecords) {
	t.Helper()
	source := newFakeSource().
		set(testEvent, ResourceRegistration, IDSettings{Prefix: "REG", StartNumber: 1, PadWidth: 4}).
		set(testEvent, ResourceAbstract, IDSettings{Prefix: "ABS-EVT", StartNumber: 1, PadWidth: 5}).
		set("evt-2", ResourceRegistration, IDSettings{Prefix: "REG", StartNumber: 1, PadWidth: 4}).
		set("evt-100", ResourceRegistration, IDSettings{Prefix: "REG", StartNumber: 100, PadWidth: 4})
	records := newFakeRecords()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return NewAllocator(source, records, store, opts...), source, records
}

func TestAllocateNext(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstAllocation", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore())
		id, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
		require.NoError(t, err)
		assert.Equal(t, "REG-0001", id)
	})

	t.Run("SequentialAllocations", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore())
		for want := int64(1); want <= 5; want++ {
			n, err := a.NextNumber(ctx, testEvent, ResourceRegistration)
			require.NoError(t, err)
			assert.Equal(t, want, n)
		}
	})

	t.Run("CustomStartNumber", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore())
		id, err := a.AllocateNext(ctx, "evt-100", ResourceRegistration)
		require.NoError(t, err)
		assert.Equal(t, "REG-0100", id)

		id, err = a.AllocateNext(ctx, "evt-100", ResourceRegistration)
		require.NoError(t, err)
		assert.Equal(t, "REG-0101", id)
	})

	t.Run("AbstractNamespace", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore())
		id, err := a.AllocateNext(ctx, testEvent, ResourceAbstract)
		require.NoError(t, err)
		assert.Equal(t, "ABS-EVT-00001", id)
	})

	t.Run("NamespacesAreIndependent", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore())
		for i := 0; i < 3; i++ {
			_, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
			require.NoError(t, err)
		}

		id, err := a.AllocateNext(ctx, testEvent, ResourceAbstract)
		require.NoError(t, err)
		assert.Equal(t, "ABS-EVT-00001", id)

		id, err = a.AllocateNext(ctx, "evt-2", ResourceRegistration)
		require.NoError(t, err)
		assert.Equal(t, "REG-0001", id)
	})

	t.Run("WiderThanPad", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.ForceFloor(ctx, NamespaceKey(testEvent, ResourceRegistration), 9999))
		a, _, _ := newTestAllocator(t, store)

		id, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
		require.NoError(t, err)
		assert.Equal(t, "REG-10000", id)
	})
}

func TestAllocateNextHealsDrift(t *testing.T) {
	ctx := context.Background()
	a, _, records := newTestAllocator(t, NewMemoryStore())

	for i := 0; i < 3; i++ {
		id, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
		require.NoError(t, err)
		records.insert(testEvent, ResourceRegistration, id)
	}

	// Inserted directly, bypassing the allocator.
	records.insert(testEvent, ResourceRegistration, "REG-0050")

	id, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.Equal(t, "REG-0051", id)
}

func TestAllocateNextIgnoresForeignPrefixes(t *testing.T) {
	ctx := context.Background()
	a, _, records := newTestAllocator(t, NewMemoryStore())
	records.insert(testEvent, ResourceRegistration, "REGX-0900", "REG-X-1", "REG-ABC", "VIP-0500")

	id, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.Equal(t, "REG-0001", id)
}

func TestReserveBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("ContiguousAfterSingles", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore())
		for i := 0; i < 3; i++ {
			_, err := a.NextNumber(ctx, testEvent, ResourceRegistration)
			require.NoError(t, err)
		}

		b, err := a.ReserveBlock(ctx, testEvent, ResourceRegistration, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(4), b.First)
		assert.Equal(t, int64(13), b.Last)
		assert.Equal(t, int64(10), b.Count())

		n, err := a.NextNumber(ctx, testEvent, ResourceRegistration)
		require.NoError(t, err)
		assert.Equal(t, int64(14), n)
	})

	t.Run("FormattedBlock", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore())
		ids, err := a.AllocateBlock(ctx, testEvent, ResourceRegistration, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"REG-0001", "REG-0002", "REG-0003"}, ids)
	})

	t.Run("BlockOfOneMatchesNext", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore())
		b, err := a.ReserveBlock(ctx, testEvent, ResourceRegistration, 1)
		require.NoError(t, err)
		assert.Equal(t, b.First, b.Last)
		assert.Equal(t, int64(1), b.First)
	})

	t.Run("BlockHealsDrift", func(t *testing.T) {
		a, _, records := newTestAllocator(t, NewMemoryStore())
		records.insert(testEvent, ResourceRegistration, "REG-0020")

		b, err := a.ReserveBlock(ctx, testEvent, ResourceRegistration, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(21), b.First)
		assert.Equal(t, int64(25), b.Last)
	})

	for _, count := range []int{0, -3} {
		t.Run("InvalidCount", func(t *testing.T) {
			store := &scriptedStore{Store: NewMemoryStore()}
			a, _, _ := newTestAllocator(t, store)
			_, err := a.NextNumber(ctx, testEvent, ResourceRegistration)
			require.NoError(t, err)

			_, err = a.AllocateBlock(ctx, testEvent, ResourceRegistration, count)
			assert.ErrorIs(t, err, ErrInvalidCount)
			assert.False(t, IsRetryable(err))
			assert.Equal(t, int64(1), store.advances.Load())

			v, _, err := store.Current(ctx, NamespaceKey(testEvent, ResourceRegistration))
			require.NoError(t, err)
			assert.Equal(t, int64(1), v)
		})
	}

	t.Run("AboveMaximum", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore(), WithMaxBlockSize(10))
		_, err := a.ReserveBlock(ctx, testEvent, ResourceRegistration, 11)
		assert.ErrorIs(t, err, ErrInvalidCount)
	})
}

func TestCounterSurvivesAllocatorRestart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, _, _ := newTestAllocator(t, store)
	for i := 0; i < 5; i++ {
		_, err := first.NextNumber(ctx, testEvent, ResourceRegistration)
		require.NoError(t, err)
	}

	second, _, _ := newTestAllocator(t, store)
	n, err := second.NextNumber(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestConcurrentAllocationsAreUnique(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Two allocator instances over one store stand in for two service replicas.
	a1, _, records := newTestAllocator(t, store)
	a2 := NewAllocator(a1.resolver.source, records, store, WithLogger(discardLogger()))

	const workers = 50
	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := a1
			if i%2 == 1 {
				a = a2
			}
			n, err := a.NextNumber(ctx, testEvent, ResourceRegistration)
			if !assert.NoError(t, err) {
				return
			}
			id, err := Format("REG", n, 4)
			if !assert.NoError(t, err) {
				return
			}
			records.insert(testEvent, ResourceRegistration, id)
			results <- n
		}(i)
	}
	wg.Wait()
	close(results)

	var got []int64
	for n := range results {
		got = append(got, n)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	require.Len(t, got, workers)
	for i, n := range got {
		assert.Equal(t, int64(i+1), n)
	}
}

func TestConcurrentBlocksAreExclusive(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestAllocator(t, NewMemoryStore())

	const (
		blockWorkers  = 20
		blockSize     = 5
		singleWorkers = 20
	)

	var (
		mu   sync.Mutex
		seen = make(map[int64]int)
		wg   sync.WaitGroup
	)
	record := func(first, last int64) {
		mu.Lock()
		defer mu.Unlock()
		for n := first; n <= last; n++ {
			seen[n]++
		}
	}

	for i := 0; i < blockWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := a.ReserveBlock(ctx, testEvent, ResourceRegistration, blockSize)
			if assert.NoError(t, err) {
				assert.Equal(t, int64(blockSize), b.Count())
				record(b.First, b.Last)
			}
		}()
	}
	for i := 0; i < singleWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := a.NextNumber(ctx, testEvent, ResourceRegistration)
			if assert.NoError(t, err) {
				record(n, n)
			}
		}()
	}
	wg.Wait()

	total := blockWorkers*blockSize + singleWorkers
	require.Len(t, seen, total)
	for n := int64(1); n <= int64(total); n++ {
		assert.Equal(t, 1, seen[n], "number %d", n)
	}
}

func TestAllocationFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownEvent", func(t *testing.T) {
		store := &scriptedStore{Store: NewMemoryStore()}
		a, _, _ := newTestAllocator(t, store)

		_, err := a.AllocateNext(ctx, "missing", ResourceRegistration)
		assert.True(t, IsNamespaceResolution(err))
		assert.False(t, IsRetryable(err))
		assert.Zero(t, store.advances.Load())
	})

	t.Run("StoreError", func(t *testing.T) {
		inner := NewMemoryStore()
		store := &scriptedStore{Store: inner, err: errors.New("connection reset")}
		a, _, _ := newTestAllocator(t, store)

		_, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
		assert.True(t, IsAllocationFailure(err))
		assert.True(t, IsRetryable(err))

		_, ok, err := inner.Current(ctx, NamespaceKey(testEvent, ResourceRegistration))
		require.NoError(t, err)
		assert.False(t, ok)

		store.err = nil
		id, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
		require.NoError(t, err)
		assert.Equal(t, "REG-0001", id)
	})

	t.Run("ScanError", func(t *testing.T) {
		a, _, records := newTestAllocator(t, NewMemoryStore())
		records.err = errors.New("statement timeout")

		_, err := a.ReserveBlock(ctx, testEvent, ResourceRegistration, 4)
		assert.True(t, IsAllocationFailure(err))
	})

	t.Run("StoreTimeout", func(t *testing.T) {
		store := &scriptedStore{Store: NewMemoryStore(), hang: true}
		a, _, _ := newTestAllocator(t, store, WithStoreTimeout(20*time.Millisecond))

		start := time.Now()
		_, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
		assert.True(t, IsAllocationFailure(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("CallerCancelled", func(t *testing.T) {
		a, _, _ := newTestAllocator(t, NewMemoryStore())
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := a.AllocateNext(cctx, testEvent, ResourceRegistration)
		assert.True(t, IsAllocationFailure(err))
	})
}

func TestPeekAndReconcile(t *testing.T) {
	ctx := context.Background()
	a, _, records := newTestAllocator(t, NewMemoryStore())

	snap, err := a.Peek(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.Nil(t, snap.Stored)
	assert.Equal(t, "REG-0001", snap.NextID)

	for i := 0; i < 3; i++ {
		_, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
		require.NoError(t, err)
	}
	records.insert(testEvent, ResourceRegistration, "REG-0050")

	snap, err = a.Peek(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.Equal(t, ptr(3), snap.Stored)
	assert.Equal(t, ptr(50), snap.HighestObserved)
	assert.Equal(t, int64(51), snap.NextNumber)
	assert.Equal(t, "REG-0051", snap.NextID)

	report, err := a.Reconcile(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.True(t, report.Healed)
	assert.Equal(t, int64(50), report.Floor)

	report, err = a.Reconcile(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.False(t, report.Healed)
}

func TestAllocatorMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	a, _, _ := newTestAllocator(t, NewMemoryStore(), WithMetrics(NewMetrics(reg)))

	_, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	_, err = a.AllocateBlock(ctx, testEvent, ResourceRegistration, 4)
	require.NoError(t, err)
	_, err = a.AllocateBlock(ctx, testEvent, ResourceRegistration, 0)
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), values["id_allocations_total"])
	assert.Equal(t, float64(5), values["id_numbers_allocated_total"])
	assert.Equal(t, float64(1), values["id_allocation_failures_total"])
}

func TestEventIDSpellingsShareOneCounter(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	a := NewAllocator(uuidSource{id: id}, newFakeRecords(), NewMemoryStore(), WithLogger(discardLogger()))

	var got []int64
	for _, spelling := range []string{
		id.String(),
		"urn:uuid:" + id.String(),
		strings.ToUpper(id.String()),
		"{" + id.String() + "}",
	} {
		n, err := a.NextNumber(ctx, spelling, ResourceRegistration)
		require.NoError(t, err, spelling)
		got = append(got, n)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, got)

	snap, err := a.Peek(ctx, strings.ToUpper(id.String()), ResourceRegistration)
	require.NoError(t, err)
	assert.Equal(t, ptr(4), snap.Stored)
}

func TestAllocationCountsDriftHeals(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	a, _, records := newTestAllocator(t, NewMemoryStore(), WithMetrics(NewMetrics(reg)))

	heals := func() float64 {
		families, err := reg.Gather()
		require.NoError(t, err)
		var total float64
		for _, mf := range families {
			if mf.GetName() != "id_counter_heals_total" {
				continue
			}
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
		}
		return total
	}

	_, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.Zero(t, heals(), "first use of a namespace is not drift")

	records.insert(testEvent, ResourceRegistration, "REG-0040")
	id, err := a.AllocateNext(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.Equal(t, "REG-0041", id)
	assert.Equal(t, float64(1), heals())

	_, err = a.AllocateNext(ctx, testEvent, ResourceRegistration)
	require.NoError(t, err)
	assert.Equal(t, float64(1), heals())
}

func TestReserveBlockAbove(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestAllocator(t, NewMemoryStore())

	ids, err := a.AllocateBlockAbove(ctx, testEvent, ResourceRegistration, 2, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"REG-0021", "REG-0022"}, ids)

	// A lower bound below the counter changes nothing
	ids, err = a.AllocateBlockAbove(ctx, testEvent, ResourceRegistration, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"REG-0023"}, ids)
}

func TestAllocationStopsAtMaxNumber(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a, _, _ := newTestAllocator(t, store)

	require.NoError(t, store.ForceFloor(ctx, NamespaceKey(testEvent, ResourceRegistration), MaxNumber-2))

	ids, err := a.AllocateBlock(ctx, testEvent, ResourceRegistration, 2)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	n, ok := ParseSuffix("REG", ids[1])
	require.True(t, ok)
	assert.Equal(t, MaxNumber, n)

	_, err = a.AllocateNext(ctx, testEvent, ResourceRegistration)
	require.Error(t, err)
	assert.True(t, IsAllocationFailure(err))
	assert.ErrorIs(t, err, ErrNamespaceExhausted)
	assert.False(t, IsRetryable(err))

	_, err = a.AllocateBlock(ctx, testEvent, ResourceRegistration, 3)
	assert.ErrorIs(t, err, ErrNamespaceExhausted)
}
