package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/amirphl/conference-registry/repository"
	testingutil "github.com/amirphl/conference-registry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceCounterRepository(t *testing.T) {
	testingutil.RunWithDB(t, func(testDB *testingutil.TestDB) {
		ctx := context.Background()
		repo := repository.NewSequenceCounterRepository(testDB.DB)

		t.Run("IncrementCreatesAtBaseline", func(t *testing.T) {
			prev, next, err := repo.AtomicIncrement(ctx, "inc", 99, 1)
			require.NoError(t, err)
			assert.Equal(t, int64(99), prev)
			assert.Equal(t, int64(100), next)

			prev, next, err = repo.AtomicIncrement(ctx, "inc", 0, 10)
			require.NoError(t, err)
			assert.Equal(t, int64(100), prev)
			assert.Equal(t, int64(110), next)
		})

		t.Run("ForceFloorNeverLowers", func(t *testing.T) {
			require.NoError(t, repo.ForceFloor(ctx, "floor", 3))
			require.NoError(t, repo.ForceFloor(ctx, "floor", 50))
			require.NoError(t, repo.ForceFloor(ctx, "floor", 10))

			v, ok, err := repo.Current(ctx, "floor")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(50), v)
		})

		t.Run("AdvanceFromFloor", func(t *testing.T) {
			prev, next, healed, err := repo.AdvanceFromFloor(ctx, "adv", 0, 3)
			require.NoError(t, err)
			assert.Equal(t, int64(0), prev)
			assert.Equal(t, int64(3), next)
			assert.True(t, healed)

			prev, next, healed, err = repo.AdvanceFromFloor(ctx, "adv", 50, 1)
			require.NoError(t, err)
			assert.Equal(t, int64(50), prev)
			assert.Equal(t, int64(51), next)
			assert.True(t, healed)

			prev, next, healed, err = repo.AdvanceFromFloor(ctx, "adv", 4, 10)
			require.NoError(t, err)
			assert.Equal(t, int64(51), prev)
			assert.Equal(t, int64(61), next)
			assert.False(t, healed)

			_, _, healed, err = repo.AdvanceFromFloor(ctx, "adv", 61, 1)
			require.NoError(t, err)
			assert.False(t, healed)
		})

		t.Run("CurrentMissing", func(t *testing.T) {
			_, ok, err := repo.Current(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			counter, err := repo.ByNamespace(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, counter)
		})

		t.Run("FloorsRacingIncrements", func(t *testing.T) {
			testingutil.RunFloorRace(t, repo, "floor-race")
		})

		t.Run("ConcurrentAdvancesAreDisjoint", func(t *testing.T) {
			const workers = 40
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				seen = make(map[int64]bool)
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					prev, next, _, err := repo.AdvanceFromFloor(ctx, "race", 0, 2)
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					defer mu.Unlock()
					for n := prev + 1; n <= next; n++ {
						assert.False(t, seen[n], "number %d issued twice", n)
						seen[n] = true
					}
				}()
			}
			wg.Wait()
			assert.Len(t, seen, workers*2)

			v, _, err := repo.Current(ctx, "race")
			require.NoError(t, err)
			assert.Equal(t, int64(workers*2), v)
		})
	})
}
