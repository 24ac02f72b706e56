package sequence

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type fakeSource struct {
	mu       sync.Mutex
	settings map[string]map[ResourceKind]*IDSettings
	err      error
}

func newFakeSource() *fakeSource {
	return &fakeSource{settings: make(map[string]map[ResourceKind]*IDSettings)}
}

func (f *fakeSource) set(eventID string, kind ResourceKind, s IDSettings) *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings[eventID] == nil {
		f.settings[eventID] = make(map[ResourceKind]*IDSettings)
	}
	f.settings[eventID][kind] = &s
	return f
}

func (f *fakeSource) GetNamespaceConfig(ctx context.Context, eventID string, kind ResourceKind) (*IDSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds, ok := f.settings[eventID]
	if !ok {
		return nil, nil
	}
	s, ok := kinds[kind]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// fakeRecords is an in-memory system of record: it stores raw identifiers and scans them
// with ParseSuffix the way the database scanner filters with SuffixPattern.
type fakeRecords struct {
	mu    sync.Mutex
	ids   map[string][]string
	err   error
	scans atomic.Int64
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{ids: make(map[string][]string)}
}

func (f *fakeRecords) insert(eventID string, kind ResourceKind, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := NamespaceKey(eventID, kind)
	f.ids[key] = append(f.ids[key], ids...)
}

func (f *fakeRecords) ScanHighestIssued(ctx context.Context, eventID string, kind ResourceKind, prefix string) (*int64, error) {
	f.scans.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var highest *int64
	for _, id := range f.ids[NamespaceKey(eventID, kind)] {
		n, ok := ParseSuffix(prefix, id)
		if !ok {
			continue
		}
		if highest == nil || n > *highest {
			v := n
			highest = &v
		}
	}
	return highest, nil
}

// scriptedStore wraps a Store to count calls and inject failures.
type scriptedStore struct {
	Store
	advances atomic.Int64
	err      error
	hang     bool
}

func (s *scriptedStore) AdvanceFromFloor(ctx context.Context, namespace string, floor, delta int64) (int64, int64, bool, error) {
	s.advances.Add(1)
	if s.hang {
		<-ctx.Done()
		return 0, 0, false, ctx.Err()
	}
	if s.err != nil {
		return 0, 0, false, s.err
	}
	return s.Store.AdvanceFromFloor(ctx, namespace, floor, delta)
}

// uuidSource serves one event under every spelling uuid.Parse accepts and reports the
// canonical form back, the way the event repository does.
type uuidSource struct {
	id uuid.UUID
}

func (s uuidSource) GetNamespaceConfig(ctx context.Context, eventID string, kind ResourceKind) (*IDSettings, error) {
	parsed, err := uuid.Parse(eventID)
	if err != nil || parsed != s.id || kind != ResourceRegistration {
		return nil, nil
	}
	return &IDSettings{EventID: parsed.String(), Prefix: "REG", StartNumber: 1, PadWidth: 4}, nil
}

func ptr(v int64) *int64 {
	return &v
}
