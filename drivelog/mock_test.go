package drivelog

import (
	"context"
	"sync"
)

// mockBackend is a test double for Backend with call counters.
type mockBackend struct {
	mu sync.Mutex

	segmentCount int
	countErr     error
	countCalls   int

	files      []SegmentFiles
	filesErr   error
	filesCalls int
}

func (m *mockBackend) MaxSegmentCount(_ context.Context, _ Route) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.segmentCount, nil
}

func (m *mockBackend) SegmentFiles(_ context.Context, _ Route) ([]SegmentFiles, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filesCalls++
	if m.filesErr != nil {
		return nil, m.filesErr
	}
	return m.files, nil
}

func (m *mockBackend) calls() (count, files int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countCalls, m.filesCalls
}
