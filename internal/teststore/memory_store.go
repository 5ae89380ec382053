package teststore

import (
	"context"
	"sort"
	"sync"

	"GoFormAcceptanceTest/internal/runner"
)

// MemoryStore 内存用例库，用于未配置数据库的部署和测试
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[string]*runner.TestCase
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存用例库
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[string]*runner.TestCase)}
}

// FindTestCase 实现Store
func (s *MemoryStore) FindTestCase(_ context.Context, id string) (*runner.TestCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tc, ok := s.cases[id]
	if !ok {
		return nil, nil
	}

	// 返回副本，调用方改不到库内条目
	clone := *tc
	clone.Steps = append([]runner.TestStep{}, tc.Steps...)
	return &clone, nil
}

// SaveTestCase 实现Store
func (s *MemoryStore) SaveTestCase(_ context.Context, tc *runner.TestCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *tc
	clone.Steps = append([]runner.TestStep{}, tc.Steps...)
	s.cases[tc.ID] = &clone
	return nil
}

// ListTestCases 实现Store
func (s *MemoryStore) ListTestCases(_ context.Context) ([]TestCaseSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]TestCaseSummary, 0, len(s.cases))
	for _, tc := range s.cases {
		summaries = append(summaries, TestCaseSummary{
			ID:        tc.ID,
			Title:     tc.Title,
			StepCount: len(tc.Steps),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// Close 实现Store，内存库无资源可释放
func (s *MemoryStore) Close() {}
