package teststore

import (
	"context"

	"GoFormAcceptanceTest/internal/runner"
)

// TestCaseSummary 用例列表项
type TestCaseSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StepCount int    `json:"step_count"`
}

// Store 测试用例库。本系统只在解释器入口读取用例，
// 实现方负责持久化细节；找不到用例返回(nil, nil)而非错误。
type Store interface {
	FindTestCase(ctx context.Context, id string) (*runner.TestCase, error)
	SaveTestCase(ctx context.Context, tc *runner.TestCase) error
	ListTestCases(ctx context.Context) ([]TestCaseSummary, error)
	Close()
}
