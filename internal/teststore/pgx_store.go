package teststore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"GoFormAcceptanceTest/internal/logger"
	"GoFormAcceptanceTest/internal/runner"
)

// PostgresStore 基于pgx连接池的测试用例库。
// 步骤序列按JSON文档整存整取，动作在读出边界解码进封闭集合。
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS form_test_cases (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	steps      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Connect 连接PostgreSQL并准备用例表
func Connect(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// 连接池参数
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to prepare test case table: %w", err)
	}

	logger.LogInfo("teststore", "测试用例库连接就绪", "")
	return &PostgresStore{pool: pool}, nil
}

// FindTestCase 按ID读取用例，不存在返回(nil, nil)
func (s *PostgresStore) FindTestCase(ctx context.Context, id string) (*runner.TestCase, error) {
	var title string
	var stepsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT title, steps FROM form_test_cases WHERE id = $1`, id,
	).Scan(&title, &stepsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query test case %q: %w", id, err)
	}

	steps, err := runner.DecodeStepsJSON(stepsJSON)
	if err != nil {
		return nil, fmt.Errorf("test case %q has invalid steps: %w", id, err)
	}

	return &runner.TestCase{ID: id, Title: title, Steps: steps}, nil
}

// SaveTestCase 写入或覆盖用例
func (s *PostgresStore) SaveTestCase(ctx context.Context, tc *runner.TestCase) error {
	stepsJSON, err := json.Marshal(tc.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps for %q: %w", tc.ID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO form_test_cases (id, title, steps)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, steps = EXCLUDED.steps, updated_at = now()`,
		tc.ID, tc.Title, stepsJSON)
	if err != nil {
		return fmt.Errorf("failed to save test case %q: %w", tc.ID, err)
	}

	logger.LogInfo("teststore", fmt.Sprintf("用例已保存: %s (%d 步)", tc.ID, len(tc.Steps)), "")
	return nil
}

// ListTestCases 列出全部用例摘要
func (s *PostgresStore) ListTestCases(ctx context.Context) ([]TestCaseSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, jsonb_array_length(steps) FROM form_test_cases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}
	defer rows.Close()

	var summaries []TestCaseSummary
	for rows.Next() {
		var s TestCaseSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.StepCount); err != nil {
			return nil, fmt.Errorf("failed to scan test case row: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Close 关闭连接池
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Stats 连接池统计
func (s *PostgresStore) Stats() *pgxpool.Stat {
	return s.pool.Stat()
}
