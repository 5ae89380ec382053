package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoFormAcceptanceTest/internal/browser"
	"GoFormAcceptanceTest/internal/runner"
	"GoFormAcceptanceTest/internal/session"
	"GoFormAcceptanceTest/internal/testutil"
)

// newExecutorWithPage 启动一个带假驱动的会话，返回执行器和页面
func newExecutorWithPage(t *testing.T) (*runner.StepExecutor, *testutil.FakePage) {
	t.Helper()

	driver := testutil.NewFakeDriver()
	registry := session.NewRegistry(driver)
	_, err := registry.Launch("t1", browser.KindChrome, true)
	require.NoError(t, err)

	page := driver.Browsers[0].Contexts[0].Pages[0]
	return runner.NewStepExecutor(registry, runner.Options{}), page
}

// TestExecuteHappyPath 三步全部成功，选择器经过解析
func TestExecuteHappyPath(t *testing.T) {
	executor, page := newExecutorWithPage(t)

	steps := []runner.TestStep{
		{Index: 1, Action: runner.ActionNavigate, Target: "https://app.test/form"},
		{Index: 2, Action: runner.ActionFillField, Target: "first-name", Value: "John"},
		{Index: 3, Action: runner.ActionClickElement, Target: "save-button"},
	}

	results, err := executor.ExecuteSteps(context.Background(), "t1", steps)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Success, "step %d: %s", r.Index, r.Error)
	}

	ops := page.OperationLog()
	require.Len(t, ops, 3)
	assert.Equal(t, "goto https://app.test/form", ops[0])
	assert.Equal(t, "fill [data-testid='first-name'] John", ops[1])
	assert.Equal(t, "click [data-testid='save-button']", ops[2])
}

// TestStopOnFirstFailure 默认语义：失败步之后的步骤不执行
func TestStopOnFirstFailure(t *testing.T) {
	executor, page := newExecutorWithPage(t)
	page.FailOn["fill"] = errors.New("element detached")

	steps := []runner.TestStep{
		{Index: 1, Action: runner.ActionNavigate, Target: "https://app.test/form"},
		{Index: 2, Action: runner.ActionFillField, Target: "a", Value: "1"},
		{Index: 3, Action: runner.ActionClickElement, Target: "b"},
	}

	results, err := executor.ExecuteSteps(context.Background(), "t1", steps)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "element detached")

	// 第三步从未下发到驱动
	for _, op := range page.OperationLog() {
		assert.NotContains(t, op, "click")
	}
}

// TestContinueOnFailure 显式继续时失败步不终止整个run
func TestContinueOnFailure(t *testing.T) {
	executor, page := newExecutorWithPage(t)
	page.FailOn["fill"] = errors.New("element detached")

	steps := []runner.TestStep{
		{Index: 1, Action: runner.ActionFillField, Target: "a", Value: "1"},
		{Index: 2, Action: runner.ActionClickElement, Target: "b"},
	}

	results, err := executor.ExecuteStepsWithOptions(context.Background(), "t1", steps,
		runner.Options{ContinueOnFailure: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)
}

// TestSessionNotFoundAbortsRun 未知会话在第一步前整体中止
func TestSessionNotFoundAbortsRun(t *testing.T) {
	registry := session.NewRegistry(testutil.NewFakeDriver())
	executor := runner.NewStepExecutor(registry, runner.DefaultOptions())

	steps := []runner.TestStep{
		{Index: 1, Action: runner.ActionNavigate, Target: "https://app.test"},
	}

	results, err := executor.ExecuteSteps(context.Background(), "ghost", steps)
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Empty(t, results)
}

// TestUnknownActionFailsSingleStep 未知动作只让该步失败
func TestUnknownActionFailsSingleStep(t *testing.T) {
	executor, _ := newExecutorWithPage(t)

	steps := []runner.TestStep{
		{Index: 1, Action: runner.Action("TELEPORT"), Target: "x"},
		{Index: 2, Action: runner.ActionClickElement, Target: "b"},
	}

	results, err := executor.ExecuteStepsWithOptions(context.Background(), "t1", steps,
		runner.Options{ContinueOnFailure: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "unknown action")
	assert.True(t, results[1].Success)
}

// TestValidateInspectsWithoutMutating 校验步骤只读不写
func TestValidateInspectsWithoutMutating(t *testing.T) {
	executor, page := newExecutorWithPage(t)
	page.TextResult = "Welcome John"

	steps := []runner.TestStep{
		{Index: 1, Action: runner.ActionValidate, Target: "greeting", Value: "John"},
	}

	results, err := executor.ExecuteSteps(context.Background(), "t1", steps)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	for _, op := range page.OperationLog() {
		assert.NotContains(t, op, "fill")
		assert.NotContains(t, op, "click")
	}
}

// TestValidateFailsOnHiddenElement 不可见元素校验失败
func TestValidateFailsOnHiddenElement(t *testing.T) {
	executor, page := newExecutorWithPage(t)
	page.VisibleResult = false

	steps := []runner.TestStep{
		{Index: 1, Action: runner.ActionValidate, Target: "hidden-field"},
	}

	results, err := executor.ExecuteSteps(context.Background(), "t1", steps)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "not visible")
}

// TestSendKeysPressesSequence 快捷键序列逐token按压，含平台归一
func TestSendKeysPressesSequence(t *testing.T) {
	executor, page := newExecutorWithPage(t)

	steps := []runner.TestStep{
		{Index: 1, Action: runner.ActionSendKeys, Value: "Cmd+S Tab Enter"},
	}

	results, err := executor.ExecuteSteps(context.Background(), "t1", steps)
	require.NoError(t, err)
	require.True(t, results[0].Success)

	ops := page.OperationLog()
	require.Len(t, ops, 3)
	// 非Mac目标：Cmd归一为Ctrl，驱动表达式为Control
	assert.Equal(t, "press Control+S", ops[0])
	assert.Equal(t, "press Tab", ops[1])
	assert.Equal(t, "press Enter", ops[2])
}

// TestDriverPanicBecomesStepFailure 驱动panic翻译为失败结果，不炸进程
func TestDriverPanicBecomesStepFailure(t *testing.T) {
	executor, page := newExecutorWithPage(t)
	page.PanicOn["goto"] = "target crashed"

	steps := []runner.TestStep{
		{Index: 1, Action: runner.ActionNavigate, Target: "https://app.test"},
		{Index: 2, Action: runner.ActionClickElement, Target: "b"},
	}

	var results []runner.StepResult
	var err error
	require.NotPanics(t, func() {
		results, err = executor.ExecuteSteps(context.Background(), "t1", steps)
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "driver panic")
}

// TestStepMessageEchoesCallerDescription 人工描述优先，否则生成
func TestStepMessageEchoesCallerDescription(t *testing.T) {
	executor, _ := newExecutorWithPage(t)

	steps := []runner.TestStep{
		{Index: 1, Action: runner.ActionNavigate, Target: "https://app.test", Message: "打开报名表"},
		{Index: 2, Action: runner.ActionClickElement, Target: "save-button"},
	}

	results, err := executor.ExecuteSteps(context.Background(), "t1", steps)
	require.NoError(t, err)
	assert.Equal(t, "打开报名表", results[0].Message)
	assert.NotEmpty(t, results[1].Message)
	assert.Contains(t, results[1].Message, "save-button")
}

// TestExecuteTestCaseSummary 用例执行汇总通过/失败计数
func TestExecuteTestCaseSummary(t *testing.T) {
	executor, page := newExecutorWithPage(t)
	page.FailOn["select"] = errors.New("no such option")

	tc := &runner.TestCase{
		ID:    "tc-001",
		Title: "提交报名表",
		Steps: []runner.TestStep{
			{Index: 1, Action: runner.ActionNavigate, Target: "https://app.test/form"},
			{Index: 2, Action: runner.ActionSelectOption, Target: "state", Value: "CA"},
			{Index: 3, Action: runner.ActionClickElement, Target: "save-button"},
		},
	}

	run, err := executor.ExecuteTestCase(context.Background(), "t1", tc)
	require.NoError(t, err)
	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, 1, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.Len(t, run.Results, 2) // 默认stop-on-failure，第三步未执行
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, "tc-001", run.CaseID)
}

// TestDecodeStepsBoundary 动作在边界一次性校验
func TestDecodeStepsBoundary(t *testing.T) {
	docs := []runner.StepDocument{
		{Action: "navigate", Target: "https://app.test"},
		{Action: "FILL_FIELD", Target: "zip", Value: "94110"},
	}

	steps, err := runner.DecodeSteps(docs)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, runner.ActionNavigate, steps[0].Action)
	assert.Equal(t, 1, steps[0].Index)
	assert.Equal(t, 2, steps[1].Index)

	_, err = runner.DecodeSteps([]runner.StepDocument{{Action: "EXPLODE"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, runner.ErrUnknownAction)
}
