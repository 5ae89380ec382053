package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"GoFormAcceptanceTest/internal/browser"
	"GoFormAcceptanceTest/internal/keyboard"
	"GoFormAcceptanceTest/internal/logger"
	"GoFormAcceptanceTest/internal/selector"
	"GoFormAcceptanceTest/internal/session"
)

// Options 解释器执行选项
type Options struct {
	// ContinueOnFailure 为false（默认）时首个失败步骤即终止
	ContinueOnFailure bool
	// StepDelay 相邻步骤之间的固定间隔
	StepDelay time.Duration
	// KeyDelay 快捷键序列相邻token之间的固定间隔
	KeyDelay time.Duration
	// MacKeyboard 目标平台是否Mac系（决定修饰键归一方向）
	MacKeyboard bool
}

// DefaultOptions 默认执行选项
func DefaultOptions() Options {
	return Options{
		KeyDelay: 50 * time.Millisecond,
	}
}

// StepExecutor 测试步骤解释器。单会话内严格串行执行，
// 每步等驱动调用完成才发下一步；跨会话的执行互不相关。
type StepExecutor struct {
	registry *session.Registry
	defaults Options
}

// NewStepExecutor 创建步骤解释器
func NewStepExecutor(registry *session.Registry, defaults Options) *StepExecutor {
	return &StepExecutor{
		registry: registry,
		defaults: defaults,
	}
}

// ExecuteSteps 用默认选项执行一段步骤序列
func (e *StepExecutor) ExecuteSteps(ctx context.Context, sessionKey string, steps []TestStep) ([]StepResult, error) {
	return e.ExecuteStepsWithOptions(ctx, sessionKey, steps, e.defaults)
}

// ExecuteStepsWithOptions 按给定选项执行步骤序列。
// 会话不存在时整个run在第一步之前就中止；
// 默认语义是stop-on-first-failure，返回到失败步为止的部分结果。
func (e *StepExecutor) ExecuteStepsWithOptions(ctx context.Context, sessionKey string, steps []TestStep, opts Options) ([]StepResult, error) {
	page := e.registry.GetPage(sessionKey)
	if page == nil {
		return nil, fmt.Errorf("%w: %q", session.ErrSessionNotFound, sessionKey)
	}

	results := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if i > 0 && opts.StepDelay > 0 {
			time.Sleep(opts.StepDelay)
		}

		start := time.Now()
		err := e.runStep(page, step, opts)

		result := StepResult{
			Index:    step.Index,
			Action:   step.Action,
			Success:  err == nil,
			Message:  describeStep(step),
			Duration: time.Since(start).Milliseconds(),
		}
		if err != nil {
			result.Error = err.Error()
			logger.LogError("runner", fmt.Sprintf("步骤 %d 失败: %v", step.Index, err), sessionKey)
		}
		results = append(results, result)

		if err != nil && !opts.ContinueOnFailure {
			break
		}
	}

	return results, nil
}

// runStep 执行单个步骤，把驱动异常（含panic）翻译成error返回
func (e *StepExecutor) runStep(page browser.Page, step TestStep, opts Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DriverOperationError{Action: step.Action, Cause: fmt.Errorf("driver panic: %v", r)}
		}
	}()

	switch step.Action {
	case ActionNavigate:
		err = page.Goto(step.Target)
	case ActionFillField:
		err = page.Fill(selector.Resolve(step.Target), step.Value)
	case ActionClickElement:
		err = page.Click(selector.Resolve(step.Target))
	case ActionSelectOption:
		err = page.SelectOption(selector.Resolve(step.Target), step.Value)
	case ActionValidate:
		err = e.validate(page, step)
	case ActionSendKeys:
		err = e.sendKeys(page, shortcutOf(step), opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, step.Action)
	}

	if err != nil && !errors.Is(err, ErrUnknownAction) {
		var opErr *DriverOperationError
		if !errors.As(err, &opErr) {
			err = &DriverOperationError{Action: step.Action, Cause: err}
		}
	}
	return err
}

// validate 只读校验元素状态：必须可见且可用；
// 带Value时文本内容还需包含该值。不改动页面。
func (e *StepExecutor) validate(page browser.Page, step TestStep) error {
	sel := selector.Resolve(step.Target)

	visible, err := page.IsVisible(sel)
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("element %s is not visible", sel)
	}

	enabled, err := page.IsEnabled(sel)
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("element %s is not enabled", sel)
	}

	if step.Value != "" {
		text, err := page.TextContent(sel)
		if err != nil {
			return err
		}
		if !strings.Contains(text, step.Value) {
			return fmt.Errorf("element %s text %q does not contain %q", sel, text, step.Value)
		}
	}

	return nil
}

// sendKeys 规范化并解析快捷键串，逐token按压，token间留固定间隔
func (e *StepExecutor) sendKeys(page browser.Page, shortcut string, opts Options) error {
	sequences := keyboard.ParseShortcut(shortcut, opts.MacKeyboard)
	for i, seq := range sequences {
		if i > 0 && opts.KeyDelay > 0 {
			time.Sleep(opts.KeyDelay)
		}
		if err := page.Press(keyboard.DriverKeyExpression(seq)); err != nil {
			return err
		}
	}
	return nil
}

// RunResult 一次测试用例运行的汇总结果
type RunResult struct {
	RunID      string       `json:"run_id"`
	SessionKey string       `json:"session_key"`
	CaseID     string       `json:"case_id,omitempty"`
	Title      string       `json:"title,omitempty"`
	Status     string       `json:"status"` // completed, failed
	StartTime  time.Time    `json:"start_time"`
	Duration   int64        `json:"duration_ms"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Results    []StepResult `json:"results"`
}

// ExecuteTestCase 执行完整测试用例并汇总
func (e *StepExecutor) ExecuteTestCase(ctx context.Context, sessionKey string, tc *TestCase) (*RunResult, error) {
	run := &RunResult{
		RunID:      uuid.NewString(),
		SessionKey: sessionKey,
		CaseID:     tc.ID,
		Title:      tc.Title,
		StartTime:  time.Now(),
	}

	logger.LogInfo("runner", fmt.Sprintf("开始执行用例 %q（%d 步）", tc.Title, len(tc.Steps)), sessionKey)

	results, err := e.ExecuteSteps(ctx, sessionKey, tc.Steps)
	run.Results = results
	run.Duration = time.Since(run.StartTime).Milliseconds()
	for _, r := range results {
		if r.Success {
			run.Passed++
		} else {
			run.Failed++
		}
	}

	if err != nil {
		run.Status = "failed"
		return run, err
	}
	if run.Failed > 0 {
		run.Status = "failed"
		logger.LogWarning("runner", fmt.Sprintf("用例 %q 失败: %d/%d 步通过", tc.Title, run.Passed, len(tc.Steps)), sessionKey)
	} else {
		run.Status = "completed"
		logger.LogSuccess("runner", fmt.Sprintf("用例 %q 全部 %d 步通过", tc.Title, run.Passed), sessionKey)
	}
	return run, nil
}
