package runner

import (
	"errors"
	"fmt"
)

// ErrUnknownAction 解释器派发未命中封闭动作集合
var ErrUnknownAction = errors.New("unknown action")

// DriverOperationError 包装底层驱动调用抛出的任意异常，保留原始信息。
// 解释器负责在这条边界把驱动异常翻译成失败的StepResult，
// 单步异常绝不终止进程。
type DriverOperationError struct {
	Action Action
	Cause  error
}

// Error 实现error接口
func (e *DriverOperationError) Error() string {
	return fmt.Sprintf("driver operation failed for %s: %v", e.Action, e.Cause)
}

// Unwrap 支持errors.Is/As链
func (e *DriverOperationError) Unwrap() error {
	return e.Cause
}
