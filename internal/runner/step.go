package runner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action 测试步骤动作类型，封闭集合
type Action string

const (
	ActionNavigate     Action = "NAVIGATE"
	ActionFillField    Action = "FILL_FIELD"
	ActionClickElement Action = "CLICK_ELEMENT"
	ActionSelectOption Action = "SELECT_OPTION"
	ActionValidate     Action = "VALIDATE"
	ActionSendKeys     Action = "SEND_KEYS"
)

// String 实现字符串接口
func (a Action) String() string {
	return string(a)
}

// IsValid 检查动作是否属于封闭集合
func (a Action) IsValid() bool {
	switch a {
	case ActionNavigate, ActionFillField, ActionClickElement,
		ActionSelectOption, ActionValidate, ActionSendKeys:
		return true
	default:
		return false
	}
}

// ParseAction 在接收步骤序列的边界解析动作，未知动作直接报错
func ParseAction(s string) (Action, error) {
	action := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !action.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return action, nil
}

// TestStep 一条声明式测试步骤，构造后不可变。
// Target的含义随Action变化：NAVIGATE时是URL，
// 元素类动作时是待解析的选择器，SEND_KEYS时可放快捷键串。
type TestStep struct {
	Index   int    `json:"index"`
	Action  Action `json:"action"`
	Target  string `json:"target"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// TestCase 有序步骤序列+标题，顺序即执行顺序
type TestCase struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Steps []TestStep `json:"steps"`
}

// StepResult 单步执行结果
type StepResult struct {
	Index    int    `json:"index"`
	Action   Action `json:"action"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
	Duration int64  `json:"duration_ms"`
}

// StepDocument 外部来源（测试用例库或调用方）的原始步骤文档，
// 动作还是裸字符串，需经DecodeSteps进入封闭集合
type StepDocument struct {
	Index   int    `json:"index"`
	Action  string `json:"action"`
	Target  string `json:"target"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// DecodeSteps 把原始步骤文档解码为类型化步骤。
// 动作在这里一次性校验，解释器内部只面对封闭集合；
// 缺失的Index按位置补为1起始序号。
func DecodeSteps(docs []StepDocument) ([]TestStep, error) {
	steps := make([]TestStep, 0, len(docs))
	for i, doc := range docs {
		action, err := ParseAction(doc.Action)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}

		index := doc.Index
		if index <= 0 {
			index = i + 1
		}

		steps = append(steps, TestStep{
			Index:   index,
			Action:  action,
			Target:  doc.Target,
			Value:   doc.Value,
			Message: doc.Message,
		})
	}
	return steps, nil
}

// DecodeStepsJSON 从JSON文档解码步骤序列
func DecodeStepsJSON(data []byte) ([]TestStep, error) {
	var docs []StepDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode step documents: %w", err)
	}
	return DecodeSteps(docs)
}

// describeStep 为没有人工描述的步骤生成一条
func describeStep(step TestStep) string {
	if step.Message != "" {
		return step.Message
	}
	switch step.Action {
	case ActionNavigate:
		return fmt.Sprintf("导航到 %s", step.Target)
	case ActionFillField:
		return fmt.Sprintf("填写 %s = %q", step.Target, step.Value)
	case ActionClickElement:
		return fmt.Sprintf("点击 %s", step.Target)
	case ActionSelectOption:
		return fmt.Sprintf("选择 %s = %q", step.Target, step.Value)
	case ActionValidate:
		return fmt.Sprintf("校验 %s", step.Target)
	case ActionSendKeys:
		return fmt.Sprintf("发送快捷键 %s", shortcutOf(step))
	default:
		return fmt.Sprintf("%s %s", step.Action, step.Target)
	}
}

// shortcutOf SEND_KEYS步骤的快捷键串：优先Value，兼容放在Target的写法
func shortcutOf(step TestStep) string {
	if step.Value != "" {
		return step.Value
	}
	return step.Target
}
