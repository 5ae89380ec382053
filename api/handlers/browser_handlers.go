package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"GoFormAcceptanceTest/internal/browser"
	"GoFormAcceptanceTest/internal/logger"
	"GoFormAcceptanceTest/internal/runner"
	"GoFormAcceptanceTest/internal/session"
)

// BrowserHandler 浏览器会话与单步操作处理器
type BrowserHandler struct {
	registry *session.Registry
	executor *runner.StepExecutor
}

// NewBrowserHandler 创建浏览器处理器
func NewBrowserHandler(registry *session.Registry, executor *runner.StepExecutor) *BrowserHandler {
	return &BrowserHandler{
		registry: registry,
		executor: executor,
	}
}

// LaunchRequest 启动浏览器请求
type LaunchRequest struct {
	SessionKey string `json:"session_key,omitempty"`
	Browser    string `json:"browser,omitempty"`
	Headless   *bool  `json:"headless,omitempty"`
}

// SessionResponse 会话信息响应
type SessionResponse struct {
	SessionKey string `json:"session_key"`
	Browser    string `json:"browser"`
	Headless   bool   `json:"headless"`
	CreatedAt  int64  `json:"created_at"`
}

// LaunchBrowser 启动（或重启）一个浏览器会话
// POST /api/v1/browser/launch
func (h *BrowserHandler) LaunchBrowser(w http.ResponseWriter, r *http.Request) {
	var req LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	kindInput := req.Browser
	if kindInput == "" {
		kindInput = string(browser.KindChrome)
	}
	kind, err := browser.ParseKind(kindInput)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "unsupported_browser", err.Error())
		return
	}

	headless := true
	if req.Headless != nil {
		headless = *req.Headless
	}

	sess, err := h.registry.Launch(req.SessionKey, kind, headless)
	if err != nil {
		logger.LogError("browser", fmt.Sprintf("浏览器启动失败: %v", err), req.SessionKey)
		WriteError(w, http.StatusInternalServerError, "launch_failed", err.Error())
		return
	}

	WriteSuccess(w, SessionResponse{
		SessionKey: sess.Key,
		Browser:    string(sess.Kind),
		Headless:   sess.Headless,
		CreatedAt:  sess.CreatedAt.UnixMilli(),
	})
}

// StepRequest 单步操作请求，各字段按动作取用
type StepRequest struct {
	SessionKey string `json:"session_key,omitempty"`
	URL        string `json:"url,omitempty"`
	Selector   string `json:"selector,omitempty"`
	Value      string `json:"value,omitempty"`
	Shortcut   string `json:"shortcut,omitempty"`
	Mac        bool   `json:"mac,omitempty"`
}

// NavigateToUrl 导航到指定URL
// POST /api/v1/browser/navigate
func (h *BrowserHandler) NavigateToUrl(w http.ResponseWriter, r *http.Request) {
	h.runSingleStep(w, r, func(req StepRequest) (runner.TestStep, string) {
		if req.URL == "" {
			return runner.TestStep{}, "url is required"
		}
		return runner.TestStep{Action: runner.ActionNavigate, Target: req.URL}, ""
	})
}

// FillField 填写表单字段
// POST /api/v1/browser/fill
func (h *BrowserHandler) FillField(w http.ResponseWriter, r *http.Request) {
	h.runSingleStep(w, r, func(req StepRequest) (runner.TestStep, string) {
		if req.Selector == "" {
			return runner.TestStep{}, "selector is required"
		}
		return runner.TestStep{Action: runner.ActionFillField, Target: req.Selector, Value: req.Value}, ""
	})
}

// ClickElement 点击页面元素
// POST /api/v1/browser/click
func (h *BrowserHandler) ClickElement(w http.ResponseWriter, r *http.Request) {
	h.runSingleStep(w, r, func(req StepRequest) (runner.TestStep, string) {
		if req.Selector == "" {
			return runner.TestStep{}, "selector is required"
		}
		return runner.TestStep{Action: runner.ActionClickElement, Target: req.Selector}, ""
	})
}

// SelectOption 在下拉框中选择选项
// POST /api/v1/browser/select
func (h *BrowserHandler) SelectOption(w http.ResponseWriter, r *http.Request) {
	h.runSingleStep(w, r, func(req StepRequest) (runner.TestStep, string) {
		if req.Selector == "" {
			return runner.TestStep{}, "selector is required"
		}
		return runner.TestStep{Action: runner.ActionSelectOption, Target: req.Selector, Value: req.Value}, ""
	})
}

// SendKeyboardShortcut 发送键盘快捷键串
// POST /api/v1/browser/keys
func (h *BrowserHandler) SendKeyboardShortcut(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Shortcut == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "shortcut is required")
		return
	}

	step := runner.TestStep{Action: runner.ActionSendKeys, Value: req.Shortcut}
	opts := runner.DefaultOptions()
	opts.MacKeyboard = req.Mac

	results, err := h.executor.ExecuteStepsWithOptions(r.Context(), req.SessionKey, []runner.TestStep{step}, opts)
	h.writeStepOutcome(w, req.SessionKey, results, err)
}

// EvaluateRequest 脚本求值请求
type EvaluateRequest struct {
	SessionKey string `json:"session_key,omitempty"`
	Script     string `json:"script"`
}

// Evaluate 在页面上下文中执行脚本并返回结果
// POST /api/v1/browser/evaluate
func (h *BrowserHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Script == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "script is required")
		return
	}

	page := h.registry.GetPage(req.SessionKey)
	if page == nil {
		WriteError(w, http.StatusNotFound, "session_not_found", "No active session for key")
		return
	}

	result, err := page.Evaluate(req.Script)
	if err != nil {
		if errors.Is(err, browser.ErrSerializationFailed) {
			WriteError(w, http.StatusUnprocessableEntity, "serialization_failed", err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "evaluate_failed", err.Error())
		return
	}

	WriteSuccess(w, map[string]interface{}{"result": result})
}

// GetConsoleLogs 读取会话累计的控制台日志
// GET /api/v1/browser/console?session_key=default
func (h *BrowserHandler) GetConsoleLogs(w http.ResponseWriter, r *http.Request) {
	log, err := h.registry.Telemetry(r.URL.Query().Get("session_key"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	entries := log.ConsoleEntries()
	WriteSuccess(w, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// GetNetworkActivity 读取会话累计的网络活动，支持URL子串过滤
// GET /api/v1/browser/network?session_key=default&url_filter=/api/
func (h *BrowserHandler) GetNetworkActivity(w http.ResponseWriter, r *http.Request) {
	log, err := h.registry.Telemetry(r.URL.Query().Get("session_key"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	entries := log.FilterNetwork(r.URL.Query().Get("url_filter"))
	WriteSuccess(w, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// CloseBrowser 关闭会话，未知会话键视为已关闭
// POST /api/v1/browser/close
func (h *BrowserHandler) CloseBrowser(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.registry.Close(req.SessionKey); err != nil {
		logger.LogWarning("browser", fmt.Sprintf("会话关闭时释放句柄出错: %v", err), req.SessionKey)
	}
	WriteSuccess(w, map[string]string{"message": "Session closed"})
}

// ListSessions 列出活跃会话键
// GET /api/v1/browser/sessions
func (h *BrowserHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	keys := h.registry.ActiveKeys()
	WriteSuccess(w, map[string]interface{}{
		"count":    len(keys),
		"sessions": keys,
	})
}

func (h *BrowserHandler) runSingleStep(w http.ResponseWriter, r *http.Request, build func(StepRequest) (runner.TestStep, string)) {
	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	step, problem := build(req)
	if problem != "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", problem)
		return
	}

	results, err := h.executor.ExecuteSteps(r.Context(), req.SessionKey, []runner.TestStep{step})
	h.writeStepOutcome(w, req.SessionKey, results, err)
}

func (h *BrowserHandler) writeStepOutcome(w http.ResponseWriter, sessionKey string, results []runner.StepResult, err error) {
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "step_failed", err.Error())
		return
	}
	if len(results) == 1 && !results[0].Success {
		logger.LogError("browser", fmt.Sprintf("步骤执行失败: %s", results[0].Error), sessionKey)
		writeJSON(w, http.StatusBadGateway, APIResponse{
			Success:   false,
			Data:      results[0],
			Code:      "driver_error",
			Message:   results[0].Error,
			Timestamp: nowMilli(),
		})
		return
	}
	WriteSuccess(w, results)
}
