package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"GoFormAcceptanceTest/internal/logger"
	"GoFormAcceptanceTest/internal/runner"
	"GoFormAcceptanceTest/internal/session"
	"GoFormAcceptanceTest/internal/teststore"
)

// TestCaseHandler 测试用例管理与执行处理器
type TestCaseHandler struct {
	store    teststore.Store
	executor *runner.StepExecutor
}

// NewTestCaseHandler 创建测试用例处理器
func NewTestCaseHandler(store teststore.Store, executor *runner.StepExecutor) *TestCaseHandler {
	return &TestCaseHandler{
		store:    store,
		executor: executor,
	}
}

// SaveTestCaseRequest 保存测试用例请求，步骤以原始文档形式进来
type SaveTestCaseRequest struct {
	ID    string                `json:"id"`
	Title string                `json:"title"`
	Steps []runner.StepDocument `json:"steps"`
}

// SaveTestCase 保存或覆盖一个测试用例
// POST /api/v1/testcases
func (h *TestCaseHandler) SaveTestCase(w http.ResponseWriter, r *http.Request) {
	var req SaveTestCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.ID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "id is required")
		return
	}
	if len(req.Steps) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_request", "steps must not be empty")
		return
	}

	steps, err := runner.DecodeSteps(req.Steps)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_steps", err.Error())
		return
	}

	tc := &runner.TestCase{ID: req.ID, Title: req.Title, Steps: steps}
	if err := h.store.SaveTestCase(r.Context(), tc); err != nil {
		logger.LogError("teststore", fmt.Sprintf("保存测试用例失败: %v", err), "")
		WriteError(w, http.StatusInternalServerError, "save_failed", "Failed to save test case")
		return
	}

	logger.LogSuccess("teststore", fmt.Sprintf("测试用例已保存: %s (%d步)", tc.ID, len(tc.Steps)), "")
	WriteSuccess(w, map[string]interface{}{
		"id":         tc.ID,
		"step_count": len(tc.Steps),
	})
}

// GetTestCase 获取单个测试用例
// GET /api/v1/testcases/{id}
func (h *TestCaseHandler) GetTestCase(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	tc, err := h.store.FindTestCase(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "query_failed", "Failed to load test case")
		return
	}
	if tc == nil {
		WriteError(w, http.StatusNotFound, "testcase_not_found", fmt.Sprintf("Test case %q not found", id))
		return
	}

	WriteSuccess(w, tc)
}

// ListTestCases 列出已保存的测试用例
// GET /api/v1/testcases
func (h *TestCaseHandler) ListTestCases(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.ListTestCases(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "query_failed", "Failed to list test cases")
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"count": len(summaries),
		"cases": summaries,
	})
}

// RunTestCaseRequest 执行已保存用例的请求
type RunTestCaseRequest struct {
	SessionKey string `json:"session_key,omitempty"`
}

// RunTestCase 按保存的用例在指定会话上逐步执行
// POST /api/v1/testcases/{id}/run
func (h *TestCaseHandler) RunTestCase(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req RunTestCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	tc, err := h.store.FindTestCase(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "query_failed", "Failed to load test case")
		return
	}
	if tc == nil {
		WriteError(w, http.StatusNotFound, "testcase_not_found", fmt.Sprintf("Test case %q not found", id))
		return
	}

	result, err := h.executor.ExecuteTestCase(r.Context(), req.SessionKey, tc)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "run_failed", err.Error())
		return
	}

	WriteSuccess(w, result)
}

// RunStepsRequest 内联步骤执行请求
type RunStepsRequest struct {
	SessionKey        string                `json:"session_key,omitempty"`
	Title             string                `json:"title,omitempty"`
	Steps             []runner.StepDocument `json:"steps"`
	ContinueOnFailure bool                  `json:"continue_on_failure,omitempty"`
	MacKeyboard       bool                  `json:"mac_keyboard,omitempty"`
}

// RunSteps 直接执行一段内联步骤序列，不落库
// POST /api/v1/testcases/run
func (h *TestCaseHandler) RunSteps(w http.ResponseWriter, r *http.Request) {
	var req RunStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if len(req.Steps) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_request", "steps must not be empty")
		return
	}

	steps, err := runner.DecodeSteps(req.Steps)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_steps", err.Error())
		return
	}

	opts := runner.DefaultOptions()
	opts.ContinueOnFailure = req.ContinueOnFailure
	opts.MacKeyboard = req.MacKeyboard

	results, err := h.executor.ExecuteStepsWithOptions(r.Context(), req.SessionKey, steps, opts)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "run_failed", err.Error())
		return
	}

	passed, failed := 0, 0
	for _, res := range results {
		if res.Success {
			passed++
		} else {
			failed++
		}
	}

	WriteSuccess(w, map[string]interface{}{
		"title":   req.Title,
		"passed":  passed,
		"failed":  failed,
		"results": results,
	})
}
