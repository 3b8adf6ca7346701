package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/warriorguo/stepflow/types"
)

const maxRequestBody = 1 << 20

type Config struct {
	Engine types.FlowEngine
	// DefaultWorkflow is what POST /start-state-machine runs.
	DefaultWorkflow string
}

type Handler struct {
	engine          types.FlowEngine
	defaultWorkflow string
	startTime       time.Time
}

func NewHandler(config Config) *Handler {
	return &Handler{
		engine:          config.Engine,
		defaultWorkflow: config.DefaultWorkflow,
		startTime:       time.Now(),
	}
}

type startResponse struct {
	ExecutionID string `json:"executionId"`
	Workflow    string `json:"workflow"`
}

type executionResponse struct {
	ExecutionID string                `json:"executionId"`
	Workflow    string                `json:"workflow"`
	Status      string                `json:"status"`
	CreateTime  *time.Time            `json:"createTime,omitempty"`
	EndTime     *time.Time            `json:"endTime,omitempty"`
	Result      *types.SubmitResult   `json:"result,omitempty"`
	Trace       *types.ExecutionTrace `json:"trace,omitempty"`
}

func newExecutionResponse(s *types.ExecutionStatus) *executionResponse {
	resp := &executionResponse{
		ExecutionID: s.ExecutionID,
		Workflow:    s.Workflow,
		Status:      s.Status.String(),
		Result:      s.Result,
		Trace:       s.Trace,
	}
	if !s.CreateTime.IsZero() {
		resp.CreateTime = &s.CreateTime
	}
	if !s.EndTime.IsZero() {
		resp.EndTime = &s.EndTime
	}
	return resp
}

// decodeInput reads the request body as the workflow input. An empty body
// is an empty input; the first step decides whether that is acceptable.
func decodeInput(r *http.Request) (types.Data, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return nil, errors.Annotatef(err, "read body")
	}
	input := types.Data{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return input, nil
	}
	if err := json.Unmarshal(b, &input); err != nil {
		return nil, errors.NotValidf("request body: %v", err)
	}
	return input, nil
}

// StartStateMachine runs the default workflow and answers with its
// SubmitResult, 200 on SUCCEED and 400 on FAILED.
func (h *Handler) StartStateMachine(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.defaultWorkflow)
}

func (h *Handler) SubmitWorkflow(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, r.PathValue("name"))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, workflow string) {
	input, err := decodeInput(r)
	if err != nil {
		Error(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	result, err := h.engine.Submit(r.Context(), workflow, input)
	if err != nil {
		EngineError(w, err)
		return
	}
	JSON(w, result.StatusCode, result)
}

func (h *Handler) StartExecution(w http.ResponseWriter, r *http.Request) {
	workflow := r.PathValue("name")
	input, err := decodeInput(r)
	if err != nil {
		Error(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	executionID, err := h.engine.Start(r.Context(), workflow, input)
	if err != nil {
		EngineError(w, err)
		return
	}
	w.Header().Set("Location", "/executions/"+executionID)
	JSON(w, http.StatusAccepted, startResponse{ExecutionID: executionID, Workflow: workflow})
}

func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.GetExecution(r.Context(), r.PathValue("id"))
	if err != nil {
		EngineError(w, err)
		return
	}
	JSON(w, http.StatusOK, newExecutionResponse(status))
}

func (h *Handler) RenderExecution(w http.ResponseWriter, r *http.Request) {
	dot, err := h.engine.RenderExecution(r.Context(), r.PathValue("id"))
	if err != nil {
		EngineError(w, err)
		return
	}
	Text(w, http.StatusOK, "text/vnd.graphviz", dot)
}

func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"workflows": h.engine.ListWorkflowNames()})
}

func (h *Handler) RenderWorkflow(w http.ResponseWriter, r *http.Request) {
	dot, err := h.engine.RenderWorkflow(r.PathValue("name"))
	if err != nil {
		EngineError(w, err)
		return
	}
	Text(w, http.StatusOK, "text/vnd.graphviz", dot)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	Text(w, http.StatusOK, "text/plain", fmt.Sprintf("ok %s", time.Since(h.startTime).Truncate(time.Second)))
}
