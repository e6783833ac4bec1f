package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"realtorflow/platform/llmrouter"
	"realtorflow/platform/orcerr"
	"realtorflow/platform/workflow"
)

// server exposes the spec §6 External Interfaces over HTTP: one thin
// handler per public API operation, translating JSON request bodies
// into the orchestrator's Go calls and orcerr kinds into HTTP status
// codes.
type server struct {
	orch   *workflow.Orchestrator
	router *llmrouter.Router
}

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtorflow_orchestrator_requests_total",
			Help: "Total HTTP requests processed by the orchestrator, by route and status.",
		},
		[]string{"route", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realtorflow_orchestrator_request_duration_milliseconds",
			Help:    "HTTP request duration in milliseconds, by route.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

func instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			requestDuration.WithLabelValues(route).Observe(v * 1000)
		}))
		defer timer.ObserveDuration()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		requestsTotal.WithLabelValues(route, http.StatusText(sw.status)).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	if kind, ok := orcerr.KindOf(err); ok {
		switch kind {
		case orcerr.KindValidation:
			status = http.StatusBadRequest
		case orcerr.KindNotFound:
			status = http.StatusNotFound
		case orcerr.KindStateConflict:
			status = http.StatusConflict
		case orcerr.KindResourceUnavailable:
			status = http.StatusServiceUnavailable
		case orcerr.KindAccessDenied:
			status = http.StatusForbidden
		case orcerr.KindExecution:
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, map[string]string{"op": op, "error": err.Error()})
}

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) registerWorkflowTemplate(w http.ResponseWriter, r *http.Request) {
	var def workflow.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.orch.RegisterWorkflowTemplate(&def); err != nil {
		writeError(w, "RegisterWorkflowTemplate", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"workflow_id": def.WorkflowID})
}

type createExecutionRequest struct {
	TemplateID  string         `json:"template_id"`
	InputData   map[string]any `json:"input_data"`
	UserID      string         `json:"user_id"`
	ExecutionID string         `json:"execution_id,omitempty"`
}

func (s *server) createWorkflowExecution(w http.ResponseWriter, r *http.Request) {
	var req createExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	executionID, err := s.orch.CreateWorkflowExecution(r.Context(), req.TemplateID, req.InputData, req.UserID, req.ExecutionID)
	if err != nil {
		writeError(w, "CreateWorkflowExecution", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"execution_id": executionID})
}

func (s *server) startWorkflowExecution(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["id"]
	if err := s.orch.StartWorkflowExecution(r.Context(), executionID); err != nil {
		writeError(w, "StartWorkflowExecution", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"execution_id": executionID, "status": "running"})
}

func (s *server) pauseWorkflowExecution(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["id"]
	if err := s.orch.PauseWorkflowExecution(executionID); err != nil {
		writeError(w, "PauseWorkflowExecution", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"execution_id": executionID, "status": "paused"})
}

func (s *server) resumeWorkflowExecution(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["id"]
	if err := s.orch.ResumeWorkflowExecution(executionID); err != nil {
		writeError(w, "ResumeWorkflowExecution", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"execution_id": executionID, "status": "running"})
}

func (s *server) cancelWorkflowExecution(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["id"]
	if err := s.orch.CancelWorkflowExecution(executionID); err != nil {
		writeError(w, "CancelWorkflowExecution", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"execution_id": executionID, "status": "cancelled"})
}

func (s *server) getWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["id"]
	status, err := s.orch.GetWorkflowStatus(executionID)
	if err != nil {
		writeError(w, "GetWorkflowStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type generateResponseRequest struct {
	Messages        []llmrouter.Message `json:"messages"`
	SystemPrompt    string              `json:"system_prompt,omitempty"`
	MaxTokens       int                 `json:"max_tokens,omitempty"`
	Temperature     float64             `json:"temperature,omitempty"`
	Tools           []string            `json:"tools,omitempty"`
	ModelPreference string              `json:"model_preference,omitempty"`
}

func (s *server) generateResponse(w http.ResponseWriter, r *http.Request) {
	var req generateResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	resp, err := s.router.GenerateResponse(r.Context(), llmrouter.Request{
		Messages:        req.Messages,
		SystemPrompt:    req.SystemPrompt,
		MaxTokens:       req.MaxTokens,
		Temperature:     req.Temperature,
		Tools:           req.Tools,
		ModelPreference: req.ModelPreference,
	})
	if err != nil {
		writeError(w, "GenerateResponse", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// registerRoutes mirrors the wider platform's gorilla/mux + route-table
// convention, scoped to the operations spec §6 names.
func (s *server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/health", instrument("health", s.healthHandler)).Methods("GET")

	r.HandleFunc("/api/v1/workflows/templates", instrument("register_template", s.registerWorkflowTemplate)).Methods("POST")
	r.HandleFunc("/api/v1/workflows/executions", instrument("create_execution", s.createWorkflowExecution)).Methods("POST")
	r.HandleFunc("/api/v1/workflows/executions/{id}/start", instrument("start_execution", s.startWorkflowExecution)).Methods("POST")
	r.HandleFunc("/api/v1/workflows/executions/{id}/pause", instrument("pause_execution", s.pauseWorkflowExecution)).Methods("POST")
	r.HandleFunc("/api/v1/workflows/executions/{id}/resume", instrument("resume_execution", s.resumeWorkflowExecution)).Methods("POST")
	r.HandleFunc("/api/v1/workflows/executions/{id}/cancel", instrument("cancel_execution", s.cancelWorkflowExecution)).Methods("POST")
	r.HandleFunc("/api/v1/workflows/executions/{id}", instrument("get_status", s.getWorkflowStatus)).Methods("GET")

	r.HandleFunc("/api/v1/models/generate", instrument("generate_response", s.generateResponse)).Methods("POST")
}
