package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"realtorflow/platform/audit"
	"realtorflow/platform/logging"
	"realtorflow/platform/memory"
)

// Summary is what Registry writes to the Memory Store after every
// invocation. It deliberately omits raw tool output, per spec §4.2
// ("the summary never contains the raw content, to bound memory").
type Summary struct {
	ToolName   string `json:"tool_name"`
	Category   string `json:"category"`
	ResultKeys []string `json:"result_keys"`
	ErrorCount int    `json:"error_count"`
	DurationMS int64  `json:"duration_ms"`
}

// Registry is the catalog of registered tools.
type Registry struct {
	log   *logging.Logger
	mem   *memory.Store
	audit *audit.Logger

	mu    sync.RWMutex
	tools map[string]Tool
}

// New constructs an empty Registry. mem may be nil in tests that don't
// care about the memory summary trail.
func New(log *logging.Logger, mem *memory.Store) *Registry {
	return &Registry{log: log, mem: mem, tools: make(map[string]Tool)}
}

// WithAuditLogger attaches a durable audit trail: every Invoke call
// additionally appends one row via auditor, independent of (and in
// addition to) the per-workflow memory Summary recordSummary writes.
// A nil auditor is a no-op, matching the zero-value Registry's
// behavior before this was wired in.
func (r *Registry) WithAuditLogger(auditor *audit.Logger) *Registry {
	r.audit = auditor
	return r
}

// Register inserts tool by name. A duplicate name replaces the prior
// registration and logs a warning (spec §4.2).
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		r.log.Warn("", "replacing existing tool registration", logging.Fields{"tool_name": tool.Name()})
	}
	r.tools[tool.Name()] = tool
}

// Get returns the tool registered under name, or nil.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// ByCategory returns every tool registered under category.
func (r *Registry) ByCategory(category Category) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Tool
	for _, t := range r.tools {
		if t.Category() == category {
			out = append(out, t)
		}
	}
	return out
}

// Descriptor is the summary List returns: enough to let an agent or
// operator browse the catalog without touching a Tool value.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Class       string `json:"class"`
}

// List returns a descriptor for every registered tool.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Category:    string(t.Category()),
			Class:       fmt.Sprintf("%T", t),
		})
	}
	return out
}

// Invoke runs the named tool through the wrapped-execution contract
// (spec §4.2): timed, logged, and summarized into the Memory Store. A
// missing tool or an execute-time panic/error is synthesized into a
// failed Result rather than propagated, so one bad tool call can never
// abort a task.
func (r *Registry) Invoke(ctx context.Context, name string, input Input) Result {
	tool := r.Get(name)
	if tool == nil {
		return Result{
			Success:   false,
			Errors:    []string{fmt.Sprintf("tool %q is not registered", name)},
			ToolName:  name,
			Timestamp: time.Now().UTC(),
		}
	}

	r.log.Info(input.WorkflowID, "tool execution started", logging.Fields{"tool_name": name, "agent_id": input.AgentID})
	start := time.Now()

	result := r.runTool(ctx, tool, input)
	result.ExecutionTime = time.Since(start)
	result.ToolName = name
	result.Timestamp = time.Now().UTC()

	r.log.Info(input.WorkflowID, "tool execution finished", logging.Fields{
		"tool_name": name, "success": result.Success, "error_count": len(result.Errors),
		"duration_ms": result.ExecutionTime.Milliseconds(),
	})

	r.recordSummary(ctx, tool, input, result)
	r.recordAudit(tool, input, result)
	return result
}

func (r *Registry) recordAudit(tool Tool, input Input, result Result) {
	if r.audit == nil {
		return
	}
	r.audit.Log(audit.Entry{
		WorkflowID: input.WorkflowID,
		AgentID:    input.AgentID,
		UserID:     input.UserID,
		ToolName:   tool.Name(),
		Category:   string(tool.Category()),
		Success:    result.Success,
		ErrorCount: len(result.Errors),
		DurationMS: result.ExecutionTime.Milliseconds(),
	})
}

func (r *Registry) runTool(ctx context.Context, tool Tool, input Input) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Result{Success: false, Errors: []string{fmt.Sprintf("tool panicked: %v", rec)}}
		}
	}()

	res, err := tool.Execute(ctx, input)
	if err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}
	}
	return res
}

func (r *Registry) recordSummary(ctx context.Context, tool Tool, input Input, result Result) {
	if r.mem == nil {
		return
	}
	keys := make([]string, 0, len(result.Data))
	for k := range result.Data {
		keys = append(keys, k)
	}
	summary := Summary{
		ToolName:   tool.Name(),
		Category:   string(tool.Category()),
		ResultKeys: keys,
		ErrorCount: len(result.Errors),
		DurationMS: result.ExecutionTime.Milliseconds(),
	}
	_, err := r.mem.Store(ctx, summary, memory.StoreParams{
		Type:       memory.TypeWorkflow,
		Scope:      memory.ScopeWorkflow,
		Identifier: fmt.Sprintf("tool_invocation:%s:%d", tool.Name(), time.Now().UnixNano()),
		AgentID:    input.AgentID,
		WorkflowID: input.WorkflowID,
	})
	if err != nil {
		r.log.Warn(input.WorkflowID, "failed to record tool invocation summary", logging.Fields{"tool_name": tool.Name(), "error": err.Error()})
	}
}
