package workflow

import (
	"sync"

	"realtorflow/platform/orcerr"
)

// DefinitionRegistry holds registered WorkflowDefinitions, keyed by
// workflow_id. It mirrors the atomic-validate-then-swap idiom used by
// agentruntime.Registry and the teacher's AgentRegistry: nothing is
// stored until it passes validation.
type DefinitionRegistry struct {
	mu          sync.RWMutex
	definitions map[string]*WorkflowDefinition
}

func NewDefinitionRegistry() *DefinitionRegistry {
	return &DefinitionRegistry{definitions: make(map[string]*WorkflowDefinition)}
}

// RegisterWorkflowTemplate inserts or replaces a definition by
// workflow_id. Rejects definitions whose dependency graph contains
// cycles or dangling references (spec §4.5).
func (r *DefinitionRegistry) RegisterWorkflowTemplate(def *WorkflowDefinition) error {
	if def.WorkflowID == "" {
		return orcerr.Validation("RegisterWorkflowTemplate", "", "workflow_id is required")
	}
	if len(def.Tasks) == 0 {
		return orcerr.Validation("RegisterWorkflowTemplate", def.WorkflowID, "workflow has no tasks")
	}

	seen := make(map[string]bool, len(def.Tasks))
	for _, t := range def.Tasks {
		if t.TaskID == "" {
			return orcerr.Validation("RegisterWorkflowTemplate", def.WorkflowID, "task with empty task_id")
		}
		if seen[t.TaskID] {
			return orcerr.Validation("RegisterWorkflowTemplate", def.WorkflowID, "duplicate task_id "+t.TaskID)
		}
		seen[t.TaskID] = true
	}

	for _, t := range def.Tasks {
		for _, dep := range t.Dependencies {
			if !seen[dep] {
				return orcerr.Validation("RegisterWorkflowTemplate", def.WorkflowID, "task "+t.TaskID+" depends on unknown task "+dep)
			}
		}
	}

	if cyc := findCycle(def.Tasks); cyc != "" {
		return orcerr.Validation("RegisterWorkflowTemplate", def.WorkflowID, "dependency cycle detected involving task "+cyc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.WorkflowID] = def
	return nil
}

func (r *DefinitionRegistry) Get(workflowID string) (*WorkflowDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[workflowID]
	return def, ok
}

// findCycle runs a standard white/gray/black DFS over the dependency
// graph and returns the task_id where a cycle was detected, or "" if
// the graph is acyclic.
func findCycle(tasks []TaskSpec) string {
	byID := make(map[string]TaskSpec, len(tasks))
	for _, t := range tasks {
		byID[t.TaskID] = t
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, dep := range byID[id].Dependencies {
			switch color[dep] {
			case gray:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, t := range tasks {
		if color[t.TaskID] == white {
			if visit(t.TaskID) {
				return t.TaskID
			}
		}
	}
	return ""
}
