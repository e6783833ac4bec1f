package workflow

import (
	"sync"
	"time"
)

// execution is a running instance of a WorkflowDefinition. One mutex
// guards both the execution-level fields and every TaskState beneath
// it, so a worker's "look up → transition" sequence (spec §4.5 worker
// loop steps 2-4) is atomic without a separate per-task lock; the
// mutex is only ever held across in-memory work, never across a
// suspension point (spec §5).
type execution struct {
	mu sync.Mutex

	id           string
	workflowID   string
	def          *WorkflowDefinition
	specsByID    map[string]*TaskSpec
	status       ExecutionStatus
	startedAt    *time.Time
	completedAt  *time.Time
	context      map[string]any
	tasks        map[string]*TaskState
	log          []LogEntry
	createdAt    time.Time
}

func newExecution(id string, def *WorkflowDefinition, inputData map[string]any, userID string) *execution {
	specsByID := make(map[string]*TaskSpec, len(def.Tasks))
	tasks := make(map[string]*TaskState, len(def.Tasks))
	for i := range def.Tasks {
		spec := def.Tasks[i]
		specsByID[spec.TaskID] = &spec
		tasks[spec.TaskID] = &TaskState{Status: TaskWaiting}
	}

	return &execution{
		id:         id,
		workflowID: def.WorkflowID,
		def:        def,
		specsByID:  specsByID,
		status:     ExecutionPending,
		context: map[string]any{
			"input_data": inputData,
			"user_id":    userID,
		},
		tasks:     tasks,
		createdAt: time.Now().UTC(),
	}
}

// maxRetries returns the effective retry budget for a task: its own
// max_retries if set, else the orchestrator-wide default.
func (s *TaskSpec) maxRetries(defaultMaxRetries int) int {
	if s.MaxRetries > 0 {
		return s.MaxRetries
	}
	return defaultMaxRetries
}

// dependenciesCompleted reports whether every dependency of taskID has
// status completed. Must be called with e.mu held.
func (e *execution) dependenciesCompleted(taskID string) bool {
	spec := e.specsByID[taskID]
	for _, dep := range spec.Dependencies {
		if e.tasks[dep].Status != TaskCompleted {
			return false
		}
	}
	return true
}

// dependencyBlocked reports whether any dependency of taskID is
// terminally failed or skipped, meaning taskID can never become ready
// under the "wait" policy and is a skip candidate under the "skip"
// policy.
func (e *execution) dependencyBlocked(taskID string) bool {
	spec := e.specsByID[taskID]
	for _, dep := range spec.Dependencies {
		st := e.tasks[dep].Status
		if st == TaskFailed || st == TaskSkipped {
			return true
		}
	}
	return false
}

// progress returns 100 × completed ÷ total (spec §4.5), counting
// skipped tasks as resolved-but-not-completed so it never exceeds 100
// before every task reaches a terminal status.
func (e *execution) progress() int {
	total := len(e.tasks)
	if total == 0 {
		return 0
	}
	completed := 0
	for _, t := range e.tasks {
		if t.Status == TaskCompleted {
			completed++
		}
	}
	return 100 * completed / total
}

// allTerminal reports whether every task has reached a terminal
// status (spec §4.5 worker loop step 10).
func (e *execution) allTerminal() bool {
	for _, t := range e.tasks {
		if !t.Status.terminal() {
			return false
		}
	}
	return true
}

func (e *execution) anyFailed() bool {
	for _, t := range e.tasks {
		if t.Status == TaskFailed {
			return true
		}
	}
	return false
}

func (e *execution) appendLog(event, taskID, worker string, duration time.Duration, message string) {
	e.log = append(e.log, LogEntry{
		Timestamp:  time.Now().UTC(),
		Event:      event,
		TaskID:     taskID,
		Worker:     worker,
		DurationMS: duration.Milliseconds(),
		Message:    message,
	})
}

func (e *execution) statusDTO() StatusDTO {
	dto := StatusDTO{
		Status:      e.status,
		Progress:    e.progress(),
		StartedAt:   e.startedAt,
		CompletedAt: e.completedAt,
		TotalTasks:  len(e.tasks),
	}
	for _, t := range e.tasks {
		switch t.Status {
		case TaskCompleted:
			dto.CompletedTasks++
		case TaskRunning:
			dto.RunningTasks++
		case TaskFailed:
			dto.FailedTasks++
			if t.Error != "" {
				dto.Errors = append(dto.Errors, t.Error)
			}
		}
	}
	return dto
}

func (e *execution) toPersisted() persistedExecution {
	var failedIDs []string
	for id, t := range e.tasks {
		if t.Status == TaskFailed {
			failedIDs = append(failedIDs, id)
		}
	}
	return persistedExecution{
		Status:      e.status,
		Progress:    e.progress(),
		Context:     e.context,
		CreatedAt:   e.createdAt,
		CompletedAt: e.completedAt,
		FailedTasks: failedIDs,
		Tasks:       e.tasks,
		Log:         e.log,
	}
}
