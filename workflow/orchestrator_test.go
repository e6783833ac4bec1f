package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtorflow/platform/config"
	"realtorflow/platform/logging"
	"realtorflow/platform/memory"
)

// fakeExecutor drives tasks through a caller-supplied function,
// recording every call and, optionally, each call's [start, end]
// interval so concurrency can be asserted on.
type fakeExecutor struct {
	mu        sync.Mutex
	calls     []string
	intervals map[string][2]time.Time
	fn        func(tc TaskContext) (map[string]any, error)
}

func newFakeExecutor(fn func(tc TaskContext) (map[string]any, error)) *fakeExecutor {
	return &fakeExecutor{intervals: make(map[string][2]time.Time), fn: fn}
}

func (f *fakeExecutor) ExecuteTask(ctx context.Context, tc TaskContext) (map[string]any, error) {
	start := time.Now()
	f.mu.Lock()
	f.calls = append(f.calls, tc.TaskID)
	f.mu.Unlock()

	result, err := f.fn(tc)

	f.mu.Lock()
	f.intervals[tc.TaskID] = [2]time.Time{start, time.Now()}
	f.mu.Unlock()
	return result, err
}

func (f *fakeExecutor) interval(taskID string) [2]time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intervals[taskID]
}

func defaultOK(tc TaskContext) (map[string]any, error) {
	return map[string]any{"output": "ok-" + tc.TaskID}, nil
}

func newTestOrchestrator(t *testing.T, executor TaskExecutor, def *WorkflowDefinition) (*Orchestrator, string) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	log := logging.New("test")
	mem := memory.New(cfg, log, nil)
	t.Cleanup(func() { _ = mem.Shutdown() })

	defs := NewDefinitionRegistry()
	orch := New(cfg, log, mem, executor, defs)
	require.NoError(t, orch.RegisterWorkflowTemplate(def))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	orch.Start(ctx)
	t.Cleanup(orch.Stop)

	return orch, def.WorkflowID
}

func waitForTerminal(t *testing.T, orch *Orchestrator, executionID string, timeout time.Duration) StatusDTO {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, err := orch.GetWorkflowStatus(executionID)
		require.NoError(t, err)
		switch status.Status {
		case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("execution %s did not reach a terminal status within %s", executionID, timeout)
	return StatusDTO{}
}

// Scenario 1 (spec §8): linear success A → B → C.
func TestOrchestrator_LinearSuccess(t *testing.T) {
	def := &WorkflowDefinition{
		WorkflowID: "linear",
		Tasks: []TaskSpec{
			{TaskID: "A"},
			{TaskID: "B", Dependencies: []string{"A"}},
			{TaskID: "C", Dependencies: []string{"B"}},
		},
	}
	executor := newFakeExecutor(defaultOK)
	orch, tmplID := newTestOrchestrator(t, executor, def)

	execID, err := orch.CreateWorkflowExecution(context.Background(), tmplID, nil, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, orch.StartWorkflowExecution(context.Background(), execID))

	status := waitForTerminal(t, orch, execID, 2*time.Second)
	assert.Equal(t, ExecutionCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)

	exec, ok := orch.get(execID)
	require.True(t, ok)
	exec.mu.Lock()
	defer exec.mu.Unlock()

	for _, id := range []string{"A", "B", "C"} {
		result, ok := exec.context[fmt.Sprintf("task_%s_result", id)].(map[string]any)
		require.True(t, ok, "missing result for %s", id)
		assert.Equal(t, "ok-"+id, result["output"])
	}

	var completedOrder []string
	for _, entry := range exec.log {
		if entry.Event == "task_completed" {
			completedOrder = append(completedOrder, entry.TaskID)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, completedOrder)
}

// Scenario 2 (spec §8): fan-out / fan-in. left and right both depend
// on root and must run concurrently; join must not start before both
// complete.
func TestOrchestrator_FanOutFanIn(t *testing.T) {
	def := &WorkflowDefinition{
		WorkflowID: "fanout",
		Tasks: []TaskSpec{
			{TaskID: "root"},
			{TaskID: "left", Dependencies: []string{"root"}},
			{TaskID: "right", Dependencies: []string{"root"}},
			{TaskID: "join", Dependencies: []string{"left", "right"}},
		},
	}
	executor := newFakeExecutor(func(tc TaskContext) (map[string]any, error) {
		if tc.TaskID == "left" || tc.TaskID == "right" {
			time.Sleep(80 * time.Millisecond)
		}
		return defaultOK(tc)
	})
	orch, tmplID := newTestOrchestrator(t, executor, def)

	execID, err := orch.CreateWorkflowExecution(context.Background(), tmplID, nil, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, orch.StartWorkflowExecution(context.Background(), execID))

	status := waitForTerminal(t, orch, execID, 2*time.Second)
	assert.Equal(t, ExecutionCompleted, status.Status)

	left := executor.interval("left")
	right := executor.interval("right")
	join := executor.interval("join")

	// left and right overlap in time.
	assert.True(t, left[0].Before(right[1]) && right[0].Before(left[1]), "expected left and right to run concurrently")
	// join starts only after both finish.
	assert.True(t, !join[0].Before(left[1]) && !join[0].Before(right[1]), "join started before left/right completed")
}

// Scenario 3 (spec §8): retry exhaustion. Task X fails every attempt
// with max_retries = 2.
func TestOrchestrator_RetryExhaustion(t *testing.T) {
	def := &WorkflowDefinition{
		WorkflowID: "retry",
		Tasks: []TaskSpec{
			{TaskID: "X", MaxRetries: 2},
		},
	}
	executor := newFakeExecutor(func(tc TaskContext) (map[string]any, error) {
		return nil, errors.New("boom")
	})
	orch, tmplID := newTestOrchestrator(t, executor, def)

	execID, err := orch.CreateWorkflowExecution(context.Background(), tmplID, nil, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, orch.StartWorkflowExecution(context.Background(), execID))

	status := waitForTerminal(t, orch, execID, 2*time.Second)
	assert.Equal(t, ExecutionFailed, status.Status)
	assert.Equal(t, 1, status.FailedTasks)

	exec, ok := orch.get(execID)
	require.True(t, ok)
	exec.mu.Lock()
	defer exec.mu.Unlock()

	assert.Equal(t, TaskFailed, exec.tasks["X"].Status)
	assert.Equal(t, 2, exec.tasks["X"].RetryCount)

	var retries, failures int
	for _, entry := range exec.log {
		switch entry.Event {
		case "task_retry":
			retries++
		case "task_failed":
			failures++
		}
	}
	assert.Equal(t, 2, retries)
	assert.Equal(t, 1, failures)
}

func TestOrchestrator_PauseBlocksTaskExecutionUntilResumed(t *testing.T) {
	def := &WorkflowDefinition{
		WorkflowID: "pausable",
		Tasks:      []TaskSpec{{TaskID: "A"}},
	}
	executor := newFakeExecutor(defaultOK)
	orch, tmplID := newTestOrchestrator(t, executor, def)

	execID, err := orch.CreateWorkflowExecution(context.Background(), tmplID, nil, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, orch.StartWorkflowExecution(context.Background(), execID))
	require.NoError(t, orch.PauseWorkflowExecution(execID))

	time.Sleep(150 * time.Millisecond)
	status, err := orch.GetWorkflowStatus(execID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionPaused, status.Status)
	assert.Equal(t, 0, status.CompletedTasks)

	require.NoError(t, orch.ResumeWorkflowExecution(execID))
	status = waitForTerminal(t, orch, execID, 2*time.Second)
	assert.Equal(t, ExecutionCompleted, status.Status)
}

func TestOrchestrator_CancelPreventsDependentPropagation(t *testing.T) {
	def := &WorkflowDefinition{
		WorkflowID: "cancellable",
		Tasks: []TaskSpec{
			{TaskID: "A"},
			{TaskID: "B", Dependencies: []string{"A"}},
		},
	}
	started := make(chan struct{})
	release := make(chan struct{})
	executor := newFakeExecutor(func(tc TaskContext) (map[string]any, error) {
		if tc.TaskID == "A" {
			close(started)
			<-release
		}
		return defaultOK(tc)
	})
	orch, tmplID := newTestOrchestrator(t, executor, def)

	execID, err := orch.CreateWorkflowExecution(context.Background(), tmplID, nil, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, orch.StartWorkflowExecution(context.Background(), execID))

	<-started
	require.NoError(t, orch.CancelWorkflowExecution(execID))
	close(release)

	time.Sleep(150 * time.Millisecond)
	status, err := orch.GetWorkflowStatus(execID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionCancelled, status.Status)

	exec, ok := orch.get(execID)
	require.True(t, ok)
	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Equal(t, TaskCompleted, exec.tasks["A"].Status, "A should still record its result")
	assert.Equal(t, TaskWaiting, exec.tasks["B"].Status, "B must not be propagated to ready after cancellation")
}

func TestOrchestrator_TaskTimeout(t *testing.T) {
	def := &WorkflowDefinition{
		WorkflowID: "timeout-wf",
		Tasks:      []TaskSpec{{TaskID: "slow", TimeoutSeconds: intPtr(1), MaxRetries: 1}},
	}
	hang := make(chan struct{})
	executor := newFakeExecutor(func(tc TaskContext) (map[string]any, error) {
		<-hang
		return defaultOK(tc)
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.MonitorIntervalSeconds = 1
	log := logging.New("test")
	mem := memory.New(cfg, log, nil)
	t.Cleanup(func() { _ = mem.Shutdown() })
	defs := NewDefinitionRegistry()
	orch := New(cfg, log, mem, executor, defs)
	require.NoError(t, orch.RegisterWorkflowTemplate(def))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	orch.Start(ctx)
	t.Cleanup(func() {
		close(hang)
		orch.Stop()
	})

	execID, err := orch.CreateWorkflowExecution(context.Background(), "timeout-wf", nil, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, orch.StartWorkflowExecution(context.Background(), execID))

	status := waitForTerminal(t, orch, execID, 5*time.Second)
	assert.Equal(t, ExecutionFailed, status.Status)
	assert.Equal(t, 1, status.FailedTasks)
	require.Len(t, status.Errors, 1)
	assert.Contains(t, status.Errors[0], "timeout")
}

func intPtr(v int) *int { return &v }
