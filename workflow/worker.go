package workflow

import (
	"context"
	"fmt"
	"time"

	"realtorflow/platform/logging"
)

// workerLoop is one of cfg.WorkerCount fixed worker routines consuming
// the shared ready queue, implementing the ten-step loop of spec
// §4.5.
func (o *Orchestrator) workerLoop(ctx context.Context, workerID string) {
	defer o.wg.Done()
	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		case item := <-o.ready:
			o.processReadyItem(ctx, workerID, item)
		case <-time.After(time.Second):
			// Step 1: dequeue with a 1s timeout; nothing arrived, retry.
		}
	}
}

// processReadyItem implements worker loop steps 2 through 5: look up
// the execution and task, transition ready → running under the
// execution's lock, then invoke the task executor outside the lock
// (a suspension point, per spec §5).
func (o *Orchestrator) processReadyItem(ctx context.Context, workerID string, item readyItem) {
	exec, ok := o.get(item.executionID)
	if !ok {
		return // step 2: execution absent, discard
	}

	exec.mu.Lock()
	if exec.status == ExecutionPaused {
		exec.mu.Unlock()
		// Re-queue without advancing the task (spec §4.5: "re-queue
		// (head) a paused-execution task"). A channel only supports
		// FIFO re-insertion, so this is approximated as a short-delayed
		// tail re-queue to avoid a tight spin while paused.
		go func() {
			select {
			case <-time.After(50 * time.Millisecond):
				o.enqueue(item.executionID, item.taskID)
			case <-o.stopCh:
			}
		}()
		return
	}
	if exec.status != ExecutionRunning {
		exec.mu.Unlock()
		return // step 2: execution not running, discard
	}

	task, ok := exec.tasks[item.taskID]
	if !ok || task.Status != TaskReady {
		exec.mu.Unlock()
		return // step 3: task no longer ready, discard
	}

	spec := exec.specsByID[item.taskID]
	now := time.Now().UTC()
	task.Status = TaskRunning
	task.StartedAt = &now
	task.AssignedWorker = workerID

	tc := TaskContext{
		ExecutionID:      exec.id,
		WorkflowID:       exec.workflowID,
		TaskID:           item.taskID,
		AgentRole:        spec.AgentRole,
		TaskType:         spec.TaskType,
		Description:      spec.Description,
		InputData:        spec.InputData,
		UserID:           contextUserID(exec.context),
		ExecutionContext: cloneContext(exec.context),
	}
	timeoutSeconds := spec.TimeoutSeconds
	maxRetries := spec.maxRetries(o.cfg.DefaultTaskMaxRetries)
	exec.mu.Unlock()

	runCtx := ctx
	var cancel context.CancelFunc
	if timeoutSeconds != nil {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(*timeoutSeconds)*time.Second)
	}

	start := time.Now()
	result, err := o.executor.ExecuteTask(runCtx, tc)
	duration := time.Since(start)
	if cancel != nil {
		cancel()
	}

	o.completeTask(ctx, exec, item.taskID, workerID, maxRetries, duration, result, err)
}

// completeTask implements worker loop steps 6 through 10: record the
// outcome, retry or fail, propagate newly-ready or newly-skipped
// dependents, and check whether the execution has reached a terminal
// status.
func (o *Orchestrator) completeTask(ctx context.Context, exec *execution, taskID, workerID string, maxRetries int, duration time.Duration, result map[string]any, taskErr error) {
	exec.mu.Lock()

	task := exec.tasks[taskID]
	if task.Status != TaskRunning {
		// Already resolved by another path (e.g. the monitor raced a
		// worker that just completed the same task); nothing to do.
		exec.mu.Unlock()
		return
	}
	wasCancelled := exec.status == ExecutionCancelled
	var toEnqueue []string

	switch {
	case taskErr == nil:
		now := time.Now().UTC()
		task.Status = TaskCompleted
		task.CompletedAt = &now
		task.Result = result
		exec.context[fmt.Sprintf("task_%s_result", taskID)] = result
		exec.appendLog("task_completed", taskID, workerID, duration, "")

	case task.RetryCount < maxRetries:
		task.RetryCount++
		task.Status = TaskReady
		exec.appendLog("task_retry", taskID, workerID, duration, taskErr.Error())
		toEnqueue = append(toEnqueue, taskID)

	default:
		now := time.Now().UTC()
		task.Status = TaskFailed
		task.CompletedAt = &now
		task.Error = taskErr.Error()
		exec.appendLog("task_failed", taskID, workerID, duration, taskErr.Error())
	}

	// Step 9: propagate dependents. Cancellation blocks propagation
	// entirely (spec §5), but a completed/failed/skipped task can
	// unblock more than one level of dependent, so iterate to a
	// fixpoint rather than a single pass.
	if !wasCancelled {
		policy := exec.def.dependencyPolicy()
		for {
			changed := false
			for id, t := range exec.tasks {
				if t.Status != TaskWaiting {
					continue
				}
				if exec.dependenciesCompleted(id) {
					t.Status = TaskReady
					toEnqueue = append(toEnqueue, id)
					changed = true
				} else if policy == OnDependencyFailureSkip && exec.dependencyBlocked(id) {
					t.Status = TaskSkipped
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}

	// Step 10: completion check. Besides the all-terminal case, the
	// execution also ends once no task is ready or running: any task
	// still waiting then depends on a failed one and can never run.
	active := false
	for _, t := range exec.tasks {
		if t.Status == TaskReady || t.Status == TaskRunning {
			active = true
			break
		}
	}
	terminalNow := false
	if (exec.allTerminal() || !active) && !exec.status.terminal() {
		now := time.Now().UTC()
		if exec.anyFailed() {
			exec.status = ExecutionFailed
		} else {
			exec.status = ExecutionCompleted
		}
		exec.completedAt = &now
		terminalNow = true
	}
	exec.mu.Unlock()

	for _, id := range toEnqueue {
		o.enqueue(exec.id, id)
	}

	if terminalNow {
		o.log.Info(exec.id, "workflow execution reached terminal status", logging.Fields{"status": string(exec.status)})
	}
	o.persist(ctx, exec)
}

func contextUserID(ctx map[string]any) string {
	if v, ok := ctx["user_id"].(string); ok {
		return v
	}
	return ""
}

func cloneContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
