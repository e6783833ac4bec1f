package workflow

import (
	"context"
	"fmt"
	"time"

	"realtorflow/platform/logging"
)

// monitorLoop is the single independent monitor routine (spec §4.5,
// §5): it wakes every cfg.MonitorIntervalSeconds (default 10s) and
// marks timed-out running tasks failed, subject to the normal retry
// rule.
func (o *Orchestrator) monitorLoop(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(o.cfg.MonitorInterval())
	defer ticker.Stop()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.scanTimeouts(ctx)
		}
	}
}

// scanTimeouts implements spec §4.5's timeout detection: for every
// running task with timeout_seconds set whose deadline has passed,
// mark it failed with error "task timeout" (subject to the normal
// retry rule that may re-ready it instead).
func (o *Orchestrator) scanTimeouts(ctx context.Context) {
	o.mu.RLock()
	execs := make([]*execution, 0, len(o.executions))
	for _, e := range o.executions {
		execs = append(execs, e)
	}
	o.mu.RUnlock()

	now := time.Now().UTC()
	for _, exec := range execs {
		var timedOut []string
		var maxRetriesByTask = map[string]int{}

		exec.mu.Lock()
		if exec.status != ExecutionRunning {
			exec.mu.Unlock()
			continue
		}
		for id, t := range exec.tasks {
			if t.Status != TaskRunning || t.StartedAt == nil {
				continue
			}
			spec := exec.specsByID[id]
			if spec.TimeoutSeconds == nil {
				continue
			}
			deadline := t.StartedAt.Add(time.Duration(*spec.TimeoutSeconds) * time.Second)
			if now.After(deadline) {
				timedOut = append(timedOut, id)
				maxRetriesByTask[id] = spec.maxRetries(o.cfg.DefaultTaskMaxRetries)
			}
		}
		exec.mu.Unlock()

		for _, taskID := range timedOut {
			o.log.Warn(exec.id, "task exceeded its timeout", logging.Fields{"task_id": taskID})
			o.completeTask(ctx, exec, taskID, "monitor", maxRetriesByTask[taskID], 0, nil, fmt.Errorf("task timeout"))
		}
	}
}
