// Package cost persists per-call LLM usage and cost so the Model
// Router's accounting survives process restarts (SPEC_FULL §3.3,
// grounded on the teacher's orchestrator/cost package).
package cost

import (
	"errors"
	"time"
)

var ErrLedgerUnavailable = errors.New("cost ledger is not configured")

// UsageRecord is one append-only row: the accounting half of a
// ModelResponse.
type UsageRecord struct {
	ID               int64
	Timestamp        time.Time
	WorkflowID       string
	AgentID          string
	ModelID          string
	Provider         string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Cost             float64
}

// UsageAggregate rolls up cost/tokens for a model over a period, used
// by operator-facing rollups.
type UsageAggregate struct {
	ModelID      string
	Provider     string
	PeriodStart  time.Time
	RequestCount int64
	TotalCostUSD float64
	TotalTokens  int64
}

// WorkflowUsageAggregate rolls up cost/tokens for one workflow,
// bucketed by day, so an operator can see what a given contract
// workflow cost to run.
type WorkflowUsageAggregate struct {
	WorkflowID   string
	Day          time.Time
	RequestCount int64
	TotalCostUSD float64
	TotalTokens  int64
}

// AgentUsageAggregate rolls up cost/tokens for one agent role,
// bucketed by day.
type AgentUsageAggregate struct {
	AgentID      string
	Day          time.Time
	RequestCount int64
	TotalCostUSD float64
	TotalTokens  int64
}
