package cost

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Ledger is the Postgres-backed durable store for LLM usage. A nil
// *Ledger is never passed to the router; construction itself is
// optional (spec §3's cost ledger is a supplement, not load-bearing
// for generate_response).
type Ledger struct {
	db *sql.DB
}

// NewLedger opens a Postgres connection pool for the cost ledger.
func NewLedger(dsn string) (*Ledger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cost ledger: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	return &Ledger{db: db}, nil
}

// RecordUsage appends one UsageRecord.
func (l *Ledger) RecordUsage(ctx context.Context, rec UsageRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	query := `
		INSERT INTO llm_usage_records (
			timestamp, workflow_id, agent_id, model_id, provider,
			prompt_tokens, completion_tokens, total_tokens, cost_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := l.db.QueryRowContext(ctx, query,
		rec.Timestamp, nullString(rec.WorkflowID), nullString(rec.AgentID),
		rec.ModelID, rec.Provider, rec.PromptTokens, rec.CompletionTokens,
		rec.TotalTokens, rec.Cost,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	return nil
}

// AggregateByModel rolls up total cost and tokens per model since
// since, for the model router's operator-facing rollups.
func (l *Ledger) AggregateByModel(ctx context.Context, since time.Time) ([]UsageAggregate, error) {
	query := `
		SELECT model_id, provider, $1::timestamptz AS period_start,
		       COUNT(*), COALESCE(SUM(cost_usd), 0), COALESCE(SUM(total_tokens), 0)
		FROM llm_usage_records
		WHERE timestamp >= $1
		GROUP BY model_id, provider
	`
	rows, err := l.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating usage: %w", err)
	}
	defer rows.Close()

	var out []UsageAggregate
	for rows.Next() {
		var agg UsageAggregate
		if err := rows.Scan(&agg.ModelID, &agg.Provider, &agg.PeriodStart, &agg.RequestCount, &agg.TotalCostUSD, &agg.TotalTokens); err != nil {
			return nil, fmt.Errorf("scanning usage aggregate: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

// AggregateByWorkflow rolls up total cost and tokens per workflow per
// day since since, so a contract workflow's run cost can be queried
// independently of which model or agent serviced it.
func (l *Ledger) AggregateByWorkflow(ctx context.Context, since time.Time) ([]WorkflowUsageAggregate, error) {
	query := `
		SELECT workflow_id, date_trunc('day', timestamp) AS day,
		       COUNT(*), COALESCE(SUM(cost_usd), 0), COALESCE(SUM(total_tokens), 0)
		FROM llm_usage_records
		WHERE timestamp >= $1 AND workflow_id IS NOT NULL
		GROUP BY workflow_id, day
		ORDER BY day
	`
	rows, err := l.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating usage by workflow: %w", err)
	}
	defer rows.Close()

	var out []WorkflowUsageAggregate
	for rows.Next() {
		var agg WorkflowUsageAggregate
		if err := rows.Scan(&agg.WorkflowID, &agg.Day, &agg.RequestCount, &agg.TotalCostUSD, &agg.TotalTokens); err != nil {
			return nil, fmt.Errorf("scanning workflow usage aggregate: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

// AggregateByAgent rolls up total cost and tokens per agent role per
// day since since.
func (l *Ledger) AggregateByAgent(ctx context.Context, since time.Time) ([]AgentUsageAggregate, error) {
	query := `
		SELECT agent_id, date_trunc('day', timestamp) AS day,
		       COUNT(*), COALESCE(SUM(cost_usd), 0), COALESCE(SUM(total_tokens), 0)
		FROM llm_usage_records
		WHERE timestamp >= $1 AND agent_id IS NOT NULL
		GROUP BY agent_id, day
		ORDER BY day
	`
	rows, err := l.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating usage by agent: %w", err)
	}
	defer rows.Close()

	var out []AgentUsageAggregate
	for rows.Next() {
		var agg AgentUsageAggregate
		if err := rows.Scan(&agg.AgentID, &agg.Day, &agg.RequestCount, &agg.TotalCostUSD, &agg.TotalTokens); err != nil {
			return nil, fmt.Errorf("scanning agent usage aggregate: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func (l *Ledger) Close() error { return l.db.Close() }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
