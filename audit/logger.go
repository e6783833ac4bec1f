// Package audit persists a durable trail of tool invocations across
// workflows (SPEC_FULL §4: "Audit log of tool invocations"), grounded
// on the teacher's orchestrator/audit_logger.go batching design but
// scoped to the Tool Registry's wrapped-execution contract instead of
// the teacher's request/policy surface.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"realtorflow/platform/logging"
)

// Entry is one audit row: the record of a single tool invocation.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	AgentID    string    `json:"agent_id"`
	UserID     string    `json:"user_id"`
	ToolName   string    `json:"tool_name"`
	Category   string    `json:"category"`
	Success    bool      `json:"success"`
	ErrorCount int       `json:"error_count"`
	DurationMS int64     `json:"duration_ms"`
}

// Logger batches Entry rows into Postgres. A Logger with a nil db
// (built with an empty DSN) accepts entries and drops them; with a db,
// a failed batch write is logged and never blocks tool execution.
type Logger struct {
	db    *sql.DB
	log   *logging.Logger
	queue chan Entry

	mu      sync.Mutex
	pending []Entry

	batchSize int
	done      chan struct{}
	wg        sync.WaitGroup
}

const defaultBatchSize = 50

// NewLogger opens a Postgres connection pool for the audit trail and
// starts its background batching worker. dsn empty disables audit
// logging entirely and returns a no-op Logger.
func NewLogger(dsn string, log *logging.Logger) (*Logger, error) {
	l := &Logger{
		log:       log,
		queue:     make(chan Entry, 4096),
		batchSize: defaultBatchSize,
		done:      make(chan struct{}),
	}
	if dsn == "" {
		close(l.done)
		return l, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)
	l.db = db

	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log enqueues entry for batched persistence. Non-blocking: a full
// queue drops the entry with a warning rather than stalling the
// caller's tool invocation.
func (l *Logger) Log(entry Entry) {
	if l.db == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	select {
	case l.queue <- entry:
	default:
		l.log.Warn(entry.WorkflowID, "audit queue full, dropping entry", logging.Fields{"tool_name": entry.ToolName})
	}
}

func (l *Logger) run() {
	defer l.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case entry := <-l.queue:
			l.mu.Lock()
			l.pending = append(l.pending, entry)
			full := len(l.pending) >= l.batchSize
			l.mu.Unlock()
			if full {
				l.flush()
			}
		case <-ticker.C:
			l.flush()
		case <-l.done:
			l.flush()
			return
		}
	}
}

func (l *Logger) flush() {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()
	if len(batch) == 0 {
		return
	}
	if err := l.write(batch); err != nil {
		l.log.Warn("", "failed to write audit batch", logging.Fields{"error": err.Error(), "count": len(batch)})
	}
}

func (l *Logger) write(batch []Entry) error {
	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO tool_audit_log (
			timestamp, workflow_id, agent_id, user_id, tool_name,
			category, success, error_count, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range batch {
		if _, err := stmt.Exec(e.Timestamp, e.WorkflowID, e.AgentID, e.UserID, e.ToolName, e.Category, e.Success, e.ErrorCount, e.DurationMS); err != nil {
			return fmt.Errorf("inserting audit entry: %w", err)
		}
	}
	return tx.Commit()
}

// Query returns audit rows for workflowID, most recent first, used by
// an operator inspecting what tools a given contract workflow ran.
func (l *Logger) Query(ctx context.Context, workflowID string, limit int) ([]Entry, error) {
	if l.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT timestamp, workflow_id, agent_id, user_id, tool_name, category, success, error_count, duration_ms
		FROM tool_audit_log
		WHERE workflow_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Timestamp, &e.WorkflowID, &e.AgentID, &e.UserID, &e.ToolName, &e.Category, &e.Success, &e.ErrorCount, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close stops the background worker, flushing any pending entries.
func (l *Logger) Close() error {
	if l.db == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}
