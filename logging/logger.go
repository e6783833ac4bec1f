// Package logging provides structured, leveled logging shared by every
// core component (memory store, tool registry, model router, agent
// runtime, workflow orchestrator).
package logging

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	Debug Level = "DEBUG"
	Info  Level = "INFO"
	Warn  Level = "WARN"
	Error Level = "ERROR"
)

// Fields is a free-form map of structured log attributes.
type Fields map[string]any

// entry is the JSON line written to the sink.
type entry struct {
	Timestamp  string `json:"timestamp"`
	Level      Level  `json:"level"`
	Component  string `json:"component"`
	InstanceID string `json:"instance_id"`
	WorkflowID string `json:"workflow_id,omitempty"`
	ExecutionID string `json:"execution_id,omitempty"`
	Message    string `json:"message"`
	Fields     Fields `json:"fields,omitempty"`
}

// Logger is a structured logger bound to one component name.
//
// Core packages never reach for the standard "log" package directly;
// every constructor takes a *Logger so call sites stay testable and so
// output can be captured or redirected without package-level state.
type Logger struct {
	component  string
	instanceID string
	out        *log.Logger
}

// New creates a Logger for the given component, writing to stdout.
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		instanceID = host
	}
	return &Logger{
		component:  component,
		instanceID: instanceID,
		out:        log.New(os.Stdout, "", 0),
	}
}

// With returns a child Logger for a sub-component, e.g. "workflow.monitor".
func (l *Logger) With(subComponent string) *Logger {
	return &Logger{
		component:  l.component + "." + subComponent,
		instanceID: l.instanceID,
		out:        l.out,
	}
}

func (l *Logger) log(level Level, workflowID, executionID, message string, fields Fields) {
	e := entry{
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		Level:       level,
		Component:   l.component,
		InstanceID:  l.instanceID,
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		Message:     message,
		Fields:      fields,
	}
	b, err := json.Marshal(e)
	if err != nil {
		l.out.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}
	l.out.Println(string(b))
}

// Info logs an informational message scoped to a workflow execution.
func (l *Logger) Info(executionID, message string, fields Fields) {
	l.log(Info, "", executionID, message, fields)
}

// Warn logs a warning. Warnings never abort the caller (per the core's
// failure semantics: expired reads, access denials, and degraded peers
// are logged, not raised).
func (l *Logger) Warn(executionID, message string, fields Fields) {
	l.log(Warn, "", executionID, message, fields)
}

// Error logs an error, optionally embedding err.Error() into fields.
func (l *Logger) Error(executionID, message string, err error, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.log(Error, "", executionID, message, fields)
}

// Debug logs a debug-level message.
func (l *Logger) Debug(executionID, message string, fields Fields) {
	l.log(Debug, "", executionID, message, fields)
}
