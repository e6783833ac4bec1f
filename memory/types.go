// Package memory implements the core's Memory Store (spec §4.1): keyed,
// scoped, TTL'd storage of memory entries, workflow state, and
// cross-agent shared contexts, backed by an in-process cache and an
// optional durable key-value peer.
package memory

import "time"

// Type is the kind of a MemoryEntry, each with its own default TTL.
type Type string

const (
	TypeShortTerm Type = "short_term"
	TypeLongTerm  Type = "long_term"
	TypeShared    Type = "shared"
	TypeWorkflow  Type = "workflow"
)

// Scope narrows who a MemoryEntry is visible to.
type Scope string

const (
	ScopeAgent    Scope = "agent"
	ScopeWorkflow Scope = "workflow"
	ScopeGlobal   Scope = "global"
	ScopeUser     Scope = "user"
)

// Entry is one stored memory record (spec §3 MemoryEntry).
type Entry struct {
	ID           string         `json:"id"`
	Content      any            `json:"content"`
	MemoryType   Type           `json:"memory_type"`
	Scope        Scope          `json:"scope"`
	Identifier   string         `json:"identifier"`
	AgentID      string         `json:"agent_id,omitempty"`
	WorkflowID   string         `json:"workflow_id,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	AccessCount  int64          `json:"access_count"`
	LastAccessed *time.Time     `json:"last_accessed,omitempty"`
}

func (e *Entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// StoreParams names the identifying fields passed to Store and used to
// build the Redis/cache key and to check idempotence (spec §4.1: a
// second store() to the same (type, scope, identifier) replaces the
// first).
type StoreParams struct {
	Type       Type
	Scope      Scope
	Identifier string
	AgentID    string
	WorkflowID string
	UserID     string
	Tags       []string
	TTL        time.Duration // zero means "use the type's default"
}

// SearchQuery filters Search results. Zero-value fields are treated as
// "don't filter on this field"; Tags must intersect (not be a subset).
type SearchQuery struct {
	Type       Type
	Scope      Scope
	AgentID    string
	WorkflowID string
	UserID     string
	Tags       []string
	Limit      int
}

// Stats is returned by GetStats.
type Stats struct {
	ByType          map[Type]int  `json:"by_type"`
	ByScope         map[Scope]int `json:"by_scope"`
	Total           int           `json:"total"`
	DurableConnected bool         `json:"durable_connected"`
}

// SharedContext is a named, versioned map visible to an allow-list of
// agents (spec §3 SharedContext).
type SharedContext struct {
	ContextID            string               `json:"context_id"`
	Data                 map[string]any       `json:"data"`
	AccessAgents         []string             `json:"access_agents"` // empty means "all"
	Version              int64                `json:"version"`
	LastModified         time.Time            `json:"last_modified"`
	ModificationHistory  []ModificationRecord `json:"modification_history"`
}

// ModificationRecord is one entry in a SharedContext's bounded history.
type ModificationRecord struct {
	AgentID    string         `json:"agent_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Changes    map[string]any `json:"changes"`
	NewVersion int64          `json:"new_version"`
}

const maxModificationHistory = 100

func (c *SharedContext) allowed(agentID string) bool {
	if len(c.AccessAgents) == 0 {
		return true
	}
	for _, a := range c.AccessAgents {
		if a == agentID {
			return true
		}
	}
	return false
}

func (c *SharedContext) appendHistory(rec ModificationRecord) {
	c.ModificationHistory = append(c.ModificationHistory, rec)
	if len(c.ModificationHistory) > maxModificationHistory {
		c.ModificationHistory = c.ModificationHistory[len(c.ModificationHistory)-maxModificationHistory:]
	}
}
