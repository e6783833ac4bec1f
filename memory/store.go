package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"realtorflow/platform/config"
	"realtorflow/platform/logging"
)

// peerReadTimeout bounds how long a Retrieve/GetSharedContext waits on
// the durable peer before falling back to the in-process cache, per
// spec §4.1 ("reads fall back to cache on peer timeout (2s)").
const peerReadTimeout = 2 * time.Second

// Store is the Memory Store (L1): an in-process cache optionally
// mirrored to a DurablePeer, serving memory entries, workflow state,
// and shared contexts under the key prefixes the interface commits to
// (agent_memory:, workflow_state_, shared_context_).
type Store struct {
	cfg  *config.Config
	log  *logging.Logger
	peer DurablePeer // nil means cache-only

	mu      sync.RWMutex
	entries map[string]*Entry // keyed by cacheKey(type, scope, identifier)
	shared  map[string]*SharedContext

	connMu          sync.RWMutex
	durableConnected bool

	listenersMu sync.RWMutex
	listeners   map[string][]func(event string, payload any)

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New constructs a Store. If peer is non-nil, writes are mirrored to it
// and it is consulted on cache-miss reads; the sweeper only evicts from
// the cache. A nil peer runs cache-only.
func New(cfg *config.Config, log *logging.Logger, peer DurablePeer) *Store {
	s := &Store{
		cfg:              cfg,
		log:              log,
		peer:             peer,
		entries:          make(map[string]*Entry),
		shared:           make(map[string]*SharedContext),
		listeners:        make(map[string][]func(event string, payload any)),
		durableConnected: peer != nil,
		stopSweep:        make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

func cacheKey(typ Type, scope Scope, identifier string) string {
	return fmt.Sprintf("agent_memory:%s:%s:%s", typ, scope, identifier)
}

func sharedKey(contextID string) string {
	return "shared_context_" + contextID
}

// WorkflowStateKey returns the persisted-state key for an execution, so
// the workflow orchestrator (which owns the document's shape) can read
// and write through this store without duplicating the prefix.
func WorkflowStateKey(executionID string) string {
	return "workflow_state_" + executionID
}

func (s *Store) defaultTTL(typ Type) time.Duration {
	switch typ {
	case TypeShortTerm:
		return s.cfg.ShortTermTTL()
	case TypeWorkflow:
		return s.cfg.WorkflowTTL()
	case TypeShared:
		return s.cfg.SharedTTL()
	case TypeLongTerm:
		return s.cfg.LongTermTTL()
	default:
		return s.cfg.ShortTermTTL()
	}
}

// Store writes or replaces a memory entry. It is idempotent on
// (type, scope, identifier): a second call with the same triple
// replaces the first under the same entry id.
func (s *Store) Store(ctx context.Context, content any, p StoreParams) (string, error) {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL(p.Type)
	}
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	key := cacheKey(p.Type, p.Scope, p.Identifier)

	s.mu.Lock()
	existing, had := s.entries[key]
	id := key
	if had {
		id = existing.ID
	}
	entry := &Entry{
		ID:         id,
		Content:    content,
		MemoryType: p.Type,
		Scope:      p.Scope,
		Identifier: p.Identifier,
		AgentID:    p.AgentID,
		WorkflowID: p.WorkflowID,
		UserID:     p.UserID,
		Tags:       p.Tags,
		CreatedAt:  now,
		ExpiresAt:  &expiresAt,
	}
	s.entries[key] = entry
	s.mu.Unlock()

	s.mirrorToPeer(key, entry, ttl)
	return id, nil
}

// mirrorToPeer fans the write out to the durable peer without blocking
// the caller on network latency, per spec §4.1 ("writes fan out
// asynchronously").
func (s *Store) mirrorToPeer(key string, v any, ttl time.Duration) {
	if s.peer == nil {
		return
	}
	go func() {
		b, err := json.Marshal(v)
		if err != nil {
			s.log.Error("", "marshal for durable mirror failed", err, logging.Fields{"key": key})
			return
		}
		pctx, cancel := context.WithTimeout(context.Background(), peerReadTimeout)
		defer cancel()
		if err := s.peer.Set(pctx, key, b, ttl); err != nil {
			s.setDurableConnected(false)
			s.log.Warn("", "durable peer write failed, continuing cache-only", logging.Fields{"key": key, "error": err.Error()})
			return
		}
		s.setDurableConnected(true)
	}()
}

func (s *Store) setDurableConnected(v bool) {
	s.connMu.Lock()
	s.durableConnected = v
	s.connMu.Unlock()
}

func (s *Store) isDurableConnected() bool {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.durableConnected
}

// Retrieve returns the entry for (type, scope, identifier), or nil if
// absent or expired. An expired entry is deleted from both layers as a
// side effect.
func (s *Store) Retrieve(ctx context.Context, typ Type, scope Scope, identifier string) (*Entry, error) {
	key := cacheKey(typ, scope, identifier)
	now := time.Now().UTC()

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok && s.peer != nil {
		if loaded, found := s.loadFromPeer(ctx, key); found {
			entry = loaded
			ok = true
			s.mu.Lock()
			s.entries[key] = entry
			s.mu.Unlock()
		}
	}
	if !ok {
		return nil, nil
	}
	if entry.expired(now) {
		s.deleteKey(ctx, key)
		return nil, nil
	}

	s.mu.Lock()
	entry.AccessCount++
	entry.LastAccessed = &now
	s.mu.Unlock()

	return entry, nil
}

func (s *Store) loadFromPeer(ctx context.Context, key string) (*Entry, bool) {
	pctx, cancel := context.WithTimeout(ctx, peerReadTimeout)
	defer cancel()
	b, found, err := s.peer.Get(pctx, key)
	if err != nil || !found {
		if err != nil {
			s.setDurableConnected(false)
			s.log.Warn("", "durable peer read failed, falling back to cache", logging.Fields{"key": key, "error": err.Error()})
		}
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(b, &entry); err != nil {
		s.log.Warn("", "durable peer returned unparseable entry", logging.Fields{"key": key})
		return nil, false
	}
	s.setDurableConnected(true)
	return &entry, true
}

func (s *Store) deleteKey(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	if s.peer != nil {
		go func() {
			pctx, cancel := context.WithTimeout(context.Background(), peerReadTimeout)
			defer cancel()
			if err := s.peer.Delete(pctx, key); err != nil {
				s.log.Warn("", "durable peer delete failed", logging.Fields{"key": key, "error": err.Error()})
			}
		}()
	}
}

// Search returns entries matching all present criteria in q, most
// recently created first, capped at q.Limit (0 means unbounded).
func (s *Store) Search(ctx context.Context, q SearchQuery) []*Entry {
	now := time.Now().UTC()

	s.mu.RLock()
	candidates := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.expired(now) {
			continue
		}
		candidates = append(candidates, e)
	}
	s.mu.RUnlock()

	matched := candidates[:0:0]
	for _, e := range candidates {
		if q.Type != "" && e.MemoryType != q.Type {
			continue
		}
		if q.Scope != "" && e.Scope != q.Scope {
			continue
		}
		if q.AgentID != "" && e.AgentID != q.AgentID {
			continue
		}
		if q.WorkflowID != "" && e.WorkflowID != q.WorkflowID {
			continue
		}
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		if len(q.Tags) > 0 && !tagsIntersect(e.Tags, q.Tags) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched
}

func tagsIntersect(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// ClearWorkflow deletes every entry (and the workflow_state_ document)
// associated with workflowID from both layers.
func (s *Store) ClearWorkflow(ctx context.Context, workflowID string) {
	s.mu.Lock()
	var keys []string
	for k, e := range s.entries {
		if e.WorkflowID == workflowID {
			keys = append(keys, k)
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()

	keys = append(keys, WorkflowStateKey(workflowID))
	if s.peer != nil {
		for _, k := range keys {
			k := k
			go func() {
				pctx, cancel := context.WithTimeout(context.Background(), peerReadTimeout)
				defer cancel()
				_ = s.peer.Delete(pctx, k)
			}()
		}
	}
}

// GetStats summarizes the cache's contents by type and scope.
func (s *Store) GetStats(ctx context.Context) Stats {
	now := time.Now().UTC()
	stats := Stats{
		ByType:           make(map[Type]int),
		ByScope:          make(map[Scope]int),
		DurableConnected: s.isDurableConnected(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.expired(now) {
			continue
		}
		stats.ByType[e.MemoryType]++
		stats.ByScope[e.Scope]++
		stats.Total++
	}
	return stats
}

// PutRaw and GetRaw expose the peer-backed JSON-document mechanism
// used for the workflow_state_ and shared_context_ prefixes, which are
// whole-document reads/writes rather than type/scope/identifier
// memory entries.
func (s *Store) PutRaw(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if s.peer == nil {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, peerReadTimeout)
	defer cancel()
	if err := s.peer.Set(pctx, key, b, ttl); err != nil {
		s.setDurableConnected(false)
		s.log.Warn("", "durable peer raw write failed", logging.Fields{"key": key, "error": err.Error()})
		return nil
	}
	s.setDurableConnected(true)
	return nil
}

func (s *Store) GetRaw(ctx context.Context, key string, out any) (bool, error) {
	if s.peer == nil {
		return false, nil
	}
	pctx, cancel := context.WithTimeout(ctx, peerReadTimeout)
	defer cancel()
	b, found, err := s.peer.Get(pctx, key)
	if err != nil {
		s.setDurableConnected(false)
		s.log.Warn("", "durable peer raw read failed", logging.Fields{"key": key, "error": err.Error()})
		return false, nil
	}
	if !found {
		return false, nil
	}
	s.setDurableConnected(true)
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// sweepLoop periodically removes expired entries, independent of any
// worker pool (spec §6: "The Memory Store has its own sweeper, not a
// worker").
func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopSweep:
			return
		}
	}
}

func (s *Store) sweep() {
	now := time.Now().UTC()
	s.mu.Lock()
	var removed int
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		s.log.Debug("", "sweep removed expired entries", logging.Fields{"count": removed})
	}
}

// Shutdown stops the sweeper and, if configured, closes the durable
// peer connection.
func (s *Store) Shutdown() error {
	s.sweepOnce.Do(func() { close(s.stopSweep) })
	if s.peer != nil {
		return s.peer.Close()
	}
	return nil
}
