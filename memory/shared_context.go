package memory

import (
	"context"
	"time"

	"realtorflow/platform/orcerr"
)

// CreateSharedContext registers a new SharedContext at version 1. It
// fails if id already exists (spec §4.1).
func (s *Store) CreateSharedContext(ctx context.Context, id string, data map[string]any, accessAgents []string) (*SharedContext, error) {
	s.mu.Lock()
	if _, exists := s.shared[id]; exists {
		s.mu.Unlock()
		return nil, orcerr.StateConflict("CreateSharedContext", id, "shared context already exists")
	}
	if data == nil {
		data = map[string]any{}
	}
	sc := &SharedContext{
		ContextID:    id,
		Data:         data,
		AccessAgents: accessAgents,
		Version:      1,
		LastModified: time.Now().UTC(),
	}
	s.shared[id] = sc
	s.mu.Unlock()

	s.PutRaw(ctx, sharedKey(id), sc, s.cfg.SharedTTL())
	return sc, nil
}

// GetSharedContext returns the context if callerAgent is permitted by
// its access list.
func (s *Store) GetSharedContext(ctx context.Context, id, callerAgent string) (*SharedContext, error) {
	s.mu.RLock()
	sc, ok := s.shared[id]
	s.mu.RUnlock()

	if !ok {
		var loaded SharedContext
		if found, err := s.GetRaw(ctx, sharedKey(id), &loaded); err == nil && found {
			s.mu.Lock()
			s.shared[id] = &loaded
			sc = &loaded
			ok = true
			s.mu.Unlock()
		}
	}
	if !ok {
		return nil, orcerr.NotFound("GetSharedContext", id)
	}
	if !sc.allowed(callerAgent) {
		return nil, orcerr.AccessDenied("GetSharedContext", id, callerAgent+" is not in the access list")
	}
	return sc, nil
}

// UpdateSharedContext merges updates into data (last-writer-wins per
// key), bumps version, appends a ModificationRecord, and emits
// "shared_context_updated:<id>".
func (s *Store) UpdateSharedContext(ctx context.Context, id string, updates map[string]any, callerAgent string) (*SharedContext, error) {
	s.mu.Lock()
	sc, ok := s.shared[id]
	if !ok {
		s.mu.Unlock()
		return nil, orcerr.NotFound("UpdateSharedContext", id)
	}
	if !sc.allowed(callerAgent) {
		s.mu.Unlock()
		return nil, orcerr.AccessDenied("UpdateSharedContext", id, callerAgent+" is not in the access list")
	}

	for k, v := range updates {
		sc.Data[k] = v
	}
	sc.Version++
	sc.LastModified = time.Now().UTC()
	sc.appendHistory(ModificationRecord{
		AgentID:    callerAgent,
		Timestamp:  sc.LastModified,
		Changes:    updates,
		NewVersion: sc.Version,
	})
	s.mu.Unlock()

	s.PutRaw(ctx, sharedKey(id), sc, s.cfg.SharedTTL())
	s.Publish("shared_context_updated:"+id, sc)
	return sc, nil
}
