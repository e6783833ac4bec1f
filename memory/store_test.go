package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtorflow/platform/config"
	"realtorflow/platform/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		MemoryShortTermTTLSeconds:  3600,
		MemoryWorkflowTTLSeconds:   86400,
		MemorySharedTTLSeconds:     604800,
		MemoryLongTermTTLSeconds:   2592000,
		MemorySweepIntervalSeconds: 3600, // tests trigger sweeps manually
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(testConfig(), logging.New("memory_test"), nil)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func TestStore_StoreAndRetrieve(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Store(ctx, "hello", StoreParams{
		Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "note1", AgentID: "a1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entry, err := s.Retrieve(ctx, TypeShortTerm, ScopeAgent, "note1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "hello", entry.Content)
	assert.EqualValues(t, 1, entry.AccessCount)
}

func TestStore_RetrieveMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)
	entry, err := s.Retrieve(context.Background(), TypeShortTerm, ScopeAgent, "nope")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStore_StoreIsIdempotentOnIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.Store(ctx, "v1", StoreParams{Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "x"})
	require.NoError(t, err)
	id2, err := s.Store(ctx, "v2", StoreParams{Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "x"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	entry, err := s.Retrieve(ctx, TypeShortTerm, ScopeAgent, "x")
	require.NoError(t, err)
	assert.Equal(t, "v2", entry.Content)
}

func TestStore_RetrieveExpiredDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Store(ctx, "stale", StoreParams{
		Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "e1", TTL: time.Millisecond,
	})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	entry, err := s.Retrieve(ctx, TypeShortTerm, ScopeAgent, "e1")
	require.NoError(t, err)
	assert.Nil(t, entry)

	stats := s.GetStats(ctx)
	assert.Equal(t, 0, stats.Total)
}

func TestStore_SearchFiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _ = s.Store(ctx, "a", StoreParams{Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "1", WorkflowID: "wf1", Tags: []string{"x"}})
	time.Sleep(2 * time.Millisecond)
	_, _ = s.Store(ctx, "b", StoreParams{Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "2", WorkflowID: "wf1", Tags: []string{"y"}})
	_, _ = s.Store(ctx, "c", StoreParams{Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "3", WorkflowID: "wf2"})

	results := s.Search(ctx, SearchQuery{WorkflowID: "wf1"})
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Content) // most recently created first

	tagged := s.Search(ctx, SearchQuery{Tags: []string{"x"}})
	require.Len(t, tagged, 1)
	assert.Equal(t, "a", tagged[0].Content)
}

func TestStore_ClearWorkflow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _ = s.Store(ctx, "a", StoreParams{Type: TypeWorkflow, Scope: ScopeWorkflow, Identifier: "1", WorkflowID: "wf1"})
	_, _ = s.Store(ctx, "b", StoreParams{Type: TypeWorkflow, Scope: ScopeWorkflow, Identifier: "2", WorkflowID: "wf2"})

	s.ClearWorkflow(ctx, "wf1")

	assert.Nil(t, mustRetrieve(t, s, TypeWorkflow, ScopeWorkflow, "1"))
	assert.NotNil(t, mustRetrieve(t, s, TypeWorkflow, ScopeWorkflow, "2"))
}

func mustRetrieve(t *testing.T, s *Store, typ Type, scope Scope, id string) *Entry {
	t.Helper()
	e, err := s.Retrieve(context.Background(), typ, scope, id)
	require.NoError(t, err)
	return e
}

func TestStore_GetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _ = s.Store(ctx, "a", StoreParams{Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "1"})
	_, _ = s.Store(ctx, "b", StoreParams{Type: TypeLongTerm, Scope: ScopeGlobal, Identifier: "2"})

	stats := s.GetStats(ctx)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByType[TypeShortTerm])
	assert.Equal(t, 1, stats.ByType[TypeLongTerm])
	assert.False(t, stats.DurableConnected)
}

func TestStore_SweepRemovesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _ = s.Store(ctx, "a", StoreParams{Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "1", TTL: time.Millisecond})
	time.Sleep(5 * time.Millisecond)

	s.sweep()

	s.mu.RLock()
	n := len(s.entries)
	s.mu.RUnlock()
	assert.Equal(t, 0, n)
}

func TestStore_EventFanOut(t *testing.T) {
	s := newTestStore(t)
	received := make(chan any, 1)
	s.AddEventListener("custom_event", func(event string, payload any) {
		received <- payload
	})
	s.Publish("custom_event", "payload1")

	select {
	case p := <-received:
		assert.Equal(t, "payload1", p)
	case <-time.After(time.Second):
		t.Fatal("listener was not invoked")
	}
}

func TestStore_EventListenerPanicDoesNotPropagate(t *testing.T) {
	s := newTestStore(t)
	called := make(chan struct{}, 1)
	s.AddEventListener("boom", func(event string, payload any) { panic("bad listener") })
	s.AddEventListener("boom", func(event string, payload any) { called <- struct{}{} })

	assert.NotPanics(t, func() { s.Publish("boom", nil) })
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("second listener was not invoked after first panicked")
	}
}
