package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtorflow/platform/orcerr"
)

func TestSharedContext_CreateGetUpdateAccessControl(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSharedContext(ctx, "c1", map[string]any{"k": float64(1)}, []string{"a1"})
	require.NoError(t, err)

	sc, err := s.GetSharedContext(ctx, "c1", "a1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, sc.Version)
	assert.Equal(t, float64(1), sc.Data["k"])

	_, err = s.GetSharedContext(ctx, "c1", "a2")
	require.Error(t, err)
	kind, ok := orcerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, orcerr.KindAccessDenied, kind)

	updated, err := s.UpdateSharedContext(ctx, "c1", map[string]any{"k": float64(2)}, "a1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)
	assert.Equal(t, float64(2), updated.Data["k"])
	require.Len(t, updated.ModificationHistory, 1)
	assert.Equal(t, "a1", updated.ModificationHistory[0].AgentID)

	_, err = s.UpdateSharedContext(ctx, "c1", map[string]any{"k": float64(3)}, "a2")
	require.Error(t, err)
	kind, _ = orcerr.KindOf(err)
	assert.Equal(t, orcerr.KindAccessDenied, kind)
}

func TestSharedContext_CreateDuplicateFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSharedContext(ctx, "dup", map[string]any{}, nil)
	require.NoError(t, err)

	_, err = s.CreateSharedContext(ctx, "dup", map[string]any{}, nil)
	require.Error(t, err)
	kind, ok := orcerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, orcerr.KindStateConflict, kind)
}

func TestSharedContext_EmptyAccessListAllowsAnyAgent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSharedContext(ctx, "open", map[string]any{"v": "x"}, nil)
	require.NoError(t, err)

	sc, err := s.GetSharedContext(ctx, "open", "any-agent")
	require.NoError(t, err)
	assert.Equal(t, "x", sc.Data["v"])
}

func TestSharedContext_UpdatePublishesEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateSharedContext(ctx, "evt", map[string]any{}, nil)
	require.NoError(t, err)

	fired := make(chan struct{}, 1)
	s.AddEventListener("shared_context_updated:evt", func(event string, payload any) {
		fired <- struct{}{}
	})

	_, err = s.UpdateSharedContext(ctx, "evt", map[string]any{"a": 1}, "agent1")
	require.NoError(t, err)

	select {
	case <-fired:
	default:
		t.Fatal("expected shared_context_updated event to fire")
	}
}
