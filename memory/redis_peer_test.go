package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtorflow/platform/logging"
)

func newTestPeer(t *testing.T) (*RedisPeer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	peer, err := NewRedisPeer(context.Background(), mr.Addr(), logging.New("memory_test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = peer.Close() })
	return peer, mr
}

func TestRedisPeer_SetGetDelete(t *testing.T) {
	peer, _ := newTestPeer(t)
	ctx := context.Background()

	require.NoError(t, peer.Set(ctx, "k1", []byte("v1"), time.Minute))

	v, ok, err := peer.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", string(v))

	require.NoError(t, peer.Delete(ctx, "k1"))
	_, ok, err = peer.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPeer_GetMissingReturnsNotFound(t *testing.T) {
	peer, _ := newTestPeer(t)
	_, ok, err := peer.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPeer_Keys(t *testing.T) {
	peer, _ := newTestPeer(t)
	ctx := context.Background()
	require.NoError(t, peer.Set(ctx, "agent_memory:short_term:agent:a1", []byte("1"), time.Minute))
	require.NoError(t, peer.Set(ctx, "agent_memory:short_term:agent:a2", []byte("2"), time.Minute))
	require.NoError(t, peer.Set(ctx, "shared_context_c1", []byte("3"), time.Minute))

	keys, err := peer.Keys(ctx, "agent_memory:")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestRedisPeer_Ping(t *testing.T) {
	peer, mr := newTestPeer(t)
	require.NoError(t, peer.Ping(context.Background()))
	mr.Close()
	assert.Error(t, peer.Ping(context.Background()))
}

func TestStore_WithDurablePeerMirrorsWrites(t *testing.T) {
	peer, _ := newTestPeer(t)
	s := New(testConfig(), logging.New("memory_test"), peer)
	t.Cleanup(func() { _ = s.Shutdown() })
	ctx := context.Background()

	_, err := s.Store(ctx, "mirrored", StoreParams{Type: TypeShortTerm, Scope: ScopeAgent, Identifier: "p1"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok, _ := peer.Get(ctx, cacheKey(TypeShortTerm, ScopeAgent, "p1"))
		return ok
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return s.GetStats(ctx).DurableConnected
	}, time.Second, 10*time.Millisecond)
}
