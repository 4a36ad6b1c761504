package service_test

import (
	"context"
	"testing"
	"time"

	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/service"
	"kidquest_backend/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withRedisCache(t *testing.T, e *env) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	e.gamification.Cache = repository.NewLeaderboardCache(client, time.Minute)
	return mr
}

func boardIDs(board []service.LeaderboardEntry) []uint {
	out := make([]uint, len(board))
	for i, entry := range board {
		out[i] = entry.UserID
	}
	return out
}

func TestGlobalLeaderboardCacheFollowsPointAwards(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	mr := withRedisCache(t, e)
	a := testutil.SeedChild(t, e.db, "a")
	b := testutil.SeedChild(t, e.db, "b")
	testutil.SetPoints(t, e.db, a, 30)
	testutil.SetPoints(t, e.db, b, 20)

	board, err := e.gamification.Leaderboard(ctx, identityOf(a), service.ScopeGlobal, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, boardIDs(board))
	assert.True(t, mr.Exists("kidquest:leaderboard:global:0"))

	// 直接改库不会失效缓存，读到的仍是缓存
	testutil.SetPoints(t, e.db, b, 35)
	board, err = e.gamification.Leaderboard(ctx, identityOf(a), service.ScopeGlobal, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, boardIDs(board))

	lesson := testutil.SeedLesson(t, e.db, "Shapes", "math", []string{"b1"})
	_, err = e.progress.CompleteContent(ctx, identityOf(a), lesson.ID)
	require.NoError(t, err)

	board, err = e.gamification.Leaderboard(ctx, identityOf(a), service.ScopeGlobal, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, boardIDs(board))
	assert.Equal(t, 55, board[0].Points)
	assert.Equal(t, 35, board[1].Points)
}

func TestGlobalLeaderboardFillOutlivesCancelledCaller(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	mr := withRedisCache(t, e)
	a := testutil.SeedChild(t, e.db, "a")
	testutil.SetPoints(t, e.db, a, 10)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.gamification.Leaderboard(cancelled, identityOf(a), service.ScopeGlobal, 10); err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}

	require.Eventually(t, func() bool {
		return mr.Exists("kidquest:leaderboard:global:0")
	}, 2*time.Second, 10*time.Millisecond)

	board, err := e.gamification.Leaderboard(ctx, identityOf(a), service.ScopeGlobal, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, boardIDs(board))
}
