package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-advisor-be/pkg/advisor/category"
)

func testMemory(t *testing.T, config Config) *Memory {
	t.Helper()
	return NewMemory(NewMemoryStore(), config, nil)
}

func turn(user string, entities ...string) Turn {
	return Turn{
		UserText:  user,
		BotText:   "답변: " + user,
		Category:  category.General,
		Entities:  entities,
		Timestamp: time.Now(),
	}
}

func TestAppendTurn_CapacityFIFO(t *testing.T) {
	config := DefaultConfig()
	config.Capacity = 3
	memory := testMemory(t, config)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, memory.AppendTurn(ctx, "s1", turn(fmt.Sprintf("질문 %d", i))))
	}

	turns, _, err := memory.GetContext(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "질문 3", turns[0].UserText)
	assert.Equal(t, "질문 5", turns[2].UserText)
}

func TestAppendTurn_EntityBoundMostRecentFirst(t *testing.T) {
	config := DefaultConfig()
	config.MaxEntities = 3
	memory := testMemory(t, config)
	ctx := context.Background()

	require.NoError(t, memory.AppendTurn(ctx, "s1", turn("q1", "92도2077")))
	require.NoError(t, memory.AppendTurn(ctx, "s1", turn("q2", "제5조", "2019다12345")))
	require.NoError(t, memory.AppendTurn(ctx, "s1", turn("q3", "제148조의2", "92도2077")))

	_, entities, err := memory.GetContext(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"제148조의2", "92도2077", "제5조"}, entities)
}

func TestCategoryUsage_CountsPerCategory(t *testing.T) {
	memory := testMemory(t, DefaultConfig())
	ctx := context.Background()

	precedentTurn := turn("관련 판례는?")
	precedentTurn.Category = category.Precedent

	require.NoError(t, memory.AppendTurn(ctx, "s1", precedentTurn))
	require.NoError(t, memory.AppendTurn(ctx, "s1", precedentTurn))
	require.NoError(t, memory.AppendTurn(ctx, "s1", turn("안녕하세요")))

	usage, err := memory.CategoryUsage(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, usage[category.Precedent])
	assert.Equal(t, 1, usage[category.General])
}

func TestCategoryUsage_UnknownSession(t *testing.T) {
	memory := testMemory(t, DefaultConfig())

	usage, err := memory.CategoryUsage(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, usage)
}

func TestGetContext_UnknownSession(t *testing.T) {
	memory := testMemory(t, DefaultConfig())

	turns, entities, err := memory.GetContext(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Empty(t, entities)
}

func TestSweep_RemovesIdleSessionsOnly(t *testing.T) {
	config := DefaultConfig()
	config.TTL = time.Hour
	store := NewMemoryStore()
	memory := NewMemory(store, config, nil)
	ctx := context.Background()

	now := time.Now()
	stale := turn("오래된 질문")
	stale.Timestamp = now.Add(-2 * time.Hour)
	require.NoError(t, memory.AppendTurn(ctx, "stale", stale))

	fresh := turn("방금 질문")
	fresh.Timestamp = now
	require.NoError(t, memory.AppendTurn(ctx, "fresh", fresh))

	removed := memory.Sweep(ctx, now)
	assert.Equal(t, 1, removed)

	state, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, state)

	turns, _, err := memory.GetContext(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestCorruptedSession_ResetsTransparently(t *testing.T) {
	store := NewMemoryStore()
	memory := NewMemory(store, DefaultConfig(), nil)
	ctx := context.Background()

	// Simulate a malformed stored value.
	store.cache.Set("bad", "not a state", 0)

	turns, entities, err := memory.GetContext(ctx, "bad")
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Empty(t, entities)

	require.NoError(t, memory.AppendTurn(ctx, "bad", turn("새 질문")))
	turns, _, err = memory.GetContext(ctx, "bad")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestAppendTurn_ConcurrentSameSession(t *testing.T) {
	memory := testMemory(t, Config{Capacity: 100, MaxEntities: 20, TTL: time.Hour})
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_ = memory.AppendTurn(ctx, "shared", turn(fmt.Sprintf("동시 질문 %d", i)))
		}(i)
	}
	wg.Wait()

	turns, _, err := memory.GetContext(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, turns, writers, "no turn may be lost or duplicated")
}

func TestAppendTurn_DistinctSessionsIsolated(t *testing.T) {
	memory := testMemory(t, DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for s := 0; s < 8; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", s)
			for i := 0; i < 5; i++ {
				_ = memory.AppendTurn(ctx, id, turn(fmt.Sprintf("질문 %d", i)))
			}
		}(s)
	}
	wg.Wait()

	for s := 0; s < 8; s++ {
		turns, _, err := memory.GetContext(ctx, fmt.Sprintf("session-%d", s))
		require.NoError(t, err)
		assert.Len(t, turns, 5)
	}
}
