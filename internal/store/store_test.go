package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectora-backend/internal/dataset"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/store"
)

func TestDatasetStore_EmptyUntilLoaded(t *testing.T) {
	s := store.NewInMemoryDatasetStore()
	_, err := s.Current()
	assert.ErrorIs(t, err, store.ErrNoDataset)
}

func TestDatasetStore_ReplaceBumpsVersion(t *testing.T) {
	s := store.NewInMemoryDatasetStore()
	first := dataset.MustNew(dataset.NewNumericColumn("Sales", 1))
	second := dataset.MustNew(dataset.NewNumericColumn("Sales", 1, 2))

	assert.Equal(t, uint64(1), s.Replace(first))
	assert.Equal(t, uint64(2), s.Replace(second))

	snap, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Same(t, second, snap.Dataset)
}

func TestDatasetStore_ReplaceIfRejectsStaleVersion(t *testing.T) {
	s := store.NewInMemoryDatasetStore()
	s.Replace(dataset.MustNew(dataset.NewNumericColumn("Sales", 1)))
	snap, err := s.Current()
	require.NoError(t, err)

	s.Replace(dataset.MustNew(dataset.NewNumericColumn("Sales", 2)))

	live, err := s.ReplaceIf(snap.Version, dataset.MustNew(dataset.NewNumericColumn("Sales", 3)))
	assert.ErrorIs(t, err, store.ErrStaleVersion)
	assert.Equal(t, uint64(2), live)

	v, err := s.ReplaceIf(live, dataset.MustNew(dataset.NewNumericColumn("Sales", 3)))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v)
}

func TestDatasetStore_ConcurrentReplaceIf(t *testing.T) {
	s := store.NewInMemoryDatasetStore()
	s.Replace(dataset.MustNew(dataset.NewNumericColumn("Sales", 1)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ReplaceIf(1, dataset.MustNew(dataset.NewNumericColumn("Sales", 9))); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestConversationStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryConversationStore()

	_, err := s.GetHistory(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrConversationNotFound)
	assert.ErrorIs(t, s.AddTurns(ctx, "missing", dto.ConversationTurn{}), store.ErrConversationNotFound)

	id, err := s.CreateConversation(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AddTurns(ctx, id,
		dto.ConversationTurn{Role: "user", Content: "total sales?"},
		dto.ConversationTurn{Role: "model", Content: `{"operator":"sum","metric":"Sales"}`},
	))

	history, err := s.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "model", history[1].Role)
}

func TestConversationStore_KeepsRecentTurns(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryConversationStore()
	id, err := s.CreateConversation(ctx)
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		require.NoError(t, s.AddTurns(ctx, id, dto.ConversationTurn{Role: "user", Content: fmt.Sprint(i)}))
	}
	history, err := s.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 20)
	assert.Equal(t, "5", history[0].Content)
	assert.Equal(t, "24", history[19].Content)
}
