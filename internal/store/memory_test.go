package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAppendAssignsIncreasingIDs(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first, err := s.Append(ctx, "alice", "hello")
	require.NoError(t, err)
	second, err := s.Append(ctx, "bob", "hi")
	require.NoError(t, err)

	assert.Equal(t, first.ID+1, second.ID)
	assert.False(t, first.Timestamp.IsZero())
	assert.False(t, second.Timestamp.Before(first.Timestamp))
	assert.Equal(t, "alice", first.Sender)
	assert.Equal(t, "hello", first.Text)
}

func TestMemoryRecentReturnsNewestChronologically(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 1; i <= 15; i++ {
		_, err := s.Append(ctx, "alice", fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	messages, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 10)

	assert.Equal(t, "message 6", messages[0].Text)
	assert.Equal(t, "message 15", messages[9].Text)
	for i := 1; i < len(messages); i++ {
		assert.Greater(t, messages[i].ID, messages[i-1].ID)
	}
}

func TestMemoryRecentWithFewerThanLimit(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Append(ctx, "alice", "only one")
	require.NoError(t, err)

	messages, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "only one", messages[0].Text)
}

func TestMemoryRecentEmpty(t *testing.T) {
	s := NewMemory()

	messages, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMemoryConcurrentAppendsKeepIDsUnique(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Append(ctx, fmt.Sprintf("writer-%d", w), "msg")
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	messages, err := s.Recent(ctx, writers*perWriter)
	require.NoError(t, err)
	require.Len(t, messages, writers*perWriter)

	seen := make(map[int64]bool, len(messages))
	for i, msg := range messages {
		assert.False(t, seen[msg.ID], "duplicate id %d", msg.ID)
		seen[msg.ID] = true
		if i > 0 {
			assert.Greater(t, msg.ID, messages[i-1].ID)
		}
	}
}

func TestMemoryClosedStoreErrors(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Close())

	_, err := s.Append(context.Background(), "alice", "hi")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrClosed)
}
