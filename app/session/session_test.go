package session

import (
	"testing"
	"time"

	"legalrag/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateSeedsHistory(t *testing.T) {
	s := NewStore()

	id, history := s.Create()

	require.NotEmpty(t, id)
	require.Len(t, history, 2)
	assert.Equal(t, types.RoleSystem, history[0].Role)
	assert.Equal(t, types.RoleAssistant, history[1].Role)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	id, _ := s.Create()

	first, ok := s.Get(id)
	require.True(t, ok)
	first[0].Content = "tampered"

	second, ok := s.Get(id)
	require.True(t, ok)
	assert.NotEqual(t, "tampered", second[0].Content)
}

func TestStore_GetUnknownSession(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestStore_SaveThenGet(t *testing.T) {
	s := NewStore()
	id, history := s.Create()

	history = append(history, types.Message{Role: types.RoleUser, Content: "What is Article 21?"})
	s.Save(id, history)

	got, ok := s.Get(id)
	require.True(t, ok)
	require.Len(t, got, 3)
	assert.Equal(t, "What is Article 21?", got[2].Content)
}

func TestStore_CleanupExpired(t *testing.T) {
	s := NewStore()
	id, _ := s.Create()

	assert.Zero(t, s.CleanupExpired(time.Hour))

	s.mu.Lock()
	s.lastAccessed[id] = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	assert.Equal(t, 1, s.CleanupExpired(time.Hour))
	_, ok := s.Get(id)
	assert.False(t, ok)
}
