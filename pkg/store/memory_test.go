package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/store"
)

func TestMemory_AddIsIdempotent(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	chunk := models.Chunk{
		ID:         "c1",
		TopicID:    "topic-a",
		DocumentID: "doc-1",
		ChunkIndex: 0,
		Content:    "first chunk",
		Embedding:  []float32{1, 0, 0},
		ModelID:    "text-embedding-3-small",
	}

	require.NoError(t, s.Add(ctx, chunk))
	// Re-delivery of the same ingestion job must not duplicate content.
	require.NoError(t, s.Add(ctx, chunk))

	chunks, err := s.AllByTopic(ctx, "topic-a")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestMemory_AllByTopicScoped(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, models.Chunk{ID: "a1", TopicID: "topic-a", DocumentID: "d1", ChunkIndex: 0}))
	require.NoError(t, s.Add(ctx, models.Chunk{ID: "a2", TopicID: "topic-a", DocumentID: "d1", ChunkIndex: 1}))
	require.NoError(t, s.Add(ctx, models.Chunk{ID: "b1", TopicID: "topic-b", DocumentID: "d2", ChunkIndex: 0}))

	chunks, err := s.AllByTopic(ctx, "topic-a")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a1", chunks[0].ID)
	assert.Equal(t, "a2", chunks[1].ID)

	empty, err := s.AllByTopic(ctx, "topic-c")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemory_Documents(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	doc := models.Document{ID: "doc-1", TopicID: "topic-a", Title: "Fractions", Content: "text"}
	require.NoError(t, s.SaveDocument(ctx, doc))

	loaded, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Fractions", loaded.Title)

	_, err = s.GetDocument(ctx, "missing")
	assert.Error(t, err)
}

func TestMemory_Turns(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.CreateTurn(ctx, models.ConversationTurn{ID: "t1", UserID: "u1", TopicID: "topic-a", Question: "Q1"}))
	require.NoError(t, s.CreateTurn(ctx, models.ConversationTurn{ID: "t2", UserID: "u1", TopicID: "topic-a", Question: "Q2"}))
	require.NoError(t, s.AttachAnswer(ctx, "t1", "A1"))

	turns, err := s.TurnsByUserTopic(ctx, "u1", "topic-a")
	require.NoError(t, err)
	require.Len(t, turns, 2)

	assert.True(t, turns[0].Answered)
	assert.Equal(t, "A1", turns[0].Answer)
	assert.False(t, turns[1].Answered)

	// Turns are immutable once answered.
	require.NoError(t, s.AttachAnswer(ctx, "t1", "A1-changed"))
	turns, err = s.TurnsByUserTopic(ctx, "u1", "topic-a")
	require.NoError(t, err)
	assert.Equal(t, "A1", turns[0].Answer)
}
