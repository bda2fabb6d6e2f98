package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
)

// Memory is an in-memory implementation of the chunk, document and turn
// stores. Append-only slices behind an RWMutex: ingestion jobs append,
// the query path only ever reads.
type Memory struct {
	mu     sync.RWMutex
	chunks []models.Chunk
	docs   map[string]models.Document
	turns  []models.ConversationTurn
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]models.Document),
	}
}

// Add appends a chunk. A chunk with an already-seen (DocumentID, ChunkIndex)
// is dropped, mirroring the postgres ON CONFLICT DO NOTHING behavior.
func (m *Memory) Add(ctx context.Context, chunk models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.chunks {
		if existing.DocumentID == chunk.DocumentID && existing.ChunkIndex == chunk.ChunkIndex {
			return nil
		}
	}

	m.chunks = append(m.chunks, chunk)
	return nil
}

// AllByTopic returns the topic's chunks in insertion order.
func (m *Memory) AllByTopic(ctx context.Context, topicID string) ([]models.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Chunk
	for _, chunk := range m.chunks {
		if chunk.TopicID == topicID {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (m *Memory) SaveDocument(ctx context.Context, doc models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[doc.ID]; ok {
		return nil
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *Memory) GetDocument(ctx context.Context, id string) (models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return models.Document{}, fmt.Errorf("document %s not found", id)
	}
	return doc, nil
}

func (m *Memory) CreateTurn(ctx context.Context, turn models.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turn)
	return nil
}

func (m *Memory) AttachAnswer(ctx context.Context, turnID, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.turns {
		if m.turns[i].ID == turnID && !m.turns[i].Answered {
			m.turns[i].Answer = answer
			m.turns[i].Answered = true
			return nil
		}
	}
	return nil
}

func (m *Memory) TurnsByUserTopic(ctx context.Context, userID, topicID string) ([]models.ConversationTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.ConversationTurn
	for _, turn := range m.turns {
		if turn.UserID == userID && turn.TopicID == topicID {
			out = append(out, turn)
		}
	}
	return out, nil
}
