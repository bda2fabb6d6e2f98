package types

import (
	"context"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
)

// Core interfaces

// Embedder maps text into the deployment's fixed embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelID() string
}

// ChunkStore is an append-only collection of embedded chunks. AllByTopic
// returns chunks in insertion order so similarity ties break deterministically.
type ChunkStore interface {
	Add(ctx context.Context, chunk models.Chunk) error
	AllByTopic(ctx context.Context, topicID string) ([]models.Chunk, error)
}

// DocumentStore persists uploaded source documents for the ingestion worker.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc models.Document) error
	GetDocument(ctx context.Context, id string) (models.Document, error)
}

// TurnStore persists conversation turns. Turns are created by the question
// flow and become read-only once the answer is attached.
type TurnStore interface {
	CreateTurn(ctx context.Context, turn models.ConversationTurn) error
	AttachAnswer(ctx context.Context, turnID, answer string) error
	TurnsByUserTopic(ctx context.Context, userID, topicID string) ([]models.ConversationTurn, error)
}

// Extractor turns an uploaded document into plain text ready for chunking.
type Extractor interface {
	Extract(doc models.Document) (string, error)
}
