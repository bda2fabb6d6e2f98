package models

import "time"

// Topic is the retrieval scope. Chunks and conversation turns are always
// partitioned by topic and never cross its boundary.
type Topic struct {
	ID   string
	Name string
}

// Document is an uploaded source artifact. Immutable once ingested;
// re-ingestion creates new chunks keyed on (DocumentID, ChunkIndex).
type Document struct {
	ID          string
	TopicID     string
	Title       string
	ContentType string
	Content     string
	CreatedAt   time.Time
}

// Chunk is one embedded fragment of a document. ModelID records which
// embedding model produced the vector so mixed spaces can be rejected.
type Chunk struct {
	ID         string
	TopicID    string
	DocumentID string
	ChunkIndex int
	Content    string
	Embedding  []float32
	ModelID    string
	CreatedAt  time.Time
}

// ConversationTurn is one question/answer exchange for a user within a topic.
// Answered is false until the answer is attached; unanswered turns never
// appear in prompt context.
type ConversationTurn struct {
	ID        string
	UserID    string
	TopicID   string
	Question  string
	Answer    string
	Answered  bool
	CreatedAt time.Time
}

// QAPair is a rendered history element fed back into prompt assembly.
type QAPair struct {
	Question string
	Answer   string
}
