package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
)

type PostgresConfig struct {
	ConnString string
	VectorDim  int
}

// Postgres is the durable store for documents, chunks and conversation
// turns. Chunks are append-only and keyed on (document_id, chunk_index) so
// at-least-once ingestion never duplicates content.
type Postgres struct {
	config PostgresConfig
	pool   *pgxpool.Pool
}

func NewPostgres(config PostgresConfig) (*Postgres, error) {
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // text-embedding-3-small
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &Postgres{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Postgres) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			topic_id TEXT NOT NULL,
			title TEXT,
			content_type TEXT,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			topic_id TEXT NOT NULL,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			model_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (document_id, chunk_index)
		)`, s.config.VectorDim),
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			user_id TEXT NOT NULL,
			topic_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS chunks_topic_idx ON chunks (topic_id)`,
		`CREATE INDEX IF NOT EXISTS turns_user_topic_idx ON conversation_turns (user_id, topic_id)`,
		`CREATE INDEX IF NOT EXISTS chunks_embedding_idx
			ON chunks
			USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = 100)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %v", err)
		}
	}

	return nil
}

// Add appends one chunk. Re-inserting the same (document_id, chunk_index)
// is a no-op, which makes ingestion retries safe.
func (s *Postgres) Add(ctx context.Context, chunk models.Chunk) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chunks (id, topic_id, document_id, chunk_index, content, embedding, model_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id, chunk_index) DO NOTHING`,
		chunk.ID,
		chunk.TopicID,
		chunk.DocumentID,
		chunk.ChunkIndex,
		chunk.Content,
		pgvector.NewVector(chunk.Embedding),
		chunk.ModelID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %v", err)
	}
	return nil
}

// AllByTopic returns every chunk in the topic, in insertion order.
func (s *Postgres) AllByTopic(ctx context.Context, topicID string) ([]models.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, topic_id, document_id, chunk_index, content, embedding, model_id, created_at
		FROM chunks
		WHERE topic_id = $1
		ORDER BY seq`,
		topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		var embedding pgvector.Vector
		err := rows.Scan(
			&chunk.ID,
			&chunk.TopicID,
			&chunk.DocumentID,
			&chunk.ChunkIndex,
			&chunk.Content,
			&embedding,
			&chunk.ModelID,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %v", err)
		}
		chunk.Embedding = embedding.Slice()
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

func (s *Postgres) SaveDocument(ctx context.Context, doc models.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, topic_id, title, content_type, content)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		doc.ID, doc.TopicID, doc.Title, doc.ContentType, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to insert document: %v", err)
	}
	return nil
}

func (s *Postgres) GetDocument(ctx context.Context, id string) (models.Document, error) {
	var doc models.Document
	err := s.pool.QueryRow(ctx, `
		SELECT id, topic_id, title, content_type, content, created_at
		FROM documents
		WHERE id = $1`, id).
		Scan(&doc.ID, &doc.TopicID, &doc.Title, &doc.ContentType, &doc.Content, &doc.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return doc, fmt.Errorf("document %s not found", id)
		}
		return doc, fmt.Errorf("failed to load document: %v", err)
	}
	return doc, nil
}

func (s *Postgres) CreateTurn(ctx context.Context, turn models.ConversationTurn) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_turns (id, user_id, topic_id, question)
		VALUES ($1, $2, $3, $4)`,
		turn.ID, turn.UserID, turn.TopicID, turn.Question)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %v", err)
	}
	return nil
}

// AttachAnswer sets the answer once; a turn already answered stays as it is.
func (s *Postgres) AttachAnswer(ctx context.Context, turnID, answer string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conversation_turns
		SET answer = $2
		WHERE id = $1 AND answer IS NULL`,
		turnID, answer)
	if err != nil {
		return fmt.Errorf("failed to attach answer: %v", err)
	}
	return nil
}

func (s *Postgres) TurnsByUserTopic(ctx context.Context, userID, topicID string) ([]models.ConversationTurn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, topic_id, question, answer, created_at
		FROM conversation_turns
		WHERE user_id = $1 AND topic_id = $2
		ORDER BY seq`,
		userID, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %v", err)
	}
	defer rows.Close()

	var turns []models.ConversationTurn
	for rows.Next() {
		var turn models.ConversationTurn
		var answer *string
		err := rows.Scan(
			&turn.ID,
			&turn.UserID,
			&turn.TopicID,
			&turn.Question,
			&answer,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %v", err)
		}
		if answer != nil {
			turn.Answer = *answer
			turn.Answered = true
		}
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
