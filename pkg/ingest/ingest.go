package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
	"github.com/gyansingh18/ai-tutor-learning-platform/internal/types"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/chunker"
)

type PipelineConfig struct {
	RateLimit  float64          // embedding calls per second
	OnProgress func(chunks int) // called after each stored chunk
}

// Pipeline ingests one uploaded document: extract text, split into word
// windows, embed each window and append it to the chunk store. Chunks are
// keyed on (document id, chunk index) so re-running the same document is a
// no-op.
type Pipeline struct {
	config    PipelineConfig
	extractor types.Extractor
	chunker   chunker.Chunker
	embedder  types.Embedder
	docs      types.DocumentStore
	chunks    types.ChunkStore
	limiter   *rate.Limiter
}

func NewPipeline(config PipelineConfig, extractor types.Extractor, c chunker.Chunker, embedder types.Embedder, docs types.DocumentStore, chunks types.ChunkStore) *Pipeline {
	if config.RateLimit <= 0 {
		config.RateLimit = 2 // 2 embedding calls per second by default
	}

	return &Pipeline{
		config:    config,
		extractor: extractor,
		chunker:   c,
		embedder:  embedder,
		docs:      docs,
		chunks:    chunks,
		limiter:   rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Process ingests the document and reports how many chunks were stored.
// An unreadable document is an error (no chunks are created); a failed
// embedding only skips that one chunk.
func (p *Pipeline) Process(ctx context.Context, documentID string) (int, error) {
	doc, err := p.docs.GetDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	text, err := p.extractor.Extract(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to extract document %s: %w", documentID, err)
	}

	stored := 0
	for i, content := range p.chunker.Chunk(text) {
		if err := p.limiter.Wait(ctx); err != nil {
			return stored, err
		}

		embedding, err := p.embedder.Embed(ctx, content)
		if err != nil {
			log.Printf("skipping chunk %d of document %s: %v", i, documentID, err)
			continue
		}

		chunk := models.Chunk{
			ID:         uuid.New().String(),
			TopicID:    doc.TopicID,
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    content,
			Embedding:  embedding,
			ModelID:    p.embedder.ModelID(),
		}

		if err := p.chunks.Add(ctx, chunk); err != nil {
			return stored, fmt.Errorf("failed to store chunk %d of document %s: %w", i, documentID, err)
		}

		stored++
		if p.config.OnProgress != nil {
			p.config.OnProgress(stored)
		}
	}

	return stored, nil
}
