package tutor

import (
	"context"
	"log"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
	"github.com/gyansingh18/ai-tutor-learning-platform/internal/types"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/history"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/llm"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/retriever"
)

// AnswerRequest identifies one in-flight question. ExcludeTurnID is the id
// of the already-persisted turn for this question, kept out of its own
// history context. TopicName is an optional display label for prompts.
type AnswerRequest struct {
	UserID        string
	TopicID       string
	TopicName     string
	Question      string
	ExcludeTurnID string
}

// Service is the query entry point: embed the question, retrieve grounding
// chunks scoped to the topic, rebuild dialogue context, and generate an
// answer. Every step degrades instead of failing; nothing raises past
// Answer.
type Service struct {
	embedder  types.Embedder
	retriever *retriever.Retriever
	history   *history.Builder
	generator *llm.Generator
}

func New(embedder types.Embedder, ret *retriever.Retriever, hist *history.Builder, gen *llm.Generator) *Service {
	return &Service{
		embedder:  embedder,
		retriever: ret,
		history:   hist,
		generator: gen,
	}
}

// Answer returns a non-empty answer string for the question. Embedding or
// retrieval failures fall back to ungrounded generation; history failures
// fall back to a single-turn prompt; generation failures come back as fixed
// user-safe messages from the generator itself.
func (s *Service) Answer(ctx context.Context, req AnswerRequest) string {
	topicName := req.TopicName
	if topicName == "" {
		topicName = req.TopicID
	}

	chunks := s.retrieve(ctx, req)

	pairs, err := s.history.History(ctx, req.UserID, req.TopicID, req.ExcludeTurnID, 0)
	if err != nil {
		log.Printf("history unavailable for user %s topic %s: %v", req.UserID, req.TopicID, err)
		pairs = nil
	}

	return s.generator.Generate(ctx, req.Question, topicName, chunks, pairs)
}

func (s *Service) retrieve(ctx context.Context, req AnswerRequest) []models.Chunk {
	queryVector, err := s.embedder.Embed(ctx, req.Question)
	if err != nil {
		// No query vector means no grounding is possible for this question.
		log.Printf("query embedding failed for topic %s: %v", req.TopicID, err)
		return nil
	}

	chunks, err := s.retriever.Retrieve(ctx, req.TopicID, queryVector, 0)
	if err != nil {
		log.Printf("retrieval failed for topic %s: %v", req.TopicID, err)
		return nil
	}
	return chunks
}
