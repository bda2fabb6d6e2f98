package history

import (
	"context"
	"fmt"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
	"github.com/gyansingh18/ai-tutor-learning-platform/internal/types"
)

type BuilderConfig struct {
	Limit int // most recent answered turns to include
}

// Builder assembles prior question/answer turns for one user and topic into
// ordered dialogue context. Stateless: history is recomputed from persisted
// turns on every call, never held in a mutable session.
type Builder struct {
	config BuilderConfig
	store  types.TurnStore
}

func NewWithConfig(config BuilderConfig, store types.TurnStore) *Builder {
	if config.Limit <= 0 {
		config.Limit = 5
	}

	return &Builder{
		config: config,
		store:  store,
	}
}

// History returns up to `limit` question/answer pairs, oldest first.
// Unanswered turns never appear, and the in-flight turn is excluded even if
// it is already persisted. limit <= 0 falls back to the configured limit.
func (b *Builder) History(ctx context.Context, userID, topicID, excludeTurnID string, limit int) ([]models.QAPair, error) {
	if limit <= 0 {
		limit = b.config.Limit
	}

	turns, err := b.store.TurnsByUserTopic(ctx, userID, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns for user %s: %w", userID, err)
	}

	var answered []models.QAPair
	for _, turn := range turns {
		if !turn.Answered {
			continue
		}
		if excludeTurnID != "" && turn.ID == excludeTurnID {
			continue
		}
		answered = append(answered, models.QAPair{
			Question: turn.Question,
			Answer:   turn.Answer,
		})
	}

	// Keep the most recent `limit` pairs in chronological order.
	if len(answered) > limit {
		answered = answered[len(answered)-limit:]
	}

	return answered, nil
}
