package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
	"github.com/gyansingh18/ai-tutor-learning-platform/internal/types"
)

// ErrModelMismatch reports chunks embedded under a different model than the
// deployment is configured for. Ranking across embedding spaces is silently
// meaningless, so it is refused outright.
type ErrModelMismatch struct {
	Expected string
	Found    string
}

func (e *ErrModelMismatch) Error() string {
	return fmt.Sprintf("embedding model mismatch: store has %q, deployment uses %q", e.Found, e.Expected)
}

type RetrieverConfig struct {
	ModelID string // embedding model this deployment queries with
	TopK    int
}

// Retriever ranks a topic's chunks against a query vector by cosine
// similarity. A linear scan is deliberate: corpora are per-topic and small,
// and the ChunkStore interface leaves room to swap in an index later.
type Retriever struct {
	config RetrieverConfig
	store  types.ChunkStore
}

func NewWithConfig(config RetrieverConfig, store types.ChunkStore) *Retriever {
	if config.TopK <= 0 {
		config.TopK = 5
	}

	return &Retriever{
		config: config,
		store:  store,
	}
}

// Retrieve returns up to k chunks from the topic, most similar first.
// Ties keep insertion order. An empty topic returns an empty result, not an
// error. k <= 0 falls back to the configured TopK.
func (r *Retriever) Retrieve(ctx context.Context, topicID string, queryVector []float32, k int) ([]models.Chunk, error) {
	if k <= 0 {
		k = r.config.TopK
	}

	chunks, err := r.store.AllByTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for topic %s: %w", topicID, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	for _, chunk := range chunks {
		if r.config.ModelID != "" && chunk.ModelID != r.config.ModelID {
			return nil, &ErrModelMismatch{Expected: r.config.ModelID, Found: chunk.ModelID}
		}
	}

	scores := make([]float64, len(chunks))
	for i, chunk := range chunks {
		scores[i] = CosineSimilarity(queryVector, chunk.Embedding)
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	// Stable sort: equal similarities keep store insertion order.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}

	top := make([]models.Chunk, 0, k)
	for _, idx := range order[:k] {
		top = append(top, chunks[idx])
	}
	return top, nil
}

// CosineSimilarity is dot(a,b) / (|a|*|b|), 0 when either vector has zero
// magnitude.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		magA += float64(v) * float64(v)
	}
	for _, v := range b {
		magB += float64(v) * float64(v)
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
