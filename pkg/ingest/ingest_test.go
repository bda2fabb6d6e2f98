package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/chunker"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/extract"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/store"
)

type stubEmbedder struct {
	calls    int
	failOn   map[int]bool // call numbers (1-based) that return an error
	failAll  bool
	lastText string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	s.lastText = text
	if s.failAll || s.failOn[s.calls] {
		return nil, errors.New("embedding unavailable")
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) ModelID() string {
	return "text-embedding-3-small"
}

func wordsOfLength(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func newPipeline(t *testing.T, embedder *stubEmbedder, mem *store.Memory) *Pipeline {
	t.Helper()
	extractor := extract.New()
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	return NewPipeline(PipelineConfig{RateLimit: 1000}, &extractor, c, embedder, mem, mem)
}

func TestPipelineStoresChunksWithEmbeddings(t *testing.T) {
	mem := store.NewMemory()
	embedder := &stubEmbedder{}
	pipeline := newPipeline(t, embedder, mem)

	doc := models.Document{
		ID:          "doc-1",
		TopicID:     "topic-1",
		Title:       "Fractions",
		ContentType: "text/plain",
		Content:     wordsOfLength(250),
	}
	require.NoError(t, mem.SaveDocument(context.Background(), doc))

	stored, err := pipeline.Process(context.Background(), "doc-1")
	require.NoError(t, err)

	// 250 words, window 100, stride 80: starts at 0, 80, 160, 240
	assert.Equal(t, 4, stored)

	chunks, err := mem.AllByTopic(context.Background(), "topic-1")
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	for i, chunk := range chunks {
		assert.Equal(t, "doc-1", chunk.DocumentID)
		assert.Equal(t, "topic-1", chunk.TopicID)
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, "text-embedding-3-small", chunk.ModelID)
		assert.NotEmpty(t, chunk.Embedding)
		assert.NotEmpty(t, chunk.ID)
	}
}

func TestPipelineIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	embedder := &stubEmbedder{}
	pipeline := newPipeline(t, embedder, mem)

	doc := models.Document{
		ID:          "doc-1",
		TopicID:     "topic-1",
		ContentType: "text/plain",
		Content:     wordsOfLength(250),
	}
	require.NoError(t, mem.SaveDocument(context.Background(), doc))

	_, err := pipeline.Process(context.Background(), "doc-1")
	require.NoError(t, err)
	_, err = pipeline.Process(context.Background(), "doc-1")
	require.NoError(t, err)

	chunks, err := mem.AllByTopic(context.Background(), "topic-1")
	require.NoError(t, err)
	assert.Len(t, chunks, 4, "re-running ingestion must not duplicate chunks")
}

func TestPipelineSkipsChunksWhoseEmbeddingFails(t *testing.T) {
	mem := store.NewMemory()
	embedder := &stubEmbedder{failOn: map[int]bool{2: true}}
	pipeline := newPipeline(t, embedder, mem)

	doc := models.Document{
		ID:          "doc-1",
		TopicID:     "topic-1",
		ContentType: "text/plain",
		Content:     wordsOfLength(250),
	}
	require.NoError(t, mem.SaveDocument(context.Background(), doc))

	stored, err := pipeline.Process(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	chunks, err := mem.AllByTopic(context.Background(), "topic-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	indexes := make([]int, 0, len(chunks))
	for _, chunk := range chunks {
		indexes = append(indexes, chunk.ChunkIndex)
	}
	assert.Equal(t, []int{0, 2, 3}, indexes, "only the failed window is skipped")
}

func TestPipelineFailsOnUnreadableDocument(t *testing.T) {
	mem := store.NewMemory()
	embedder := &stubEmbedder{}
	pipeline := newPipeline(t, embedder, mem)

	doc := models.Document{
		ID:          "doc-1",
		TopicID:     "topic-1",
		ContentType: "application/pdf",
		Content:     "%PDF-1.4 binary",
	}
	require.NoError(t, mem.SaveDocument(context.Background(), doc))

	_, err := pipeline.Process(context.Background(), "doc-1")
	require.Error(t, err)

	var unreadable *extract.ErrUnreadableDocument
	assert.True(t, errors.As(err, &unreadable))
	assert.Zero(t, embedder.calls, "nothing is embedded for an unreadable document")

	chunks, err := mem.AllByTopic(context.Background(), "topic-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPipelineFailsOnMissingDocument(t *testing.T) {
	mem := store.NewMemory()
	pipeline := newPipeline(t, &stubEmbedder{}, mem)

	_, err := pipeline.Process(context.Background(), "no-such-doc")
	require.Error(t, err)
}

func TestQueueProcessesEnqueuedDocuments(t *testing.T) {
	mem := store.NewMemory()
	embedder := &stubEmbedder{}
	pipeline := newPipeline(t, embedder, mem)

	doc := models.Document{
		ID:          "doc-1",
		TopicID:     "topic-1",
		ContentType: "text/plain",
		Content:     wordsOfLength(50),
	}
	require.NoError(t, mem.SaveDocument(context.Background(), doc))

	queue := NewQueue(QueueConfig{Workers: 1}, pipeline)
	queue.Start(context.Background())

	assert.True(t, queue.Enqueue("doc-1"))

	assert.Eventually(t, func() bool {
		chunks, err := mem.AllByTopic(context.Background(), "topic-1")
		return err == nil && len(chunks) == 1
	}, 2*time.Second, 10*time.Millisecond)

	queue.Stop()
}

func TestQueueEnqueueReportsFullBuffer(t *testing.T) {
	mem := store.NewMemory()
	pipeline := newPipeline(t, &stubEmbedder{}, mem)

	// No workers started, buffer of one.
	queue := NewQueue(QueueConfig{Workers: 1, BufferSize: 1}, pipeline)

	assert.True(t, queue.Enqueue("doc-1"))
	assert.False(t, queue.Enqueue("doc-2"))
}
