package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/llm"
)

// stubModel returns a fixed response or error and records the last prompt.
type stubModel struct {
	response string
	err      error
	messages []llms.MessageContent
}

func (s *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	s.messages = messages
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: s.response}},
	}, nil
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newGenerator(t *testing.T, model llms.Model) *llm.Generator {
	t.Helper()
	g, err := llm.NewGeneratorWithConfig(llm.GeneratorConfig{
		MaxTokens:   500,
		Temperature: 0.8,
	}, model)
	require.NoError(t, err)
	return g
}

func textOf(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	require.Len(t, msg.Parts, 1)
	part, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestGenerate_GroundedPrompt(t *testing.T) {
	stub := &stubModel{response: "Primes have exactly two divisors."}
	g := newGenerator(t, stub)

	chunks := []models.Chunk{
		{Content: "A prime number has exactly two divisors."},
		{Content: "The number 1 is not prime."},
	}

	answer := g.Generate(context.Background(), "What is a prime?", "Prime Numbers", chunks, nil)

	assert.Equal(t, "Primes have exactly two divisors.", answer)
	require.Len(t, stub.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, stub.messages[0].Role)

	prompt := textOf(t, stub.messages[1])
	assert.Contains(t, prompt, "textbook content for Prime Numbers")
	assert.Contains(t, prompt, "exactly two divisors")
	assert.Contains(t, prompt, "The number 1 is not prime")
	assert.Contains(t, prompt, "Student Question: What is a prime?")
}

func TestGenerate_UngroundedPrompt(t *testing.T) {
	stub := &stubModel{response: "Let me answer from what I know."}
	g := newGenerator(t, stub)

	answer := g.Generate(context.Background(), "What is a prime?", "Prime Numbers", nil, nil)

	assert.NotEmpty(t, answer)
	prompt := textOf(t, stub.messages[1])
	assert.Contains(t, prompt, "no source material available")
	assert.Contains(t, prompt, "general knowledge")
}

func TestGenerate_HistoryAsDialogue(t *testing.T) {
	stub := &stubModel{response: "As I said before, start with factor trees."}
	g := newGenerator(t, stub)

	history := []models.QAPair{
		{Question: "What is factorization?", Answer: "Breaking a number into factors."},
		{Question: "Show me an example", Answer: "12 = 2 x 2 x 3."},
	}

	g.Generate(context.Background(), "Can you explain again?", "Prime Numbers", nil, history)

	// system + 2 history pairs + final question
	require.Len(t, stub.messages, 6)
	assert.Equal(t, schema.ChatMessageTypeHuman, stub.messages[1].Role)
	assert.Equal(t, schema.ChatMessageTypeAI, stub.messages[2].Role)
	assert.Equal(t, "What is factorization?", textOf(t, stub.messages[1]))
	assert.Equal(t, "12 = 2 x 2 x 3.", textOf(t, stub.messages[4]))

	prompt := textOf(t, stub.messages[5])
	assert.Contains(t, prompt, "previous conversation")
}

func TestGenerate_NeverRaises(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "auth failure",
			err:  errors.New("API returned unexpected status code: 401 invalid api key"),
			want: llm.MsgMisconfigured,
		},
		{
			name: "bad request",
			err:  errors.New("API returned unexpected status code: 400 bad request"),
			want: llm.MsgBadRequest,
		},
		{
			name: "timeout",
			err:  errors.New("context deadline exceeded"),
			want: llm.MsgTryAgainLater,
		},
		{
			name: "rate limit",
			err:  errors.New("API returned unexpected status code: 429 too many requests"),
			want: llm.MsgTryAgainLater,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenerator(t, &stubModel{err: tt.err})

			answer := g.Generate(context.Background(), "question", "Topic", nil, nil)

			assert.Equal(t, tt.want, answer)
		})
	}
}

func TestGenerate_EmptyProviderResponse(t *testing.T) {
	g := newGenerator(t, &stubModel{response: "   "})

	answer := g.Generate(context.Background(), "question", "Topic", nil, nil)

	assert.Equal(t, llm.MsgTryAgainLater, answer)
}

func TestNewGeneratorWithConfig_Validation(t *testing.T) {
	_, err := llm.NewGeneratorWithConfig(llm.GeneratorConfig{}, nil)
	assert.Error(t, err)

	_, err = llm.NewGeneratorWithConfig(llm.GeneratorConfig{Temperature: 3.0}, &stubModel{})
	assert.Error(t, err)

	_, err = llm.NewGeneratorWithConfig(llm.GeneratorConfig{MaxTokens: -1}, &stubModel{})
	assert.Error(t, err)
}
