package llm

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
)

// Fixed user-safe answers for the three provider failure classes. The
// underlying cause is logged; the student only ever sees one of these.
const (
	MsgMisconfigured = "I'm sorry, there's an issue with the AI service configuration. Please contact support."
	MsgBadRequest    = "I'm sorry, there's an issue with the AI service request. Please try again with a different question."
	MsgTryAgainLater = "I'm sorry, I'm having trouble processing your question right now. Please try again later."
)

const defaultSystemTemplate = `You are a friendly, patient tutor who explains concepts in simple, engaging ways.

CONVERSATION RULES:
- Reference previous parts of the conversation when relevant
- If the student says 'can't understand' or 'explain again', ask specific follow-up questions about what part is unclear
- Build upon previous explanations instead of repeating the same content

STYLE GUIDELINES:
- Use conversational, friendly language
- Include practical, real-world examples students can relate to (cooking, sports, money, games)
- Break down complex concepts into simple steps
- Keep explanations concise (max 3-4 paragraphs)
- Avoid asterisks and formal formatting
- End every response with a follow-up question to encourage continued learning`

// GeneratorConfig represents the configuration for the answer generator.
type GeneratorConfig struct {
	Model          string
	MaxTokens      int
	Temperature    float64
	SystemTemplate string
}

// Generator composes a grounded prompt and invokes the completion model.
// The model is injected so tests run against a stub.
type Generator struct {
	config GeneratorConfig
	llm    llms.Model
}

func NewGeneratorWithConfig(config GeneratorConfig, model llms.Model) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("completion model is required")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaultSystemTemplate
	}

	return &Generator{
		config: config,
		llm:    model,
	}, nil
}

// NewOpenAIModel builds the production completion client with an explicit
// request timeout.
func NewOpenAIModel(apiKey, model string, timeout time.Duration) (llms.Model, error) {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion client: %w", err)
	}
	return client, nil
}

// Generate produces an answer for the question, grounded in the retrieved
// chunks and the prior conversation. It always returns a non-empty string
// and never propagates a provider error to the caller.
func (g *Generator) Generate(ctx context.Context, question, topicName string, chunks []models.Chunk, history []models.QAPair) string {
	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, g.config.SystemTemplate),
	}

	// Prior turns go in as real dialogue so the model can resolve follow-ups.
	for _, qa := range history {
		content = append(content,
			llms.TextParts(schema.ChatMessageTypeHuman, qa.Question),
			llms.TextParts(schema.ChatMessageTypeAI, qa.Answer),
		)
	}

	content = append(content, llms.TextParts(schema.ChatMessageTypeHuman,
		g.buildPrompt(question, topicName, chunks, len(history) > 0)))

	response, err := g.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(g.config.MaxTokens),
		llms.WithTemperature(g.config.Temperature),
	)
	if err != nil {
		kind := classifyFailure(err)
		log.Printf("generation failed (%s): %v", kind, err)
		return fallbackMessage(kind)
	}

	if response == nil || len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Content) == "" {
		log.Printf("generation failed (other): provider returned empty response")
		return MsgTryAgainLater
	}

	return response.Choices[0].Content
}

func (g *Generator) buildPrompt(question, topicName string, chunks []models.Chunk, hasHistory bool) string {
	var prompt strings.Builder

	if len(chunks) > 0 {
		prompt.WriteString(fmt.Sprintf("Based on the following textbook content for %s:\n\n", topicName))
		for i, chunk := range chunks {
			if i > 0 {
				prompt.WriteString("\n\n")
			}
			prompt.WriteString(chunk.Content)
		}
		prompt.WriteString("\n\n")
	} else {
		prompt.WriteString(fmt.Sprintf("There is no source material available for %s. Answer from your general knowledge.\n\n", topicName))
	}

	if hasHistory {
		prompt.WriteString("If this question relates to our previous conversation, explicitly reference that context and build upon it.\n\n")
	}

	prompt.WriteString(fmt.Sprintf("Student Question: %s", question))

	return prompt.String()
}

type failureKind string

const (
	failureAuth       failureKind = "auth"
	failureBadRequest failureKind = "bad-request"
	failureOther      failureKind = "other"
)

// classifyFailure buckets a provider error into the three classes the
// fallback messages cover. Sustained auth failures stay distinguishable in
// logs from transient ones even though the user-facing text differs too.
func classifyFailure(err error) failureKind {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "invalid api key"):
		return failureAuth
	case strings.Contains(msg, "400"),
		strings.Contains(msg, "bad request"),
		strings.Contains(msg, "invalid request"):
		return failureBadRequest
	default:
		return failureOther
	}
}

func fallbackMessage(kind failureKind) string {
	switch kind {
	case failureAuth:
		return MsgMisconfigured
	case failureBadRequest:
		return MsgBadRequest
	default:
		return MsgTryAgainLater
	}
}
