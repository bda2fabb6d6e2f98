package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
	"github.com/gyansingh18/ai-tutor-learning-platform/internal/types"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/chunker"
	cfgPkg "github.com/gyansingh18/ai-tutor-learning-platform/pkg/config"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/extract"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/history"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/ingest"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/llm"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/retriever"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/store"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/tutor"
	"github.com/gyansingh18/ai-tutor-learning-platform/server"
)

type Flags struct {
	ConfigPath string
	Serve      bool
	IngestPath string
	TopicID    string
	TopicName  string
	UserID     string
}

func main() {
	// .env is optional; environment variables win either way
	godotenv.Load()

	flags := parseFlags()

	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if err := run(flags, config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.BoolVar(&flags.Serve, "serve", false, "Run the HTTP server")
	flag.StringVar(&flags.IngestPath, "ingest", "", "Path to a document to ingest")
	flag.StringVar(&flags.TopicID, "topic", "", "Topic id for ingestion and chat")
	flag.StringVar(&flags.TopicName, "topic-name", "", "Topic display name for prompts")
	flag.StringVar(&flags.UserID, "user", "cli", "User id for the chat session")
	flag.Parse()

	return flags
}

type app struct {
	docs      types.DocumentStore
	turns     types.TurnStore
	chunks    types.ChunkStore
	pipeline  *ingest.Pipeline
	tutor     *tutor.Service
	queueConf ingest.QueueConfig
	close     func()
}

func buildApp(config *cfgPkg.Config, onProgress func(int)) (*app, error) {
	var docs types.DocumentStore
	var turns types.TurnStore
	var chunks types.ChunkStore
	closeStore := func() {}

	if config.Database.URL != "" {
		pg, err := store.NewPostgres(store.PostgresConfig{
			ConnString: config.Database.URL,
			VectorDim:  config.Database.VectorDim,
		})
		if err != nil {
			return nil, err
		}
		docs, turns, chunks = pg, pg, pg
		closeStore = pg.Close
	} else {
		color.Yellow("DATABASE_URL not set, using in-memory store (nothing is persisted)")
		mem := store.NewMemory()
		docs, turns, chunks = mem, mem, mem
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		APIKey:     config.OpenAI.APIKey,
		Model:      config.OpenAI.EmbeddingModel,
		Timeout:    config.Timeout(),
		MaxRetries: config.OpenAI.MaxRetries,
	})
	if err != nil {
		closeStore()
		return nil, err
	}

	model, err := llm.NewOpenAIModel(config.OpenAI.APIKey, config.OpenAI.CompletionModel, config.Timeout())
	if err != nil {
		closeStore()
		return nil, err
	}

	generator, err := llm.NewGeneratorWithConfig(llm.GeneratorConfig{
		Model:       config.OpenAI.CompletionModel,
		MaxTokens:   config.OpenAI.MaxTokens,
		Temperature: config.OpenAI.Temperature,
	}, model)
	if err != nil {
		closeStore()
		return nil, err
	}

	extractor := extract.New()
	pipeline := ingest.NewPipeline(
		ingest.PipelineConfig{RateLimit: config.Ingest.RateLimit, OnProgress: onProgress},
		&extractor,
		chunker.NewWithConfig(chunker.ChunkerConfig{
			ChunkSize:    config.Chunker.ChunkSize,
			ChunkOverlap: config.Chunker.ChunkOverlap,
		}),
		embedder,
		docs,
		chunks,
	)

	tutorSvc := tutor.New(
		embedder,
		retriever.NewWithConfig(retriever.RetrieverConfig{
			ModelID: embedder.ModelID(),
			TopK:    config.Retrieval.TopK,
		}, chunks),
		history.NewWithConfig(history.BuilderConfig{
			Limit: config.Retrieval.HistoryLimit,
		}, turns),
		generator,
	)

	return &app{
		docs:      docs,
		turns:     turns,
		chunks:    chunks,
		pipeline:  pipeline,
		tutor:     tutorSvc,
		queueConf: ingest.QueueConfig{Workers: config.Ingest.Workers},
		close:     closeStore,
	}, nil
}

func run(flags Flags, config *cfgPkg.Config) error {
	var onProgress func(int)
	if flags.IngestPath != "" {
		progress := getSpinner("Embedding chunks...")
		onProgress = func(chunks int) {
			progress.Add(1)
		}
	}

	a, err := buildApp(config, onProgress)
	if err != nil {
		return err
	}
	defer a.close()

	if flags.IngestPath != "" {
		if flags.TopicID == "" {
			return fmt.Errorf("-topic is required with -ingest")
		}
		return ingestFile(a, flags)
	}

	if flags.Serve {
		queue := ingest.NewQueue(a.queueConf, a.pipeline)
		queue.Start(context.Background())
		defer queue.Stop()

		srv := server.New(server.Config{Port: config.Server.Port}, a.tutor, a.docs, a.turns, queue)
		return srv.Run()
	}

	return chatLoop(a, flags)
}

func ingestFile(a *app, flags Flags) error {
	data, err := os.ReadFile(flags.IngestPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", flags.IngestPath, err)
	}

	contentType := "text/plain"
	switch strings.ToLower(filepath.Ext(flags.IngestPath)) {
	case ".html", ".htm":
		contentType = "text/html"
	case ".md", ".markdown":
		contentType = "text/markdown"
	}

	doc := models.Document{
		ID:          uuid.New().String(),
		TopicID:     flags.TopicID,
		Title:       filepath.Base(flags.IngestPath),
		ContentType: contentType,
		Content:     string(data),
	}

	ctx := context.Background()
	if err := a.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to save document: %v", err)
	}

	color.Blue("\nIngesting %s into topic %s\n", doc.Title, flags.TopicID)

	stored, err := a.pipeline.Process(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("ingestion failed: %v", err)
	}

	color.Green("\n✓ Stored %d chunks\n", stored)
	return nil
}

func chatLoop(a *app, flags Flags) error {
	if flags.TopicID == "" {
		return fmt.Errorf("-topic is required for chat")
	}

	color.Cyan("\nAsk questions about %s (type 'exit' to quit)", topicLabel(flags))

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.ToLower(question) == "exit" {
			break
		}

		ctx := context.Background()
		turn := models.ConversationTurn{
			ID:       uuid.New().String(),
			UserID:   flags.UserID,
			TopicID:  flags.TopicID,
			Question: question,
		}
		if err := a.turns.CreateTurn(ctx, turn); err != nil {
			color.Red("failed to record question: %v\n", err)
			continue
		}

		spinner := getSpinner("Thinking...")

		answer := a.tutor.Answer(ctx, tutor.AnswerRequest{
			UserID:        flags.UserID,
			TopicID:       flags.TopicID,
			TopicName:     flags.TopicName,
			Question:      question,
			ExcludeTurnID: turn.ID,
		})

		spinner.Finish()
		fmt.Print("\r")

		if err := a.turns.AttachAnswer(ctx, turn.ID, answer); err != nil {
			log.Printf("failed to attach answer: %v", err)
		}

		assistantPrompt("Tutor: ")
		fmt.Printf("%s\n", answer)
	}

	return nil
}

func topicLabel(flags Flags) string {
	if flags.TopicName != "" {
		return flags.TopicName
	}
	return flags.TopicID
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
