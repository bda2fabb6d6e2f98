package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type OpenAIConfig struct {
	APIKey          string  `yaml:"api_key"`
	CompletionModel string  `yaml:"completion_model"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	TimeoutSecs     int     `yaml:"timeout_secs"`
	MaxRetries      int     `yaml:"max_retries"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	VectorDim int    `yaml:"vector_dim"`
}

type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type RetrievalConfig struct {
	TopK         int `yaml:"top_k"`
	HistoryLimit int `yaml:"history_limit"`
}

type IngestConfig struct {
	Workers   int     `yaml:"workers"`
	RateLimit float64 `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Database  DatabaseConfig  `yaml:"database"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSecs) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ai-tutor/config.yaml"),
			"/etc/ai-tutor/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.OpenAI.CompletionModel == "" {
		config.OpenAI.CompletionModel = "gpt-4o-mini"
	}
	if config.OpenAI.EmbeddingModel == "" {
		config.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if config.OpenAI.MaxTokens == 0 {
		config.OpenAI.MaxTokens = 1000
	}
	if config.OpenAI.Temperature == 0 {
		config.OpenAI.Temperature = 0.7
	}
	if config.OpenAI.TimeoutSecs == 0 {
		config.OpenAI.TimeoutSecs = 30
	}
	if config.OpenAI.MaxRetries == 0 {
		config.OpenAI.MaxRetries = 3
	}

	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}

	if config.Chunker.ChunkSize == 0 {
		config.Chunker.ChunkSize = 1000
	}
	if config.Chunker.ChunkOverlap == 0 {
		config.Chunker.ChunkOverlap = 200
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 5
	}
	if config.Retrieval.HistoryLimit == 0 {
		config.Retrieval.HistoryLimit = 5
	}

	if config.Ingest.Workers == 0 {
		config.Ingest.Workers = 2
	}
	if config.Ingest.RateLimit == 0 {
		config.Ingest.RateLimit = 2.0
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
