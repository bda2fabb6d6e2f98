package chunker

import (
	"strings"
)

type ChunkerConfig struct {
	ChunkSize    int // window size in words
	ChunkOverlap int // overlapping words between consecutive windows
}

// Chunker splits extracted document text into overlapping word windows.
// Windows start at word offsets 0, stride, 2*stride, ... where
// stride = ChunkSize - ChunkOverlap.
type Chunker struct {
	config ChunkerConfig
}

func NewWithConfig(config ChunkerConfig) Chunker {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 4
	}

	return Chunker{
		config: config,
	}
}

// Chunk splits text on whitespace and produces the overlapping windows.
// Windows start at every multiple of the stride below the word count, so a
// text whose last full window ends exactly on the final word still gets the
// trailing overlap window after it. Pure function of its input: the same
// text always yields the same chunks. Empty or whitespace-only input yields
// no chunks.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= c.config.ChunkSize {
		return []string{strings.Join(words, " ")}
	}

	stride := c.config.ChunkSize - c.config.ChunkOverlap

	var chunks []string
	for start := 0; start < len(words); start += stride {
		end := start + c.config.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	return chunks
}
