// internal/workers/assistant/search-knowledge-base/config.go
package searchknowledgebase

import (
	"time"

	"bank-assistant/internal/common/config"
)

type Config struct {
	CorpusPath       string
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	EmbedConcurrency int
	Timeout          time.Duration
}

func LoadConfig(cfg config.AssistantConfig) *Config {
	return &Config{
		CorpusPath:       cfg.KnowledgeBasePath,
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		TopK:             cfg.TopK,
		EmbedConcurrency: cfg.EmbedConcurrency,
		Timeout:          30 * time.Second,
	}
}
