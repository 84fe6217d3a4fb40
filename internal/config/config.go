package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	Vector        VectorConfig     `json:"vector"`
	AI            AIConfig         `json:"ai"`
	Chunker       ChunkerConfig    `json:"chunker"`
	Retrieval     RetrievalConfig  `json:"retrieval"`
	Archive       ArchiveConfig    `json:"archive"`
	Jobs          JobsConfig       `json:"jobs"`
	CORSAllowlist []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type VectorConfig struct {
	URL         string `json:"url"`
	APIKey      string `json:"api_key"`
	Collection  string `json:"collection"`
	Dimension   int    `json:"dimension"`
	TimeoutSecs int    `json:"timeout_secs"`
}

type AIConfig struct {
	Completion ProviderConfig   `json:"completion"`
	Embedding  ProviderConfig   `json:"embedding"`
	Cache      EmbedCacheConfig `json:"cache"`
}

type ProviderConfig struct {
	Provider    string      `json:"provider"`
	Model       string      `json:"model"`
	Temperature float32     `json:"temperature"`
	TimeoutSecs int         `json:"timeout_secs"`
	Data        interface{} `json:"data"`
}

type EmbedCacheConfig struct {
	LRUSize    int  `json:"lru_size"`
	LRUTTLSecs int  `json:"lru_ttl_secs"`
	UseDB      bool `json:"use_db"`
	MaxAgeDays int  `json:"max_age_days"`
}

type ChunkerConfig struct {
	MaxChars      int `json:"max_chars"`
	ChunksPerPage int `json:"chunks_per_page"`
}

type RetrievalConfig struct {
	TopK int `json:"top_k"`
}

type ArchiveConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	EmbeddingCacheCleanup string `json:"embedding_cache_cleanup"`
	SessionCleanup        string `json:"session_cleanup"`
	SessionMaxAgeDays     int    `json:"session_max_age_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Vector.URL == "" {
		return nil, fmt.Errorf("vector.url is required")
	}
	if cfg.Vector.Dimension <= 0 {
		return nil, fmt.Errorf("vector.dimension is required")
	}
	if cfg.AI.Completion.Provider == "" || cfg.AI.Completion.Model == "" {
		return nil, fmt.Errorf("ai.completion provider/model are required")
	}
	if cfg.AI.Embedding.Provider == "" || cfg.AI.Embedding.Model == "" {
		return nil, fmt.Errorf("ai.embedding provider/model are required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "book_content_chunks"
	}
	if cfg.Vector.TimeoutSecs == 0 {
		cfg.Vector.TimeoutSecs = 15
	}
	if cfg.AI.Completion.Temperature == 0 {
		cfg.AI.Completion.Temperature = 0.1
	}
	if cfg.AI.Completion.TimeoutSecs == 0 {
		cfg.AI.Completion.TimeoutSecs = 60
	}
	if cfg.AI.Embedding.TimeoutSecs == 0 {
		cfg.AI.Embedding.TimeoutSecs = 30
	}
	if cfg.Chunker.MaxChars == 0 {
		cfg.Chunker.MaxChars = 1000
	}
	if cfg.Chunker.MaxChars < 500 || cfg.Chunker.MaxChars > 1000 {
		return nil, fmt.Errorf("chunker.max_chars must be within [500, 1000]")
	}
	if cfg.Chunker.ChunksPerPage == 0 {
		cfg.Chunker.ChunksPerPage = 10
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Jobs.SessionMaxAgeDays == 0 {
		cfg.Jobs.SessionMaxAgeDays = 30
	}
	if cfg.AI.Cache.MaxAgeDays == 0 {
		cfg.AI.Cache.MaxAgeDays = 30
	}
	return &cfg, nil
}
