package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	JWTSecret string           `json:"jwt_secret"`
	LogConfig logger.LogConfig `json:"log_config"`

	FileStore    FileStoreConfig    `json:"file_store"`
	Search       SearchConfig       `json:"search"`
	AI           AIConfig           `json:"ai"`
	Conversation ConversationConfig `json:"conversation"`
	Index        IndexConfig        `json:"index"`
	Extraction   ExtractionConfig   `json:"extraction"`
	RAG          RAGConfig          `json:"rag"`
	Schedule     ScheduleConfig     `json:"schedule"`
}

type FileStoreConfig struct {
	Type string   `json:"type"`
	Dir  string   `json:"dir"`
	S3   S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	UseSSL    bool   `json:"use_ssl"`
}

type SearchConfig struct {
	Type      string         `json:"type"`
	IndexName string         `json:"index_name"`
	Postgres  PostgresConfig `json:"postgres"`
	Bleve     BleveConfig    `json:"bleve"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type BleveConfig struct {
	Dir string `json:"dir"`
}

type AIProviderConfig struct {
	Provider string                 `json:"provider"`
	Model    string                 `json:"model"`
	Args     map[string]interface{} `json:"args"`
}

type AIConfig struct {
	Chatters       []AIProviderConfig `json:"chatters"`
	Embedders      []AIProviderConfig `json:"embedders"`
	Timeout        int                `json:"timeout"`
	Temperature    *float32           `json:"temperature"`
	TopP           *float32           `json:"top_p"`
	EmbedCacheSize int                `json:"embed_cache_size"`
	EmbedCacheTTL  int                `json:"embed_cache_ttl"` // seconds
}

type ConversationConfig struct {
	Type          string         `json:"type"`
	Postgres      PostgresConfig `json:"postgres"`
	RetentionDays int            `json:"retention_days"`
}

type IndexConfig struct {
	BatchSize    int    `json:"batch_size"`
	MaxRetry     int    `json:"max_retry"`
	RetryDelayMS int    `json:"retry_delay_ms"`
	AssemblyMode string `json:"assembly_mode"`
	ChunkSize    int    `json:"chunk_size"`
}

type ExtractionConfig struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout"`
}

type RAGConfig struct {
	SystemPrompt    string `json:"system_prompt"`
	MaxHistory      int    `json:"max_history"`
	TopN            int    `json:"top_n"`
	ChatRateLimitMS int    `json:"chat_rate_limit_ms"`
}

type ScheduleConfig struct {
	ReindexCron string `json:"reindex_cron"`
	CleanupCron string `json:"cleanup_cron"`
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
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Search.IndexName == "" {
		cfg.Search.IndexName = "insurance-plans"
	}
	switch cfg.Search.Type {
	case "postgres":
		if cfg.Search.Postgres.DSN == "" {
			return nil, fmt.Errorf("search.postgres.dsn is required for postgres engine")
		}
	case "bleve":
		if cfg.Search.Bleve.Dir == "" {
			return nil, fmt.Errorf("search.bleve.dir is required for bleve engine")
		}
	case "":
		return nil, fmt.Errorf("search.type is required")
	default:
		return nil, fmt.Errorf("search.type must be postgres or bleve")
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	switch cfg.FileStore.Type {
	case "local":
		if cfg.FileStore.Dir == "" {
			return nil, fmt.Errorf("file_store.dir is required for local store")
		}
	case "s3":
		s3 := cfg.FileStore.S3
		if s3.Endpoint == "" || s3.Bucket == "" || s3.AccessKey == "" || s3.SecretKey == "" {
			return nil, fmt.Errorf("file_store.s3 endpoint/bucket/access_key/secret_key are required for s3 store")
		}
	default:
		return nil, fmt.Errorf("file_store.type must be local or s3")
	}
	if cfg.Conversation.Type == "" {
		cfg.Conversation.Type = "memory"
	}
	if cfg.Conversation.Type == "postgres" && cfg.Conversation.Postgres.DSN == "" {
		return nil, fmt.Errorf("conversation.postgres.dsn is required for postgres store")
	}
	if cfg.Index.BatchSize <= 0 {
		cfg.Index.BatchSize = 100
	}
	if cfg.Index.MaxRetry <= 0 {
		cfg.Index.MaxRetry = 3
	}
	if cfg.Index.RetryDelayMS <= 0 {
		cfg.Index.RetryDelayMS = 2000
	}
	if cfg.Index.AssemblyMode == "" {
		cfg.Index.AssemblyMode = "combined"
	}
	if cfg.Index.AssemblyMode != "combined" && cfg.Index.AssemblyMode != "chunked" {
		return nil, fmt.Errorf("index.assembly_mode must be combined or chunked")
	}
	if cfg.RAG.MaxHistory <= 0 {
		cfg.RAG.MaxHistory = 10
	}
	if cfg.RAG.TopN <= 0 {
		cfg.RAG.TopN = 5
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 120
	}
	return &cfg, nil
}
