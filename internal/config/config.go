package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// LLM provider (OpenAI-compatible; base URL may point at Groq or similar)
	LLMAPIKey           string `envconfig:"LLM_API_KEY"`
	LLMBaseURL          string `envconfig:"LLM_BASE_URL"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"llama-3.1-8b-instant"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`

	// Agent retrieval and generation
	AgentTopK       int     `envconfig:"AGENT_TOP_K" default:"8"`
	MinSimilarity   float64 `envconfig:"AGENT_MIN_SIMILARITY" default:"0.5"`
	MaxOutputTokens int     `envconfig:"AGENT_MAX_OUTPUT_TOKENS" default:"400"`
	ExposeSources   bool    `envconfig:"AGENT_EXPOSE_SOURCES" default:"false"`

	// Chunking thresholds
	ChunkMinChars     int `envconfig:"CHUNK_MIN_CHARS_BEFORE_SPLIT" default:"2000"`
	ChunkTargetChars  int `envconfig:"CHUNK_TARGET_CHARS" default:"1200"`
	ChunkOverlapChars int `envconfig:"CHUNK_OVERLAP_CHARS" default:"150"`

	// Daily quota per identity class
	AnonDailyQuota int `envconfig:"ANON_DAILY_QUOTA" default:"5"`
	AuthDailyQuota int `envconfig:"AUTH_DAILY_QUOTA" default:"20"`

	// Shared secret for the embed/sync endpoints (scheduler and CRUD frontend)
	EmbedSecret string `envconfig:"EMBED_SECRET"`

	// Identity: HS256 secret for session bearer tokens, owner bypass email
	JWTSecret  string `envconfig:"JWT_SECRET"`
	OwnerEmail string `envconfig:"OWNER_EMAIL"`
	OwnerName  string `envconfig:"OWNER_NAME" default:"Gilvin"`

	// Background embedding worker
	EmbedPollInterval time.Duration `envconfig:"EMBED_POLL_INTERVAL" default:"30s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("HSA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasLLM() bool {
	return c.LLMAPIKey != ""
}
