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

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"tenderflow-reports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	ChatModel         string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	ReasoningModel    string `envconfig:"REASONING_MODEL"`
	EmbeddingsEnabled bool   `envconfig:"EMBEDDINGS_ENABLED" default:"true"`

	AgentPollInterval time.Duration `envconfig:"AGENT_POLL_INTERVAL" default:"5s"`
	AuditTimeout      time.Duration `envconfig:"AUDIT_TIMEOUT" default:"45s"`
	AuditMaxPages     int           `envconfig:"AUDIT_MAX_PAGES" default:"5"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TENDERFLOW", &cfg); err != nil {
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

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// ReasoningModelOrDefault returns the model used for synthesis, falling back to the chat model.
func (c *Config) ReasoningModelOrDefault() string {
	if c.ReasoningModel != "" {
		return c.ReasoningModel
	}
	return c.ChatModel
}
