package admin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/tenderflow/internal/app"
	"github.com/cloo-solutions/tenderflow/internal/audit"
	"github.com/cloo-solutions/tenderflow/internal/config"
	"github.com/cloo-solutions/tenderflow/internal/database"
	"github.com/cloo-solutions/tenderflow/internal/openai"
	"github.com/cloo-solutions/tenderflow/internal/storage"
)

var errNoOpenAI = errors.New("TENDERFLOW_OPENAI_API_KEY is required to run agents")

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// newReportStore returns nil when no object storage is configured.
func newReportStore(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	return client, nil
}

// productionDeps connects the OpenAI, headless Chrome and S3 backed collaborators.
func productionDeps(ctx context.Context, cfg *config.Config) (app.Deps, error) {
	if !cfg.HasOpenAI() {
		return app.Deps{}, errNoOpenAI
	}

	deps := app.Deps{
		Embedder: openai.NewClientWithConfig(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			EmbeddingModel: goopenai.EmbeddingModel(cfg.EmbeddingModel),
		}),
		Generator: openai.NewGenerator(openai.GeneratorConfig{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			ChatModel:      cfg.ChatModel,
			ReasoningModel: cfg.ReasoningModelOrDefault(),
		}),
		Auditor:           audit.NewBrowserAuditor(cfg.AuditTimeout, cfg.AuditMaxPages),
		EmbeddingsEnabled: cfg.EmbeddingsEnabled,
		PollInterval:      cfg.AgentPollInterval,
	}

	reports, err := newReportStore(ctx, cfg)
	if err != nil {
		return app.Deps{}, err
	}
	// A nil *S3Client must not become a non-nil interface.
	if reports != nil {
		deps.Reports = reports
	}
	return deps, nil
}

// withApp loads config, connects and wires the app for a one-shot command.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := productionDeps(ctx, cfg)
	if err != nil {
		return err
	}
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(app.New(pool, deps))
}
