// Package bootstrap wires configuration into concrete backends so the
// API server and the generation worker share the same construction
// logic.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/nicscott/assessment-reports/internal/config"
	"github.com/nicscott/assessment-reports/internal/generation"
	"github.com/nicscott/assessment-reports/internal/notify"
	"github.com/nicscott/assessment-reports/internal/report"
	"github.com/nicscott/assessment-reports/internal/submission"
	"github.com/nicscott/assessment-reports/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildPostgresPool connects to Postgres, or returns nil when no
// DATABASE_URL is configured.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	if logger != nil {
		logger.Info("postgres connected")
	}
	return pool, nil
}

// BuildReportStore picks the report backend: Postgres when a pool is
// available, in-memory otherwise.
func BuildReportStore(pool *pgxpool.Pool, logger *logging.Logger) report.Store {
	if pool != nil {
		return report.NewPostgresStore(pool)
	}
	if logger != nil {
		logger.Warn("no database configured, using in-memory report store")
	}
	return report.NewInMemoryStore()
}

// BuildMetaStore picks the submission metadata backend from config.
func BuildMetaStore(cfg *appconfig.Config, pool *pgxpool.Pool, awsCfg aws.Config, logger *logging.Logger) (submission.MetaStore, error) {
	switch cfg.MetaBackend {
	case "dynamodb":
		if strings.TrimSpace(cfg.SubmissionMetaTable) == "" {
			return nil, fmt.Errorf("bootstrap: SUBMISSION_META_TABLE required for dynamodb backend")
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return submission.NewDynamoMetaStore(client, cfg.SubmissionMetaTable, logger), nil
	case "postgres":
		if pool != nil {
			return submission.NewPostgresMetaStore(pool), nil
		}
		if logger != nil {
			logger.Warn("no database configured, using in-memory submission meta store")
		}
		return submission.NewInMemoryMetaStore(), nil
	case "memory":
		return submission.NewInMemoryMetaStore(), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown meta backend %q", cfg.MetaBackend)
	}
}

// BuildQueue picks the generation job transport: in-memory for local
// development, SQS otherwise.
func BuildQueue(cfg *appconfig.Config, awsCfg aws.Config) (generation.Queue, error) {
	if cfg.UseMemoryQueue {
		return generation.NewMemoryQueue(0), nil
	}
	if strings.TrimSpace(cfg.GenerationQueueURL) == "" {
		return nil, fmt.Errorf("bootstrap: GENERATION_QUEUE_URL required unless USE_MEMORY_QUEUE is set")
	}
	return generation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.GenerationQueueURL), nil
}

// BuildLLMClient picks the text-generation provider from config. A nil
// client (provider "none", or "auto" with nothing configured) disables
// generation; callers surface that as ai-not-ready.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (generation.LLMClient, generation.ModelParams, error) {
	params := generation.ModelParams{
		Temperature: float32(cfg.AITemperature),
		MaxTokens:   int32(cfg.AIMaxTokens),
	}

	provider := cfg.AIProvider
	if provider == "auto" {
		switch {
		case strings.TrimSpace(cfg.BedrockModelID) != "":
			provider = "bedrock"
		case strings.TrimSpace(cfg.GeminiAPIKey) != "":
			provider = "gemini"
		default:
			provider = "none"
		}
	}

	switch provider {
	case "none":
		if logger != nil {
			logger.Warn("no AI provider configured, personalization disabled")
		}
		return nil, params, nil
	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, params, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID required for bedrock provider")
		}
		params.Provider = "bedrock"
		params.Model = cfg.BedrockModelID
		return generation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)), params, nil
	case "gemini":
		client, err := generation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, params, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		params.Provider = "gemini"
		params.Model = cfg.GeminiModelID
		return client, params, nil
	default:
		return nil, params, fmt.Errorf("bootstrap: unknown AI provider %q", cfg.AIProvider)
	}
}

// BuildEmailSender picks the notification email backend.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	case "ses":
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	default:
		return nil
	}
}

// PromptSettings maps configured tone and voice onto the prompt builder.
func PromptSettings(cfg *appconfig.Config) generation.PromptSettings {
	return generation.PromptSettings{
		Tone:                   cfg.AITone,
		Voice:                  cfg.AIVoice,
		AdditionalInstructions: cfg.AIAdditionalInstructions,
	}
}
