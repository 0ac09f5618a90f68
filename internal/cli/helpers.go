package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/speclab/specgate/configs"
	"github.com/speclab/specgate/internal/adapter/outbound/evaluator"
	"github.com/speclab/specgate/internal/adapter/outbound/fetch"
	"github.com/speclab/specgate/internal/adapter/outbound/genaieval"
	"github.com/speclab/specgate/internal/adapter/outbound/github"
	"github.com/speclab/specgate/internal/adapter/outbound/openapi"
	"github.com/speclab/specgate/internal/adapter/outbound/postman"
	"github.com/speclab/specgate/internal/adapter/outbound/ruleeval"
	"github.com/speclab/specgate/internal/domain"
	"github.com/speclab/specgate/internal/usecase"
)

// buildIngest wires the ingestion pipeline the same way the server does:
// fetcher, format normalizers and the advisory linter.
func buildIngest(cfg *configs.Config, logger *slog.Logger) *usecase.IngestSpecUseCase {
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	fetcher := fetch.NewFetcher(httpClient, github.NewClient(logger), logger)
	normalizers := map[domain.SourceFormat]usecase.SpecNormalizer{
		domain.FormatOpenAPI:    openapi.NewNormalizer(logger),
		domain.FormatCollection: postman.NewNormalizer(logger),
	}
	return usecase.NewIngestSpecUseCase(fetcher, normalizers, openapi.NewLinter(logger), logger)
}

// buildEvaluator selects the classification chain: the rule engine alone,
// or the external model with rule fallback when a key is configured.
func buildEvaluator(ctx context.Context, cfg *configs.Config, useModel bool, logger *slog.Logger) (usecase.CapabilityEvaluator, error) {
	rules := ruleeval.NewEvaluator(logger)
	if !useModel {
		return rules, nil
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn("Model classification requested but no API key is configured, using rules only")
		return rules, nil
	}
	model, err := genaieval.NewEvaluator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		return nil, fmt.Errorf("creating model evaluator: %w", err)
	}
	return evaluator.NewFallback(model, rules, cfg.ClassifyBatchSize, logger), nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
