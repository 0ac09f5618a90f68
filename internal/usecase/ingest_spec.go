package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/speclab/specgate/internal/domain"
)

// IngestSpecUseCase turns a source address into a canonical spec. It
// retrieves the raw document, routes it to the normalizer that
// understands its format, and runs advisory schema linting on the way
// through.
type IngestSpecUseCase struct {
	fetcher     SpecFetcher
	normalizers map[domain.SourceFormat]SpecNormalizer
	linter      SchemaLinter
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewIngestSpecUseCase creates a new IngestSpecUseCase.
// It requires a fetcher and a map of normalizers keyed by source format.
// The linter may be nil, which disables advisory linting.
func NewIngestSpecUseCase(
	fetcher SpecFetcher,
	normalizers map[domain.SourceFormat]SpecNormalizer,
	linter SchemaLinter,
	logger *slog.Logger,
) *IngestSpecUseCase {
	return &IngestSpecUseCase{
		fetcher:     fetcher,
		normalizers: normalizers,
		linter:      linter,
		logger:      logger.With("usecase", "IngestSpec"),
		tracer:      otel.Tracer("specgate/usecase"),
	}
}

// Execute ingests one source and returns the canonical spec together with
// the format that produced it. Every failure is reported as a
// *domain.IngestError so callers can map the whole stage to caller-error
// handling.
func (uc *IngestSpecUseCase) Execute(ctx context.Context, source string) (domain.Spec, domain.SourceFormat, error) {
	ctx, span := uc.tracer.Start(ctx, "IngestSpec", trace.WithAttributes(attribute.String("source", source)))
	defer span.End()

	log := uc.logger.With(slog.String("source", source))
	log.Info("Starting spec ingestion")

	// 1. Retrieve the raw document.
	var doc domain.SourceDocument
	var err error
	fromURL := uc.fetcher.IsURL(source)
	if fromURL {
		doc, err = uc.fetcher.FetchURL(ctx, source)
	} else {
		doc, err = uc.fetcher.LoadFile(source)
	}
	if err != nil {
		log.Error("Failed to retrieve source document", slog.Any("error", err))
		return domain.Spec{}, "", &domain.IngestError{Source: source, Err: err}
	}

	// 2. Pick the format. Remote documents always take the OpenAPI path:
	// discovery only ever follows OpenAPI/Swagger markers, and collection
	// exports travel as files rather than being served at API origins.
	// Local files route structurally, with an explicit marker winning over
	// collection heuristics.
	format := domain.FormatOpenAPI
	switch {
	case fromURL:
		if !hasOpenAPIMarker(doc.Doc) {
			log.Warn("Fetched document has no openapi/swagger marker, normalizing as OpenAPI anyway")
		}
	case hasOpenAPIMarker(doc.Doc):
	case isPostmanCollection(doc.Doc):
		format = domain.FormatCollection
	}

	// 3. Advisory lint for 3.x documents.
	if uc.linter != nil {
		if _, ok := doc.Doc["openapi"]; ok {
			uc.linter.Lint(ctx, doc.Raw)
		}
	}

	// 4. Normalize.
	normalizer, ok := uc.normalizers[format]
	if !ok {
		log.Error("No normalizer registered for source format", slog.String("format", string(format)))
		return domain.Spec{}, "", &domain.IngestError{
			Source: source,
			Err:    fmt.Errorf("no normalizer registered for source format %s", format),
		}
	}

	spec, err := normalizer.Normalize(ctx, doc.Doc)
	if err != nil {
		log.Error("Normalization failed", slog.Any("error", err))
		return domain.Spec{}, "", &domain.IngestError{Source: source, Err: err}
	}

	span.SetAttributes(
		attribute.String("format", string(format)),
		attribute.Int("endpoints", len(spec.Endpoints)),
	)
	log.Info("Spec ingested successfully.",
		slog.String("format", string(format)),
		slog.String("title", spec.Title),
		slog.Int("endpoint_count", len(spec.Endpoints)))
	return spec, format, nil
}

// isPostmanCollection detects a collection export structurally: an info
// block carrying a _postman_id, or items at the top level.
func isPostmanCollection(doc map[string]any) bool {
	if info, ok := doc["info"].(map[string]any); ok {
		if _, ok := info["_postman_id"]; ok {
			return true
		}
	}
	_, ok := doc["item"]
	return ok
}

func hasOpenAPIMarker(doc map[string]any) bool {
	_, hasOpenAPI := doc["openapi"]
	_, hasSwagger := doc["swagger"]
	return hasOpenAPI || hasSwagger
}
