package openapi

import (
	"context"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi3"
)

// Linter adapts Lint to the ingestion seam.
type Linter struct {
	logger *slog.Logger
}

// NewLinter creates a Linter.
func NewLinter(logger *slog.Logger) *Linter {
	return &Linter{logger: logger}
}

// Lint implements usecase.SchemaLinter.
func (l *Linter) Lint(ctx context.Context, raw []byte) {
	Lint(ctx, raw, l.logger)
}

// Lint runs kin-openapi validation over the raw document bytes purely for
// diagnostics. Normalization stays lenient: findings are logged at warn
// level and never fail ingestion. Only meaningful for 3.x documents;
// callers should skip it for Swagger 2.x input.
func Lint(ctx context.Context, raw []byte, logger *slog.Logger) {
	log := logger.With("component", "openapi_lint")

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		log.Warn("Document did not load as OpenAPI 3.x, skipping validation", slog.Any("error", err))
		return
	}
	if validateErr := doc.Validate(ctx); validateErr != nil {
		log.Warn("OpenAPI schema validation failed", slog.Any("validation_error", validateErr))
	}
}
