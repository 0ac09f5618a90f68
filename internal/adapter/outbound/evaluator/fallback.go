// Package evaluator composes capability evaluators. The fallback
// combinator keeps an external strategy outage contained to one batch
// instead of failing the whole run.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/speclab/specgate/internal/domain"
	"github.com/speclab/specgate/internal/usecase"
)

// DefaultBatchSize is the batch granularity used when none is configured.
const DefaultBatchSize = 20

// Fallback splits the capability set into batches, runs the primary
// evaluator per batch and substitutes the fallback evaluator's records
// for exactly the batches where the primary fails. Successful batches
// are never redone. A nil primary sends everything to the fallback.
type Fallback struct {
	primary   usecase.CapabilityEvaluator
	fallback  usecase.CapabilityEvaluator
	batchSize int
	logger    *slog.Logger
}

func NewFallback(primary, fallback usecase.CapabilityEvaluator, batchSize int, logger *slog.Logger) *Fallback {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Fallback{
		primary:   primary,
		fallback:  fallback,
		batchSize: batchSize,
		logger:    logger.With("component", "fallback_evaluator"),
	}
}

// Evaluate classifies the capability set, preserving input order across
// batch boundaries.
func (f *Fallback) Evaluate(ctx context.Context, caps []domain.Capability, policy domain.Policy) ([]domain.Record, error) {
	if f.primary == nil {
		return f.fallback.Evaluate(ctx, caps, policy)
	}

	records := make([]domain.Record, 0, len(caps))
	for start := 0; start < len(caps); start += f.batchSize {
		end := start + f.batchSize
		if end > len(caps) {
			end = len(caps)
		}
		batch := caps[start:end]

		batchRecords, err := f.primary.Evaluate(ctx, batch, policy)
		if err == nil && len(batchRecords) != len(batch) {
			err = fmt.Errorf("evaluator returned %d records for %d capabilities", len(batchRecords), len(batch))
		}
		if err != nil {
			f.logger.Warn("Primary evaluator failed for batch, substituting fallback records.",
				slog.Int("batch_start", start),
				slog.Int("batch_len", len(batch)),
				slog.Any("error", err))
			batchRecords, err = f.fallback.Evaluate(ctx, batch, policy)
			if err != nil {
				return nil, fmt.Errorf("fallback evaluator failed: %w", err)
			}
		}
		records = append(records, batchRecords...)
	}
	return records, nil
}
