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

// ClassifyCapabilitiesUseCase re-runs classification for an existing
// session under a caller-chosen policy, optionally through the external
// model evaluator, and persists the new run on the session.
type ClassifyCapabilitiesUseCase struct {
	rules      CapabilityEvaluator
	model      CapabilityEvaluator
	repository SessionRepository
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewClassifyCapabilitiesUseCase creates a new
// ClassifyCapabilitiesUseCase. The model evaluator may be nil when no
// model credentials are configured; requests asking for it then degrade
// to the rule engine.
func NewClassifyCapabilitiesUseCase(
	rules CapabilityEvaluator,
	model CapabilityEvaluator,
	repository SessionRepository,
	logger *slog.Logger,
) *ClassifyCapabilitiesUseCase {
	return &ClassifyCapabilitiesUseCase{
		rules:      rules,
		model:      model,
		repository: repository,
		logger:     logger.With("usecase", "ClassifyCapabilities"),
		tracer:     otel.Tracer("specgate/usecase"),
	}
}

// Execute classifies the session's capabilities and returns the completed
// run. The run also replaces the one stored on the session.
func (uc *ClassifyCapabilitiesUseCase) Execute(ctx context.Context, sessionID string, policy domain.Policy, useModel bool) (domain.PolicyRun, error) {
	ctx, span := uc.tracer.Start(ctx, "ClassifyCapabilities", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("policy", string(policy)),
		attribute.Bool("use_model", useModel),
	))
	defer span.End()

	log := uc.logger.With(slog.String("session_id", sessionID), slog.String("policy", string(policy)))
	log.Info("Starting classification run")

	session, err := uc.repository.Find(ctx, sessionID)
	if err != nil {
		log.Warn("Session lookup failed", slog.Any("error", err))
		return domain.PolicyRun{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if len(session.Capabilities) == 0 {
		return domain.PolicyRun{}, fmt.Errorf("session %s: %w", sessionID, ErrNoCapabilities)
	}

	evaluator := uc.rules
	if useModel {
		if uc.model != nil {
			evaluator = uc.model
		} else {
			log.Warn("Model classification requested but no model evaluator is configured, falling back to rules")
		}
	}

	records, err := evaluator.Evaluate(ctx, session.Capabilities, policy)
	if err != nil {
		log.Error("Classification failed", slog.Any("error", err))
		return domain.PolicyRun{}, fmt.Errorf("classification failed: %w", err)
	}

	run := domain.PolicyRun{
		Policy:  policy,
		Summary: domain.Summarize(records),
		Records: records,
	}
	session.Run = &run
	if err := uc.repository.Save(ctx, session); err != nil {
		log.Error("Failed to save session", slog.Any("error", err))
		return domain.PolicyRun{}, fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}

	log.Info("Classification run complete.",
		slog.Int("total", run.Summary.Total),
		slog.Int("exposable", run.Summary.Exposable),
		slog.Int("blocked", run.Summary.Blocked),
		slog.Int("needs_review", run.Summary.NeedsReview))
	return run, nil
}
