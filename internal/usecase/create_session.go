package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/speclab/specgate/internal/domain"
)

// CreateSessionUseCase runs the first pipeline stage end to end: ingest a
// source, derive its raw capabilities, classify them under the moderate
// policy, and persist everything as a new session.
type CreateSessionUseCase struct {
	ingest     *IngestSpecUseCase
	rules      CapabilityEvaluator
	repository SessionRepository
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewCreateSessionUseCase creates a new CreateSessionUseCase. The
// evaluator must be the local rule engine: the initial classification is
// always rules-only so session creation never waits on an external model.
func NewCreateSessionUseCase(
	ingest *IngestSpecUseCase,
	rules CapabilityEvaluator,
	repository SessionRepository,
	logger *slog.Logger,
) *CreateSessionUseCase {
	return &CreateSessionUseCase{
		ingest:     ingest,
		rules:      rules,
		repository: repository,
		logger:     logger.With("usecase", "CreateSession"),
		tracer:     otel.Tracer("specgate/usecase"),
	}
}

// Execute ingests the source and returns the newly persisted session.
func (uc *CreateSessionUseCase) Execute(ctx context.Context, source string) (domain.Session, error) {
	ctx, span := uc.tracer.Start(ctx, "CreateSession", trace.WithAttributes(attribute.String("source", source)))
	defer span.End()

	log := uc.logger.With(slog.String("source", source))

	spec, format, err := uc.ingest.Execute(ctx, source)
	if err != nil {
		return domain.Session{}, err
	}

	caps := domain.DeriveCapabilities(spec)

	records, err := uc.rules.Evaluate(ctx, caps, domain.PolicyModerate)
	if err != nil {
		log.Error("Initial classification failed", slog.Any("error", err))
		return domain.Session{}, fmt.Errorf("initial classification failed: %w", err)
	}
	run := domain.PolicyRun{
		Policy:  domain.PolicyModerate,
		Summary: domain.Summarize(records),
		Records: records,
	}

	session := domain.Session{
		ID:           newSessionID(),
		Source:       source,
		SourceType:   format,
		CreatedAt:    time.Now().UTC(),
		Spec:         spec,
		Capabilities: caps,
		Run:          &run,
	}
	if err := uc.repository.Save(ctx, session); err != nil {
		log.Error("Failed to save session", slog.Any("error", err))
		return domain.Session{}, fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}

	span.SetAttributes(attribute.String("session_id", session.ID))
	log.Info("Session created.",
		slog.String("session_id", session.ID),
		slog.Int("capability_count", len(caps)))
	return session, nil
}

// newSessionID returns a short random session identifier. Eight hex
// characters keep IDs easy to paste while staying unique enough for a
// single deployment's session store.
func newSessionID() string {
	return uuid.NewString()[:8]
}
