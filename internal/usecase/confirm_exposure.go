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

// ConfirmExposureUseCase narrows a session to a reviewed allow-list of
// capability names. Both the capabilities and the spec endpoints shrink,
// so every later stage only sees the approved surface.
type ConfirmExposureUseCase struct {
	repository SessionRepository
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewConfirmExposureUseCase creates a new ConfirmExposureUseCase.
func NewConfirmExposureUseCase(repository SessionRepository, logger *slog.Logger) *ConfirmExposureUseCase {
	return &ConfirmExposureUseCase{
		repository: repository,
		logger:     logger.With("usecase", "ConfirmExposure"),
		tracer:     otel.Tracer("specgate/usecase"),
	}
}

// Execute keeps only the named capabilities on the session and returns
// how many survived. Names that match nothing are ignored rather than
// rejected.
func (uc *ConfirmExposureUseCase) Execute(ctx context.Context, sessionID string, allowed []string) (int, error) {
	ctx, span := uc.tracer.Start(ctx, "ConfirmExposure", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int("allowed", len(allowed)),
	))
	defer span.End()

	log := uc.logger.With(slog.String("session_id", sessionID))

	session, err := uc.repository.Find(ctx, sessionID)
	if err != nil {
		log.Warn("Session lookup failed", slog.Any("error", err))
		return 0, fmt.Errorf("session %s: %w", sessionID, err)
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}

	kept := make([]domain.Capability, 0, len(session.Capabilities))
	for _, c := range session.Capabilities {
		if _, ok := allowedSet[c.Name]; ok {
			kept = append(kept, c)
		}
	}
	session.Capabilities = kept

	// Endpoints narrow by the same derived name the capabilities carry, so
	// the two views cannot drift apart.
	session.Spec = session.Spec.FilterEndpoints(func(ep domain.Endpoint) bool {
		_, ok := allowedSet[domain.CapabilityName(ep)]
		return ok
	})

	if err := uc.repository.Save(ctx, session); err != nil {
		log.Error("Failed to save session", slog.Any("error", err))
		return 0, fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}

	log.Info("Session narrowed to confirmed capabilities.",
		slog.Int("allowed_count", len(kept)),
		slog.Int("endpoint_count", len(session.Spec.Endpoints)))
	return len(kept), nil
}
