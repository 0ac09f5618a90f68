package sessionrepo

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/speclab/specgate/internal/domain"
	"github.com/speclab/specgate/internal/usecase"
)

// MemorySessionRepository implements usecase.SessionRepository in process
// memory. Sessions are lost on restart; it backs ephemeral deployments
// where an empty session directory is configured.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	logger   *slog.Logger
}

// NewMemorySessionRepository creates a new in-memory repository.
func NewMemorySessionRepository(logger *slog.Logger) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]domain.Session),
		logger:   logger.With("component", "memory_session_repo"),
	}
}

// Save stores or replaces the session under its ID.
func (r *MemorySessionRepository) Save(ctx context.Context, session domain.Session) error {
	if session.ID == "" {
		return errors.New("save failed: session has no ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	r.logger.Debug("Saved session",
		slog.String("session_id", session.ID),
		slog.Int("total_sessions", len(r.sessions)))
	return nil
}

// Find retrieves a session by ID.
func (r *MemorySessionRepository) Find(ctx context.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		r.logger.Warn("Session not found", slog.String("session_id", id))
		return domain.Session{}, usecase.ErrSessionNotFound
	}
	return session, nil
}

// List returns every stored session, newest first.
func (r *MemorySessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	r.mu.RLock()
	sessions := make([]domain.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.mu.RUnlock()

	sortSessions(sessions)
	return sessions, nil
}
