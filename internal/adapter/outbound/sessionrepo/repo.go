// Package sessionrepo persists ingestion sessions as JSON files, one
// file per session, with a write-through cache in front.
package sessionrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/speclab/specgate/internal/domain"
	"github.com/speclab/specgate/internal/usecase"
)

// FileSessionRepository implements usecase.SessionRepository on the local
// filesystem so sessions survive restarts.
type FileSessionRepository struct {
	mu     sync.RWMutex
	dir    string
	cache  map[string]domain.Session
	logger *slog.Logger
}

// NewFileSessionRepository creates the repository, creating the session
// directory if needed.
func NewFileSessionRepository(dir string, logger *slog.Logger) (*FileSessionRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}
	return &FileSessionRepository{
		dir:    dir,
		cache:  make(map[string]domain.Session),
		logger: logger.With("component", "session_repo"),
	}, nil
}

// Save writes the session to disk atomically and refreshes the cache.
// Saving an existing ID replaces the stored session.
func (r *FileSessionRepository) Save(ctx context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == "" {
		return errors.New("save failed: session has no ID")
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}

	path := r.path(session.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session %s: %w", session.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", session.ID, err)
	}

	r.cache[session.ID] = session
	r.logger.Debug("Saved session", slog.String("session_id", session.ID))
	return nil
}

// Find retrieves a session by ID, reading through to disk on a cache
// miss.
func (r *FileSessionRepository) Find(ctx context.Context, id string) (domain.Session, error) {
	// IDs arrive from URL paths; refuse anything that could escape the
	// session directory.
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return domain.Session{}, usecase.ErrSessionNotFound
	}

	r.mu.RLock()
	session, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return session, nil
	}

	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn("Session not found", slog.String("session_id", id))
			return domain.Session{}, usecase.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	r.mu.Lock()
	r.cache[id] = session
	r.mu.Unlock()

	r.logger.Debug("Loaded session from disk", slog.String("session_id", id))
	return session, nil
}

// List returns every stored session, newest first. Files that no longer
// decode are skipped so one corrupt session does not hide the rest.
func (r *FileSessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session directory %s: %w", r.dir, err)
	}

	sessions := make([]domain.Session, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		session, err := r.Find(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			r.logger.Warn("Skipping unreadable session file",
				slog.String("file", name), slog.Any("error", err))
			continue
		}
		sessions = append(sessions, session)
	}

	sortSessions(sessions)
	return sessions, nil
}

// sortSessions orders newest first, with the ID as tie-breaker so the
// order is stable.
func sortSessions(sessions []domain.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}

func (r *FileSessionRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}
