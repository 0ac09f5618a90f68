// Package httpapi exposes the ingestion and classification pipeline over a
// small JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/speclab/specgate/internal/domain"
	"github.com/speclab/specgate/internal/usecase"
)

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	createSession *usecase.CreateSessionUseCase
	classify      *usecase.ClassifyCapabilitiesUseCase
	confirm       *usecase.ConfirmExposureUseCase
	sessions      usecase.SessionRepository
	logger        *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(
	createSession *usecase.CreateSessionUseCase,
	classify *usecase.ClassifyCapabilitiesUseCase,
	confirm *usecase.ConfirmExposureUseCase,
	sessions usecase.SessionRepository,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		createSession: createSession,
		classify:      classify,
		confirm:       confirm,
		sessions:      sessions,
		logger:        logger.With("component", "httpapi_handler"),
	}
}

// RegisterRoutes sets up the HTTP routes for the pipeline API.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ingest", h.handleIngest)
	mux.HandleFunc("POST /api/ingest/upload", h.handleIngestUpload)
	mux.HandleFunc("GET /api/sessions", h.handleListSessions)
	mux.HandleFunc("GET /api/session/{id}", h.handleGetSession)
	mux.HandleFunc("POST /api/discover", h.handleDiscover)
	mux.HandleFunc("POST /api/discover/confirm", h.handleConfirm)
}

// IngestRequest is the JSON body for POST /api/ingest.
type IngestRequest struct {
	Source     string `json:"source"`
	SourceType string `json:"source_type"`
}

// DiscoverRequest is the JSON body for POST /api/discover.
type DiscoverRequest struct {
	SessionID string `json:"session_id"`
	Policy    string `json:"policy"`
	UseModel  bool   `json:"use_model"`
}

// ConfirmRequest is the JSON body for POST /api/discover/confirm.
type ConfirmRequest struct {
	SessionID    string   `json:"session_id"`
	AllowedTools []string `json:"allowed_tools"`
}

// specPayload is the spec header without its endpoint list, which travels
// as a sibling field.
type specPayload struct {
	Title       string              `json:"title"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	BaseURL     string              `json:"base_url"`
	Tags        []string            `json:"tags"`
	AuthSchemes []domain.AuthScheme `json:"auth_schemes"`
}

// sessionPayload is the response shape shared by ingest and session
// lookup.
type sessionPayload struct {
	SessionID       string              `json:"session_id"`
	SourceType      domain.SourceFormat `json:"source_type"`
	Spec            specPayload         `json:"spec"`
	Endpoints       []domain.Endpoint   `json:"endpoints"`
	Capabilities    []domain.Capability `json:"capabilities"`
	Classifications *domain.PolicyRun   `json:"classifications"`
}

func toSessionPayload(session domain.Session) sessionPayload {
	p := sessionPayload{
		SessionID:  session.ID,
		SourceType: session.SourceType,
		Spec: specPayload{
			Title:       session.Spec.Title,
			Version:     session.Spec.Version,
			Description: session.Spec.Description,
			BaseURL:     session.Spec.BaseURL,
			Tags:        session.Spec.Tags,
			AuthSchemes: session.Spec.AuthSchemes,
		},
		Endpoints:       session.Spec.Endpoints,
		Capabilities:    session.Capabilities,
		Classifications: session.Run,
	}
	// Clients iterate these, so they are always arrays.
	if p.Spec.Tags == nil {
		p.Spec.Tags = []string{}
	}
	if p.Spec.AuthSchemes == nil {
		p.Spec.AuthSchemes = []domain.AuthScheme{}
	}
	if p.Endpoints == nil {
		p.Endpoints = []domain.Endpoint{}
	}
	if p.Capabilities == nil {
		p.Capabilities = []domain.Capability{}
	}
	return p
}

// handleIngest implements POST /api/ingest.
func (h *Handlers) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode ingest request body", slog.Any("error", err))
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Source == "" {
		h.writeError(w, http.StatusBadRequest, "Missing 'source' field in request body")
		return
	}
	if !validSourceType(req.SourceType) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown source_type: %s", req.SourceType))
		return
	}

	h.logger.Info("Received ingest request", slog.String("source", req.Source))
	session, err := h.createSession.Execute(r.Context(), req.Source)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSessionPayload(session))
}

// handleIngestUpload implements POST /api/ingest/upload. The uploaded
// document is staged as a temporary file so the regular local-file path
// handles decoding and format dispatch.
func (h *Handlers) handleIngestUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Warn("Failed to read upload", slog.Any("error", err))
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid upload: %v", err))
		return
	}
	defer file.Close()

	sourceType := r.FormValue("source_type")
	if !validSourceType(sourceType) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown source_type: %s", sourceType))
		return
	}

	// Keep the YAML suffix so the loader decodes the staged file the same
	// way it would the original.
	suffix := ".json"
	if strings.HasSuffix(header.Filename, ".yaml") || strings.HasSuffix(header.Filename, ".yml") {
		suffix = ".yaml"
	}

	tmp, err := os.CreateTemp("", "specgate-upload-*"+suffix)
	if err != nil {
		h.logger.Error("Failed to stage upload", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to stage uploaded file")
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		h.logger.Error("Failed to write staged upload", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to stage uploaded file")
		return
	}
	if err := tmp.Close(); err != nil {
		h.logger.Error("Failed to close staged upload", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to stage uploaded file")
		return
	}

	h.logger.Info("Received spec upload",
		slog.String("filename", header.Filename),
		slog.Int64("bytes", header.Size))
	session, err := h.createSession.Execute(r.Context(), tmp.Name())
	if err != nil {
		h.writeIngestError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSessionPayload(session))
}

// sessionSummary is one row of the GET /api/sessions listing.
type sessionSummary struct {
	SessionID    string              `json:"session_id"`
	Source       string              `json:"source"`
	SourceType   domain.SourceFormat `json:"source_type"`
	CreatedAt    time.Time           `json:"created_at"`
	Title        string              `json:"title"`
	Capabilities int                 `json:"capabilities"`
	Classified   bool                `json:"classified"`
}

// handleListSessions implements GET /api/sessions.
func (h *Handlers) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list sessions", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	summaries := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, sessionSummary{
			SessionID:    s.ID,
			Source:       s.Source,
			SourceType:   s.SourceType,
			CreatedAt:    s.CreatedAt,
			Title:        s.Spec.Title,
			Capabilities: len(s.Capabilities),
			Classified:   s.Run != nil,
		})
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

// handleGetSession implements GET /api/session/{id}.
func (h *Handlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, err := h.sessions.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrSessionNotFound) {
			h.writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("Failed to load session", slog.String("session_id", id), slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	h.writeJSON(w, http.StatusOK, toSessionPayload(session))
}

// handleDiscover implements POST /api/discover.
func (h *Handlers) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode discover request body", slog.Any("error", err))
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, "Missing 'session_id' field in request body")
		return
	}
	if req.Policy == "" {
		req.Policy = string(domain.PolicyModerate)
	}
	policy, err := domain.ParsePolicy(req.Policy)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.classify.Execute(r.Context(), req.SessionID, policy, req.UseModel)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrSessionNotFound):
			h.writeError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, usecase.ErrNoCapabilities):
			h.writeError(w, http.StatusBadRequest, "No capabilities to classify. Run ingest first.")
		default:
			h.logger.Error("Classification failed", slog.String("session_id", req.SessionID), slog.Any("error", err))
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// handleConfirm implements POST /api/discover/confirm.
func (h *Handlers) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode confirm request body", slog.Any("error", err))
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, "Missing 'session_id' field in request body")
		return
	}

	count, err := h.confirm.Execute(r.Context(), req.SessionID, req.AllowedTools)
	if err != nil {
		if errors.Is(err, usecase.ErrSessionNotFound) {
			h.writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("Confirm failed", slog.String("session_id", req.SessionID), slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "allowed_count": count})
}

func validSourceType(sourceType string) bool {
	switch sourceType {
	case "", "openapi", "postman":
		// Format routing is structural; the field only rejects unknown
		// names.
		return true
	}
	return false
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", slog.Any("error", err))
	}
}

// writeError sends an error payload in the {"detail": ...} envelope.
func (h *Handlers) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}

func (h *Handlers) writeIngestError(w http.ResponseWriter, err error) {
	var ingestErr *domain.IngestError
	if errors.As(err, &ingestErr) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Ingestion failed: %v", ingestErr.Err))
		return
	}
	h.logger.Error("Ingest failed", slog.Any("error", err))
	h.writeError(w, http.StatusInternalServerError, err.Error())
}
