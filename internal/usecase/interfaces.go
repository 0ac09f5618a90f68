package usecase

import (
	"context"
	"errors"

	"github.com/speclab/specgate/internal/domain"

	// Import mcp types needed for the adapter interface
	"github.com/mark3labs/mcp-go/mcp"
	// Import server type for the handler function
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

// Standard errors returned by use cases and adapters.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoCapabilities  = errors.New("no capabilities to classify")
)

// --- Ingestion Related ---

// SpecFetcher retrieves raw spec documents from an address or a local
// path.
type SpecFetcher interface {
	// IsURL reports whether the source names an address this fetcher
	// retrieves remotely; everything else is treated as a local path.
	IsURL(source string) bool

	// FetchURL retrieves and decodes a document from an HTTP address,
	// performing spec-URL discovery when the address serves a
	// documentation page instead of the spec itself.
	FetchURL(ctx context.Context, source string) (domain.SourceDocument, error)

	// LoadFile reads and decodes a local document by file suffix.
	LoadFile(path string) (domain.SourceDocument, error)
}

// SpecNormalizer converts one decoded document format into the canonical
// spec model.
type SpecNormalizer interface {
	Normalize(ctx context.Context, doc map[string]any) (domain.Spec, error)
}

// SchemaLinter reports advisory findings for a raw spec document.
// Linting is diagnostic only and must never fail ingestion.
type SchemaLinter interface {
	Lint(ctx context.Context, raw []byte)
}

// --- Classification Related ---

// CapabilityEvaluator classifies a capability set under a policy.
// Implementations are the local rule engine, external model-driven
// strategies, and combinators over both. The returned records must
// preserve input order, one record per capability.
type CapabilityEvaluator interface {
	Evaluate(ctx context.Context, caps []domain.Capability, policy domain.Policy) ([]domain.Record, error)
}

// --- Session Related ---

// SessionRepository stores ingestion sessions.
// Implementations could range from in-memory stores to persistent databases.
type SessionRepository interface {
	// Save stores or replaces a session under its ID.
	Save(ctx context.Context, session domain.Session) error

	// Find retrieves a session by ID, returning ErrSessionNotFound for
	// unknown IDs.
	Find(ctx context.Context, id string) (domain.Session, error)

	// List returns all stored sessions, newest first.
	List(ctx context.Context) ([]domain.Session, error)
}

// --- MCP Server Abstraction ---

// MCPServerAdapter defines the interface required by the preview use case
// to interact with the underlying MCP server (like mcp-go).
// This avoids direct dependency on a specific server implementation in the use case.
type MCPServerAdapter interface {
	// AddTool registers a tool and its handler with the server.
	// The handlerFunc signature must match the expected signature of the specific
	// MCP server library being adapted.
	AddTool(tool mcp.Tool, handlerFunc mcpGoServer.ToolHandlerFunc)
}
