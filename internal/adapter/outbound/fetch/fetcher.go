// Package fetch retrieves raw specification documents from URLs or the
// local filesystem and decodes them into generic mappings. When an
// address serves an interactive documentation page instead of the spec
// itself, the fetcher falls back to spec-URL discovery.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/speclab/specgate/internal/adapter/outbound/github"
	"github.com/speclab/specgate/internal/domain"
)

// Fetcher loads spec documents over HTTP, from GitHub repositories or
// from disk.
type Fetcher struct {
	client *http.Client
	gh     *github.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. The client's timeout bounds every
// request, including discovery probes. A nil gh client rejects github://
// sources instead of fetching them.
func NewFetcher(client *http.Client, gh *github.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client: client,
		gh:     gh,
		logger: logger.With("component", "spec_fetcher"),
	}
}

// IsURL reports whether the source names a remote address rather than a
// local file path.
func (f *Fetcher) IsURL(source string) bool {
	if github.IsGitHubURL(source) {
		return true
	}
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// FetchURL retrieves a spec document from an address. The payload is
// decoded as JSON first and YAML second; anything that does not yield a
// mapping is treated as a documentation page and handed to discovery.
func (f *Fetcher) FetchURL(ctx context.Context, source string) (domain.SourceDocument, error) {
	log := f.logger.With(slog.String("source", source))

	if github.IsGitHubURL(source) {
		return f.fetchGitHub(ctx, source)
	}
	log.Info("Fetching spec from URL")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return domain.SourceDocument{}, fmt.Errorf("failed to create request for %s: %w", source, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.SourceDocument{}, fmt.Errorf("failed to fetch spec from URL %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.SourceDocument{}, fmt.Errorf("failed to fetch spec from URL %s: status %s", source, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SourceDocument{}, fmt.Errorf("failed to read response body from %s: %w", source, err)
	}
	log.Debug("Fetched spec payload",
		slog.Int("bytes", len(body)),
		slog.String("content_type", resp.Header.Get("Content-Type")))

	if doc, ok := decodeDocument(body); ok {
		return domain.SourceDocument{Source: source, Raw: body, Doc: doc}, nil
	}

	log.Info("Response is not a structured document, attempting spec URL discovery")
	return f.discover(ctx, source, string(body))
}

// fetchGitHub retrieves a spec file from a github:// source. Repository
// files are always complete documents, so there is no discovery fallback.
func (f *Fetcher) fetchGitHub(ctx context.Context, source string) (domain.SourceDocument, error) {
	if f.gh == nil {
		return domain.SourceDocument{}, fmt.Errorf("github:// sources are not configured: %s", source)
	}
	f.logger.Info("Fetching spec from GitHub", slog.String("source", source))

	raw, err := f.gh.FetchFile(ctx, source)
	if err != nil {
		return domain.SourceDocument{}, fmt.Errorf("failed to fetch spec from GitHub %s: %w", source, err)
	}
	doc, ok := decodeDocument(raw)
	if !ok {
		return domain.SourceDocument{}, fmt.Errorf("spec from %s does not contain a document object", source)
	}
	return domain.SourceDocument{Source: source, Raw: raw, Doc: doc}, nil
}

// LoadFile decodes a local document by file suffix. YAML suffixes decode
// as YAML, everything else as JSON.
func (f *Fetcher) LoadFile(path string) (domain.SourceDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.SourceDocument{}, fmt.Errorf("failed to read spec file %s: %w", path, err)
	}

	var decoded any
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &decoded)
	default:
		err = json.Unmarshal(raw, &decoded)
	}
	if err != nil {
		return domain.SourceDocument{}, fmt.Errorf("failed to parse spec file %s: %w", path, err)
	}

	doc, ok := decoded.(map[string]any)
	if !ok {
		return domain.SourceDocument{}, fmt.Errorf("spec file %s does not contain a document object", path)
	}
	return domain.SourceDocument{Source: path, Raw: raw, Doc: doc}, nil
}

// decodeDocument tries JSON then YAML and reports whether either produced
// a mapping.
func decodeDocument(raw []byte) (map[string]any, bool) {
	var fromJSON any
	if err := json.Unmarshal(raw, &fromJSON); err == nil {
		if doc, ok := fromJSON.(map[string]any); ok {
			return doc, true
		}
	}
	var fromYAML any
	if err := yaml.Unmarshal(raw, &fromYAML); err == nil {
		if doc, ok := fromYAML.(map[string]any); ok {
			return doc, true
		}
	}
	return nil, false
}
