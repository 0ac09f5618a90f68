package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/speclab/specgate/internal/domain"
)

// specURLPattern matches url assignments in documentation-page markup,
// e.g. `url: "/v2/swagger.json"` in a Swagger UI config block.
var specURLPattern = regexp.MustCompile(`url\s*[:=]\s*["']([^"']+)["']`)

// specKeywords mark a matched URL as plausibly pointing at a spec.
var specKeywords = []string{"swagger", "openapi", "api-docs", ".json", ".yaml"}

// discover extracts candidate spec addresses from a documentation page
// and probes them in order, followed by a fixed list of conventional
// paths. The first candidate that decodes to a mapping carrying a
// version-marker key wins.
func (f *Fetcher) discover(ctx context.Context, source, page string) (domain.SourceDocument, error) {
	log := f.logger.With(slog.String("source", source))

	parsed, err := url.Parse(source)
	if err != nil {
		return domain.SourceDocument{}, &domain.SpecNotFoundError{Source: source}
	}
	origin := parsed.Scheme + "://" + parsed.Host

	var candidates []string
	for _, match := range specURLPattern.FindAllStringSubmatch(page, -1) {
		if hasSpecKeyword(match[1]) {
			candidates = append(candidates, match[1])
		}
	}

	pathBase := strings.TrimRight(parsed.Path, "/")
	candidates = append(candidates,
		pathBase+"/v2/swagger.json",
		pathBase+"/v3/api-docs",
		pathBase+"/swagger.json",
		pathBase+"/openapi.json",
		"/v2/swagger.json",
		"/v3/api-docs",
		"/openapi.json",
		"/swagger.json",
		"/api-docs",
		"/openapi.yaml",
		"/swagger.yaml",
	)

	for _, candidate := range candidates {
		specURL := candidate
		switch {
		case strings.HasPrefix(candidate, "http"):
		case strings.HasPrefix(candidate, "/"):
			specURL = origin + candidate
		default:
			specURL = origin + "/" + candidate
		}

		log.Debug("Probing spec URL candidate", slog.String("url", specURL))
		raw, doc := f.probe(ctx, specURL)
		if doc != nil {
			log.Info("Discovered spec", slog.String("url", specURL))
			return domain.SourceDocument{Source: source, Raw: raw, Doc: doc}, nil
		}
	}

	return domain.SourceDocument{}, &domain.SpecNotFoundError{Source: source}
}

// probe fetches one candidate and accepts it only if the body decodes to
// a mapping carrying an "openapi" or "swagger" key.
func (f *Fetcher) probe(ctx context.Context, specURL string) ([]byte, map[string]any) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, specURL, nil)
	if err != nil {
		return nil, nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil
	}

	doc, ok := decodeDocument(body)
	if !ok {
		return nil, nil
	}
	if _, ok := doc["openapi"]; !ok {
		if _, ok := doc["swagger"]; !ok {
			return nil, nil
		}
	}
	return body, doc
}

func hasSpecKeyword(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, kw := range specKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
