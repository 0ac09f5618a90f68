// Package postman converts Postman Collection v2.1 documents into the
// canonical spec model.
package postman

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/speclab/specgate/internal/domain"
)

// Normalizer walks a decoded collection's folder tree and emits one
// endpoint per request node.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With("component", "postman_normalizer")}
}

// Normalize converts a decoded collection document into a domain.Spec.
// Folder names become tags on their direct children only; deeper nesting
// replaces the tag rather than accumulating a path.
func (n *Normalizer) Normalize(ctx context.Context, doc map[string]any) (domain.Spec, error) {
	info := asMap(doc["info"])
	items, _ := doc["item"].([]any)
	endpoints := n.walkItems(items, "")

	spec := domain.Spec{
		Title:       getString(info, "name", "Untitled Collection"),
		Version:     getString(info, "version", ""),
		Description: getString(info, "description", ""),
		BaseURL:     collectionBaseURL(items),
		AuthSchemes: []domain.AuthScheme{},
		Endpoints:   endpoints,
		Tags:        domain.CollectTags(endpoints),
		RawMeta:     map[string]any{"postman_id": getString(info, "_postman_id", "")},
	}

	n.logger.Info("Normalized Postman collection.",
		slog.String("title", spec.Title),
		slog.Int("endpoints", len(spec.Endpoints)))
	return spec, nil
}

// walkItems recurses through folders and requests. A node carrying an
// "item" key is a folder, everything else is treated as a request.
func (n *Normalizer) walkItems(items []any, folderTag string) []domain.Endpoint {
	endpoints := make([]domain.Endpoint, 0, len(items))
	for _, entry := range items {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if _, isFolder := item["item"]; isFolder {
			children, _ := item["item"].([]any)
			endpoints = append(endpoints, n.walkItems(children, getString(item, "name", ""))...)
			continue
		}
		endpoints = append(endpoints, n.requestEndpoint(item, folderTag))
	}
	return endpoints
}

func (n *Normalizer) requestEndpoint(item map[string]any, folderTag string) domain.Endpoint {
	req := asMap(item["request"])

	parsed := domain.ParseMethod(getString(req, "method", "GET"))
	if !parsed.Recognized {
		n.logger.Warn("Unrecognized request method, assuming GET.",
			slog.String("method", parsed.Original),
			slog.String("request", getString(item, "name", "")))
	}

	_, path := requestURL(req)

	var tags []string
	if folderTag != "" {
		tags = []string{folderTag}
	}

	return domain.Endpoint{
		Method:      parsed.Method,
		Path:        path,
		Summary:     getString(item, "name", ""),
		Description: getString(req, "description", ""),
		Tags:        tags,
		Parameters:  requestParams(req),
		RequestBody: map[string]any{},
		Responses:   []domain.ResponseSchema{},
	}
}

// requestURL decomposes a request URL into (base, path). A plain string
// URL keeps the whole value as the path with no base address.
func requestURL(req map[string]any) (string, string) {
	switch url := req["url"].(type) {
	case string:
		return "", url
	case map[string]any:
		host := strings.Join(toStringSlice(url["host"]), ".")
		path := "/" + strings.Join(toStringSlice(url["path"]), "/")
		if host == "" {
			return "", path
		}
		return getString(url, "protocol", "https") + "://" + host, path
	default:
		return "", "/"
	}
}

// requestParams collects parameters from the query string, the headers
// and the raw JSON body, in that order. Content negotiation headers
// describe the recorded request, not the API, so they are skipped.
func requestParams(req map[string]any) []domain.Parameter {
	params := []domain.Parameter{}

	if url, ok := req["url"].(map[string]any); ok {
		query, _ := url["query"].([]any)
		for _, entry := range query {
			q, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			params = append(params, domain.Parameter{
				Name:        getString(q, "key", ""),
				Location:    domain.LocationQuery,
				Description: getString(q, "description", ""),
				Required:    !getBool(q, "disabled"),
				Type:        "string",
			})
		}
	}

	headers, _ := req["header"].([]any)
	for _, entry := range headers {
		h, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		key := getString(h, "key", "")
		if lower := strings.ToLower(key); lower == "content-type" || lower == "accept" {
			continue
		}
		params = append(params, domain.Parameter{
			Name:        key,
			Location:    domain.LocationHeader,
			Description: getString(h, "description", ""),
			Required:    true,
			Type:        "string",
		})
	}

	return append(params, bodyParams(asMap(req["body"]))...)
}

// bodyParams turns a raw JSON object body into one BODY parameter per
// top-level field. Non-object bodies and unparseable payloads contribute
// nothing.
func bodyParams(body map[string]any) []domain.Parameter {
	if getString(body, "mode", "") != "raw" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(getString(body, "raw", "{}")), &decoded); err != nil {
		return nil
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]domain.Parameter, 0, len(names))
	for _, name := range names {
		params = append(params, domain.Parameter{
			Name:     name,
			Location: domain.LocationBody,
			Required: true,
			Type:     jsonTypeName(fields[name]),
		})
	}
	return params
}

// jsonTypeName names a decoded JSON value's type. Arrays and nested
// objects both collapse to a generic object type.
func jsonTypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return "object"
	}
}

// collectionBaseURL takes the base address from the first request in the
// collection, descending one folder level when the top level starts with
// a non-empty folder.
func collectionBaseURL(items []any) string {
	if len(items) == 0 {
		return ""
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return ""
	}
	if children, _ := first["item"].([]any); len(children) > 0 {
		if child, ok := children[0].(map[string]any); ok {
			first = child
		}
	}
	base, _ := requestURL(asMap(first["request"]))
	return base
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func getString(m map[string]any, key, fallback string) string {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

func getBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func toStringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
