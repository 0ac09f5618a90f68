package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/speclab/specgate/internal/domain"
)

// Normalizer turns a decoded OpenAPI 3.x or Swagger 2.x document into the
// canonical spec model.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a new OpenAPI Normalizer.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With("component", "openapi_normalizer")}
}

// Normalize extracts the canonical spec from an already decoded document.
// Operations under unrecognized method keys are skipped; everything else
// is extracted best-effort.
func (n *Normalizer) Normalize(ctx context.Context, doc map[string]any) (domain.Spec, error) {
	info := asMap(doc["info"])
	log := n.logger.With(slog.String("title", getString(info, "title", "")))
	log.Debug("Normalizing OpenAPI document", slog.String("version", getString(info, "version", "")))

	r := resolver{doc: doc}

	baseURL := n.baseURL(doc)
	authSchemes := n.extractAuthSchemes(doc)
	globalSecurity, _ := doc["security"].([]any)

	endpoints := make([]domain.Endpoint, 0)
	paths := asMap(doc["paths"])
	for _, pathStr := range sortedKeys(paths) {
		pathItem, ok := paths[pathStr].(map[string]any)
		if !ok {
			continue
		}
		shared, _ := pathItem["parameters"].([]any)

		for _, method := range domain.Methods {
			op, ok := pathItem[strings.ToLower(string(method))].(map[string]any)
			if !ok || len(op) == 0 {
				continue
			}

			rawParams := make([]any, 0, len(shared))
			rawParams = append(rawParams, shared...)
			if opParams, ok := op["parameters"].([]any); ok {
				rawParams = append(rawParams, opParams...)
			}
			legacyBody, rawParams := splitLegacyBody(r, rawParams)
			params := n.parseParams(r, rawParams)

			bodySchema, bodyParams := n.parseRequestBody(r, asMap(op["requestBody"]))
			if len(legacyBody) > 0 {
				bodySchema = r.Flatten(legacyBody)
				bodyParams = n.shedBodyParams(r, bodySchema)
			}
			params = append(params, bodyParams...)

			responses := n.parseResponses(r, asMap(op["responses"]))

			// Operation-level security overrides the document default,
			// including an explicit empty list.
			opSecurity := globalSecurity
			if declared, ok := op["security"]; ok {
				opSecurity, _ = declared.([]any)
			}

			endpoints = append(endpoints, domain.Endpoint{
				Method:      method,
				Path:        pathStr,
				OperationID: getString(op, "operationId", ""),
				Summary:     getString(op, "summary", ""),
				Description: getString(op, "description", ""),
				Tags:        toStringSlice(op["tags"]),
				Parameters:  params,
				RequestBody: bodySchema,
				Responses:   responses,
				AuthSchemes: securityNames(opSecurity),
				Deprecated:  getBool(op, "deprecated"),
			})
		}
	}

	marker := doc["openapi"]
	if marker == nil {
		marker = doc["swagger"]
	}
	if marker == nil {
		marker = ""
	}

	spec := domain.Spec{
		Title:       getString(info, "title", "Untitled API"),
		Version:     getString(info, "version", ""),
		Description: getString(info, "description", ""),
		BaseURL:     baseURL,
		AuthSchemes: authSchemes,
		Endpoints:   endpoints,
		Tags:        domain.CollectTags(endpoints),
		RawMeta:     map[string]any{"openapi": marker},
	}
	log.Debug("Normalized OpenAPI document", slog.Int("endpoint_count", len(endpoints)))
	return spec, nil
}

// baseURL prefers the first declared server URL and falls back to the
// legacy scheme/host/basePath trio, defaulting the scheme to https.
func (n *Normalizer) baseURL(doc map[string]any) string {
	if servers, ok := doc["servers"].([]any); ok && len(servers) > 0 {
		if srv, ok := servers[0].(map[string]any); ok {
			return getString(srv, "url", "")
		}
		return ""
	}
	host := getString(doc, "host", "")
	if host == "" {
		return ""
	}
	scheme := "https"
	if schemes, ok := doc["schemes"].([]any); ok && len(schemes) > 0 {
		if s, ok := schemes[0].(string); ok && s != "" {
			scheme = s
		}
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, getString(doc, "basePath", ""))
}

// extractAuthSchemes reads components/securitySchemes (OAS3) or the legacy
// securityDefinitions container (Swagger 2), one AuthScheme per declared
// name whether or not any operation references it.
func (n *Normalizer) extractAuthSchemes(doc map[string]any) []domain.AuthScheme {
	defs := asMap(asMap(doc["components"])["securitySchemes"])
	if len(defs) == 0 {
		defs = asMap(doc["securityDefinitions"])
	}
	schemes := make([]domain.AuthScheme, 0, len(defs))
	for _, name := range sortedKeys(defs) {
		defn := asMap(defs[name])
		schemes = append(schemes, domain.AuthScheme{
			Name:       name,
			Type:       getString(defn, "type", ""),
			Location:   getString(defn, "in", ""),
			HeaderName: getString(defn, "name", ""),
			Flows:      asMap(defn["flows"]),
		})
	}
	return schemes
}

// parseParams resolves declared operation parameters. Each parameter may
// itself be a $ref, and its schema may be another one.
func (n *Normalizer) parseParams(r resolver, raw []any) []domain.Parameter {
	params := make([]domain.Parameter, 0, len(raw))
	for _, entry := range raw {
		p, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if ref, ok := p["$ref"].(string); ok {
			p = r.Resolve(ref)
		}
		schema := asMap(p["schema"])
		if ref, ok := schema["$ref"].(string); ok {
			schema = r.Resolve(ref)
		}

		loc := domain.ParseLocation(getString(p, "in", "query"))
		if !loc.Recognized {
			n.logger.Warn("Unrecognized parameter location, treating as query",
				slog.String("param", getString(p, "name", "")),
				slog.String("location", loc.Original))
		}

		// Swagger 2.0 non-body parameters carry their type directly on
		// the parameter object instead of a schema.
		typ := getString(schema, "type", "")
		if typ == "" {
			typ = getString(p, "type", "string")
		}

		example := p["example"]
		if example == nil {
			example = schema["example"]
		}

		params = append(params, domain.Parameter{
			Name:        getString(p, "name", ""),
			Location:    loc.Location,
			Description: getString(p, "description", ""),
			Required:    getBool(p, "required"),
			Type:        typ,
			Enum:        toStringSlice(schema["enum"]),
			Default:     schema["default"],
			Example:     example,
		})
	}
	return params
}

// parseRequestBody flattens the JSON request body schema and sheds its
// top-level properties into BODY parameters.
func (n *Normalizer) parseRequestBody(r resolver, body map[string]any) (map[string]any, []domain.Parameter) {
	if len(body) == 0 {
		return map[string]any{}, nil
	}
	if ref, ok := body["$ref"].(string); ok {
		body = r.Resolve(ref)
	}
	content := asMap(body["content"])
	schema := r.Flatten(asMap(asMap(content["application/json"])["schema"]))
	return schema, n.shedBodyParams(r, schema)
}

// shedBodyParams sheds one BODY parameter per top-level property of a
// flattened body schema, required flags taken from the schema's required
// list. BODY parameters never come from anywhere else.
func (n *Normalizer) shedBodyParams(r resolver, schema map[string]any) []domain.Parameter {
	required := make(map[string]bool)
	for _, f := range toStringSlice(schema["required"]) {
		required[f] = true
	}

	props := asMap(schema["properties"])
	params := make([]domain.Parameter, 0, len(props))
	for _, name := range sortedKeys(props) {
		prop := r.Flatten(asMap(props[name]))
		params = append(params, domain.Parameter{
			Name:        name,
			Location:    domain.LocationBody,
			Description: getString(prop, "description", ""),
			Required:    required[name],
			Type:        getString(prop, "type", "string"),
			Enum:        toStringSlice(prop["enum"]),
			Default:     prop["default"],
			Example:     prop["example"],
		})
	}
	return params
}

// splitLegacyBody pulls the Swagger 2.0 in:body parameter out of a
// declared parameter list. Its schema flattens like an OAS3 request body;
// it never passes through as a declared parameter.
func splitLegacyBody(r resolver, raw []any) (map[string]any, []any) {
	var schema map[string]any
	rest := make([]any, 0, len(raw))
	for _, entry := range raw {
		if p, ok := entry.(map[string]any); ok {
			if ref, ok := p["$ref"].(string); ok {
				p = r.Resolve(ref)
			}
			if getString(p, "in", "") == "body" {
				if schema == nil {
					schema = asMap(p["schema"])
				}
				continue
			}
		}
		rest = append(rest, entry)
	}
	return schema, rest
}

// parseResponses reduces declared responses to one descriptor per status
// code. Non-numeric status codes ("default") coerce to 0.
func (n *Normalizer) parseResponses(r resolver, raw map[string]any) []domain.ResponseSchema {
	responses := make([]domain.ResponseSchema, 0, len(raw))
	for _, code := range sortedKeys(raw) {
		resp := asMap(raw[code])
		if ref, ok := resp["$ref"].(string); ok {
			resp = r.Resolve(ref)
		}

		ct := "application/json"
		schema := map[string]any{}
		if content := asMap(resp["content"]); len(content) > 0 {
			ct = pickContentType(content)
			schema = r.Flatten(asMap(asMap(content[ct])["schema"]))
		}

		status, err := strconv.Atoi(code)
		if err != nil {
			status = 0
		}

		responses = append(responses, domain.ResponseSchema{
			StatusCode:  status,
			Description: getString(resp, "description", ""),
			ContentType: ct,
			Schema:      schema,
		})
	}
	return responses
}

// pickContentType prefers application/json and otherwise takes the
// lexicographically first declared type; decoded mappings do not preserve
// declaration order.
func pickContentType(content map[string]any) string {
	if _, ok := content["application/json"]; ok {
		return "application/json"
	}
	return sortedKeys(content)[0]
}

// securityNames flattens security requirement objects into the list of
// referenced scheme names.
func securityNames(requirements []any) []string {
	var names []string
	for _, entry := range requirements {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		names = append(names, sortedKeys(m)...)
	}
	return names
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

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
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
		} else {
			out = append(out, fmt.Sprint(item))
		}
	}
	return out
}
