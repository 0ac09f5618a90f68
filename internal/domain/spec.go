package domain

import "sort"

// Parameter is a single input to an endpoint: a query, path, header or
// cookie entry, or one field of a flattened request body. BODY-location
// parameters only ever originate from flattened body schemas, never from
// declared operation parameters.
type Parameter struct {
	Name        string        `json:"name"`
	Location    ParamLocation `json:"location"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required"`
	Type        string        `json:"schema_type"`
	Enum        []string      `json:"enum,omitempty"`
	Default     any           `json:"default,omitempty"`
	Example     any           `json:"example,omitempty"`
}

// ResponseSchema is a simplified response descriptor. StatusCode 0 stands
// in for a non-numeric declared status such as "default".
type ResponseSchema struct {
	StatusCode  int            `json:"status_code"`
	Description string         `json:"description,omitempty"`
	ContentType string         `json:"content_type"`
	Schema      map[string]any `json:"schema_fields,omitempty"`
}

// Endpoint is one operation extracted from a source document.
type Endpoint struct {
	Method      Method           `json:"method"`
	Path        string           `json:"path"`
	OperationID string           `json:"operation_id,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	Description string           `json:"description,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Parameters  []Parameter      `json:"parameters,omitempty"`
	RequestBody map[string]any   `json:"request_body_schema,omitempty"`
	Responses   []ResponseSchema `json:"responses,omitempty"`
	AuthSchemes []string         `json:"auth_schemes,omitempty"`
	Deprecated  bool             `json:"deprecated,omitempty"`
}

// AuthScheme is one authentication scheme declared by the source document,
// recorded whether or not any operation references it.
type AuthScheme struct {
	Name       string         `json:"name"`
	Type       string         `json:"scheme_type"`
	Location   string         `json:"location,omitempty"`
	HeaderName string         `json:"header_name,omitempty"`
	Flows      map[string]any `json:"flows,omitempty"`
}

// Spec is the normalized, source-agnostic representation of an entire API
// description. Tags always holds the sorted, deduplicated union of all
// non-empty endpoint tags.
type Spec struct {
	Title       string         `json:"title"`
	Version     string         `json:"version,omitempty"`
	Description string         `json:"description,omitempty"`
	BaseURL     string         `json:"base_url,omitempty"`
	AuthSchemes []AuthScheme   `json:"auth_schemes,omitempty"`
	Endpoints   []Endpoint     `json:"endpoints"`
	Tags        []string       `json:"tags"`
	RawMeta     map[string]any `json:"raw_meta,omitempty"`
}

// SourceFormat identifies which normalizer understands a decoded document.
type SourceFormat string

const (
	FormatOpenAPI    SourceFormat = "openapi"
	FormatCollection SourceFormat = "postman"
)

// CollectTags returns the sorted, deduplicated union of the non-empty tags
// on the given endpoints.
func CollectTags(endpoints []Endpoint) []string {
	seen := make(map[string]struct{})
	for _, ep := range endpoints {
		for _, t := range ep.Tags {
			if t == "" {
				continue
			}
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// FilterEndpoints returns a copy of the spec narrowed to the endpoints the
// keep function accepts. Tags are recomputed from the surviving endpoints.
func (s Spec) FilterEndpoints(keep func(Endpoint) bool) Spec {
	out := s
	out.Endpoints = make([]Endpoint, 0, len(s.Endpoints))
	for _, ep := range s.Endpoints {
		if keep(ep) {
			out.Endpoints = append(out.Endpoints, ep)
		}
	}
	out.Tags = CollectTags(out.Endpoints)
	return out
}
