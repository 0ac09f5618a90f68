package domain

import "strings"

// CapabilityParam is one input of a raw capability descriptor.
type CapabilityParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Location    string `json:"location"`
	Description string `json:"description,omitempty"`
}

// Capability is the format-agnostic descriptor handed to classification.
// Method stays a raw string: descriptors may arrive from sources that
// declare verbs outside the canonical set, and the classifier routes those
// to its review branch instead of rejecting them.
type Capability struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Tags        []string          `json:"tags,omitempty"`
	Params      []CapabilityParam `json:"params,omitempty"`
	Deprecated  bool              `json:"deprecated,omitempty"`
}

// CapabilityName returns the stable name for an endpoint: the declared
// operation id when present, otherwise method plus the non-template path
// segments joined with underscores.
func CapabilityName(ep Endpoint) string {
	if ep.OperationID != "" {
		return ep.OperationID
	}
	parts := []string{strings.ToLower(string(ep.Method))}
	for _, seg := range strings.Split(strings.Trim(ep.Path, "/"), "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		parts = append(parts, sanitizeNamePart(seg))
	}
	return strings.Join(parts, "_")
}

// DeriveCapabilities maps each endpoint of a spec onto one raw capability
// descriptor, preserving endpoint order. Semantic grouping of endpoints
// into higher-level tools is a separate (external) concern; this
// derivation is purely structural.
func DeriveCapabilities(s Spec) []Capability {
	caps := make([]Capability, 0, len(s.Endpoints))
	for _, ep := range s.Endpoints {
		desc := ep.Summary
		if desc == "" {
			desc = ep.Description
		}
		params := make([]CapabilityParam, 0, len(ep.Parameters))
		for _, p := range ep.Parameters {
			params = append(params, CapabilityParam{
				Name:        p.Name,
				Type:        p.Type,
				Required:    p.Required,
				Location:    string(p.Location),
				Description: p.Description,
			})
		}
		caps = append(caps, Capability{
			Name:        CapabilityName(ep),
			Description: desc,
			Method:      string(ep.Method),
			Path:        ep.Path,
			Tags:        ep.Tags,
			Params:      params,
			Deprecated:  ep.Deprecated,
		})
	}
	return caps
}

func sanitizeNamePart(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "_", "-", "_", "/", "_", ".", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
