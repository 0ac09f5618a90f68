package openapi

import "strings"

// resolver resolves in-document $ref pointers and flattens schema
// fragments. Resolution is lenient: a reference to a missing path yields
// an empty schema instead of an error. Ingestion is best-effort, not
// validation.
type resolver struct {
	doc map[string]any
}

// Resolve walks the document by successive key lookup for a reference
// like "#/components/schemas/Pet". Missing segments and non-mapping nodes
// resolve to an empty schema.
func (r resolver) Resolve(ref string) map[string]any {
	node := any(r.doc)
	for _, part := range strings.Split(strings.TrimLeft(ref, "#/"), "/") {
		m, ok := node.(map[string]any)
		if !ok {
			return map[string]any{}
		}
		node = m[part]
	}
	out, ok := node.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return out
}

// Flatten returns a fully resolved, reference-free copy of the schema
// fragment: $ref chains are dereferenced, properties and items are
// flattened recursively, and allOf compositions are merged with later
// entries winning on collision (top-level fields and per-property alike).
func (r resolver) Flatten(schema map[string]any) map[string]any {
	return r.flatten(schema, make(map[string]bool))
}

func (r resolver) flatten(schema map[string]any, seen map[string]bool) map[string]any {
	// Reference paths are tracked per resolution chain so cyclic schema
	// definitions terminate as empty fragments. Marks are dropped on
	// return, letting sibling subtrees resolve the same ref on their own.
	for {
		ref, ok := schema["$ref"].(string)
		if !ok {
			break
		}
		if seen[ref] {
			return map[string]any{}
		}
		seen[ref] = true
		defer delete(seen, ref)
		schema = r.Resolve(ref)
	}

	result := make(map[string]any, len(schema))
	for k, v := range schema {
		result[k] = v
	}

	if props, ok := result["properties"].(map[string]any); ok {
		flat := make(map[string]any, len(props))
		for name, sub := range props {
			if m, ok := sub.(map[string]any); ok {
				flat[name] = r.flatten(m, seen)
			} else {
				flat[name] = sub
			}
		}
		result["properties"] = flat
	}

	if items, ok := result["items"].(map[string]any); ok {
		result["items"] = r.flatten(items, seen)
	}

	if allOf, ok := result["allOf"].([]any); ok {
		merged := make(map[string]any)
		mergedProps := make(map[string]any)
		for _, entry := range allOf {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			sub := r.flatten(m, seen)
			for k, v := range sub {
				merged[k] = v
			}
			if subProps, ok := sub["properties"].(map[string]any); ok {
				for name, p := range subProps {
					mergedProps[name] = p
				}
			}
		}
		if len(mergedProps) > 0 {
			merged["properties"] = mergedProps
		}
		result = merged
	}

	return result
}
