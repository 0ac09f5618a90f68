package openapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDoc(t *testing.T, data string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &doc))
	return doc
}

func TestResolverResolve(t *testing.T) {
	assert := assert.New(t)

	doc := decodeDoc(t, `{
		"components": {
			"schemas": {
				"Pet": {"type": "object", "properties": {"name": {"type": "string"}}}
			}
		}
	}`)
	r := resolver{doc: doc}

	pet := r.Resolve("#/components/schemas/Pet")
	assert.Equal("object", pet["type"])

	assert.Empty(r.Resolve("#/components/schemas/Missing"), "missing path resolves to an empty schema")
	assert.Empty(r.Resolve("#/nope/nested/deeper"))
	assert.Empty(r.Resolve(""))
}

func TestResolverFlattenRefAndRecursion(t *testing.T) {
	assert := assert.New(t)

	doc := decodeDoc(t, `{
		"components": {
			"schemas": {
				"Tag": {"type": "object", "properties": {"label": {"type": "string"}}},
				"Pet": {
					"type": "object",
					"properties": {
						"tag":  {"$ref": "#/components/schemas/Tag"},
						"tags": {"type": "array", "items": {"$ref": "#/components/schemas/Tag"}}
					}
				}
			}
		}
	}`)
	r := resolver{doc: doc}

	flat := r.Flatten(map[string]any{"$ref": "#/components/schemas/Pet"})

	props := flat["properties"].(map[string]any)
	tag := props["tag"].(map[string]any)
	assert.Equal("object", tag["type"], "property refs are inlined")

	items := props["tags"].(map[string]any)["items"].(map[string]any)
	assert.Equal("object", items["type"], "array item refs are inlined")
}

func TestResolverFlattenAllOf(t *testing.T) {
	assert := assert.New(t)

	doc := decodeDoc(t, `{
		"components": {
			"schemas": {
				"Base": {
					"type": "object",
					"description": "base",
					"properties": {
						"id": {"type": "integer"},
						"x":  {"type": "string"}
					}
				},
				"Extended": {
					"allOf": [
						{"$ref": "#/components/schemas/Base"},
						{
							"description": "extended",
							"properties": {
								"x":    {"type": "boolean"},
								"name": {"type": "string"}
							}
						}
					]
				}
			}
		}
	}`)
	r := resolver{doc: doc}

	flat := r.Flatten(map[string]any{"$ref": "#/components/schemas/Extended"})

	assert.Equal("extended", flat["description"], "later entries win on top-level collisions")
	assert.Equal("object", flat["type"], "earlier-only top-level fields survive")

	props := flat["properties"].(map[string]any)
	assert.Equal("boolean", props["x"].(map[string]any)["type"], "later entry wins per property")
	assert.Contains(props, "id", "earlier-only properties survive the merge")
	assert.Contains(props, "name")
}

func TestResolverFlattenCycle(t *testing.T) {
	assert := assert.New(t)

	doc := decodeDoc(t, `{
		"components": {
			"schemas": {
				"Node": {
					"type": "object",
					"properties": {
						"value": {"type": "string"},
						"next":  {"$ref": "#/components/schemas/Node"}
					}
				}
			}
		}
	}`)
	r := resolver{doc: doc}

	flat := r.Flatten(map[string]any{"$ref": "#/components/schemas/Node"})

	props := flat["properties"].(map[string]any)
	assert.Equal("string", props["value"].(map[string]any)["type"])
	assert.Empty(props["next"], "a repeated reference in the chain collapses to an empty fragment")
}

func TestResolverFlattenSiblingRefsIndependent(t *testing.T) {
	assert := assert.New(t)

	doc := decodeDoc(t, `{
		"components": {
			"schemas": {
				"Leaf": {"type": "object", "properties": {"v": {"type": "integer"}}},
				"Pair": {
					"type": "object",
					"properties": {
						"left":  {"$ref": "#/components/schemas/Leaf"},
						"right": {"$ref": "#/components/schemas/Leaf"}
					}
				}
			}
		}
	}`)
	r := resolver{doc: doc}

	flat := r.Flatten(map[string]any{"$ref": "#/components/schemas/Pair"})

	props := flat["properties"].(map[string]any)
	for _, side := range []string{"left", "right"} {
		leaf := props[side].(map[string]any)
		assert.Equal("object", leaf["type"], "sibling %s must resolve independently", side)
	}
}
