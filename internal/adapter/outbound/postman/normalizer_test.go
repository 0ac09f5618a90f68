package postman

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speclab/specgate/internal/domain"
)

const acmeCollection = `{
	"info": {
		"_postman_id": "abc-123",
		"name": "Acme API",
		"description": "Demo collection",
		"schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
	},
	"item": [
		{
			"name": "Users",
			"item": [
				{
					"name": "List users",
					"request": {
						"method": "GET",
						"description": "Returns all users.",
						"url": {
							"raw": "https://api.acme.dev/v2/users?limit=20",
							"protocol": "https",
							"host": ["api", "acme", "dev"],
							"path": ["v2", "users"],
							"query": [
								{"key": "limit", "value": "20", "description": "Page size"},
								{"key": "cursor", "value": "", "disabled": true}
							]
						},
						"header": [
							{"key": "Accept", "value": "application/json"},
							{"key": "X-Tenant", "value": "acme", "description": "Tenant slug"}
						]
					}
				},
				{
					"name": "Admin",
					"item": [
						{
							"name": "Create user",
							"request": {
								"method": "POST",
								"url": {"host": ["api", "acme", "dev"], "path": ["v2", "users"]},
								"header": [{"key": "Content-Type", "value": "application/json"}],
								"body": {"mode": "raw", "raw": "{\"email\": \"a@b.c\", \"age\": 30, \"active\": true, \"meta\": {\"x\": 1}, \"nick\": null}"}
							}
						}
					]
				}
			]
		},
		{
			"name": "Ping",
			"request": {"url": "https://api.acme.dev/ping"}
		}
	]
}`

func decodeCollection(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func testNormalizer() *Normalizer {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewNormalizer(logger)
}

func TestNormalizeCollection(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	spec, err := testNormalizer().Normalize(context.Background(), decodeCollection(t, acmeCollection))
	require.NoError(err)

	assert.Equal("Acme API", spec.Title)
	assert.Equal("Demo collection", spec.Description)
	assert.Equal("https://api.acme.dev", spec.BaseURL, "base address comes from the first leaf request")
	assert.Equal([]string{"Admin", "Users"}, spec.Tags)
	assert.Equal("abc-123", spec.RawMeta["postman_id"])
	assert.Empty(spec.AuthSchemes)

	require.Len(spec.Endpoints, 3)

	list := spec.Endpoints[0]
	assert.Equal(domain.MethodGet, list.Method)
	assert.Equal("/v2/users", list.Path)
	assert.Equal("List users", list.Summary)
	assert.Equal("Returns all users.", list.Description)
	assert.Equal([]string{"Users"}, list.Tags, "only the immediate folder becomes a tag")
	require.Len(list.Parameters, 3)
	assert.Equal(domain.Parameter{
		Name: "limit", Location: domain.LocationQuery, Description: "Page size", Required: true, Type: "string",
	}, list.Parameters[0])
	assert.Equal("cursor", list.Parameters[1].Name)
	assert.False(list.Parameters[1].Required, "disabled query entries are optional")
	assert.Equal(domain.Parameter{
		Name: "X-Tenant", Location: domain.LocationHeader, Description: "Tenant slug", Required: true, Type: "string",
	}, list.Parameters[2], "content negotiation headers are dropped")

	create := spec.Endpoints[1]
	assert.Equal(domain.MethodPost, create.Method)
	assert.Equal([]string{"Admin"}, create.Tags, "nested folders replace the tag, they do not accumulate")
	require.Len(create.Parameters, 5, "one body parameter per top-level field, Content-Type header dropped")
	var names, types []string
	for _, p := range create.Parameters {
		assert.Equal(domain.LocationBody, p.Location)
		assert.True(p.Required)
		names = append(names, p.Name)
		types = append(types, p.Type)
	}
	assert.Equal([]string{"active", "age", "email", "meta", "nick"}, names)
	assert.Equal([]string{"boolean", "number", "string", "object", "null"}, types)

	ping := spec.Endpoints[2]
	assert.Equal(domain.MethodGet, ping.Method, "missing verb defaults to GET")
	assert.Equal("https://api.acme.dev/ping", ping.Path, "string URLs are kept whole as the path")
	assert.Empty(ping.Tags)
	assert.Empty(ping.Parameters)
}

func TestNormalizeCollectionDefaults(t *testing.T) {
	assert := assert.New(t)

	spec, err := testNormalizer().Normalize(context.Background(), map[string]any{})
	assert.NoError(err)
	assert.Equal("Untitled Collection", spec.Title)
	assert.Equal("", spec.BaseURL)
	assert.Equal("", spec.RawMeta["postman_id"])
	assert.NotNil(spec.Endpoints)
	assert.Empty(spec.Endpoints)
}

func TestNormalizeCollectionProtocolDefault(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	doc := decodeCollection(t, `{
		"info": {"name": "Bare"},
		"item": [
			{
				"name": "Status",
				"request": {
					"method": "get",
					"url": {"host": ["status", "acme", "dev"], "path": ["healthz"]}
				}
			}
		]
	}`)

	spec, err := testNormalizer().Normalize(context.Background(), doc)
	require.NoError(err)
	assert.Equal("https://status.acme.dev", spec.BaseURL, "protocol defaults to https")
	require.Len(spec.Endpoints, 1)
	assert.Equal(domain.MethodGet, spec.Endpoints[0].Method, "verbs parse case-insensitively")
	assert.Equal("/healthz", spec.Endpoints[0].Path)
}

func TestNormalizeCollectionEmptyFolderFirst(t *testing.T) {
	assert := assert.New(t)

	doc := decodeCollection(t, `{
		"info": {"name": "Sparse"},
		"item": [
			{"name": "Empty", "item": []},
			{"name": "Later", "request": {"method": "DELETE", "url": "https://x.test/later"}}
		]
	}`)

	spec, err := testNormalizer().Normalize(context.Background(), doc)
	assert.NoError(err)
	assert.Equal("", spec.BaseURL, "an empty leading folder yields no base address")
	assert.Len(spec.Endpoints, 1)
	assert.Equal(domain.MethodDelete, spec.Endpoints[0].Method)
}

func TestNormalizeCollectionBodyEdgeCases(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	doc := decodeCollection(t, `{
		"info": {"name": "Bodies"},
		"item": [
			{"name": "Array body", "request": {"method": "POST", "url": "https://x.test/a", "body": {"mode": "raw", "raw": "[1, 2]"}}},
			{"name": "Broken body", "request": {"method": "POST", "url": "https://x.test/b", "body": {"mode": "raw", "raw": "{not json"}}},
			{"name": "Form body", "request": {"method": "POST", "url": "https://x.test/c", "body": {"mode": "urlencoded"}}}
		]
	}`)

	spec, err := testNormalizer().Normalize(context.Background(), doc)
	require.NoError(err)
	require.Len(spec.Endpoints, 3)
	for _, ep := range spec.Endpoints {
		assert.Empty(ep.Parameters, "non-object and non-raw bodies contribute no parameters")
	}
}
