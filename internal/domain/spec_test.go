package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/speclab/specgate/internal/domain"
)

func TestCollectTags(t *testing.T) {
	assert := assert.New(t)

	endpoints := []domain.Endpoint{
		{Method: domain.MethodGet, Path: "/pets", Tags: []string{"pets", "store"}},
		{Method: domain.MethodPost, Path: "/pets", Tags: []string{"pets", ""}},
		{Method: domain.MethodGet, Path: "/users", Tags: []string{"admin"}},
		{Method: domain.MethodGet, Path: "/health"},
	}

	tags := domain.CollectTags(endpoints)
	assert.Equal([]string{"admin", "pets", "store"}, tags, "tags must be the sorted union with empties dropped")

	assert.Empty(domain.CollectTags(nil))
}

func TestSpecFilterEndpoints(t *testing.T) {
	assert := assert.New(t)

	spec := domain.Spec{
		Title: "Pet Store",
		Endpoints: []domain.Endpoint{
			{Method: domain.MethodGet, Path: "/pets", OperationID: "listPets", Tags: []string{"pets"}},
			{Method: domain.MethodDelete, Path: "/pets/{id}", OperationID: "deletePet", Tags: []string{"pets"}},
			{Method: domain.MethodGet, Path: "/orders", OperationID: "listOrders", Tags: []string{"store"}},
		},
	}
	spec.Tags = domain.CollectTags(spec.Endpoints)

	allowed := map[string]struct{}{"listPets": {}}
	narrowed := spec.FilterEndpoints(func(ep domain.Endpoint) bool {
		_, ok := allowed[ep.OperationID]
		return ok
	})

	assert.Len(narrowed.Endpoints, 1)
	assert.Equal("listPets", narrowed.Endpoints[0].OperationID)
	assert.Equal([]string{"pets"}, narrowed.Tags, "tags must be recomputed after narrowing")

	// The original value is untouched.
	assert.Len(spec.Endpoints, 3)
	assert.Equal([]string{"pets", "store"}, spec.Tags)
}
