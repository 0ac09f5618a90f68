package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/speclab/specgate/internal/domain"
)

func TestCapabilityName(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		name string
		ep   domain.Endpoint
		want string
	}{
		{
			name: "operation id wins",
			ep:   domain.Endpoint{Method: domain.MethodGet, Path: "/pets", OperationID: "listPets"},
			want: "listPets",
		},
		{
			name: "method and path fallback",
			ep:   domain.Endpoint{Method: domain.MethodGet, Path: "/pets/{petId}/photos"},
			want: "get_pets_photos",
		},
		{
			name: "root path",
			ep:   domain.Endpoint{Method: domain.MethodPost, Path: "/"},
			want: "post",
		},
		{
			name: "mixed case segments",
			ep:   domain.Endpoint{Method: domain.MethodGet, Path: "/API/User-Accounts"},
			want: "get_api_user_accounts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(tt.want, domain.CapabilityName(tt.ep))
		})
	}
}

func TestDeriveCapabilities(t *testing.T) {
	assert := assert.New(t)

	spec := domain.Spec{
		Endpoints: []domain.Endpoint{
			{
				Method:      domain.MethodGet,
				Path:        "/pets",
				OperationID: "listPets",
				Summary:     "List pets",
				Description: "Returns all pets",
				Tags:        []string{"pets"},
				Parameters: []domain.Parameter{
					{Name: "limit", Location: domain.LocationQuery, Type: "integer", Required: false, Description: "Page size"},
				},
			},
			{
				Method:      domain.MethodDelete,
				Path:        "/pets/{id}",
				Description: "Removes a pet",
				Deprecated:  true,
			},
		},
	}

	caps := domain.DeriveCapabilities(spec)
	assert.Len(caps, 2)

	assert.Equal("listPets", caps[0].Name)
	assert.Equal("List pets", caps[0].Description, "summary wins over description")
	assert.Equal("GET", caps[0].Method)
	assert.Equal([]string{"pets"}, caps[0].Tags)
	assert.Equal(domain.CapabilityParam{
		Name: "limit", Type: "integer", Required: false, Location: "query", Description: "Page size",
	}, caps[0].Params[0])

	assert.Equal("delete_pets", caps[1].Name)
	assert.Equal("Removes a pet", caps[1].Description, "description used when summary is empty")
	assert.True(caps[1].Deprecated)
}
