package ruleeval

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speclab/specgate/internal/domain"
)

func TestClassifyDecisionTable(t *testing.T) {
	tests := []struct {
		name   string
		cap    domain.Capability
		policy domain.Policy
		want   domain.Record
	}{
		{
			name:   "destructive keyword beats DELETE method rule",
			cap:    domain.Capability{Name: "deleteUser", Method: "DELETE", Path: "/users/{id}"},
			policy: domain.PolicyModerate,
			want: domain.Record{
				Name:           "deleteUser",
				Classification: domain.ClassificationUnsafe,
				Expose:         domain.ExposureBlock,
				Reason:         "Contains destructive keyword: 'delete'",
				Confidence:     0.9,
			},
		},
		{
			name:   "keyword list order names the reason",
			cap:    domain.Capability{Name: "destroyer", Description: "deletes everything", Method: "POST"},
			policy: domain.PolicyModerate,
			want: domain.Record{
				Name:           "destroyer",
				Classification: domain.ClassificationUnsafe,
				Expose:         domain.ExposureBlock,
				Reason:         "Contains destructive keyword: 'delete'",
				Confidence:     0.9,
			},
		},
		{
			name:   "destructive beats billing",
			cap:    domain.Capability{Name: "cancelSubscription", Method: "POST", Path: "/subscriptions/{id}"},
			policy: domain.PolicyPermissive,
			want: domain.Record{
				Name:           "cancelSubscription",
				Classification: domain.ClassificationUnsafe,
				Expose:         domain.ExposureBlock,
				Reason:         "Contains destructive keyword: 'cancel'",
				Confidence:     0.9,
			},
		},
		{
			name:   "billing keyword beats the write branch",
			cap:    domain.Capability{Name: "createOrder", Description: "Place a new order", Method: "POST", Path: "/orders"},
			policy: domain.PolicyModerate,
			want: domain.Record{
				Name:           "createOrder",
				Classification: domain.ClassificationUnsafe,
				Expose:         domain.ExposureBlock,
				Reason:         "Billing/payment operation: 'order'",
				Confidence:     0.85,
			},
		},
		{
			name:   "auth keyword in name",
			cap:    domain.Capability{Name: "rotateKey", Method: "POST", Path: "/rotate"},
			policy: domain.PolicyPermissive,
			want: domain.Record{
				Name:           "rotateKey",
				Classification: domain.ClassificationUnsafe,
				Expose:         domain.ExposureBlock,
				Reason:         "Authentication/security operation: 'key'",
				Confidence:     0.8,
			},
		},
		{
			name:   "auth keyword in description alone does not block",
			cap:    domain.Capability{Name: "fetchProfile", Description: "Requires an auth token", Method: "GET", Path: "/profile"},
			policy: domain.PolicyConservative,
			want: domain.Record{
				Name:           "fetchProfile",
				Classification: domain.ClassificationSafe,
				Expose:         domain.ExposureAllow,
				Reason:         "Read-only GET operation with safe keyword: 'fetch'",
				Confidence:     0.95,
			},
		},
		{
			name:   "read method with read keyword",
			cap:    domain.Capability{Name: "listUsers", Description: "List all users", Method: "GET", Path: "/users"},
			policy: domain.PolicyModerate,
			want: domain.Record{
				Name:           "listUsers",
				Classification: domain.ClassificationSafe,
				Expose:         domain.ExposureAllow,
				Reason:         "Read-only GET operation with safe keyword: 'list'",
				Confidence:     0.95,
			},
		},
		{
			name:   "read method without read keyword",
			cap:    domain.Capability{Name: "pets", Method: "HEAD", Path: "/pets"},
			policy: domain.PolicyModerate,
			want: domain.Record{
				Name:           "pets",
				Classification: domain.ClassificationSafe,
				Expose:         domain.ExposureAllow,
				Reason:         "Read-only HEAD operation",
				Confidence:     0.8,
			},
		},
		{
			name:   "DELETE without matching keywords",
			cap:    domain.Capability{Name: "resetCache", Method: "DELETE", Path: "/cache"},
			policy: domain.PolicyPermissive,
			want: domain.Record{
				Name:           "resetCache",
				Classification: domain.ClassificationUnsafe,
				Expose:         domain.ExposureBlock,
				Reason:         "Destructive DELETE operation",
				Confidence:     0.95,
			},
		},
		{
			name:   "conservative blocks writes",
			cap:    domain.Capability{Name: "createWidget", Description: "Create a widget", Method: "POST", Path: "/widgets"},
			policy: domain.PolicyConservative,
			want: domain.Record{
				Name:           "createWidget",
				Classification: domain.ClassificationConditional,
				Expose:         domain.ExposureBlock,
				Reason:         "Write operation (POST) blocked by conservative policy",
				Confidence:     0.7,
			},
		},
		{
			name:   "permissive allows writes",
			cap:    domain.Capability{Name: "createWidget", Description: "Create a widget", Method: "POST", Path: "/widgets"},
			policy: domain.PolicyPermissive,
			want: domain.Record{
				Name:           "createWidget",
				Classification: domain.ClassificationConditional,
				Expose:         domain.ExposureAllow,
				Reason:         "Write operation (POST) allowed by permissive policy",
				Confidence:     0.6,
			},
		},
		{
			name: "moderate write with read keyword",
			// "widget" contains "get", so the safe-context rule fires
			// before the create/update rule.
			cap:    domain.Capability{Name: "createWidget", Description: "Create a widget", Method: "POST", Path: "/widgets"},
			policy: domain.PolicyModerate,
			want: domain.Record{
				Name:           "createWidget",
				Classification: domain.ClassificationConditional,
				Expose:         domain.ExposureAllow,
				Reason:         "Write operation with safe context: 'get'",
				Confidence:     0.6,
			},
		},
		{
			name:   "moderate create without read keyword",
			cap:    domain.Capability{Name: "newUser", Description: "Create a user account", Method: "POST", Path: "/users"},
			policy: domain.PolicyModerate,
			want: domain.Record{
				Name:           "newUser",
				Classification: domain.ClassificationConditional,
				Expose:         domain.ExposureAllow,
				Reason:         "Standard create/update operation",
				Confidence:     0.65,
			},
		},
		{
			name:   "moderate write without any signal needs review",
			cap:    domain.Capability{Name: "sync", Method: "PUT", Path: "/sync"},
			policy: domain.PolicyModerate,
			want: domain.Record{
				Name:           "sync",
				Classification: domain.ClassificationConditional,
				Expose:         domain.ExposureReview,
				Reason:         "Write operation (PUT) needs manual review",
				Confidence:     0.5,
			},
		},
		{
			name:   "unrecognized method",
			cap:    domain.Capability{Name: "ping", Method: "TRACE", Path: "/ping"},
			policy: domain.PolicyModerate,
			want: domain.Record{
				Name:           "ping",
				Classification: domain.ClassificationUnknown,
				Expose:         domain.ExposureReview,
				Reason:         "Unable to classify automatically",
				Confidence:     0.3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.cap, tt.policy))
		})
	}
}

func TestClassifyBlocksDeleteUnderEveryPolicy(t *testing.T) {
	assert := assert.New(t)

	for _, policy := range []domain.Policy{domain.PolicyConservative, domain.PolicyModerate, domain.PolicyPermissive} {
		got := Classify(domain.Capability{Name: "resetCache", Method: "DELETE", Path: "/cache"}, policy)
		assert.Equal(domain.ClassificationUnsafe, got.Classification, "policy %s", policy)
		assert.Equal(domain.ExposureBlock, got.Expose, "policy %s", policy)
		assert.Equal(0.95, got.Confidence, "policy %s", policy)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	assert := assert.New(t)

	c := domain.Capability{Name: "getInvoice", Method: "GET", Path: "/invoices/{id}"}
	first := Classify(c, domain.PolicyModerate)
	for i := 0; i < 10; i++ {
		assert.Equal(first, Classify(c, domain.PolicyModerate))
	}
	// "invoice" outranks the read-only method rule.
	assert.Equal(domain.ClassificationUnsafe, first.Classification)
	assert.Equal("Billing/payment operation: 'invoice'", first.Reason)
}

func TestEvaluatePreservesOrder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eval := NewEvaluator(logger)

	caps := []domain.Capability{
		{Name: "listPets", Method: "GET", Path: "/pets"},
		{Name: "deletePet", Method: "DELETE", Path: "/pets/{id}"},
		{Name: "createPet", Method: "POST", Path: "/pets"},
	}

	records, err := eval.Evaluate(context.Background(), caps, domain.PolicyConservative)
	require.NoError(err)
	require.Len(records, 3)
	assert.Equal("listPets", records[0].Name)
	assert.Equal("deletePet", records[1].Name)
	assert.Equal("createPet", records[2].Name)
	assert.Equal(domain.ExposureAllow, records[0].Expose)
	assert.Equal(domain.ExposureBlock, records[1].Expose)
	assert.Equal(domain.ExposureBlock, records[2].Expose)
}
