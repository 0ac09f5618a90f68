// Package ruleeval classifies capabilities with an ordered keyword and
// method rule table. It is the local strategy behind the evaluator seam
// and the substitute applied when an external strategy fails.
package ruleeval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/speclab/specgate/internal/domain"
)

// Keyword tables. Order is load-bearing: the first matching keyword is
// the one named in the record's reason. Matching is substring matching
// over lowercased text, so "createOrder" matches "order".
var (
	destructiveKeywords = []string{
		"delete", "destroy", "remove", "terminate", "purge", "drop",
		"revoke", "cancel", "disable", "deactivate", "kill",
	}
	billingKeywords = []string{
		"billing", "payment", "invoice", "charge", "subscription",
		"credit", "cost", "price", "purchase", "order",
	}
	authKeywords = []string{
		"token", "secret", "password", "credential", "key", "auth",
		"login", "logout", "session",
	}
	readKeywords = []string{
		"list", "get", "read", "fetch", "describe", "show", "view",
		"search", "find", "query", "lookup", "check", "validate",
	}
)

// Evaluator applies the rule table capability by capability.
type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger.With("component", "rule_evaluator")}
}

// Evaluate classifies every capability in input order. It never fails;
// the rule table has a decision for any input.
func (e *Evaluator) Evaluate(ctx context.Context, caps []domain.Capability, policy domain.Policy) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(caps))
	for _, c := range caps {
		records = append(records, Classify(c, policy))
	}
	e.logger.Debug("Applied classification rules.",
		slog.Int("capabilities", len(caps)),
		slog.String("policy", string(policy)))
	return records, nil
}

// Classify runs one capability through the decision table. The rule
// order must not change: keyword rules dominate method rules, and only
// the POST/PUT/PATCH branch consults the policy.
func Classify(c domain.Capability, policy domain.Policy) domain.Record {
	name := strings.ToLower(c.Name)
	path := strings.ToLower(c.Path)
	method := strings.ToUpper(c.Method)
	combined := name + " " + strings.ToLower(c.Description) + " " + path

	record := func(class domain.Classification, expose domain.Exposure, reason string, confidence float64) domain.Record {
		return domain.Record{
			Name:           c.Name,
			Classification: class,
			Expose:         expose,
			Reason:         reason,
			Confidence:     confidence,
		}
	}

	for _, kw := range destructiveKeywords {
		if strings.Contains(combined, kw) {
			return record(domain.ClassificationUnsafe, domain.ExposureBlock,
				fmt.Sprintf("Contains destructive keyword: '%s'", kw), 0.9)
		}
	}

	for _, kw := range billingKeywords {
		if strings.Contains(combined, kw) {
			return record(domain.ClassificationUnsafe, domain.ExposureBlock,
				fmt.Sprintf("Billing/payment operation: '%s'", kw), 0.85)
		}
	}

	// Auth matching skips the description: prose mentions keys and
	// tokens far too often to be a signal.
	for _, kw := range authKeywords {
		if strings.Contains(name, kw) || strings.Contains(path, kw) {
			return record(domain.ClassificationUnsafe, domain.ExposureBlock,
				fmt.Sprintf("Authentication/security operation: '%s'", kw), 0.8)
		}
	}

	switch method {
	case "GET", "HEAD", "OPTIONS":
		for _, kw := range readKeywords {
			if strings.Contains(combined, kw) {
				return record(domain.ClassificationSafe, domain.ExposureAllow,
					fmt.Sprintf("Read-only %s operation with safe keyword: '%s'", method, kw), 0.95)
			}
		}
		return record(domain.ClassificationSafe, domain.ExposureAllow,
			fmt.Sprintf("Read-only %s operation", method), 0.8)

	case "DELETE":
		return record(domain.ClassificationUnsafe, domain.ExposureBlock,
			fmt.Sprintf("Destructive %s operation", method), 0.95)

	case "POST", "PUT", "PATCH":
		switch policy {
		case domain.PolicyConservative:
			return record(domain.ClassificationConditional, domain.ExposureBlock,
				fmt.Sprintf("Write operation (%s) blocked by conservative policy", method), 0.7)
		case domain.PolicyModerate:
			for _, kw := range readKeywords {
				if strings.Contains(combined, kw) {
					return record(domain.ClassificationConditional, domain.ExposureAllow,
						fmt.Sprintf("Write operation with safe context: '%s'", kw), 0.6)
				}
			}
			if strings.Contains(combined, "create") || strings.Contains(combined, "update") {
				return record(domain.ClassificationConditional, domain.ExposureAllow,
					"Standard create/update operation", 0.65)
			}
			return record(domain.ClassificationConditional, domain.ExposureReview,
				fmt.Sprintf("Write operation (%s) needs manual review", method), 0.5)
		default:
			return record(domain.ClassificationConditional, domain.ExposureAllow,
				fmt.Sprintf("Write operation (%s) allowed by permissive policy", method), 0.6)
		}
	}

	return record(domain.ClassificationUnknown, domain.ExposureReview, "Unable to classify automatically", 0.3)
}
