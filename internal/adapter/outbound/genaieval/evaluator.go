// Package genaieval classifies capability batches with a Gemini model.
// It is the external strategy behind the evaluator seam; callers compose
// it with the rule engine through the fallback combinator, so any error
// here costs one batch, not the run.
package genaieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	genai "google.golang.org/genai"

	"github.com/speclab/specgate/internal/domain"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

const promptTemplate = `You are an API security classifier. Analyze these API tools and classify each one.

## Policy: %s
- conservative: Only expose read-only (GET) operations
- moderate: Expose reads + safe writes (create/update), block deletes and sensitive ops
- permissive: Expose everything except destructive and security-sensitive operations

## Classification Rules
- "safe": Read-only, no side effects, can always expose
- "unsafe": Destructive, billing, auth - never expose
- "conditional": Write operations - depends on policy

## Tools to Classify
%s

## Output Format
Return ONLY a JSON array with one object per tool:
[
  {
    "name": "tool_name",
    "classification": "safe|unsafe|conditional",
    "expose": true|false|"review",
    "reason": "Brief explanation",
    "confidence": 0.0-1.0
  }
]

Classify each tool based on its name, method, path, and description.`

// Evaluator asks a Gemini model to classify capabilities.
type Evaluator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewEvaluator creates the model-backed evaluator. The API key is
// required; pick the strategy before constructing, not by letting this
// fail at classification time.
func NewEvaluator(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Evaluator, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY required for model classification")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Evaluator{
		client: client,
		model:  model,
		logger: logger.With("component", "genai_evaluator"),
	}, nil
}

// Evaluate classifies one batch with a single model call. The response
// must be a JSON array matching the batch item for item; anything
// off-contract is an error.
func (e *Evaluator) Evaluate(ctx context.Context, caps []domain.Capability, policy domain.Policy) ([]domain.Record, error) {
	if len(caps) == 0 {
		return []domain.Record{}, nil
	}

	payload, err := json.MarshalIndent(caps, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode capabilities: %w", err)
	}
	prompt := fmt.Sprintf(promptTemplate, strings.ToUpper(string(policy)), payload)

	e.logger.Debug("Requesting model classification.",
		slog.Int("capabilities", len(caps)),
		slog.String("model", e.model))

	resp, err := e.client.Models.GenerateContent(ctx, e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("model classification failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("model returned no candidates")
	}

	return decodeRecords([]byte(resp.Candidates[0].Content.Parts[0].Text), caps)
}

// decodeRecords parses and validates the model's JSON array. Names are
// reasserted from the input so a drifting echo cannot misattribute a
// record, and every record is marked as model-produced.
func decodeRecords(raw []byte, caps []domain.Capability) ([]domain.Record, error) {
	var records []domain.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("model returned malformed JSON: %w", err)
	}
	if len(records) != len(caps) {
		return nil, fmt.Errorf("model returned %d records for %d capabilities", len(records), len(caps))
	}
	for i := range records {
		switch records[i].Classification {
		case domain.ClassificationSafe, domain.ClassificationUnsafe,
			domain.ClassificationConditional, domain.ClassificationUnknown:
		default:
			return nil, fmt.Errorf("model returned unknown classification %q", records[i].Classification)
		}
		if records[i].Confidence < 0 || records[i].Confidence > 1 {
			return nil, fmt.Errorf("model returned out-of-range confidence %v", records[i].Confidence)
		}
		records[i].Name = caps[i].Name
		records[i].Enhanced = true
	}
	return records, nil
}
