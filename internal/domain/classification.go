package domain

import (
	"encoding/json"
	"fmt"
)

// Classification is the safety category assigned to a capability.
type Classification string

const (
	ClassificationSafe        Classification = "safe"
	ClassificationUnsafe      Classification = "unsafe"
	ClassificationConditional Classification = "conditional"
	ClassificationUnknown     Classification = "unknown"
)

// Exposure is the tri-state decision on whether a capability may be
// surfaced to an automated caller. It is not a boolean: the review state
// means a human has to decide.
type Exposure int

const (
	// ExposureBlock keeps the capability hidden.
	ExposureBlock Exposure = iota
	// ExposureAllow surfaces the capability.
	ExposureAllow
	// ExposureReview defers the decision to a human.
	ExposureReview
)

func (e Exposure) String() string {
	switch e {
	case ExposureAllow:
		return "true"
	case ExposureReview:
		return "review"
	default:
		return "false"
	}
}

// MarshalJSON encodes the tri-state as boolean true, boolean false, or the
// string "review".
func (e Exposure) MarshalJSON() ([]byte, error) {
	switch e {
	case ExposureAllow:
		return []byte("true"), nil
	case ExposureReview:
		return []byte(`"review"`), nil
	default:
		return []byte("false"), nil
	}
}

// UnmarshalJSON accepts boolean true/false and the string "review".
func (e *Exposure) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case bool:
		if val {
			*e = ExposureAllow
		} else {
			*e = ExposureBlock
		}
		return nil
	case string:
		if val == "review" {
			*e = ExposureReview
			return nil
		}
	}
	return fmt.Errorf("invalid exposure value %s", string(data))
}

// Record is the classification outcome for one capability.
type Record struct {
	Name           string         `json:"name"`
	Classification Classification `json:"classification"`
	Expose         Exposure       `json:"expose"`
	Reason         string         `json:"reason"`
	Confidence     float64        `json:"confidence"`
	// Enhanced marks records produced or overridden by an external
	// reasoning pass rather than the local rule engine.
	Enhanced bool `json:"enhanced,omitempty"`
}

// Policy names the risk tolerance governing write-method exposure. Pure
// configuration: it only selects the branch taken for POST/PUT/PATCH.
type Policy string

const (
	PolicyConservative Policy = "conservative"
	PolicyModerate     Policy = "moderate"
	PolicyPermissive   Policy = "permissive"
)

// ParsePolicy accepts exactly the three policy literals. Anything else is
// a caller error, never silently defaulted.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(raw); p {
	case PolicyConservative, PolicyModerate, PolicyPermissive:
		return p, nil
	default:
		return "", fmt.Errorf("unknown policy %q (expected conservative, moderate or permissive)", raw)
	}
}

// Summary aggregates a policy run by exposure decision.
type Summary struct {
	Total       int `json:"total"`
	Exposable   int `json:"exposable"`
	Blocked     int `json:"blocked"`
	NeedsReview int `json:"needs_review"`
}

// Summarize derives the aggregate counts strictly from the per-record
// exposure values.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		switch r.Expose {
		case ExposureAllow:
			s.Exposable++
		case ExposureReview:
			s.NeedsReview++
		default:
			s.Blocked++
		}
	}
	return s
}

// PolicyRun is the result of classifying one capability set under one
// policy. Records preserve the input capability order.
type PolicyRun struct {
	Policy  Policy   `json:"policy"`
	Summary Summary  `json:"summary"`
	Records []Record `json:"classifications"`
}
