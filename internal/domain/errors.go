package domain

import "fmt"

// IngestError wraps a failure to turn source content into a Spec. Source
// carries the original path or address so callers can name it.
type IngestError struct {
	Source string
	Err    error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// SpecNotFoundError means spec-URL discovery exhausted every candidate
// location for an address.
type SpecNotFoundError struct {
	Source string
}

func (e *SpecNotFoundError) Error() string {
	return fmt.Sprintf("could not find an OpenAPI/Swagger spec at %s (try the direct URL to the spec JSON/YAML)", e.Source)
}
