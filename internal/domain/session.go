package domain

import "time"

// SourceDocument is a retrieved spec payload, kept both raw (for schema
// linting) and decoded.
type SourceDocument struct {
	Source string
	Raw    []byte
	Doc    map[string]any
}

// Session is one ingested spec and everything derived from it. A session
// is created by ingestion, enriched by classification runs, and narrowed
// by confirmation.
type Session struct {
	ID           string       `json:"session_id"`
	Source       string       `json:"source"`
	SourceType   SourceFormat `json:"source_type"`
	CreatedAt    time.Time    `json:"created_at"`
	Spec         Spec         `json:"spec"`
	Capabilities []Capability `json:"capabilities"`
	Run          *PolicyRun   `json:"run,omitempty"`
}
