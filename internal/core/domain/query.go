package domain

import (
	"fmt"
	"strings"
)

// QueryMode selects how a query value is turned into an embedding.
type QueryMode string

// Available query modes.
const (
	// QueryModeText embeds the value as free text.
	QueryModeText QueryMode = "text"

	// QueryModeURL fetches the value as a remote image.
	QueryModeURL QueryMode = "url"

	// QueryModeImage decodes the value as a base64 image payload,
	// optionally prefixed with a data URI header.
	QueryModeImage QueryMode = "image"
)

// IsValid returns true if the query mode is recognised.
func (m QueryMode) IsValid() bool {
	switch m {
	case QueryModeText, QueryModeURL, QueryModeImage:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m QueryMode) String() string {
	return string(m)
}

// AllQueryModes returns all available query modes.
func AllQueryModes() []QueryMode {
	return []QueryMode{QueryModeText, QueryModeURL, QueryModeImage}
}

// QueryInput is a raw query and the modality it is expressed in.
type QueryInput struct {
	Mode  QueryMode
	Value string
}

// ResultRecord is one ranked corpus match.
// SourceURL is empty until the catalog join has been applied.
type ResultRecord struct {
	Score     float32
	LocalID   string
	SourceURL string
}

// ImageResult is the user-facing form of a match.
type ImageResult struct {
	Score float32 `json:"score"`
	URL   string  `json:"url"`
	Link  string  `json:"link"`
}

// Result fields available for projection.
const (
	FieldURL   = "url"
	FieldScore = "score"
	FieldLink  = "link"
)

// SearchRequest is a façade-level query. Zero Limit and nil MinScore
// take the configured defaults; an explicit MinScore of 0 is honoured.
type SearchRequest struct {
	Input    QueryInput
	Limit    int
	MinScore *float32
	Fields   []string
}

// RecordFailure reports a match that could not be resolved.
type RecordFailure struct {
	LocalID string  `json:"local_id"`
	Score   float32 `json:"score"`
	Err     error   `json:"-"`
	Message string  `json:"error"`
}

// SearchResponse carries resolved results in rank order plus any
// per-record failures. An empty Results slice is a successful outcome.
type SearchResponse struct {
	Results  []ImageResult   `json:"results"`
	Failures []RecordFailure `json:"failures,omitempty"`
}

// ValidateFields checks requested projection fields.
func ValidateFields(fields []string) error {
	for _, f := range fields {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case FieldURL, FieldScore, FieldLink:
		default:
			return fmt.Errorf("unknown result field %q: %w", f, ErrInvalidInput)
		}
	}
	return nil
}

// Project returns each result reduced to the requested fields, preserving
// order. An empty field list keeps every field.
func Project(results []ImageResult, fields []string) []map[string]any {
	if len(fields) == 0 {
		fields = []string{FieldScore, FieldURL, FieldLink}
	}
	out := make([]map[string]any, len(results))
	for i, r := range results {
		row := make(map[string]any, len(fields))
		for _, f := range fields {
			switch strings.ToLower(strings.TrimSpace(f)) {
			case FieldURL:
				row[FieldURL] = r.URL
			case FieldScore:
				row[FieldScore] = r.Score
			case FieldLink:
				row[FieldLink] = r.Link
			}
		}
		out[i] = row
	}
	return out
}
