package classify

import (
	"context"

	"golang.org/x/text/language"
)

// Service is implemented by every classifier backend.
type Service interface {
	ClassifyText(ctx context.Context, text string) (*Result, error)
}

// Candidate is one scored language.
type Candidate struct {
	Language language.Tag `json:"language"`
	Score    float64      `json:"score"`
}

// Result is the outcome of one classification. Language is language.Und
// when no candidate reaches the configured minimum confidence.
type Result struct {
	Language   language.Tag `json:"language"`
	Confidence float64      `json:"confidence"`
	Candidates []Candidate  `json:"candidates,omitempty"`
	Backend    string       `json:"backend"`
}
