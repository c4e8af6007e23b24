// Package sentiment maps normalized text to a bounded compound score.
// The pipeline only depends on the Scorer signature; the VADER-backed
// implementation below is one choice, not a contract.
package sentiment

import "github.com/jonreiter/govader"

// Scorer computes a compound sentiment score in [-1, 1] for a piece of text.
// Implementations must be pure: no side effects, no I/O.
type Scorer interface {
	Score(text string) float64
}

// VaderScorer scores text with the VADER lexicon model.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

var _ Scorer = (*VaderScorer)(nil)

// NewVaderScorer creates a VADER-backed scorer.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the VADER compound score clamped to [-1, 1].
func (s *VaderScorer) Score(text string) float64 {
	if text == "" {
		return 0
	}

	compound := s.analyzer.PolarityScores(text).Compound
	if compound > 1 {
		compound = 1
	}
	if compound < -1 {
		compound = -1
	}
	return compound
}
