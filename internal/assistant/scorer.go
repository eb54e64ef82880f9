package assistant

import (
	"github.com/helpdesk-assist/backend/internal/access"
	"github.com/helpdesk-assist/backend/internal/retrieval"
)

const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// Tier buckets a confidence value for UI display. Boundaries are closed on
// the lower side: 0.7 is high, 0.5 is medium.
func Tier(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return TierHigh
	case confidence >= 0.5:
		return TierMedium
	default:
		return TierLow
	}
}

// Weights holds the per-source-type relevance weights. Ticket history is the
// most directly actionable evidence, so ticket > kb > ci. The values are
// configuration, not constants: they are meant to be recalibrated against
// the validation workflow's precision/recall output.
type Weights struct {
	Ticket float64
	KB     float64
	CI     float64
}

func DefaultWeights() Weights {
	return Weights{Ticket: 0.6, KB: 0.4, CI: 0.2}
}

type Scorer struct {
	weights Weights
	boost   float64
}

// NewScorer builds a scorer with the given weight table and corroboration
// boost. The boost is capped at 0.05 no matter what the config says.
func NewScorer(weights Weights, corroborationBoost float64) *Scorer {
	if corroborationBoost > 0.05 {
		corroborationBoost = 0.05
	}
	if corroborationBoost < 0 {
		corroborationBoost = 0
	}
	return &Scorer{
		weights: weights,
		boost:   corroborationBoost,
	}
}

// Score combines per-source relevance into one bounded confidence value.
// The result depends only on the payload and the analytics flag: no clock,
// no randomness, so identical inputs always score identically.
func (s *Scorer) Score(payload *retrieval.RawPayload, analyticsEnabled bool) (float64, string) {
	if payload == nil || len(payload.RawSources) == 0 {
		return 0, TierLow
	}

	var weightedSum, weightTotal float64
	for _, src := range payload.RawSources {
		w := s.weightFor(access.SourceType(src.Type))
		if w == 0 {
			continue
		}
		weightedSum += w * src.Relevance
		weightTotal += w
	}

	if weightTotal == 0 {
		return 0, TierLow
	}

	confidence := weightedSum / weightTotal

	if analyticsEnabled && hasCrossSourceCorroboration(payload) {
		confidence += s.boost
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return confidence, Tier(confidence)
}

func (s *Scorer) weightFor(sourceType access.SourceType) float64 {
	switch sourceType {
	case access.SourceTicket:
		return s.weights.Ticket
	case access.SourceKB:
		return s.weights.KB
	case access.SourceCI:
		return s.weights.CI
	default:
		return 0
	}
}

// hasCrossSourceCorroboration reports whether any entity in the payload is
// referenced by sources of at least two distinct types.
func hasCrossSourceCorroboration(payload *retrieval.RawPayload) bool {
	typeByID := make(map[string]string, len(payload.RawSources))
	for _, src := range payload.RawSources {
		typeByID[src.ID] = src.Type
	}

	entityTypes := make(map[string]map[string]bool)
	note := func(entity, sourceID string) {
		srcType, ok := typeByID[sourceID]
		if !ok {
			return
		}
		if entityTypes[entity] == nil {
			entityTypes[entity] = make(map[string]bool)
		}
		entityTypes[entity][srcType] = true
	}

	for _, pair := range payload.RawEntityPairs {
		for _, sourceID := range pair.SourceIDs {
			note(pair.SourceEntity, sourceID)
			note(pair.TargetEntity, sourceID)
		}
	}

	for _, types := range entityTypes {
		if len(types) >= 2 {
			return true
		}
	}
	return false
}
