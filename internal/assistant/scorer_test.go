package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helpdesk-assist/backend/internal/retrieval"
)

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, TierHigh, Tier(1.0))
	assert.Equal(t, TierHigh, Tier(0.7))
	assert.Equal(t, TierMedium, Tier(0.6999))
	assert.Equal(t, TierMedium, Tier(0.5))
	assert.Equal(t, TierLow, Tier(0.4999))
	assert.Equal(t, TierLow, Tier(0))
}

func TestScoreWeightedAverage(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 0.05)

	// ticket 0.9 at weight 0.6 plus kb 0.6 at weight 0.4 gives 0.78.
	payload := &retrieval.RawPayload{
		RawSources: []retrieval.RawSource{
			{ID: "t1", Type: "ticket", Relevance: 0.9},
			{ID: "k1", Type: "kb", Relevance: 0.6},
		},
	}

	confidence, tier := scorer.Score(payload, false)
	assert.InDelta(t, 0.78, confidence, 1e-9)
	assert.Equal(t, TierHigh, tier)
}

func TestScoreEmptyPayload(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 0.05)

	confidence, tier := scorer.Score(nil, true)
	assert.Equal(t, 0.0, confidence)
	assert.Equal(t, TierLow, tier)

	confidence, tier = scorer.Score(&retrieval.RawPayload{}, true)
	assert.Equal(t, 0.0, confidence)
	assert.Equal(t, TierLow, tier)
}

func TestScoreUnknownSourceTypeIgnored(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 0.05)

	payload := &retrieval.RawPayload{
		RawSources: []retrieval.RawSource{
			{ID: "x1", Type: "wiki", Relevance: 1.0},
		},
	}

	confidence, tier := scorer.Score(payload, false)
	assert.Equal(t, 0.0, confidence)
	assert.Equal(t, TierLow, tier)
}

func corroboratedPayload() *retrieval.RawPayload {
	return &retrieval.RawPayload{
		RawSources: []retrieval.RawSource{
			{ID: "t1", Type: "ticket", Relevance: 0.9},
			{ID: "k1", Type: "kb", Relevance: 0.6},
		},
		RawEntityPairs: []retrieval.RawEntityPair{
			{SourceEntity: "VPN Gateway", TargetEntity: "Timeout", EdgeType: "causes", SourceIDs: []string{"t1", "k1"}},
		},
	}
}

func TestScoreCorroborationBoostRequiresAnalytics(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 0.05)
	payload := corroboratedPayload()

	plain, _ := scorer.Score(payload, false)
	boosted, _ := scorer.Score(payload, true)

	assert.InDelta(t, 0.78, plain, 1e-9)
	assert.InDelta(t, 0.83, boosted, 1e-9)
}

func TestScoreNoBoostWithinSingleSourceType(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 0.05)

	payload := &retrieval.RawPayload{
		RawSources: []retrieval.RawSource{
			{ID: "t1", Type: "ticket", Relevance: 0.8},
			{ID: "t2", Type: "ticket", Relevance: 0.8},
		},
		RawEntityPairs: []retrieval.RawEntityPair{
			{SourceEntity: "DNS", TargetEntity: "Outage", EdgeType: "causes", SourceIDs: []string{"t1", "t2"}},
		},
	}

	confidence, _ := scorer.Score(payload, true)
	assert.InDelta(t, 0.8, confidence, 1e-9)
}

func TestScoreBoostCapped(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 0.5)
	payload := corroboratedPayload()

	boosted, _ := scorer.Score(payload, true)
	assert.InDelta(t, 0.83, boosted, 1e-9)
}

func TestScoreClampedToOne(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 0.05)

	payload := &retrieval.RawPayload{
		RawSources: []retrieval.RawSource{
			{ID: "t1", Type: "ticket", Relevance: 1.0},
			{ID: "k1", Type: "kb", Relevance: 1.0},
		},
		RawEntityPairs: []retrieval.RawEntityPair{
			{SourceEntity: "A", TargetEntity: "B", EdgeType: "uses", SourceIDs: []string{"t1", "k1"}},
		},
	}

	confidence, tier := scorer.Score(payload, true)
	assert.Equal(t, 1.0, confidence)
	assert.Equal(t, TierHigh, tier)
}

func TestScoreDeterministic(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 0.05)
	payload := corroboratedPayload()

	first, _ := scorer.Score(payload, true)
	for i := 0; i < 10; i++ {
		again, _ := scorer.Score(payload, true)
		assert.Equal(t, first, again)
	}
}
