package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-assist/backend/internal/retrieval"
)

func TestBuildEmptyPayloadReturnsEmptySlice(t *testing.T) {
	b := NewChainBuilder()

	edges := b.Build(nil, DefaultChainLimit)
	require.NotNil(t, edges)
	assert.Empty(t, edges)

	edges = b.Build(&retrieval.RawPayload{}, DefaultChainLimit)
	require.NotNil(t, edges)
	assert.Empty(t, edges)
}

func TestBuildDeduplicatesTriples(t *testing.T) {
	b := NewChainBuilder()

	payload := &retrieval.RawPayload{
		RawEntityPairs: []retrieval.RawEntityPair{
			{SourceEntity: "VPN Gateway", TargetEntity: "Timeout", EdgeType: "causes", SourceIDs: []string{"t1"}},
			{SourceEntity: "VPN Gateway", TargetEntity: "Timeout", EdgeType: "causes", SourceIDs: []string{"t2"}},
			{SourceEntity: "VPN Gateway", TargetEntity: "Timeout", EdgeType: "resolved_by", SourceIDs: []string{"t1"}},
		},
	}

	edges := b.Build(payload, DefaultChainLimit)
	require.Len(t, edges, 2)

	// The duplicated triple aggregates both source IDs.
	assert.Equal(t, "causes", edges[0].EdgeType)
	assert.Equal(t, 2, edges[0].Corroboration)
	assert.Equal(t, 1, edges[1].Corroboration)
}

func TestBuildOrderingAndLimit(t *testing.T) {
	b := NewChainBuilder()

	payload := &retrieval.RawPayload{
		RawEntityPairs: []retrieval.RawEntityPair{
			{SourceEntity: "A", TargetEntity: "B", EdgeType: "uses", SourceIDs: []string{"s1"}},
			{SourceEntity: "C", TargetEntity: "D", EdgeType: "uses", SourceIDs: []string{"s1", "s2", "s3"}},
			{SourceEntity: "E", TargetEntity: "F", EdgeType: "uses", SourceIDs: []string{"s1", "s2"}},
			{SourceEntity: "G", TargetEntity: "H", EdgeType: "uses", SourceIDs: []string{"s4"}},
		},
	}

	edges := b.Build(payload, 3)
	require.Len(t, edges, 3)

	assert.Equal(t, "C", edges[0].SourceEntity)
	assert.Equal(t, "E", edges[1].SourceEntity)
	// A and G tie at corroboration 1; the lexically smaller description wins
	// the last slot.
	assert.Equal(t, "A", edges[2].SourceEntity)
}

func TestBuildTieBreakIsDeterministic(t *testing.T) {
	b := NewChainBuilder()

	payload := &retrieval.RawPayload{
		RawEntityPairs: []retrieval.RawEntityPair{
			{SourceEntity: "Zeta", TargetEntity: "Node", EdgeType: "uses", SourceIDs: []string{"s1"}},
			{SourceEntity: "Alpha", TargetEntity: "Node", EdgeType: "uses", SourceIDs: []string{"s2"}},
		},
	}

	for i := 0; i < 5; i++ {
		edges := b.Build(payload, DefaultChainLimit)
		require.Len(t, edges, 2)
		assert.Equal(t, "Alpha", edges[0].SourceEntity)
		assert.Equal(t, "Zeta", edges[1].SourceEntity)
	}
}

func TestBuildDescription(t *testing.T) {
	b := NewChainBuilder()

	payload := &retrieval.RawPayload{
		RawEntityPairs: []retrieval.RawEntityPair{
			{SourceEntity: "VPN Gateway", TargetEntity: "Timeout", EdgeType: "RESOLVED_BY", SourceIDs: []string{"t1"}},
			{SourceEntity: "Router", TargetEntity: "Switch", EdgeType: "", SourceIDs: []string{"t2"}},
		},
	}

	edges := b.Build(payload, DefaultChainLimit)
	require.Len(t, edges, 2)

	descriptions := []string{edges[0].Description, edges[1].Description}
	assert.Contains(t, descriptions, "VPN Gateway resolved by Timeout")
	assert.Contains(t, descriptions, "Router relates to Switch")
}

func TestBuildSkipsIncompletePairs(t *testing.T) {
	b := NewChainBuilder()

	payload := &retrieval.RawPayload{
		RawEntityPairs: []retrieval.RawEntityPair{
			{SourceEntity: "", TargetEntity: "B", EdgeType: "uses"},
			{SourceEntity: "A", TargetEntity: "", EdgeType: "uses"},
		},
	}

	edges := b.Build(payload, DefaultChainLimit)
	assert.Empty(t, edges)
}

func TestBuildCountsOccurrencesWithoutSourceIDs(t *testing.T) {
	b := NewChainBuilder()

	payload := &retrieval.RawPayload{
		RawEntityPairs: []retrieval.RawEntityPair{
			{SourceEntity: "A", TargetEntity: "B", EdgeType: "uses"},
			{SourceEntity: "A", TargetEntity: "B", EdgeType: "uses"},
		},
	}

	edges := b.Build(payload, DefaultChainLimit)
	require.Len(t, edges, 1)
	assert.Equal(t, 2, edges[0].Corroboration)
}
