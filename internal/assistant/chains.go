package assistant

import (
	"fmt"
	"sort"
	"strings"

	"github.com/helpdesk-assist/backend/internal/retrieval"
)

const DefaultChainLimit = 3

// RelationshipEdge is a derived, human-readable link between two entities
// that co-occur in retrieved evidence. Edges are not persisted unless a
// reviewer later promotes them into a validation sample.
type RelationshipEdge struct {
	SourceEntity  string `json:"source_entity"`
	TargetEntity  string `json:"target_entity"`
	EdgeType      string `json:"edge_type"`
	Description   string `json:"description"`
	Corroboration int    `json:"corroboration"`
}

type ChainBuilder struct{}

func NewChainBuilder() *ChainBuilder {
	return &ChainBuilder{}
}

// Build groups the payload's entity pairs into deduplicated edges, ordered
// by descending corroboration count with ties broken by the description
// string so the output is reproducible. Always returns a non-nil slice.
func (b *ChainBuilder) Build(payload *retrieval.RawPayload, limit int) []RelationshipEdge {
	if limit <= 0 {
		limit = DefaultChainLimit
	}

	edges := []RelationshipEdge{}
	if payload == nil || len(payload.RawEntityPairs) == 0 {
		return edges
	}

	type edgeAgg struct {
		pair        retrieval.RawEntityPair
		sourceIDs   map[string]bool
		occurrences int
	}

	grouped := make(map[string]*edgeAgg)
	for _, pair := range payload.RawEntityPairs {
		if pair.SourceEntity == "" || pair.TargetEntity == "" {
			continue
		}

		key := pair.SourceEntity + "\x00" + pair.EdgeType + "\x00" + pair.TargetEntity
		agg, ok := grouped[key]
		if !ok {
			agg = &edgeAgg{pair: pair, sourceIDs: make(map[string]bool)}
			grouped[key] = agg
		}
		agg.occurrences++
		for _, id := range pair.SourceIDs {
			agg.sourceIDs[id] = true
		}
	}

	for _, agg := range grouped {
		corroboration := len(agg.sourceIDs)
		if corroboration == 0 {
			corroboration = agg.occurrences
		}

		edges = append(edges, RelationshipEdge{
			SourceEntity:  agg.pair.SourceEntity,
			TargetEntity:  agg.pair.TargetEntity,
			EdgeType:      agg.pair.EdgeType,
			Description:   describeEdge(agg.pair),
			Corroboration: corroboration,
		})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Corroboration != edges[j].Corroboration {
			return edges[i].Corroboration > edges[j].Corroboration
		}
		return edges[i].Description < edges[j].Description
	})

	if len(edges) > limit {
		edges = edges[:limit]
	}

	return edges
}

func describeEdge(pair retrieval.RawEntityPair) string {
	verb := strings.ToLower(strings.ReplaceAll(pair.EdgeType, "_", " "))
	if verb == "" {
		verb = "relates to"
	}
	return fmt.Sprintf("%s %s %s", pair.SourceEntity, verb, pair.TargetEntity)
}
