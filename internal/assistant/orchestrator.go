package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/internal/access"
	"github.com/helpdesk-assist/backend/internal/metrics"
	"github.com/helpdesk-assist/backend/internal/retrieval"
	"github.com/helpdesk-assist/backend/internal/storage/models"
	"github.com/helpdesk-assist/backend/pkg/logger"
	"github.com/helpdesk-assist/backend/pkg/utils"
)

var ErrEmptyQuery = errors.New("query text is empty")

// RequestContext carries the authenticated requester identity into every
// orchestrator call. There is no ambient session state.
type RequestContext struct {
	UserID string
	Role   access.Role
}

// Query is immutable once issued by a caller.
type Query struct {
	Text          string
	SearchTickets bool
	SearchKB      bool
	SearchCI      bool
	TopK          int
}

type SourceDocument struct {
	ID         string  `json:"id"`
	SourceType string  `json:"source_type"`
	Title      string  `json:"title"`
	Relevance  float64 `json:"relevance"`
	Excerpt    string  `json:"excerpt"`
}

type ScoredResult struct {
	ID                string             `json:"id"`
	Answer            string             `json:"ai_answer"`
	Confidence        float64            `json:"confidence_score"`
	ConfidenceTier    string             `json:"confidence_tier"`
	Sources           []SourceDocument   `json:"sources"`
	Relationships     []RelationshipEdge `json:"relationships"`
	NoSourcesSelected bool               `json:"no_sources_selected,omitempty"`
	Cached            bool               `json:"cached,omitempty"`
	LatencyMS         int                `json:"response_time_ms"`
}

// QueryCounter tracks successful queries per UTC calendar day. The day
// boundary is derived from the key, so there is no explicit reset job.
type QueryCounter interface {
	IncrementDaily(ctx context.Context, day string) error
}

// ResultCache stores scored results keyed by (role, query, flags) so a
// repeated identical question does not trigger a second generation call.
type ResultCache interface {
	Get(ctx context.Context, key string, v interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// HistoryStore persists answered queries for the admin analytics view.
type HistoryStore interface {
	InsertQueryRecord(record *models.QueryRecord) error
	InsertQuerySource(source *models.QuerySource) error
}

type Orchestrator struct {
	retriever retrieval.Retriever
	scorer    *Scorer
	chains    *ChainBuilder
	counter   QueryCounter
	cache     ResultCache
	history   HistoryStore
	cacheTTL  time.Duration
}

func NewOrchestrator(
	retriever retrieval.Retriever,
	scorer *Scorer,
	chains *ChainBuilder,
	counter QueryCounter,
	cache ResultCache,
	history HistoryStore,
	cacheTTL time.Duration,
) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		scorer:    scorer,
		chains:    chains,
		counter:   counter,
		cache:     cache,
		history:   history,
		cacheTTL:  cacheTTL,
	}
}

// Ask dispatches one query to the external retrieval+generation service
// under the requester's capability set and post-processes the raw payload
// into a scored, capped, relationship-annotated result.
//
// An unreachable or timed-out service surfaces as retrieval.ErrUnavailable;
// the call is never retried here since a retry would duplicate an expensive
// generation.
func (o *Orchestrator) Ask(ctx context.Context, rc RequestContext, q Query) (*ScoredResult, error) {
	startTime := time.Now()
	queryID := uuid.New().String()

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	capability := access.ResolveOrDefault(rc.Role)

	logger.Info("Processing assistant query",
		zap.String("query_id", queryID),
		zap.String("user_id", rc.UserID),
		zap.String("role", string(rc.Role)),
	)

	allowed := o.effectiveSources(capability, q)
	if len(allowed) == 0 {
		logger.Info("No sources selected after capability intersection",
			zap.String("query_id", queryID),
		)
		metrics.QueryTotal.WithLabelValues(string(rc.Role), "no_sources").Inc()
		return &ScoredResult{
			ID:                queryID,
			Answer:            "No knowledge sources are selected or available for your role.",
			Confidence:        0,
			ConfidenceTier:    TierLow,
			Sources:           []SourceDocument{},
			Relationships:     []RelationshipEdge{},
			NoSourcesSelected: true,
			LatencyMS:         int(time.Since(startTime).Milliseconds()),
		}, nil
	}

	topK := q.TopK
	if topK <= 0 || topK > capability.MaxResults {
		topK = capability.MaxResults
	}

	// Work past the cache lookup is detached from caller cancellation: if
	// the client disconnects mid-request the upstream generation still runs
	// to completion, the query still counts, and the result is discarded,
	// leaving upstream billing and usage stats in a consistent state. The
	// retrieval client enforces its own hard timeout.
	detached := context.WithoutCancel(ctx)

	cacheKey := utils.CacheKey(string(rc.Role), text, strings.Join(allowed, ","))
	if o.cache != nil {
		var cached ScoredResult
		hit, err := o.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			logger.Warn("Result cache lookup failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("result").Inc()
			// A cache-served answer is still an answered query.
			o.countQuery(detached)
			cached.Cached = true
			cached.LatencyMS = int(time.Since(startTime).Milliseconds())
			return &cached, nil
		}
		metrics.CacheMisses.WithLabelValues("result").Inc()
	}

	payload, err := o.retriever.Retrieve(detached, retrieval.Request{
		QueryText:      text,
		AllowedSources: allowed,
		TopK:           topK,
	})
	if err != nil {
		if errors.Is(err, retrieval.ErrUnavailable) {
			logger.Warn("Retrieval service unavailable",
				zap.String("query_id", queryID),
				zap.Error(err),
			)
			metrics.QueryTotal.WithLabelValues(string(rc.Role), "unavailable").Inc()
			return nil, err
		}
		metrics.QueryTotal.WithLabelValues(string(rc.Role), "error").Inc()
		return nil, fmt.Errorf("failed to query retrieval service: %w", err)
	}

	filtered := o.filterPayload(payload, capability)

	confidence, tier := o.scorer.Score(filtered, capability.AnalyticsEnabled)
	relationships := o.chains.Build(filtered, DefaultChainLimit)
	sources := collectSources(filtered, topK)

	latency := int(time.Since(startTime).Milliseconds())

	result := &ScoredResult{
		ID:             queryID,
		Answer:         payload.AnswerText,
		Confidence:     confidence,
		ConfidenceTier: tier,
		Sources:        sources,
		Relationships:  relationships,
		LatencyMS:      latency,
	}

	o.countQuery(detached)

	o.recordHistory(rc, text, result)

	if o.cache != nil {
		if err := o.cache.Set(detached, cacheKey, result, o.cacheTTL); err != nil {
			logger.Warn("Failed to cache result", zap.Error(err))
		}
	}

	metrics.QueryTotal.WithLabelValues(string(rc.Role), "ok").Inc()
	metrics.QueryDuration.WithLabelValues(string(rc.Role)).Observe(time.Since(startTime).Seconds())
	metrics.ConfidenceScore.Observe(confidence)
	metrics.SourcesReturned.Observe(float64(len(sources)))

	logger.Info("Assistant query processed",
		zap.String("query_id", queryID),
		zap.Float64("confidence", confidence),
		zap.String("tier", tier),
		zap.Int("sources", len(sources)),
		zap.Int("latency_ms", latency),
	)

	return result, nil
}

// effectiveSources intersects the caller's requested source flags with the
// sources the role is allowed to see.
func (o *Orchestrator) effectiveSources(capability access.Capability, q Query) []string {
	requested := map[access.SourceType]bool{
		access.SourceTicket: q.SearchTickets,
		access.SourceKB:     q.SearchKB,
		access.SourceCI:     q.SearchCI,
	}

	allowed := []string{}
	for _, sourceType := range []access.SourceType{access.SourceTicket, access.SourceKB, access.SourceCI} {
		if requested[sourceType] && capability.Allows(sourceType) {
			allowed = append(allowed, string(sourceType))
		}
	}
	return allowed
}

// filterPayload drops any source the capability disallows, along with
// entity pairs whose evidence came only from dropped sources. The service
// is told which sources are allowed, but a misbehaving reply must not leak
// restricted material into the score or the answer annotations.
func (o *Orchestrator) filterPayload(payload *retrieval.RawPayload, capability access.Capability) *retrieval.RawPayload {
	kept := make([]retrieval.RawSource, 0, len(payload.RawSources))
	keptIDs := make(map[string]bool)
	for _, src := range payload.RawSources {
		if capability.Allows(access.SourceType(src.Type)) {
			kept = append(kept, src)
			keptIDs[src.ID] = true
		}
	}

	pairs := make([]retrieval.RawEntityPair, 0, len(payload.RawEntityPairs))
	for _, pair := range payload.RawEntityPairs {
		if len(pair.SourceIDs) == 0 {
			pairs = append(pairs, pair)
			continue
		}
		for _, id := range pair.SourceIDs {
			if keptIDs[id] {
				pairs = append(pairs, pair)
				break
			}
		}
	}

	return &retrieval.RawPayload{
		AnswerText:     payload.AnswerText,
		RawSources:     kept,
		RawEntityPairs: pairs,
	}
}

func collectSources(payload *retrieval.RawPayload, topK int) []SourceDocument {
	sources := make([]SourceDocument, 0, len(payload.RawSources))
	for _, src := range payload.RawSources {
		sources = append(sources, SourceDocument{
			ID:         src.ID,
			SourceType: src.Type,
			Title:      src.Title,
			Relevance:  src.Relevance,
			Excerpt:    src.Excerpt,
		})
	}

	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Relevance != sources[j].Relevance {
			return sources[i].Relevance > sources[j].Relevance
		}
		return sources[i].ID < sources[j].ID
	})

	if len(sources) > topK {
		sources = sources[:topK]
	}
	return sources
}

// countQuery increments the daily counter for the current UTC day. Failed
// and short-circuited queries never reach this.
func (o *Orchestrator) countQuery(ctx context.Context) {
	if o.counter == nil {
		return
	}

	day := time.Now().UTC().Format("2006-01-02")
	if err := o.counter.IncrementDaily(ctx, day); err != nil {
		logger.Warn("Failed to increment daily query counter", zap.Error(err))
	}
}

func (o *Orchestrator) recordHistory(rc RequestContext, text string, result *ScoredResult) {
	if o.history == nil {
		return
	}

	record := &models.QueryRecord{
		ID:             result.ID,
		UserID:         rc.UserID,
		Role:           string(rc.Role),
		QueryText:      text,
		Answer:         result.Answer,
		Confidence:     result.Confidence,
		ConfidenceTier: result.ConfidenceTier,
		SourceCount:    len(result.Sources),
		LatencyMS:      result.LatencyMS,
		CreatedAt:      time.Now(),
	}

	if err := o.history.InsertQueryRecord(record); err != nil {
		logger.Warn("Failed to record query history", zap.Error(err))
		return
	}

	for _, src := range result.Sources {
		err := o.history.InsertQuerySource(&models.QuerySource{
			QueryID:    result.ID,
			SourceType: src.SourceType,
			SourceID:   src.ID,
			Title:      src.Title,
			Relevance:  src.Relevance,
		})
		if err != nil {
			logger.Warn("Failed to record query source", zap.Error(err))
		}
	}
}
