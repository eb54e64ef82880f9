package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/internal/metrics"
	"github.com/helpdesk-assist/backend/internal/storage/models"
	"github.com/helpdesk-assist/backend/pkg/logger"
	"github.com/helpdesk-assist/backend/pkg/retry"
)

var (
	// ErrSchemaNotReady means the validation tables have not been created
	// by the offline sampling process yet. Surfaced to the UI as "feature
	// not yet enabled", never as a crash.
	ErrSchemaNotReady = errors.New("validation schema not ready")

	ErrSampleNotFound     = errors.New("validation sample not found")
	ErrValidationNotFound = errors.New("validation id not found")
)

// Store is the persistence surface the workflow needs. Implemented by the
// sqlite client; tests substitute an in-memory fake.
type Store interface {
	HasValidationSchema() (bool, error)
	CountSamples() (total int, validated int, err error)
	NextUnvalidatedSample() (*models.ValidationSample, error)
	UpdateEntityJudgment(validationID int64, isCorrect bool, shouldBeType, notes string, at time.Time) (int64, error)
	UpdateRelationshipJudgment(validationID int64, isCorrect bool, notes string, at time.Time) (int64, error)
	MarkSampleComplete(sampleID int64, reviewerID string, at time.Time) (int64, error)
	EntityJudgmentCounts() (judged int, correct int, err error)
	RelationshipJudgmentCounts() (judged int, correct int, err error)
}

type Progress struct {
	Total         int     `json:"total"`
	Validated     int     `json:"validated"`
	CompletionPct float64 `json:"completion_pct"`
}

// Report carries extraction-quality metrics computed from human judgments.
// Recall needs an externally supplied ground-truth entity count; without
// one it is reported as undefined, never as a fabricated zero.
type Report struct {
	EntityPrecision       float64 `json:"entity_precision"`
	RelationshipPrecision float64 `json:"relationship_precision"`
	Recall                float64 `json:"recall"`
	F1                    float64 `json:"f1"`
	RecallDefined         bool    `json:"recall_defined"`
	JudgedEntities        int     `json:"judged_entities"`
	CorrectEntities       int     `json:"correct_entities"`
	JudgedRelationships   int     `json:"judged_relationships"`
}

type Workflow struct {
	store       Store
	retryConfig retry.Config
	now         func() time.Time

	// Shared across concurrent requests, hence atomic.
	schemaReady atomic.Bool
}

func NewWorkflow(store Store) *Workflow {
	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	return &Workflow{
		store:       store,
		retryConfig: retryConfig,
		now:         time.Now,
	}
}

// ensureReady probes for the validation tables. A positive probe is cached:
// the sampling process only ever creates tables, it never drops them.
func (w *Workflow) ensureReady(ctx context.Context) error {
	if w.schemaReady.Load() {
		return nil
	}

	var ready bool
	err := retry.Do(ctx, w.retryConfig, func() error {
		var probeErr error
		ready, probeErr = w.store.HasValidationSchema()
		return probeErr
	})
	if err != nil {
		return fmt.Errorf("failed to probe validation schema: %w", err)
	}

	if !ready {
		return ErrSchemaNotReady
	}

	w.schemaReady.Store(true)
	return nil
}

func (w *Workflow) Progress(ctx context.Context) (*Progress, error) {
	if err := w.ensureReady(ctx); err != nil {
		return nil, err
	}

	total, validated, err := w.store.CountSamples()
	if err != nil {
		return nil, err
	}

	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(validated)/float64(total)*1000) / 10
	}

	metrics.ValidationCompletion.Set(pct)

	return &Progress{
		Total:         total,
		Validated:     validated,
		CompletionPct: pct,
	}, nil
}

// NextUnvalidatedSample returns the next sample in ascending sample_id
// order, or nil when the queue is exhausted.
func (w *Workflow) NextUnvalidatedSample(ctx context.Context) (*models.ValidationSample, error) {
	if err := w.ensureReady(ctx); err != nil {
		return nil, err
	}

	return w.store.NextUnvalidatedSample()
}

// RecordEntityJudgment upserts a reviewer's verdict on one extracted
// entity. Re-judging is a supported workflow: the last write wins and
// validated_at always reflects the most recent call.
func (w *Workflow) RecordEntityJudgment(ctx context.Context, validationID int64, isCorrect bool, shouldBeType, notes string) error {
	if err := w.ensureReady(ctx); err != nil {
		return err
	}

	affected, err := w.store.UpdateEntityJudgment(validationID, isCorrect, shouldBeType, notes, w.now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrValidationNotFound, validationID)
	}

	metrics.ValidationJudgments.WithLabelValues("entity").Inc()

	logger.Debug("Entity judgment recorded",
		zap.Int64("validation_id", validationID),
		zap.Bool("is_correct", isCorrect),
	)

	return nil
}

func (w *Workflow) RecordRelationshipJudgment(ctx context.Context, validationID int64, isCorrect bool, notes string) error {
	if err := w.ensureReady(ctx); err != nil {
		return err
	}

	affected, err := w.store.UpdateRelationshipJudgment(validationID, isCorrect, notes, w.now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrValidationNotFound, validationID)
	}

	metrics.ValidationJudgments.WithLabelValues("relationship").Inc()

	return nil
}

// MarkSampleComplete closes out a sample. Completion is a human decision:
// it is allowed even while some judgments in the sample are still pending,
// so an awkward edge case never blocks a reviewer.
func (w *Workflow) MarkSampleComplete(ctx context.Context, sampleID int64, reviewerID string) error {
	if err := w.ensureReady(ctx); err != nil {
		return err
	}

	affected, err := w.store.MarkSampleComplete(sampleID, reviewerID, w.now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrSampleNotFound, sampleID)
	}

	logger.Info("Validation sample marked complete",
		zap.Int64("sample_id", sampleID),
		zap.String("reviewer", reviewerID),
	)

	return nil
}

// Metrics computes precision over judged items only (pending judgments are
// excluded, not counted as wrong). groundTruthEntities <= 0 means no ground
// truth was supplied, which leaves recall and f1 undefined.
func (w *Workflow) Metrics(ctx context.Context, groundTruthEntities int) (*Report, error) {
	if err := w.ensureReady(ctx); err != nil {
		return nil, err
	}

	judgedEntities, correctEntities, err := w.store.EntityJudgmentCounts()
	if err != nil {
		return nil, err
	}

	judgedRelationships, correctRelationships, err := w.store.RelationshipJudgmentCounts()
	if err != nil {
		return nil, err
	}

	report := &Report{
		JudgedEntities:      judgedEntities,
		CorrectEntities:     correctEntities,
		JudgedRelationships: judgedRelationships,
	}

	if judgedEntities > 0 {
		report.EntityPrecision = float64(correctEntities) / float64(judgedEntities)
	}
	if judgedRelationships > 0 {
		report.RelationshipPrecision = float64(correctRelationships) / float64(judgedRelationships)
	}

	if groundTruthEntities > 0 {
		report.RecallDefined = true
		report.Recall = float64(correctEntities) / float64(groundTruthEntities)
		if report.EntityPrecision+report.Recall > 0 {
			report.F1 = 2 * report.EntityPrecision * report.Recall / (report.EntityPrecision + report.Recall)
		}
	}

	return report, nil
}
