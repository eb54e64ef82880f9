package validation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-assist/backend/internal/storage/models"
)

type fakeEntity struct {
	isCorrect    bool
	shouldBeType string
	notes        string
	judgedAt     time.Time
	judged       bool
}

type fakeStore struct {
	mu          sync.Mutex
	schemaReady bool
	probes      int

	samples    map[int64]*models.ValidationSample
	entities   map[int64]*fakeEntity
	rels       map[int64]*fakeEntity
	relCorrect int
}

func newFakeStore(ready bool) *fakeStore {
	return &fakeStore{
		schemaReady: ready,
		samples:     make(map[int64]*models.ValidationSample),
		entities:    make(map[int64]*fakeEntity),
		rels:        make(map[int64]*fakeEntity),
	}
}

func (s *fakeStore) HasValidationSchema() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes++
	return s.schemaReady, nil
}

func (s *fakeStore) probeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probes
}

func (s *fakeStore) CountSamples() (int, int, error) {
	total, validated := 0, 0
	for _, sample := range s.samples {
		total++
		if sample.Validated {
			validated++
		}
	}
	return total, validated, nil
}

func (s *fakeStore) NextUnvalidatedSample() (*models.ValidationSample, error) {
	var next *models.ValidationSample
	for _, sample := range s.samples {
		if sample.Validated {
			continue
		}
		if next == nil || sample.SampleID < next.SampleID {
			next = sample
		}
	}
	return next, nil
}

func (s *fakeStore) UpdateEntityJudgment(id int64, isCorrect bool, shouldBeType, notes string, at time.Time) (int64, error) {
	e, ok := s.entities[id]
	if !ok {
		return 0, nil
	}
	e.isCorrect = isCorrect
	e.shouldBeType = shouldBeType
	e.notes = notes
	e.judgedAt = at
	e.judged = true
	return 1, nil
}

func (s *fakeStore) UpdateRelationshipJudgment(id int64, isCorrect bool, notes string, at time.Time) (int64, error) {
	r, ok := s.rels[id]
	if !ok {
		return 0, nil
	}
	r.isCorrect = isCorrect
	r.notes = notes
	r.judgedAt = at
	r.judged = true
	return 1, nil
}

func (s *fakeStore) MarkSampleComplete(id int64, reviewerID string, at time.Time) (int64, error) {
	sample, ok := s.samples[id]
	if !ok {
		return 0, nil
	}
	sample.Validated = true
	sample.ValidatedBy = reviewerID
	sample.ValidatedAt = &at
	return 1, nil
}

func (s *fakeStore) EntityJudgmentCounts() (int, int, error) {
	judged, correct := 0, 0
	for _, e := range s.entities {
		if !e.judged {
			continue
		}
		judged++
		if e.isCorrect {
			correct++
		}
	}
	return judged, correct, nil
}

func (s *fakeStore) RelationshipJudgmentCounts() (int, int, error) {
	judged, correct := 0, 0
	for _, r := range s.rels {
		if !r.judged {
			continue
		}
		judged++
		if r.isCorrect {
			correct++
		}
	}
	return judged, correct, nil
}

func TestProgressSchemaNotReady(t *testing.T) {
	w := NewWorkflow(newFakeStore(false))

	_, err := w.Progress(context.Background())
	assert.ErrorIs(t, err, ErrSchemaNotReady)
}

func TestSchemaProbeCachedOncePositive(t *testing.T) {
	store := newFakeStore(true)
	w := NewWorkflow(store)

	_, err := w.Progress(context.Background())
	require.NoError(t, err)
	_, err = w.Progress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, store.probeCount())
}

func TestProgressConcurrentRequests(t *testing.T) {
	store := newFakeStore(true)
	for i := int64(1); i <= 4; i++ {
		store.samples[i] = &models.ValidationSample{SampleID: i, Validated: i <= 2}
	}
	w := NewWorkflow(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := w.Progress(context.Background())
			if assert.NoError(t, err) {
				assert.Equal(t, 50.0, p.CompletionPct)
			}
		}()
	}
	wg.Wait()
}

func TestProgressEmptyTableIsZeroPercent(t *testing.T) {
	w := NewWorkflow(newFakeStore(true))

	p, err := w.Progress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, p.Total)
	assert.Equal(t, 0.0, p.CompletionPct)
}

func TestProgressRounding(t *testing.T) {
	store := newFakeStore(true)
	for i := int64(1); i <= 10; i++ {
		store.samples[i] = &models.ValidationSample{SampleID: i, Validated: i <= 7}
	}
	w := NewWorkflow(store)

	p, err := w.Progress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, p.Total)
	assert.Equal(t, 7, p.Validated)
	assert.Equal(t, 70.0, p.CompletionPct)
}

func TestProgressRoundsToOneDecimal(t *testing.T) {
	store := newFakeStore(true)
	for i := int64(1); i <= 3; i++ {
		store.samples[i] = &models.ValidationSample{SampleID: i, Validated: i == 1}
	}
	w := NewWorkflow(store)

	p, err := w.Progress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 33.3, p.CompletionPct)
}

func TestNextUnvalidatedSampleOrder(t *testing.T) {
	store := newFakeStore(true)
	store.samples[3] = &models.ValidationSample{SampleID: 3}
	store.samples[1] = &models.ValidationSample{SampleID: 1, Validated: true}
	store.samples[2] = &models.ValidationSample{SampleID: 2}
	w := NewWorkflow(store)

	sample, err := w.NextUnvalidatedSample(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sample)
	assert.Equal(t, int64(2), sample.SampleID)
}

func TestNextUnvalidatedSampleExhausted(t *testing.T) {
	store := newFakeStore(true)
	store.samples[1] = &models.ValidationSample{SampleID: 1, Validated: true}
	w := NewWorkflow(store)

	sample, err := w.NextUnvalidatedSample(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sample)
}

func TestRecordEntityJudgmentLastWriteWins(t *testing.T) {
	store := newFakeStore(true)
	store.entities[7] = &fakeEntity{}
	w := NewWorkflow(store)

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	w.now = func() time.Time { return first }
	require.NoError(t, w.RecordEntityJudgment(context.Background(), 7, true, "", "looks right"))

	w.now = func() time.Time { return second }
	require.NoError(t, w.RecordEntityJudgment(context.Background(), 7, false, "service", "actually a service"))

	e := store.entities[7]
	assert.False(t, e.isCorrect)
	assert.Equal(t, "service", e.shouldBeType)
	assert.Equal(t, "actually a service", e.notes)
	assert.Equal(t, second, e.judgedAt)
}

func TestRecordEntityJudgmentNotFound(t *testing.T) {
	w := NewWorkflow(newFakeStore(true))

	err := w.RecordEntityJudgment(context.Background(), 99, true, "", "")
	assert.ErrorIs(t, err, ErrValidationNotFound)
}

func TestRecordRelationshipJudgmentNotFound(t *testing.T) {
	w := NewWorkflow(newFakeStore(true))

	err := w.RecordRelationshipJudgment(context.Background(), 99, false, "")
	assert.ErrorIs(t, err, ErrValidationNotFound)
}

func TestMarkSampleCompleteWithPendingJudgments(t *testing.T) {
	store := newFakeStore(true)
	store.samples[4] = &models.ValidationSample{SampleID: 4}
	store.entities[1] = &fakeEntity{} // still pending
	w := NewWorkflow(store)

	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	require.NoError(t, w.MarkSampleComplete(context.Background(), 4, "reviewer-1"))

	sample := store.samples[4]
	assert.True(t, sample.Validated)
	assert.Equal(t, "reviewer-1", sample.ValidatedBy)
	require.NotNil(t, sample.ValidatedAt)
	assert.Equal(t, at, *sample.ValidatedAt)
}

func TestMarkSampleCompleteNotFound(t *testing.T) {
	w := NewWorkflow(newFakeStore(true))

	err := w.MarkSampleComplete(context.Background(), 42, "reviewer-1")
	assert.ErrorIs(t, err, ErrSampleNotFound)
}

func TestMetricsPrecisionOverJudgedOnly(t *testing.T) {
	store := newFakeStore(true)
	store.entities[1] = &fakeEntity{judged: true, isCorrect: true}
	store.entities[2] = &fakeEntity{judged: true, isCorrect: true}
	store.entities[3] = &fakeEntity{judged: true, isCorrect: false}
	store.entities[4] = &fakeEntity{} // pending, must not count as wrong
	store.rels[1] = &fakeEntity{judged: true, isCorrect: true}
	store.rels[2] = &fakeEntity{judged: true, isCorrect: false}
	w := NewWorkflow(store)

	report, err := w.Metrics(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 3, report.JudgedEntities)
	assert.Equal(t, 2, report.CorrectEntities)
	assert.InDelta(t, 2.0/3.0, report.EntityPrecision, 1e-9)
	assert.InDelta(t, 0.5, report.RelationshipPrecision, 1e-9)
}

func TestMetricsRecallUndefinedWithoutGroundTruth(t *testing.T) {
	store := newFakeStore(true)
	store.entities[1] = &fakeEntity{judged: true, isCorrect: true}
	w := NewWorkflow(store)

	report, err := w.Metrics(context.Background(), 0)
	require.NoError(t, err)

	assert.False(t, report.RecallDefined)
	assert.Equal(t, 0.0, report.Recall)
	assert.Equal(t, 0.0, report.F1)
}

func TestMetricsRecallAndF1WithGroundTruth(t *testing.T) {
	store := newFakeStore(true)
	store.entities[1] = &fakeEntity{judged: true, isCorrect: true}
	store.entities[2] = &fakeEntity{judged: true, isCorrect: true}
	store.entities[3] = &fakeEntity{judged: true, isCorrect: false}
	w := NewWorkflow(store)

	report, err := w.Metrics(context.Background(), 4)
	require.NoError(t, err)

	require.True(t, report.RecallDefined)
	assert.InDelta(t, 0.5, report.Recall, 1e-9)

	precision := 2.0 / 3.0
	expected := 2 * precision * 0.5 / (precision + 0.5)
	assert.InDelta(t, expected, report.F1, 1e-9)
}

func TestMetricsNoJudgments(t *testing.T) {
	w := NewWorkflow(newFakeStore(true))

	report, err := w.Metrics(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.EntityPrecision)
	assert.Equal(t, 0.0, report.RelationshipPrecision)
	assert.Equal(t, 0, report.JudgedEntities)
}
