package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shopmind/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLearning(storage LearningStorage, maxEntries int) *LearningService {
	embedding, _ := newTestEmbedding(map[string][]float32{
		"deliver": {0, 1, 0},
	})
	cfg := testAssistantConfig()
	if maxEntries > 0 {
		cfg.MaxLearningEntries = maxEntries
	}
	return NewLearningService(storage, embedding, cfg, zap.NewNop())
}

func TestRecordDeduplicatesByCasing(t *testing.T) {
	storage := &memoryStorage{}
	svc := newTestLearning(storage, 0)
	ctx := context.Background()

	svc.RecordLearningOpportunity(ctx, "What is this?", map[string]any{"reason": "low_confidence"})
	svc.RecordLearningOpportunity(ctx, "WHAT IS THIS?", map[string]any{"channel": "chat"})

	total, answered, pending := svc.Counts()
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, answered)
	assert.Equal(t, 1, pending)

	opportunities := svc.Opportunities(ctx, 10)
	require.Len(t, opportunities, 1)
	entry := opportunities[0]
	assert.Equal(t, "What is this?", entry.Question)
	assert.Equal(t, 2, entry.Occurrences)
	assert.Equal(t, "low_confidence", entry.Metadata["reason"])
	assert.Equal(t, "chat", entry.Metadata["channel"])
	assert.Equal(t, 1, storage.size())
}

func TestEvictionDropsOldestOnly(t *testing.T) {
	storage := &memoryStorage{}
	svc := newTestLearning(storage, 3)
	ctx := context.Background()

	svc.RecordLearningOpportunity(ctx, "first question", nil)
	svc.RecordLearningOpportunity(ctx, "second question", nil)
	svc.RecordLearningOpportunity(ctx, "third question", nil)
	// Bump the oldest: occurrence count must not save it from eviction.
	svc.RecordLearningOpportunity(ctx, "first question", nil)

	svc.RecordLearningOpportunity(ctx, "fourth question", nil)

	total, _, _ := svc.Counts()
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"second question", "third question", "fourth question"}, storage.keys())
}

func TestLearnUpsertsAnswer(t *testing.T) {
	storage := &memoryStorage{}
	svc := newTestLearning(storage, 0)
	ctx := context.Background()

	svc.RecordLearningOpportunity(ctx, "Do you deliver?", nil)
	svc.Learn(ctx, "do you DELIVER?", "Yes, nationwide.", map[string]any{"curator": "admin"})

	total, answered, pending := svc.Counts()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, answered)
	assert.Equal(t, 0, pending)

	// The curation marked the store dirty; the next freshness check
	// reloads and embeds the answered entry.
	svc.EnsureFresh(ctx, false)
	entries, vectors := svc.AnsweredCandidates()
	require.Len(t, entries, 1)
	require.Len(t, vectors, 1)
	require.NotNil(t, entries[0].Answer)
	assert.Equal(t, "Yes, nationwide.", *entries[0].Answer)
	assert.NotNil(t, entries[0].LastLearnedAt)
	assert.Equal(t, 1, entries[0].Occurrences)
}

func TestLearnCreatesMissingEntry(t *testing.T) {
	storage := &memoryStorage{}
	svc := newTestLearning(storage, 0)
	ctx := context.Background()

	svc.Learn(ctx, "What are your opening hours?", "10:00 to 20:00 every day.", nil)

	total, answered, _ := svc.Counts()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, answered)
	assert.Equal(t, 1, storage.size())
}

func TestUnreadableStorageResetsToEmpty(t *testing.T) {
	storage := &memoryStorage{loadErr: errors.New("disk corruption")}
	svc := newTestLearning(storage, 0)

	svc.EnsureFresh(context.Background(), true)

	total, _, _ := svc.Counts()
	assert.Equal(t, 0, total)
}

func TestConcurrentRecordsOfSameQuestion(t *testing.T) {
	storage := &memoryStorage{}
	svc := newTestLearning(storage, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				svc.RecordLearningOpportunity(ctx, "Where is my order?", map[string]any{"channel": "chat"})
			}
		}()
	}
	wg.Wait()

	total, _, _ := svc.Counts()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, storage.size())

	opportunities := svc.Opportunities(ctx, 1)
	require.Len(t, opportunities, 1)
	assert.Equal(t, 400, opportunities[0].Occurrences)
	assert.Equal(t, "chat", opportunities[0].Metadata["channel"])
}

// reloadingStorage forces a full reload in the middle of every upsert,
// simulating a freshness check racing the persistence of a mutation.
type reloadingStorage struct {
	*memoryStorage
	svc *LearningService
}

func (r *reloadingStorage) Upsert(ctx context.Context, e *models.QAEntry) error {
	if r.svc != nil {
		r.svc.EnsureFresh(ctx, true)
	}
	return r.memoryStorage.Upsert(ctx, e)
}

func TestLearnedAnswerSurvivesRacingReload(t *testing.T) {
	storage := &reloadingStorage{memoryStorage: &memoryStorage{}}
	svc := newTestLearning(storage, 0)
	storage.svc = svc
	ctx := context.Background()

	svc.Learn(ctx, "Do you deliver?", "Yes, nationwide.", nil)
	svc.EnsureFresh(ctx, false)

	entries, _ := svc.AnsweredCandidates()
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Answer)
	assert.Equal(t, "Yes, nationwide.", *entries[0].Answer)
}

func TestBlankQuestionIgnored(t *testing.T) {
	storage := &memoryStorage{}
	svc := newTestLearning(storage, 0)

	svc.RecordLearningOpportunity(context.Background(), "   ", nil)
	assert.Equal(t, 0, storage.upsertCount())
}
