package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAssistant(source *fakeProductSource, storage *memoryStorage) *AssistantService {
	embedding, _ := newTestEmbedding(map[string][]float32{
		"red sneakers": {1, 0, 0},
		"deliver":      {0, 1, 0},
	})
	cfg := testAssistantConfig()
	logger := zap.NewNop()
	knowledge := NewKnowledgeService(source, embedding, cfg, logger)
	learning := NewLearningService(storage, embedding, cfg, logger)
	return NewAssistantService(embedding, knowledge, learning, cfg, logger)
}

func TestAnswerComposesProductResponse(t *testing.T) {
	source := &fakeProductSource{products: testProducts()}
	storage := &memoryStorage{}
	svc := newTestAssistant(source, storage)

	answer := svc.Answer(context.Background(), "How much are the red sneakers?", 0)

	require.NotNil(t, answer)
	assert.Contains(t, answer.Answer, "Red Sneakers looks like the best match")
	assert.Contains(t, answer.Answer, "Current price: 20,000 MNT")
	assert.Contains(t, answer.Answer, "Category: Shoes")
	assert.Contains(t, answer.Answer, "It is in stock.")
	assert.False(t, answer.NeedsLearning)
	assert.False(t, answer.LowConfidence)
	assert.Greater(t, answer.Confidence, 1.0, "keyword overlap must boost the cosine score")

	require.NotEmpty(t, answer.References)
	assert.Equal(t, "product", answer.References[0].Type)
	assert.Equal(t, "Red Sneakers", answer.References[0].Name)

	// A confident answer is not a learning opportunity.
	assert.Equal(t, 0, storage.upsertCount())
}

func TestAnswerReturnsLearnedAnswerVerbatim(t *testing.T) {
	source := &fakeProductSource{products: testProducts()}
	storage := &memoryStorage{}
	svc := newTestAssistant(source, storage)

	svc.learning.Learn(context.Background(), "Do you deliver?", "Yes, we deliver nationwide within 3 days.", nil)

	answer := svc.Answer(context.Background(), "do you deliver", 0)

	require.NotNil(t, answer)
	assert.Equal(t, "Yes, we deliver nationwide within 3 days.", answer.Answer)
	assert.False(t, answer.NeedsLearning)
	assert.False(t, answer.LowConfidence)

	require.NotEmpty(t, answer.References)
	assert.Equal(t, "qa", answer.References[0].Type)
	assert.Equal(t, "Do you deliver?", answer.References[0].Question)
}

func TestGreetingRecordsLearningOpportunity(t *testing.T) {
	source := &fakeProductSource{products: testProducts()}
	storage := &memoryStorage{}
	svc := newTestAssistant(source, storage)

	answer := svc.Answer(context.Background(), "hi", 0)

	require.NotNil(t, answer)
	assert.Contains(t, answer.Answer, "Hello! Ask me anything")
	assert.True(t, answer.NeedsLearning)
	assert.True(t, answer.LowConfidence)
	assert.Empty(t, answer.References)

	opportunities := svc.learning.Opportunities(context.Background(), 10)
	require.Len(t, opportunities, 1)
	assert.Equal(t, "hi", opportunities[0].Question)
	assert.Equal(t, "low_confidence", opportunities[0].Metadata["reason"])
}

func TestBlankQuestionYieldsNoAnswer(t *testing.T) {
	source := &fakeProductSource{products: testProducts()}
	storage := &memoryStorage{}
	svc := newTestAssistant(source, storage)

	assert.Nil(t, svc.Answer(context.Background(), "   ", 0))
	assert.Equal(t, 0, storage.upsertCount())
}

func TestDisabledAssistantAnswersNothing(t *testing.T) {
	source := &fakeProductSource{products: testProducts()}
	storage := &memoryStorage{}
	embedding := NewEmbeddingService(func() (Embedder, error) {
		return nil, errors.New("no model")
	}, zap.NewNop())
	_, _ = embedding.Embed(context.Background(), []string{"warmup"})

	cfg := testAssistantConfig()
	logger := zap.NewNop()
	knowledge := NewKnowledgeService(source, embedding, cfg, logger)
	learning := NewLearningService(storage, embedding, cfg, logger)
	svc := NewAssistantService(embedding, knowledge, learning, cfg, logger)

	assert.Nil(t, svc.Answer(context.Background(), "how much are the red sneakers", 0))
	assert.Nil(t, svc.FindSimilarProducts(context.Background(), "sneakers", 0))
	assert.Equal(t, 0, source.callCount())
	assert.Equal(t, 0, storage.upsertCount())

	status := svc.Status(context.Background())
	assert.False(t, status.Enabled)
	assert.Contains(t, status.DisabledReason, "no model")
}

func TestFindSimilarProductsSkipsLearnedAnswers(t *testing.T) {
	source := &fakeProductSource{products: testProducts()}
	storage := &memoryStorage{}
	svc := newTestAssistant(source, storage)

	svc.learning.Learn(context.Background(), "red sneakers sizing?", "They run small, order one size up.", nil)

	refs := svc.FindSimilarProducts(context.Background(), "red sneakers", 5)

	require.Len(t, refs, 1)
	assert.Equal(t, "product", refs[0].Type)
	assert.Equal(t, "Red Sneakers", refs[0].Name)
	// No gating and no side effects on the learning store.
	assert.Equal(t, 1, storage.upsertCount())
}

func TestStatusReportsCounts(t *testing.T) {
	source := &fakeProductSource{products: testProducts()}
	storage := &memoryStorage{}
	svc := newTestAssistant(source, storage)

	ctx := context.Background()
	svc.learning.Learn(ctx, "Do you deliver?", "Yes.", nil)
	svc.learning.RecordLearningOpportunity(ctx, "Do you gift wrap?", nil)
	_ = svc.Answer(ctx, "do you deliver", 0)

	status := svc.Status(ctx)
	assert.True(t, status.Enabled)
	assert.Equal(t, 2, status.Products)
	assert.Equal(t, 1, status.LearnedAnswers)
	assert.Equal(t, 1, status.PendingQuestions)
	assert.NotEmpty(t, status.ProductRefreshedAt)
}
