package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"shopmind/internal/models"
	"shopmind/pkg/config"

	"go.uber.org/zap"
)

// stubEmbedder returns a canned vector for any text containing one of its
// keys and the zero vector otherwise, so unrelated candidates score 0 and
// drop out of ranking.
type stubEmbedder struct {
	mu    sync.Mutex
	vecs  map[string][]float32
	dims  int
	calls int
}

func newStubEmbedder(vecs map[string][]float32) *stubEmbedder {
	dims := 3
	for _, v := range vecs {
		dims = len(v)
		break
	}
	return &stubEmbedder{vecs: vecs, dims: dims}
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := make([]float32, s.dims)
		for key, v := range s.vecs {
			if strings.Contains(lower, key) {
				vec = v
				break
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestEmbedding(vecs map[string][]float32) (*EmbeddingService, *stubEmbedder) {
	stub := newStubEmbedder(vecs)
	svc := NewEmbeddingService(func() (Embedder, error) {
		return stub, nil
	}, zap.NewNop())
	return svc, stub
}

type fakeProductSource struct {
	mu       sync.Mutex
	products []*models.Product
	err      error
	calls    int
	block    chan struct{}
}

func (f *fakeProductSource) ListActive(context.Context) ([]*models.Product, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	err := f.err
	products := f.products
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (f *fakeProductSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memoryStorage is an in-memory LearningStorage keeping insertion order,
// standing in for the Postgres-backed repository.
type memoryStorage struct {
	mu      sync.Mutex
	entries []*models.QAEntry
	loadErr error
	upserts int
}

func (m *memoryStorage) Load(context.Context) ([]*models.QAEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]*models.QAEntry, len(m.entries))
	for i, e := range m.entries {
		out[i] = snapshotEntry(e)
	}
	return out, nil
}

func (m *memoryStorage) Upsert(_ context.Context, entry *models.QAEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	clone := snapshotEntry(entry)
	for i, e := range m.entries {
		if e.Key == entry.Key {
			m.entries[i] = clone
			return nil
		}
	}
	m.entries = append(m.entries, clone)
	return nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.Key == key {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memoryStorage) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *memoryStorage) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

func (m *memoryStorage) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Key
	}
	return out
}

func testAssistantConfig() *config.AssistantConfig {
	return &config.AssistantConfig{
		ProductRefreshInterval:  30 * time.Minute,
		LearningRefreshInterval: 5 * time.Minute,
		DirectAnswerConfidence:  0.45,
		LearningConfidence:      0.30,
		MaxLearningEntries:      2000,
		KeywordBoostProduct:     0.03,
		KeywordBoostQA:          0.02,
		KeywordBoostCap:         0.18,
		AnswerLimit:             3,
		PriceSuffix:             "MNT",
	}
}
