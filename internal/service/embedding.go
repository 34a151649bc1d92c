package service

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"
)

// Embedder converts a batch of texts into their vector representations.
// The returned slice is parallel to the input. Implementations must be
// safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFactory builds the underlying embedding backend. It is invoked
// at most once, on first use.
type EmbedderFactory func() (Embedder, error)

// EmbeddingService fronts the embedding backend for the whole knowledge
// base. The backend is initialized lazily on first use; concurrent first
// callers share the single initialization attempt. If initialization
// fails the service disables itself permanently for the process lifetime
// and the knowledge base degrades to no-op answers instead of crashing.
type EmbeddingService struct {
	factory EmbedderFactory
	logger  *zap.Logger

	initOnce sync.Once
	embedder Embedder

	mu             sync.RWMutex
	disabledReason string
}

func NewEmbeddingService(factory EmbedderFactory, logger *zap.Logger) *EmbeddingService {
	return &EmbeddingService{
		factory: factory,
		logger:  logger,
	}
}

// Embed embeds the given texts and L2-normalizes every returned vector.
// Empty input returns empty output. When the service is disabled it
// returns (nil, nil): the caller sees "no vectors", never an error.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !s.ready() {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	for i := range vectors {
		vectors[i] = Normalize(vectors[i])
	}
	return vectors, nil
}

// Disabled reports whether the knowledge base has been permanently
// disabled, with the recorded human-readable reason.
func (s *EmbeddingService) Disabled() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disabledReason != "", s.disabledReason
}

func (s *EmbeddingService) ready() bool {
	s.initOnce.Do(func() {
		embedder, err := s.factory()
		if err != nil {
			s.disable("embedding model initialization failed: " + err.Error())
			s.logger.Error("Embedding backend unavailable, assistant disabled", zap.Error(err))
			return
		}
		s.embedder = embedder
		s.logger.Info("Embedding backend initialized")
	})

	disabled, _ := s.Disabled()
	return !disabled
}

func (s *EmbeddingService) disable(reason string) {
	s.mu.Lock()
	s.disabledReason = reason
	s.mu.Unlock()
}

// Normalize scales v to unit L2 length. A zero-norm vector is returned
// unchanged so cosine similarity against it is always 0, never NaN.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot is cosine similarity for unit vectors. Mismatched lengths score 0.
func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
