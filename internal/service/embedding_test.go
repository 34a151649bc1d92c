package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbedReturnsUnitVectors(t *testing.T) {
	svc, _ := newTestEmbedding(map[string][]float32{
		"sneakers": {3, 4, 0},
	})

	vectors, err := svc.Embed(context.Background(), []string{"red sneakers"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)

	assert.InDelta(t, 0.6, float64(vectors[0][0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vectors[0][1]), 1e-6)
	assert.InDelta(t, 1.0, dot(vectors[0], vectors[0]), 1e-6)
}

func TestEmbedZeroVectorUnchanged(t *testing.T) {
	svc, _ := newTestEmbedding(nil)

	vectors, err := svc.Embed(context.Background(), []string{"anything"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)

	assert.Equal(t, []float32{0, 0, 0}, vectors[0])
	assert.Equal(t, 0.0, dot(vectors[0], vectors[0]))
}

func TestEmbedEmptyInput(t *testing.T) {
	svc, stub := newTestEmbedding(nil)

	vectors, err := svc.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, 0, stub.callCount(), "backend should not be touched for empty input")
}

func TestInitFailureDisablesPermanently(t *testing.T) {
	var factoryCalls atomic.Int32
	svc := NewEmbeddingService(func() (Embedder, error) {
		factoryCalls.Add(1)
		return nil, errors.New("model file missing")
	}, zap.NewNop())

	vectors, err := svc.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Nil(t, vectors)

	disabled, reason := svc.Disabled()
	assert.True(t, disabled)
	assert.Contains(t, reason, "model file missing")

	// Subsequent calls stay no-ops and never retry the factory.
	vectors, err = svc.Embed(context.Background(), []string{"hello again"})
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, int32(1), factoryCalls.Load())
}

func TestConcurrentFirstCallsShareOneInit(t *testing.T) {
	var factoryCalls atomic.Int32
	stub := newStubEmbedder(nil)
	svc := NewEmbeddingService(func() (Embedder, error) {
		factoryCalls.Add(1)
		return stub, nil
	}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Embed(context.Background(), []string{"warmup"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), factoryCalls.Load())
}

func TestNormalizeSelfSimilarity(t *testing.T) {
	cases := [][]float32{
		{1, 2, 3},
		{0.001, 0, -5},
		{42},
	}
	for _, v := range cases {
		n := Normalize(v)
		assert.InDelta(t, 1.0, dot(n, n), 1e-6)
		assert.InDelta(t, 1.0, l2(n), 1e-6)
	}
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	e, err := NewLocalEmbedder(64)
	require.NoError(t, err)

	a, err := e.Embed(context.Background(), []string{"wool winter scarf"})
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), []string{"wool winter scarf"})
	require.NoError(t, err)

	assert.Equal(t, a[0], b[0])
	assert.Greater(t, l2(a[0]), 0.0)
}

func TestLocalEmbedderRejectsBadDimensions(t *testing.T) {
	_, err := NewLocalEmbedder(0)
	assert.Error(t, err)
}

func l2(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
