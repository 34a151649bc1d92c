package service

import (
	"context"
	"errors"
	"hash/fnv"
)

// LocalEmbedder is a deterministic hashed bag-of-words backend: every
// token is hashed into one of Dimensions buckets and the bucket counts
// form the vector. It captures literal token overlap only, but it needs
// no network or API key, which makes it useful for development and
// seeding. Vectors are normalized by the embedding service afterwards.
type LocalEmbedder struct {
	dimensions int
}

func NewLocalEmbedder(dimensions int) (*LocalEmbedder, error) {
	if dimensions <= 0 {
		return nil, errors.New("embedding dimensions must be positive")
	}
	return &LocalEmbedder{dimensions: dimensions}, nil
}

func (e *LocalEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimensions)
		for _, token := range tokenize(text) {
			h := fnv.New32a()
			h.Write([]byte(token))
			vec[h.Sum32()%uint32(e.dimensions)]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}
