package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"shopmind/internal/models"
	"shopmind/pkg/config"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProductSource lists the active products of the storefront catalog. The
// catalog itself is an external collaborator; this is the only call the
// assistant makes into it.
type ProductSource interface {
	ListActive(ctx context.Context) ([]*models.Product, error)
}

// KnowledgeService maintains the searchable snapshot of the product
// catalog: one context string and one embedding vector per active
// product. The snapshot is rebuilt wholesale and swapped atomically;
// readers always see either the previous complete snapshot or the new
// one, never a mix.
type KnowledgeService struct {
	source    ProductSource
	embedding *EmbeddingService
	cfg       *config.AssistantConfig
	logger    *zap.Logger

	refreshGroup singleflight.Group

	mu          sync.RWMutex
	entries     []*models.ProductKnowledgeEntry
	vectors     [][]float32
	refreshedAt time.Time
}

func NewKnowledgeService(source ProductSource, embedding *EmbeddingService, cfg *config.AssistantConfig, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{
		source:    source,
		embedding: embedding,
		cfg:       cfg,
		logger:    logger,
	}
}

// EnsureFresh refreshes the snapshot when forced, when the cache is empty
// or when the refresh interval has elapsed; otherwise it is a no-op.
// Concurrent callers attach to the refresh already in flight instead of
// hitting the catalog twice.
func (s *KnowledgeService) EnsureFresh(ctx context.Context, force bool) {
	if disabled, _ := s.embedding.Disabled(); disabled {
		return
	}
	if !force && !s.stale() {
		return
	}

	_, _, _ = s.refreshGroup.Do("products", func() (any, error) {
		// Re-check under the guard: a caller scheduled after the shared
		// refresh completed must not start a second one.
		if force || s.stale() {
			s.refresh(ctx)
		}
		return nil, nil
	})
}

// Entries returns the current snapshot: entries and the parallel vector
// slice. Both are replaced wholesale, never mutated, so callers may read
// them without holding the lock.
func (s *KnowledgeService) Entries() ([]*models.ProductKnowledgeEntry, [][]float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries, s.vectors
}

// RefreshedAt returns when the snapshot was last rebuilt.
func (s *KnowledgeService) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

func (s *KnowledgeService) stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return true
	}
	return time.Since(s.refreshedAt) > s.cfg.ProductRefreshInterval
}

// refresh fetches, re-contextualizes and re-embeds the whole catalog. On
// fetch or embedding failure the previous snapshot is kept: availability
// over freshness.
func (s *KnowledgeService) refresh(ctx context.Context) {
	products, err := s.source.ListActive(ctx)
	if err != nil {
		s.logger.Warn("Product fetch failed, keeping stale knowledge cache", zap.Error(err))
		return
	}

	entries := make([]*models.ProductKnowledgeEntry, 0, len(products))
	contexts := make([]string, 0, len(products))
	for _, p := range products {
		entry := buildKnowledgeEntry(p)
		entries = append(entries, entry)
		contexts = append(contexts, entry.Context)
	}

	var vectors [][]float32
	if len(contexts) > 0 {
		vectors, err = s.embedding.Embed(ctx, contexts)
		if err != nil {
			s.logger.Warn("Product embedding failed, keeping stale knowledge cache", zap.Error(err))
			return
		}
		if len(vectors) != len(entries) {
			// Disabled mid-refresh; keep whatever we had.
			return
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.vectors = vectors
	s.refreshedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("Product knowledge refreshed", zap.Int("products", len(entries)))
}

// buildKnowledgeEntry flattens a product into its searchable snapshot.
// The context concatenates every field a shopper might phrase a question
// around.
func buildKnowledgeEntry(p *models.Product) *models.ProductKnowledgeEntry {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Category != "" {
		b.WriteString(". Category: ")
		b.WriteString(p.Category)
	}
	if p.Description != "" {
		b.WriteString(". ")
		b.WriteString(p.Description)
	}
	if len(p.Tags) > 0 {
		b.WriteString(". Tags: ")
		b.WriteString(strings.Join(p.Tags, ", "))
	}
	if p.Brand != "" {
		b.WriteString(". Brand: ")
		b.WriteString(p.Brand)
	}
	if p.Price != nil {
		b.WriteString(fmt.Sprintf(". Price: %.0f", *p.Price))
	}

	return &models.ProductKnowledgeEntry{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Category:    p.Category,
		Tags:        p.Tags,
		Image:       p.MainImage,
		Brand:       p.Brand,
		SKU:         p.SKU,
		Stock:       p.StockQuantity,
		Description: p.Description,
		Context:     b.String(),
	}
}

// searchableText is the haystack keyword boosting matches against.
func searchableText(e *models.ProductKnowledgeEntry) string {
	parts := []string{e.Name, e.Category, e.Description}
	parts = append(parts, e.Tags...)
	return strings.Join(parts, " ")
}
