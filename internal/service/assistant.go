package service

import (
	"context"
	"sort"
	"strings"

	"shopmind/internal/dto"
	"shopmind/internal/models"
	"shopmind/pkg/config"

	"go.uber.org/zap"
)

type candidateKind int

const (
	candidateProduct candidateKind = iota
	candidateQA
)

// candidate is one scored retrieval hit. Exactly one of product/qa is set
// depending on kind.
type candidate struct {
	kind     candidateKind
	product  *models.ProductKnowledgeEntry
	qa       *models.QAEntry
	score    float64
	adjusted float64
}

// AssistantService is the retrieval and ranking engine behind the
// shopping assistant: embed the question, score it against the product
// knowledge cache and the learned answers, boost literal keyword overlap
// and hand the ranked candidates to the response composer.
type AssistantService struct {
	embedding *EmbeddingService
	knowledge *KnowledgeService
	learning  *LearningService
	cfg       *config.AssistantConfig
	logger    *zap.Logger
}

func NewAssistantService(
	embedding *EmbeddingService,
	knowledge *KnowledgeService,
	learning *LearningService,
	cfg *config.AssistantConfig,
	logger *zap.Logger,
) *AssistantService {
	return &AssistantService{
		embedding: embedding,
		knowledge: knowledge,
		learning:  learning,
		cfg:       cfg,
		logger:    logger,
	}
}

// Answer runs the full pipeline for one question. It returns nil when the
// knowledge base is disabled, the question is blank, or embedding yields
// nothing; every degraded condition reduces to "no answer", never an
// error escaping to the caller.
func (s *AssistantService) Answer(ctx context.Context, question string, limit int) *dto.AssistantAnswer {
	if disabled, _ := s.embedding.Disabled(); disabled {
		return nil
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}
	if limit <= 0 {
		limit = s.cfg.AnswerLimit
	}

	// Freshness is established before any scoring happens.
	s.knowledge.EnsureFresh(ctx, false)
	s.learning.EnsureFresh(ctx, false)

	queryVec := s.embedQuestion(ctx, question)
	if queryVec == nil {
		return nil
	}

	ranked := s.rank(queryVec, question, limit, false)
	answer, learnReason := s.compose(question, ranked)

	if learnReason != "" {
		metadata := map[string]any{"reason": learnReason}
		if answer != nil {
			metadata["confidence"] = answer.Confidence
		}
		s.learning.RecordLearningOpportunity(ctx, question, metadata)
	}
	return answer
}

// FindSimilarProducts is the narrower product-only entry point: same
// embedding and scoring machinery, no confidence gating, no learning
// side effects.
func (s *AssistantService) FindSimilarProducts(ctx context.Context, query string, limit int) []dto.Reference {
	if disabled, _ := s.embedding.Disabled(); disabled {
		return nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if limit <= 0 {
		limit = s.cfg.AnswerLimit
	}

	s.knowledge.EnsureFresh(ctx, false)

	queryVec := s.embedQuestion(ctx, query)
	if queryVec == nil {
		return nil
	}

	ranked := s.rank(queryVec, query, limit, true)
	refs := make([]dto.Reference, 0, len(ranked))
	for _, c := range ranked {
		refs = append(refs, toReference(c))
	}
	return refs
}

// Status reports the observable state of the knowledge base.
func (s *AssistantService) Status(ctx context.Context) dto.StatusResponse {
	if disabled, reason := s.embedding.Disabled(); disabled {
		return dto.StatusResponse{Enabled: false, DisabledReason: reason}
	}

	products, _ := s.knowledge.Entries()
	_, answered, pending := s.learning.Counts()

	resp := dto.StatusResponse{
		Enabled:          true,
		Products:         len(products),
		LearnedAnswers:   answered,
		PendingQuestions: pending,
	}
	if at := s.knowledge.RefreshedAt(); !at.IsZero() {
		resp.ProductRefreshedAt = at.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

func (s *AssistantService) embedQuestion(ctx context.Context, question string) []float32 {
	vectors, err := s.embedding.Embed(ctx, []string{question})
	if err != nil {
		s.logger.Warn("Question embedding failed", zap.Error(err))
		return nil
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil
	}
	return vectors[0]
}

// rank scores every candidate against the query vector, applies the
// keyword boost and returns the top candidates in stable descending
// order. Products are enumerated before QA entries, so ties keep that
// discovery order.
func (s *AssistantService) rank(queryVec []float32, question string, limit int, productsOnly bool) []candidate {
	var candidates []candidate

	products, productVecs := s.knowledge.Entries()
	for i, p := range products {
		if i >= len(productVecs) {
			break
		}
		if score := dot(queryVec, productVecs[i]); score > 0 {
			candidates = append(candidates, candidate{kind: candidateProduct, product: p, score: score})
		}
	}

	if !productsOnly {
		answered, qaVecs := s.learning.AnsweredCandidates()
		for i, e := range answered {
			if i >= len(qaVecs) {
				break
			}
			if score := dot(queryVec, qaVecs[i]); score > 0 {
				candidates = append(candidates, candidate{kind: candidateQA, qa: e, score: score})
			}
		}
	}

	keywords := extractKeywords(question)
	for i := range candidates {
		c := &candidates[i]
		switch c.kind {
		case candidateProduct:
			c.adjusted = c.score + keywordBoost(keywords, searchableText(c.product), s.cfg.KeywordBoostProduct, s.cfg.KeywordBoostCap)
		case candidateQA:
			haystack := c.qa.Question
			if c.qa.Answer != nil {
				haystack += " " + *c.qa.Answer
			}
			c.adjusted = c.score + keywordBoost(keywords, haystack, s.cfg.KeywordBoostQA, s.cfg.KeywordBoostCap)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].adjusted > candidates[j].adjusted
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func toReference(c candidate) dto.Reference {
	switch c.kind {
	case candidateProduct:
		return dto.Reference{
			Type:     "product",
			ID:       c.product.ID.String(),
			Name:     c.product.Name,
			Price:    c.product.Price,
			Category: c.product.Category,
			Image:    c.product.Image,
			Score:    c.adjusted,
		}
	default:
		ref := dto.Reference{
			Type:     "qa",
			Question: c.qa.Question,
			Score:    c.adjusted,
		}
		if c.qa.Answer != nil {
			ref.Answer = *c.qa.Answer
		}
		return ref
	}
}
