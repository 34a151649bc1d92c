package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"shopmind/internal/models"
	"shopmind/pkg/config"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LearningStorage is the durable side of the learning store: one record
// per normalized question, atomic per-key upsert and delete, load in
// insertion order.
type LearningStorage interface {
	Load(ctx context.Context) ([]*models.QAEntry, error)
	Upsert(ctx context.Context, entry *models.QAEntry) error
	Delete(ctx context.Context, key string) error
}

// LearningService owns the growing question/answer knowledge: every asked
// question is recorded (answered or not), duplicates bump a counter, and
// curated answers become retrieval candidates via lazily built embeddings.
// The store is capped; when full, the oldest entry by insertion order is
// evicted regardless of how often it was asked.
type LearningService struct {
	storage   LearningStorage
	embedding *EmbeddingService
	cfg       *config.AssistantConfig
	logger    *zap.Logger

	reloadGroup singleflight.Group

	mu       sync.RWMutex
	entries  []*models.QAEntry
	index    map[string]*models.QAEntry
	loaded   bool
	loadedAt time.Time
	dirty    bool

	// answered/vectors are the QA retrieval snapshot, rebuilt only over
	// entries with a curated answer and swapped wholesale.
	answered []*models.QAEntry
	vectors  [][]float32
}

func NewLearningService(storage LearningStorage, embedding *EmbeddingService, cfg *config.AssistantConfig, logger *zap.Logger) *LearningService {
	return &LearningService{
		storage:   storage,
		embedding: embedding,
		cfg:       cfg,
		logger:    logger,
	}
}

// EnsureFresh reloads from storage when forced, when nothing is loaded
// yet, when a curation marked the store dirty, or when the refresh
// interval has elapsed. Concurrent callers share one reload.
func (s *LearningService) EnsureFresh(ctx context.Context, force bool) {
	if disabled, _ := s.embedding.Disabled(); disabled {
		return
	}
	if !force && !s.stale() {
		return
	}

	_, _, _ = s.reloadGroup.Do("reload", func() (any, error) {
		// Re-check under the guard: a caller scheduled after the shared
		// reload completed must not start a second one.
		if force || s.stale() {
			s.reload(ctx)
		}
		return nil, nil
	})
}

func (s *LearningService) stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded || s.dirty {
		return true
	}
	return time.Since(s.loadedAt) > s.cfg.LearningRefreshInterval
}

func (s *LearningService) reload(ctx context.Context) {
	entries, err := s.storage.Load(ctx)
	if err != nil {
		// Unreadable storage resets the in-memory store to empty. This is
		// a known data-loss risk, preferred over serving a corrupt store.
		s.logger.Error("Learning store unreadable, resetting to empty", zap.Error(err))
		entries = nil
	}

	index := make(map[string]*models.QAEntry, len(entries))
	for _, e := range entries {
		index[e.Key] = e
	}

	answered, vectors := s.embedAnswered(ctx, entries)

	s.mu.Lock()
	s.entries = entries
	s.index = index
	s.answered = answered
	s.vectors = vectors
	s.loaded = true
	s.loadedAt = time.Now()
	s.dirty = false
	s.mu.Unlock()

	s.logger.Info("Learning store loaded",
		zap.Int("entries", len(entries)),
		zap.Int("answered", len(answered)),
	)
}

func (s *LearningService) embedAnswered(ctx context.Context, entries []*models.QAEntry) ([]*models.QAEntry, [][]float32) {
	var answered []*models.QAEntry
	var texts []string
	for _, e := range entries {
		if e.Answered() {
			// Snapshot entries keep serving while the live ones mutate
			// under later record/learn calls.
			answered = append(answered, snapshotEntry(e))
			texts = append(texts, e.Question+"\n"+*e.Answer)
		}
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := s.embedding.Embed(ctx, texts)
	if err != nil {
		s.logger.Warn("QA embedding failed, answered entries unavailable this cycle", zap.Error(err))
		return nil, nil
	}
	if len(vectors) != len(answered) {
		return nil, nil
	}
	return answered, vectors
}

// RecordLearningOpportunity logs a question the assistant could not answer
// confidently. Duplicate questions (case-insensitive) increment the
// occurrence counter and merge metadata instead of creating a new entry.
// The mutation is persisted synchronously; persistence failures are logged
// only.
func (s *LearningService) RecordLearningOpportunity(ctx context.Context, question string, metadata map[string]any) {
	if disabled, _ := s.embedding.Disabled(); disabled {
		return
	}
	question = normalizeQuestion(question)
	if question == "" {
		return
	}
	s.EnsureFresh(ctx, false)

	key := QuestionKey(question)
	now := time.Now()

	s.mu.Lock()
	entry, ok := s.index[key]
	if ok {
		entry.Occurrences++
		entry.LastAskedAt = now
		mergeMetadata(entry, metadata)
	} else {
		entry = &models.QAEntry{
			Question:    question,
			Key:         key,
			CreatedAt:   now,
			LastAskedAt: now,
			Occurrences: 1,
			Metadata:    copyMetadata(metadata),
		}
		s.entries = append(s.entries, entry)
		s.index[key] = entry
	}
	evicted := s.evictLocked()
	persist := snapshotEntry(entry)
	s.mu.Unlock()

	if err := s.storage.Upsert(ctx, persist); err != nil {
		s.logger.Warn("Failed to persist learning opportunity", zap.Error(err))
	}
	if evicted != nil {
		if err := s.storage.Delete(ctx, evicted.Key); err != nil {
			s.logger.Warn("Failed to delete evicted entry", zap.Error(err))
		}
		if evicted.Answered() {
			s.markDirty()
		}
	}
}

// Learn upserts a curated answer. The QA retrieval snapshot is marked
// dirty so the next freshness check re-embeds it.
func (s *LearningService) Learn(ctx context.Context, question, answer string, metadata map[string]any) {
	if disabled, _ := s.embedding.Disabled(); disabled {
		return
	}
	question = normalizeQuestion(question)
	answer = strings.TrimSpace(sanitizeUTF8(answer))
	if question == "" || answer == "" {
		return
	}
	s.EnsureFresh(ctx, false)

	key := QuestionKey(question)
	now := time.Now()

	s.mu.Lock()
	entry, ok := s.index[key]
	if !ok {
		entry = &models.QAEntry{
			Question:    question,
			Key:         key,
			CreatedAt:   now,
			LastAskedAt: now,
			Occurrences: 1,
		}
		s.entries = append(s.entries, entry)
		s.index[key] = entry
	}
	entry.Answer = &answer
	entry.LastLearnedAt = &now
	mergeMetadata(entry, metadata)
	evicted := s.evictLocked()
	persist := snapshotEntry(entry)
	s.mu.Unlock()

	if err := s.storage.Upsert(ctx, persist); err != nil {
		s.logger.Warn("Failed to persist learned answer", zap.Error(err))
	}
	if evicted != nil {
		if err := s.storage.Delete(ctx, evicted.Key); err != nil {
			s.logger.Warn("Failed to delete evicted entry", zap.Error(err))
		}
	}
	// Publish only after the write has settled: a reload racing the
	// upsert would otherwise resurrect the pre-curation state and clear
	// the flag before the answer is durable.
	s.markDirty()

	s.logger.Info("Answer learned", zap.String("question", question))
}

// evictLocked drops the oldest entry when the cap is exceeded. Eviction is
// strictly FIFO by insertion order, even for high-occurrence entries. The
// caller marks the store dirty after deleting an answered evictee.
func (s *LearningService) evictLocked() *models.QAEntry {
	if s.cfg.MaxLearningEntries <= 0 || len(s.entries) <= s.cfg.MaxLearningEntries {
		return nil
	}
	oldest := s.entries[0]
	s.entries = s.entries[1:]
	delete(s.index, oldest.Key)
	return oldest
}

func (s *LearningService) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// AnsweredCandidates returns the QA retrieval snapshot: answered entries
// and their parallel unit vectors.
func (s *LearningService) AnsweredCandidates() ([]*models.QAEntry, [][]float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answered, s.vectors
}

// Opportunities lists unanswered questions for curation, most-asked first.
func (s *LearningService) Opportunities(ctx context.Context, limit int) []*models.QAEntry {
	if disabled, _ := s.embedding.Disabled(); disabled {
		return nil
	}
	s.EnsureFresh(ctx, false)

	s.mu.RLock()
	var pending []*models.QAEntry
	for _, e := range s.entries {
		if !e.Answered() {
			pending = append(pending, snapshotEntry(e))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Occurrences != pending[j].Occurrences {
			return pending[i].Occurrences > pending[j].Occurrences
		}
		return pending[i].LastAskedAt.After(pending[j].LastAskedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}

// Counts reports total, answered and pending entry counts.
func (s *LearningService) Counts() (total, answered, pending int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total = len(s.entries)
	for _, e := range s.entries {
		if e.Answered() {
			answered++
		}
	}
	return total, answered, total - answered
}

// normalizeQuestion trims, collapses whitespace and strips invalid UTF-8.
// The stored question keeps its casing; identity is the lowercased key.
func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(sanitizeUTF8(q)), " ")
}

// QuestionKey returns the case-insensitive identity key for a question.
func QuestionKey(q string) string {
	return strings.ToLower(normalizeQuestion(q))
}

// snapshotEntry deep-copies an entry, including its metadata map, so
// storage writes and API reads never share mutable state with the store.
func snapshotEntry(e *models.QAEntry) *models.QAEntry {
	clone := *e
	clone.Metadata = copyMetadata(e.Metadata)
	return &clone
}

func mergeMetadata(entry *models.QAEntry, metadata map[string]any) {
	if len(metadata) == 0 {
		return
	}
	if entry.Metadata == nil {
		entry.Metadata = make(map[string]any, len(metadata))
	}
	for k, v := range metadata {
		entry.Metadata[k] = v
	}
}

func copyMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

// sanitizeUTF8 strips invalid UTF-8 byte sequences so questions and
// answers are always safe to persist as Postgres text.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = s[size:]
	}
	return b.String()
}
