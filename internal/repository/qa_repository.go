package repository

import (
	"context"
	"encoding/json"
	"shopmind/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// QARepository persists the learning store. Each entry is one row keyed by
// the normalized question, written with an atomic per-key upsert; insertion
// order is preserved via a serial position column so FIFO eviction has a
// stable notion of "oldest".
type QARepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewQARepository(db *pgxpool.Pool, logger *zap.Logger) *QARepository {
	return &QARepository{
		db:     db,
		logger: logger,
	}
}

func (r *QARepository) Load(ctx context.Context) ([]*models.QAEntry, error) {
	query := squirrel.Select("question", "question_key", "answer", "created_at", "last_asked_at", "occurrences", "metadata", "last_learned_at").
		From("qa_entries").
		OrderBy("position ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.QAEntry
	for rows.Next() {
		var e models.QAEntry
		var metadata []byte
		if err := rows.Scan(
			&e.Question, &e.Key, &e.Answer, &e.CreatedAt, &e.LastAskedAt, &e.Occurrences, &metadata, &e.LastLearnedAt,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				r.logger.Warn("Skipping unreadable QA metadata", zap.String("question", e.Question), zap.Error(err))
			}
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

func (r *QARepository) Upsert(ctx context.Context, e *models.QAEntry) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}

	query := squirrel.Insert("qa_entries").
		Columns("question", "question_key", "answer", "created_at", "last_asked_at", "occurrences", "metadata", "last_learned_at").
		Values(e.Question, e.Key, e.Answer, e.CreatedAt, e.LastAskedAt, e.Occurrences, metadata, e.LastLearnedAt).
		Suffix(`ON CONFLICT (question_key) DO UPDATE SET
			question = EXCLUDED.question,
			answer = EXCLUDED.answer,
			last_asked_at = EXCLUDED.last_asked_at,
			occurrences = EXCLUDED.occurrences,
			metadata = EXCLUDED.metadata,
			last_learned_at = EXCLUDED.last_learned_at`).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *QARepository) Delete(ctx context.Context, key string) error {
	query := squirrel.Delete("qa_entries").
		Where(squirrel.Eq{"question_key": key}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
