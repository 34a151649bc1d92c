package models

import (
	"time"
)

// QAEntry is one learned (or still unanswered) question in the learning store.
// Entries are unique by Key, the case-insensitive normalized form of the
// question; asking a duplicate bumps Occurrences instead of appending.
type QAEntry struct {
	Question    string         `db:"question" json:"question"`
	Key         string         `db:"question_key" json:"-"`
	Answer      *string        `db:"answer" json:"answer"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	LastAskedAt time.Time      `db:"last_asked_at" json:"lastAskedAt"`
	Occurrences int            `db:"occurrences" json:"occurrences"`
	Metadata    map[string]any `db:"metadata" json:"metadata"`

	// LastLearnedAt is set when an operator curates an answer via learn().
	LastLearnedAt *time.Time `db:"last_learned_at" json:"lastLearnedAt,omitempty"`
}

// Answered reports whether the entry has a curated, non-empty answer.
// Only answered entries participate in QA retrieval.
func (e *QAEntry) Answered() bool {
	return e.Answer != nil && *e.Answer != ""
}
