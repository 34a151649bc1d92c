package dto

type AskRequest struct {
	Question string `json:"question" validate:"required"`
	Limit    int    `json:"limit,omitempty"`
}

type LearnRequest struct {
	Question string         `json:"question" validate:"required"`
	Answer   string         `json:"answer" validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Reference is one ranked candidate reduced to what the chat UI renders.
// Product references carry id/name/price/category/image; QA references
// carry the stored question and answer.
type Reference struct {
	Type     string   `json:"type"` // "product" or "qa"
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Category string   `json:"category,omitempty"`
	Image    string   `json:"image,omitempty"`
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Score    float64  `json:"score"`
}

// AssistantAnswer is the payload handed back to the chat caller.
type AssistantAnswer struct {
	Answer        string      `json:"answer"`
	Confidence    float64     `json:"confidence"`
	References    []Reference `json:"references"`
	NeedsLearning bool        `json:"needsLearning"`
	LowConfidence bool        `json:"lowConfidence"`
}

type OpportunityResponse struct {
	Question    string `json:"question"`
	Occurrences int    `json:"occurrences"`
	LastAskedAt string `json:"last_asked_at"`
}

type StatusResponse struct {
	Enabled            bool   `json:"enabled"`
	DisabledReason     string `json:"disabled_reason,omitempty"`
	Products           int    `json:"products"`
	LearnedAnswers     int    `json:"learned_answers"`
	PendingQuestions   int    `json:"pending_questions"`
	ProductRefreshedAt string `json:"product_refreshed_at,omitempty"`
}
