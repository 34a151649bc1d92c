package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"shopmind/internal/dto"
)

const descriptionLimit = 320

// greetingTokens are short acknowledgement words that deserve a canned
// greeting instead of the generic "still learning" fallback.
var greetingTokens = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {},
	"ok": {}, "okay": {}, "yes": {}, "yeah": {}, "sure": {},
	"thanks": {}, "thank": {}, "bye": {}, "goodbye": {},
}

// compose turns the ranked candidates into the final answer payload. The
// decision runs in priority order on the best adjusted score: low
// confidence falls back and records a learning opportunity; a confident
// QA hit is returned verbatim; everything else becomes a composed product
// answer, prefixed with a disclaimer (and also recorded) when still below
// the direct-answer threshold. The returned reason is empty when nothing
// needs to be recorded.
func (s *AssistantService) compose(question string, ranked []candidate) (*dto.AssistantAnswer, string) {
	best := 0.0
	if len(ranked) > 0 {
		best = ranked[0].adjusted
	}

	refs := make([]dto.Reference, 0, len(ranked))
	for _, c := range ranked {
		refs = append(refs, toReference(c))
	}

	// Path 1: nothing matched well enough to answer at all.
	if len(ranked) == 0 || best < s.cfg.LearningConfidence {
		return &dto.AssistantAnswer{
			Answer:        s.fallbackText(question, ranked),
			Confidence:    best,
			References:    refs,
			NeedsLearning: true,
			LowConfidence: true,
		}, "low_confidence"
	}

	// Path 2: a confident, curated answer is returned verbatim.
	top := ranked[0]
	if best >= s.cfg.DirectAnswerConfidence && top.kind == candidateQA && top.qa.Answered() {
		return &dto.AssistantAnswer{
			Answer:     *top.qa.Answer,
			Confidence: best,
			References: refs,
		}, ""
	}

	// Path 3: compose from the ranked product candidates.
	text := s.composeProductAnswer(ranked)
	answer := &dto.AssistantAnswer{
		Answer:     text,
		Confidence: best,
		References: refs,
	}
	if best < s.cfg.DirectAnswerConfidence {
		answer.Answer = "I'm not completely sure, but here's what I found. " + answer.Answer
		answer.NeedsLearning = true
		answer.LowConfidence = true
		return answer, "low_confidence_answer"
	}
	return answer, ""
}

// fallbackText picks the low-confidence response: canned greeting, a
// nudge towards loosely matching products, or the generic rephrase ask.
func (s *AssistantService) fallbackText(question string, ranked []candidate) string {
	if isGreeting(question) {
		return "Hello! Ask me anything about our products, prices or availability and I'll do my best to help."
	}
	for _, c := range ranked {
		if c.kind == candidateProduct {
			return "I found some products that might be related to your question. Could you tell me a bit more about what you're looking for?"
		}
	}
	return "I'm still learning and don't have a good answer for that yet. Could you rephrase your question?"
}

// composeProductAnswer builds the template answer from the top product
// candidates: headline, price, category, truncated description, stock
// line, and up to 3 alternatives. Falls back to the best QA answer when
// the ranking contains no products at all.
func (s *AssistantService) composeProductAnswer(ranked []candidate) string {
	var products []candidate
	for _, c := range ranked {
		if c.kind == candidateProduct {
			products = append(products, c)
		}
	}
	if len(products) == 0 {
		for _, c := range ranked {
			if c.kind == candidateQA && c.qa.Answered() {
				return *c.qa.Answer
			}
		}
		return "I couldn't find a matching product for that."
	}

	primary := products[0].product
	var lines []string
	lines = append(lines, fmt.Sprintf("%s looks like the best match for your question.", primary.Name))
	if primary.Price != nil {
		lines = append(lines, fmt.Sprintf("Current price: %s %s", formatPrice(*primary.Price), s.cfg.PriceSuffix))
	}
	if primary.Category != "" {
		lines = append(lines, "Category: "+primary.Category)
	}
	if primary.Description != "" {
		lines = append(lines, truncate(primary.Description, descriptionLimit))
	}
	if primary.Stock > 0 {
		lines = append(lines, "It is in stock.")
	} else {
		lines = append(lines, "It is currently low on stock.")
	}

	if len(products) > 1 {
		var names []string
		for _, c := range products[1:] {
			names = append(names, c.product.Name)
			if len(names) == 3 {
				break
			}
		}
		lines = append(lines, "You might also like: "+strings.Join(names, ", ")+".")
	}

	return strings.Join(lines, "\n")
}

// isGreeting reports whether the question is nothing but short greeting
// or acknowledgement tokens.
func isGreeting(question string) bool {
	tokens := tokenize(question)
	if len(tokens) == 0 || len(tokens) > 4 {
		return false
	}
	for _, t := range tokens {
		if _, ok := greetingTokens[t]; !ok {
			return false
		}
	}
	return true
}

// formatPrice renders a price with thousands separators: 20000 becomes
// "20,000", fractional prices keep two decimals. Rounding happens in
// cents so a fraction near one carries into the integer part.
func formatPrice(price float64) string {
	neg := price < 0
	if neg {
		price = -price
	}

	cents := int64(math.Round(price * 100))
	intPart := cents / 100
	frac := cents % 100

	digits := strconv.FormatInt(intPart, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := b.String()
	if frac > 0 {
		out += fmt.Sprintf(".%02d", frac)
	}
	if neg {
		out = "-" + out
	}
	return out
}

// truncate cuts s at the rune boundary closest under limit, appending an
// ellipsis when something was dropped.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
