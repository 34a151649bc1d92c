package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{
			name:     "drops stop words and short tokens",
			question: "How much are the red sneakers?",
			want:     []string{"red", "sneakers"},
		},
		{
			name:     "splits on punctuation",
			question: "wool-scarf,winter!",
			want:     []string{"wool", "scarf", "winter"},
		},
		{
			name:     "lowercases",
			question: "LEATHER Crossbody BAG",
			want:     []string{"leather", "crossbody", "bag"},
		},
		{
			name:     "empty question",
			question: "   ",
			want:     nil,
		},
		{
			name:     "only stop words",
			question: "what about this and that",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractKeywords(tt.question))
		})
	}
}

func TestKeywordBoostCapped(t *testing.T) {
	keywords := []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	searchable := "one two three four five six seven eight nine ten"

	boost := keywordBoost(keywords, searchable, 0.03, 0.18)
	assert.Equal(t, 0.18, boost, "10 matches at 0.03 must cap at 0.18")
}

func TestKeywordBoostPerMatch(t *testing.T) {
	boost := keywordBoost([]string{"red", "sneakers", "blue"}, "Red Sneakers running shoes", 0.03, 0.18)
	assert.InDelta(t, 0.06, boost, 1e-9)
}

func TestKeywordBoostNoKeywords(t *testing.T) {
	assert.Equal(t, 0.0, keywordBoost(nil, "anything", 0.03, 0.18))
	assert.Equal(t, 0.0, keywordBoost([]string{"red"}, "", 0.03, 0.18))
}
