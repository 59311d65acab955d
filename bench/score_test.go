package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeteor(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		candidate string
		want      float64
	}{
		{"identical", "the cat sat on the mat", "the cat sat on the mat", 0.9977},
		{"extra word", "the cat sat on the mat", "the cat was sat on the mat", 0.9654},
		{"shuffled", "the cat sat on the mat", "on the mat sat the cat", 0.5},
		{"case insensitive", "There are 6,753 jobs.", "there are 6,753 JOBS.", 0.9922},
		{"no overlap", "the cat sat on the mat", "a dog ran", 0},
		{"empty candidate", "the cat sat on the mat", "", 0},
		{"empty reference", "", "the cat", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Meteor(tt.reference, tt.candidate), 1e-4)
		})
	}
}

func TestKeywordMatches(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		keywords []Keyword
		want     int
	}{
		{"number with thousands separator", "There are 6,753 jobs.", []Keyword{"6753"}, 1},
		{"number at the end", "The count is 6753", []Keyword{"6753"}, 1},
		{"dollar amount", "The average salary is $52,000 per year.", []Keyword{"$52,000"}, 1},
		{"dollar keyword without symbol", "It costs $1,200 total", []Keyword{"1200"}, 1},
		{"phrase case insensitive", "The Average Salary is high", []Keyword{"average salary"}, 1},
		{"inside parentheses", "three jobs (Welder, Painter)", []Keyword{"welder"}, 1},
		{"not a whole word", "concatenate the values", []Keyword{"cat"}, 0},
		{"partial number", "There are 16753 jobs", []Keyword{"6753"}, 0},
		{"several keywords", "Welder and Painter are open", []Keyword{"welder", "painter", "seller"}, 2},
		{"blank keyword", "anything", []Keyword{" "}, 0},
		{"empty answer", "", []Keyword{"6753"}, 0},
		{"regexp characters", "the rate is 5.5%", []Keyword{"5.5%"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeywordMatches(tt.answer, tt.keywords))
		})
	}
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "openai_gpt-4", ModelName("openai:gpt-4"))
	assert.Equal(t, "local_mistral", ModelName("local:mistral@http://localhost:8080/v1/"))
	assert.Equal(t, "llama-2-13b_Q5_K_M_gguf", ModelName("/models/llama-2-13b.Q5_K_M.gguf"))
	assert.Equal(t, "gpt-3_5-turbo", ModelName("gpt-3.5-turbo"))
}
