package exemplar

import (
	"context"
	"math"
	"strings"
	"unicode"
)

var defaultStopWords = []string{
	"a", "about", "an", "and", "are", "as", "at", "be", "by", "can", "do", "does",
	"for", "from", "have", "how", "i", "in", "is", "it", "me", "my", "of", "on",
	"or", "that", "the", "there", "this", "to", "was", "what", "when", "where",
	"which", "who", "why", "with", "you",
}

// Lexical scores questions by the cosine similarity of their bag of words,
// ignoring case, punctuation and stop words.
type Lexical struct {
	stopWords map[string]struct{}
}

// NewLexical creates a lexical selector. Without stop words a built-in English list is used.
func NewLexical(stopWords ...string) *Lexical {
	if len(stopWords) == 0 {
		stopWords = defaultStopWords
	}
	sw := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		sw[strings.ToLower(w)] = struct{}{}
	}
	return &Lexical{stopWords: sw}
}

func (l *Lexical) bag(s string) map[string]float64 {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	bag := make(map[string]float64, len(words))
	for _, w := range words {
		if _, skip := l.stopWords[w]; skip {
			continue
		}
		bag[w]++
	}
	return bag
}

// Similarity returns the cosine similarity of the word bags of a and b.
func (l *Lexical) Similarity(a, b string) float64 {
	ba, bb := l.bag(a), l.bag(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	var dot, na, nb float64
	for w, n := range ba {
		dot += n * bb[w]
		na += n * n
	}
	for _, n := range bb {
		nb += n * n
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (l *Lexical) Select(_ context.Context, question string, pool []Exemplar) (Exemplar, error) {
	if len(pool) == 0 {
		return Exemplar{}, ErrEmptyPool
	}
	scores := make([]float64, len(pool))
	for i, ex := range pool {
		scores[i] = l.Similarity(question, ex.Question)
	}
	return pool[bestIndex(scores)], nil
}
