// Package exemplar selects the worked example most similar to a question.
//
// Selection is optional. When enabled, the prompt renderer replaces the
// template's built-in examples with the turns of the selected Exemplar.
package exemplar

import (
	"context"
	"errors"
	"math"

	"github.com/casualjim/sqlowl/messages"
)

// ErrEmptyPool is returned when a selector is asked to choose from nothing.
var ErrEmptyPool = errors.New("exemplar: empty pool")

// Exemplar is a worked example: the question it answers and the turns that
// demonstrate the protocol for it.
type Exemplar struct {
	Question string          `json:"question" yaml:"question"`
	Turns    []messages.Turn `json:"prompt" yaml:"prompt"`
}

// Selector picks the exemplar whose question is most similar to question.
type Selector interface {
	Select(ctx context.Context, question string, pool []Exemplar) (Exemplar, error)
}

// bestIndex returns the index of the highest score. Ties keep the earliest
// entry and when nothing scores above zero the first entry wins.
func bestIndex(scores []float64) int {
	best, bestScore := 0, 0.0
	for i, score := range scores {
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// Cosine returns the cosine similarity of two vectors. Mismatched or zero
// length vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
