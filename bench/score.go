package bench

import (
	"math"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	meteorAlpha = 0.9
	meteorGamma = 0.5
	meteorBeta  = 3
)

var (
	currencyRe  = regexp.MustCompile(`[$,]+`)
	numericRe   = regexp.MustCompile(`^\$?[\d,]*\d(\.\d+)?$`)
	modelNameRe = regexp.MustCompile(`[^A-Za-z0-9\-_]+`)
)

// numeric reports whether the keyword is a number or a dollar amount.
func (k Keyword) numeric() bool {
	return numericRe.MatchString(strings.TrimSpace(string(k)))
}

// KeywordMatches counts the keywords found in answer. Phrases match case
// insensitively on word boundaries. Numbers and dollar amounts are compared
// with "$" and "," removed from both sides, so 6753 matches "6,753".
func KeywordMatches(answer string, keywords []Keyword) int {
	if answer == "" {
		return 0
	}
	plain := currencyRe.ReplaceAllString(answer, "")

	matches := 0
	for _, kw := range keywords {
		needle := strings.TrimSpace(string(kw))
		if needle == "" {
			continue
		}
		text := answer
		if kw.numeric() {
			needle = currencyRe.ReplaceAllString(needle, "")
			text = plain
		}
		re := regexp.MustCompile(`(?i)(?:^|[(\s])` + regexp.QuoteMeta(needle) + `(?:[,.;:!?)\s]|$)`)
		if re.MatchString(text) {
			matches++
		}
	}
	return matches
}

// Meteor scores candidate against reference with unigram exact matching:
// the harmonic mean of precision and recall weighted towards recall, scaled
// down by a fragmentation penalty for matches spread over many chunks.
func Meteor(reference, candidate string) float64 {
	ref := strings.Fields(strings.ToLower(reference))
	cand := strings.Fields(strings.ToLower(candidate))
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}

	used := make([]bool, len(ref))
	type pair struct{ cand, ref int }
	var aligned []pair
	for i, w := range cand {
		for j, r := range ref {
			if !used[j] && r == w {
				used[j] = true
				aligned = append(aligned, pair{cand: i, ref: j})
				break
			}
		}
	}
	m := float64(len(aligned))
	if m == 0 {
		return 0
	}

	chunks := 1.0
	for i := 1; i < len(aligned); i++ {
		prev, cur := aligned[i-1], aligned[i]
		if cur.cand != prev.cand+1 || cur.ref != prev.ref+1 {
			chunks++
		}
	}

	precision := m / float64(len(cand))
	recall := m / float64(len(ref))
	fmean := precision * recall / (meteorAlpha*precision + (1-meteorAlpha)*recall)
	frag := chunks / m
	penalty := meteorGamma * math.Pow(frag, meteorBeta)
	return fmean * (1 - penalty)
}

// ModelName turns a model spec or file path into a name safe for file names.
// The endpoint of local model specs is dropped.
func ModelName(path string) string {
	name := strings.TrimSpace(path)
	if before, _, found := strings.Cut(name, "@"); found {
		name = before
	}
	return modelNameRe.ReplaceAllString(filepath.Base(name), "_")
}
