package usecase

import (
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Default matching thresholds
const (
	defaultMinOverlap = 0.30 // minimum word-overlap score, exclusive
)

// MatcherConfig holds configuration for the product matcher
type MatcherConfig struct {
	MinOverlap float64
}

// Matcher finds the best catalog product for a free-text receipt name.
// Matching is deliberately simple: lowercase word-set overlap, no stemming,
// no phonetics. Receipt names and catalog names are short Dutch/English
// product titles, and anything fancier has not earned its keep here.
type Matcher struct {
	minOverlap float64
}

// NewMatcher creates a matcher with the given configuration
func NewMatcher(config MatcherConfig) *Matcher {
	minOverlap := config.MinOverlap
	if minOverlap <= 0 {
		minOverlap = defaultMinOverlap
	}

	return &Matcher{minOverlap: minOverlap}
}

// FindBestMatch returns the candidate whose name best overlaps the query.
// Score = |intersection| / max(|query words|, |candidate words|, 1).
// A candidate wins only with a score strictly above the overlap threshold;
// ties keep the first-encountered candidate. The second return is false
// when nothing qualifies.
func (m *Matcher) FindBestMatch(query string, candidates []domain.Product) (domain.MatchResult, bool) {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return domain.MatchResult{}, false
	}

	var best domain.MatchResult
	found := false
	bestScore := m.minOverlap

	for _, candidate := range candidates {
		candidateWords := wordSet(candidate.Name)

		common := intersectionSize(queryWords, candidateWords)
		score := float64(common) / float64(max(len(queryWords), len(candidateWords), 1))

		if score > bestScore {
			bestScore = score
			best = domain.MatchResult{
				Name:  candidate.Name,
				Price: candidate.Price,
				Size:  candidate.Size,
			}
			found = true
		}
	}

	return best, found
}

// Confidence returns the Jaccard similarity of the two names' word sets.
// Either side tokenizing to nothing yields 0.0, which keeps the union
// division well-defined without leaning on float behavior.
func Confidence(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	common := intersectionSize(wordsA, wordsB)
	union := len(wordsA) + len(wordsB) - common

	return float64(common) / float64(union)
}

// wordSet lowercases and splits on whitespace, collapsing duplicates.
func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// intersectionSize counts words present in both sets
func intersectionSize(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for w := range a {
		if b[w] {
			count++
		}
	}
	return count
}
