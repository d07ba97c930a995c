package answer

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// partialMatch is a corpus passage lexically close to the question.
type partialMatch struct {
	Text       string
	Similarity float64
}

const minMatchableLen = 10

// findPartialMatches runs a fuzzy pass over the whole corpus. Each passage
// is scored by edit-distance similarity (weight 0.4) plus question-word
// overlap (weight 0.6); passages at or above threshold are returned, best
// first, at most three.
func findPartialMatches(question string, corpus []string, threshold float64) []partialMatch {
	questionLower := strings.ToLower(question)
	questionWords := wordSet(question)

	var matches []partialMatch
	for _, content := range corpus {
		if len(strings.TrimSpace(content)) < minMatchableLen {
			continue
		}
		contentLower := strings.ToLower(content)

		similarity := editSimilarity(questionLower, contentLower)
		overlap := overlapRatio(questionWords, wordSet(content))
		combined := similarity*0.4 + overlap*0.6

		if combined >= threshold {
			matches = append(matches, partialMatch{Text: content, Similarity: combined})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > 3 {
		matches = matches[:3]
	}
	return matches
}

// editSimilarity maps Levenshtein distance into [0,1], where 1 is equal
// strings. Long passages are compared against a question-sized prefix so a
// short question is not drowned by passage length.
func editSimilarity(a, b string) float64 {
	const window = 4
	if len(b) > len(a)*window && len(a) > 0 {
		b = b[:len(a)*window]
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
