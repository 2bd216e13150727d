// Package fuzzy provides typo-tolerant matching for searching imported transactions.
package fuzzy

import (
	"strings"
)

// LevenshteinDistance counts the single-rune insertions, deletions and
// substitutions needed to turn s1 into s2, case-insensitively.
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(normalizeString(s1))
	r2 := []rune(normalizeString(s2))

	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// FuzzyMatch checks if query fuzzy-matches text within a given threshold
// threshold is the maximum allowed edit distance
func FuzzyMatch(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)
	if query == "" || text == "" {
		return false
	}

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) || LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}
	return false
}

// thresholdFor scales typo tolerance with query length
func thresholdFor(query string) int {
	switch n := len([]rune(query)); {
	case n <= 3:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// FuzzyMatchTransaction checks if an imported transaction matches the query
func FuzzyMatchTransaction(query, merchant, subject, sender, category string) bool {
	threshold := thresholdFor(query)
	for _, field := range []string{merchant, subject, sender, category} {
		if FuzzyMatch(query, field, threshold) {
			return true
		}
	}
	return false
}

// CalculateRelevanceScore ranks a transaction against a query.
// Merchant hits outrank subject hits, which outrank sender hits.
func CalculateRelevanceScore(query, merchant, subject, sender string) float64 {
	query = normalizeString(query)
	score := 0.0

	score += fieldScore(query, merchant, 120, 60)
	score += fieldScore(query, subject, 100, 50)

	senderNorm := normalizeString(sender)
	if strings.Contains(senderNorm, query) {
		score += 60
	} else {
		local := senderNorm
		if idx := strings.Index(local, "<"); idx >= 0 {
			local = local[idx+1:]
		}
		if strings.HasPrefix(local, query) {
			score += 30
		}
	}

	return score
}

// fieldScore rewards substring matches, exact word matches and near-miss words
func fieldScore(query, field string, exact, fuzzyWeight float64) float64 {
	norm := normalizeString(field)
	if norm == "" {
		return 0
	}

	if strings.Contains(norm, query) {
		score := exact
		if containsWord(norm, query) {
			score += exact / 2
		}
		return score
	}

	score := 0.0
	for _, word := range strings.Fields(norm) {
		if dist := LevenshteinDistance(query, word); dist <= 2 {
			score += fuzzyWeight - float64(dist)*fuzzyWeight/3
		}
		if strings.HasPrefix(word, query) {
			score += fuzzyWeight * 0.8
		}
	}
	return score
}

// normalizeString lowercases and collapses whitespace
func normalizeString(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// containsWord checks if text contains query as a whole word
func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if strings.Trim(word, ".,:;!?()<>\"'") == query {
			return true
		}
	}
	return false
}
