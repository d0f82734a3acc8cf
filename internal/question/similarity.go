package question

import "strings"

// SimilarityThreshold is the accept/reject boundary used by the supply: a
// candidate scoring above it against any ledger entry is a near-duplicate.
const SimilarityThreshold = 0.7

// Similarity computes the Sørensen–Dice coefficient over character bigrams of
// the two strings: 0 means no bigram overlap, 1 means identical. The function
// is symmetric and deterministic. Case and runs of whitespace are ignored so
// trivially-rephrased duplicates still score high.
func Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)

	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigrams := make(map[string]int)
	for i := 0; i < len(a)-1; i++ {
		bigrams[a[i:i+2]]++
	}

	matches := 0
	for i := 0; i < len(b)-1; i++ {
		if bigrams[b[i:i+2]] > 0 {
			bigrams[b[i:i+2]]--
			matches++
		}
	}

	return 2 * float64(matches) / float64(len(a)-1+len(b)-1)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
