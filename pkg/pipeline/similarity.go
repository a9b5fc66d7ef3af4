package pipeline

import (
	"strings"
	"unicode"
)

// lexicalSimilarity blends token-set overlap with normalized edit
// distance. tokenWeight controls the blend; the remainder goes to the
// edit distance signal. Unspaced CJK strings fall back to character
// bigrams for the token signal.
func lexicalSimilarity(a, b string, tokenWeight float64) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	jac := jaccard(tokenize(a), tokenize(b))
	lev := 1 - normalizedLevenshtein(a, b)
	return tokenWeight*jac + (1-tokenWeight)*lev
}

// tokenize splits on non-letter/digit boundaries. A string that yields
// a single multi-rune CJK token is re-split into character bigrams so
// unspaced CJK names still produce a useful overlap signal.
func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}

	if len(set) == 1 {
		for tok := range set {
			runes := []rune(tok)
			if len(runes) >= 2 && isCJKRune(runes[0]) {
				delete(set, tok)
				for i := 0; i+1 < len(runes); i++ {
					set[string(runes[i:i+2])] = struct{}{}
				}
			}
		}
	}
	return set
}

func isCJKRune(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var inter int
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func normalizedLevenshtein(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 && lb == 0 {
		return 0
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return float64(prev[lb]) / float64(maxLen)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
