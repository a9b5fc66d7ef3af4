package importer

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkRunes bounds one extraction segment. Counted in runes
	// so CJK text gets the same budget as Latin.
	DefaultChunkRunes = 1600

	// minMergeRunes 短段落合并阈值
	minMergeRunes = 200
)

// Chunk splits normalized text into extraction segments: paragraphs
// first, short paragraphs merged, oversized paragraphs split on
// sentence boundaries, with a hard rune cut as the last resort.
func Chunk(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = DefaultChunkRunes
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentRunes := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentRunes = 0
	}

	for _, paragraph := range splitParagraphs(text) {
		n := utf8.RuneCountInString(paragraph)

		if currentRunes > 0 && currentRunes+n > maxRunes {
			flush()
		}

		if n <= maxRunes {
			if currentRunes > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(paragraph)
			currentRunes += n
			if currentRunes >= minMergeRunes {
				flush()
			}
			continue
		}

		flush()
		for _, piece := range splitOversized(paragraph, maxRunes) {
			chunks = append(chunks, piece)
		}
	}
	flush()

	return chunks
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitOversized cuts one paragraph on sentence ends, hard-cutting any
// single sentence longer than the budget.
func splitOversized(paragraph string, maxRunes int) []string {
	var (
		out     []string
		current []rune
	)
	for _, sentence := range splitSentences(paragraph) {
		runes := []rune(sentence)
		if len(current)+len(runes) > maxRunes && len(current) > 0 {
			out = append(out, strings.TrimSpace(string(current)))
			current = current[:0]
		}
		for len(runes) > maxRunes {
			out = append(out, strings.TrimSpace(string(runes[:maxRunes])))
			runes = runes[maxRunes:]
		}
		current = append(current, runes...)
	}
	if s := strings.TrimSpace(string(current)); s != "" {
		out = append(out, s)
	}
	return out
}

var sentenceEnds = map[rune]struct{}{
	'。': {}, '！': {}, '？': {}, '；': {},
	'.': {}, '!': {}, '?': {}, '\n': {},
}

func splitSentences(text string) []string {
	var (
		out     []string
		current []rune
	)
	for _, r := range text {
		current = append(current, r)
		if _, ok := sentenceEnds[r]; ok {
			out = append(out, string(current))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		out = append(out, string(current))
	}
	return out
}
