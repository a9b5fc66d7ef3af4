package utils

import (
	"unicode"

	"github.com/abadojack/whatlanggo"
)

var whatLangOpts = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Cmn: true,
		whatlanggo.Jpn: true,
		whatlanggo.Kor: true,
	},
}

func WhatLang(query string) string {
	info := whatlanggo.DetectWithOptions(query, whatLangOpts)
	return info.Lang.String()
}

// IsCJK reports whether s is predominantly written in a CJK script.
// Detection falls back to a rune scan when the text is too short for
// whatlanggo to be confident about.
func IsCJK(s string) bool {
	info := whatlanggo.Detect(s)
	switch info.Script {
	case unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul:
		return true
	}

	var cjk, total int
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			cjk++
		}
	}
	return total > 0 && cjk*2 > total
}
