package utils

import (
	"strings"

	"github.com/mindarch-ai/mindarch/pkg/types"
)

// TruncateTitle clips a unit title to the script-appropriate rune
// budget. CJK text carries more meaning per rune so it gets the
// shorter limit. Truncation never splits a codepoint.
func TruncateTitle(title string) string {
	title = strings.TrimSpace(title)

	limit := types.TITLE_MAX_RUNES_LATIN
	if IsCJK(title) {
		limit = types.TITLE_MAX_RUNES_CJK
	}

	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return strings.TrimSpace(string(runes[:limit]))
}

// SmartTruncateContent 智能截断内容，在句子边界收尾
func SmartTruncateContent(content string, maxLength int) string {
	runes := []rune(content)
	if len(runes) <= maxLength {
		return content
	}

	truncated := adjustToSentenceBoundary(string(runes[:maxLength]))
	return strings.TrimSpace(truncated) + "..."
}

// adjustToSentenceBoundary 在句子边界调整截断位置
func adjustToSentenceBoundary(content string) string {
	length := len(content)
	minPos := length / 2 // 不要截断太多

	if lastPeriod := strings.LastIndex(content, "。"); lastPeriod > minPos {
		return content[:lastPeriod+len("。")]
	}
	if lastPeriod := strings.LastIndex(content, ". "); lastPeriod > minPos {
		return content[:lastPeriod+1]
	}
	if lastNewline := strings.LastIndex(content, "\n"); lastNewline > minPos {
		return content[:lastNewline]
	}
	if lastSpace := strings.LastIndex(content, " "); lastSpace > minPos {
		return content[:lastSpace]
	}

	return content
}
