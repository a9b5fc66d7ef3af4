package importer

import (
	"regexp"
	"strings"
)

type markdownMeta struct {
	title string
	tags  []string
}

var (
	mdLinkRe    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdImageRe   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	mdTagRe     = regexp.MustCompile(`(^|\s)#([\p{L}\p{N}_-]{2,})`)
)

// normalizeMarkdown strips markdown syntax down to plain text: YAML
// frontmatter is consumed into metadata, code fences are dropped whole,
// links keep their text, heading markers are removed but the heading
// text stays as its own paragraph.
func normalizeMarkdown(text string) (string, markdownMeta) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var meta markdownMeta
	text = consumeFrontmatter(text, &meta)

	var (
		out     []string
		inFence bool
	)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if m := mdHeadingRe.FindStringSubmatch(trimmed); m != nil {
			// 标题单独成段, 保留层级之外的文本
			heading := strings.TrimSpace(m[2])
			if heading != "" {
				out = append(out, "", heading, "")
			}
			continue
		}

		for _, m := range mdTagRe.FindAllStringSubmatch(line, -1) {
			meta.tags = appendUnique(meta.tags, m[2])
		}

		line = mdImageRe.ReplaceAllString(line, "")
		line = mdLinkRe.ReplaceAllString(line, "$1")
		line = strings.ReplaceAll(line, "**", "")
		line = strings.ReplaceAll(line, "`", "")
		line = strings.TrimPrefix(strings.TrimLeft(line, " \t"), "> ")

		out = append(out, line)
	}

	return normalizeText(strings.Join(out, "\n")), meta
}

// consumeFrontmatter parses a leading YAML block. Only the flat
// title/tags keys matter here, a full YAML parser is not warranted for
// two scalar fields.
func consumeFrontmatter(text string, meta *markdownMeta) string {
	if !strings.HasPrefix(text, "---\n") {
		return text
	}
	end := strings.Index(text[4:], "\n---")
	if end < 0 {
		return text
	}

	block := text[4 : 4+end]
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		switch strings.TrimSpace(strings.ToLower(key)) {
		case "title":
			meta.title = value
		case "tags":
			for _, tag := range strings.Split(strings.Trim(value, "[]"), ",") {
				if tag = strings.Trim(strings.TrimSpace(tag), `"'`); tag != "" {
					meta.tags = appendUnique(meta.tags, tag)
				}
			}
		}
	}

	rest := text[4+end+4:]
	if i := strings.Index(rest, "\n"); i >= 0 {
		rest = rest[i+1:]
	} else {
		rest = ""
	}
	return rest
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return list
		}
	}
	return append(list, v)
}
