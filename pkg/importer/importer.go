package importer

import (
	"fmt"
	"path"
	"strings"

	"github.com/mindarch-ai/mindarch/pkg/utils"
)

var ErrUnsupportedType = fmt.Errorf("unsupported document type")

// Document is normalized import input: plain text plus the content hash
// used for duplicate detection.
type Document struct {
	SourceName string
	Title      string
	Text       string
	Hash       string
	Tags       []string
}

// Normalize converts raw file content into plain text by extension.
// Supported: txt, md, markdown.
func Normalize(fileName string, content []byte) (Document, error) {
	doc := Document{
		SourceName: fileName,
		Title:      titleFromFileName(fileName),
		Hash:       utils.SHA256(content),
	}

	switch strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".") {
	case "txt", "text", "":
		doc.Text = normalizeText(string(content))
	case "md", "markdown":
		text, meta := normalizeMarkdown(string(content))
		doc.Text = text
		if meta.title != "" {
			doc.Title = meta.title
		}
		doc.Tags = meta.tags
	default:
		return doc, fmt.Errorf("%w: %s", ErrUnsupportedType, path.Ext(fileName))
	}

	doc.Text = strings.TrimSpace(doc.Text)
	return doc, nil
}

// titleFromFileName 从文件名推导标题
func titleFromFileName(fileName string) string {
	base := path.Base(fileName)
	if ext := path.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}

// normalizeText collapses runs of blank lines, keeping paragraph breaks.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		out    []string
		blanks int
	)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blanks = 0
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}
