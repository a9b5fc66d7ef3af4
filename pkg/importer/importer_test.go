package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	doc, err := Normalize("release_notes.txt", []byte("line one\r\n\n\n\nline two  \n"))
	require.NoError(t, err)
	assert.Equal(t, "release notes", doc.Title)
	assert.Equal(t, "line one\n\nline two", doc.Text)
	assert.Len(t, doc.Hash, 64)
}

func TestNormalizeMarkdown(t *testing.T) {
	src := `---
title: "Graph Basics"
tags: [kg, notes]
---
# Introduction

Some [linked text](https://example.com) here.

` + "```go\nfunc ignored() {}\n```" + `

> quoted line with **bold** and a #hashtag
`
	doc, err := Normalize("notes.md", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "Graph Basics", doc.Title)
	assert.Contains(t, doc.Tags, "kg")
	assert.Contains(t, doc.Tags, "notes")
	assert.Contains(t, doc.Tags, "hashtag")

	assert.Contains(t, doc.Text, "Introduction")
	assert.Contains(t, doc.Text, "linked text here.")
	assert.NotContains(t, doc.Text, "func ignored")
	assert.NotContains(t, doc.Text, "```")
	assert.NotContains(t, doc.Text, "](")
	assert.NotContains(t, doc.Text, "**")
	assert.NotContains(t, doc.Text, "# Introduction")
	assert.Contains(t, doc.Text, "quoted line with bold")
}

func TestNormalizeUnsupportedType(t *testing.T) {
	_, err := Normalize("slides.pptx", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestNormalizeSameContentSameHash(t *testing.T) {
	a, err := Normalize("a.txt", []byte("identical"))
	require.NoError(t, err)
	b, err := Normalize("b.txt", []byte("identical"))
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)

	c, err := Normalize("c.txt", []byte("different"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, c.Hash)
}

func TestChunkShortTextSingleSegment(t *testing.T) {
	chunks := Chunk("one short paragraph", 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "one short paragraph", chunks[0])
}

func TestChunkMergesShortParagraphs(t *testing.T) {
	text := "first.\n\nsecond.\n\nthird."
	chunks := Chunk(text, 1000)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "first.")
	assert.Contains(t, chunks[0], "third.")
}

func TestChunkRespectsBudget(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is a complete sentence that carries some weight. ")
	}
	text := sb.String() + "\n\n" + sb.String()

	chunks := Chunk(text, 500)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 500, "chunk %d", i)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestChunkHardCutsUnbrokenRuns(t *testing.T) {
	text := strings.Repeat("字", 1200) // no sentence boundary at all
	chunks := Chunk(text, 500)
	require.Len(t, chunks, 3)
	assert.Equal(t, 500, len([]rune(chunks[0])))
	assert.Equal(t, 200, len([]rune(chunks[2])))
}

func TestChunkEmptyInput(t *testing.T) {
	assert.Nil(t, Chunk("   \n\n ", 500))
}
