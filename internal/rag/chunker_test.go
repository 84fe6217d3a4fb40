package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkerEmptyInput(t *testing.T) {
	c := NewChunker(1000, 10)
	require.Empty(t, c.Split(""))
	require.Empty(t, c.Split("   \n\n  \n\n"))
}

func TestChunkerChapterBoundaries(t *testing.T) {
	c := NewChunker(1000, 10)
	content := "Chapter 1\n\nThe sky is blue.\n\nChapter 2\n\nThe grass is green."

	chunks := c.Split(content)
	require.Len(t, chunks, 2)

	require.Contains(t, chunks[0].Text, "The sky is blue.")
	require.Equal(t, 1, chunks[0].Position.Chapter)
	require.Equal(t, 1, chunks[0].Position.Page)
	require.Equal(t, 2, chunks[0].Position.Paragraph)

	require.Contains(t, chunks[1].Text, "The grass is green.")
	require.Equal(t, 2, chunks[1].Position.Chapter)
}

func TestChunkerThresholdFlush(t *testing.T) {
	c := NewChunker(50, 10)
	p1 := strings.Repeat("a", 40)
	p2 := strings.Repeat("b", 40)

	chunks := c.Split(p1 + "\n\n" + p2)
	require.Len(t, chunks, 2)
	require.Equal(t, p1, chunks[0].Text)
	require.Equal(t, p2, chunks[1].Text)
}

func TestChunkerJoinedTextStaysWithinLimit(t *testing.T) {
	c := NewChunker(1000, 10)
	var paragraphs []string
	for i := 0; i < 4; i++ {
		paragraphs = append(paragraphs, strings.Repeat("a", 249))
	}

	// Paragraph bytes alone stay under the limit; only the "\n\n"
	// joiners push a four-paragraph chunk past it.
	chunks := c.Split(strings.Join(paragraphs, "\n\n"))
	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk.Text), 1000)
	}
	require.Len(t, strings.Split(chunks[0].Text, "\n\n"), 3)
}

func TestChunkerOversizedParagraph(t *testing.T) {
	c := NewChunker(100, 10)
	long := strings.Repeat("x", 300)

	chunks := c.Split(long)
	require.Len(t, chunks, 1)
	require.Equal(t, long, chunks[0].Text)
}

func TestChunkerReconstructsParagraphs(t *testing.T) {
	c := NewChunker(60, 10)
	paragraphs := []string{
		"First paragraph with some words.",
		"Second paragraph, a bit longer than the first one.",
		"Third.",
		"Fourth paragraph closes the document.",
	}
	chunks := c.Split(strings.Join(paragraphs, "\n\n"))
	require.NotEmpty(t, chunks)

	var got []string
	for _, chunk := range chunks {
		got = append(got, strings.Split(chunk.Text, "\n\n")...)
	}
	require.Equal(t, paragraphs, got)
}

func TestChunkerPageNumbering(t *testing.T) {
	c := NewChunker(10, 2)
	var paragraphs []string
	for i := 0; i < 6; i++ {
		paragraphs = append(paragraphs, strings.Repeat("y", 20))
	}
	chunks := c.Split(strings.Join(paragraphs, "\n\n"))
	require.Len(t, chunks, 6)
	require.Equal(t, 1, chunks[0].Position.Page)
	require.Equal(t, 1, chunks[1].Position.Page)
	require.Equal(t, 2, chunks[2].Position.Page)
	require.Equal(t, 3, chunks[5].Position.Page)
}
