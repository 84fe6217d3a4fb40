package rag

import (
	"strings"

	"github.com/tomehq/tome/internal/model"
)

// chapterMarkers are matched against the trimmed, lowercased start of a
// paragraph. Markdown heading markers count as chapter breaks too.
var chapterMarkers = []string{"chapter", "ch.", "# ", "## "}

// paragraphSep joins buffered paragraphs back into chunk text; the flush
// threshold counts it so joined chunks stay within maxChars.
const paragraphSep = "\n\n"

// Chunker splits book content into position-annotated chunks on
// paragraph boundaries. Chunks never split a paragraph: a lone
// paragraph longer than maxChars is emitted whole.
type Chunker struct {
	maxChars      int
	chunksPerPage int
}

func NewChunker(maxChars int, chunksPerPage int) *Chunker {
	if maxChars <= 0 {
		maxChars = 1000
	}
	if chunksPerPage <= 0 {
		chunksPerPage = 10
	}
	return &Chunker{maxChars: maxChars, chunksPerPage: chunksPerPage}
}

// Span is one chunk of book text plus its position annotation.
type Span struct {
	Text     string
	Position model.ChunkPosition
}

// Split chunks content into ordered spans. Chapter markers close the
// current chunk so a chapter never straddles two chunks' metadata.
func (c *Chunker) Split(content string) []Span {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []Span
	var buf []string
	bufLen := 0
	chapter := 0
	paragraphCount := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, Span{
			Text: strings.Join(buf, paragraphSep),
			Position: model.ChunkPosition{
				Chapter:   maxInt(chapter, 1),
				Page:      len(chunks)/c.chunksPerPage + 1,
				Paragraph: paragraphCount,
			},
		})
		buf = buf[:0]
		bufLen = 0
		paragraphCount = 0
	}

	for _, raw := range paragraphs {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		if isChapterMarker(p) {
			flush()
			chapter++
		} else if bufLen > 0 && bufLen+len(paragraphSep)+len(p) >= c.maxChars {
			flush()
		}
		if len(buf) > 0 {
			bufLen += len(paragraphSep)
		}
		buf = append(buf, p)
		bufLen += len(p)
		paragraphCount++
	}
	flush()
	return chunks
}

func isChapterMarker(paragraph string) bool {
	lower := strings.ToLower(paragraph)
	for _, marker := range chapterMarkers {
		if strings.HasPrefix(lower, marker) {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
