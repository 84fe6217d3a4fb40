package service

import (
	"encoding/json"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractTOC collects level 1-2 markdown headings in document order.
// Plain-text books without headings yield an empty list.
func extractTOC(content string) []string {
	md := goldmark.New()
	reader := text.NewReader([]byte(content))
	doc := md.Parser().Parse(reader)

	var entries []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Level > 2 {
			continue
		}
		title := strings.TrimSpace(string(heading.Text(reader.Source())))
		if title != "" {
			entries = append(entries, title)
		}
	}
	return entries
}

func tocToMetadata(entries []string) string {
	if len(entries) == 0 {
		return ""
	}
	data, _ := json.Marshal(entries)
	return string(data)
}
