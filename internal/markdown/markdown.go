// Package markdown holds Goldmark-based analysis helpers for authored content.
package markdown

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// ParseBody parses a Markdown body (frontmatter already removed) into a Goldmark AST.
func ParseBody(body []byte) gmast.Node {
	return goldmark.New().Parser().Parse(text.NewReader(body))
}

// PlainText strips Markdown and embedded HTML markup from src, keeping the
// readable text. Blocks are separated by a blank line and whitespace inside a
// block is collapsed to single spaces.
func PlainText(src []byte) string {
	if len(bytes.TrimSpace(src)) == 0 {
		return ""
	}

	root := ParseBody(src)
	var blocks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			blocks = append(blocks, s)
		}
		cur.Reset()
	}

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		switch node := n.(type) {
		case *gmast.Text:
			if entering {
				cur.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					cur.WriteByte(' ')
				}
			}
		case *gmast.String:
			if entering {
				cur.Write(node.Value)
			}
		case *gmast.AutoLink:
			if entering {
				cur.Write(node.Label(src))
			}
		case *gmast.RawHTML:
			if entering {
				var raw bytes.Buffer
				for i := 0; i < node.Segments.Len(); i++ {
					seg := node.Segments.At(i)
					raw.Write(seg.Value(src))
				}
				cur.WriteString(htmlText(raw.Bytes()))
			}
		case *gmast.HTMLBlock:
			if entering {
				cur.WriteString(htmlText(linesValue(node.Lines(), src)))
				return gmast.WalkSkipChildren, nil
			}
			flush()
		case *gmast.CodeBlock, *gmast.FencedCodeBlock:
			if entering {
				cur.Write(linesValue(n.Lines(), src))
				return gmast.WalkSkipChildren, nil
			}
			flush()
		case *gmast.Paragraph, *gmast.TextBlock, *gmast.Heading:
			if !entering {
				flush()
			}
		}
		return gmast.WalkContinue, nil
	})
	flush()

	return strings.Join(blocks, "\n\n")
}

// Excerpt returns the plain text of src cut to at most limit runes on a word
// boundary, with an ellipsis appended when text was dropped.
func Excerpt(src []byte, limit int) string {
	plain := strings.Join(strings.Fields(PlainText(src)), " ")
	if limit <= 0 || utf8.RuneCountInString(plain) <= limit {
		return plain
	}

	runes := []rune(plain)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

func linesValue(lines *text.Segments, src []byte) []byte {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.Bytes()
}

func htmlText(raw []byte) string {
	z := html.NewTokenizer(bytes.NewReader(raw))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
