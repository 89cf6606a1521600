package formatter

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/NikGor/archie-backend/core/common"
)

var markdownParser = goldmark.New().Parser()

// markdownToPlain renders the text content of a markdown document:
// markers, link targets, images and code fences are dropped, code text is kept,
// blocks are separated by at most one blank line.
func markdownToPlain(s string) string {
	src := []byte(s)
	doc := markdownParser.Parse(text.NewReader(src))

	var b bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.FencedCodeBlock, *ast.CodeBlock,
				*ast.HTMLBlock, *ast.ThematicBreak, *ast.Blockquote, *ast.List:
				b.WriteString("\n\n")
			case *ast.TextBlock:
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(unescapeInline(node.Segment.Value(src)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					b.Write(t.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			b.Write(node.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.Image, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			writeLines(&b, node.Lines(), src)
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			writeLines(&b, node.Lines(), src)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			var raw bytes.Buffer
			writeLines(&raw, node.Lines(), src)
			if node.HasClosure() {
				raw.Write(node.ClosureLine.Value(src))
			}
			b.WriteString(htmlToPlain(raw.String()))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return common.NormalizeWhitespace(common.CleanText(strings.TrimSpace(b.String())))
}

func writeLines(b *bytes.Buffer, lines *text.Segments, src []byte) {
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(src))
	}
}

func unescapeInline(v []byte) []byte {
	v = util.UnescapePunctuations(v)
	v = util.ResolveNumericReferences(v)
	return util.ResolveEntityNames(v)
}
