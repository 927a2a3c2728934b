package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownToText strips markdown structure and returns plain text, one
// block per line. Benefits documents converted to markdown get flattened
// this way before chunking so formatting characters never pollute the
// index.
func MarkdownToText(markdown string) string {
	source := []byte(markdown)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.FencedCodeBlock:
			blocks = appendBlock(blocks, codeText(n.Lines(), source))
		case *ast.CodeBlock:
			blocks = appendBlock(blocks, codeText(n.Lines(), source))
		case *ast.List:
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				blocks = appendBlock(blocks, blockText(item, source))
			}
		default:
			blocks = appendBlock(blocks, blockText(node, source))
		}
	}
	return strings.Join(blocks, "\n")
}

func appendBlock(blocks []string, block string) []string {
	if block == "" {
		return blocks
	}
	return append(blocks, block)
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			t := node.(*ast.Text)
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func codeText(lines *text.Segments, source []byte) string {
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return strings.TrimSpace(sb.String())
}
