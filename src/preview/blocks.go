package preview

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block found in markdown
type CodeBlock struct {
	Language string
	Code     string
}

// ExtractCodeBlocks returns the fenced code blocks of markdown in order
func ExtractCodeBlocks(markdown string) []CodeBlock {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		blocks = append(blocks, CodeBlock{
			Language: string(fenced.Language(src)),
			Code:     b.String(),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// LastCodeBlock returns the final fenced code block of markdown
func LastCodeBlock(markdown string) (CodeBlock, bool) {
	blocks := ExtractCodeBlocks(markdown)
	if len(blocks) == 0 {
		return CodeBlock{}, false
	}
	return blocks[len(blocks)-1], true
}
