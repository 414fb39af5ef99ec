package markdown

import (
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced or indented code block found in an agent reply.
type CodeBlock struct {
	Language string `yaml:"language,omitempty"`
	Content  string `yaml:"content"`
}

// ExtractCodeBlocks returns the code blocks of a markdown document in order.
// When languages is non-empty only blocks tagged with one of them are kept.
func ExtractCodeBlocks(markdown string, languages ...string) []CodeBlock {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	allowed := func(lang string) bool {
		if len(languages) == 0 {
			return true
		}
		for _, l := range languages {
			if strings.EqualFold(l, lang) {
				return true
			}
		}
		return false
	}

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch b := n.(type) {
		case *ast.FencedCodeBlock:
			lang := string(b.Language(src))
			if allowed(lang) {
				blocks = append(blocks, CodeBlock{Language: lang, Content: linesOf(b, src)})
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			if allowed("") {
				blocks = append(blocks, CodeBlock{Content: linesOf(b, src)})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

func linesOf(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// WriteCodeBlocks prints blocks one after the other, optionally keeping the fences.
func WriteCodeBlocks(w io.Writer, blocks []CodeBlock, withFences bool) error {
	for _, b := range blocks {
		var err error
		if withFences {
			_, err = fmt.Fprintf(w, "```%s\n%s\n```\n", b.Language, b.Content)
		} else {
			_, err = fmt.Fprintln(w, b.Content)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
