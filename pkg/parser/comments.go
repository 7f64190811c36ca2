package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"sourcestep/interpreter-go/pkg/ast"
)

// Comment is a source comment with its delimiters removed.
type Comment struct {
	Text  string
	Span  ast.Span
	Block bool
}

// Comments lists every comment of source in document order.
func (p *Parser) Comments(source []byte) ([]Comment, error) {
	if p == nil || p.parser == nil {
		return nil, fmt.Errorf("parser: nil parser")
	}
	tree := p.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parser: no tree produced")
	}
	defer tree.Close()

	var out []Comment
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.Kind() == "comment" {
			raw := sliceContent(node, source)
			c := Comment{Span: spanFromNode(node)}
			if strings.HasPrefix(raw, "/*") {
				c.Block = true
				c.Text = strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/")
			} else {
				c.Text = strings.TrimPrefix(raw, "//")
			}
			out = append(out, c)
			return
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}
