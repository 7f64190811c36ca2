package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

func sliceContent(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := int(node.StartByte())
	end := int(node.EndByte())
	if start < 0 || end < start || end > len(source) {
		return ""
	}
	return string(source[start:end])
}

func firstNamedChild(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && !isIgnorableNode(child) {
			return child
		}
	}
	return nil
}

// hasToken reports whether node has an anonymous child of the given kind
// before its first named child.
func hasToken(node *sitter.Node, kind string) bool {
	if node == nil {
		return false
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.IsNamed() {
			return false
		}
		if child.Kind() == kind {
			return true
		}
	}
	return false
}

func isGenerator(node *sitter.Node) bool { return hasToken(node, "*") }
func isAsync(node *sitter.Node) bool     { return hasToken(node, "async") }

func isIgnorableNode(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "comment", "hash_bang_line":
		return true
	default:
		return false
	}
}
