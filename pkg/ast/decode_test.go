package ast

import "testing"

const sampleESTree = `{
  "type": "Program",
  "__id": "p",
  "loc": {"start": {"line": 1, "column": 0}, "end": {"line": 1, "column": 9}},
  "body": [{
    "type": "ExpressionStatement",
    "__id": "s",
    "loc": {"start": {"line": 1, "column": 0}, "end": {"line": 1, "column": 9}},
    "expression": {
      "type": "CallExpression",
      "__id": "c",
      "__callSite": "site",
      "callee": {"type": "Identifier", "name": "f", "__id": "f"},
      "arguments": [
        {"type": "Literal", "value": 1, "raw": "1", "__id": "l1",
         "loc": {"start": {"line": 1, "column": 2}, "end": {"line": 1, "column": 3}}},
        {"type": "Literal", "value": "a", "raw": "'a'", "__id": "l2"}
      ]
    }
  }]
}`

func TestDecodeJSONBuildsTaggedNodes(t *testing.T) {
	node, err := DecodeJSON([]byte(sampleESTree))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	prog, ok := node.(*Program)
	if !ok {
		t.Fatalf("expected program, got %T", node)
	}
	if prog.NodeID() != "p" {
		t.Fatalf("expected tag p, got %q", prog.NodeID())
	}
	call := prog.Body[0].(*ExpressionStatement).Expression.(*CallExpression)
	if call.CallSite != "site" || call.NodeID() != "c" {
		t.Fatalf("unexpected call tags %q/%q", call.NodeID(), call.CallSite)
	}
	lit := call.Arguments[0].(*Literal)
	if lit.Value != 1.0 {
		t.Fatalf("expected numeric literal, got %#v", lit.Value)
	}
	if got, want := lit.Span().Start, (Position{Line: 1, Column: 3}); got != want {
		t.Fatalf("expected one-based column %+v, got %+v", want, got)
	}
	found, ok := FindNodeByID(prog, "l2")
	if !ok || found.(*Literal).Value != "a" {
		t.Fatalf("expected to find string literal")
	}
}

func TestDecodeJSONRejectsUnknownNodes(t *testing.T) {
	if _, err := DecodeJSON([]byte(`{"type":"WhileStatement"}`)); err == nil {
		t.Fatalf("expected unsupported node error")
	}
	if _, err := DecodeJSON([]byte(`{"type":"ExpressionStatement","expression":{"type":"VariableDeclaration","kind":"const","declarations":[]}}`)); err == nil {
		t.Fatalf("expected statement in expression position to fail")
	}
}

func TestDecodeAnnotations(t *testing.T) {
	src := `{"type":"Identifier","name":"f","typeAnnotation":{"name":"function","params":[{"name":"number"}],"returns":{"name":"string"}}}`
	node, err := DecodeJSON([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ann := node.(*Identifier).Annotation
	if ann == nil || ann.Name != "function" || len(ann.Params) != 1 || ann.Returns.Name != "string" {
		t.Fatalf("unexpected annotation %+v", ann)
	}
}
