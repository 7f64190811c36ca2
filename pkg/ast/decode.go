package ast

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// DecodeJSON decodes an ESTree-shaped JSON document into a node. ESTree
// columns are zero-based and are shifted to the one-based columns used by
// Span. "__id" and "__callSite" fields become identity and call-site tags.
func DecodeJSON(data []byte) (Node, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode ast json")
	}
	return DecodeNode(raw)
}

// DecodeNode decodes a generic JSON object into a node.
func DecodeNode(node map[string]any) (Node, error) {
	decoded, err := decodeBare(node)
	if err != nil {
		return nil, err
	}
	if loc, ok := node["loc"].(map[string]any); ok {
		SetSpan(decoded, decodeSpan(loc))
	}
	if id, ok := node["__id"].(string); ok && id != "" {
		Tag(decoded, id)
	}
	return decoded, nil
}

func decodeBare(node map[string]any) (Node, error) {
	typ, _ := node["type"].(string)
	switch NodeType(typ) {
	case NodeProgram:
		body, err := decodeStatements(node["body"])
		if err != nil {
			return nil, err
		}
		return NewProgram(body), nil
	case NodeBlockStatement:
		body, err := decodeStatements(node["body"])
		if err != nil {
			return nil, err
		}
		return NewBlockStatement(body), nil
	case NodeExpressionStatement:
		expr, err := decodeExpression(node["expression"])
		if err != nil {
			return nil, err
		}
		return NewExpressionStatement(expr), nil
	case NodeIfStatement:
		test, err := decodeExpression(node["test"])
		if err != nil {
			return nil, err
		}
		cons, err := decodeStatement(node["consequent"])
		if err != nil {
			return nil, err
		}
		var alt Statement
		if node["alternate"] != nil {
			if alt, err = decodeStatement(node["alternate"]); err != nil {
				return nil, err
			}
		}
		return NewIfStatement(test, cons, alt), nil
	case NodeFunctionDeclaration, NodeFunctionExpression:
		var id *Identifier
		if node["id"] != nil {
			ident, err := decodeIdentifier(node["id"])
			if err != nil {
				return nil, err
			}
			id = ident
		}
		paramsRaw, _ := node["params"].([]any)
		params := make([]*Identifier, 0, len(paramsRaw))
		for _, raw := range paramsRaw {
			param, err := decodeIdentifier(raw)
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
		bodyNode, err := decodeChild(node["body"])
		if err != nil {
			return nil, err
		}
		body, ok := bodyNode.(*BlockStatement)
		if !ok {
			return nil, fmt.Errorf("function body must be a block, got %T", bodyNode)
		}
		returnType := decodeAnnotation(node["returnType"])
		if NodeType(typ) == NodeFunctionDeclaration {
			return NewFunctionDeclaration(id, params, body, returnType), nil
		}
		return NewFunctionExpression(id, params, body, returnType), nil
	case NodeVariableDeclaration:
		kind, _ := node["kind"].(string)
		declsRaw, _ := node["declarations"].([]any)
		decls := make([]*VariableDeclarator, 0, len(declsRaw))
		for _, raw := range declsRaw {
			child, err := decodeChild(raw)
			if err != nil {
				return nil, err
			}
			decl, ok := child.(*VariableDeclarator)
			if !ok {
				return nil, fmt.Errorf("invalid declarator %T", child)
			}
			decls = append(decls, decl)
		}
		return NewVariableDeclaration(kind, decls), nil
	case NodeVariableDeclarator:
		id, err := decodeIdentifier(node["id"])
		if err != nil {
			return nil, err
		}
		var init Expression
		if node["init"] != nil {
			if init, err = decodeExpression(node["init"]); err != nil {
				return nil, err
			}
		}
		return NewVariableDeclarator(id, init), nil
	case NodeReturnStatement:
		var arg Expression
		if node["argument"] != nil {
			decoded, err := decodeExpression(node["argument"])
			if err != nil {
				return nil, err
			}
			arg = decoded
		}
		return NewReturnStatement(arg), nil
	case NodeCallExpression:
		callee, err := decodeExpression(node["callee"])
		if err != nil {
			return nil, err
		}
		argsRaw, _ := node["arguments"].([]any)
		args := make([]Expression, 0, len(argsRaw))
		for _, raw := range argsRaw {
			arg, err := decodeExpression(raw)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		call := NewCallExpression(callee, args)
		call.CallSite, _ = node["__callSite"].(string)
		return call, nil
	case NodeUnaryExpression:
		op, _ := node["operator"].(string)
		operand, err := decodeExpression(node["argument"])
		if err != nil {
			return nil, err
		}
		return NewUnaryExpression(op, operand), nil
	case NodeBinaryExpression, NodeLogicalExpression:
		op, _ := node["operator"].(string)
		left, err := decodeExpression(node["left"])
		if err != nil {
			return nil, err
		}
		right, err := decodeExpression(node["right"])
		if err != nil {
			return nil, err
		}
		if NodeType(typ) == NodeLogicalExpression {
			return NewLogicalExpression(op, left, right), nil
		}
		return NewBinaryExpression(op, left, right), nil
	case NodeConditionalExpression:
		test, err := decodeExpression(node["test"])
		if err != nil {
			return nil, err
		}
		cons, err := decodeExpression(node["consequent"])
		if err != nil {
			return nil, err
		}
		alt, err := decodeExpression(node["alternate"])
		if err != nil {
			return nil, err
		}
		return NewConditionalExpression(test, cons, alt), nil
	case NodeIdentifier:
		name, _ := node["name"].(string)
		id := NewIdentifier(name)
		id.Annotation = decodeAnnotation(node["typeAnnotation"])
		return id, nil
	case NodeLiteral:
		raw, _ := node["raw"].(string)
		switch v := node["value"].(type) {
		case float64, string, bool, nil:
			return NewLiteral(v, raw), nil
		default:
			return nil, fmt.Errorf("unsupported literal value %T", v)
		}
	default:
		return nil, fmt.Errorf("unsupported node type %q", typ)
	}
}

func decodeChild(raw any) (Node, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected node object, got %T", raw)
	}
	return DecodeNode(obj)
}

func decodeExpression(raw any) (Expression, error) {
	node, err := decodeChild(raw)
	if err != nil {
		return nil, err
	}
	expr, ok := node.(Expression)
	if !ok {
		return nil, fmt.Errorf("%s is not an expression", node.NodeType())
	}
	return expr, nil
}

func decodeStatement(raw any) (Statement, error) {
	node, err := decodeChild(raw)
	if err != nil {
		return nil, err
	}
	stmt, ok := node.(Statement)
	if !ok {
		return nil, fmt.Errorf("%s is not a statement", node.NodeType())
	}
	return stmt, nil
}

func decodeStatements(raw any) ([]Statement, error) {
	items, _ := raw.([]any)
	out := make([]Statement, 0, len(items))
	for _, item := range items {
		stmt, err := decodeStatement(item)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func decodeIdentifier(raw any) (*Identifier, error) {
	node, err := decodeChild(raw)
	if err != nil {
		return nil, err
	}
	id, ok := node.(*Identifier)
	if !ok {
		return nil, fmt.Errorf("expected identifier, got %s", node.NodeType())
	}
	return id, nil
}

func decodeAnnotation(raw any) *TypeAnnotation {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	name, _ := obj["name"].(string)
	ann := &TypeAnnotation{Name: name}
	if params, ok := obj["params"].([]any); ok {
		for _, p := range params {
			if decoded := decodeAnnotation(p); decoded != nil {
				ann.Params = append(ann.Params, decoded)
			}
		}
	}
	ann.Returns = decodeAnnotation(obj["returns"])
	return ann
}

func decodeSpan(loc map[string]any) Span {
	return Span{Start: decodePosition(loc["start"]), End: decodePosition(loc["end"])}
}

func decodePosition(raw any) Position {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Position{}
	}
	line, _ := obj["line"].(float64)
	column, _ := obj["column"].(float64)
	return Position{Line: int(line), Column: int(column) + 1}
}
