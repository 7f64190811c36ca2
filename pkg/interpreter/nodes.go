package interpreter

import (
	"strconv"

	"sourcestep/interpreter-go/pkg/ast"
	"sourcestep/interpreter-go/pkg/runtime"
)

// CreateNode turns a value back into a displayable expression. Primitive
// values become freshly tagged literals; functions are shown as their own
// defining node.
func CreateNode(v runtime.Value, ids *ast.IDGenerator) ast.Expression {
	var node ast.Expression
	switch val := v.(type) {
	case runtime.NumberValue:
		node = ast.NewLiteral(val.Val, runtime.FormatNumber(val.Val))
	case runtime.StringValue:
		node = ast.NewLiteral(val.Val, strconv.Quote(val.Val))
	case runtime.BoolValue:
		node = ast.NewLiteral(val.Val, strconv.FormatBool(val.Val))
	case *runtime.FunctionValue:
		return val.Node
	case runtime.ForeignValue:
		name := val.Name
		if name == "" {
			name = "foreign"
		}
		node = ast.NewIdentifier(name)
	default:
		node = ast.NewIdentifier(v.Kind().String())
	}
	ast.Tag(node, ids.Next())
	return node
}
