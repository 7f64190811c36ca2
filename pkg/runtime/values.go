package runtime

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"sourcestep/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBoolean
	KindFunction
	KindForeign
	KindNever
	KindUndefined
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindFunction:
		return "function"
	case KindForeign:
		return "foreign"
	case KindNever:
		return "never"
	case KindUndefined:
		return "undefined"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NumberValue struct {
	Val float64
}

func (NumberValue) Kind() Kind { return KindNumber }

type StringValue struct {
	Val string
}

func (StringValue) Kind() Kind { return KindString }

type BoolValue struct {
	Val bool
}

func (BoolValue) Kind() Kind { return KindBoolean }

//-----------------------------------------------------------------------------
// Functions & host values
//-----------------------------------------------------------------------------

// FunctionValue is a closure over the environment active at its definition.
type FunctionValue struct {
	Node    ast.Function
	Closure *Environment
}

func (*FunctionValue) Kind() Kind { return KindFunction }

// ForeignValue wraps a host value. A named reference carries no payload and
// is resolved against the binding table when unboxed.
type ForeignValue struct {
	Host any
	Name string
}

func (ForeignValue) Kind() Kind { return KindForeign }

//-----------------------------------------------------------------------------
// Sentinels
//-----------------------------------------------------------------------------

type sentinelValue struct {
	kind Kind
}

func (s *sentinelValue) Kind() Kind { return s.kind }

var (
	// Never marks the absence of a value (failed lookups, failed calls).
	Never Value = &sentinelValue{kind: KindNever}
	// Undefined is the value of expressions that produce nothing.
	Undefined Value = &sentinelValue{kind: KindUndefined}
)

func IsNever(v Value) bool     { return v == Never }
func IsUndefined(v Value) bool { return v == Undefined }

// Bindings is the external binding table consulted when unboxing named
// foreign references.
type Bindings map[string]any

// Box wraps a host value. Go functions become foreign values; a kind may
// be supplied to force KindForeign, KindNever or KindUndefined.
func Box(raw any, kind ...Kind) Value {
	if len(kind) > 0 {
		switch kind[0] {
		case KindForeign:
			return ForeignValue{Host: raw}
		case KindNever:
			return Never
		case KindUndefined:
			return Undefined
		}
	}
	switch v := raw.(type) {
	case nil:
		return Undefined
	case Value:
		return v
	case float64:
		return NumberValue{Val: v}
	case float32:
		return NumberValue{Val: float64(v)}
	case int:
		return NumberValue{Val: float64(v)}
	case int8:
		return NumberValue{Val: float64(v)}
	case int16:
		return NumberValue{Val: float64(v)}
	case int32:
		return NumberValue{Val: float64(v)}
	case int64:
		return NumberValue{Val: float64(v)}
	case uint:
		return NumberValue{Val: float64(v)}
	case uint8:
		return NumberValue{Val: float64(v)}
	case uint16:
		return NumberValue{Val: float64(v)}
	case uint32:
		return NumberValue{Val: float64(v)}
	case uint64:
		return NumberValue{Val: float64(v)}
	case string:
		return StringValue{Val: v}
	case bool:
		return BoolValue{Val: v}
	default:
		return ForeignValue{Host: raw}
	}
}

// Unbox returns the host payload of v. Never and undefined unbox to nil;
// named foreign references are looked up in bindings.
func Unbox(v Value, bindings Bindings) any {
	switch val := v.(type) {
	case NumberValue:
		return val.Val
	case StringValue:
		return val.Val
	case BoolValue:
		return val.Val
	case *FunctionValue:
		return val
	case ForeignValue:
		if val.Name != "" {
			return bindings[val.Name]
		}
		return val.Host
	case *sentinelValue:
		return nil
	case nil:
		return nil
	default:
		panic(fmt.Sprintf("runtime: unsupported value %T", v))
	}
}

// IsTruthy follows the subset's truthiness: zero, NaN, "" and false are
// falsy, as are never and undefined.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case NumberValue:
		return val.Val != 0 && !math.IsNaN(val.Val)
	case StringValue:
		return val.Val != ""
	case BoolValue:
		return val.Val
	case *FunctionValue, ForeignValue:
		return true
	default:
		return false
	}
}

// Equal is strict equality between two values.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch left := a.(type) {
	case NumberValue:
		return left.Val == b.(NumberValue).Val
	case StringValue:
		return left.Val == b.(StringValue).Val
	case BoolValue:
		return left.Val == b.(BoolValue).Val
	case *FunctionValue:
		right := b.(*FunctionValue)
		return left == right || (ast.NodesEqual(left.Node, right.Node) && left.Closure == right.Closure)
	case ForeignValue:
		right := b.(ForeignValue)
		if left.Name != "" || right.Name != "" {
			return left.Name == right.Name
		}
		return sameHost(left.Host, right.Host)
	default:
		return a == b
	}
}

func sameHost(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.Func && vb.Kind() == reflect.Func {
		return va.Pointer() == vb.Pointer()
	}
	if va.IsValid() && vb.IsValid() && va.Type().Comparable() && vb.Type().Comparable() {
		return a == b
	}
	return false
}

// FormatNumber renders a number the way the language prints it.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Inspect returns a display form of v.
func Inspect(v Value) string {
	switch val := v.(type) {
	case NumberValue:
		return FormatNumber(val.Val)
	case StringValue:
		return strconv.Quote(val.Val)
	case BoolValue:
		return strconv.FormatBool(val.Val)
	case *FunctionValue:
		if name := val.Node.FunctionName(); name != "" {
			return "function " + name
		}
		return "function"
	case ForeignValue:
		if val.Name != "" {
			return "foreign " + val.Name
		}
		return fmt.Sprintf("foreign %T", val.Host)
	case nil:
		return "<nil>"
	default:
		return v.Kind().String()
	}
}
