package interpreter

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"sourcestep/interpreter-go/pkg/runtime"
)

func toNumber(v runtime.Value) float64 {
	switch val := v.(type) {
	case runtime.NumberValue:
		return val.Val
	case runtime.BoolValue:
		if val.Val {
			return 1
		}
		return 0
	case runtime.StringValue:
		return stringToNumber(val.Val)
	default:
		return math.NaN()
	}
}

// stringToNumber accepts decimal literals, the spelled-out infinities and
// unsigned 0x/0o/0b integers. Go-only forms such as "inf", hex floats and
// digit separators are NaN.
func stringToNumber(s string) float64 {
	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(trimmed) > 2 && trimmed[0] == '0' {
		base := 0
		switch trimmed[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(trimmed[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	for _, r := range trimmed {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return math.NaN()
		}
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return n
}

func toString(v runtime.Value) string {
	switch val := v.(type) {
	case runtime.NumberValue:
		return runtime.FormatNumber(val.Val)
	case runtime.StringValue:
		return val.Val
	case runtime.BoolValue:
		return strconv.FormatBool(val.Val)
	default:
		return runtime.Inspect(v)
	}
}

func number(n float64) runtime.Value { return runtime.NumberValue{Val: n} }
func boolean(b bool) runtime.Value   { return runtime.BoolValue{Val: b} }

func applyBinary(op string, left, right runtime.Value) (runtime.Value, error) {
	switch op {
	case "+":
		if left.Kind() == runtime.KindString || right.Kind() == runtime.KindString {
			return runtime.StringValue{Val: toString(left) + toString(right)}, nil
		}
		return number(toNumber(left) + toNumber(right)), nil
	case "-":
		return number(toNumber(left) - toNumber(right)), nil
	case "*":
		return number(toNumber(left) * toNumber(right)), nil
	case "/":
		return number(toNumber(left) / toNumber(right)), nil
	case "%":
		return number(math.Mod(toNumber(left), toNumber(right))), nil
	case "<", "<=", ">", ">=":
		return boolean(compare(op, left, right)), nil
	case "===":
		return boolean(runtime.Equal(left, right)), nil
	case "!==":
		return boolean(!runtime.Equal(left, right)), nil
	case "==":
		return boolean(looseEqual(left, right)), nil
	case "!=":
		return boolean(!looseEqual(left, right)), nil
	default:
		return runtime.Never, errors.Errorf("unsupported binary operator %q", op)
	}
}

func compare(op string, left, right runtime.Value) bool {
	if l, ok := left.(runtime.StringValue); ok {
		if r, ok := right.(runtime.StringValue); ok {
			c := strings.Compare(l.Val, r.Val)
			switch op {
			case "<":
				return c < 0
			case "<=":
				return c <= 0
			case ">":
				return c > 0
			default:
				return c >= 0
			}
		}
	}
	l, r := toNumber(left), toNumber(right)
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	default:
		return l >= r
	}
}

func looseEqual(left, right runtime.Value) bool {
	if left.Kind() == right.Kind() {
		return runtime.Equal(left, right)
	}
	absent := func(v runtime.Value) bool { return runtime.IsNever(v) || runtime.IsUndefined(v) }
	if absent(left) || absent(right) {
		return absent(left) && absent(right)
	}
	switch left.Kind() {
	case runtime.KindNumber, runtime.KindString, runtime.KindBoolean:
	default:
		return false
	}
	switch right.Kind() {
	case runtime.KindNumber, runtime.KindString, runtime.KindBoolean:
	default:
		return false
	}
	return toNumber(left) == toNumber(right)
}

func applyUnary(op string, operand runtime.Value) (runtime.Value, error) {
	switch op {
	case "-":
		return number(-toNumber(operand)), nil
	case "+":
		return number(toNumber(operand)), nil
	case "!":
		return boolean(!runtime.IsTruthy(operand)), nil
	case "typeof":
		return runtime.StringValue{Val: typeOf(operand)}, nil
	default:
		return runtime.Never, errors.Errorf("unsupported unary operator %q", op)
	}
}

func typeOf(v runtime.Value) string {
	switch v.Kind() {
	case runtime.KindFunction, runtime.KindForeign:
		return "function"
	case runtime.KindNever, runtime.KindUndefined:
		return "undefined"
	default:
		return v.Kind().String()
	}
}
