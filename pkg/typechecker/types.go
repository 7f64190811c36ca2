package typechecker

import (
	"strings"

	"sourcestep/interpreter-go/pkg/ast"
)

// TypeName is the head of a static type.
type TypeName string

const (
	TypeNumber    TypeName = "number"
	TypeString    TypeName = "string"
	TypeBoolean   TypeName = "boolean"
	TypeFunction  TypeName = "function"
	TypeUndefined TypeName = "undefined"
	TypeAny       TypeName = "any"
)

// Type is a static type. Params and Returns are only meaningful for
// function types; a function type without Returns has an unknown result.
type Type struct {
	Name    TypeName
	Params  []Type
	Returns *Type
}

var (
	NumberT    = Type{Name: TypeNumber}
	StringT    = Type{Name: TypeString}
	BooleanT   = Type{Name: TypeBoolean}
	UndefinedT = Type{Name: TypeUndefined}
	AnyT       = Type{Name: TypeAny}
)

// FunctionT builds a function type.
func FunctionT(returns Type, params ...Type) Type {
	ret := returns
	return Type{Name: TypeFunction, Params: params, Returns: &ret}
}

func (t Type) IsAny() bool { return t.Name == TypeAny || t.Name == "" }

func (t Type) String() string {
	if t.Name == "" {
		return string(TypeAny)
	}
	if t.Name != TypeFunction || (t.Params == nil && t.Returns == nil) {
		return string(t.Name)
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	ret := AnyT
	if t.Returns != nil {
		ret = *t.Returns
	}
	return "(" + strings.Join(parts, ", ") + ") => " + ret.String()
}

// Accepts reports whether a value of type got may be used where any of the
// expected types is allowed. An empty expected set accepts everything.
func Accepts(expected []Type, got Type) bool {
	if got.IsAny() || len(expected) == 0 {
		return true
	}
	for _, e := range expected {
		if e.IsAny() || e.Name == got.Name {
			return true
		}
	}
	return false
}

// FromAnnotation converts a declared annotation into a type. A nil
// annotation yields ok=false.
func FromAnnotation(ann *ast.TypeAnnotation) (Type, bool) {
	if ann == nil {
		return AnyT, false
	}
	switch TypeName(ann.Name) {
	case TypeNumber, TypeString, TypeBoolean, TypeUndefined, TypeAny:
		return Type{Name: TypeName(ann.Name)}, true
	case TypeFunction:
		t := Type{Name: TypeFunction}
		for _, p := range ann.Params {
			pt, _ := FromAnnotation(p)
			t.Params = append(t.Params, pt)
		}
		if ann.Returns != nil {
			rt, _ := FromAnnotation(ann.Returns)
			t.Returns = &rt
		}
		return t, true
	default:
		return AnyT, true
	}
}

func describeTypes(types []Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, " or ")
}
