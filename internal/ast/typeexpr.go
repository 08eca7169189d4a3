package ast

import (
	"ember/internal/source"
)

// TypeExprKind enumerates syntactic type forms.
type TypeExprKind uint8

const (
	TypeExprInvalid TypeExprKind = iota
	TypeExprNamed                // identifier with optional type arguments
	TypeExprNullable             // T?
	TypeExprArray                // []T
	TypeExprMap                  // map[K]V
	TypeExprSet                  // set[T]
	TypeExprFn                   // fn(params) R ! {E...}
)

func (k TypeExprKind) String() string {
	switch k {
	case TypeExprNamed:
		return "named"
	case TypeExprNullable:
		return "nullable"
	case TypeExprArray:
		return "array"
	case TypeExprMap:
		return "map"
	case TypeExprSet:
		return "set"
	case TypeExprFn:
		return "fn"
	default:
		return "invalid"
	}
}

// TypeExpr is a syntactic type reference. Meaning:
//
//	Named:    Name + Args (type arguments)
//	Nullable: Args[0] = inner
//	Array:    Args[0] = element
//	Map:      Args[0] = key, Args[1] = value
//	Set:      Args[0] = element
//	Fn:       Args = parameter types, Ret = return, Errors = declared raises
type TypeExpr struct {
	Kind   TypeExprKind
	Span   source.Span
	Name   source.StringID
	Args   []TypeExprID
	Ret    TypeExprID
	Errors []source.StringID
}
