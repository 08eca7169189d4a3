package types

import (
	"fmt"

	"ember/internal/source"
)

// TypeID uniquely identifies an interned type. Structural identity implies
// ID equality, so type comparison is integer comparison.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindByte
	KindVoid
	KindNamed     // class or enum with resolved type arguments
	KindParam     // generic parameter inside a generic body
	KindFn        // function: params, result, error set
	KindNullable  // T? (inner never nullable or void)
	KindArray     // []T
	KindMap       // map[K]V, K hashable
	KindSet       // set[T], T hashable
	KindInterface // interface-object value
	KindTask      // spawned work handle, result retrieval fallible
	KindChan      // channel of Elem
	KindError     // a named error declaration used as a value (catch binder)
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindByte:
		return "byte"
	case KindVoid:
		return "void"
	case KindNamed:
		return "named"
	case KindParam:
		return "param"
	case KindFn:
		return "fn"
	case KindNullable:
		return "nullable"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	case KindInterface:
		return "interface"
	case KindTask:
		return "task"
	case KindChan:
		return "chan"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// NamedKind distinguishes what a KindNamed type refers to.
type NamedKind uint8

const (
	NamedClass NamedKind = iota
	NamedEnum
)

// Type is the structural descriptor the interner hashes. Meaning per kind:
//
//	Named:     Name + Named (class/enum) + Args
//	Param:     Name + Bounds (interface names)
//	Fn:        Args (params) + Result + Errors
//	Nullable:  Elem
//	Array/Set/Chan/Task: Elem
//	Map:       Key + Elem
//	Interface: Name
//	Error:     Name
type Type struct {
	Kind   Kind
	Name   source.StringID
	Named  NamedKind
	Elem   TypeID
	Key    TypeID
	Result TypeID
	Args   []TypeID
	Errors []source.StringID // sorted by the interner
	Bounds []source.StringID
}

// IsNumeric reports whether the type participates in arithmetic and the
// numeric cast allow-list.
func (t Type) IsNumeric() bool {
	return t.Kind == KindInt || t.Kind == KindFloat || t.Kind == KindByte
}

// Hashable reports whether values of the type may key a map or populate a
// set: primitives and enums, nothing structural or reference-like.
func (t Type) Hashable() bool {
	switch t.Kind {
	case KindInt, KindFloat, KindBool, KindString, KindByte:
		return true
	case KindNamed:
		return t.Named == NamedEnum
	}
	return false
}
