package ast

import (
	"ember/internal/source"
)

// ExprKind enumerates expression forms.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprLitInt
	ExprLitFloat
	ExprLitTrue
	ExprLitFalse
	ExprLitString
	ExprLitNone
	ExprIdent
	ExprUnary
	ExprBinary
	ExprCall       // free function call: Name(TypeArgs)(Args)
	ExprMethodCall // X.Sel(Args)
	ExprField      // X.Sel
	ExprIndex      // X[Y]
	ExprArrayLit   // [Args...]
	ExprMapLit     // Args as k,v,k,v pairs
	ExprSetLit     // set literal
	ExprStructLit  // Name{Fields} with optional TypeArgs
	ExprEnumCtor   // Name.Sel{Fields}
	ExprClosure    // |Params| Ret Body
	ExprCast       // X as Type
	ExprUnwrap     // X!
	ExprCatch      // X catch Sel Body | X catch => Y
	ExprPropagate  // X?
	ExprSpawn      // spawn X (X must be a call)
	ExprInterp     // string interpolation, Args alternate text/expr parts
)

// Op enumerates unary and binary operators.
type Op uint8

const (
	OpInvalid Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNot
	OpNeg
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr
)

// IsComparison reports whether the operator yields bool from two operands of
// one comparable type.
func (o Op) IsComparison() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// IsLogical reports whether the operator takes and yields bool.
func (o Op) IsLogical() bool {
	return o == OpAnd || o == OpOr
}

// IsArithmetic reports whether the operator is numeric-only.
func (o Op) IsArithmetic() bool {
	switch o {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr:
		return true
	}
	return false
}

// FieldInit is one name: value pair in a struct/enum/raise literal.
type FieldInit struct {
	Name  source.StringID
	Value ExprID
	Span  source.Span
}

// Expr is a fat expression node; which fields are meaningful depends on Kind
// (see the kind constants above).
type Expr struct {
	Kind ExprKind
	Span source.Span

	X, Y     ExprID
	Name     source.StringID // ident / call target / struct / enum name
	Sel      source.StringID // method, field, variant or catch binder name
	Text     source.StringID // literal text
	Op       Op
	Args     []ExprID
	TypeArgs []TypeExprID
	Fields   []FieldInit
	Type     TypeExprID // cast target
	Params   []Param    // closure parameters
	Ret      TypeExprID // closure declared return
	Errors   []ErrorRef // closure declared error set
	Body     StmtID     // closure body or catch handler block
}
