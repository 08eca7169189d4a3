package ast

import (
	"ember/internal/source"
)

// StmtKind enumerates statement forms.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtBlock
	StmtLet
	StmtAssign      // Name = Value
	StmtFieldAssign // X.Sel = Value
	StmtIndexAssign // X[Index] = Value
	StmtIf
	StmtWhile
	StmtFor // for Name in X
	StmtMatch
	StmtReturn
	StmtRaise
	StmtBreak
	StmtContinue
	StmtExpr
	StmtChanDecl // let Name = chan[Type](Value)
	StmtSelect
)

// MatchArm is one variant arm of a match statement.
type MatchArm struct {
	Variant source.StringID
	Binds   []source.StringID // payload field bindings, in variant field order
	Body    StmtID
	Span    source.Span
}

// SelectDir distinguishes send and receive select arms.
type SelectDir uint8

const (
	SelectRecv SelectDir = iota
	SelectSend
)

// SelectArm is one communication arm of a select statement.
type SelectArm struct {
	Dir   SelectDir
	Chan  ExprID
	Bind  source.StringID // receive binder
	Value ExprID          // send value
	Body  StmtID
	Span  source.Span
}

// Stmt is a fat statement node; meaningful fields depend on Kind.
type Stmt struct {
	Kind StmtKind
	Span source.Span

	Name   source.StringID // let/assign/for binder, raise error name
	Sel    source.StringID // field assign target
	Mut    bool            // let mutability
	Type   TypeExprID      // let declared type, chan element type
	Value  ExprID
	X      ExprID // condition, match subject, iterable, assigned object
	Index  ExprID
	Body   StmtID // then-branch, loop body
	Else   StmtID // else-branch, select default
	Stmts  []StmtID
	Fields []FieldInit // raise payload
	Arms   []MatchArm
	Comms  []SelectArm
}
