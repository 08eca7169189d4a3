package ast

import (
	"fmt"

	"fortio.org/safecast"

	"ember/internal/source"
)

// ImportRef is one resolved import of the unit.
type ImportRef struct {
	Path string
	Span source.Span
}

// Unit carries per-compilation-unit metadata.
type Unit struct {
	Name    string
	Imports []ImportRef
}

// Builder owns the arenas for one syntax tree. The parsing stage (or a test)
// fills it through the New* constructors; the checker treats the result as
// immutable, except that generic specialization appends cloned declarations.
type Builder struct {
	Strings *source.Interner

	Unit     Unit
	TopLevel []DeclID // declaration order, drives diagnostic determinism

	decls []Decl
	exprs []Expr
	stmts []Stmt
	types []TypeExpr
}

func NewBuilder(strings *source.Interner) *Builder {
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Builder{
		Strings: strings,
		decls:   make([]Decl, 1), // slot 0 = invalid sentinel
		exprs:   make([]Expr, 1),
		stmts:   make([]Stmt, 1),
		types:   make([]TypeExpr, 1),
	}
}

// Intern is a shorthand for Strings.Intern.
func (b *Builder) Intern(s string) source.StringID {
	return b.Strings.Intern(s)
}

// Name resolves an interned name back to text.
func (b *Builder) Name(id source.StringID) string {
	s, _ := b.Strings.Lookup(id)
	return s
}

func (b *Builder) nextIndex(n int) uint32 {
	idx, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("ast arena overflow: %w", err))
	}
	return idx
}

// --- arena access -----------------------------------------------------------

// Decl returns the node for id, or nil when id is invalid.
func (b *Builder) Decl(id DeclID) *Decl {
	if !id.IsValid() || int(id) >= len(b.decls) {
		return nil
	}
	return &b.decls[id]
}

func (b *Builder) Expr(id ExprID) *Expr {
	if !id.IsValid() || int(id) >= len(b.exprs) {
		return nil
	}
	return &b.exprs[id]
}

func (b *Builder) Stmt(id StmtID) *Stmt {
	if !id.IsValid() || int(id) >= len(b.stmts) {
		return nil
	}
	return &b.stmts[id]
}

func (b *Builder) TypeExpr(id TypeExprID) *TypeExpr {
	if !id.IsValid() || int(id) >= len(b.types) {
		return nil
	}
	return &b.types[id]
}

// NumDecls returns the arena size including the invalid slot.
func (b *Builder) NumDecls() int { return len(b.decls) }

// --- arena serialization ----------------------------------------------------

// Arenas exposes the raw node slices for the unit codec. Slot 0 sentinels
// are included; callers must not mutate the returned slices.
func (b *Builder) Arenas() (decls []Decl, exprs []Expr, stmts []Stmt, types []TypeExpr) {
	return b.decls, b.exprs, b.stmts, b.types
}

// Restore rebuilds a Builder around decoded arenas. The slices are adopted
// as-is; each must carry its slot-0 sentinel.
func Restore(strings *source.Interner, unit Unit, topLevel []DeclID, decls []Decl, exprs []Expr, stmts []Stmt, types []TypeExpr) (*Builder, error) {
	if len(decls) == 0 || len(exprs) == 0 || len(stmts) == 0 || len(types) == 0 {
		return nil, fmt.Errorf("ast: arena missing slot 0 sentinel")
	}
	for _, id := range topLevel {
		if !id.IsValid() || int(id) >= len(decls) {
			return nil, fmt.Errorf("ast: top-level decl %d out of range", id)
		}
	}
	return &Builder{
		Strings:  strings,
		Unit:     unit,
		TopLevel: topLevel,
		decls:    decls,
		exprs:    exprs,
		stmts:    stmts,
		types:    types,
	}, nil
}

// --- raw constructors -------------------------------------------------------

// AddDecl appends a declaration node and returns its ID. Top-level
// declarations must additionally be listed via AddTopLevel.
func (b *Builder) AddDecl(d Decl) DeclID {
	id := DeclID(b.nextIndex(len(b.decls)))
	b.decls = append(b.decls, d)
	return id
}

// AddTopLevel records declaration order for deterministic walks.
func (b *Builder) AddTopLevel(id DeclID) {
	b.TopLevel = append(b.TopLevel, id)
}

func (b *Builder) AddExpr(e Expr) ExprID {
	id := ExprID(b.nextIndex(len(b.exprs)))
	b.exprs = append(b.exprs, e)
	return id
}

func (b *Builder) AddStmt(s Stmt) StmtID {
	id := StmtID(b.nextIndex(len(b.stmts)))
	b.stmts = append(b.stmts, s)
	return id
}

func (b *Builder) AddTypeExpr(t TypeExpr) TypeExprID {
	id := TypeExprID(b.nextIndex(len(b.types)))
	b.types = append(b.types, t)
	return id
}

// --- type expression constructors ------------------------------------------

func (b *Builder) NewNamedType(span source.Span, name source.StringID, args ...TypeExprID) TypeExprID {
	return b.AddTypeExpr(TypeExpr{Kind: TypeExprNamed, Span: span, Name: name, Args: args})
}

func (b *Builder) NewNullableType(span source.Span, inner TypeExprID) TypeExprID {
	return b.AddTypeExpr(TypeExpr{Kind: TypeExprNullable, Span: span, Args: []TypeExprID{inner}})
}

func (b *Builder) NewArrayType(span source.Span, elem TypeExprID) TypeExprID {
	return b.AddTypeExpr(TypeExpr{Kind: TypeExprArray, Span: span, Args: []TypeExprID{elem}})
}

func (b *Builder) NewMapType(span source.Span, key, value TypeExprID) TypeExprID {
	return b.AddTypeExpr(TypeExpr{Kind: TypeExprMap, Span: span, Args: []TypeExprID{key, value}})
}

func (b *Builder) NewSetType(span source.Span, elem TypeExprID) TypeExprID {
	return b.AddTypeExpr(TypeExpr{Kind: TypeExprSet, Span: span, Args: []TypeExprID{elem}})
}

func (b *Builder) NewFnType(span source.Span, params []TypeExprID, ret TypeExprID, errs []source.StringID) TypeExprID {
	return b.AddTypeExpr(TypeExpr{Kind: TypeExprFn, Span: span, Args: params, Ret: ret, Errors: errs})
}

// --- expression constructors ------------------------------------------------

func (b *Builder) NewLiteral(span source.Span, kind ExprKind, text source.StringID) ExprID {
	return b.AddExpr(Expr{Kind: kind, Span: span, Text: text})
}

func (b *Builder) NewIdent(span source.Span, name source.StringID) ExprID {
	return b.AddExpr(Expr{Kind: ExprIdent, Span: span, Name: name})
}

func (b *Builder) NewUnary(span source.Span, op Op, x ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprUnary, Span: span, Op: op, X: x})
}

func (b *Builder) NewBinary(span source.Span, op Op, x, y ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprBinary, Span: span, Op: op, X: x, Y: y})
}

func (b *Builder) NewCall(span source.Span, name source.StringID, typeArgs []TypeExprID, args ...ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprCall, Span: span, Name: name, TypeArgs: typeArgs, Args: args})
}

func (b *Builder) NewMethodCall(span source.Span, x ExprID, method source.StringID, args ...ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprMethodCall, Span: span, X: x, Sel: method, Args: args})
}

func (b *Builder) NewField(span source.Span, x ExprID, field source.StringID) ExprID {
	return b.AddExpr(Expr{Kind: ExprField, Span: span, X: x, Sel: field})
}

func (b *Builder) NewIndex(span source.Span, x, index ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprIndex, Span: span, X: x, Y: index})
}

func (b *Builder) NewArrayLit(span source.Span, elems ...ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprArrayLit, Span: span, Args: elems})
}

// NewMapLit takes alternating key, value expressions.
func (b *Builder) NewMapLit(span source.Span, pairs ...ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprMapLit, Span: span, Args: pairs})
}

func (b *Builder) NewSetLit(span source.Span, elems ...ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprSetLit, Span: span, Args: elems})
}

func (b *Builder) NewStructLit(span source.Span, name source.StringID, typeArgs []TypeExprID, fields []FieldInit) ExprID {
	return b.AddExpr(Expr{Kind: ExprStructLit, Span: span, Name: name, TypeArgs: typeArgs, Fields: fields})
}

func (b *Builder) NewEnumCtor(span source.Span, enum, variant source.StringID, fields []FieldInit) ExprID {
	return b.AddExpr(Expr{Kind: ExprEnumCtor, Span: span, Name: enum, Sel: variant, Fields: fields})
}

func (b *Builder) NewClosure(span source.Span, params []Param, ret TypeExprID, errs []ErrorRef, body StmtID) ExprID {
	return b.AddExpr(Expr{Kind: ExprClosure, Span: span, Params: params, Ret: ret, Errors: errs, Body: body})
}

func (b *Builder) NewCast(span source.Span, x ExprID, to TypeExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprCast, Span: span, X: x, Type: to})
}

func (b *Builder) NewUnwrap(span source.Span, x ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprUnwrap, Span: span, X: x})
}

// NewCatchHandler builds `x catch bind { body }`.
func (b *Builder) NewCatchHandler(span source.Span, x ExprID, bind source.StringID, body StmtID) ExprID {
	return b.AddExpr(Expr{Kind: ExprCatch, Span: span, X: x, Sel: bind, Body: body})
}

// NewCatchDefault builds the shorthand `x catch => fallback`.
func (b *Builder) NewCatchDefault(span source.Span, x, fallback ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprCatch, Span: span, X: x, Y: fallback})
}

func (b *Builder) NewPropagate(span source.Span, x ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprPropagate, Span: span, X: x})
}

func (b *Builder) NewSpawn(span source.Span, call ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprSpawn, Span: span, X: call})
}

func (b *Builder) NewInterp(span source.Span, parts ...ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprInterp, Span: span, Args: parts})
}

// --- statement constructors -------------------------------------------------

func (b *Builder) NewBlock(span source.Span, stmts ...StmtID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtBlock, Span: span, Stmts: stmts})
}

func (b *Builder) NewLet(span source.Span, name source.StringID, mut bool, declared TypeExprID, value ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtLet, Span: span, Name: name, Mut: mut, Type: declared, Value: value})
}

func (b *Builder) NewAssign(span source.Span, name source.StringID, value ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtAssign, Span: span, Name: name, Value: value})
}

func (b *Builder) NewFieldAssign(span source.Span, object ExprID, field source.StringID, value ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtFieldAssign, Span: span, X: object, Sel: field, Value: value})
}

func (b *Builder) NewIndexAssign(span source.Span, object, index, value ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtIndexAssign, Span: span, X: object, Index: index, Value: value})
}

func (b *Builder) NewIf(span source.Span, cond ExprID, then, els StmtID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtIf, Span: span, X: cond, Body: then, Else: els})
}

func (b *Builder) NewWhile(span source.Span, cond ExprID, body StmtID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtWhile, Span: span, X: cond, Body: body})
}

func (b *Builder) NewFor(span source.Span, binder source.StringID, iterable ExprID, body StmtID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtFor, Span: span, Name: binder, X: iterable, Body: body})
}

func (b *Builder) NewMatch(span source.Span, subject ExprID, arms []MatchArm) StmtID {
	return b.AddStmt(Stmt{Kind: StmtMatch, Span: span, X: subject, Arms: arms})
}

func (b *Builder) NewReturn(span source.Span, value ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtReturn, Span: span, Value: value})
}

func (b *Builder) NewRaise(span source.Span, errName source.StringID, fields []FieldInit) StmtID {
	return b.AddStmt(Stmt{Kind: StmtRaise, Span: span, Name: errName, Fields: fields})
}

func (b *Builder) NewBreak(span source.Span) StmtID {
	return b.AddStmt(Stmt{Kind: StmtBreak, Span: span})
}

func (b *Builder) NewContinue(span source.Span) StmtID {
	return b.AddStmt(Stmt{Kind: StmtContinue, Span: span})
}

func (b *Builder) NewExprStmt(span source.Span, x ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtExpr, Span: span, Value: x})
}

func (b *Builder) NewChanDecl(span source.Span, name source.StringID, elem TypeExprID, capacity ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtChanDecl, Span: span, Name: name, Type: elem, Value: capacity})
}

func (b *Builder) NewSelect(span source.Span, comms []SelectArm, def StmtID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtSelect, Span: span, Comms: comms, Else: def})
}
