package ast

import (
	"slices"

	"ember/internal/source"
)

// TypeSubst maps generic parameter names to replacement type expressions that
// already live in the same builder. Used by specialization to stamp out one
// concrete copy of a generic declaration per argument tuple.
type TypeSubst map[source.StringID]TypeExprID

// CloneDecl deep-copies a declaration, rewriting every type expression through
// subst. The clone keeps spans of the original so diagnostics raised inside a
// specialized body still point at the generic source text.
func (b *Builder) CloneDecl(id DeclID, subst TypeSubst) DeclID {
	src := b.Decl(id)
	if src == nil {
		return NoDeclID
	}
	clone := *src
	clone.TypeParams = nil // the clone is fully concrete
	clone.Params = b.cloneParams(src.Params, subst)
	clone.Return = b.cloneTypeExpr(src.Return, subst)
	clone.Errors = slices.Clone(src.Errors)
	clone.Contracts = b.cloneContracts(src.Contracts, subst)
	clone.Body = b.cloneStmt(src.Body, subst)
	clone.Fields = b.cloneFields(src.Fields, subst)
	clone.Impls = slices.Clone(src.Impls)
	if len(src.Variants) > 0 {
		clone.Variants = make([]Variant, len(src.Variants))
		for i, v := range src.Variants {
			clone.Variants[i] = Variant{Name: v.Name, Fields: b.cloneFields(v.Fields, subst), Span: v.Span}
		}
	}
	if len(src.Methods) > 0 {
		clone.Methods = make([]DeclID, len(src.Methods))
		for i, m := range src.Methods {
			clone.Methods[i] = b.CloneDecl(m, subst)
		}
	}
	return b.AddDecl(clone)
}

func (b *Builder) cloneParams(params []Param, subst TypeSubst) []Param {
	if len(params) == 0 {
		return nil
	}
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = Param{Name: p.Name, Type: b.cloneTypeExpr(p.Type, subst), Mut: p.Mut, Span: p.Span}
	}
	return out
}

func (b *Builder) cloneFields(fields []Field, subst TypeSubst) []Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Name: f.Name, Type: b.cloneTypeExpr(f.Type, subst), Injected: f.Injected, Span: f.Span}
	}
	return out
}

func (b *Builder) cloneContracts(contracts []Contract, subst TypeSubst) []Contract {
	if len(contracts) == 0 {
		return nil
	}
	out := make([]Contract, len(contracts))
	for i, c := range contracts {
		out[i] = Contract{Kind: c.Kind, Expr: b.cloneExpr(c.Expr, subst), Span: c.Span}
	}
	return out
}

func (b *Builder) cloneTypeExpr(id TypeExprID, subst TypeSubst) TypeExprID {
	src := b.TypeExpr(id)
	if src == nil {
		return NoTypeExprID
	}
	if src.Kind == TypeExprNamed && len(src.Args) == 0 {
		if repl, ok := subst[src.Name]; ok {
			return repl
		}
	}
	clone := *src
	if len(src.Args) > 0 {
		clone.Args = make([]TypeExprID, len(src.Args))
		for i, a := range src.Args {
			clone.Args[i] = b.cloneTypeExpr(a, subst)
		}
	}
	clone.Ret = b.cloneTypeExpr(src.Ret, subst)
	clone.Errors = slices.Clone(src.Errors)
	return b.AddTypeExpr(clone)
}

func (b *Builder) cloneExpr(id ExprID, subst TypeSubst) ExprID {
	src := b.Expr(id)
	if src == nil {
		return NoExprID
	}
	clone := *src
	clone.X = b.cloneExpr(src.X, subst)
	clone.Y = b.cloneExpr(src.Y, subst)
	if len(src.Args) > 0 {
		clone.Args = make([]ExprID, len(src.Args))
		for i, a := range src.Args {
			clone.Args[i] = b.cloneExpr(a, subst)
		}
	}
	if len(src.TypeArgs) > 0 {
		clone.TypeArgs = make([]TypeExprID, len(src.TypeArgs))
		for i, a := range src.TypeArgs {
			clone.TypeArgs[i] = b.cloneTypeExpr(a, subst)
		}
	}
	if len(src.Fields) > 0 {
		clone.Fields = make([]FieldInit, len(src.Fields))
		for i, f := range src.Fields {
			clone.Fields[i] = FieldInit{Name: f.Name, Value: b.cloneExpr(f.Value, subst), Span: f.Span}
		}
	}
	clone.Type = b.cloneTypeExpr(src.Type, subst)
	clone.Params = b.cloneParams(src.Params, subst)
	clone.Ret = b.cloneTypeExpr(src.Ret, subst)
	clone.Errors = slices.Clone(src.Errors)
	clone.Body = b.cloneStmt(src.Body, subst)
	return b.AddExpr(clone)
}

func (b *Builder) cloneStmt(id StmtID, subst TypeSubst) StmtID {
	src := b.Stmt(id)
	if src == nil {
		return NoStmtID
	}
	clone := *src
	clone.Type = b.cloneTypeExpr(src.Type, subst)
	clone.Value = b.cloneExpr(src.Value, subst)
	clone.X = b.cloneExpr(src.X, subst)
	clone.Index = b.cloneExpr(src.Index, subst)
	clone.Body = b.cloneStmt(src.Body, subst)
	clone.Else = b.cloneStmt(src.Else, subst)
	if len(src.Stmts) > 0 {
		clone.Stmts = make([]StmtID, len(src.Stmts))
		for i, s := range src.Stmts {
			clone.Stmts[i] = b.cloneStmt(s, subst)
		}
	}
	if len(src.Fields) > 0 {
		clone.Fields = make([]FieldInit, len(src.Fields))
		for i, f := range src.Fields {
			clone.Fields[i] = FieldInit{Name: f.Name, Value: b.cloneExpr(f.Value, subst), Span: f.Span}
		}
	}
	if len(src.Arms) > 0 {
		clone.Arms = make([]MatchArm, len(src.Arms))
		for i, a := range src.Arms {
			clone.Arms[i] = MatchArm{
				Variant: a.Variant,
				Binds:   slices.Clone(a.Binds),
				Body:    b.cloneStmt(a.Body, subst),
				Span:    a.Span,
			}
		}
	}
	if len(src.Comms) > 0 {
		clone.Comms = make([]SelectArm, len(src.Comms))
		for i, c := range src.Comms {
			clone.Comms[i] = SelectArm{
				Dir:   c.Dir,
				Chan:  b.cloneExpr(c.Chan, subst),
				Bind:  c.Bind,
				Value: b.cloneExpr(c.Value, subst),
				Body:  b.cloneStmt(c.Body, subst),
				Span:  c.Span,
			}
		}
	}
	return b.AddStmt(clone)
}
