package sema

import (
	"fmt"
	"strings"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/symbols"
	"ember/internal/types"
)

// contractCtx is set while a contract clause is typed: it gates the result
// pseudo-binding and the old() intrinsic to ensures clauses.
type contractCtx struct {
	kind ast.ContractKind
}

// checkContractsWith verifies every requires/ensures clause of a function or
// method using the surrounding body checker's environment machinery.
func (c *checker) checkContractsWith(bc *bodyChecker, id ast.DeclID, selfType types.TypeID) {
	d := c.b.Decl(id)
	sig := c.sigs[id]
	if sig == nil || len(d.Contracts) == 0 {
		return
	}
	for _, ct := range d.Contracts {
		if ct.Kind == ast.ContractInvariant {
			bc.errorf(diag.ContractNotDecidable, ct.Span,
				"invariant clauses belong on the declaring type, not on %q", c.name(d.Name))
			continue
		}
		bc.checkContractClause(d, sig, ct)
	}
}

// checkContracts verifies the contract clauses of a bodyless declaration,
// typically an interface method.
func (c *checker) checkContracts(id ast.DeclID, selfType types.TypeID, r diag.Reporter) {
	sig := c.sigs[id]
	if sig == nil {
		return
	}
	bc := &bodyChecker{
		c:        c,
		reporter: r,
		decl:     id,
		selfType: selfType,
		env:      symbols.NewEnv(),
		handled:  make(map[ast.ExprID]bool),
	}
	bc.fnStack = append(bc.fnStack, &fnCtx{sig: sig, decl: id})
	c.checkContractsWith(bc, id, selfType)
}

// checkClassContracts verifies class-level invariants: boolean, decidable,
// phrased over self alone.
func (c *checker) checkClassContracts(id ast.DeclID, d *ast.Decl, selfType types.TypeID) {
	if len(d.Contracts) == 0 {
		return
	}
	sig := &fnSig{HasSelf: true, Result: c.types.Builtins().Void}
	bc := &bodyChecker{
		c:        c,
		reporter: c.reporter,
		decl:     id,
		selfType: selfType,
		env:      symbols.NewEnv(),
		handled:  make(map[ast.ExprID]bool),
	}
	bc.fnStack = append(bc.fnStack, &fnCtx{sig: sig, decl: id})
	for _, ct := range d.Contracts {
		if ct.Kind != ast.ContractInvariant {
			bc.errorf(diag.ContractNotDecidable, ct.Span,
				"%s clauses belong on functions, not on %s %q",
				ct.Kind, d.Kind, c.name(d.Name))
			continue
		}
		bc.checkContractClause(d, sig, ct)
	}
}

// checkContractClause types one clause in a scratch scope holding the
// signature's parameters and, inside ensures, the result pseudo-binding.
func (bc *bodyChecker) checkContractClause(d *ast.Decl, sig *fnSig, ct ast.Contract) {
	bc.env.Push(symbols.ScopeFunction)
	params := d.Params
	if sig.HasSelf {
		bc.env.DefineParam(bc.c.b.Intern("self"), bc.selfType, false, ct.Span)
		if len(params) > 0 {
			params = params[1:]
		}
	}
	for i, p := range params {
		var pt types.TypeID
		if i < len(sig.Params) {
			pt = sig.Params[i]
		}
		bc.env.DefineParam(p.Name, pt, false, p.Span)
	}

	bc.contract = &contractCtx{kind: ct.Kind}
	t := bc.typeExpr(ct.Expr)
	bc.contract = nil
	bc.env.Pop()

	if t != types.NoTypeID && t != bc.c.types.Builtins().Bool {
		bc.errorf(diag.ContractNotBool, ct.Span,
			"%s clause must be bool, found %s", ct.Kind, bc.typeLabel(t))
	}
	bc.checkDecidable(ct.Expr, ct.Kind)
}

// checkDecidable rejects contract expressions outside the decidable
// fragment: no user calls, no construction, no closures, no effects. What
// remains is comparisons, arithmetic, field and index reads, old() inside
// ensures and len().
func (bc *bodyChecker) checkDecidable(id ast.ExprID, kind ast.ContractKind) {
	e := bc.c.b.Expr(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprLitInt, ast.ExprLitFloat, ast.ExprLitTrue, ast.ExprLitFalse,
		ast.ExprLitString, ast.ExprLitNone, ast.ExprIdent:
		return
	case ast.ExprUnary, ast.ExprUnwrap:
		bc.checkDecidable(e.X, kind)
	case ast.ExprBinary, ast.ExprIndex:
		bc.checkDecidable(e.X, kind)
		bc.checkDecidable(e.Y, kind)
	case ast.ExprField:
		bc.checkDecidable(e.X, kind)
	case ast.ExprEnumCtor:
		if len(e.Fields) > 0 {
			bc.errorf(diag.ContractNotDecidable, e.Span,
				"contracts may name enum variants but not construct payloads")
		}
	case ast.ExprCall:
		switch bc.name(e.Name) {
		case "old", "len":
			for _, arg := range e.Args {
				bc.checkDecidable(arg, kind)
			}
			return
		}
		bc.errorf(diag.ContractNotDecidable, e.Span,
			"contracts cannot call %q; only old() and len() are allowed", bc.name(e.Name))
	default:
		bc.errorf(diag.ContractNotDecidable, e.Span,
			"this expression form is not allowed in a contract")
	}
}

// contractIdent resolves the result pseudo-binding inside contract clauses.
// It reports whether the identifier was contract-special.
func (bc *bodyChecker) contractIdent(e *ast.Expr) (types.TypeID, bool) {
	if bc.contract == nil || bc.name(e.Name) != "result" {
		return types.NoTypeID, false
	}
	if bc.contract.kind != ast.ContractEnsures {
		bc.errorf(diag.ContractResultMisplaced, e.Span,
			"result is only available in ensures clauses")
		return types.NoTypeID, true
	}
	return bc.fn().sig.Result, true
}

// contractOldCall handles the old() intrinsic: one argument, typed as that
// argument. A pre-state snapshot only makes sense where state can change, so
// old() is confined to invariants and to ensures clauses of methods with a
// mut receiver.
func (bc *bodyChecker) contractOldCall(e *ast.Expr) (types.TypeID, bool) {
	if bc.name(e.Name) != "old" {
		return types.NoTypeID, false
	}
	if bc.contract == nil ||
		(bc.contract.kind != ast.ContractEnsures && bc.contract.kind != ast.ContractInvariant) {
		bc.errorf(diag.ContractImproperOld, e.Span,
			"old() is only available in ensures and invariant clauses")
		bc.typeArgValues(e.Args)
		return types.NoTypeID, true
	}
	if bc.contract.kind == ast.ContractEnsures {
		if sig := bc.fn().sig; !sig.HasSelf || !sig.SelfMut {
			bc.errorf(diag.ContractImproperOld, e.Span,
				"old() captures pre-state and needs a method with a mut receiver")
			bc.typeArgValues(e.Args)
			return types.NoTypeID, true
		}
	}
	if len(e.Args) != 1 {
		bc.errorf(diag.TypeWrongArgCount, e.Span,
			"old expects 1 argument, got %d", len(e.Args))
		bc.typeArgValues(e.Args)
		return types.NoTypeID, true
	}
	return bc.typeExpr(e.Args[0]), true
}

// checkLiskov enforces behavioral subtyping between an interface method and
// its implementation over the decidable fragment: the implementation may not
// strengthen preconditions or weaken postconditions. Clauses compare by
// canonical structural rendering.
func (c *checker) checkLiskov(iface *ast.Decl, im *ast.Decl, isig *fnSig, cm *ast.Decl, cmid ast.DeclID) {
	if len(im.Contracts) == 0 && len(cm.Contracts) == 0 {
		return
	}
	ifaceReq := c.contractSet(im.Contracts, ast.ContractRequires)
	implEns := c.contractSet(cm.Contracts, ast.ContractEnsures)

	for _, ct := range cm.Contracts {
		if ct.Kind != ast.ContractRequires {
			continue
		}
		if !ifaceReq[c.renderContractExpr(ct.Expr)] {
			c.errorf(diag.ContractLiskov, ct.Span,
				"method %q strengthens the precondition of interface %q",
				c.name(cm.Name), c.name(iface.Name))
		}
	}
	for _, ct := range im.Contracts {
		if ct.Kind != ast.ContractEnsures {
			continue
		}
		if !implEns[c.renderContractExpr(ct.Expr)] {
			c.errorf(diag.ContractLiskov, cm.NameSpan,
				"method %q weakens the postcondition of interface %q: missing ensures %s",
				c.name(cm.Name), c.name(iface.Name), c.renderContractExpr(ct.Expr))
		}
	}
}

func (c *checker) contractSet(contracts []ast.Contract, kind ast.ContractKind) map[string]bool {
	set := make(map[string]bool)
	for _, ct := range contracts {
		if ct.Kind == kind {
			set[c.renderContractExpr(ct.Expr)] = true
		}
	}
	return set
}

// renderContractExpr produces a canonical structural rendering of a
// decidable contract expression, stable across spans and interning order.
func (c *checker) renderContractExpr(id ast.ExprID) string {
	e := c.b.Expr(id)
	if e == nil {
		return "?"
	}
	switch e.Kind {
	case ast.ExprLitInt, ast.ExprLitFloat, ast.ExprLitString:
		return c.name(e.Text)
	case ast.ExprLitTrue:
		return "true"
	case ast.ExprLitFalse:
		return "false"
	case ast.ExprLitNone:
		return "none"
	case ast.ExprIdent:
		return c.name(e.Name)
	case ast.ExprUnary:
		return fmt.Sprintf("(%s %s)", opCanon(e.Op), c.renderContractExpr(e.X))
	case ast.ExprBinary:
		return fmt.Sprintf("(%s %s %s)",
			opCanon(e.Op), c.renderContractExpr(e.X), c.renderContractExpr(e.Y))
	case ast.ExprField:
		return c.renderContractExpr(e.X) + "." + c.name(e.Sel)
	case ast.ExprIndex:
		return c.renderContractExpr(e.X) + "[" + c.renderContractExpr(e.Y) + "]"
	case ast.ExprUnwrap:
		return c.renderContractExpr(e.X) + "!"
	case ast.ExprEnumCtor:
		return c.name(e.Name) + "." + c.name(e.Sel)
	case ast.ExprCall:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = c.renderContractExpr(a)
		}
		return c.name(e.Name) + "(" + strings.Join(args, ",") + ")"
	}
	return "?"
}

func opCanon(op ast.Op) string {
	switch op {
	case ast.OpAdd:
		return "+"
	case ast.OpSub:
		return "-"
	case ast.OpMul:
		return "*"
	case ast.OpDiv:
		return "/"
	case ast.OpMod:
		return "%"
	case ast.OpEq:
		return "=="
	case ast.OpNe:
		return "!="
	case ast.OpLt:
		return "<"
	case ast.OpLe:
		return "<="
	case ast.OpGt:
		return ">"
	case ast.OpGe:
		return ">="
	case ast.OpAnd:
		return "&&"
	case ast.OpOr:
		return "||"
	case ast.OpNot:
		return "!"
	case ast.OpNeg:
		return "neg"
	case ast.OpBitAnd:
		return "&"
	case ast.OpBitOr:
		return "|"
	case ast.OpBitXor:
		return "^"
	case ast.OpBitNot:
		return "~"
	case ast.OpShl:
		return "<<"
	case ast.OpShr:
		return ">>"
	}
	return "?"
}
