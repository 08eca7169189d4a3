package sema

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// termStatus tracks whether a statement closes all control-flow paths.
type termStatus uint8

const (
	termOpen termStatus = iota
	termClosed
)

func (bc *bodyChecker) stmt(id ast.StmtID) termStatus {
	s := bc.c.b.Stmt(id)
	if s == nil {
		return termOpen
	}
	switch s.Kind {
	case ast.StmtBlock:
		return bc.block(s)
	case ast.StmtLet:
		bc.letStmt(s)
	case ast.StmtAssign:
		bc.assign(s)
	case ast.StmtFieldAssign:
		bc.fieldAssign(s)
	case ast.StmtIndexAssign:
		bc.indexAssign(s)
	case ast.StmtIf:
		return bc.ifStmt(s)
	case ast.StmtWhile:
		bc.condition(s.X)
		bc.loopDepth++
		bc.scoped(symbols.ScopeBlock, s.Body)
		bc.loopDepth--
	case ast.StmtFor:
		bc.forStmt(s)
	case ast.StmtMatch:
		return bc.matchStmt(s)
	case ast.StmtReturn:
		bc.returnStmt(s)
		return termClosed
	case ast.StmtRaise:
		bc.raiseStmt(s)
		return termClosed
	case ast.StmtBreak, ast.StmtContinue:
		if bc.loopDepth == 0 {
			word := "break"
			if s.Kind == ast.StmtContinue {
				word = "continue"
			}
			bc.errorf(diag.TypeMismatch, s.Span, "%s outside of a loop", word)
		}
		return termClosed
	case ast.StmtExpr:
		bc.typeExpr(s.Value)
	case ast.StmtChanDecl:
		bc.chanDecl(s)
	case ast.StmtSelect:
		bc.selectStmt(s)
	}
	return termOpen
}

func (bc *bodyChecker) block(s *ast.Stmt) termStatus {
	status := termOpen
	for _, sid := range s.Stmts {
		if status == termClosed {
			bc.warnf(diag.WarnUnreachable, bc.c.b.Stmt(sid).Span, "unreachable code")
			// Keep checking so the unreachable code still type-checks.
		}
		if bc.stmt(sid) == termClosed {
			status = termClosed
		}
	}
	return status
}

// scoped walks a statement inside a fresh block scope.
func (bc *bodyChecker) scoped(kind symbols.ScopeKind, id ast.StmtID) termStatus {
	bc.env.Push(kind)
	status := bc.stmt(id)
	bc.reportUnused(bc.env.Pop())
	return status
}

func (bc *bodyChecker) condition(id ast.ExprID) {
	t := bc.typeExpr(id)
	if t != types.NoTypeID && t != bc.c.types.Builtins().Bool {
		bc.errorf(diag.TypeConditionNotBool, bc.exprSpan(id),
			"condition must be bool, found %s", bc.typeLabel(t))
	}
}

func (bc *bodyChecker) letStmt(s *ast.Stmt) {
	var declared types.TypeID
	if s.Type.IsValid() {
		declared = bc.c.resolveTypeExpr(s.Type, nil)
	}
	var value types.TypeID
	if s.Value.IsValid() {
		value = bc.typeExprExpected(s.Value, declared)
	}
	bindType := declared
	if bindType == types.NoTypeID {
		bindType = value
		if bindType == types.NoTypeID && s.Value.IsValid() {
			// Inference failed; the value walk reported already.
		} else if !s.Value.IsValid() {
			bc.errorf(diag.TypeCannotInfer, s.Span,
				"cannot infer a type for %q without an initializer", bc.name(s.Name))
		}
	} else if value != types.NoTypeID && !bc.assignable(value, declared, s.Value) {
		bc.errorf(diag.TypeMismatch, bc.exprSpan(s.Value),
			"cannot assign %s to %q of type %s",
			bc.typeLabel(value), bc.name(s.Name), bc.typeLabel(declared))
	}
	bc.env.Define(s.Name, bindType, s.Mut, s.Span)
}

func (bc *bodyChecker) assign(s *ast.Stmt) {
	binding, _, ok := bc.env.Lookup(s.Name)
	if !ok {
		bc.errorf(diag.TypeUnresolvedName, s.Span, "undefined name %q", bc.name(s.Name))
		bc.typeExpr(s.Value)
		return
	}
	binding.Used = true
	if !binding.Mut {
		bc.errorf(diag.MutAssignImmutable, s.Span,
			"cannot assign to immutable binding %q; declare it with mut", bc.name(s.Name))
	}
	value := bc.typeExprExpected(s.Value, binding.Type)
	if value != types.NoTypeID && binding.Type != types.NoTypeID && !bc.assignable(value, binding.Type, s.Value) {
		bc.errorf(diag.TypeMismatch, bc.exprSpan(s.Value),
			"cannot assign %s to %q of type %s",
			bc.typeLabel(value), bc.name(s.Name), bc.typeLabel(binding.Type))
	}
}

func (bc *bodyChecker) fieldAssign(s *ast.Stmt) {
	objType := bc.typeExpr(s.X)
	bc.requireMutablePlace(s.X, "write field "+bc.name(s.Sel))
	fieldType, ok := bc.fieldTypeOf(objType, s.Sel)
	if !ok {
		if objType != types.NoTypeID {
			bc.errorf(diag.TypeUnknownField, s.Span,
				"type %s has no field %q", bc.typeLabel(objType), bc.name(s.Sel))
		}
		bc.typeExpr(s.Value)
		return
	}
	value := bc.typeExprExpected(s.Value, fieldType)
	if value != types.NoTypeID && !bc.assignable(value, fieldType, s.Value) {
		bc.errorf(diag.TypeMismatch, bc.exprSpan(s.Value),
			"cannot assign %s to field %q of type %s",
			bc.typeLabel(value), bc.name(s.Sel), bc.typeLabel(fieldType))
	}
}

func (bc *bodyChecker) indexAssign(s *ast.Stmt) {
	objType := bc.typeExpr(s.X)
	bc.requireMutablePlace(s.X, "write element")
	indexType := bc.typeExpr(s.Index)
	value := bc.typeExpr(s.Value)
	t, ok := bc.c.types.Lookup(objType)
	if !ok {
		return
	}
	switch t.Kind {
	case types.KindArray:
		bc.wantType(indexType, bc.c.types.Builtins().Int, s.Index)
		if value != types.NoTypeID && !bc.assignable(value, t.Elem, s.Value) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(s.Value),
				"cannot store %s in %s", bc.typeLabel(value), bc.typeLabel(objType))
		}
	case types.KindMap:
		bc.wantType(indexType, t.Key, s.Index)
		if value != types.NoTypeID && !bc.assignable(value, t.Elem, s.Value) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(s.Value),
				"cannot store %s in %s", bc.typeLabel(value), bc.typeLabel(objType))
		}
	default:
		bc.errorf(diag.TypeNotIndexable, s.Span,
			"type %s does not support index assignment", bc.typeLabel(objType))
	}
}

func (bc *bodyChecker) ifStmt(s *ast.Stmt) termStatus {
	bc.condition(s.X)
	thenStatus := bc.scoped(symbols.ScopeBlock, s.Body)
	if !s.Else.IsValid() {
		return termOpen
	}
	elseStatus := bc.scoped(symbols.ScopeBlock, s.Else)
	if thenStatus == termClosed && elseStatus == termClosed {
		return termClosed
	}
	return termOpen
}

func (bc *bodyChecker) forStmt(s *ast.Stmt) {
	iterType := bc.typeExpr(s.X)
	var elemType types.TypeID
	if t, ok := bc.c.types.Lookup(iterType); ok {
		switch t.Kind {
		case types.KindArray, types.KindSet:
			elemType = t.Elem
		case types.KindMap:
			elemType = t.Key
		case types.KindString:
			elemType = bc.c.types.Builtins().Byte
		default:
			bc.errorf(diag.TypeMismatch, bc.exprSpan(s.X),
				"type %s is not iterable", bc.typeLabel(iterType))
		}
	}
	bc.env.Push(symbols.ScopeBlock)
	bc.env.Define(s.Name, elemType, false, s.Span)
	bc.loopDepth++
	bc.stmt(s.Body)
	bc.loopDepth--
	bc.reportUnused(bc.env.Pop())
}

func (bc *bodyChecker) matchStmt(s *ast.Stmt) termStatus {
	subjectType := bc.typeExpr(s.X)
	t, ok := bc.c.types.Lookup(subjectType)
	var enumDecl *ast.Decl
	var subst types.Subst
	if ok && t.Kind == types.KindNamed && t.Named == types.NamedEnum {
		if id, found := bc.c.table.LookupKind(t.Name, ast.DeclEnum); found {
			enumDecl = bc.c.b.Decl(id)
			subst = bc.c.nominalSubst(enumDecl, t.Args)
		}
	} else if ok {
		bc.errorf(diag.TypeMismatch, bc.exprSpan(s.X),
			"match subject must be an enum, found %s", bc.typeLabel(subjectType))
	}

	allClosed := len(s.Arms) > 0
	for _, arm := range s.Arms {
		bc.env.Push(symbols.ScopeBlock)
		if enumDecl != nil {
			bc.bindMatchArm(enumDecl, subst, arm)
		}
		if bc.stmt(arm.Body) != termClosed {
			allClosed = false
		}
		bc.reportUnused(bc.env.Pop())
	}
	if allClosed && enumDecl != nil && len(s.Arms) == len(enumDecl.Variants) {
		return termClosed
	}
	return termOpen
}

func (bc *bodyChecker) bindMatchArm(enumDecl *ast.Decl, subst types.Subst, arm ast.MatchArm) {
	var variant *ast.Variant
	for i := range enumDecl.Variants {
		if enumDecl.Variants[i].Name == arm.Variant {
			variant = &enumDecl.Variants[i]
			break
		}
	}
	if variant == nil {
		bc.errorf(diag.TypeUnknownVariant, arm.Span,
			"enum %q has no variant %q", bc.name(enumDecl.Name), bc.name(arm.Variant))
		return
	}
	scope := bc.c.paramScope(enumDecl)
	for i, bind := range arm.Binds {
		var ft types.TypeID
		if i < len(variant.Fields) {
			ft = bc.c.resolveTypeExpr(variant.Fields[i].Type, scope)
			if subst != nil {
				ft = bc.c.types.Substitute(ft, subst)
			}
		} else {
			bc.errorf(diag.TypeWrongArgCount, arm.Span,
				"variant %q has %d field(s), %d bound",
				bc.name(arm.Variant), len(variant.Fields), len(arm.Binds))
		}
		bc.env.Define(bind, ft, false, arm.Span)
	}
}

func (bc *bodyChecker) returnStmt(s *ast.Stmt) {
	want := bc.fn().sig.Result
	void := bc.c.types.Builtins().Void
	if !s.Value.IsValid() {
		if want != void && !bc.c.types.IsNullable(want) {
			bc.errorf(diag.TypeMismatch, s.Span,
				"missing return value: expected %s", bc.typeLabel(want))
		}
		return
	}
	got := bc.typeExprExpected(s.Value, want)
	if want == void {
		bc.errorf(diag.TypeMismatch, s.Span, "void function returns a value")
		return
	}
	if got != types.NoTypeID && !bc.assignable(got, want, s.Value) {
		bc.errorf(diag.TypeMismatch, bc.exprSpan(s.Value),
			"cannot return %s: expected %s", bc.typeLabel(got), bc.typeLabel(want))
	}
}

// raiseStmt checks that the raised error exists, matches its declared fields
// and is part of the current function's declared error set. Inside a closure
// the closure's own set decides.
func (bc *bodyChecker) raiseStmt(s *ast.Stmt) {
	errID, ok := bc.c.table.LookupKind(s.Name, ast.DeclError)
	if !ok {
		bc.errorf(diag.ObligUnknownError, s.Span, "unknown error %q", bc.name(s.Name))
		for _, f := range s.Fields {
			bc.typeExpr(f.Value)
		}
		return
	}
	errDecl := bc.c.b.Decl(errID)
	bc.checkFieldInits(errDecl.Fields, errDecl, nil, s.Fields, s.Span,
		"error "+bc.name(s.Name))

	cur := bc.fn()
	if !cur.sig.declaresError(s.Name) {
		where := "function"
		if cur.isClosure {
			where = "closure"
		}
		bc.errorf(diag.TypeMismatch, s.Span,
			"error %q is not in the declared error set of the enclosing %s",
			bc.name(s.Name), where)
	}
	// Direct raise feeds the fixed-point error-set inference.
	if !cur.isClosure && bc.instDepth == 0 {
		bc.c.recordRaise(bc.outerFn().decl, s.Name)
	}
}

func (bc *bodyChecker) chanDecl(s *ast.Stmt) {
	elem := bc.c.resolveTypeExpr(s.Type, nil)
	if s.Value.IsValid() {
		capType := bc.typeExpr(s.Value)
		bc.wantType(capType, bc.c.types.Builtins().Int, s.Value)
	}
	var chanType types.TypeID
	if elem != types.NoTypeID {
		chanType = bc.c.types.Chan(elem)
	}
	bc.env.Define(s.Name, chanType, false, s.Span)
}

func (bc *bodyChecker) wantType(got, want types.TypeID, at ast.ExprID) {
	if got == types.NoTypeID || want == types.NoTypeID {
		return
	}
	if got != want {
		bc.errorf(diag.TypeMismatch, bc.exprSpan(at),
			"expected %s, found %s", bc.typeLabel(want), bc.typeLabel(got))
	}
}

func (bc *bodyChecker) exprSpan(id ast.ExprID) source.Span {
	if e := bc.c.b.Expr(id); e != nil {
		return e.Span
	}
	return source.Span{}
}
