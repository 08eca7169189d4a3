package sema

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
)

func (f *fx) contract(kind ast.ContractKind, expr ast.ExprID) ast.Contract {
	return ast.Contract{Kind: kind, Expr: expr, Span: f.sp()}
}

func (f *fx) fnWith(name string, params []ast.Param, ret ast.TypeExprID, contracts []ast.Contract, body ast.StmtID) ast.DeclID {
	id := f.b.AddDecl(ast.Decl{
		Kind:      ast.DeclFn,
		Name:      f.id(name),
		NameSpan:  f.sp(),
		Params:    params,
		Return:    ret,
		Contracts: contracts,
		Body:      body,
	})
	f.b.AddTopLevel(id)
	return id
}

func (f *fx) methodWith(name string, params []ast.Param, ret ast.TypeExprID, contracts []ast.Contract, body ast.StmtID) ast.DeclID {
	return f.b.AddDecl(ast.Decl{
		Kind:      ast.DeclFn,
		Name:      f.id(name),
		NameSpan:  f.sp(),
		Params:    params,
		Return:    ret,
		Contracts: contracts,
		Body:      body,
	})
}

func TestContractClauseMustBeBool(t *testing.T) {
	f := newFx()
	clause := f.b.NewBinary(f.sp(), ast.OpAdd, f.ident("x"), f.intLit("1"))
	f.fnWith("inc", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("int"),
		[]ast.Contract{f.contract(ast.ContractRequires, clause)},
		f.block(f.ret(f.ident("x"))))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ContractNotBool)
}

func TestOldOutsideEnsuresRejected(t *testing.T) {
	f := newFx()
	clause := f.b.NewBinary(f.sp(), ast.OpEq, f.call("old", f.ident("x")), f.intLit("1"))
	f.fnWith("inc", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("int"),
		[]ast.Contract{f.contract(ast.ContractRequires, clause)},
		f.block(f.ret(f.ident("x"))))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ContractImproperOld)
}

func TestOldInMutatingEnsuresTyped(t *testing.T) {
	f := newFx()
	clause := f.b.NewBinary(f.sp(), ast.OpLe, f.call("old", f.ident("x")), f.ident("result"))
	m := f.methodWith("bump", []ast.Param{f.selfParam(true), f.param("x", f.namedType("int"))},
		f.namedType("int"), []ast.Contract{f.contract(ast.ContractEnsures, clause)},
		f.block(f.ret(f.ident("x"))))
	f.class("Counter", []ast.Field{f.field("n", f.namedType("int"))}, []ast.DeclID{m})
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestOldNeedsMutatingReceiver(t *testing.T) {
	f := newFx()
	clause := f.b.NewBinary(f.sp(), ast.OpLe, f.call("old", f.ident("x")), f.ident("result"))
	f.fnWith("inc", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("int"),
		[]ast.Contract{f.contract(ast.ContractEnsures, clause)},
		f.block(f.ret(f.ident("x"))))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ContractImproperOld)
}

func TestOldOnNonMutatingMethodRejected(t *testing.T) {
	f := newFx()
	clause := f.b.NewBinary(f.sp(), ast.OpEq, f.call("old", f.ident("x")), f.ident("result"))
	m := f.methodWith("peek", []ast.Param{f.selfParam(false), f.param("x", f.namedType("int"))},
		f.namedType("int"), []ast.Contract{f.contract(ast.ContractEnsures, clause)},
		f.block(f.ret(f.ident("x"))))
	f.class("Counter", []ast.Field{f.field("n", f.namedType("int"))}, []ast.DeclID{m})
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ContractImproperOld)
}

func TestResultOutsideEnsuresRejected(t *testing.T) {
	f := newFx()
	clause := f.b.NewBinary(f.sp(), ast.OpEq, f.ident("result"), f.intLit("1"))
	f.fnWith("inc", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("int"),
		[]ast.Contract{f.contract(ast.ContractRequires, clause)},
		f.block(f.ret(f.ident("x"))))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ContractResultMisplaced)
}

func TestUserCallsNotDecidable(t *testing.T) {
	f := newFx()
	f.fn("valid", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("bool"), nil,
		f.block(f.ret(f.boolLit(true))))
	clause := f.call("valid", f.ident("x"))
	f.fnWith("inc", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("int"),
		[]ast.Contract{f.contract(ast.ContractRequires, clause)},
		f.block(f.ret(f.ident("x"))))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ContractNotDecidable)
}

func TestClassInvariantOverSelf(t *testing.T) {
	f := newFx()
	clause := f.b.NewBinary(f.sp(), ast.OpGe,
		f.b.NewField(f.sp(), f.ident("self"), f.id("balance")), f.intLit("0"))
	acct := f.b.AddDecl(ast.Decl{
		Kind:      ast.DeclClass,
		Name:      f.id("Account"),
		NameSpan:  f.sp(),
		Fields:    []ast.Field{f.field("balance", f.namedType("int"))},
		Contracts: []ast.Contract{f.contract(ast.ContractInvariant, clause)},
	})
	f.b.AddTopLevel(acct)
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestInvariantOnFunctionRejected(t *testing.T) {
	f := newFx()
	f.fnWith("inc", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("int"),
		[]ast.Contract{f.contract(ast.ContractInvariant, f.boolLit(true))},
		f.block(f.ret(f.ident("x"))))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ContractNotDecidable)
}

func TestRequiresOnClassRejected(t *testing.T) {
	f := newFx()
	cls := f.b.AddDecl(ast.Decl{
		Kind:      ast.DeclClass,
		Name:      f.id("Account"),
		NameSpan:  f.sp(),
		Fields:    []ast.Field{f.field("balance", f.namedType("int"))},
		Contracts: []ast.Contract{f.contract(ast.ContractRequires, f.boolLit(true))},
	})
	f.b.AddTopLevel(cls)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ContractNotDecidable)
}

func TestWeakenedPostconditionRejected(t *testing.T) {
	f := newFx()
	post := f.b.NewBinary(f.sp(), ast.OpGe, f.ident("result"), f.intLit("0"))
	im := f.methodWith("value", []ast.Param{f.selfParam(false)}, f.namedType("int"),
		[]ast.Contract{f.contract(ast.ContractEnsures, post)}, ast.NoStmtID)
	f.iface("Measured", im)
	cm := f.methodWith("value", []ast.Param{f.selfParam(false)}, f.namedType("int"),
		nil, f.block(f.ret(f.intLit("1"))))
	f.class("Sample", nil, []ast.DeclID{cm}, "Measured")
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ContractLiskov)
}

func TestMatchingContractsSatisfyLiskov(t *testing.T) {
	f := newFx()
	ipre := f.b.NewBinary(f.sp(), ast.OpGt, f.ident("x"), f.intLit("0"))
	im := f.methodWith("take", []ast.Param{f.selfParam(false), f.param("x", f.namedType("int"))},
		ast.NoTypeExprID, []ast.Contract{f.contract(ast.ContractRequires, ipre)}, ast.NoStmtID)
	f.iface("Sink", im)
	cpre := f.b.NewBinary(f.sp(), ast.OpGt, f.ident("x"), f.intLit("0"))
	cm := f.methodWith("take", []ast.Param{f.selfParam(false), f.param("x", f.namedType("int"))},
		ast.NoTypeExprID, []ast.Contract{f.contract(ast.ContractRequires, cpre)}, f.block())
	f.class("Bucket", nil, []ast.DeclID{cm}, "Sink")
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("identical clauses must satisfy substitutability: %+v", bag.Items())
	}
}
