package sema

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
)

func TestAssignImmutableBinding(t *testing.T) {
	f := newFx()
	body := f.block(
		f.let("x", ast.NoTypeExprID, f.intLit("1")),
		f.b.NewAssign(f.sp(), f.id("x"), f.intLit("2")),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.MutAssignImmutable)
}

func TestAssignMutableBinding(t *testing.T) {
	f := newFx()
	body := f.block(
		f.letMut("x", ast.NoTypeExprID, f.intLit("1")),
		f.b.NewAssign(f.sp(), f.id("x"), f.intLit("2")),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestAssignWrongTypeToMutable(t *testing.T) {
	f := newFx()
	body := f.block(
		f.letMut("x", f.namedType("int"), f.intLit("1")),
		f.b.NewAssign(f.sp(), f.id("x"), f.strLit("no")),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeMismatch)
}

func TestMutParamNeedsMutableArgument(t *testing.T) {
	f := newFx()
	arrType := f.b.NewArrayType(f.sp(), f.namedType("int"))
	f.fn("grow", []ast.Param{f.mutParam("xs", arrType)}, ast.NoTypeExprID, nil, f.block())
	body := f.block(
		f.let("a", ast.NoTypeExprID, f.b.NewArrayLit(f.sp(), f.intLit("1"))),
		f.exprStmt(f.call("grow", f.ident("a"))),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.MutBindingNotDeclared)
}

func TestMutParamAcceptsMutableArgument(t *testing.T) {
	f := newFx()
	arrType := f.b.NewArrayType(f.sp(), f.namedType("int"))
	f.fn("grow", []ast.Param{f.mutParam("xs", arrType)}, ast.NoTypeExprID, nil, f.block())
	body := f.block(
		f.letMut("a", ast.NoTypeExprID, f.b.NewArrayLit(f.sp(), f.intLit("1"))),
		f.exprStmt(f.call("grow", f.ident("a"))),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestClosureCaptureIsReadOnly(t *testing.T) {
	f := newFx()
	push := f.b.NewMethodCall(f.sp(), f.ident("xs"), f.id("push"), f.intLit("2"))
	cl := f.b.NewClosure(f.sp(), nil, ast.NoTypeExprID, nil, f.block(f.exprStmt(push)))
	body := f.block(
		f.letMut("xs", ast.NoTypeExprID, f.b.NewArrayLit(f.sp(), f.intLit("1"))),
		f.let("c", ast.NoTypeExprID, cl),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.MutBindingNotDeclared)
}

func TestClosureReadsCaptureClean(t *testing.T) {
	f := newFx()
	cl := f.b.NewClosure(f.sp(), nil, f.namedType("int"), nil,
		f.block(f.ret(f.ident("x"))))
	body := f.block(
		f.let("x", ast.NoTypeExprID, f.intLit("1")),
		f.let("c", ast.NoTypeExprID, cl),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestMutatingMethodNeedsMutableReceiver(t *testing.T) {
	f := newFx()
	inc := f.method("inc", []ast.Param{f.selfParam(true)}, ast.NoTypeExprID, nil,
		f.block(f.b.NewFieldAssign(f.sp(), f.ident("self"), f.id("n"),
			f.b.NewBinary(f.sp(), ast.OpAdd, f.b.NewField(f.sp(), f.ident("self"), f.id("n")), f.intLit("1")))))
	f.class("Counter", []ast.Field{f.field("n", f.namedType("int"))}, []ast.DeclID{inc})
	init := f.b.NewStructLit(f.sp(), f.id("Counter"), nil,
		[]ast.FieldInit{{Name: f.id("n"), Value: f.intLit("0"), Span: f.sp()}})
	body := f.block(
		f.let("c", ast.NoTypeExprID, init),
		f.exprStmt(f.b.NewMethodCall(f.sp(), f.ident("c"), f.id("inc"))),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.MutBindingNotDeclared)
}

func TestMutatingMethodOnMutableReceiver(t *testing.T) {
	f := newFx()
	inc := f.method("inc", []ast.Param{f.selfParam(true)}, ast.NoTypeExprID, nil,
		f.block(f.b.NewFieldAssign(f.sp(), f.ident("self"), f.id("n"), f.intLit("1"))))
	f.class("Counter", []ast.Field{f.field("n", f.namedType("int"))}, []ast.DeclID{inc})
	init := f.b.NewStructLit(f.sp(), f.id("Counter"), nil,
		[]ast.FieldInit{{Name: f.id("n"), Value: f.intLit("0"), Span: f.sp()}})
	body := f.block(
		f.letMut("c", ast.NoTypeExprID, init),
		f.exprStmt(f.b.NewMethodCall(f.sp(), f.ident("c"), f.id("inc"))),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestIndexAssignNeedsMutableRoot(t *testing.T) {
	f := newFx()
	arrType := f.b.NewArrayType(f.sp(), f.namedType("int"))
	body := f.block(
		f.let("xs", arrType, f.b.NewArrayLit(f.sp(), f.intLit("1"))),
		f.b.NewIndexAssign(f.sp(), f.ident("xs"), f.intLit("0"), f.intLit("9")),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.MutBindingNotDeclared)
}

func TestParamsAreImmutableByDefault(t *testing.T) {
	f := newFx()
	body := f.block(f.b.NewAssign(f.sp(), f.id("x"), f.intLit("2")))
	f.fn("store", []ast.Param{f.param("x", f.namedType("int"))}, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.MutAssignImmutable)
}
