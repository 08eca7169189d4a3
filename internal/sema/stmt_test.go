package sema

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
)

func (f *fx) enum(name string, variants ...ast.Variant) ast.DeclID {
	id := f.b.AddDecl(ast.Decl{
		Kind:     ast.DeclEnum,
		Name:     f.id(name),
		NameSpan: f.sp(),
		Variants: variants,
	})
	f.b.AddTopLevel(id)
	return id
}

func (f *fx) variant(name string, fields ...ast.Field) ast.Variant {
	return ast.Variant{Name: f.id(name), Fields: fields, Span: f.sp()}
}

func (f *fx) arm(variant string, binds []string, body ast.StmtID) ast.MatchArm {
	ids := make([]source.StringID, len(binds))
	for i, b := range binds {
		ids[i] = f.id(b)
	}
	return ast.MatchArm{Variant: f.id(variant), Binds: ids, Body: body, Span: f.sp()}
}

// optEnum declares enum Opt { Some(v int), Empty } used across match tests.
func optEnum(f *fx) {
	f.enum("Opt",
		f.variant("Some", f.field("v", f.namedType("int"))),
		f.variant("Empty"),
	)
}

func TestMatchCoveringAllVariantsCloses(t *testing.T) {
	f := newFx()
	optEnum(f)
	match := f.b.NewMatch(f.sp(), f.ident("o"), []ast.MatchArm{
		f.arm("Some", []string{"v"}, f.block(f.ret(f.ident("v")))),
		f.arm("Empty", nil, f.block(f.ret(f.intLit("0")))),
	})
	f.fn("first", []ast.Param{f.param("o", f.namedType("Opt"))}, f.namedType("int"), nil,
		f.block(match))
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestMatchMissingVariantLeavesFunctionOpen(t *testing.T) {
	f := newFx()
	optEnum(f)
	match := f.b.NewMatch(f.sp(), f.ident("o"), []ast.MatchArm{
		f.arm("Some", []string{"v"}, f.block(f.ret(f.ident("v")))),
	})
	f.fn("first", []ast.Param{f.param("o", f.namedType("Opt"))}, f.namedType("int"), nil,
		f.block(match))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeMissingReturn)
}

func TestMatchUnknownVariantRejected(t *testing.T) {
	f := newFx()
	optEnum(f)
	match := f.b.NewMatch(f.sp(), f.ident("o"), []ast.MatchArm{
		f.arm("Some", []string{"v"}, f.block(f.exprStmt(f.call("print", f.ident("v"))))),
		f.arm("Nothing", nil, f.block()),
	})
	f.fn("scan", []ast.Param{f.param("o", f.namedType("Opt"))}, ast.NoTypeExprID, nil,
		f.block(match))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeUnknownVariant)
}

func TestMatchSubjectMustBeEnum(t *testing.T) {
	f := newFx()
	match := f.b.NewMatch(f.sp(), f.intLit("1"), []ast.MatchArm{
		f.arm("Whatever", nil, f.block()),
	})
	f.fn("main", nil, ast.NoTypeExprID, nil, f.block(match))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeMismatch)
}

func TestEnumConstructorTyped(t *testing.T) {
	f := newFx()
	optEnum(f)
	ctor := f.b.NewEnumCtor(f.sp(), f.id("Opt"), f.id("Some"),
		[]ast.FieldInit{{Name: f.id("v"), Value: f.intLit("1"), Span: f.sp()}})
	f.fn("main", nil, f.namedType("Opt"), nil, f.block(f.ret(ctor)))
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestMissingReturnOnNonVoidPath(t *testing.T) {
	f := newFx()
	cond := f.b.NewBinary(f.sp(), ast.OpGt, f.ident("x"), f.intLit("0"))
	onlyThen := f.b.NewIf(f.sp(), cond, f.block(f.ret(f.intLit("1"))), ast.NoStmtID)
	f.fn("sign", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("int"), nil,
		f.block(onlyThen))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeMissingReturn)
}

func TestBothBranchesReturningCloses(t *testing.T) {
	f := newFx()
	cond := f.b.NewBinary(f.sp(), ast.OpGt, f.ident("x"), f.intLit("0"))
	both := f.b.NewIf(f.sp(), cond,
		f.block(f.ret(f.intLit("1"))),
		f.block(f.ret(f.intLit("0"))))
	f.fn("sign", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("int"), nil,
		f.block(both))
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestUnreachableAfterReturnWarns(t *testing.T) {
	f := newFx()
	body := f.block(
		f.ret(f.intLit("1")),
		f.exprStmt(f.call("print", f.strLit("never"))),
	)
	f.fn("main", nil, f.namedType("int"), nil, body)
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if !hasCode(bag, diag.WarnUnreachable) {
		t.Errorf("want unreachable warning, got %+v", bag.Items())
	}
}

func TestForIteratesArrayElements(t *testing.T) {
	f := newFx()
	loop := f.b.NewFor(f.sp(), f.id("n"), f.ident("xs"),
		f.block(f.exprStmt(f.call("print", f.ident("n")))))
	arrType := f.b.NewArrayType(f.sp(), f.namedType("int"))
	f.fn("dump", []ast.Param{f.param("xs", arrType)}, ast.NoTypeExprID, nil, f.block(loop))
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestForOverNonIterableRejected(t *testing.T) {
	f := newFx()
	loop := f.b.NewFor(f.sp(), f.id("n"), f.intLit("5"), f.block())
	f.fn("main", nil, ast.NoTypeExprID, nil, f.block(loop))
	bag, _ := f.check(t)

	errs := errorItems(bag)
	if len(errs) == 0 || errs[0].Code != diag.TypeMismatch {
		t.Fatalf("want not-iterable error, got %+v", bag.Items())
	}
}

func TestBreakOutsideLoopRejected(t *testing.T) {
	f := newFx()
	brk := f.b.NewBreak(f.sp())
	f.fn("main", nil, ast.NoTypeExprID, nil, f.block(brk))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeMismatch)
}

func TestWhileConditionMustBeBool(t *testing.T) {
	f := newFx()
	loop := f.b.NewWhile(f.sp(), f.intLit("1"), f.block())
	f.fn("main", nil, ast.NoTypeExprID, nil, f.block(loop))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeConditionNotBool)
}

func TestVoidFunctionRejectsReturnValue(t *testing.T) {
	f := newFx()
	f.fn("main", nil, ast.NoTypeExprID, nil, f.block(f.ret(f.intLit("1"))))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeMismatch)
}

func TestUnusedLocalWarns(t *testing.T) {
	f := newFx()
	body := f.block(f.let("x", ast.NoTypeExprID, f.intLit("1")))
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if !hasCode(bag, diag.WarnUnused) {
		t.Errorf("want unused-binding warning, got %+v", bag.Items())
	}
}

func TestCastBetweenNumericsAllowed(t *testing.T) {
	f := newFx()
	cast := f.b.NewCast(f.sp(), f.ident("x"), f.namedType("float"))
	f.fn("widen", []ast.Param{f.param("x", f.namedType("int"))}, f.namedType("float"), nil,
		f.block(f.ret(cast)))
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestCastStringToIntRejected(t *testing.T) {
	f := newFx()
	cast := f.b.NewCast(f.sp(), f.strLit("5"), f.namedType("int"))
	f.fn("main", nil, f.namedType("int"), nil, f.block(f.ret(cast)))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeInvalidCast)
}

func TestStringInterpolationTyped(t *testing.T) {
	f := newFx()
	interp := f.b.NewInterp(f.sp(), f.strLit("total: "), f.ident("n"))
	f.fn("show", []ast.Param{f.param("n", f.namedType("int"))}, f.namedType("string"), nil,
		f.block(f.ret(interp)))
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if got := res.ExprTypes[interp]; got != res.Types.Builtins().String {
		t.Errorf("interpolation typed as %s, want string", res.Types.String(got))
	}
}
