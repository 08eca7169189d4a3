package sema

import (
	"strings"
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
)

func TestInstantiationMemoizedAcrossCalls(t *testing.T) {
	f := newFx()
	body := f.block(f.ret(f.ident("x")))
	same := f.genericFn("same", []string{"T"}, []ast.Param{f.param("x", f.namedType("T"))},
		f.namedType("T"), body)
	mainBody := f.block(
		f.exprStmt(f.call("same", f.intLit("1"))),
		f.exprStmt(f.call("same", f.intLit("2"))),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, mainBody)
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if res.Inst.Len() != 1 {
		t.Fatalf("got %d instantiations, want 1", res.Inst.Len())
	}
	entry := res.Inst.Entries()[0]
	if entry.Decl != same || len(entry.UseSites) != 2 {
		t.Errorf("entry covers decl %v with %d use sites, want %v with 2",
			entry.Decl, len(entry.UseSites), same)
	}
	if !entry.Specialized.IsValid() {
		t.Error("checked entry carries no specialized clone")
	}
}

func TestFailedTupleReportedAtEveryUseSite(t *testing.T) {
	f := newFx()
	neg := f.b.NewUnary(f.sp(), ast.OpNeg, f.ident("x"))
	f.genericFn("flip", []string{"T"}, []ast.Param{f.param("x", f.namedType("T"))},
		f.namedType("T"), f.block(f.ret(neg)))
	mainBody := f.block(
		f.exprStmt(f.call("flip", f.strLit("a"))),
		f.exprStmt(f.call("flip", f.strLit("b"))),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, mainBody)
	bag, res := f.check(t)

	errs := errorItems(bag)
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want one per use site: %+v", len(errs), errs)
	}
	for _, d := range errs {
		if !strings.Contains(d.Message, "instantiation flip<string>") {
			t.Errorf("message %q does not name the failing instantiation", d.Message)
		}
		if len(d.Notes) != 1 || !strings.Contains(d.Notes[0].Msg, "inside the generic body") {
			t.Errorf("diagnostic should point back into the generic body, got %+v", d.Notes)
		}
	}
	if res.Inst.Len() != 1 {
		t.Errorf("got %d instantiations, want 1 memoized failure", res.Inst.Len())
	}
	if entry := res.Inst.Entries()[0]; !entry.Failed || !entry.Checked {
		t.Errorf("entry should be checked and failed, got %+v", entry)
	}
}

func TestGenericDefinitionStaysSilentWhenUnused(t *testing.T) {
	f := newFx()
	neg := f.b.NewUnary(f.sp(), ast.OpNeg, f.ident("x"))
	f.genericFn("flip", []string{"T"}, []ast.Param{f.param("x", f.namedType("T"))},
		f.namedType("T"), f.block(f.ret(neg)))
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unused generic body must not be checked, got %+v", bag.Items())
	}
	if res.Inst.Len() != 0 {
		t.Errorf("got %d instantiations, want none", res.Inst.Len())
	}
}

func TestInstantiationDepthCapped(t *testing.T) {
	f := newFx()
	wrap := f.b.NewArrayLit(f.sp(), f.ident("x"))
	body := f.block(f.exprStmt(f.b.NewCall(f.sp(), f.id("rec"), nil, wrap)))
	f.genericFn("rec", []string{"T"}, []ast.Param{f.param("x", f.namedType("T"))},
		ast.NoTypeExprID, body)
	f.fn("main", nil, ast.NoTypeExprID, nil,
		f.block(f.exprStmt(f.call("rec", f.intLit("1")))))
	bag, _ := f.checkOpts(t, Options{InstantiationDepth: 3})

	if !hasCode(bag, diag.TypeRecursionLimit) {
		t.Fatalf("want depth-limit error, got %+v", bag.Items())
	}
	d := firstWithCode(t, bag, diag.TypeRecursionLimit)
	if !strings.Contains(d.Message, "depth limit of 3") {
		t.Errorf("message %q does not state the configured limit", d.Message)
	}
}

func TestBoundSatisfiedByImplementor(t *testing.T) {
	f := newFx()
	f.iface("Printable")
	f.class("Doc", nil, nil, "Printable")
	show := f.b.AddDecl(ast.Decl{
		Kind:       ast.DeclFn,
		Name:       f.id("show"),
		NameSpan:   f.sp(),
		TypeParams: []ast.TypeParam{{Name: f.id("T"), Bounds: []source.StringID{f.id("Printable")}, Span: f.sp()}},
		Params:     []ast.Param{f.param("x", f.namedType("T"))},
		Body:       f.block(),
	})
	f.b.AddTopLevel(show)
	lit := f.b.NewStructLit(f.sp(), f.id("Doc"), nil, nil)
	f.fn("main", nil, ast.NoTypeExprID, nil,
		f.block(f.exprStmt(f.call("show", lit))))
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestBoundNotSatisfiedRejected(t *testing.T) {
	f := newFx()
	f.iface("Printable")
	show := f.b.AddDecl(ast.Decl{
		Kind:       ast.DeclFn,
		Name:       f.id("show"),
		NameSpan:   f.sp(),
		TypeParams: []ast.TypeParam{{Name: f.id("T"), Bounds: []source.StringID{f.id("Printable")}, Span: f.sp()}},
		Params:     []ast.Param{f.param("x", f.namedType("T"))},
		Body:       f.block(),
	})
	f.b.AddTopLevel(show)
	f.fn("main", nil, ast.NoTypeExprID, nil,
		f.block(f.exprStmt(f.call("show", f.intLit("1")))))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeBoundNotSat)
}

func TestGenericClassConstructionChecksMethods(t *testing.T) {
	f := newFx()
	get := f.method("get", []ast.Param{f.selfParam(false)}, f.namedType("T"), nil,
		f.block(f.ret(f.b.NewField(f.sp(), f.ident("self"), f.id("v")))))
	box := f.b.AddDecl(ast.Decl{
		Kind:       ast.DeclClass,
		Name:       f.id("Box"),
		NameSpan:   f.sp(),
		TypeParams: []ast.TypeParam{{Name: f.id("T"), Span: f.sp()}},
		Fields:     []ast.Field{f.field("v", f.namedType("T"))},
		Methods:    []ast.DeclID{get},
	})
	f.b.AddTopLevel(box)
	lit := f.b.NewStructLit(f.sp(), f.id("Box"), nil,
		[]ast.FieldInit{{Name: f.id("v"), Value: f.intLit("1"), Span: f.sp()}})
	getCall := f.b.NewMethodCall(f.sp(), f.ident("b"), f.id("get"))
	body := f.block(
		f.let("b", ast.NoTypeExprID, lit),
		f.ret(getCall),
	)
	f.fn("main", nil, f.namedType("int"), nil, body)
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if res.Inst.Len() != 1 {
		t.Fatalf("got %d instantiations, want the method body once", res.Inst.Len())
	}
	if got := res.ExprTypes[getCall]; got != res.Types.Builtins().Int {
		t.Errorf("get() typed as %s, want int", res.Types.String(got))
	}
}

func TestExplicitTypeArgumentsRespected(t *testing.T) {
	f := newFx()
	body := f.block(f.ret(f.ident("x")))
	f.genericFn("same", []string{"T"}, []ast.Param{f.param("x", f.namedType("T"))},
		f.namedType("T"), body)
	call := f.b.NewCall(f.sp(), f.id("same"), []ast.TypeExprID{f.namedType("string")}, f.intLit("1"))
	f.fn("main", nil, ast.NoTypeExprID, nil, f.block(f.exprStmt(call)))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeMismatch)
}
