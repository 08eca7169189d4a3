package sema

import (
	"reflect"
	"strings"
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
)

// fx builds test units node by node. Every constructor advances a span
// cursor so diagnostics sort deterministically by position.
type fx struct {
	b   *ast.Builder
	pos uint32
}

func newFx() *fx {
	f := &fx{b: ast.NewBuilder(nil)}
	f.b.Unit.Name = "main"
	return f
}

func (f *fx) sp() source.Span {
	f.pos += 8
	return source.Span{Start: f.pos, End: f.pos + 4}
}

func (f *fx) id(name string) source.StringID { return f.b.Intern(name) }

func (f *fx) namedType(name string, args ...ast.TypeExprID) ast.TypeExprID {
	return f.b.NewNamedType(f.sp(), f.id(name), args...)
}

func (f *fx) intLit(text string) ast.ExprID {
	return f.b.NewLiteral(f.sp(), ast.ExprLitInt, f.id(text))
}

func (f *fx) strLit(text string) ast.ExprID {
	return f.b.NewLiteral(f.sp(), ast.ExprLitString, f.id(text))
}

func (f *fx) boolLit(v bool) ast.ExprID {
	kind := ast.ExprLitFalse
	if v {
		kind = ast.ExprLitTrue
	}
	return f.b.NewLiteral(f.sp(), kind, source.NoStringID)
}

func (f *fx) none() ast.ExprID {
	return f.b.NewLiteral(f.sp(), ast.ExprLitNone, source.NoStringID)
}

func (f *fx) ident(name string) ast.ExprID { return f.b.NewIdent(f.sp(), f.id(name)) }

func (f *fx) param(name string, typ ast.TypeExprID) ast.Param {
	return ast.Param{Name: f.id(name), Type: typ, Span: f.sp()}
}

func (f *fx) mutParam(name string, typ ast.TypeExprID) ast.Param {
	return ast.Param{Name: f.id(name), Type: typ, Mut: true, Span: f.sp()}
}

func (f *fx) selfParam(mut bool) ast.Param {
	return ast.Param{Name: f.id("self"), Mut: mut, Span: f.sp()}
}

func (f *fx) errorRefs(names ...string) []ast.ErrorRef {
	refs := make([]ast.ErrorRef, len(names))
	for i, n := range names {
		refs[i] = ast.ErrorRef{Name: f.id(n), Span: f.sp()}
	}
	return refs
}

// fn declares a top-level function. ret may be NoTypeExprID for void.
func (f *fx) fn(name string, params []ast.Param, ret ast.TypeExprID, errs []ast.ErrorRef, body ast.StmtID) ast.DeclID {
	id := f.b.AddDecl(ast.Decl{
		Kind:     ast.DeclFn,
		Name:     f.id(name),
		NameSpan: f.sp(),
		Params:   params,
		Return:   ret,
		Errors:   errs,
		Body:     body,
	})
	f.b.AddTopLevel(id)
	return id
}

func (f *fx) genericFn(name string, tparams []string, params []ast.Param, ret ast.TypeExprID, body ast.StmtID) ast.DeclID {
	tps := make([]ast.TypeParam, len(tparams))
	for i, tp := range tparams {
		tps[i] = ast.TypeParam{Name: f.id(tp), Span: f.sp()}
	}
	id := f.b.AddDecl(ast.Decl{
		Kind:       ast.DeclFn,
		Name:       f.id(name),
		NameSpan:   f.sp(),
		TypeParams: tps,
		Params:     params,
		Return:     ret,
		Body:       body,
	})
	f.b.AddTopLevel(id)
	return id
}

// method declares a function node without registering it top-level; the
// owner lists it in Methods.
func (f *fx) method(name string, params []ast.Param, ret ast.TypeExprID, errs []ast.ErrorRef, body ast.StmtID) ast.DeclID {
	return f.b.AddDecl(ast.Decl{
		Kind:     ast.DeclFn,
		Name:     f.id(name),
		NameSpan: f.sp(),
		Params:   params,
		Return:   ret,
		Errors:   errs,
		Body:     body,
	})
}

func (f *fx) class(name string, fields []ast.Field, methods []ast.DeclID, impls ...string) ast.DeclID {
	refs := make([]ast.TraitRef, len(impls))
	for i, n := range impls {
		refs[i] = ast.TraitRef{Name: f.id(n), Span: f.sp()}
	}
	id := f.b.AddDecl(ast.Decl{
		Kind:     ast.DeclClass,
		Name:     f.id(name),
		NameSpan: f.sp(),
		Fields:   fields,
		Methods:  methods,
		Impls:    refs,
	})
	f.b.AddTopLevel(id)
	return id
}

func (f *fx) iface(name string, methods ...ast.DeclID) ast.DeclID {
	id := f.b.AddDecl(ast.Decl{
		Kind:     ast.DeclInterface,
		Name:     f.id(name),
		NameSpan: f.sp(),
		Methods:  methods,
	})
	f.b.AddTopLevel(id)
	return id
}

func (f *fx) errorDecl(name string, fields ...ast.Field) ast.DeclID {
	id := f.b.AddDecl(ast.Decl{
		Kind:     ast.DeclError,
		Name:     f.id(name),
		NameSpan: f.sp(),
		Fields:   fields,
	})
	f.b.AddTopLevel(id)
	return id
}

func (f *fx) field(name string, typ ast.TypeExprID) ast.Field {
	return ast.Field{Name: f.id(name), Type: typ, Span: f.sp()}
}

func (f *fx) injected(name string, typ ast.TypeExprID) ast.Field {
	return ast.Field{Name: f.id(name), Type: typ, Injected: true, Span: f.sp()}
}

func (f *fx) block(stmts ...ast.StmtID) ast.StmtID {
	return f.b.NewBlock(f.sp(), stmts...)
}

func (f *fx) exprStmt(x ast.ExprID) ast.StmtID {
	return f.b.NewExprStmt(f.sp(), x)
}

func (f *fx) ret(x ast.ExprID) ast.StmtID {
	return f.b.NewReturn(f.sp(), x)
}

func (f *fx) let(name string, typ ast.TypeExprID, value ast.ExprID) ast.StmtID {
	return f.b.NewLet(f.sp(), f.id(name), false, typ, value)
}

func (f *fx) letMut(name string, typ ast.TypeExprID, value ast.ExprID) ast.StmtID {
	return f.b.NewLet(f.sp(), f.id(name), true, typ, value)
}

func (f *fx) call(name string, args ...ast.ExprID) ast.ExprID {
	return f.b.NewCall(f.sp(), f.id(name), nil, args...)
}

func (f *fx) check(t *testing.T) (*diag.Bag, *Result) {
	t.Helper()
	return f.checkOpts(t, Options{})
}

func (f *fx) checkOpts(t *testing.T, opts Options) (*diag.Bag, *Result) {
	t.Helper()
	bag := diag.NewBag(0)
	opts.Reporter = &diag.BagReporter{Bag: bag}
	res := Check(f.b, opts)
	bag.Sort()
	return bag, res
}

// errorItems filters the bag down to error-severity diagnostics.
func errorItems(bag *diag.Bag) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range bag.Items() {
		if d.Severity >= diag.SevError {
			out = append(out, d)
		}
	}
	return out
}

func wantErrorCodes(t *testing.T, bag *diag.Bag, want ...diag.Code) {
	t.Helper()
	errs := errorItems(bag)
	if len(errs) != len(want) {
		t.Fatalf("got %d errors, want %d: %+v", len(errs), len(want), errs)
	}
	for i, d := range errs {
		if d.Code != want[i] {
			t.Errorf("error %d: code %s, want %s (%s)", i, d.Code, want[i], d.Message)
		}
	}
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func firstWithCode(t *testing.T, bag *diag.Bag, code diag.Code) diag.Diagnostic {
	t.Helper()
	for _, d := range bag.Items() {
		if d.Code == code {
			return d
		}
	}
	t.Fatalf("no diagnostic with code %s in %+v", code, bag.Items())
	return diag.Diagnostic{}
}

func TestDuplicateDeclarationReportsLater(t *testing.T) {
	f := newFx()
	f.fn("twice", nil, ast.NoTypeExprID, nil, f.block())
	second := f.fn("twice", nil, ast.NoTypeExprID, nil, f.block())
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.DeclDuplicate)
	d := errorItems(bag)[0]
	if d.Primary != f.b.Decl(second).NameSpan {
		t.Errorf("duplicate reported at %v, want the later declaration %v", d.Primary, f.b.Decl(second).NameSpan)
	}
	if len(d.Notes) != 1 {
		t.Errorf("want a note pointing at the first declaration, got %+v", d.Notes)
	}
}

func TestShadowingBuiltinRejected(t *testing.T) {
	f := newFx()
	f.fn("len", nil, ast.NoTypeExprID, nil, f.block())
	bag, _ := f.check(t)
	wantErrorCodes(t, bag, diag.DeclShadowsBuiltin)
}

func TestDependencyInjectionCycle(t *testing.T) {
	f := newFx()
	f.class("A", []ast.Field{f.injected("b", f.namedType("B"))}, nil)
	f.class("B", []ast.Field{f.injected("a", f.namedType("A"))}, nil)
	bag, _ := f.check(t)

	d := firstWithCode(t, bag, diag.DeclCircularDependency)
	if !strings.Contains(d.Message, "A -> B -> A") {
		t.Errorf("cycle message should name the full path, got %q", d.Message)
	}
}

func TestGenericFailureReportsAtUseSiteOnly(t *testing.T) {
	f := newFx()
	idBody := f.block(f.ret(f.ident("x")))
	f.genericFn("same", []string{"T"}, []ast.Param{f.param("x", f.namedType("T"))}, f.namedType("T"), idBody)

	mainBody := f.block(
		f.exprStmt(f.call("same", f.intLit("42"))),
		f.exprStmt(f.call("same", f.strLit("hi"))),
		f.let("bad", f.namedType("int"), f.call("same", f.strLit("oops"))),
	)
	f.fn("main", nil, ast.NoTypeExprID, nil, mainBody)
	bag, res := f.check(t)

	wantErrorCodes(t, bag, diag.TypeMismatch)
	if res.Inst.Len() != 2 {
		t.Errorf("want 2 instantiations (int, string), got %d", res.Inst.Len())
	}
	for _, e := range res.Inst.Entries() {
		if e.Failed {
			t.Errorf("both tuples of %q should check clean", "same")
		}
	}
}

func TestUnhandledErrorAtCallSite(t *testing.T) {
	f := newFx()
	f.errorDecl("Boom")
	fBody := f.block(f.b.NewRaise(f.sp(), f.id("Boom"), nil))
	f.fn("fail", nil, f.namedType("int"), f.errorRefs("Boom"), fBody)

	callSite := f.call("fail")
	f.fn("main", nil, ast.NoTypeExprID, nil, f.block(f.exprStmt(callSite)))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.ObligUnhandledError)
	d := errorItems(bag)[0]
	if d.Primary != f.b.Expr(callSite).Span {
		t.Errorf("obligation reported at %v, want the call site %v", d.Primary, f.b.Expr(callSite).Span)
	}
}

func TestLiskovStrengthenedPrecondition(t *testing.T) {
	f := newFx()
	gtZero := f.b.NewBinary(f.sp(), ast.OpGt, f.ident("x"), f.intLit("0"))
	im := f.method("m", []ast.Param{f.selfParam(false), f.param("x", f.namedType("int"))}, ast.NoTypeExprID, nil, ast.NoStmtID)
	f.b.Decl(im).Contracts = []ast.Contract{{Kind: ast.ContractRequires, Expr: gtZero, Span: f.sp()}}
	f.iface("T", im)

	gtFive := f.b.NewBinary(f.sp(), ast.OpGt, f.ident("x"), f.intLit("5"))
	cm := f.method("m", []ast.Param{f.selfParam(false), f.param("x", f.namedType("int"))}, ast.NoTypeExprID, nil, f.block())
	f.b.Decl(cm).Contracts = []ast.Contract{{Kind: ast.ContractRequires, Expr: gtFive, Span: f.sp()}}
	f.class("C", nil, []ast.DeclID{cm}, "T")

	bag, _ := f.check(t)
	if !hasCode(bag, diag.ContractLiskov) {
		t.Fatalf("want LiskovViolation, got %+v", bag.Items())
	}
}

func TestReceiverMutabilityRequired(t *testing.T) {
	f := newFx()
	setBody := f.block(f.b.NewFieldAssign(f.sp(), f.ident("self"), f.id("x"), f.ident("v")))
	set := f.method("set", []ast.Param{f.selfParam(false), f.param("v", f.namedType("int"))}, ast.NoTypeExprID, nil, setBody)
	f.class("C", []ast.Field{f.field("x", f.namedType("int"))}, []ast.DeclID{set})

	bag, _ := f.check(t)
	wantErrorCodes(t, bag, diag.MutReceiverNotDeclared)
}

func TestNestedNullableRejected(t *testing.T) {
	f := newFx()
	doubled := f.b.NewNullableType(f.sp(), f.b.NewNullableType(f.sp(), f.namedType("int")))
	body := f.block(f.let("x", doubled, f.none()))
	f.fn("main", nil, ast.NoTypeExprID, nil, body)
	bag, _ := f.check(t)

	errs := errorItems(bag)
	if len(errs) == 0 || errs[0].Code != diag.ObligNestedNullable {
		t.Fatalf("want NestedNullable first, got %+v", errs)
	}
}

func TestVoidNullableRejected(t *testing.T) {
	f := newFx()
	id := f.fn("f", nil, ast.NoTypeExprID, nil, f.block())
	f.b.Decl(id).Nullable = true
	bag, _ := f.check(t)
	wantErrorCodes(t, bag, diag.ObligVoidNullable)
}

func TestIdenticalUnitsCheckIdentically(t *testing.T) {
	build := func() *fx {
		f := newFx()
		f.errorDecl("Boom")
		f.fn("fail", nil, f.namedType("int"), f.errorRefs("Boom"),
			f.block(f.b.NewRaise(f.sp(), f.id("Boom"), nil)))
		idBody := f.block(f.ret(f.ident("x")))
		f.genericFn("same", []string{"T"}, []ast.Param{f.param("x", f.namedType("T"))}, f.namedType("T"), idBody)
		f.fn("main", nil, ast.NoTypeExprID, nil, f.block(
			f.exprStmt(f.call("fail")),
			f.let("bad", f.namedType("int"), f.call("same", f.strLit("oops"))),
		))
		return f
	}

	bag1, res1 := build().check(t)
	bag2, res2 := build().check(t)
	if !reflect.DeepEqual(bag1.Items(), bag2.Items()) {
		t.Fatalf("diagnostics differ across identical runs:\n%+v\n%+v", bag1.Items(), bag2.Items())
	}
	if res1.Inst.Len() != res2.Inst.Len() {
		t.Fatalf("instantiation sets differ: %d vs %d", res1.Inst.Len(), res2.Inst.Len())
	}
	for i, e := range res1.Inst.Entries() {
		if e.ArgsKey != res2.Inst.Entries()[i].ArgsKey {
			t.Errorf("instantiation %d keys differ: %q vs %q", i, e.ArgsKey, res2.Inst.Entries()[i].ArgsKey)
		}
	}
}

func TestCleanUnitProducesArtifacts(t *testing.T) {
	f := newFx()
	addBody := f.block(f.ret(f.b.NewBinary(f.sp(), ast.OpAdd, f.ident("a"), f.ident("b"))))
	add := f.fn("add", []ast.Param{
		f.param("a", f.namedType("int")),
		f.param("b", f.namedType("int")),
	}, f.namedType("int"), nil, addBody)
	callExpr := f.call("add", f.intLit("1"), f.intLit("2"))
	f.fn("main", nil, ast.NoTypeExprID, nil, f.block(f.exprStmt(callExpr)))
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if got := res.ExprTypes[callExpr]; got != res.Types.Builtins().Int {
		t.Errorf("call typed as %s, want int", res.Types.String(got))
	}
	if _, ok := res.DeclTypes[add]; !ok {
		t.Error("declaration type of add missing from the result")
	}
}
