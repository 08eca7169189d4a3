package sema

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/diag"
)

func TestInjectedInterfaceResolvesSingleImpl(t *testing.T) {
	f := newFx()
	f.iface("Store")
	disk := f.class("DiskStore", nil, nil, "Store")
	app := f.class("App", []ast.Field{f.injected("store", f.namedType("Store"))}, nil)
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	node := res.DI.Nodes[app]
	if node == nil || len(node.Deps) != 1 || node.Deps[0] != disk {
		t.Fatalf("App should depend on DiskStore, got %+v", node)
	}
	if !res.DI.Participants[disk] {
		t.Error("the resolved dependency should join the participant set")
	}
}

func TestAmbiguousInterfaceInjection(t *testing.T) {
	f := newFx()
	f.iface("Store")
	f.class("DiskStore", nil, nil, "Store")
	f.class("MemStore", nil, nil, "Store")
	f.class("App", []ast.Field{f.injected("store", f.namedType("Store"))}, nil)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TraitAmbiguousImpl)
}

func TestMissingImplForInjection(t *testing.T) {
	f := newFx()
	f.iface("Store")
	f.class("App", []ast.Field{f.injected("store", f.namedType("Store"))}, nil)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TraitNoImpl)
}

func TestDirectConstructionOfParticipantRejected(t *testing.T) {
	f := newFx()
	f.class("Logger", nil, nil)
	f.class("Service", []ast.Field{f.injected("log", f.namedType("Logger"))}, nil)
	lit := f.b.NewStructLit(f.sp(), f.id("Service"), nil, nil)
	f.fn("main", nil, ast.NoTypeExprID, nil,
		f.block(f.let("s", ast.NoTypeExprID, lit)))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.DeclDirectConstruction)
}

func TestDependencyAlsoBecomesUnconstructible(t *testing.T) {
	f := newFx()
	f.class("Logger", nil, nil)
	f.class("Service", []ast.Field{f.injected("log", f.namedType("Logger"))}, nil)
	lit := f.b.NewStructLit(f.sp(), f.id("Logger"), nil, nil)
	f.fn("main", nil, ast.NoTypeExprID, nil,
		f.block(f.let("l", ast.NoTypeExprID, lit)))
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.DeclDirectConstruction)
}

func TestNonParticipantConstructsFreely(t *testing.T) {
	f := newFx()
	f.class("Point", []ast.Field{f.field("x", f.namedType("int"))}, nil)
	lit := f.b.NewStructLit(f.sp(), f.id("Point"), nil,
		[]ast.FieldInit{{Name: f.id("x"), Value: f.intLit("1"), Span: f.sp()}})
	f.fn("main", nil, ast.NoTypeExprID, nil,
		f.block(f.let("p", ast.NoTypeExprID, lit)))
	bag, _ := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
}

func TestDiamondDependencyIsAcyclic(t *testing.T) {
	f := newFx()
	f.class("Base", nil, nil)
	f.class("Left", []ast.Field{f.injected("b", f.namedType("Base"))}, nil)
	f.class("Right", []ast.Field{f.injected("b", f.namedType("Base"))}, nil)
	top := f.class("Top", []ast.Field{
		f.injected("l", f.namedType("Left")),
		f.injected("r", f.namedType("Right")),
	}, nil)
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("a diamond is not a cycle: %+v", bag.Items())
	}
	if node := res.DI.Nodes[top]; node == nil || len(node.Deps) != 2 {
		t.Errorf("Top should carry both edges, got %+v", node)
	}
}

func TestScopedLifecyclePropagates(t *testing.T) {
	f := newFx()
	sess := f.b.AddDecl(ast.Decl{
		Kind:      ast.DeclClass,
		Name:      f.id("Session"),
		NameSpan:  f.sp(),
		Lifecycle: ast.LifecycleScoped,
	})
	f.b.AddTopLevel(sess)
	repo := f.class("Repo", []ast.Field{f.injected("s", f.namedType("Session"))}, nil)
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if got := res.DI.Nodes[repo].Lifecycle; got != ast.LifecycleScoped {
		t.Errorf("Repo lifecycle = %v, want scoped via its session dependency", got)
	}
	if got := res.DI.Nodes[sess].Lifecycle; got != ast.LifecycleScoped {
		t.Errorf("Session lifecycle = %v, want scoped", got)
	}
}

func TestTransientDoesNotTaintDependents(t *testing.T) {
	f := newFx()
	tmp := f.b.AddDecl(ast.Decl{
		Kind:      ast.DeclClass,
		Name:      f.id("Scratch"),
		NameSpan:  f.sp(),
		Lifecycle: ast.LifecycleTransient,
	})
	f.b.AddTopLevel(tmp)
	user := f.class("User", []ast.Field{f.injected("s", f.namedType("Scratch"))}, nil)
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if got := res.DI.Nodes[user].Lifecycle; got != ast.LifecycleDefault {
		t.Errorf("User lifecycle = %v, want default", got)
	}
}

func TestInjectedPrimitiveRejected(t *testing.T) {
	f := newFx()
	f.class("App", []ast.Field{f.injected("n", f.namedType("int"))}, nil)
	bag, _ := f.check(t)

	wantErrorCodes(t, bag, diag.TypeMismatch)
}

func TestAppAlwaysParticipates(t *testing.T) {
	f := newFx()
	app := f.b.AddDecl(ast.Decl{
		Kind:     ast.DeclApp,
		Name:     f.id("Main"),
		NameSpan: f.sp(),
	})
	f.b.AddTopLevel(app)
	bag, res := f.check(t)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if !res.DI.Participants[app] {
		t.Error("an app declaration participates even without injected fields")
	}
}
