package astcodec

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/ast"
	"ember/internal/source"
)

// buildSampleUnit constructs `fn answer() -> int { return 42; }`.
func buildSampleUnit() *ast.Builder {
	b := ast.NewBuilder(nil)
	b.Unit.Name = "app/main"
	b.Unit.Imports = []ast.ImportRef{{Path: "lib/util", Span: source.Span{File: 1, Start: 0, End: 8}}}

	lit := b.NewLiteral(source.Span{File: 1, Start: 30, End: 32}, ast.ExprLitInt, b.Intern("42"))
	ret := b.NewReturn(source.Span{File: 1, Start: 23, End: 33}, lit)
	body := b.NewBlock(source.Span{File: 1, Start: 21, End: 35}, ret)
	fn := b.AddDecl(ast.Decl{
		Kind:   ast.DeclFn,
		Name:   b.Intern("answer"),
		Return: b.NewNamedType(source.Span{File: 1, Start: 16, End: 19}, b.Intern("int")),
		Body:   body,
		Span:   source.Span{File: 1, Start: 0, End: 35},
	})
	b.AddTopLevel(fn)
	return b
}

func TestUnitRoundTrip(t *testing.T) {
	in := buildSampleUnit()

	var buf bytes.Buffer
	if err := EncodeUnit(&buf, in); err != nil {
		t.Fatalf("EncodeUnit: %v", err)
	}
	out, err := DecodeUnit(&buf)
	if err != nil {
		t.Fatalf("DecodeUnit: %v", err)
	}

	if out.Unit.Name != "app/main" {
		t.Fatalf("unit name = %q", out.Unit.Name)
	}
	if len(out.Unit.Imports) != 1 || out.Unit.Imports[0].Path != "lib/util" {
		t.Fatalf("imports = %+v", out.Unit.Imports)
	}
	if len(out.TopLevel) != 1 {
		t.Fatalf("top level = %v", out.TopLevel)
	}

	decl := out.Decl(out.TopLevel[0])
	if decl == nil || decl.Kind != ast.DeclFn {
		t.Fatalf("decoded decl = %+v", decl)
	}
	if got := out.Name(decl.Name); got != "answer" {
		t.Fatalf("decl name = %q", got)
	}

	body := out.Stmt(decl.Body)
	if body == nil || body.Kind != ast.StmtBlock || len(body.Stmts) != 1 {
		t.Fatalf("decoded body = %+v", body)
	}
	ret := out.Stmt(body.Stmts[0])
	if ret == nil || ret.Kind != ast.StmtReturn {
		t.Fatalf("decoded return = %+v", ret)
	}
	lit := out.Expr(ret.Value)
	if lit == nil || lit.Kind != ast.ExprLitInt || out.Name(lit.Text) != "42" {
		t.Fatalf("decoded literal = %+v", lit)
	}
}

func TestDecodeUnitRejectsWrongSchema(t *testing.T) {
	payload := unitPayload{
		Schema:  SchemaVersion + 1,
		Strings: []string{""},
		Decls:   make([]ast.Decl, 1),
		Exprs:   make([]ast.Expr, 1),
		Stmts:   make([]ast.Stmt, 1),
		Types:   make([]ast.TypeExpr, 1),
	}
	raw, err := msgpack.Marshal(&payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := DecodeUnit(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestUnitFileRoundTrip(t *testing.T) {
	path := t.TempDir() + "/main" + UnitExt
	if err := WriteUnitFile(path, buildSampleUnit()); err != nil {
		t.Fatalf("WriteUnitFile: %v", err)
	}
	out, err := ReadUnitFile(path)
	if err != nil {
		t.Fatalf("ReadUnitFile: %v", err)
	}
	if out.Unit.Name != "app/main" {
		t.Fatalf("unit name = %q", out.Unit.Name)
	}
}
