package symbols

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
)

// Table is the declaration table for one compiled unit. All declaration kinds
// share one namespace: functions, classes, interfaces, enums, errors, apps
// and stages may not reuse a name. Entries are immutable once registered.
type Table struct {
	builder  *ast.Builder
	byName   map[source.StringID]ast.DeclID
	order    []ast.DeclID
	builtins map[source.StringID]bool

	// Imported public headers, resolvable but not re-registered locally.
	imported map[source.StringID]ast.DeclID
}

func NewTable(b *ast.Builder) *Table {
	t := &Table{
		builder:  b,
		byName:   make(map[source.StringID]ast.DeclID),
		builtins: make(map[source.StringID]bool, len(builtinNames)),
		imported: make(map[source.StringID]ast.DeclID),
	}
	for _, name := range builtinNames {
		t.builtins[b.Intern(name)] = true
	}
	return t
}

// Register adds a top-level declaration to the shared namespace. Duplicates
// and builtin shadowing are reported against the later declaration; the
// first registration wins so sibling analysis can continue.
func (t *Table) Register(id ast.DeclID, r diag.Reporter) bool {
	d := t.builder.Decl(id)
	if d == nil {
		return false
	}
	if t.builtins[d.Name] {
		diag.Errorf(r, diag.DeclShadowsBuiltin, d.NameSpan,
			"%s %q shadows a builtin name", d.Kind, t.builder.Name(d.Name))
		return false
	}
	if prev, exists := t.byName[d.Name]; exists {
		prevDecl := t.builder.Decl(prev)
		notes := []diag.Note{{Span: prevDecl.NameSpan, Msg: "previously declared here"}}
		diag.ErrorfNoted(r, diag.DeclDuplicate, d.NameSpan, notes,
			"duplicate declaration %q: the name is already used by a %s",
			t.builder.Name(d.Name), prevDecl.Kind)
		return false
	}
	t.byName[d.Name] = id
	t.order = append(t.order, id)
	return true
}

// RegisterImported records a public declaration supplied by the module
// resolution service. Imported names lose to local ones only via the normal
// duplicate check at their use span.
func (t *Table) RegisterImported(id ast.DeclID) {
	d := t.builder.Decl(id)
	if d == nil {
		return
	}
	if _, exists := t.imported[d.Name]; !exists {
		t.imported[d.Name] = id
	}
}

// Lookup resolves a name to its declaration, local first, then imported.
func (t *Table) Lookup(name source.StringID) (ast.DeclID, bool) {
	if id, ok := t.byName[name]; ok {
		return id, true
	}
	if id, ok := t.imported[name]; ok {
		return id, true
	}
	return ast.NoDeclID, false
}

// LookupKind resolves a name and requires a specific declaration kind.
func (t *Table) LookupKind(name source.StringID, kind ast.DeclKind) (ast.DeclID, bool) {
	id, ok := t.Lookup(name)
	if !ok {
		return ast.NoDeclID, false
	}
	if t.builder.Decl(id).Kind != kind {
		return ast.NoDeclID, false
	}
	return id, true
}

// IsBuiltin reports whether name is reserved.
func (t *Table) IsBuiltin(name source.StringID) bool {
	return t.builtins[name]
}

// Decls returns locally registered declarations in declaration order.
func (t *Table) Decls() []ast.DeclID {
	return t.order
}

// Builder returns the syntax tree the table indexes.
func (t *Table) Builder() *ast.Builder {
	return t.builder
}
