package sema

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
)

// runtimeErrors are implicitly declared error types raised by the concurrency
// primitives: task result retrieval and channel operations.
var runtimeErrors = []string{"TaskCancelled", "ChannelClosed"}

// declare runs pass 1: every top-level header lands in the shared namespace
// before any body is looked at, so type positions may reference declarations
// textually below them. Member-level duplicate checks run here too.
func (c *checker) declare() {
	c.declareRuntimeErrors()
	for _, id := range c.b.TopLevel {
		if !c.table.Register(id, c.reporter) {
			c.broken[id] = true
			continue
		}
		c.validateMembers(id)
	}
}

func (c *checker) declareRuntimeErrors() {
	for _, name := range runtimeErrors {
		id := c.b.AddDecl(ast.Decl{
			Kind: ast.DeclError,
			Name: c.b.Intern(name),
		})
		c.table.RegisterImported(id)
	}
}

// validateMembers reports duplicate fields, methods, params and variants
// inside one declaration. The declaration itself stays usable; only the
// duplicated member is flagged.
func (c *checker) validateMembers(id ast.DeclID) {
	d := c.b.Decl(id)
	switch d.Kind {
	case ast.DeclFn:
		c.validateParams(d)
	case ast.DeclClass, ast.DeclApp, ast.DeclStage:
		c.validateFields(d.Fields)
		c.validateMethods(d)
	case ast.DeclInterface:
		c.validateMethods(d)
	case ast.DeclEnum:
		seen := make(map[source.StringID]source.Span, len(d.Variants))
		for _, v := range d.Variants {
			if prev, dup := seen[v.Name]; dup {
				notes := []diag.Note{{Span: prev, Msg: "previous variant here"}}
				diag.ErrorfNoted(c.reporter, diag.DeclDuplicateVariant, v.Span, notes,
					"duplicate variant %q in enum %q", c.name(v.Name), c.name(d.Name))
				continue
			}
			seen[v.Name] = v.Span
			c.validateFields(v.Fields)
		}
	case ast.DeclError:
		c.validateFields(d.Fields)
	}
}

func (c *checker) validateFields(fields []ast.Field) {
	seen := make(map[source.StringID]source.Span, len(fields))
	for _, f := range fields {
		if prev, dup := seen[f.Name]; dup {
			notes := []diag.Note{{Span: prev, Msg: "previous field here"}}
			diag.ErrorfNoted(c.reporter, diag.DeclDuplicateField, f.Span, notes,
				"duplicate field %q", c.name(f.Name))
			continue
		}
		seen[f.Name] = f.Span
	}
}

func (c *checker) validateMethods(d *ast.Decl) {
	seen := make(map[source.StringID]source.Span, len(d.Methods))
	for _, mid := range d.Methods {
		m := c.b.Decl(mid)
		if m == nil {
			continue
		}
		if prev, dup := seen[m.Name]; dup {
			notes := []diag.Note{{Span: prev, Msg: "previous method here"}}
			diag.ErrorfNoted(c.reporter, diag.DeclDuplicateMethod, m.NameSpan, notes,
				"duplicate method %q on %s %q", c.name(m.Name), d.Kind, c.name(d.Name))
			c.broken[mid] = true
			continue
		}
		seen[m.Name] = m.NameSpan
		c.validateParams(m)
	}
}

func (c *checker) validateParams(d *ast.Decl) {
	seen := make(map[source.StringID]source.Span, len(d.Params))
	for _, p := range d.Params {
		if prev, dup := seen[p.Name]; dup {
			notes := []diag.Note{{Span: prev, Msg: "previous parameter here"}}
			diag.ErrorfNoted(c.reporter, diag.DeclDuplicateParam, p.Span, notes,
				"duplicate parameter %q", c.name(p.Name))
			continue
		}
		seen[p.Name] = p.Span
	}
}

// flattenStages resolves stage inheritance before anything else sees the
// declarations: methods and injected fields of ancestors are copied into
// concrete stages, single inheritance only. Runs pre-registration so the
// rest of the checker sees flat stages.
func (c *checker) flattenStages() {
	byName := make(map[source.StringID]ast.DeclID)
	for _, id := range c.b.TopLevel {
		d := c.b.Decl(id)
		if d.Kind == ast.DeclStage {
			byName[d.Name] = id
		}
	}
	for _, id := range c.b.TopLevel {
		d := c.b.Decl(id)
		if d.Kind != ast.DeclStage || d.StageParent == source.NoStringID {
			continue
		}
		c.flattenStage(id, byName, make(map[ast.DeclID]bool))
	}
}

func (c *checker) flattenStage(id ast.DeclID, byName map[source.StringID]ast.DeclID, visiting map[ast.DeclID]bool) {
	d := c.b.Decl(id)
	if d.StageParent == source.NoStringID {
		return
	}
	if visiting[id] {
		c.errorf(diag.DeclStageParentCycle, d.NameSpan,
			"stage %q inherits from itself through its parent chain", c.name(d.Name))
		d.StageParent = source.NoStringID
		return
	}
	visiting[id] = true
	parentID, ok := byName[d.StageParent]
	if !ok {
		c.errorf(diag.DeclStageParentUnknown, d.NameSpan,
			"stage %q inherits from unknown stage %q", c.name(d.Name), c.name(d.StageParent))
		d.StageParent = source.NoStringID
		return
	}
	c.flattenStage(parentID, byName, visiting)
	parent := c.b.Decl(parentID)

	have := make(map[source.StringID]bool, len(d.Methods))
	for _, mid := range d.Methods {
		have[c.b.Decl(mid).Name] = true
	}
	for _, mid := range parent.Methods {
		if !have[c.b.Decl(mid).Name] {
			d.Methods = append(d.Methods, mid)
		}
	}
	haveField := make(map[source.StringID]bool, len(d.Fields))
	for _, f := range d.Fields {
		haveField[f.Name] = true
	}
	for _, f := range parent.Fields {
		if !haveField[f.Name] {
			d.Fields = append(d.Fields, f)
		}
	}
	if d.Lifecycle == ast.LifecycleDefault {
		d.Lifecycle = parent.Lifecycle
	}
	d.StageParent = source.NoStringID
}
