package sema

import (
	"strings"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
)

// DINode is one participant of the constructor-injection graph: a class, app
// or stage with at least one injected dependency field, or a dependency of
// one. Lifecycle is the effective lifecycle after transitive inference.
type DINode struct {
	Decl      ast.DeclID
	Deps      []ast.DeclID
	Lifecycle ast.Lifecycle
}

// DIGraph is the frozen object graph for one unit. Built once, cycle-checked
// with three-color depth-first search, then immutable.
type DIGraph struct {
	Nodes map[ast.DeclID]*DINode
	// Participants records every declaration whose direct literal
	// construction must go through injection instead.
	Participants map[ast.DeclID]bool
}

type diColor uint8

const (
	diWhite diColor = iota
	diGray
	diBlack
)

// buildDIGraph builds and validates the dependency-injection graph: one node
// per class/app/stage with injected fields, one edge per dependency.
// Revisiting a gray node is a cycle, reported once naming the full path.
// A node depending directly or transitively on a scoped dependency is itself
// scoped.
func (c *checker) buildDIGraph() {
	g := &DIGraph{
		Nodes:        make(map[ast.DeclID]*DINode),
		Participants: make(map[ast.DeclID]bool),
	}
	c.res.DI = g

	for _, id := range c.table.Decls() {
		d := c.b.Decl(id)
		switch d.Kind {
		case ast.DeclClass, ast.DeclApp, ast.DeclStage:
		default:
			continue
		}
		node := &DINode{Decl: id, Lifecycle: d.Lifecycle}
		injected := false
		for _, f := range d.Fields {
			if !f.Injected {
				continue
			}
			injected = true
			dep, ok := c.injectedDep(f)
			if !ok {
				continue
			}
			node.Deps = append(node.Deps, dep)
		}
		if injected || d.Kind == ast.DeclApp || d.Kind == ast.DeclStage {
			g.Nodes[id] = node
			g.Participants[id] = true
		}
	}

	// Dependencies of participants join the graph even without injected
	// fields of their own, so lifecycle inference can flow through them.
	for _, node := range g.Nodes {
		for _, dep := range node.Deps {
			if _, ok := g.Nodes[dep]; !ok {
				d := c.b.Decl(dep)
				g.Nodes[dep] = &DINode{Decl: dep, Lifecycle: d.Lifecycle}
				g.Participants[dep] = true
			}
		}
	}

	c.detectDICycles(g)
	c.inferLifecycles(g)
}

// injectedDep resolves an injected field to the class-like declaration it
// depends on. Interface-typed injections resolve to the single
// implementation; ambiguity or absence is an error here, never deferred.
func (c *checker) injectedDep(f ast.Field) (ast.DeclID, bool) {
	te := c.b.TypeExpr(f.Type)
	if te == nil || te.Kind != ast.TypeExprNamed {
		c.errorf(diag.TypeMismatch, f.Span,
			"injected field %q must have a class, stage or interface type", c.name(f.Name))
		return ast.NoDeclID, false
	}
	declID, ok := c.table.Lookup(te.Name)
	if !ok {
		if c.table.IsBuiltin(te.Name) {
			c.errorf(diag.TypeMismatch, f.Span,
				"injected field %q must have a class, stage or interface type", c.name(f.Name))
		}
		// Unknown names were already reported by type resolution.
		return ast.NoDeclID, false
	}
	d := c.b.Decl(declID)
	switch d.Kind {
	case ast.DeclClass, ast.DeclApp, ast.DeclStage:
		return declID, true
	case ast.DeclInterface:
		impls := c.implementationsOf(te.Name)
		switch len(impls) {
		case 1:
			return impls[0], true
		case 0:
			c.errorf(diag.TraitNoImpl, f.Span,
				"no implementation of interface %q available for injected field %q",
				c.name(te.Name), c.name(f.Name))
		default:
			names := make([]string, len(impls))
			for i, impl := range impls {
				names[i] = c.name(c.b.Decl(impl).Name)
			}
			c.errorf(diag.TraitAmbiguousImpl, f.Span,
				"ambiguous injection for interface %q: implemented by %s",
				c.name(te.Name), strings.Join(names, ", "))
		}
		return ast.NoDeclID, false
	}
	c.errorf(diag.TypeMismatch, f.Span,
		"injected field %q cannot depend on %s %q", c.name(f.Name), d.Kind, c.name(d.Name))
	return ast.NoDeclID, false
}

func (c *checker) detectDICycles(g *DIGraph) {
	colors := make(map[ast.DeclID]diColor, len(g.Nodes))
	var path []ast.DeclID

	var visit func(id ast.DeclID)
	visit = func(id ast.DeclID) {
		colors[id] = diGray
		path = append(path, id)
		node := g.Nodes[id]
		for _, dep := range node.Deps {
			switch colors[dep] {
			case diWhite:
				visit(dep)
			case diGray:
				c.reportDICycle(path, dep)
			}
		}
		path = path[:len(path)-1]
		colors[id] = diBlack
	}

	// Deterministic start order: declaration order.
	for _, id := range c.table.Decls() {
		if _, ok := g.Nodes[id]; ok && colors[id] == diWhite {
			visit(id)
		}
	}
}

// reportDICycle names the full cycle A -> B -> A, reported once against the
// declaration that closes it.
func (c *checker) reportDICycle(path []ast.DeclID, closing ast.DeclID) {
	start := 0
	for i, id := range path {
		if id == closing {
			start = i
			break
		}
	}
	cycle := path[start:]
	names := make([]string, 0, len(cycle)+1)
	for _, id := range cycle {
		names = append(names, c.name(c.b.Decl(id).Name))
	}
	names = append(names, c.name(c.b.Decl(closing).Name))
	head := c.b.Decl(cycle[0])
	c.errorf(diag.DeclCircularDependency, head.NameSpan,
		"circular dependency: %s", strings.Join(names, " -> "))
}

// inferLifecycles propagates scoped lifecycles to dependents: anything that
// reaches a scoped node is itself scoped, never silently defaulted.
// Transient nodes never taint their dependents.
func (c *checker) inferLifecycles(g *DIGraph) {
	memo := make(map[ast.DeclID]ast.Lifecycle, len(g.Nodes))
	var infer func(id ast.DeclID, seen map[ast.DeclID]bool) ast.Lifecycle
	infer = func(id ast.DeclID, seen map[ast.DeclID]bool) ast.Lifecycle {
		if lc, ok := memo[id]; ok {
			return lc
		}
		if seen[id] {
			// Cycle already reported; stop the recursion.
			return c.b.Decl(id).Lifecycle
		}
		seen[id] = true
		node := g.Nodes[id]
		lc := node.Lifecycle
		for _, dep := range node.Deps {
			if infer(dep, seen) == ast.LifecycleScoped && lc == ast.LifecycleDefault {
				lc = ast.LifecycleScoped
			}
		}
		memo[id] = lc
		node.Lifecycle = lc
		return lc
	}
	for _, id := range c.table.Decls() {
		if _, ok := g.Nodes[id]; ok {
			infer(id, make(map[ast.DeclID]bool))
		}
	}
}

// diParticipant reports whether a struct literal targets a DI participant,
// which must be constructed through injection.
func (c *checker) diParticipant(name source.StringID) (ast.DeclID, bool) {
	id, ok := c.table.Lookup(name)
	if !ok || c.res.DI == nil {
		return ast.NoDeclID, false
	}
	if c.res.DI.Participants[id] {
		return id, true
	}
	return ast.NoDeclID, false
}

// ensureNotDirectConstruction rejects literal construction of graph
// participants.
func (c *checker) ensureNotDirectConstruction(name source.StringID, span source.Span) {
	if id, isPart := c.diParticipant(name); isPart {
		d := c.b.Decl(id)
		c.errorf(diag.DeclDirectConstruction, span,
			"%s %q participates in the injection graph and cannot be constructed directly",
			d.Kind, c.name(d.Name))
	}
}
