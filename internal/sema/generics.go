package sema

import (
	"strings"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/mono"
	"ember/internal/source"
	"ember/internal/types"
)

// instWork is one pending specialization re-check with its chain depth: a
// generic body instantiated from inside another specialization sits one
// level deeper than its trigger.
type instWork struct {
	entry *mono.Entry
	depth int
}

// recordInstantiation memoizes a generic call. A fresh argument tuple joins
// the re-check queue; a tuple already checked reuses its verdict, reporting
// again only when the verdict is a failure. Chains deeper than the cap are
// cut at the triggering site.
func (c *checker) recordInstantiation(decl ast.DeclID, args []types.TypeID, site source.Span, caller ast.DeclID, depth int) {
	for _, a := range args {
		if c.types.ContainsParam(a) {
			// Still parametric: the enclosing generic body is being checked
			// for a concrete tuple elsewhere.
			return
		}
	}
	entry, fresh := c.res.Inst.Record(decl, args, site, caller)
	next := depth + 1
	if next > c.depthLimit {
		c.errorf(diag.TypeRecursionLimit, site,
			"generic instantiation of %q exceeds the depth limit of %d",
			c.name(c.b.Decl(decl).Name), c.depthLimit)
		entry.Checked = true
		entry.Failed = true
		return
	}
	if fresh {
		c.instQueue = append(c.instQueue, instWork{entry: entry, depth: next})
		return
	}
	if entry.Checked && entry.Failed {
		c.reportInstFailure(entry, site)
	}
}

// recordNominalInstantiations queues the method bodies of a generic class or
// enum for re-checking under one concrete argument tuple. Triggered by
// construction: a tuple nobody constructs never costs a body check.
func (c *checker) recordNominalInstantiations(d *ast.Decl, args []types.TypeID, site source.Span, caller ast.DeclID, depth int) {
	if len(d.TypeParams) == 0 || len(args) != len(d.TypeParams) {
		return
	}
	for _, mid := range d.Methods {
		m := c.b.Decl(mid)
		if m == nil || !m.Body.IsValid() || len(m.TypeParams) > 0 {
			continue
		}
		c.recordInstantiation(mid, args, site, caller, depth)
	}
}

// checkInstantiations drains the specialization worklist: each fresh tuple
// gets a substituted clone of the generic body, re-checked into a private
// bag. Failures surface at the use sites that demanded the tuple, never at
// the generic definition. Re-checks may queue further tuples, so this loops
// to a fixed point.
func (c *checker) checkInstantiations() {
	for len(c.instQueue) > 0 {
		work := c.instQueue[0]
		c.instQueue = c.instQueue[1:]
		entry := work.entry
		if entry.Checked {
			continue
		}
		entry.Checked = true
		c.checkOneInstantiation(entry, work.depth)
	}
}

func (c *checker) checkOneInstantiation(entry *mono.Entry, depth int) {
	d := c.b.Decl(entry.Decl)
	if d == nil {
		return
	}
	// Methods of a generic owner carry the owner's parameters.
	tparams := d.TypeParams
	owner := c.b.Decl(d.Owner)
	if len(tparams) == 0 && owner != nil {
		tparams = owner.TypeParams
	}
	if len(tparams) != len(entry.TypeArgs) {
		return
	}
	subst := make(ast.TypeSubst, len(tparams))
	for i, tp := range tparams {
		texpr := c.typeExprFor(entry.TypeArgs[i], d.NameSpan)
		if !texpr.IsValid() {
			return
		}
		subst[tp.Name] = texpr
	}
	clone := c.b.CloneDecl(entry.Decl, subst)
	entry.Specialized = clone

	bag := diag.NewBag(0)
	rep := &diag.BagReporter{Bag: bag}
	prev := c.reporter
	c.reporter = rep
	var selfType types.TypeID
	if owner != nil {
		if len(owner.TypeParams) > 0 {
			kind := types.NamedClass
			if owner.Kind == ast.DeclEnum {
				kind = types.NamedEnum
			}
			selfType = c.types.Named(owner.Name, kind, entry.TypeArgs...)
		} else {
			selfType = c.res.DeclTypes[d.Owner]
		}
	}
	c.resolveFnSig(clone, d.Owner)
	if !c.broken[clone] && c.b.Decl(clone).Body.IsValid() {
		c.checkFnBody(clone, selfType, depth, rep)
	}
	c.reporter = prev

	if !bag.HasErrors() {
		return
	}
	entry.Failed = true
	if c.instDiags == nil {
		c.instDiags = make(map[*mono.Entry][]diag.Diagnostic)
	}
	c.instDiags[entry] = append([]diag.Diagnostic(nil), bag.Items()...)
	for _, site := range entry.UseSites {
		c.reportInstFailure(entry, site.Span)
	}
}

// reportInstFailure re-attributes a specialization failure to one use site.
// The first captured error carries the cause; its original span becomes a
// note so the generic source stays findable.
func (c *checker) reportInstFailure(entry *mono.Entry, site source.Span) {
	d := c.b.Decl(entry.Decl)
	label := c.instLabel(d.Name, entry.TypeArgs)
	for _, captured := range c.instDiags[entry] {
		if captured.Severity < diag.SevError {
			continue
		}
		notes := []diag.Note{{Span: captured.Primary, Msg: "inside the generic body here"}}
		diag.ErrorfNoted(c.reporter, captured.Code, site, notes,
			"%s: %s", label, captured.Message)
		return
	}
	c.errorf(diag.TypeMismatch, site, "%s fails to check", label)
}

func (c *checker) instLabel(name source.StringID, args []types.TypeID) string {
	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = c.typeLabel(a)
	}
	return "instantiation " + c.name(name) + "<" + strings.Join(rendered, ", ") + ">"
}

// typeExprFor materializes a syntactic type reference for a concrete interned
// type, so declaration cloning can substitute generic parameters textually.
func (c *checker) typeExprFor(id types.TypeID, span source.Span) ast.TypeExprID {
	t, ok := c.types.Lookup(id)
	if !ok {
		return ast.NoTypeExprID
	}
	switch t.Kind {
	case types.KindInt, types.KindFloat, types.KindBool, types.KindString, types.KindByte, types.KindVoid:
		return c.b.NewNamedType(span, c.b.Intern(t.Kind.String()))
	case types.KindNamed:
		args := make([]ast.TypeExprID, len(t.Args))
		for i, a := range t.Args {
			args[i] = c.typeExprFor(a, span)
			if !args[i].IsValid() {
				return ast.NoTypeExprID
			}
		}
		return c.b.NewNamedType(span, t.Name, args...)
	case types.KindInterface, types.KindError, types.KindParam:
		return c.b.NewNamedType(span, t.Name)
	case types.KindNullable:
		inner := c.typeExprFor(t.Elem, span)
		if !inner.IsValid() {
			return ast.NoTypeExprID
		}
		return c.b.NewNullableType(span, inner)
	case types.KindArray:
		elem := c.typeExprFor(t.Elem, span)
		if !elem.IsValid() {
			return ast.NoTypeExprID
		}
		return c.b.NewArrayType(span, elem)
	case types.KindSet:
		elem := c.typeExprFor(t.Elem, span)
		if !elem.IsValid() {
			return ast.NoTypeExprID
		}
		return c.b.NewSetType(span, elem)
	case types.KindMap:
		key := c.typeExprFor(t.Key, span)
		val := c.typeExprFor(t.Elem, span)
		if !key.IsValid() || !val.IsValid() {
			return ast.NoTypeExprID
		}
		return c.b.NewMapType(span, key, val)
	case types.KindTask, types.KindChan:
		elem := c.typeExprFor(t.Elem, span)
		if !elem.IsValid() {
			return ast.NoTypeExprID
		}
		name := "Chan"
		if t.Kind == types.KindTask {
			name = "Task"
		}
		return c.b.NewNamedType(span, c.b.Intern(name), elem)
	case types.KindFn:
		params := make([]ast.TypeExprID, len(t.Args))
		for i, a := range t.Args {
			params[i] = c.typeExprFor(a, span)
			if !params[i].IsValid() {
				return ast.NoTypeExprID
			}
		}
		ret := c.typeExprFor(t.Result, span)
		if !ret.IsValid() {
			return ast.NoTypeExprID
		}
		return c.b.NewFnType(span, params, ret, t.Errors)
	}
	return ast.NoTypeExprID
}
