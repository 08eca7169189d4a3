package sema

import (
	"sort"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
)

// inferErrorSets computes each function's reachable error set: its direct
// raises plus everything that escapes a forwarded callee. Declared sets make
// the per-call obligation checks local; this pass only answers "can this
// error actually happen", iterated to a fixed point over the forward edges,
// and warns on declared errors that never can.
func (c *checker) inferErrorSets() {
	reach := make(map[ast.DeclID]map[source.StringID]bool, len(c.raises))
	for decl, set := range c.raises {
		copied := make(map[source.StringID]bool, len(set))
		for err := range set {
			copied[err] = true
		}
		reach[decl] = copied
	}

	changed := true
	for changed {
		changed = false
		for from, callees := range c.propEdges {
			for callee := range callees {
				csig := c.sigs[callee]
				if csig == nil {
					continue
				}
				for err := range reach[callee] {
					if !csig.declaresError(err) {
						continue
					}
					set := reach[from]
					if set == nil {
						set = make(map[source.StringID]bool)
						reach[from] = set
					}
					if !set[err] {
						set[err] = true
						changed = true
					}
				}
			}
		}
	}

	for _, id := range c.table.Decls() {
		c.finishErrorSet(id, reach)
		d := c.b.Decl(id)
		for _, mid := range d.Methods {
			c.finishErrorSet(mid, reach)
		}
	}
}

// finishErrorSet stores one declaration's sorted reachable set and warns on
// declared errors proven unreachable. Generic declarations are skipped: each
// tuple checks its own specialized body.
func (c *checker) finishErrorSet(id ast.DeclID, reach map[ast.DeclID]map[source.StringID]bool) {
	d := c.b.Decl(id)
	if d == nil || d.Kind != ast.DeclFn {
		return
	}
	set := reach[id]
	if len(set) > 0 {
		names := make([]source.StringID, 0, len(set))
		for err := range set {
			names = append(names, err)
		}
		sort.Slice(names, func(i, j int) bool {
			return c.name(names[i]) < c.name(names[j])
		})
		c.res.ErrorSets[id] = names
	}

	sig := c.sigs[id]
	if sig == nil || sig.Generic || c.broken[id] || !d.Body.IsValid() {
		return
	}
	for _, ref := range d.Errors {
		if !set[ref.Name] {
			c.warnf(diag.WarnUnusedError, ref.Span,
				"declared error %q is never raised by %q",
				c.name(ref.Name), c.name(d.Name))
		}
	}
}
