package types

import (
	"ember/internal/source"
)

// Subst maps generic parameter names to concrete types. A parameter binds at
// most once per unification context; a later conflicting use fails at that
// use, never retroactively at the first binding site.
type Subst map[source.StringID]TypeID

// Unify matches pattern against concrete, extending subst with parameter
// bindings. It reports success; on failure subst may hold partial bindings
// and the caller attributes the mismatch to the current call site.
func (in *Interner) Unify(pattern, concrete TypeID, subst Subst) bool {
	if pattern == concrete {
		return true
	}
	p, ok := in.Lookup(pattern)
	if !ok {
		return false
	}
	c, okc := in.Lookup(concrete)
	if !okc {
		return false
	}

	if p.Kind == KindParam {
		if bound, exists := subst[p.Name]; exists {
			return bound == concrete
		}
		subst[p.Name] = concrete
		return true
	}

	if p.Kind != c.Kind {
		return false
	}
	switch p.Kind {
	case KindNamed:
		if p.Name != c.Name || len(p.Args) != len(c.Args) {
			return false
		}
		for i := range p.Args {
			if !in.Unify(p.Args[i], c.Args[i], subst) {
				return false
			}
		}
		return true
	case KindNullable, KindArray, KindSet, KindTask, KindChan:
		return in.Unify(p.Elem, c.Elem, subst)
	case KindMap:
		return in.Unify(p.Key, c.Key, subst) && in.Unify(p.Elem, c.Elem, subst)
	case KindFn:
		if len(p.Args) != len(c.Args) || len(p.Errors) != len(c.Errors) {
			return false
		}
		for i := range p.Args {
			if !in.Unify(p.Args[i], c.Args[i], subst) {
				return false
			}
		}
		for i := range p.Errors {
			if p.Errors[i] != c.Errors[i] {
				return false
			}
		}
		return in.Unify(p.Result, c.Result, subst)
	case KindInterface, KindError:
		return p.Name == c.Name
	}
	// Distinct primitive IDs never unify.
	return false
}

// Substitute rewrites every parameter occurrence in id through subst.
// Unbound parameters survive unchanged.
func (in *Interner) Substitute(id TypeID, subst Subst) TypeID {
	t, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch t.Kind {
	case KindParam:
		if bound, exists := subst[t.Name]; exists {
			return bound
		}
		return id
	case KindNamed:
		if len(t.Args) == 0 {
			return id
		}
		args := make([]TypeID, len(t.Args))
		changed := false
		for i, a := range t.Args {
			args[i] = in.Substitute(a, subst)
			changed = changed || args[i] != a
		}
		if !changed {
			return id
		}
		return in.Named(t.Name, t.Named, args...)
	case KindNullable:
		inner := in.Substitute(t.Elem, subst)
		if inner == t.Elem {
			return id
		}
		wrapped, nerr := in.Nullable(inner)
		if nerr != NullableOK {
			// Substitution produced T?? or void?; surfaces as a per-site
			// diagnostic during the instantiation re-check.
			return NoTypeID
		}
		return wrapped
	case KindArray:
		if inner := in.Substitute(t.Elem, subst); inner != t.Elem {
			return in.Array(inner)
		}
		return id
	case KindSet:
		if inner := in.Substitute(t.Elem, subst); inner != t.Elem {
			return in.Set(inner)
		}
		return id
	case KindTask:
		if inner := in.Substitute(t.Elem, subst); inner != t.Elem {
			return in.Task(inner)
		}
		return id
	case KindChan:
		if inner := in.Substitute(t.Elem, subst); inner != t.Elem {
			return in.Chan(inner)
		}
		return id
	case KindMap:
		key := in.Substitute(t.Key, subst)
		val := in.Substitute(t.Elem, subst)
		if key == t.Key && val == t.Elem {
			return id
		}
		return in.Map(key, val)
	case KindFn:
		params := make([]TypeID, len(t.Args))
		changed := false
		for i, a := range t.Args {
			params[i] = in.Substitute(a, subst)
			changed = changed || params[i] != a
		}
		result := in.Substitute(t.Result, subst)
		if !changed && result == t.Result {
			return id
		}
		return in.Fn(params, result, t.Errors)
	}
	return id
}

// ContainsParam reports whether id mentions any generic parameter.
func (in *Interner) ContainsParam(id TypeID) bool {
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case KindParam:
		return true
	case KindNamed, KindFn:
		for _, a := range t.Args {
			if in.ContainsParam(a) {
				return true
			}
		}
		return t.Kind == KindFn && in.ContainsParam(t.Result)
	case KindNullable, KindArray, KindSet, KindTask, KindChan:
		return in.ContainsParam(t.Elem)
	case KindMap:
		return in.ContainsParam(t.Key) || in.ContainsParam(t.Elem)
	}
	return false
}
