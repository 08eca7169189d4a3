package sema

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/types"
)

// signatures resolves every declaration header to interned types: function
// and method signatures, class/error fields, enum variant payloads. Bodies
// are untouched; a header that fails resolution marks its declaration broken
// so the body walk skips it while siblings continue.
func (c *checker) signatures() {
	for _, id := range c.table.Decls() {
		d := c.b.Decl(id)
		switch d.Kind {
		case ast.DeclFn:
			c.resolveFnSig(id, ast.NoDeclID)
		case ast.DeclClass, ast.DeclApp, ast.DeclStage:
			c.resolveFields(id, d, c.paramScope(d))
			c.res.DeclTypes[id] = c.namedSelfType(d, types.NamedClass)
			for _, mid := range d.Methods {
				c.resolveFnSig(mid, id)
			}
		case ast.DeclInterface:
			c.res.DeclTypes[id] = c.types.Interface(d.Name)
			for _, mid := range d.Methods {
				c.resolveFnSig(mid, id)
			}
		case ast.DeclEnum:
			scope := c.paramScope(d)
			for _, v := range d.Variants {
				c.resolveVariantFields(v, scope)
			}
			c.res.DeclTypes[id] = c.namedSelfType(d, types.NamedEnum)
		case ast.DeclError:
			c.resolveFields(id, d, nil)
			c.res.DeclTypes[id] = c.types.ErrorDecl(d.Name)
		}
	}
}

// namedSelfType is the type of self inside a generic declaration: the nominal
// type applied to its own parameters.
func (c *checker) namedSelfType(d *ast.Decl, nk types.NamedKind) types.TypeID {
	if len(d.TypeParams) == 0 {
		return c.types.Named(d.Name, nk)
	}
	args := make([]types.TypeID, len(d.TypeParams))
	for i, tp := range d.TypeParams {
		args[i] = c.types.Param(tp.Name, tp.Bounds)
	}
	return c.types.Named(d.Name, nk, args...)
}

func (c *checker) resolveFields(id ast.DeclID, d *ast.Decl, scope typeParamScope) {
	for _, f := range d.Fields {
		if c.resolveTypeExpr(f.Type, scope) == types.NoTypeID {
			c.broken[id] = true
		}
	}
}

func (c *checker) resolveVariantFields(v ast.Variant, scope typeParamScope) {
	for _, f := range v.Fields {
		c.resolveTypeExpr(f.Type, scope)
	}
}

// resolveFnSig builds the fnSig for a function, method or interface method.
func (c *checker) resolveFnSig(id ast.DeclID, owner ast.DeclID) *fnSig {
	if sig, ok := c.sigs[id]; ok {
		return sig
	}
	d := c.b.Decl(id)
	if d == nil || d.Kind != ast.DeclFn {
		return nil
	}
	if owner != ast.NoDeclID {
		d.Owner = owner
	}
	scope := c.paramScope(d)

	sig := &fnSig{
		Decl:    id,
		Owner:   d.Owner,
		Generic: len(d.TypeParams) > 0,
	}
	params := d.Params
	if recv, ok := d.Receiver(c.b.Strings); ok {
		sig.HasSelf = true
		sig.SelfMut = recv.Mut
		params = params[1:]
	}
	broken := false
	for _, p := range params {
		pt := c.resolveTypeExpr(p.Type, scope)
		if pt == types.NoTypeID {
			broken = true
		}
		sig.Params = append(sig.Params, pt)
		sig.ParamMut = append(sig.ParamMut, p.Mut)
	}

	result := c.resolveTypeExpr(d.Return, scope)
	if result == types.NoTypeID && d.Return.IsValid() {
		broken = true
		result = c.types.Builtins().Void
	}
	if d.Nullable {
		wrapped, nerr := c.types.Nullable(result)
		switch nerr {
		case types.NullableOfNullable:
			c.errorf(diag.ObligNestedNullable, d.NameSpan,
				"result of %q is already nullable", c.name(d.Name))
			broken = true
		case types.NullableOfVoid:
			c.errorf(diag.ObligVoidNullable, d.NameSpan,
				"function %q cannot return nullable void", c.name(d.Name))
			broken = true
		default:
			result = wrapped
		}
	}
	sig.Result = result

	for _, e := range d.Errors {
		if _, ok := c.table.LookupKind(e.Name, ast.DeclError); !ok {
			c.errorf(diag.ObligUnknownError, e.Span,
				"unknown error %q in error set of %q", c.name(e.Name), c.name(d.Name))
			continue
		}
		sig.Errors = append(sig.Errors, e.Name)
	}

	if broken {
		c.broken[id] = true
	}
	c.sigs[id] = sig
	c.res.DeclTypes[id] = c.types.Fn(sig.Params, sig.Result, sig.Errors)
	return sig
}

// fnTypeOf returns the interned function type of a signature.
func (c *checker) fnTypeOf(sig *fnSig) types.TypeID {
	return c.types.Fn(sig.Params, sig.Result, sig.Errors)
}

// methodByName returns the method decl with the given name, if present.
func (c *checker) methodByName(owner *ast.Decl, name source.StringID) (ast.DeclID, bool) {
	for _, mid := range owner.Methods {
		if m := c.b.Decl(mid); m != nil && m.Name == name {
			return mid, true
		}
	}
	return ast.NoDeclID, false
}
