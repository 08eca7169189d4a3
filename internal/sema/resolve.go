package sema

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/types"
)

// typeParamScope maps in-scope generic parameter names to their placeholder
// types.
type typeParamScope map[source.StringID]types.TypeID

// resolveTypeExpr turns a syntactic type reference into an interned TypeID,
// reporting problems at the reference span. NoTypeID means the reference is
// unusable and deeper analysis of the owner should be skipped.
func (c *checker) resolveTypeExpr(id ast.TypeExprID, tparams typeParamScope) types.TypeID {
	if !id.IsValid() {
		return c.types.Builtins().Void
	}
	te := c.b.TypeExpr(id)
	switch te.Kind {
	case ast.TypeExprNamed:
		return c.resolveNamed(te, tparams)
	case ast.TypeExprNullable:
		inner := c.resolveTypeExpr(te.Args[0], tparams)
		if inner == types.NoTypeID {
			return types.NoTypeID
		}
		wrapped, nerr := c.types.Nullable(inner)
		switch nerr {
		case types.NullableOfNullable:
			c.errorf(diag.ObligNestedNullable, te.Span,
				"cannot construct nullable of nullable type %s", c.typeLabel(inner))
			return types.NoTypeID
		case types.NullableOfVoid:
			c.errorf(diag.ObligVoidNullable, te.Span, "cannot construct nullable of void")
			return types.NoTypeID
		}
		return wrapped
	case ast.TypeExprArray:
		elem := c.resolveTypeExpr(te.Args[0], tparams)
		if elem == types.NoTypeID {
			return types.NoTypeID
		}
		return c.types.Array(elem)
	case ast.TypeExprMap:
		key := c.resolveTypeExpr(te.Args[0], tparams)
		value := c.resolveTypeExpr(te.Args[1], tparams)
		if key == types.NoTypeID || value == types.NoTypeID {
			return types.NoTypeID
		}
		if kt, ok := c.types.Lookup(key); ok && !kt.Hashable() && kt.Kind != types.KindParam {
			c.errorf(diag.TypeNotHashable, te.Span,
				"map key type %s is not hashable", c.typeLabel(key))
			return types.NoTypeID
		}
		return c.types.Map(key, value)
	case ast.TypeExprSet:
		elem := c.resolveTypeExpr(te.Args[0], tparams)
		if elem == types.NoTypeID {
			return types.NoTypeID
		}
		if et, ok := c.types.Lookup(elem); ok && !et.Hashable() && et.Kind != types.KindParam {
			c.errorf(diag.TypeNotHashable, te.Span,
				"set element type %s is not hashable", c.typeLabel(elem))
			return types.NoTypeID
		}
		return c.types.Set(elem)
	case ast.TypeExprFn:
		params := make([]types.TypeID, len(te.Args))
		for i, a := range te.Args {
			params[i] = c.resolveTypeExpr(a, tparams)
			if params[i] == types.NoTypeID {
				return types.NoTypeID
			}
		}
		ret := c.resolveTypeExpr(te.Ret, tparams)
		if ret == types.NoTypeID {
			return types.NoTypeID
		}
		return c.types.Fn(params, ret, te.Errors)
	}
	return types.NoTypeID
}

func (c *checker) resolveNamed(te *ast.TypeExpr, tparams typeParamScope) types.TypeID {
	name := c.name(te.Name)

	// Generic parameters shadow everything inside their declaration.
	if tparams != nil {
		if pt, ok := tparams[te.Name]; ok {
			if len(te.Args) > 0 {
				c.errorf(diag.TypeArityMismatch, te.Span,
					"generic parameter %q takes no type arguments", name)
				return types.NoTypeID
			}
			return pt
		}
	}

	switch name {
	case "int":
		return c.types.Builtins().Int
	case "float":
		return c.types.Builtins().Float
	case "bool":
		return c.types.Builtins().Bool
	case "string":
		return c.types.Builtins().String
	case "byte":
		return c.types.Builtins().Byte
	case "void":
		return c.types.Builtins().Void
	case "Task", "Chan":
		if len(te.Args) != 1 {
			c.errorf(diag.TypeArityMismatch, te.Span,
				"%s takes exactly 1 type argument, got %d", name, len(te.Args))
			return types.NoTypeID
		}
		elem := c.resolveTypeExpr(te.Args[0], tparams)
		if elem == types.NoTypeID {
			return types.NoTypeID
		}
		if name == "Task" {
			return c.types.Task(elem)
		}
		return c.types.Chan(elem)
	}

	declID, ok := c.table.Lookup(te.Name)
	if !ok {
		c.errorf(diag.TypeUnresolvedName, te.Span, "unknown type %q", name)
		return types.NoTypeID
	}
	d := c.b.Decl(declID)
	switch d.Kind {
	case ast.DeclClass, ast.DeclApp, ast.DeclStage:
		return c.resolveNominal(te, d, types.NamedClass, tparams)
	case ast.DeclEnum:
		return c.resolveNominal(te, d, types.NamedEnum, tparams)
	case ast.DeclInterface:
		if len(te.Args) > 0 {
			c.errorf(diag.TypeArityMismatch, te.Span,
				"interface %q takes no type arguments", name)
			return types.NoTypeID
		}
		return c.types.Interface(te.Name)
	case ast.DeclError:
		return c.types.ErrorDecl(te.Name)
	}
	c.errorf(diag.TypeUnresolvedName, te.Span, "%q is a %s, not a type", name, d.Kind)
	return types.NoTypeID
}

func (c *checker) resolveNominal(te *ast.TypeExpr, d *ast.Decl, nk types.NamedKind, tparams typeParamScope) types.TypeID {
	if len(te.Args) != len(d.TypeParams) {
		c.errorf(diag.TypeArityMismatch, te.Span,
			"%s %q expects %d type argument(s), got %d",
			d.Kind, c.name(d.Name), len(d.TypeParams), len(te.Args))
		return types.NoTypeID
	}
	args := make([]types.TypeID, len(te.Args))
	for i, a := range te.Args {
		args[i] = c.resolveTypeExpr(a, tparams)
		if args[i] == types.NoTypeID {
			return types.NoTypeID
		}
	}
	return c.types.Named(d.Name, nk, args...)
}

// paramScope builds the placeholder scope for a declaration's generic
// parameters.
func (c *checker) paramScope(d *ast.Decl) typeParamScope {
	owner := c.b.Decl(d.Owner)
	if len(d.TypeParams) == 0 && (owner == nil || len(owner.TypeParams) == 0) {
		return nil
	}
	scope := make(typeParamScope)
	if owner != nil {
		for _, tp := range owner.TypeParams {
			scope[tp.Name] = c.types.Param(tp.Name, tp.Bounds)
		}
	}
	for _, tp := range d.TypeParams {
		scope[tp.Name] = c.types.Param(tp.Name, tp.Bounds)
	}
	return scope
}
