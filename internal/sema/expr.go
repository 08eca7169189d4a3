package sema

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// typeExpr types an expression with no contextual expectation.
func (bc *bodyChecker) typeExpr(id ast.ExprID) types.TypeID {
	return bc.typeExprExpected(id, types.NoTypeID)
}

// typeExprExpected types an expression under an expected type. The
// expectation threads downward only where context genuinely decides a type:
// none literals, empty container literals and generic struct literals.
// It never overrides what the expression says about itself.
func (bc *bodyChecker) typeExprExpected(id ast.ExprID, expected types.TypeID) types.TypeID {
	e := bc.c.b.Expr(id)
	if e == nil {
		return types.NoTypeID
	}
	switch e.Kind {
	case ast.ExprLitInt:
		return bc.recordType(id, bc.c.types.Builtins().Int)
	case ast.ExprLitFloat:
		return bc.recordType(id, bc.c.types.Builtins().Float)
	case ast.ExprLitTrue, ast.ExprLitFalse:
		return bc.recordType(id, bc.c.types.Builtins().Bool)
	case ast.ExprLitString:
		return bc.recordType(id, bc.c.types.Builtins().String)
	case ast.ExprLitNone:
		return bc.recordType(id, bc.noneType(e, expected))
	case ast.ExprIdent:
		return bc.recordType(id, bc.ident(e))
	case ast.ExprUnary:
		return bc.recordType(id, bc.unary(e))
	case ast.ExprBinary:
		return bc.recordType(id, bc.binary(e))
	case ast.ExprCall:
		return bc.recordType(id, bc.call(id, e))
	case ast.ExprMethodCall:
		return bc.recordType(id, bc.methodCall(id, e))
	case ast.ExprField:
		return bc.recordType(id, bc.fieldAccess(e))
	case ast.ExprIndex:
		return bc.recordType(id, bc.index(e))
	case ast.ExprArrayLit:
		return bc.recordType(id, bc.arrayLit(e, expected))
	case ast.ExprMapLit:
		return bc.recordType(id, bc.mapLit(e, expected))
	case ast.ExprSetLit:
		return bc.recordType(id, bc.setLit(e, expected))
	case ast.ExprStructLit:
		return bc.recordType(id, bc.structLit(e, expected))
	case ast.ExprEnumCtor:
		return bc.recordType(id, bc.enumCtor(e, expected))
	case ast.ExprClosure:
		return bc.recordType(id, bc.closure(e))
	case ast.ExprCast:
		return bc.recordType(id, bc.cast(e))
	case ast.ExprUnwrap:
		return bc.recordType(id, bc.unwrap(e))
	case ast.ExprCatch:
		return bc.recordType(id, bc.catchExpr(e))
	case ast.ExprPropagate:
		return bc.recordType(id, bc.propagate(e))
	case ast.ExprSpawn:
		return bc.recordType(id, bc.spawn(e))
	case ast.ExprInterp:
		return bc.recordType(id, bc.interp(e))
	}
	return types.NoTypeID
}

// noneType resolves a bare none literal from the expected type. Without a
// nullable expectation the literal is untypeable.
func (bc *bodyChecker) noneType(e *ast.Expr, expected types.TypeID) types.TypeID {
	if bc.c.types.IsNullable(expected) {
		return expected
	}
	bc.errorf(diag.TypeCannotInfer, e.Span,
		"cannot infer a type for none; annotate the target with a nullable type")
	return types.NoTypeID
}

func (bc *bodyChecker) ident(e *ast.Expr) types.TypeID {
	if t, isContract := bc.contractIdent(e); isContract {
		return t
	}
	if b, crossed, ok := bc.env.Lookup(e.Name); ok {
		b.Used = true
		if crossed {
			bc.capture(b)
		}
		return b.Type
	}
	if declID, ok := bc.c.table.Lookup(e.Name); ok {
		d := bc.c.b.Decl(declID)
		switch d.Kind {
		case ast.DeclFn:
			sig := bc.c.sigs[declID]
			if sig == nil {
				return types.NoTypeID
			}
			if sig.Generic {
				bc.errorf(diag.TypeCannotInfer, e.Span,
					"generic function %q must be called to fix its type arguments",
					bc.name(e.Name))
				return types.NoTypeID
			}
			return bc.c.fnTypeOf(sig)
		default:
			bc.errorf(diag.TypeMismatch, e.Span,
				"%s %q is not a value", d.Kind, bc.name(e.Name))
			return types.NoTypeID
		}
	}
	bc.errorf(diag.TypeUnresolvedName, e.Span, "undefined name %q", bc.name(e.Name))
	return types.NoTypeID
}

// capture marks a binding as captured by value into the innermost closure.
func (bc *bodyChecker) capture(b *symbols.Binding) {
	b.Captured = true
	cur := bc.fn()
	if !cur.isClosure {
		return
	}
	for _, name := range cur.captures {
		if name == b.Name {
			return
		}
	}
	cur.captures = append(cur.captures, b.Name)
}

func (bc *bodyChecker) unary(e *ast.Expr) types.TypeID {
	operand := bc.typeExpr(e.X)
	if operand == types.NoTypeID {
		return types.NoTypeID
	}
	bt := bc.c.types.Builtins()
	switch e.Op {
	case ast.OpNot:
		if operand != bt.Bool {
			bc.errorf(diag.TypeMismatch, e.Span,
				"operator ! requires bool, found %s", bc.typeLabel(operand))
			return types.NoTypeID
		}
		return bt.Bool
	case ast.OpNeg:
		if t, ok := bc.c.types.Lookup(operand); !ok || !t.IsNumeric() {
			bc.errorf(diag.TypeMismatch, e.Span,
				"operator - requires a numeric operand, found %s", bc.typeLabel(operand))
			return types.NoTypeID
		}
		return operand
	case ast.OpBitNot:
		if operand != bt.Int && operand != bt.Byte {
			bc.errorf(diag.TypeMismatch, e.Span,
				"operator ~ requires int or byte, found %s", bc.typeLabel(operand))
			return types.NoTypeID
		}
		return operand
	}
	return types.NoTypeID
}

func (bc *bodyChecker) binary(e *ast.Expr) types.TypeID {
	left := bc.typeExpr(e.X)
	right := bc.typeExprExpected(e.Y, left)
	if left == types.NoTypeID || right == types.NoTypeID {
		return types.NoTypeID
	}
	bt := bc.c.types.Builtins()

	switch {
	case e.Op.IsLogical():
		if left != bt.Bool || right != bt.Bool {
			bc.errorf(diag.TypeMismatch, e.Span,
				"logical operator requires bool operands, found %s and %s",
				bc.typeLabel(left), bc.typeLabel(right))
			return types.NoTypeID
		}
		return bt.Bool

	case e.Op.IsComparison():
		if !bc.comparable(left, right, e.Op) {
			bc.errorf(diag.TypeMismatch, e.Span,
				"cannot compare %s with %s", bc.typeLabel(left), bc.typeLabel(right))
			return types.NoTypeID
		}
		return bt.Bool

	case e.Op.IsArithmetic():
		if e.Op == ast.OpAdd && left == bt.String && right == bt.String {
			return bt.String
		}
		lt, okL := bc.c.types.Lookup(left)
		if !okL || !lt.IsNumeric() || left != right {
			bc.errorf(diag.TypeMismatch, e.Span,
				"arithmetic requires matching numeric operands, found %s and %s",
				bc.typeLabel(left), bc.typeLabel(right))
			return types.NoTypeID
		}
		return left
	}
	return types.NoTypeID
}

// comparable decides operand compatibility for a comparison operator.
// Equality works on any single type; ordering needs numeric or string
// operands. There are no implicit conversions.
func (bc *bodyChecker) comparable(left, right types.TypeID, op ast.Op) bool {
	if left != right {
		// Nullable against its inner type compares for none-ness.
		if op == ast.OpEq || op == ast.OpNe {
			return bc.c.types.Unwrap(left) == right || left == bc.c.types.Unwrap(right)
		}
		return false
	}
	if op == ast.OpEq || op == ast.OpNe {
		return true
	}
	t, ok := bc.c.types.Lookup(left)
	return ok && (t.IsNumeric() || t.Kind == types.KindString)
}

func (bc *bodyChecker) fieldAccess(e *ast.Expr) types.TypeID {
	objType := bc.typeExpr(e.X)
	if objType == types.NoTypeID {
		return types.NoTypeID
	}
	if bc.c.types.IsNullable(objType) {
		bc.errorf(diag.TypeMismatch, e.Span,
			"cannot access field %q on nullable %s; unwrap it first",
			bc.name(e.Sel), bc.typeLabel(objType))
		return types.NoTypeID
	}
	ft, ok := bc.fieldTypeOf(objType, e.Sel)
	if !ok {
		bc.errorf(diag.TypeUnknownField, e.Span,
			"type %s has no field %q", bc.typeLabel(objType), bc.name(e.Sel))
		return types.NoTypeID
	}
	return ft
}

// fieldTypeOf resolves a field on a class-like or error type, substituting
// the receiver's type arguments.
func (bc *bodyChecker) fieldTypeOf(objType types.TypeID, sel source.StringID) (types.TypeID, bool) {
	t, ok := bc.c.types.Lookup(objType)
	if !ok {
		return types.NoTypeID, false
	}
	var d *ast.Decl
	var subst types.Subst
	switch t.Kind {
	case types.KindNamed:
		declID, found := bc.c.table.Lookup(t.Name)
		if !found {
			return types.NoTypeID, false
		}
		d = bc.c.b.Decl(declID)
		if d.Kind == ast.DeclEnum {
			return types.NoTypeID, false
		}
		subst = bc.c.nominalSubst(d, t.Args)
	case types.KindError:
		declID, found := bc.c.table.LookupKind(t.Name, ast.DeclError)
		if !found {
			return types.NoTypeID, false
		}
		d = bc.c.b.Decl(declID)
	default:
		return types.NoTypeID, false
	}
	scope := bc.c.paramScope(d)
	for _, f := range d.Fields {
		if f.Name != sel {
			continue
		}
		ft := bc.c.resolveTypeExpr(f.Type, scope)
		if subst != nil {
			ft = bc.c.types.Substitute(ft, subst)
		}
		return ft, true
	}
	return types.NoTypeID, false
}

func (bc *bodyChecker) index(e *ast.Expr) types.TypeID {
	objType := bc.typeExpr(e.X)
	indexType := bc.typeExpr(e.Y)
	t, ok := bc.c.types.Lookup(objType)
	if !ok {
		return types.NoTypeID
	}
	bt := bc.c.types.Builtins()
	switch t.Kind {
	case types.KindArray:
		bc.wantType(indexType, bt.Int, e.Y)
		return t.Elem
	case types.KindString:
		bc.wantType(indexType, bt.Int, e.Y)
		return bt.Byte
	case types.KindMap:
		bc.wantType(indexType, t.Key, e.Y)
		// Absent keys surface as none: a map lookup is nullable.
		if wrapped, nerr := bc.c.types.Nullable(t.Elem); nerr == types.NullableOK {
			return wrapped
		}
		return t.Elem
	}
	bc.errorf(diag.TypeNotIndexable, e.Span,
		"type %s cannot be indexed", bc.typeLabel(objType))
	return types.NoTypeID
}

func (bc *bodyChecker) arrayLit(e *ast.Expr, expected types.TypeID) types.TypeID {
	var elemWant types.TypeID
	if t, ok := bc.c.types.Lookup(expected); ok && t.Kind == types.KindArray {
		elemWant = t.Elem
	}
	if len(e.Args) == 0 {
		if elemWant == types.NoTypeID {
			bc.errorf(diag.TypeCannotInfer, e.Span,
				"cannot infer the element type of an empty array literal")
			return types.NoTypeID
		}
		return bc.c.types.Array(elemWant)
	}
	elem := elemWant
	for _, arg := range e.Args {
		at := bc.typeExprExpected(arg, elem)
		if at == types.NoTypeID {
			return types.NoTypeID
		}
		if elem == types.NoTypeID {
			elem = at
		} else if !bc.assignableTo(at, elem) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(arg),
				"array element has type %s, expected %s",
				bc.typeLabel(at), bc.typeLabel(elem))
		}
	}
	return bc.c.types.Array(elem)
}

func (bc *bodyChecker) mapLit(e *ast.Expr, expected types.TypeID) types.TypeID {
	var keyWant, valWant types.TypeID
	if t, ok := bc.c.types.Lookup(expected); ok && t.Kind == types.KindMap {
		keyWant, valWant = t.Key, t.Elem
	}
	if len(e.Args) == 0 {
		if keyWant == types.NoTypeID {
			bc.errorf(diag.TypeCannotInfer, e.Span,
				"cannot infer key and value types of an empty map literal")
			return types.NoTypeID
		}
		return bc.c.types.Map(keyWant, valWant)
	}
	key, val := keyWant, valWant
	for i := 0; i+1 < len(e.Args); i += 2 {
		kt := bc.typeExprExpected(e.Args[i], key)
		vt := bc.typeExprExpected(e.Args[i+1], val)
		if kt == types.NoTypeID || vt == types.NoTypeID {
			return types.NoTypeID
		}
		if key == types.NoTypeID {
			key, val = kt, vt
			if ht, ok := bc.c.types.Lookup(key); ok && !ht.Hashable() && ht.Kind != types.KindParam {
				bc.errorf(diag.TypeNotHashable, bc.exprSpan(e.Args[i]),
					"map key type %s is not hashable", bc.typeLabel(key))
				return types.NoTypeID
			}
			continue
		}
		if !bc.assignableTo(kt, key) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(e.Args[i]),
				"map key has type %s, expected %s", bc.typeLabel(kt), bc.typeLabel(key))
		}
		if !bc.assignableTo(vt, val) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(e.Args[i+1]),
				"map value has type %s, expected %s", bc.typeLabel(vt), bc.typeLabel(val))
		}
	}
	return bc.c.types.Map(key, val)
}

func (bc *bodyChecker) setLit(e *ast.Expr, expected types.TypeID) types.TypeID {
	var elemWant types.TypeID
	if t, ok := bc.c.types.Lookup(expected); ok && t.Kind == types.KindSet {
		elemWant = t.Elem
	}
	if len(e.Args) == 0 {
		if elemWant == types.NoTypeID {
			bc.errorf(diag.TypeCannotInfer, e.Span,
				"cannot infer the element type of an empty set literal")
			return types.NoTypeID
		}
		return bc.c.types.Set(elemWant)
	}
	elem := elemWant
	for _, arg := range e.Args {
		at := bc.typeExprExpected(arg, elem)
		if at == types.NoTypeID {
			return types.NoTypeID
		}
		if elem == types.NoTypeID {
			elem = at
			if ht, ok := bc.c.types.Lookup(elem); ok && !ht.Hashable() && ht.Kind != types.KindParam {
				bc.errorf(diag.TypeNotHashable, bc.exprSpan(arg),
					"set element type %s is not hashable", bc.typeLabel(elem))
				return types.NoTypeID
			}
		} else if !bc.assignableTo(at, elem) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(arg),
				"set element has type %s, expected %s",
				bc.typeLabel(at), bc.typeLabel(elem))
		}
	}
	return bc.c.types.Set(elem)
}

func (bc *bodyChecker) structLit(e *ast.Expr, expected types.TypeID) types.TypeID {
	declID, ok := bc.c.table.Lookup(e.Name)
	if !ok {
		bc.errorf(diag.TypeUnresolvedName, e.Span, "unknown type %q", bc.name(e.Name))
		bc.typeFieldValues(e.Fields)
		return types.NoTypeID
	}
	d := bc.c.b.Decl(declID)
	switch d.Kind {
	case ast.DeclClass, ast.DeclApp, ast.DeclStage:
	case ast.DeclError:
		bc.errorf(diag.TypeMismatch, e.Span,
			"error %q is constructed by raise, not by a literal", bc.name(e.Name))
		bc.typeFieldValues(e.Fields)
		return types.NoTypeID
	default:
		bc.errorf(diag.TypeMismatch, e.Span,
			"%s %q cannot be constructed with a literal", d.Kind, bc.name(e.Name))
		bc.typeFieldValues(e.Fields)
		return types.NoTypeID
	}
	bc.c.ensureNotDirectConstruction(e.Name, e.Span)

	args, ok := bc.typeArgsFor(e, d, expected)
	if !ok {
		bc.typeFieldValues(e.Fields)
		return types.NoTypeID
	}
	subst := bc.c.nominalSubst(d, args)
	bc.checkFieldInits(d.Fields, d, subst, e.Fields, e.Span,
		d.Kind.String()+" "+bc.name(e.Name))
	bc.c.recordNominalInstantiations(d, args, e.Span, bc.decl, bc.instDepth)
	return bc.c.types.Named(d.Name, types.NamedClass, args...)
}

// typeArgsFor resolves the type arguments of a generic literal: explicit
// arguments win, otherwise each parameter is inferred by unifying field
// declarations against the initializer values.
func (bc *bodyChecker) typeArgsFor(e *ast.Expr, d *ast.Decl, expected types.TypeID) ([]types.TypeID, bool) {
	if len(d.TypeParams) == 0 {
		if len(e.TypeArgs) > 0 {
			bc.errorf(diag.TypeArityMismatch, e.Span,
				"%s %q takes no type arguments", d.Kind, bc.name(d.Name))
			return nil, false
		}
		return nil, true
	}
	if len(e.TypeArgs) > 0 {
		if len(e.TypeArgs) != len(d.TypeParams) {
			bc.errorf(diag.TypeArityMismatch, e.Span,
				"%s %q expects %d type argument(s), got %d",
				d.Kind, bc.name(d.Name), len(d.TypeParams), len(e.TypeArgs))
			return nil, false
		}
		args := make([]types.TypeID, len(e.TypeArgs))
		for i, ta := range e.TypeArgs {
			args[i] = bc.c.resolveTypeExpr(ta, nil)
			if args[i] == types.NoTypeID {
				return nil, false
			}
		}
		bc.checkBounds(d.TypeParams, args, e.Span)
		return args, true
	}

	// Inference: expected type first, then field initializers.
	subst := make(types.Subst)
	if t, ok := bc.c.types.Lookup(expected); ok && t.Kind == types.KindNamed && t.Name == d.Name {
		bc.c.types.Unify(bc.c.namedSelfType(d, types.NamedClass), expected, subst)
	}
	scope := bc.c.paramScope(d)
	for _, init := range e.Fields {
		var pattern types.TypeID
		for _, f := range d.Fields {
			if f.Name == init.Name {
				pattern = bc.c.resolveTypeExpr(f.Type, scope)
				break
			}
		}
		if pattern == types.NoTypeID {
			continue
		}
		vt := bc.typeExpr(init.Value)
		if vt != types.NoTypeID {
			bc.c.types.Unify(pattern, vt, subst)
		}
	}
	args := make([]types.TypeID, len(d.TypeParams))
	for i, tp := range d.TypeParams {
		bound, ok := subst[tp.Name]
		if !ok {
			bc.errorf(diag.TypeCannotInfer, e.Span,
				"cannot infer type argument %q of %s %q; spell the arguments explicitly",
				bc.name(tp.Name), d.Kind, bc.name(d.Name))
			return nil, false
		}
		args[i] = bound
	}
	bc.checkBounds(d.TypeParams, args, e.Span)
	return args, true
}

func (bc *bodyChecker) enumCtor(e *ast.Expr, expected types.TypeID) types.TypeID {
	declID, ok := bc.c.table.LookupKind(e.Name, ast.DeclEnum)
	if !ok {
		bc.errorf(diag.TypeUnresolvedName, e.Span, "unknown enum %q", bc.name(e.Name))
		bc.typeFieldValues(e.Fields)
		return types.NoTypeID
	}
	d := bc.c.b.Decl(declID)
	var variant *ast.Variant
	for i := range d.Variants {
		if d.Variants[i].Name == e.Sel {
			variant = &d.Variants[i]
			break
		}
	}
	if variant == nil {
		bc.errorf(diag.TypeUnknownVariant, e.Span,
			"enum %q has no variant %q", bc.name(d.Name), bc.name(e.Sel))
		bc.typeFieldValues(e.Fields)
		return types.NoTypeID
	}

	if len(d.TypeParams) == 0 {
		bc.checkFieldInits(variant.Fields, d, nil, e.Fields, e.Span,
			"variant "+bc.name(e.Sel))
		return bc.c.types.Named(d.Name, types.NamedEnum)
	}

	// Generic enum: explicit arguments, then the expected type, then the
	// payload values decide.
	subst := make(types.Subst)
	if len(e.TypeArgs) > 0 {
		if len(e.TypeArgs) != len(d.TypeParams) {
			bc.errorf(diag.TypeArityMismatch, e.Span,
				"enum %q expects %d type argument(s), got %d",
				bc.name(d.Name), len(d.TypeParams), len(e.TypeArgs))
			return types.NoTypeID
		}
		for i, ta := range e.TypeArgs {
			at := bc.c.resolveTypeExpr(ta, nil)
			if at == types.NoTypeID {
				return types.NoTypeID
			}
			subst[d.TypeParams[i].Name] = at
		}
	} else if t, ok := bc.c.types.Lookup(expected); ok && t.Kind == types.KindNamed && t.Name == d.Name {
		bc.c.types.Unify(bc.c.namedSelfType(d, types.NamedEnum), expected, subst)
	}
	scope := bc.c.paramScope(d)
	for _, init := range e.Fields {
		var pattern types.TypeID
		for _, f := range variant.Fields {
			if f.Name == init.Name {
				pattern = bc.c.resolveTypeExpr(f.Type, scope)
				break
			}
		}
		if pattern == types.NoTypeID {
			continue
		}
		vt := bc.typeExpr(init.Value)
		if vt != types.NoTypeID {
			bc.c.types.Unify(pattern, vt, subst)
		}
	}
	args := make([]types.TypeID, len(d.TypeParams))
	for i, tp := range d.TypeParams {
		bound, ok := subst[tp.Name]
		if !ok {
			bc.errorf(diag.TypeCannotInfer, e.Span,
				"cannot infer type argument %q of enum %q", bc.name(tp.Name), bc.name(d.Name))
			return types.NoTypeID
		}
		args[i] = bound
	}
	bc.checkBounds(d.TypeParams, args, e.Span)
	bc.checkFieldInits(variant.Fields, d, subst, e.Fields, e.Span,
		"variant "+bc.name(e.Sel))
	bc.c.recordNominalInstantiations(d, args, e.Span, bc.decl, bc.instDepth)
	return bc.c.types.Named(d.Name, types.NamedEnum, args...)
}

// typeFieldValues walks initializer values for their own errors after the
// target itself failed to resolve.
func (bc *bodyChecker) typeFieldValues(inits []ast.FieldInit) {
	for _, init := range inits {
		bc.typeExpr(init.Value)
	}
}

// checkFieldInits validates one initializer list against a field list:
// every name must exist, appear once, and match its declared type; every
// non-injected field must be covered.
func (bc *bodyChecker) checkFieldInits(fields []ast.Field, owner *ast.Decl, subst types.Subst, inits []ast.FieldInit, span source.Span, what string) {
	var scope typeParamScope
	if owner != nil {
		scope = bc.c.paramScope(owner)
	}
	seen := make(map[source.StringID]bool, len(inits))
	for _, init := range inits {
		if seen[init.Name] {
			bc.errorf(diag.DeclDuplicateField, init.Span,
				"field %q initialized more than once", bc.name(init.Name))
			continue
		}
		seen[init.Name] = true
		var want types.TypeID
		found := false
		for _, f := range fields {
			if f.Name == init.Name {
				want = bc.c.resolveTypeExpr(f.Type, scope)
				if subst != nil {
					want = bc.c.types.Substitute(want, subst)
				}
				found = true
				break
			}
		}
		if !found {
			bc.errorf(diag.TypeUnknownField, init.Span,
				"%s has no field %q", what, bc.name(init.Name))
			bc.typeExpr(init.Value)
			continue
		}
		got := bc.typeExprExpected(init.Value, want)
		if got != types.NoTypeID && want != types.NoTypeID && !bc.assignableTo(got, want) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(init.Value),
				"field %q expects %s, found %s",
				bc.name(init.Name), bc.typeLabel(want), bc.typeLabel(got))
		}
	}
	var missing []string
	for _, f := range fields {
		if !f.Injected && !seen[f.Name] {
			missing = append(missing, bc.name(f.Name))
		}
	}
	if len(missing) > 0 {
		bc.errorf(diag.TypeWrongArgCount, span,
			"%s is missing field(s): %s", what, joinNames(missing))
	}
}

func (bc *bodyChecker) closure(e *ast.Expr) types.TypeID {
	params := make([]types.TypeID, len(e.Params))
	for i, p := range e.Params {
		if !p.Type.IsValid() {
			bc.errorf(diag.TypeCannotInfer, p.Span,
				"closure parameter %q needs an explicit type", bc.name(p.Name))
		}
		params[i] = bc.c.resolveTypeExpr(p.Type, nil)
	}
	result := bc.c.resolveTypeExpr(e.Ret, nil)

	var errNames []source.StringID
	for _, ref := range e.Errors {
		if _, ok := bc.c.table.LookupKind(ref.Name, ast.DeclError); !ok {
			bc.errorf(diag.ObligUnknownError, ref.Span,
				"unknown error %q in closure error set", bc.name(ref.Name))
			continue
		}
		errNames = append(errNames, ref.Name)
	}

	sig := &fnSig{
		Params: params,
		Result: result,
		Errors: errNames,
	}
	ctx := &fnCtx{sig: sig, decl: bc.decl, isClosure: true}
	bc.fnStack = append(bc.fnStack, ctx)
	bc.env.Push(symbols.ScopeClosure)
	for i, p := range e.Params {
		bc.env.DefineParam(p.Name, params[i], p.Mut, p.Span)
	}
	status := bc.stmt(e.Body)
	if result != bc.c.types.Builtins().Void && !bc.c.types.IsNullable(result) && status != termClosed {
		bc.errorf(diag.TypeMissingReturn, e.Span,
			"closure returning %s is missing a return on some path", bc.typeLabel(result))
	}
	bc.reportUnused(bc.env.Pop())
	bc.fnStack = bc.fnStack[:len(bc.fnStack)-1]

	return bc.c.types.Fn(params, result, errNames)
}

func (bc *bodyChecker) cast(e *ast.Expr) types.TypeID {
	from := bc.typeExpr(e.X)
	to := bc.c.resolveTypeExpr(e.Type, nil)
	if from == types.NoTypeID || to == types.NoTypeID {
		return types.NoTypeID
	}
	if from == to {
		return to
	}
	if !bc.c.types.CastAllowed(from, to) {
		bc.errorf(diag.TypeInvalidCast, e.Span,
			"cannot cast %s to %s", bc.typeLabel(from), bc.typeLabel(to))
		return types.NoTypeID
	}
	return to
}

// unwrap handles the force-unwrap postfix: nullable in, inner type out.
// Unwrapping none aborts the enclosing function, so the postfix is only
// allowed where that failure can surface: a fallible signature or a
// nullable result. Inside a closure the closure's signature answers.
func (bc *bodyChecker) unwrap(e *ast.Expr) types.TypeID {
	operand := bc.typeExpr(e.X)
	if operand == types.NoTypeID {
		return types.NoTypeID
	}
	if !bc.c.types.IsNullable(operand) {
		bc.errorf(diag.TypeMismatch, e.Span,
			"cannot unwrap non-nullable %s", bc.typeLabel(operand))
		return operand
	}
	sig := bc.fn().sig
	if bc.contract == nil && !sig.IsFallible() && !bc.c.types.IsNullable(sig.Result) {
		where := "function"
		if bc.fn().isClosure {
			where = "closure"
		}
		bc.errorf(diag.ObligCannotPropagate, e.Span,
			"cannot unwrap %s: the enclosing %s neither returns a nullable nor declares an error set",
			bc.typeLabel(operand), where)
	}
	return bc.c.types.Unwrap(operand)
}

func (bc *bodyChecker) interp(e *ast.Expr) types.TypeID {
	void := bc.c.types.Builtins().Void
	for _, part := range e.Args {
		if bc.typeExpr(part) == void {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(part),
				"cannot interpolate a void expression")
		}
	}
	return bc.c.types.Builtins().String
}

// nominalSubst maps a declaration's generic parameters to concrete argument
// types.
func (c *checker) nominalSubst(d *ast.Decl, args []types.TypeID) types.Subst {
	if len(d.TypeParams) == 0 || len(args) != len(d.TypeParams) {
		return nil
	}
	subst := make(types.Subst, len(args))
	for i, tp := range d.TypeParams {
		subst[tp.Name] = args[i]
	}
	return subst
}

// assignableTo implements the assignment compatibility relation: identity,
// T into T?, none-typed nullable into any nullable, and a class into an
// interface it implements. Nothing numeric converts implicitly.
func (bc *bodyChecker) assignableTo(got, want types.TypeID) bool {
	if got == want || got == types.NoTypeID || want == types.NoTypeID {
		return true
	}
	wt, ok := bc.c.types.Lookup(want)
	if !ok {
		return false
	}
	if wt.Kind == types.KindNullable {
		if got == wt.Elem {
			return true
		}
		return bc.assignableTo(got, wt.Elem)
	}
	if wt.Kind == types.KindInterface {
		gt, okG := bc.c.types.Lookup(got)
		if !okG {
			return false
		}
		switch gt.Kind {
		case types.KindInterface:
			return gt.Name == wt.Name
		case types.KindNamed:
			declID, found := bc.c.table.Lookup(gt.Name)
			if !found {
				return false
			}
			for _, ref := range bc.c.b.Decl(declID).Impls {
				if ref.Name == wt.Name {
					return true
				}
			}
		case types.KindParam:
			for _, bound := range gt.Bounds {
				if bound == wt.Name {
					return true
				}
			}
		}
		return false
	}
	if wt.Kind == types.KindParam {
		// Inside a generic body a parameter accepts only itself; bounds are
		// enforced at instantiation.
		return false
	}
	return false
}

// assignable wraps assignableTo for statement-level checks keyed on a value
// expression.
func (bc *bodyChecker) assignable(got, want types.TypeID, at ast.ExprID) bool {
	return bc.assignableTo(got, want)
}

// requireMutablePlace walks to the root of a place expression and verifies
// it is writable: a mut binding, a mut parameter, or self inside a method
// declared with a mut receiver. Temporaries are not places.
func (bc *bodyChecker) requireMutablePlace(id ast.ExprID, what string) {
	root := bc.placeRoot(id)
	if root == nil {
		return
	}
	if bc.name(root.Name) == "self" {
		sig := bc.outerFn().sig
		if sig.HasSelf && !sig.SelfMut {
			bc.errorf(diag.MutReceiverNotDeclared, root.Span,
				"cannot %s: method does not declare a mut receiver", what)
		}
		return
	}
	if b, crossed, ok := bc.env.Lookup(root.Name); ok {
		if crossed {
			// Captures are by value; writing through one cannot be observed.
			bc.errorf(diag.MutBindingNotDeclared, root.Span,
				"cannot %s through captured binding %q", what, bc.name(root.Name))
			return
		}
		if !b.Mut {
			bc.errorf(diag.MutBindingNotDeclared, root.Span,
				"cannot %s: binding %q is not declared mut", what, bc.name(root.Name))
		}
	}
}

// placeRoot returns the identifier at the base of a field/index chain, or
// nil when the base is a temporary.
func (bc *bodyChecker) placeRoot(id ast.ExprID) *ast.Expr {
	e := bc.c.b.Expr(id)
	for e != nil {
		switch e.Kind {
		case ast.ExprIdent:
			return e
		case ast.ExprField, ast.ExprIndex, ast.ExprUnwrap:
			e = bc.c.b.Expr(e.X)
		default:
			return nil
		}
	}
	return nil
}

func joinNames(names []string) string {
	s := ""
	for i, n := range names {
		if i > 0 {
			s += ", "
		}
		s += n
	}
	return s
}
