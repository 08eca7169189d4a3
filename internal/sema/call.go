package sema

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// callInfo records what a call expression raises and, when statically known,
// which declaration it targets. Consumed by the enclosing catch, propagate
// or spawn wrapper and by the unhandled-obligation check.
type callInfo struct {
	Errors []source.StringID
	Target ast.DeclID // NoDeclID for fn-typed values and concurrency methods
}

func (bc *bodyChecker) noteCall(id ast.ExprID, errs []source.StringID, target ast.DeclID) {
	if len(errs) == 0 {
		return
	}
	if bc.calls == nil {
		bc.calls = make(map[ast.ExprID]callInfo)
	}
	bc.calls[id] = callInfo{Errors: errs, Target: target}
	if !bc.handled[id] {
		bc.errorf(diag.ObligUnhandledError, bc.exprSpan(id),
			"call may raise %s; handle it with catch, forward it with ?, or spawn it",
			bc.errorSetLabel(errs))
	}
}

func (bc *bodyChecker) callErrors(id ast.ExprID) ([]source.StringID, ast.DeclID) {
	info, ok := bc.calls[id]
	if !ok {
		return nil, ast.NoDeclID
	}
	return info.Errors, info.Target
}

func (bc *bodyChecker) errorSetLabel(errs []source.StringID) string {
	names := make([]string, len(errs))
	for i, e := range errs {
		names[i] = bc.name(e)
	}
	return "{" + joinNames(names) + "}"
}

// call types a free-function call: builtins, declared functions (generic or
// not) and fn-typed bindings, in that resolution order. Bindings shadow
// declarations, matching ident resolution.
func (bc *bodyChecker) call(id ast.ExprID, e *ast.Expr) types.TypeID {
	if b, crossed, ok := bc.env.Lookup(e.Name); ok {
		b.Used = true
		if crossed {
			bc.capture(b)
		}
		return bc.callFnValue(id, e, b.Type)
	}
	if t, isOld := bc.contractOldCall(e); isOld {
		return t
	}
	if t, handledBuiltin := bc.builtinCall(e); handledBuiltin {
		return t
	}

	declID, ok := bc.c.table.LookupKind(e.Name, ast.DeclFn)
	if !ok {
		if _, isDecl := bc.c.table.Lookup(e.Name); isDecl {
			bc.errorf(diag.TypeNotCallable, e.Span, "%q is not a function", bc.name(e.Name))
		} else {
			bc.errorf(diag.TypeUnresolvedName, e.Span, "undefined function %q", bc.name(e.Name))
		}
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	sig := bc.c.sigs[declID]
	if sig == nil || bc.c.broken[declID] {
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	if sig.HasSelf {
		bc.errorf(diag.TypeNotCallable, e.Span,
			"method %q needs a receiver", bc.name(e.Name))
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	return bc.callSig(id, e, declID, sig, nil)
}

// callSig checks arguments against a resolved signature, running generic
// inference first when the signature has type parameters. recvSubst carries
// the receiver's type arguments for methods on generic owners.
func (bc *bodyChecker) callSig(id ast.ExprID, e *ast.Expr, declID ast.DeclID, sig *fnSig, recvSubst types.Subst) types.TypeID {
	d := bc.c.b.Decl(declID)
	params := sig.Params
	result := sig.Result

	if recvSubst != nil {
		params = bc.substituteAll(params, recvSubst)
		result = bc.c.types.Substitute(result, recvSubst)
	}

	if sig.Generic {
		subst, argTypes, ok := bc.inferTypeArgs(e, d, params)
		if !ok {
			return types.NoTypeID
		}
		params = bc.substituteAll(params, subst)
		result = bc.c.types.Substitute(result, subst)
		args := make([]types.TypeID, len(d.TypeParams))
		for i, tp := range d.TypeParams {
			args[i] = subst[tp.Name]
		}
		bc.checkBounds(d.TypeParams, args, e.Span)
		if argTypes == nil {
			bc.checkArgs(e, d, params, sig)
		} else {
			bc.checkArgsTyped(e, d, params, sig, argTypes)
		}
		bc.c.recordInstantiation(declID, args, e.Span, bc.decl, bc.instDepth)
	} else {
		if len(e.TypeArgs) > 0 {
			bc.errorf(diag.TypeArityMismatch, e.Span,
				"%q takes no type arguments", bc.name(d.Name))
		}
		bc.checkArgs(e, d, params, sig)
	}

	bc.noteCall(id, sig.Errors, declID)
	return result
}

func (bc *bodyChecker) substituteAll(ids []types.TypeID, subst types.Subst) []types.TypeID {
	out := make([]types.TypeID, len(ids))
	for i, t := range ids {
		out[i] = bc.c.types.Substitute(t, subst)
	}
	return out
}

// inferTypeArgs binds a generic signature's parameters from explicit type
// arguments or by unifying parameter patterns against argument types. A
// parameter that stays unbound fails at this call site. When inference typed
// the arguments it returns their types so the caller does not re-walk them.
func (bc *bodyChecker) inferTypeArgs(e *ast.Expr, d *ast.Decl, params []types.TypeID) (types.Subst, []types.TypeID, bool) {
	subst := make(types.Subst, len(d.TypeParams))
	if len(e.TypeArgs) > 0 {
		if len(e.TypeArgs) != len(d.TypeParams) {
			bc.errorf(diag.TypeArityMismatch, e.Span,
				"%q expects %d type argument(s), got %d",
				bc.name(d.Name), len(d.TypeParams), len(e.TypeArgs))
			bc.typeArgValues(e.Args)
			return nil, nil, false
		}
		for i, ta := range e.TypeArgs {
			at := bc.c.resolveTypeExpr(ta, nil)
			if at == types.NoTypeID {
				bc.typeArgValues(e.Args)
				return nil, nil, false
			}
			subst[d.TypeParams[i].Name] = at
		}
		return subst, nil, true
	}
	argTypes := make([]types.TypeID, len(e.Args))
	failed := false
	for i, arg := range e.Args {
		argTypes[i] = bc.typeExpr(arg)
		if failed || i >= len(params) || argTypes[i] == types.NoTypeID {
			continue
		}
		if !bc.c.types.Unify(params[i], argTypes[i], subst) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(arg),
				"argument type %s does not fit parameter type %s",
				bc.typeLabel(argTypes[i]), bc.typeLabel(params[i]))
			failed = true
		}
	}
	if failed {
		return nil, nil, false
	}
	for _, tp := range d.TypeParams {
		if _, ok := subst[tp.Name]; !ok {
			bc.errorf(diag.TypeCannotInfer, e.Span,
				"cannot infer type argument %q of %q; spell the arguments explicitly",
				bc.name(tp.Name), bc.name(d.Name))
			return nil, nil, false
		}
	}
	return subst, argTypes, true
}

// checkArgsTyped validates already-typed arguments against substituted
// parameter types without re-walking the argument expressions.
func (bc *bodyChecker) checkArgsTyped(e *ast.Expr, d *ast.Decl, params []types.TypeID, sig *fnSig, argTypes []types.TypeID) {
	if len(e.Args) != len(params) {
		bc.errorf(diag.TypeWrongArgCount, e.Span,
			"%q expects %d argument(s), got %d", bc.name(d.Name), len(params), len(e.Args))
	}
	for i, arg := range e.Args {
		if i >= len(params) || i >= len(argTypes) {
			continue
		}
		at := argTypes[i]
		if at != types.NoTypeID && params[i] != types.NoTypeID && !bc.assignableTo(at, params[i]) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(arg),
				"argument %d has type %s, expected %s",
				i+1, bc.typeLabel(at), bc.typeLabel(params[i]))
		}
		if i < len(sig.ParamMut) && sig.ParamMut[i] {
			bc.requireMutablePlace(arg, "pass to mut parameter")
		}
	}
}

// checkArgs validates argument count, types and mut discipline. Inferred
// generic calls re-check against the substituted parameter types, so a
// conflicting later use reports at its own argument.
func (bc *bodyChecker) checkArgs(e *ast.Expr, d *ast.Decl, params []types.TypeID, sig *fnSig) {
	if len(e.Args) != len(params) {
		bc.errorf(diag.TypeWrongArgCount, e.Span,
			"%q expects %d argument(s), got %d", bc.name(d.Name), len(params), len(e.Args))
	}
	for i, arg := range e.Args {
		if i >= len(params) {
			bc.typeExpr(arg)
			continue
		}
		at := bc.typeExprExpected(arg, params[i])
		if at != types.NoTypeID && params[i] != types.NoTypeID && !bc.assignableTo(at, params[i]) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(arg),
				"argument %d has type %s, expected %s",
				i+1, bc.typeLabel(at), bc.typeLabel(params[i]))
		}
		if i < len(sig.ParamMut) && sig.ParamMut[i] {
			bc.requireMutablePlace(arg, "pass to mut parameter")
		}
	}
}

// callFnValue calls through a fn-typed binding or field. The callee body is
// unknown, so a forwarded error set counts as directly raised for the
// reachable-set analysis.
func (bc *bodyChecker) callFnValue(id ast.ExprID, e *ast.Expr, fnType types.TypeID) types.TypeID {
	t, ok := bc.c.types.Lookup(fnType)
	if !ok || t.Kind != types.KindFn {
		bc.errorf(diag.TypeNotCallable, e.Span,
			"%q has type %s and is not callable", bc.name(e.Name), bc.typeLabel(fnType))
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	if len(e.TypeArgs) > 0 {
		bc.errorf(diag.TypeArityMismatch, e.Span,
			"a function value takes no type arguments")
	}
	if len(e.Args) != len(t.Args) {
		bc.errorf(diag.TypeWrongArgCount, e.Span,
			"%q expects %d argument(s), got %d", bc.name(e.Name), len(t.Args), len(e.Args))
	}
	for i, arg := range e.Args {
		if i >= len(t.Args) {
			bc.typeExpr(arg)
			continue
		}
		at := bc.typeExprExpected(arg, t.Args[i])
		if at != types.NoTypeID && !bc.assignableTo(at, t.Args[i]) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(arg),
				"argument %d has type %s, expected %s",
				i+1, bc.typeLabel(at), bc.typeLabel(t.Args[i]))
		}
	}
	bc.noteCall(id, t.Errors, ast.NoDeclID)
	return t.Result
}

// builtinCall handles the intrinsic functions. Returns false when the name
// is not an intrinsic.
func (bc *bodyChecker) builtinCall(e *ast.Expr) (types.TypeID, bool) {
	bt := bc.c.types.Builtins()
	switch bc.name(e.Name) {
	case "print", "println":
		for _, arg := range e.Args {
			if bc.typeExpr(arg) == bt.Void {
				bc.errorf(diag.TypeMismatch, bc.exprSpan(arg), "cannot print a void expression")
			}
		}
		return bt.Void, true
	case "len":
		if len(e.Args) != 1 {
			bc.errorf(diag.TypeWrongArgCount, e.Span, "len expects 1 argument, got %d", len(e.Args))
			bc.typeArgValues(e.Args)
			return bt.Int, true
		}
		at := bc.typeExpr(e.Args[0])
		if t, ok := bc.c.types.Lookup(at); ok {
			switch t.Kind {
			case types.KindArray, types.KindMap, types.KindSet, types.KindString:
			default:
				bc.errorf(diag.TypeMismatch, bc.exprSpan(e.Args[0]),
					"len requires an array, map, set or string, found %s", bc.typeLabel(at))
			}
		}
		return bt.Int, true
	case "assert":
		if len(e.Args) < 1 || len(e.Args) > 2 {
			bc.errorf(diag.TypeWrongArgCount, e.Span, "assert expects 1 or 2 arguments, got %d", len(e.Args))
			bc.typeArgValues(e.Args)
			return bt.Void, true
		}
		bc.wantType(bc.typeExpr(e.Args[0]), bt.Bool, e.Args[0])
		if len(e.Args) == 2 {
			bc.wantType(bc.typeExpr(e.Args[1]), bt.String, e.Args[1])
		}
		return bt.Void, true
	case "panic":
		if len(e.Args) != 1 {
			bc.errorf(diag.TypeWrongArgCount, e.Span, "panic expects 1 argument, got %d", len(e.Args))
		}
		for _, arg := range e.Args {
			bc.wantType(bc.typeExpr(arg), bt.String, arg)
		}
		return bt.Void, true
	}
	return types.NoTypeID, false
}

func (bc *bodyChecker) typeArgValues(args []ast.ExprID) {
	for _, arg := range args {
		bc.typeExpr(arg)
	}
}

// methodCall types X.Sel(args): intrinsic methods of the concurrency and
// container types first, then declared methods of nominal, interface and
// error types.
func (bc *bodyChecker) methodCall(id ast.ExprID, e *ast.Expr) types.TypeID {
	recvType := bc.typeExpr(e.X)
	if recvType == types.NoTypeID {
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	if bc.c.types.IsNullable(recvType) {
		bc.errorf(diag.TypeMismatch, e.Span,
			"cannot call %q on nullable %s; unwrap it first",
			bc.name(e.Sel), bc.typeLabel(recvType))
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	t, ok := bc.c.types.Lookup(recvType)
	if !ok {
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}

	switch t.Kind {
	case types.KindTask:
		return bc.taskMethod(id, e, t)
	case types.KindChan:
		return bc.chanMethod(id, e, t)
	case types.KindArray, types.KindMap, types.KindSet:
		return bc.containerMethod(e, t, recvType)
	case types.KindNamed:
		return bc.namedMethod(id, e, t, recvType)
	case types.KindInterface:
		return bc.interfaceMethod(id, e, t)
	}
	bc.errorf(diag.TypeUnknownMethod, e.Span,
		"type %s has no method %q", bc.typeLabel(recvType), bc.name(e.Sel))
	bc.typeArgValues(e.Args)
	return types.NoTypeID
}

// taskMethod implements the Task intrinsics. get() raises the spawned error
// set plus cancellation; the target declaration is unknown at retrieval, so
// a forwarding wrapper counts the set as directly raised.
func (bc *bodyChecker) taskMethod(id ast.ExprID, e *ast.Expr, t types.Type) types.TypeID {
	switch bc.name(e.Sel) {
	case "get":
		bc.requireNoArgs(e)
		errs := append([]source.StringID(nil), t.Errors...)
		errs = appendName(errs, bc.c.b.Intern("TaskCancelled"))
		bc.noteCall(id, errs, ast.NoDeclID)
		return t.Elem
	case "cancel":
		bc.requireNoArgs(e)
		return bc.c.types.Builtins().Void
	case "done":
		bc.requireNoArgs(e)
		return bc.c.types.Builtins().Bool
	}
	bc.errorf(diag.TypeUnknownMethod, e.Span, "Task has no method %q", bc.name(e.Sel))
	bc.typeArgValues(e.Args)
	return types.NoTypeID
}

func (bc *bodyChecker) chanMethod(id ast.ExprID, e *ast.Expr, t types.Type) types.TypeID {
	closedErr := []source.StringID{bc.c.b.Intern("ChannelClosed")}
	switch bc.name(e.Sel) {
	case "send":
		if len(e.Args) != 1 {
			bc.errorf(diag.TypeWrongArgCount, e.Span, "send expects 1 argument, got %d", len(e.Args))
			bc.typeArgValues(e.Args)
		} else {
			at := bc.typeExprExpected(e.Args[0], t.Elem)
			if at != types.NoTypeID && !bc.assignableTo(at, t.Elem) {
				bc.errorf(diag.TypeMismatch, bc.exprSpan(e.Args[0]),
					"cannot send %s into %s", bc.typeLabel(at), bc.c.types.String(bc.c.types.Chan(t.Elem)))
			}
		}
		bc.noteCall(id, closedErr, ast.NoDeclID)
		return bc.c.types.Builtins().Void
	case "recv":
		bc.requireNoArgs(e)
		bc.noteCall(id, closedErr, ast.NoDeclID)
		return t.Elem
	case "close":
		bc.requireNoArgs(e)
		return bc.c.types.Builtins().Void
	}
	bc.errorf(diag.TypeUnknownMethod, e.Span, "Chan has no method %q", bc.name(e.Sel))
	bc.typeArgValues(e.Args)
	return types.NoTypeID
}

func (bc *bodyChecker) containerMethod(e *ast.Expr, t types.Type, recvType types.TypeID) types.TypeID {
	bt := bc.c.types.Builtins()
	name := bc.name(e.Sel)
	oneArg := func(want types.TypeID) bool {
		if len(e.Args) != 1 {
			bc.errorf(diag.TypeWrongArgCount, e.Span, "%s expects 1 argument, got %d", name, len(e.Args))
			bc.typeArgValues(e.Args)
			return false
		}
		at := bc.typeExprExpected(e.Args[0], want)
		if at != types.NoTypeID && !bc.assignableTo(at, want) {
			bc.errorf(diag.TypeMismatch, bc.exprSpan(e.Args[0]),
				"%s expects %s, found %s", name, bc.typeLabel(want), bc.typeLabel(at))
		}
		return true
	}
	switch t.Kind {
	case types.KindArray:
		switch name {
		case "push":
			bc.requireMutablePlace(e.X, "push into array")
			oneArg(t.Elem)
			return bt.Void
		case "pop":
			bc.requireMutablePlace(e.X, "pop from array")
			bc.requireNoArgs(e)
			if wrapped, nerr := bc.c.types.Nullable(t.Elem); nerr == types.NullableOK {
				return wrapped
			}
			return t.Elem
		}
	case types.KindMap:
		switch name {
		case "remove":
			bc.requireMutablePlace(e.X, "remove from map")
			oneArg(t.Key)
			return bt.Void
		case "contains":
			oneArg(t.Key)
			return bt.Bool
		}
	case types.KindSet:
		switch name {
		case "add":
			bc.requireMutablePlace(e.X, "add to set")
			oneArg(t.Elem)
			return bt.Void
		case "remove":
			bc.requireMutablePlace(e.X, "remove from set")
			oneArg(t.Elem)
			return bt.Void
		case "contains":
			oneArg(t.Elem)
			return bt.Bool
		}
	}
	bc.errorf(diag.TypeUnknownMethod, e.Span,
		"type %s has no method %q", bc.typeLabel(recvType), name)
	bc.typeArgValues(e.Args)
	return types.NoTypeID
}

func (bc *bodyChecker) namedMethod(id ast.ExprID, e *ast.Expr, t types.Type, recvType types.TypeID) types.TypeID {
	declID, ok := bc.c.table.Lookup(t.Name)
	if !ok {
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	d := bc.c.b.Decl(declID)
	mid, found := bc.c.methodByName(d, e.Sel)
	if !found {
		bc.errorf(diag.TypeUnknownMethod, e.Span,
			"%s %q has no method %q", d.Kind, bc.name(d.Name), bc.name(e.Sel))
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	msig := bc.c.sigs[mid]
	if msig == nil || bc.c.broken[mid] {
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	if msig.SelfMut {
		bc.requireMutablePlace(e.X, "call mutating method "+bc.name(e.Sel))
	}
	return bc.callSig(id, e, mid, msig, bc.c.nominalSubst(d, t.Args))
}

func (bc *bodyChecker) interfaceMethod(id ast.ExprID, e *ast.Expr, t types.Type) types.TypeID {
	ifaceID, ok := bc.c.table.LookupKind(t.Name, ast.DeclInterface)
	if !ok {
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	iface := bc.c.b.Decl(ifaceID)
	mid, found := bc.c.methodByName(iface, e.Sel)
	if !found {
		bc.errorf(diag.TypeUnknownMethod, e.Span,
			"interface %q has no method %q", bc.name(iface.Name), bc.name(e.Sel))
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	msig := bc.c.sigs[mid]
	if msig == nil {
		bc.typeArgValues(e.Args)
		return types.NoTypeID
	}
	return bc.callSig(id, e, mid, msig, nil)
}

func (bc *bodyChecker) requireNoArgs(e *ast.Expr) {
	if len(e.Args) > 0 {
		bc.errorf(diag.TypeWrongArgCount, e.Span,
			"%s takes no arguments, got %d", bc.name(e.Sel), len(e.Args))
		bc.typeArgValues(e.Args)
	}
}

// checkBounds verifies each concrete type argument against its parameter's
// interface bounds.
func (bc *bodyChecker) checkBounds(tparams []ast.TypeParam, args []types.TypeID, span source.Span) {
	for i, tp := range tparams {
		if i >= len(args) || len(tp.Bounds) == 0 {
			continue
		}
		for _, bound := range tp.Bounds {
			if !bc.satisfiesBound(args[i], bound) {
				bc.errorf(diag.TypeBoundNotSat, span,
					"type %s does not implement interface %q required by parameter %q",
					bc.typeLabel(args[i]), bc.name(bound), bc.name(tp.Name))
			}
		}
	}
}

func (bc *bodyChecker) satisfiesBound(arg types.TypeID, bound source.StringID) bool {
	t, ok := bc.c.types.Lookup(arg)
	if !ok {
		return false
	}
	switch t.Kind {
	case types.KindInterface:
		return t.Name == bound
	case types.KindParam:
		for _, b := range t.Bounds {
			if b == bound {
				return true
			}
		}
		return false
	case types.KindNamed:
		declID, found := bc.c.table.Lookup(t.Name)
		if !found {
			return false
		}
		for _, ref := range bc.c.b.Decl(declID).Impls {
			if ref.Name == bound {
				return true
			}
		}
	}
	return false
}

// --- fallibility wrappers ---------------------------------------------------

// markHandled flags the wrapped expression as obligation-resolved before it
// is typed, and rejects stacking two handlers on one call.
func (bc *bodyChecker) markHandled(x ast.ExprID, span source.Span) {
	inner := bc.c.b.Expr(x)
	if inner != nil && (inner.Kind == ast.ExprCatch || inner.Kind == ast.ExprPropagate) {
		bc.errorf(diag.ObligConflictingHandlers, span,
			"the call's errors are already handled; remove one handler")
	}
	bc.handled[x] = true
}

func (bc *bodyChecker) catchExpr(e *ast.Expr) types.TypeID {
	bc.markHandled(e.X, e.Span)
	value := bc.typeExpr(e.X)
	errs, _ := bc.callErrors(e.X)
	if len(errs) == 0 {
		bc.warnf(diag.WarnUselessCatch, e.Span, "catch on an expression that cannot raise")
	}

	if e.Body.IsValid() {
		// Handler form: `expr catch name { ... }`. The handler runs on the
		// error path and must leave it, so the success value is the value of
		// the whole expression.
		bc.env.Push(symbols.ScopeBlock)
		if e.Sel != source.NoStringID {
			bc.env.DefineParam(e.Sel, bc.errorBinderType(errs), false, e.Span)
		}
		status := bc.stmt(e.Body)
		bc.reportUnused(bc.env.Pop())
		if value != bc.c.types.Builtins().Void && status != termClosed {
			bc.errorf(diag.TypeMismatch, e.Span,
				"catch handler must return or raise when the result is used")
		}
		return value
	}

	// Default form: `expr catch => fallback`.
	fallback := bc.typeExprExpected(e.Y, value)
	if value != types.NoTypeID && fallback != types.NoTypeID && !bc.assignableTo(fallback, value) {
		bc.errorf(diag.TypeMismatch, bc.exprSpan(e.Y),
			"catch fallback has type %s, expected %s",
			bc.typeLabel(fallback), bc.typeLabel(value))
	}
	return value
}

// errorBinderType types a catch binder: the concrete error declaration when
// the set is a singleton, otherwise the opaque error value type.
func (bc *bodyChecker) errorBinderType(errs []source.StringID) types.TypeID {
	if len(errs) == 1 {
		return bc.c.types.ErrorDecl(errs[0])
	}
	return bc.c.types.ErrorDecl(bc.c.b.Intern("error"))
}

func (bc *bodyChecker) propagate(e *ast.Expr) types.TypeID {
	bc.markHandled(e.X, e.Span)
	value := bc.typeExpr(e.X)
	errs, target := bc.callErrors(e.X)
	if len(errs) == 0 {
		bc.warnf(diag.WarnUselessCatch, e.Span, "? on an expression that cannot raise")
		return value
	}

	cur := bc.fn()
	if !cur.sig.IsFallible() {
		where := "function"
		if cur.isClosure {
			where = "closure"
		}
		bc.errorf(diag.ObligCannotPropagate, e.Span,
			"cannot forward %s: the enclosing %s declares no error set",
			bc.errorSetLabel(errs), where)
		return value
	}
	for _, err := range errs {
		if !cur.sig.declaresError(err) {
			bc.errorf(diag.TypeMismatch, e.Span,
				"error %q is not in the declared error set of the enclosing function",
				bc.name(err))
		}
	}

	if !cur.isClosure && bc.instDepth == 0 {
		if target != ast.NoDeclID {
			bc.c.recordPropEdge(bc.outerFn().decl, target)
		} else {
			// Dynamic callee: the declared set counts as directly raised.
			for _, err := range errs {
				bc.c.recordRaise(bc.outerFn().decl, err)
			}
		}
	}
	return value
}

func (bc *bodyChecker) spawn(e *ast.Expr) types.TypeID {
	inner := bc.c.b.Expr(e.X)
	if inner == nil || (inner.Kind != ast.ExprCall && inner.Kind != ast.ExprMethodCall) {
		bc.errorf(diag.TypeMismatch, e.Span, "spawn requires a function or method call")
		bc.typeExpr(e.X)
		return types.NoTypeID
	}
	// Spawning defers the callee's obligations to task.get().
	bc.handled[e.X] = true
	result := bc.typeExpr(e.X)
	if result == types.NoTypeID {
		return types.NoTypeID
	}
	errs, _ := bc.callErrors(e.X)
	if len(errs) == 0 {
		return bc.c.types.Task(result)
	}
	return bc.c.types.TaskFallible(result, errs)
}

// selectStmt checks each communication arm against its channel's element
// type. Receive binders are scoped to their arm.
func (bc *bodyChecker) selectStmt(s *ast.Stmt) {
	for _, arm := range s.Comms {
		chType := bc.typeExpr(arm.Chan)
		t, ok := bc.c.types.Lookup(chType)
		if !ok || t.Kind != types.KindChan {
			if chType != types.NoTypeID {
				bc.errorf(diag.TypeMismatch, bc.exprSpan(arm.Chan),
					"select arm requires a channel, found %s", bc.typeLabel(chType))
			}
			bc.scoped(symbols.ScopeBlock, arm.Body)
			continue
		}
		bc.env.Push(symbols.ScopeBlock)
		switch arm.Dir {
		case ast.SelectRecv:
			if arm.Bind != source.NoStringID {
				bc.env.Define(arm.Bind, t.Elem, false, arm.Span)
			}
		case ast.SelectSend:
			vt := bc.typeExprExpected(arm.Value, t.Elem)
			if vt != types.NoTypeID && !bc.assignableTo(vt, t.Elem) {
				bc.errorf(diag.TypeMismatch, bc.exprSpan(arm.Value),
					"cannot send %s into %s", bc.typeLabel(vt), bc.typeLabel(chType))
			}
		}
		bc.stmt(arm.Body)
		bc.reportUnused(bc.env.Pop())
	}
	if s.Else.IsValid() {
		bc.scoped(symbols.ScopeBlock, s.Else)
	}
}

func appendName(names []source.StringID, name source.StringID) []source.StringID {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}

// recordRaise notes a directly raised error for the reachable-set pass.
func (c *checker) recordRaise(decl ast.DeclID, err source.StringID) {
	if decl == ast.NoDeclID {
		return
	}
	set := c.raises[decl]
	if set == nil {
		set = make(map[source.StringID]bool)
		c.raises[decl] = set
	}
	set[err] = true
}

// recordPropEdge notes that from forwards callee's declared errors.
func (c *checker) recordPropEdge(from, callee ast.DeclID) {
	if from == ast.NoDeclID || callee == ast.NoDeclID {
		return
	}
	set := c.propEdges[from]
	if set == nil {
		set = make(map[ast.DeclID]bool)
		c.propEdges[from] = set
	}
	set[callee] = true
}
