package sema

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// walkBodies runs pass 2 over every non-generic body in declaration order.
// Generic bodies are checked per instantiation (checkInstantiations), so a
// body valid for one argument tuple and invalid for another reports only
// against the failing call site.
func (c *checker) walkBodies() {
	for _, id := range c.table.Decls() {
		if c.broken[id] {
			continue
		}
		d := c.b.Decl(id)
		switch d.Kind {
		case ast.DeclFn:
			if len(d.TypeParams) > 0 {
				continue
			}
			c.checkFnBody(id, types.NoTypeID, 0, c.reporter)
		case ast.DeclClass, ast.DeclApp, ast.DeclStage, ast.DeclInterface:
			if len(d.TypeParams) > 0 {
				continue
			}
			selfType := c.res.DeclTypes[id]
			c.checkClassContracts(id, d, selfType)
			for _, mid := range d.Methods {
				if c.broken[mid] {
					continue
				}
				m := c.b.Decl(mid)
				if m.Body.IsValid() {
					c.checkFnBody(mid, selfType, 0, c.reporter)
				} else {
					c.checkContracts(mid, selfType, c.reporter)
				}
			}
		}
	}
}

// fnCtx is one frame of the current-function stack. Closures push their own
// frame: raise, propagate and unwrap inside a closure answer to the
// closure's signature, not the enclosing function's.
type fnCtx struct {
	sig       *fnSig
	decl      ast.DeclID
	isClosure bool
	captures  []source.StringID
}

// bodyChecker walks one function body. A fresh instance per body keeps all
// state local; nothing leaks across declarations.
type bodyChecker struct {
	c        *checker
	reporter diag.Reporter
	decl     ast.DeclID
	selfType types.TypeID
	env      *symbols.Env
	fnStack  []*fnCtx
	// handled marks fallible call expressions whose obligations are resolved
	// by a directly enclosing catch, propagate or spawn.
	handled map[ast.ExprID]bool
	// calls records what each typed call expression raises, for the wrapper
	// that consumes it.
	calls map[ast.ExprID]callInfo
	// contract is non-nil while a contract clause is typed.
	contract *contractCtx
	// instDepth is the generic specialization chain depth of this body.
	instDepth int
	loopDepth int
}

// checkFnBody type-checks one function or method body.
func (c *checker) checkFnBody(id ast.DeclID, selfType types.TypeID, instDepth int, r diag.Reporter) {
	d := c.b.Decl(id)
	sig := c.sigs[id]
	if sig == nil {
		sig = c.resolveFnSig(id, d.Owner)
		if sig == nil {
			return
		}
	}
	bc := &bodyChecker{
		c:         c,
		reporter:  r,
		decl:      id,
		selfType:  selfType,
		env:       symbols.NewEnv(),
		handled:   make(map[ast.ExprID]bool),
		instDepth: instDepth,
	}
	bc.fnStack = append(bc.fnStack, &fnCtx{sig: sig, decl: id})

	c.checkContractsWith(bc, id, selfType)

	bc.env.Push(symbols.ScopeFunction)
	bc.defineParams(d, sig)
	status := bc.stmt(d.Body)
	if sig.Result != c.types.Builtins().Void && !c.types.IsNullable(sig.Result) && status != termClosed {
		bc.errorf(diag.TypeMissingReturn, d.NameSpan,
			"function %q returning %s is missing a return on some path",
			c.name(d.Name), c.typeLabel(sig.Result))
	}
	bc.reportUnused(bc.env.Pop())
}

func (bc *bodyChecker) defineParams(d *ast.Decl, sig *fnSig) {
	params := d.Params
	if sig.HasSelf {
		selfName := bc.c.b.Intern("self")
		bc.env.DefineParam(selfName, bc.selfType, sig.SelfMut, params[0].Span)
		params = params[1:]
	}
	for i, p := range params {
		var pt types.TypeID
		if i < len(sig.Params) {
			pt = sig.Params[i]
		}
		bc.env.DefineParam(p.Name, pt, p.Mut, p.Span)
	}
}

// fn returns the innermost function context (the closure if inside one).
func (bc *bodyChecker) fn() *fnCtx {
	return bc.fnStack[len(bc.fnStack)-1]
}

// outerFn returns the top-level function being checked.
func (bc *bodyChecker) outerFn() *fnCtx {
	return bc.fnStack[0]
}

func (bc *bodyChecker) errorf(code diag.Code, span source.Span, format string, args ...any) {
	diag.Errorf(bc.reporter, code, span, format, args...)
}

func (bc *bodyChecker) warnf(code diag.Code, span source.Span, format string, args ...any) {
	diag.Warnf(bc.reporter, code, span, format, args...)
}

func (bc *bodyChecker) name(id source.StringID) string {
	return bc.c.b.Name(id)
}

func (bc *bodyChecker) typeLabel(id types.TypeID) string {
	return bc.c.typeLabel(id)
}

// reportUnused warns on locals that were never read. Parameters and
// captured bindings are exempt.
func (bc *bodyChecker) reportUnused(bindings []*symbols.Binding) {
	for _, b := range bindings {
		if b.Used || b.IsParam || b.Captured {
			continue
		}
		bc.warnf(diag.WarnUnused, b.Span, "binding %q is never used", bc.name(b.Name))
	}
}

// recordType memoizes an expression's resolved type.
func (bc *bodyChecker) recordType(id ast.ExprID, t types.TypeID) types.TypeID {
	if bc.instDepth == 0 {
		// Specialization re-checks must not clobber the generic annotations.
		bc.c.res.ExprTypes[id] = t
	} else if _, exists := bc.c.res.ExprTypes[id]; !exists {
		bc.c.res.ExprTypes[id] = t
	}
	return t
}
