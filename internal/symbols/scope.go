package symbols

import (
	"ember/internal/source"
	"ember/internal/types"
)

// ScopeKind enumerates supported scope categories. Closure scopes form a
// capture boundary: lookups crossing one mark the binding captured.
type ScopeKind uint8

const (
	ScopeFunction ScopeKind = iota
	ScopeBlock
	ScopeClosure
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFunction:
		return "function"
	case ScopeClosure:
		return "closure"
	default:
		return "block"
	}
}

// Binding is one expression-level name: a let, parameter, loop variable,
// catch binder or channel. Bindings exist only while their scope is live.
type Binding struct {
	Name     source.StringID
	Type     types.TypeID
	Mut      bool
	Span     source.Span
	Depth    int
	Used     bool
	Captured bool
	IsParam  bool
}

type scope struct {
	kind  ScopeKind
	names map[source.StringID]*Binding
	order []*Binding
}

// Env is the nested lexical environment threaded through a body walk.
// Expression-level names resolve in textual order: a binding is visible only
// after its Define call, so forward references fail naturally.
type Env struct {
	scopes []scope
}

func NewEnv() *Env {
	return &Env{}
}

// Push enters a new scope.
func (e *Env) Push(kind ScopeKind) {
	e.scopes = append(e.scopes, scope{kind: kind, names: make(map[source.StringID]*Binding)})
}

// Pop leaves the innermost scope and returns its bindings in declaration
// order, for unused-binding reporting.
func (e *Env) Pop() []*Binding {
	if len(e.scopes) == 0 {
		return nil
	}
	top := e.scopes[len(e.scopes)-1]
	e.scopes = e.scopes[:len(e.scopes)-1]
	return top.order
}

// Depth returns the current nesting depth.
func (e *Env) Depth() int {
	return len(e.scopes)
}

// Define introduces a binding in the innermost scope. Redefinition shadows
// the earlier binding from this point on.
func (e *Env) Define(name source.StringID, ty types.TypeID, mut bool, span source.Span) *Binding {
	if len(e.scopes) == 0 {
		e.Push(ScopeFunction)
	}
	top := &e.scopes[len(e.scopes)-1]
	b := &Binding{Name: name, Type: ty, Mut: mut, Span: span, Depth: len(e.scopes)}
	top.names[name] = b
	top.order = append(top.order, b)
	return b
}

// DefineParam introduces a parameter binding (exempt from unused warnings).
func (e *Env) DefineParam(name source.StringID, ty types.TypeID, mut bool, span source.Span) *Binding {
	b := e.Define(name, ty, mut, span)
	b.IsParam = true
	return b
}

// Lookup resolves name through the scope chain. crossedClosure reports
// whether the resolution crossed a closure boundary, i.e. the name is a free
// variable of the innermost closure and must be captured by value.
func (e *Env) Lookup(name source.StringID) (b *Binding, crossedClosure bool, ok bool) {
	crossed := false
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if found, exists := e.scopes[i].names[name]; exists {
			return found, crossed, true
		}
		if e.scopes[i].kind == ScopeClosure {
			crossed = true
		}
	}
	return nil, false, false
}

// InClosure reports whether any enclosing scope is a closure body.
func (e *Env) InClosure() bool {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if e.scopes[i].kind == ScopeClosure {
			return true
		}
	}
	return false
}
