package sema

import (
	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/mono"
	"ember/internal/source"
	"ember/internal/symbols"
	"ember/internal/types"
)

// Options configure a semantic pass over one compiled unit.
type Options struct {
	Reporter diag.Reporter
	Types    *types.Interner
	// Imported public declaration headers supplied by module resolution.
	Imported []ast.DeclID
	// InstantiationDepth caps generic specialization chains. Zero selects
	// the default of 32.
	InstantiationDepth int
}

// DispatchTable mirrors one interface implementation: methods in the
// interface's declared order.
type DispatchTable struct {
	Interface ast.DeclID
	Impl      ast.DeclID
	Methods   []ast.DeclID
}

// Result stores the semantic artefacts produced by checking one unit. On a
// clean run it is the annotated program handed to code generation; read-only
// tooling may query it without re-running checks.
type Result struct {
	Types     *types.Interner
	Table     *symbols.Table
	ExprTypes map[ast.ExprID]types.TypeID
	DeclTypes map[ast.DeclID]types.TypeID
	// ErrorSets holds each function's reachable error set computed by the
	// fixed-point pass, sorted by name.
	ErrorSets map[ast.DeclID][]source.StringID
	Dispatch  []DispatchTable
	DI        *DIGraph
	Inst      *mono.InstantiationMap
}

// Check performs the full semantic pass: declaration registration, signature
// resolution, trait conformance, DI graph validation, per-body type checking
// with obligation tracking, contract verification, and the fixed-point
// passes over error sets and generic instantiations.
func Check(b *ast.Builder, opts Options) *Result {
	res := &Result{
		ExprTypes: make(map[ast.ExprID]types.TypeID),
		DeclTypes: make(map[ast.DeclID]types.TypeID),
		ErrorSets: make(map[ast.DeclID][]source.StringID),
		Inst:      mono.NewInstantiationMap(),
	}
	if opts.Types != nil {
		res.Types = opts.Types
	} else {
		res.Types = types.NewInterner(b.Strings)
	}
	res.Table = symbols.NewTable(b)

	depth := opts.InstantiationDepth
	if depth <= 0 {
		depth = 32
	}
	c := &checker{
		b:          b,
		reporter:   opts.Reporter,
		types:      res.Types,
		table:      res.Table,
		res:        res,
		sigs:       make(map[ast.DeclID]*fnSig),
		broken:     make(map[ast.DeclID]bool),
		raises:     make(map[ast.DeclID]map[source.StringID]bool),
		propEdges:  make(map[ast.DeclID]map[ast.DeclID]bool),
		depthLimit: depth,
	}

	for _, id := range opts.Imported {
		res.Table.RegisterImported(id)
	}

	c.flattenStages()
	c.declare()     // pass 1: headers into the shared namespace
	c.signatures()  // resolve types in all signatures and member lists
	c.checkTraits() // conformance + dispatch tables + Liskov
	c.buildDIGraph()
	c.walkBodies() // pass 2: per-function body checks
	c.checkInstantiations()
	c.inferErrorSets()
	return res
}

// checker carries the per-unit context threaded through every pass. There is
// no ambient shared state: one checker per compiled unit.
type checker struct {
	b        *ast.Builder
	reporter diag.Reporter
	types    *types.Interner
	table    *symbols.Table
	res      *Result

	sigs map[ast.DeclID]*fnSig
	// broken marks declarations whose earlier analysis failed; deeper
	// analysis is skipped to avoid cascading diagnostics, siblings continue.
	broken map[ast.DeclID]bool

	// Call-graph facts collected during the body walk and consumed by the
	// error-set fixed point.
	raises    map[ast.DeclID]map[source.StringID]bool
	propEdges map[ast.DeclID]map[ast.DeclID]bool

	// Generic specialization worklist and captured per-tuple failures.
	instQueue  []instWork
	instDiags  map[*mono.Entry][]diag.Diagnostic
	depthLimit int
}

// fnSig is a resolved function/method signature.
type fnSig struct {
	Decl     ast.DeclID
	Params   []types.TypeID // excludes self
	ParamMut []bool
	Result   types.TypeID // nullable-wrapped when declared so
	Errors   []source.StringID
	HasSelf  bool
	SelfMut  bool
	Owner    ast.DeclID // owning class/interface for methods
	Generic  bool
}

// IsFallible reports whether the signature declares a non-empty error set.
func (s *fnSig) IsFallible() bool {
	return len(s.Errors) > 0
}

// declaresError reports whether name is in the declared error set.
func (s *fnSig) declaresError(name source.StringID) bool {
	for _, e := range s.Errors {
		if e == name {
			return true
		}
	}
	return false
}

func (c *checker) errorf(code diag.Code, span source.Span, format string, args ...any) {
	diag.Errorf(c.reporter, code, span, format, args...)
}

func (c *checker) warnf(code diag.Code, span source.Span, format string, args ...any) {
	diag.Warnf(c.reporter, code, span, format, args...)
}

func (c *checker) name(id source.StringID) string {
	return c.b.Name(id)
}

func (c *checker) typeLabel(id types.TypeID) string {
	return c.types.String(id)
}
