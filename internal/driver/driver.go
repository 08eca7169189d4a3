// Package driver runs the checking pipeline: decoding units, ordering
// modules, checking each one and caching clean results.
package driver

import (
	"time"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/project"
	"ember/internal/sema"
)

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes one phase boundary for one unit.
type PhaseEvent struct {
	Unit    string
	Phase   string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events; the UI progress view subscribes here.
type PhaseObserver func(PhaseEvent)

// Options configures a check run.
type Options struct {
	MaxDiagnostics     int
	InstantiationDepth int
	Jobs               int // parallel module checks; 0 = GOMAXPROCS
	Observer           PhaseObserver
	Cache              *DiskCache
}

// UnitResult is the outcome of checking one unit.
type UnitResult struct {
	Path    string // module path
	File    string // source .emt file, empty for in-memory units
	Builder *ast.Builder
	Bag     *diag.Bag
	Sema    *sema.Result
	Broken  bool
	Cached  bool // clean verdict reused from the disk cache

	moduleHash project.Digest
}

// ModuleHash is the aggregate digest of the unit and its dependencies.
func (r *UnitResult) ModuleHash() project.Digest {
	return r.moduleHash
}

// FirstError returns the first error diagnostic in sorted order, or nil.
func (r *UnitResult) FirstError() *diag.Diagnostic {
	if r == nil || r.Bag == nil {
		return nil
	}
	for i, d := range r.Bag.Items() {
		if d.Severity == diag.SevError {
			return &r.Bag.Items()[i]
		}
	}
	return nil
}

// Warnings returns the warning diagnostics in sorted order.
func (r *UnitResult) Warnings() []diag.Diagnostic {
	if r == nil || r.Bag == nil {
		return nil
	}
	var out []diag.Diagnostic
	for _, d := range r.Bag.Items() {
		if d.Severity == diag.SevWarning {
			out = append(out, d)
		}
	}
	return out
}

// CheckUnit checks one decoded unit in isolation. Imported headers, if any,
// must already live in b's arenas.
func CheckUnit(b *ast.Builder, imported []ast.DeclID, opts Options) *UnitResult {
	limit := opts.MaxDiagnostics
	if limit <= 0 {
		limit = 100
	}
	bag := diag.NewBag(limit)

	observe(opts.Observer, b.Unit.Name, "check", PhaseStart, 0)
	start := time.Now()
	res := sema.Check(b, sema.Options{
		Reporter:           &diag.BagReporter{Bag: bag},
		Imported:           imported,
		InstantiationDepth: opts.InstantiationDepth,
	})
	bag.Sort()
	observe(opts.Observer, b.Unit.Name, "check", PhaseEnd, time.Since(start))

	return &UnitResult{
		Path:    b.Unit.Name,
		Builder: b,
		Bag:     bag,
		Sema:    res,
		Broken:  bag.HasErrors(),
	}
}

func observe(obs PhaseObserver, unit, phase string, status PhaseStatus, elapsed time.Duration) {
	if obs == nil {
		return
	}
	obs(PhaseEvent{Unit: unit, Phase: phase, Status: status, Elapsed: elapsed})
}
