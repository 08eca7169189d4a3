package driver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ember/internal/ast"
	"ember/internal/astcodec"
	"ember/internal/diag"
	"ember/internal/project"
	"ember/internal/project/dag"
)

// ProjectResult is the outcome of checking a whole project: one UnitResult
// per present module, in topological order (dependencies first).
type ProjectResult struct {
	Units  []*UnitResult
	Index  dag.ModuleIndex
	Topo   *dag.Topo
	Broken bool
}

// ByPath returns the result for one module path, if present.
func (r *ProjectResult) ByPath(path string) *UnitResult {
	for _, u := range r.Units {
		if u.Path == path {
			return u
		}
	}
	return nil
}

type loadedUnit struct {
	file    string
	builder *ast.Builder
	meta    project.ModuleMeta
	bag     *diag.Bag
	loadErr error
}

// CheckProject decodes every unit of the manifest, orders the module graph
// and checks modules batch by batch: dependencies first, independent modules
// of one batch in parallel.
func CheckProject(ctx context.Context, m *project.Manifest, opts Options) (*ProjectResult, error) {
	files, err := unitFiles(m)
	if err != nil {
		return nil, err
	}
	if opts.InstantiationDepth == 0 {
		opts.InstantiationDepth = m.Config.Check.InstantiationDepth
	}
	if opts.MaxDiagnostics == 0 {
		opts.MaxDiagnostics = m.Config.Check.MaxDiagnostics
	}

	loaded := loadUnits(ctx, files, opts)

	metas := make([]project.ModuleMeta, 0, len(loaded))
	for _, lu := range loaded {
		if lu.loadErr == nil {
			metas = append(metas, lu.meta)
		}
	}

	idx := dag.BuildIndex(metas)
	nodes := make([]dag.ModuleNode, 0, len(loaded))
	byPath := make(map[string]*loadedUnit, len(loaded))
	for i := range loaded {
		lu := &loaded[i]
		if lu.loadErr != nil {
			continue
		}
		byPath[lu.meta.Path] = lu
		nodes = append(nodes, dag.ModuleNode{
			Meta:     lu.meta,
			Reporter: &diag.BagReporter{Bag: lu.bag},
		})
	}
	graph, slots := dag.BuildGraph(idx, nodes)
	topo := dag.ToposortKahn(graph)
	dag.ReportCycles(idx, slots, topo)

	result := &ProjectResult{Index: idx, Topo: topo}
	units := make(map[dag.ModuleID]*UnitResult, len(loaded))

	// Kahn orders importers before their imports; walk batches backwards so
	// every dependency is checked before its dependents.
	for bi := len(topo.Batches) - 1; bi >= 0; bi-- {
		batch := topo.Batches[bi]
		checked := make([]*UnitResult, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(jobLimit(opts.Jobs, len(batch)))
		for i, id := range batch {
			lu := byPath[idx.IDToName[int(id)]]
			if lu == nil {
				continue
			}
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				checked[i] = checkModule(lu, graph, idx, units, opts)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}
		for i, id := range batch {
			if checked[i] != nil {
				units[id] = checked[i]
			}
		}
	}

	// Modules inside a cycle never got checked; surface them as broken so
	// importers outside the cycle report a failed dependency.
	for _, id := range topo.Cycles {
		if lu := byPath[idx.IDToName[int(id)]]; lu != nil {
			lu.bag.Sort()
			units[id] = &UnitResult{
				Path:    lu.meta.Path,
				File:    lu.file,
				Builder: lu.builder,
				Bag:     lu.bag,
				Broken:  true,
			}
		}
	}

	for i := range slots {
		if u := units[dag.ModuleID(i)]; u != nil && u.Broken {
			slots[i].Broken = true
			slots[i].FirstErr = u.FirstError()
		}
	}
	dag.ReportBrokenDeps(idx, slots)

	for i := len(topo.Order) - 1; i >= 0; i-- {
		if u := units[topo.Order[i]]; u != nil {
			result.Units = append(result.Units, u)
		}
	}
	for _, id := range topo.Cycles {
		if u := units[id]; u != nil {
			result.Units = append(result.Units, u)
		}
	}

	for _, lu := range loaded {
		if lu.loadErr != nil {
			result.Broken = true
			result.Units = append(result.Units, &UnitResult{
				Path:   strings.TrimSuffix(filepath.Base(lu.file), astcodec.UnitExt),
				File:   lu.file,
				Bag:    loadErrorBag(lu, opts),
				Broken: true,
			})
		}
	}
	for _, u := range result.Units {
		if u.Broken {
			result.Broken = true
		}
	}
	return result, nil
}

func checkModule(lu *loadedUnit, graph dag.Graph, idx dag.ModuleIndex, units map[dag.ModuleID]*UnitResult, opts Options) *UnitResult {
	id := idx.NameToID[lu.meta.Path]

	depHashes := make([]project.Digest, 0, len(graph.Edges[int(id)]))
	var imported []ast.DeclID
	depBroken := false
	for _, dep := range graph.Edges[int(id)] {
		du := units[dep]
		if du == nil {
			continue
		}
		if du.Broken {
			depBroken = true
			continue
		}
		depHashes = append(depHashes, du.ModuleHash())
		imported = append(imported, importHeaders(lu.builder, du.Builder)...)
	}
	lu.meta.ModuleHash = project.Combine(lu.meta.ContentHash, depHashes...)

	// Graph diagnostics (missing imports etc.) already sit in lu.bag; a
	// cached clean verdict only applies when that bag is clean too.
	if !depBroken && !lu.bag.HasErrors() && opts.Cache != nil {
		var payload CachedUnit
		if hit, err := opts.Cache.Get(lu.meta.ModuleHash, &payload); err == nil && hit && !payload.Broken {
			observe(opts.Observer, lu.meta.Path, "cached", PhaseEnd, 0)
			lu.bag.Sort()
			return &UnitResult{
				Path:       lu.meta.Path,
				File:       lu.file,
				Builder:    lu.builder,
				Bag:        lu.bag,
				Broken:     false,
				Cached:     true,
				moduleHash: lu.meta.ModuleHash,
			}
		}
	}

	res := CheckUnit(lu.builder, imported, opts)
	res.File = lu.file
	lu.bag.Merge(res.Bag)
	lu.bag.Sort()
	res.Bag = lu.bag
	res.Broken = lu.bag.HasErrors()

	if opts.Cache != nil && !res.Cached {
		payload := cachedUnitFrom(&lu.meta, res.Broken)
		_ = opts.Cache.Put(lu.meta.ModuleHash, payload)
	}
	res.moduleHash = lu.meta.ModuleHash
	return res
}

func loadUnits(ctx context.Context, files map[string]string, opts Options) []loadedUnit {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	loaded := make([]loadedUnit, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobLimit(opts.Jobs, len(paths)))
	for i, modPath := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			loaded[i] = loadUnit(modPath, files[modPath], opts)
			return nil
		})
	}
	// decode errors land in loadErr, so Wait only fails on cancellation
	_ = g.Wait()
	return loaded
}

func loadUnit(modPath, file string, opts Options) loadedUnit {
	lu := loadedUnit{file: file, bag: diag.NewBag(bagLimit(opts))}
	// #nosec G304 -- paths come from the manifest
	raw, err := os.ReadFile(file)
	if err != nil {
		lu.loadErr = err
		return lu
	}
	b, err := astcodec.DecodeUnit(bytes.NewReader(raw))
	if err != nil {
		lu.loadErr = err
		return lu
	}
	if b.Unit.Name == "" {
		b.Unit.Name = modPath
	}
	lu.builder = b
	lu.meta = project.ModuleMeta{
		Name:        b.Unit.Name,
		Path:        modPath,
		ContentHash: sha256.Sum256(raw),
	}
	for _, imp := range b.Unit.Imports {
		norm, err := project.NormalizeModulePath(imp.Path)
		if err != nil {
			continue
		}
		lu.meta.Imports = append(lu.meta.Imports, project.ImportMeta{Path: norm, Span: imp.Span})
	}
	return lu
}

// ListModules returns the sorted module paths the manifest resolves to,
// without decoding anything. The UI uses it to lay out progress rows.
func ListModules(m *project.Manifest) ([]string, error) {
	files, err := unitFiles(m)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for path := range files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

// unitFiles maps module path -> .emt file, from [modules] when present and
// otherwise by walking the package root for unit files.
func unitFiles(m *project.Manifest) (map[string]string, error) {
	out := make(map[string]string)
	if len(m.Config.Modules) > 0 {
		for modPath, rel := range m.Config.Modules {
			norm, err := project.NormalizeModulePath(modPath)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid module path %q", m.Path, modPath)
			}
			out[norm] = filepath.Join(m.Root, filepath.FromSlash(rel))
		}
		return out, nil
	}

	root := m.Root
	if m.Config.Package.Root != "" {
		root = filepath.Join(m.Root, filepath.FromSlash(m.Config.Package.Root))
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, astcodec.UnitExt) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		norm, err := project.NormalizeModulePath(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("%s: unit file %q has no valid module path", m.Path, rel)
		}
		out[norm] = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadErrorBag(lu loadedUnit, opts Options) *diag.Bag {
	bag := diag.NewBag(bagLimit(opts))
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.ProjManifestInvalid,
		Message:  fmt.Sprintf("failed to load unit %s: %v", lu.file, lu.loadErr),
	})
	return bag
}

func bagLimit(opts Options) int {
	if opts.MaxDiagnostics > 0 {
		return opts.MaxDiagnostics
	}
	return 100
}

func jobLimit(jobs, n int) int {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if n > 0 && jobs > n {
		jobs = n
	}
	if jobs < 1 {
		jobs = 1
	}
	return jobs
}
