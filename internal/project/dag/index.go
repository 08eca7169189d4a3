package dag

import (
	"sort"

	"ember/internal/project"
)

// ModuleID indexes a module within one ModuleIndex.
type ModuleID uint32

// ModuleIndex assigns dense IDs to every module path mentioned anywhere in
// the project, imported-but-missing modules included. IDs follow the sorted
// path order, so the same project always produces the same index.
type ModuleIndex struct {
	NameToID map[string]ModuleID
	IDToName []string
}

func BuildIndex(metas []project.ModuleMeta) ModuleIndex {
	uniq := make(map[string]struct{}, len(metas))
	for _, meta := range metas {
		if meta.Path != "" {
			uniq[meta.Path] = struct{}{}
		}
		for _, dep := range meta.Imports {
			if dep.Path != "" {
				uniq[dep.Path] = struct{}{}
			}
		}
	}

	paths := make([]string, 0, len(uniq))
	for path := range uniq {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	nameToID := make(map[string]ModuleID, len(paths))
	for i, path := range paths {
		nameToID[path] = ModuleID(i)
	}

	return ModuleIndex{
		NameToID: nameToID,
		IDToName: paths,
	}
}
