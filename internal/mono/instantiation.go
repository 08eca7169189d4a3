package mono

import (
	"strconv"
	"strings"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/types"
)

// Key is a comparable instantiation key.
//
// Go maps cannot key on slices, so the normalized type arguments are folded
// into a stable ArgsKey string; the slice itself lives in the Entry.
type Key struct {
	Decl    ast.DeclID
	ArgsKey string
}

// UseSite records one location seeding an instantiation.
type UseSite struct {
	Span   source.Span
	Caller ast.DeclID
}

// Entry captures one (generic declaration, argument tuple) specialization.
// Entries grow monotonically during the fixed-point iteration and freeze when
// a pass discovers nothing new.
type Entry struct {
	Decl        ast.DeclID
	TypeArgs    []types.TypeID
	ArgsKey     string
	UseSites    []UseSite
	Specialized ast.DeclID // substituted clone, one body per instantiation
	Checked     bool       // body re-checked for this tuple
	Failed      bool       // body check failed; further sites reuse the verdict
}

// InstantiationMap memoizes generic instantiations across a unit. Iteration
// order is insertion order, which the deterministic declaration walk makes
// reproducible.
type InstantiationMap struct {
	entries map[Key]*Entry
	order   []Key
}

func NewInstantiationMap() *InstantiationMap {
	return &InstantiationMap{entries: make(map[Key]*Entry)}
}

// ArgsKey renders an argument tuple to its canonical key.
func ArgsKey(args []types.TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return b.String()
}

// Record registers an instantiation use. It returns the memoized entry and
// whether this tuple is new (and therefore needs a body re-check).
func (m *InstantiationMap) Record(decl ast.DeclID, args []types.TypeID, site source.Span, caller ast.DeclID) (*Entry, bool) {
	key := Key{Decl: decl, ArgsKey: ArgsKey(args)}
	entry, ok := m.entries[key]
	fresh := false
	if !ok {
		entry = &Entry{
			Decl:     decl,
			TypeArgs: append([]types.TypeID(nil), args...),
			ArgsKey:  key.ArgsKey,
		}
		m.entries[key] = entry
		m.order = append(m.order, key)
		fresh = true
	}
	if site != (source.Span{}) {
		us := UseSite{Span: site, Caller: caller}
		for _, existing := range entry.UseSites {
			if existing == us {
				return entry, fresh
			}
		}
		entry.UseSites = append(entry.UseSites, us)
	}
	return entry, fresh
}

// Lookup returns the entry for a tuple, if recorded.
func (m *InstantiationMap) Lookup(decl ast.DeclID, args []types.TypeID) (*Entry, bool) {
	entry, ok := m.entries[Key{Decl: decl, ArgsKey: ArgsKey(args)}]
	return entry, ok
}

// Entries returns every entry in first-recorded order.
func (m *InstantiationMap) Entries() []*Entry {
	out := make([]*Entry, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.entries[key])
	}
	return out
}

// Len returns the number of distinct instantiations.
func (m *InstantiationMap) Len() int {
	return len(m.order)
}
