package astcodec

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/sema"
	"ember/internal/source"
)

// CheckedPayload is the annotated handoff to code generation: the tree
// plus everything the checker proved about it. Type references are rendered
// to canonical text so the payload stands alone without the interner.
type CheckedPayload struct {
	Schema uint16
	Unit   unitPayload

	ExprTypes map[uint32]string // ExprID -> canonical type text
	DeclTypes map[uint32]string

	ErrorSets map[uint32][]string // fn DeclID -> sorted reachable error names

	Dispatch []DispatchPayload
	Inst     []InstPayload

	Warnings []DiagPayload
}

type DispatchPayload struct {
	Interface uint32
	Impl      uint32
	Methods   []uint32
}

type InstPayload struct {
	Decl        uint32
	TypeArgs    []string
	Specialized uint32
}

type DiagPayload struct {
	Code     uint32
	CodeName string
	Severity uint8
	Message  string
	Span     source.Span
}

// EncodeChecked writes the annotated unit. Only warnings travel with it;
// a unit with errors never reaches this encoder.
func EncodeChecked(w io.Writer, b *ast.Builder, res *sema.Result, warnings []diag.Diagnostic) error {
	decls, exprs, stmts, typeExprs := b.Arenas()
	payload := CheckedPayload{
		Schema: SchemaVersion,
		Unit: unitPayload{
			Schema:   SchemaVersion,
			Name:     b.Unit.Name,
			Strings:  b.Strings.Snapshot(),
			TopLevel: b.TopLevel,
			Decls:    decls,
			Exprs:    exprs,
			Stmts:    stmts,
			Types:    typeExprs,
		},
		ExprTypes: make(map[uint32]string, len(res.ExprTypes)),
		DeclTypes: make(map[uint32]string, len(res.DeclTypes)),
		ErrorSets: make(map[uint32][]string, len(res.ErrorSets)),
	}
	for _, imp := range b.Unit.Imports {
		payload.Unit.Imports = append(payload.Unit.Imports, importPayload{Path: imp.Path, Span: imp.Span})
	}

	for id, ty := range res.ExprTypes {
		payload.ExprTypes[uint32(id)] = res.Types.String(ty)
	}
	for id, ty := range res.DeclTypes {
		payload.DeclTypes[uint32(id)] = res.Types.String(ty)
	}
	for id, set := range res.ErrorSets {
		names := make([]string, len(set))
		for i, n := range set {
			names[i] = b.Name(n)
		}
		payload.ErrorSets[uint32(id)] = names
	}

	for _, table := range res.Dispatch {
		dp := DispatchPayload{
			Interface: uint32(table.Interface),
			Impl:      uint32(table.Impl),
		}
		for _, m := range table.Methods {
			dp.Methods = append(dp.Methods, uint32(m))
		}
		payload.Dispatch = append(payload.Dispatch, dp)
	}
	sort.Slice(payload.Dispatch, func(i, j int) bool {
		x, y := payload.Dispatch[i], payload.Dispatch[j]
		if x.Interface != y.Interface {
			return x.Interface < y.Interface
		}
		return x.Impl < y.Impl
	})

	for _, entry := range res.Inst.Entries() {
		ip := InstPayload{
			Decl:        uint32(entry.Decl),
			Specialized: uint32(entry.Specialized),
		}
		for _, arg := range entry.TypeArgs {
			ip.TypeArgs = append(ip.TypeArgs, res.Types.String(arg))
		}
		payload.Inst = append(payload.Inst, ip)
	}

	for _, d := range warnings {
		payload.Warnings = append(payload.Warnings, DiagPayload{
			Code:     uint32(d.Code),
			CodeName: d.Code.Name(),
			Severity: uint8(d.Severity),
			Message:  d.Message,
			Span:     d.Primary,
		})
	}

	if err := msgpack.NewEncoder(w).Encode(&payload); err != nil {
		return fmt.Errorf("encode checked unit %q: %w", b.Unit.Name, err)
	}
	return nil
}

// DecodeChecked reads an annotated unit payload.
func DecodeChecked(r io.Reader) (*CheckedPayload, error) {
	var payload CheckedPayload
	if err := msgpack.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode checked unit: %w", err)
	}
	if payload.Schema != SchemaVersion {
		return nil, fmt.Errorf("decode checked unit: schema %d, want %d", payload.Schema, SchemaVersion)
	}
	return &payload, nil
}

// WriteCheckedFile encodes the annotated unit to path atomically.
func WriteCheckedFile(path string, b *ast.Builder, res *sema.Result, warnings []diag.Diagnostic) error {
	f, err := os.CreateTemp(tmpDirFor(path), "tmp-*.emc")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if err := EncodeChecked(f, b, res, warnings); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
