// Package astcodec reads and writes .emt unit files: the msgpack handoff
// between the parsing stage and the checker, and the annotated output the
// checker hands to code generation.
package astcodec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/ast"
	"ember/internal/source"
)

// SchemaVersion tags every payload; decoders reject anything else.
const SchemaVersion uint16 = 1

// UnitExt is the on-disk extension for encoded units.
const UnitExt = ".emt"

type importPayload struct {
	Path string
	Span source.Span
}

type unitPayload struct {
	Schema   uint16
	Name     string
	Imports  []importPayload
	Strings  []string // interner snapshot, slot 0 = ""
	TopLevel []ast.DeclID
	Decls    []ast.Decl
	Exprs    []ast.Expr
	Stmts    []ast.Stmt
	Types    []ast.TypeExpr
}

// EncodeUnit writes the full syntax tree of one unit.
func EncodeUnit(w io.Writer, b *ast.Builder) error {
	decls, exprs, stmts, typeExprs := b.Arenas()
	payload := unitPayload{
		Schema:   SchemaVersion,
		Name:     b.Unit.Name,
		Strings:  b.Strings.Snapshot(),
		TopLevel: b.TopLevel,
		Decls:    decls,
		Exprs:    exprs,
		Stmts:    stmts,
		Types:    typeExprs,
	}
	for _, imp := range b.Unit.Imports {
		payload.Imports = append(payload.Imports, importPayload{Path: imp.Path, Span: imp.Span})
	}
	if err := msgpack.NewEncoder(w).Encode(&payload); err != nil {
		return fmt.Errorf("encode unit %q: %w", b.Unit.Name, err)
	}
	return nil
}

// DecodeUnit reads one unit back into a Builder.
func DecodeUnit(r io.Reader) (*ast.Builder, error) {
	var payload unitPayload
	if err := msgpack.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode unit: %w", err)
	}
	if payload.Schema != SchemaVersion {
		return nil, fmt.Errorf("decode unit: schema %d, want %d", payload.Schema, SchemaVersion)
	}
	strs, err := source.RestoreInterner(payload.Strings)
	if err != nil {
		return nil, fmt.Errorf("decode unit %q: %w", payload.Name, err)
	}
	unit := ast.Unit{Name: payload.Name}
	for _, imp := range payload.Imports {
		unit.Imports = append(unit.Imports, ast.ImportRef{Path: imp.Path, Span: imp.Span})
	}
	b, err := ast.Restore(strs, unit, payload.TopLevel, payload.Decls, payload.Exprs, payload.Stmts, payload.Types)
	if err != nil {
		return nil, fmt.Errorf("decode unit %q: %w", payload.Name, err)
	}
	return b, nil
}

// WriteUnitFile encodes b to path atomically.
func WriteUnitFile(path string, b *ast.Builder) error {
	f, err := os.CreateTemp(tmpDirFor(path), "tmp-*"+UnitExt)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if err := EncodeUnit(f, b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadUnitFile decodes the unit stored at path.
func ReadUnitFile(path string) (*ast.Builder, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	b, err := DecodeUnit(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func tmpDirFor(path string) string {
	return filepath.Dir(path)
}
