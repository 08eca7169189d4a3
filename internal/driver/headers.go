package driver

import (
	"ember/internal/ast"
	"ember/internal/source"
)

// headerImporter clones the public declaration headers of one unit into
// another unit's arenas so cross-module references resolve locally. Bodies
// and contracts stay behind: an importer trusts the exporting module's own
// check for those.
type headerImporter struct {
	dst *ast.Builder
	src *ast.Builder

	typeMap map[ast.TypeExprID]ast.TypeExprID
}

// importHeaders copies every top-level declaration of src into dst and
// returns the new IDs, ready for sema.Options.Imported.
func importHeaders(dst, src *ast.Builder) []ast.DeclID {
	hi := &headerImporter{
		dst:     dst,
		src:     src,
		typeMap: make(map[ast.TypeExprID]ast.TypeExprID),
	}
	out := make([]ast.DeclID, 0, len(src.TopLevel))
	for _, id := range src.TopLevel {
		if copied := hi.decl(id, ast.NoDeclID); copied != ast.NoDeclID {
			out = append(out, copied)
		}
	}
	return out
}

func (hi *headerImporter) decl(id ast.DeclID, owner ast.DeclID) ast.DeclID {
	d := hi.src.Decl(id)
	if d == nil {
		return ast.NoDeclID
	}
	copied := ast.Decl{
		Kind:        d.Kind,
		Span:        d.Span,
		Name:        hi.name(d.Name),
		NameSpan:    d.NameSpan,
		Return:      hi.typeExpr(d.Return),
		Nullable:    d.Nullable,
		Lifecycle:   d.Lifecycle,
		StageParent: hi.name(d.StageParent),
		Owner:       owner,
	}
	for _, tp := range d.TypeParams {
		copied.TypeParams = append(copied.TypeParams, ast.TypeParam{
			Name:   hi.name(tp.Name),
			Bounds: hi.names(tp.Bounds),
			Span:   tp.Span,
		})
	}
	for _, p := range d.Params {
		copied.Params = append(copied.Params, ast.Param{
			Name: hi.name(p.Name),
			Type: hi.typeExpr(p.Type),
			Mut:  p.Mut,
			Span: p.Span,
		})
	}
	for _, e := range d.Errors {
		copied.Errors = append(copied.Errors, ast.ErrorRef{Name: hi.name(e.Name), Span: e.Span})
	}
	for _, f := range d.Fields {
		copied.Fields = append(copied.Fields, ast.Field{
			Name:     hi.name(f.Name),
			Type:     hi.typeExpr(f.Type),
			Injected: f.Injected,
			Span:     f.Span,
		})
	}
	for _, v := range d.Variants {
		nv := ast.Variant{Name: hi.name(v.Name), Span: v.Span}
		for _, f := range v.Fields {
			nv.Fields = append(nv.Fields, ast.Field{
				Name:     hi.name(f.Name),
				Type:     hi.typeExpr(f.Type),
				Injected: f.Injected,
				Span:     f.Span,
			})
		}
		copied.Variants = append(copied.Variants, nv)
	}
	for _, tr := range d.Impls {
		copied.Impls = append(copied.Impls, ast.TraitRef{Name: hi.name(tr.Name), Span: tr.Span})
	}

	newID := hi.dst.AddDecl(copied)
	for _, m := range d.Methods {
		if mid := hi.decl(m, newID); mid != ast.NoDeclID {
			md := hi.dst.Decl(newID)
			md.Methods = append(md.Methods, mid)
		}
	}
	return newID
}

func (hi *headerImporter) name(id source.StringID) source.StringID {
	if id == source.NoStringID {
		return source.NoStringID
	}
	return hi.dst.Intern(hi.src.Name(id))
}

func (hi *headerImporter) names(ids []source.StringID) []source.StringID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]source.StringID, len(ids))
	for i, id := range ids {
		out[i] = hi.name(id)
	}
	return out
}

func (hi *headerImporter) typeExpr(id ast.TypeExprID) ast.TypeExprID {
	if !id.IsValid() {
		return ast.NoTypeExprID
	}
	if mapped, ok := hi.typeMap[id]; ok {
		return mapped
	}
	t := hi.src.TypeExpr(id)
	copied := ast.TypeExpr{
		Kind: t.Kind,
		Span: t.Span,
		Name: hi.name(t.Name),
		Ret:  hi.typeExpr(t.Ret),
	}
	for _, a := range t.Args {
		copied.Args = append(copied.Args, hi.typeExpr(a))
	}
	copied.Errors = hi.names(t.Errors)
	newID := hi.dst.AddTypeExpr(copied)
	hi.typeMap[id] = newID
	return newID
}
