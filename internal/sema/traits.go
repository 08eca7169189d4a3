package sema

import (
	"strings"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/source"
)

// checkTraits verifies every `impl` clause: each non-defaulted interface
// method needs a matching method on the implementing type with an identical
// signature and identical receiver mutability. Missing methods are batched
// into one report naming all absentees. Each valid implementation yields a
// dispatch table mirroring the interface's declared method order.
func (c *checker) checkTraits() {
	for _, id := range c.table.Decls() {
		d := c.b.Decl(id)
		if d.Kind != ast.DeclClass && d.Kind != ast.DeclEnum && d.Kind != ast.DeclApp && d.Kind != ast.DeclStage {
			continue
		}
		seen := make(map[source.StringID]bool, len(d.Impls))
		for _, impl := range d.Impls {
			if seen[impl.Name] {
				c.errorf(diag.TraitAmbiguousImpl, impl.Span,
					"%s %q implements interface %q more than once",
					d.Kind, c.name(d.Name), c.name(impl.Name))
				continue
			}
			seen[impl.Name] = true
			c.checkImpl(id, d, impl)
		}
	}
}

func (c *checker) checkImpl(implID ast.DeclID, d *ast.Decl, ref ast.TraitRef) {
	ifaceID, ok := c.table.LookupKind(ref.Name, ast.DeclInterface)
	if !ok {
		c.errorf(diag.TraitUnknown, ref.Span, "unknown interface %q", c.name(ref.Name))
		return
	}
	iface := c.b.Decl(ifaceID)

	var missing []string
	table := DispatchTable{Interface: ifaceID, Impl: implID}
	valid := true

	for _, imid := range iface.Methods {
		im := c.b.Decl(imid)
		isig := c.sigs[imid]
		if im == nil || isig == nil {
			continue
		}
		cmid, found := c.methodByName(d, im.Name)
		if !found {
			if im.Body.IsValid() {
				// Default body inherited; dispatch points at the interface's
				// own method.
				table.Methods = append(table.Methods, imid)
				continue
			}
			missing = append(missing, c.name(im.Name))
			valid = false
			continue
		}
		csig := c.sigs[cmid]
		cm := c.b.Decl(cmid)
		if csig == nil {
			continue
		}
		if !c.sameSignature(isig, csig) {
			c.errorf(diag.TraitSignatureMismatch, cm.NameSpan,
				"method %q does not match interface %q: expected %s, found %s",
				c.name(im.Name), c.name(iface.Name),
				c.typeLabel(c.fnTypeOf(isig)), c.typeLabel(c.fnTypeOf(csig)))
			valid = false
		}
		if isig.SelfMut != csig.SelfMut {
			want := "non-mutating"
			if isig.SelfMut {
				want = "mutating"
			}
			c.errorf(diag.TraitReceiverMutability, cm.NameSpan,
				"method %q must declare a %s receiver to match interface %q",
				c.name(im.Name), want, c.name(iface.Name))
			valid = false
		}
		c.checkLiskov(iface, im, isig, cm, cmid)
		table.Methods = append(table.Methods, cmid)
	}

	if len(missing) > 0 {
		c.errorf(diag.TraitMissingMethod, ref.Span,
			"%s %q is missing method(s) required by interface %q: %s",
			d.Kind, c.name(d.Name), c.name(iface.Name), strings.Join(missing, ", "))
	}
	if valid {
		c.res.Dispatch = append(c.res.Dispatch, table)
	}
}

// sameSignature requires identical parameter and return types and an
// identical error set; the receiver is compared separately.
func (c *checker) sameSignature(a, b *fnSig) bool {
	if len(a.Params) != len(b.Params) || len(a.Errors) != len(b.Errors) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	if a.Result != b.Result {
		return false
	}
	for i := range a.Errors {
		if a.Errors[i] != b.Errors[i] {
			return false
		}
	}
	return true
}

// implementationsOf lists implementing declarations of an interface name, in
// declaration order.
func (c *checker) implementationsOf(iface source.StringID) []ast.DeclID {
	var impls []ast.DeclID
	for _, id := range c.table.Decls() {
		d := c.b.Decl(id)
		switch d.Kind {
		case ast.DeclClass, ast.DeclEnum, ast.DeclApp, ast.DeclStage:
			for _, ref := range d.Impls {
				if ref.Name == iface {
					impls = append(impls, id)
				}
			}
		}
	}
	return impls
}
