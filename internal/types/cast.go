package types

// CastAllowed implements the closed cast allow-list: numeric to numeric and
// numeric to/from bool. Everything else is an invalid cast.
func (in *Interner) CastAllowed(from, to TypeID) bool {
	f, ok := in.Lookup(from)
	if !ok {
		return false
	}
	t, ok := in.Lookup(to)
	if !ok {
		return false
	}
	if f.IsNumeric() && t.IsNumeric() {
		return true
	}
	if f.IsNumeric() && t.Kind == KindBool {
		return true
	}
	if f.Kind == KindBool && t.IsNumeric() {
		return true
	}
	return false
}
