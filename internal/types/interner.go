package types

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"

	"ember/internal/source"
)

// Builtins stores TypeIDs for the primitive types.
type Builtins struct {
	Invalid TypeID
	Int     TypeID
	Float   TypeID
	Bool    TypeID
	String  TypeID
	Byte    TypeID
	Void    TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Composite types are keyed on their component TypeIDs, so interning is O(1)
// per node and equal structure always yields the same ID.
type Interner struct {
	strings  *source.Interner
	types    []Type
	index    map[string]TypeID
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner(strs *source.Interner) *Interner {
	if strs == nil {
		strs = source.NewInterner()
	}
	in := &Interner{
		strings: strs,
		types:   make([]Type, 1), // slot 0 = invalid
		index:   make(map[string]TypeID, 64),
	}
	in.builtins.Invalid = NoTypeID
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.Byte = in.Intern(Type{Kind: KindByte})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Strings exposes the name interner used for nominal components.
func (in *Interner) Strings() *source.Interner {
	return in.strings
}

// Intern ensures the provided descriptor has a stable TypeID. Error sets are
// normalized (sorted, deduplicated) so the set {A,B} and {B,A} intern alike.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	t.Errors = normalizeNames(in.strings, t.Errors)
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("type interner overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return t
}

// Len returns the number of interned types including the invalid slot.
func (in *Interner) Len() int {
	return len(in.types)
}

// --- convenience constructors ----------------------------------------------

// Named interns a class or enum reference with resolved type arguments.
func (in *Interner) Named(name source.StringID, nk NamedKind, args ...TypeID) TypeID {
	return in.Intern(Type{Kind: KindNamed, Name: name, Named: nk, Args: args})
}

// Param interns a generic-parameter placeholder.
func (in *Interner) Param(name source.StringID, bounds []source.StringID) TypeID {
	return in.Intern(Type{Kind: KindParam, Name: name, Bounds: bounds})
}

// Fn interns a function type with a declared error set.
func (in *Interner) Fn(params []TypeID, result TypeID, errs []source.StringID) TypeID {
	if result == NoTypeID {
		result = in.builtins.Void
	}
	return in.Intern(Type{Kind: KindFn, Args: params, Result: result, Errors: errs})
}

// NullableErr reports why a nullable wrapper could not be constructed.
type NullableErr uint8

const (
	NullableOK NullableErr = iota
	NullableOfNullable
	NullableOfVoid
)

// Nullable wraps inner in T?. Nesting and wrapping void are construction-time
// failures, reported by the caller at the offending span.
func (in *Interner) Nullable(inner TypeID) (TypeID, NullableErr) {
	t, ok := in.Lookup(inner)
	if !ok {
		return NoTypeID, NullableOK
	}
	switch t.Kind {
	case KindNullable:
		return NoTypeID, NullableOfNullable
	case KindVoid:
		return NoTypeID, NullableOfVoid
	}
	return in.Intern(Type{Kind: KindNullable, Elem: inner}), NullableOK
}

// Array interns []elem.
func (in *Interner) Array(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindArray, Elem: elem})
}

// Map interns map[key]value. The caller validates key hashability.
func (in *Interner) Map(key, value TypeID) TypeID {
	return in.Intern(Type{Kind: KindMap, Key: key, Elem: value})
}

// Set interns set[elem]. The caller validates element hashability.
func (in *Interner) Set(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindSet, Elem: elem})
}

// Interface interns an interface-object type.
func (in *Interner) Interface(name source.StringID) TypeID {
	return in.Intern(Type{Kind: KindInterface, Name: name})
}

// Task interns a spawned-work handle whose get() yields result.
func (in *Interner) Task(result TypeID) TypeID {
	return in.Intern(Type{Kind: KindTask, Elem: result})
}

// TaskFallible interns a task handle carrying the spawned callee's declared
// error set; get() surfaces the set plus cancellation.
func (in *Interner) TaskFallible(result TypeID, errs []source.StringID) TypeID {
	return in.Intern(Type{Kind: KindTask, Elem: result, Errors: errs})
}

// Chan interns a channel of elem.
func (in *Interner) Chan(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindChan, Elem: elem})
}

// ErrorDecl interns a named error declaration used as a value type.
func (in *Interner) ErrorDecl(name source.StringID) TypeID {
	return in.Intern(Type{Kind: KindError, Name: name})
}

// Unwrap returns the inner type of a nullable, or id unchanged.
func (in *Interner) Unwrap(id TypeID) TypeID {
	if t, ok := in.Lookup(id); ok && t.Kind == KindNullable {
		return t.Elem
	}
	return id
}

// IsNullable reports whether id is a nullable wrapper.
func (in *Interner) IsNullable(id TypeID) bool {
	t, ok := in.Lookup(id)
	return ok && t.Kind == KindNullable
}

// normalizeNames sorts and deduplicates interned names by their text so the
// ordering is stable across runs regardless of interning order.
func normalizeNames(strs *source.Interner, names []source.StringID) []source.StringID {
	if len(names) < 2 {
		return slices.Clone(names)
	}
	out := slices.Clone(names)
	slices.SortFunc(out, func(a, b source.StringID) int {
		sa, _ := strs.Lookup(a)
		sb, _ := strs.Lookup(b)
		return strings.Compare(sa, sb)
	})
	return slices.Compact(out)
}

// typeKey renders a descriptor to a flat, unambiguous map key. Components are
// already interned IDs, so one level of rendering is enough.
func typeKey(t Type) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|%d|%d|%d|%d", t.Kind, t.Name, t.Named, t.Elem, t.Key, t.Result)
	for _, a := range t.Args {
		fmt.Fprintf(&b, "|a%d", a)
	}
	for _, e := range t.Errors {
		fmt.Fprintf(&b, "|e%d", e)
	}
	for _, bd := range t.Bounds {
		fmt.Fprintf(&b, "|b%d", bd)
	}
	return b.String()
}
