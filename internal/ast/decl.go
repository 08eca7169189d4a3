package ast

import (
	"ember/internal/source"
)

// DeclKind classifies top-level and member declarations.
type DeclKind uint8

const (
	DeclInvalid DeclKind = iota
	DeclFn
	DeclClass
	DeclInterface
	DeclEnum
	DeclError
	DeclApp
	DeclStage
)

func (k DeclKind) String() string {
	switch k {
	case DeclFn:
		return "function"
	case DeclClass:
		return "class"
	case DeclInterface:
		return "interface"
	case DeclEnum:
		return "enum"
	case DeclError:
		return "error"
	case DeclApp:
		return "app"
	case DeclStage:
		return "stage"
	default:
		return "invalid"
	}
}

// Lifecycle tags DI graph participants.
type Lifecycle uint8

const (
	LifecycleDefault Lifecycle = iota
	LifecycleScoped
	LifecycleTransient
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleScoped:
		return "scoped"
	case LifecycleTransient:
		return "transient"
	default:
		return "default"
	}
}

// Param is one function/method/closure parameter. The receiver is a leading
// parameter named "self"; Mut on it declares a mutating method.
type Param struct {
	Name source.StringID
	Type TypeExprID
	Mut  bool
	Span source.Span
}

// Field is one class/error/variant field. Injected fields are constructor
// dependencies participating in the DI graph.
type Field struct {
	Name     source.StringID
	Type     TypeExprID
	Injected bool
	Span     source.Span
}

// Variant is one enum variant with an optional payload.
type Variant struct {
	Name   source.StringID
	Fields []Field
	Span   source.Span
}

// TypeParam is one generic parameter with optional interface bounds.
type TypeParam struct {
	Name   source.StringID
	Bounds []source.StringID
	Span   source.Span
}

// ContractKind distinguishes contract clause kinds.
type ContractKind uint8

const (
	ContractRequires ContractKind = iota
	ContractEnsures
	ContractInvariant
)

func (k ContractKind) String() string {
	switch k {
	case ContractRequires:
		return "requires"
	case ContractEnsures:
		return "ensures"
	default:
		return "invariant"
	}
}

// Contract is one requires/ensures/invariant clause.
type Contract struct {
	Kind ContractKind
	Expr ExprID
	Span source.Span
}

// ErrorRef names one member of a declared error set.
type ErrorRef struct {
	Name source.StringID
	Span source.Span
}

// TraitRef names one implemented interface.
type TraitRef struct {
	Name source.StringID
	Span source.Span
}

// Decl is a fat declaration node. DeclFn covers free functions, methods
// (Owner set, Params[0] is self) and interface methods (Body optional).
type Decl struct {
	Kind     DeclKind
	Span     source.Span
	Name     source.StringID
	NameSpan source.Span

	TypeParams []TypeParam
	Params     []Param
	Return     TypeExprID // NoTypeExprID means void
	Errors     []ErrorRef // declared error set (fallible signature)
	Nullable   bool       // fn result is nullable (sugar over Return wrapping)
	Contracts  []Contract
	Body       StmtID

	Fields      []Field
	Methods     []DeclID
	Impls       []TraitRef
	Variants    []Variant
	Lifecycle   Lifecycle
	StageParent source.StringID
	Owner       DeclID // methods: the owning class/interface/app/stage
}

// IsFallible reports whether the declaration carries a non-empty error set.
func (d *Decl) IsFallible() bool {
	return len(d.Errors) > 0
}

// Receiver returns the self parameter of a method, if any.
func (d *Decl) Receiver(strings *source.Interner) (Param, bool) {
	if d.Kind != DeclFn || len(d.Params) == 0 {
		return Param{}, false
	}
	if name, _ := strings.Lookup(d.Params[0].Name); name == "self" {
		return d.Params[0], true
	}
	return Param{}, false
}
