package diag

import (
	"fmt"
)

// Code is a stable diagnostic kind tag. Ranges are reserved per phase so
// codes stay stable as new diagnostics are added:
//
//	1000-1999  declaration-level errors
//	2000-2999  type errors
//	3000-3999  obligation errors (nullable/fallible discipline)
//	4000-4999  contract errors
//	5000-5999  mutability errors
//	6000-6999  warnings
//	7000-7999  project / module graph errors
type Code uint16

const (
	UnknownCode Code = 0

	// Declaration-level.
	DeclDuplicate           Code = 1001
	DeclShadowsBuiltin      Code = 1002
	DeclCircularDependency  Code = 1003
	DeclDirectConstruction  Code = 1004
	DeclDuplicateField      Code = 1005
	DeclDuplicateMethod     Code = 1006
	DeclDuplicateParam      Code = 1007
	DeclDuplicateVariant    Code = 1008
	DeclStageParentUnknown  Code = 1009
	DeclStageParentCycle    Code = 1010
	TraitMissingMethod      Code = 1011
	TraitReceiverMutability Code = 1012
	TraitSignatureMismatch  Code = 1013
	TraitUnknown            Code = 1014
	TraitAmbiguousImpl      Code = 1015
	TraitNoImpl             Code = 1016

	// Type errors.
	TypeMismatch         Code = 2001
	TypeArityMismatch    Code = 2002
	TypeBoundNotSat      Code = 2003
	TypeInvalidCast      Code = 2004
	TypeCannotInfer      Code = 2005
	TypeUnresolvedName   Code = 2006
	TypeNotHashable      Code = 2007
	TypeRecursionLimit   Code = 2008
	TypeWrongArgCount    Code = 2009
	TypeUnknownField     Code = 2010
	TypeUnknownMethod    Code = 2011
	TypeNotCallable      Code = 2012
	TypeMissingReturn    Code = 2013
	TypeUnknownVariant   Code = 2014
	TypeNotIndexable     Code = 2015
	TypeConditionNotBool Code = 2016

	// Obligation errors.
	ObligUnhandledError      Code = 3001
	ObligCannotPropagate     Code = 3002
	ObligNestedNullable      Code = 3003
	ObligVoidNullable        Code = 3004
	ObligConflictingHandlers Code = 3005
	ObligUnknownError        Code = 3006

	// Contract errors.
	ContractNotBool         Code = 4001
	ContractLiskov          Code = 4002
	ContractImproperOld     Code = 4003
	ContractResultMisplaced Code = 4004
	ContractNotDecidable    Code = 4005

	// Mutability errors.
	MutReceiverNotDeclared Code = 5001
	MutBindingNotDeclared  Code = 5002
	MutAssignImmutable     Code = 5003

	// Warnings.
	WarnUnused       Code = 6001
	WarnUnreachable  Code = 6002
	WarnUselessCatch Code = 6003
	WarnUnusedError  Code = 6004

	// Project / module graph.
	ProjCircularImport   Code = 7001
	ProjMissingModule    Code = 7002
	ProjSelfImport       Code = 7003
	ProjDuplicateModule  Code = 7004
	ProjManifestInvalid  Code = 7005
	ProjDependencyFailed Code = 7006
)

var codeNames = map[Code]string{
	DeclDuplicate:           "DuplicateDeclaration",
	DeclShadowsBuiltin:      "ShadowsBuiltin",
	DeclCircularDependency:  "CircularDependency",
	DeclDirectConstruction:  "DirectConstruction",
	DeclDuplicateField:      "DuplicateField",
	DeclDuplicateMethod:     "DuplicateMethod",
	DeclDuplicateParam:      "DuplicateParam",
	DeclDuplicateVariant:    "DuplicateVariant",
	DeclStageParentUnknown:  "StageParentUnknown",
	DeclStageParentCycle:    "StageParentCycle",
	TraitMissingMethod:      "MissingMethod",
	TraitReceiverMutability: "ReceiverMutabilityMismatch",
	TraitSignatureMismatch:  "TraitSignatureMismatch",
	TraitUnknown:            "UnknownTrait",
	TraitAmbiguousImpl:      "AmbiguousImplementation",
	TraitNoImpl:             "NoImplementation",

	TypeMismatch:         "TypeMismatch",
	TypeArityMismatch:    "ArityMismatch",
	TypeBoundNotSat:      "BoundNotSatisfied",
	TypeInvalidCast:      "InvalidCast",
	TypeCannotInfer:      "CannotInfer",
	TypeUnresolvedName:   "UnresolvedName",
	TypeNotHashable:      "NotHashable",
	TypeRecursionLimit:   "GenericRecursionLimit",
	TypeWrongArgCount:    "WrongArgCount",
	TypeUnknownField:     "UnknownField",
	TypeUnknownMethod:    "UnknownMethod",
	TypeNotCallable:      "NotCallable",
	TypeMissingReturn:    "MissingReturn",
	TypeUnknownVariant:   "UnknownVariant",
	TypeNotIndexable:     "NotIndexable",
	TypeConditionNotBool: "ConditionNotBool",

	ObligUnhandledError:      "UnhandledError",
	ObligCannotPropagate:     "CannotPropagate",
	ObligNestedNullable:      "NestedNullable",
	ObligVoidNullable:        "VoidNullable",
	ObligConflictingHandlers: "ConflictingHandlers",
	ObligUnknownError:        "UnknownError",

	ContractNotBool:         "ContractNotBool",
	ContractLiskov:          "LiskovViolation",
	ContractImproperOld:     "ImproperOldUsage",
	ContractResultMisplaced: "ResultOutsideEnsures",
	ContractNotDecidable:    "ContractNotDecidable",

	MutReceiverNotDeclared: "ReceiverNotMutating",
	MutBindingNotDeclared:  "BindingNotMutable",
	MutAssignImmutable:     "AssignToImmutable",

	WarnUnused:       "UnusedBinding",
	WarnUnreachable:  "UnreachableCode",
	WarnUselessCatch: "UselessCatch",
	WarnUnusedError:  "UnusedDeclaredError",

	ProjCircularImport:   "CircularImport",
	ProjMissingModule:    "MissingModule",
	ProjSelfImport:       "SelfImport",
	ProjDuplicateModule:  "DuplicateModule",
	ProjManifestInvalid:  "ManifestInvalid",
	ProjDependencyFailed: "DependencyFailed",
}

// Name returns the stable kind tag exposed to tooling.
func (c Code) Name() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("E%04d", uint16(c))
}

func (c Code) String() string {
	return fmt.Sprintf("E%04d", uint16(c))
}
