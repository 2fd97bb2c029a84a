// Package types holds the source language's algebraic type
// representation and structural equality, per spec.md §3.
package types

import "strings"

// Kind tags the sum that makes up Type.
type Kind int

const (
	KindEmpty Kind = iota // sentinel: no type assigned yet
	KindFundamental
	KindPointer
	KindArray
	KindFunction
	KindUserDefined
)

// Fundamental enumerates the built-in scalar/aggregate-less kinds.
type Fundamental int

const (
	None Fundamental = iota
	Null
	I32
	I64
	F32
	F64
	String
	Character
)

func (f Fundamental) String() string {
	switch f {
	case None:
		return "none"
	case Null:
		return "null"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case String:
		return "string"
	case Character:
		return "char"
	}
	return "?"
}

// Type is the tagged sum described in spec.md §3: Fundamental, Pointer,
// Array, Function, UserDefined, or the Empty sentinel.
type Type struct {
	Kind        Kind
	Fundamental Fundamental // valid iff Kind == KindFundamental

	Elem *Type // valid iff Kind == KindPointer or KindArray

	Return     *Type // valid iff Kind == KindFunction
	Parameters []*Type

	Name string // valid iff Kind == KindUserDefined
}

// Empty is the sentinel type used before an expression's type has been
// synthesized by the semantic analyzer.
var Empty = &Type{Kind: KindEmpty}

// Fund builds a fundamental type.
func Fund(f Fundamental) *Type { return &Type{Kind: KindFundamental, Fundamental: f} }

// Ptr builds a pointer-to-elem type.
func Ptr(elem *Type) *Type { return &Type{Kind: KindPointer, Elem: elem} }

// Arr builds an array-of-elem type.
func Arr(elem *Type) *Type { return &Type{Kind: KindArray, Elem: elem} }

// Fn builds a function type.
func Fn(ret *Type, params []*Type) *Type {
	return &Type{Kind: KindFunction, Return: ret, Parameters: params}
}

// User builds a user-defined (class) type reference.
func User(name string) *Type { return &Type{Kind: KindUserDefined, Name: name} }

var (
	I32Type       = Fund(I32)
	I64Type       = Fund(I64)
	F32Type       = Fund(F32)
	F64Type       = Fund(F64)
	StringType    = Fund(String)
	CharacterType = Fund(Character)
	NullType      = Fund(Null)
)

// Equal implements the structural equality of spec.md §3: recursive on
// constructors; UserDefined equal by name; Function equal iff return
// types match and parameter lists match pairwise in order.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindEmpty:
		return true
	case KindFundamental:
		return a.Fundamental == b.Fundamental
	case KindPointer, KindArray:
		return Equal(a.Elem, b.Elem)
	case KindUserDefined:
		return a.Name == b.Name
	case KindFunction:
		if !Equal(a.Return, b.Return) {
			return false
		}
		if len(a.Parameters) != len(b.Parameters) {
			return false
		}
		for i := range a.Parameters {
			if !Equal(a.Parameters[i], b.Parameters[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// IsEmpty reports whether t is the Empty sentinel (no type yet).
func IsEmpty(t *Type) bool {
	return t == nil || t.Kind == KindEmpty
}

// String renders a Type for diagnostics, e.g. "f32", "(i32)", "[i32]".
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindEmpty:
		return "<empty>"
	case KindFundamental:
		return t.Fundamental.String()
	case KindPointer:
		return "(" + t.Elem.String() + ")"
	case KindArray:
		return "[" + t.Elem.String() + "]"
	case KindUserDefined:
		return t.Name
	case KindFunction:
		params := make([]string, len(t.Parameters))
		for i, p := range t.Parameters {
			params[i] = p.String()
		}
		return "fn(" + strings.Join(params, ", ") + ") -> " + t.Return.String()
	}
	return "?"
}

// FromKeyword maps a primitive-type keyword lexeme to its Fundamental,
// per spec.md §3's "i8 i16 i32 collapse to i32" rule.
//
// TODO(spec.md §9 open question): the reference implementation's keyword
// table swaps f32 and f64 (KEY_F32 maps to BasicType::F64 and vice
// versa, see original_source/Fractal/Lexer/Token.h getBasicType). This
// mapping preserves that swap for source compatibility with the
// reference rather than silently "fixing" it, since fixing it would
// change which mangled size/register width a "f32"/"f64" declaration
// resolves to relative to every program the reference compiler accepts.
func FromKeyword(keyword string) (Fundamental, bool) {
	switch keyword {
	case "i8", "i16", "i32", "bool":
		return I32, true
	case "i64":
		return I64, true
	case "f32":
		return F64, true
	case "f64":
		return F32, true
	case "null":
		return Null, true
	}
	return None, false
}
