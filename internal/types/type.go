// Package types implements the compiler's type model (spec.md §3.1,
// §4.2): a tagged sum of primitive, composite, function, struct, array,
// pointer, opaque, and nil types, with structural/nominal equality,
// cloning, and size queries the code generator relies on.
package types

import "github.com/sindarin-lang/snc/internal/carena"

// Kind tags the variant a Type holds.
type Kind int

const (
	Int Kind = iota
	Int32
	Uint
	Uint32
	Long // alias of Int in payload; kept distinct so diagnostics can say "long"
	Float
	Double
	Char
	Byte
	Bool
	Void
	Nil
	String
	Any
	Array
	Pointer
	Function
	Struct
	Opaque
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Int32:
		return "int32"
	case Uint:
		return "uint"
	case Uint32:
		return "uint32"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Char:
		return "char"
	case Byte:
		return "byte"
	case Bool:
		return "bool"
	case Void:
		return "void"
	case Nil:
		return "nil"
	case String:
		return "string"
	case Any:
		return "any"
	case Array:
		return "array"
	case Pointer:
		return "pointer"
	case Function:
		return "function"
	case Struct:
		return "struct"
	case Opaque:
		return "opaque"
	}
	return "unknown"
}

// Field is a named, typed struct field.
type Field struct {
	Name   string
	Type   *Type
	CAlias string // optional explicit C field name
}

// Method is a struct method signature; bodies live in the AST, not here.
type Method struct {
	Name     string
	Type     *Type // Function type: params include an implicit self
	IsNative bool
}

// Type is the tagged variant described by spec.md §3.1.
type Type struct {
	Kind Kind

	Elem *Type // Array element type, or Pointer base type

	Params   []*Type
	Return   *Type
	IsNative bool // Function: native (FFI) callback; Struct: native struct

	Name          string // Struct, Opaque
	Fields        []Field
	Methods       []*Method
	IsPacked      bool
	CAlias        string
	PassSelfByRef bool

	// WellKnown marks an Opaque type the C standard library already
	// provides (FILE, DIR, dirent) so the generator must not emit a
	// typedef for it (spec.md §3.1).
	WellKnown bool
}

// wellKnownOpaque lists the names the generator must never re-typedef.
var wellKnownOpaque = map[string]bool{
	"FILE":   true,
	"DIR":    true,
	"dirent": true,
}

// NewOpaque builds an Opaque type, auto-detecting the well-known names.
func NewOpaque(name string) *Type {
	return &Type{Kind: Opaque, Name: name, WellKnown: wellKnownOpaque[name]}
}

// NewArray builds an Array type over elem.
func NewArray(elem *Type) *Type { return &Type{Kind: Array, Elem: elem} }

// NewPointer builds a Pointer type to base.
func NewPointer(base *Type) *Type { return &Type{Kind: Pointer, Elem: base} }

// NewFunction builds a Function type.
func NewFunction(ret *Type, params []*Type, isNative bool) *Type {
	return &Type{Kind: Function, Return: ret, Params: params, IsNative: isNative}
}

// Primitive returns the (shared, immutable) Type value for a primitive
// kind. Callers must not mutate the result; Clone it first.
func Primitive(k Kind) *Type {
	if t, ok := primitives[k]; ok {
		return t
	}
	panic("types: Primitive called with a non-primitive kind " + k.String())
}

var primitives = func() map[Kind]*Type {
	m := map[Kind]*Type{}
	for _, k := range []Kind{Int, Int32, Uint, Uint32, Long, Float, Double, Char, Byte, Bool, Void, Nil, String, Any} {
		m[k] = &Type{Kind: k}
	}
	return m
}()

// IsHandle reports whether values of this type are reached only through
// a runtime handle (spec.md §3.1, §3.3).
func (t *Type) IsHandle() bool {
	return t.Kind == String || t.Kind == Array
}

// IsPrimitive reports whether t is a scalar value type with C value
// semantics (no handle, no promotion needed on return).
func (t *Type) IsPrimitive() bool {
	switch t.Kind {
	case Int, Int32, Uint, Uint32, Long, Float, Double, Char, Byte, Bool:
		return true
	}
	return false
}

// Size returns the type's size for allocation/layout purposes. Handle
// types and pointers are always 8 bytes (spec.md §3.1); struct size is
// packed-aware.
func (t *Type) Size() int {
	switch t.Kind {
	case Int, Long, Double:
		return 8
	case Int32, Float:
		return 4
	case Uint:
		return 8
	case Uint32:
		return 4
	case Char, Byte, Bool:
		return 1
	case Void, Nil:
		return 0
	case String, Array, Pointer, Function, Any:
		return 8
	case Struct:
		return t.structSize()
	case Opaque:
		return 8
	}
	return 8
}

func (t *Type) structSize() int {
	if t.IsPacked {
		total := 0
		for _, f := range t.Fields {
			total += f.Type.Size()
		}
		return total
	}
	total := 0
	align := 1
	for _, f := range t.Fields {
		fs := f.Type.Size()
		fa := fs
		if fa > 8 {
			fa = 8
		}
		if fa < 1 {
			fa = 1
		}
		if fa > align {
			align = fa
		}
		if total%fa != 0 {
			total += fa - total%fa
		}
		total += fs
	}
	if align > 1 && total%align != 0 {
		total += align - total%align
	}
	return total
}

// Equals implements spec.md §3.1/§4.2: structural equality for
// primitives and arrays, nominal (by name) for structs, recursive for
// function types.
func (t *Type) Equals(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Array, Pointer:
		return t.Elem.Equals(o.Elem)
	case Function:
		if t.IsNative != o.IsNative || len(t.Params) != len(o.Params) {
			return false
		}
		if !t.Return.Equals(o.Return) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equals(o.Params[i]) {
				return false
			}
		}
		return true
	case Struct, Opaque:
		return t.Name == o.Name
	default:
		return true
	}
}

// Clone produces an equal-but-distinct tree, owned by into.
func (t *Type) Clone(into *carena.Arena) *Type {
	if t == nil {
		return nil
	}
	c := &Type{
		Kind:          t.Kind,
		IsNative:      t.IsNative,
		Name:          arenaString(into, t.Name),
		IsPacked:      t.IsPacked,
		CAlias:        arenaString(into, t.CAlias),
		PassSelfByRef: t.PassSelfByRef,
		WellKnown:     t.WellKnown,
	}
	c.Elem = t.Elem.Clone(into)
	c.Return = t.Return.Clone(into)
	if t.Params != nil {
		c.Params = make([]*Type, len(t.Params))
		for i, p := range t.Params {
			c.Params[i] = p.Clone(into)
		}
	}
	if t.Fields != nil {
		c.Fields = make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			c.Fields[i] = Field{Name: arenaString(into, f.Name), Type: f.Type.Clone(into), CAlias: arenaString(into, f.CAlias)}
		}
	}
	if t.Methods != nil {
		c.Methods = make([]*Method, len(t.Methods))
		for i, m := range t.Methods {
			c.Methods[i] = &Method{Name: arenaString(into, m.Name), Type: m.Type.Clone(into), IsNative: m.IsNative}
		}
	}
	return c
}

func arenaString(into *carena.Arena, s string) string {
	if s == "" || into == nil {
		return s
	}
	return into.Strdup(s)
}
