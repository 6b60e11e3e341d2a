package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sindarin-lang/snc/internal/carena"
)

func TestPrimitiveEqualsStructural(t *testing.T) {
	require.True(t, Primitive(Int).Equals(Primitive(Int)))
	require.False(t, Primitive(Int).Equals(Primitive(Double)))
}

func TestArrayEqualsStructural(t *testing.T) {
	a := NewArray(Primitive(Int))
	b := NewArray(Primitive(Int))
	c := NewArray(Primitive(Double))
	require.True(t, a.Equals(b))
	require.False(t, a.Equals(c))
}

func TestStructEqualsNominal(t *testing.T) {
	a := &Type{Kind: Struct, Name: "Point", Fields: []Field{{Name: "x", Type: Primitive(Int)}}}
	b := &Type{Kind: Struct, Name: "Point", Fields: []Field{{Name: "x", Type: Primitive(Double)}}}
	c := &Type{Kind: Struct, Name: "Vec3"}
	require.True(t, a.Equals(b), "nominal equality ignores field differences")
	require.False(t, a.Equals(c))
}

func TestFunctionEqualsRecursive(t *testing.T) {
	f1 := NewFunction(Primitive(Int), []*Type{Primitive(Int), Primitive(Double)}, false)
	f2 := NewFunction(Primitive(Int), []*Type{Primitive(Int), Primitive(Double)}, false)
	f3 := NewFunction(Primitive(Int), []*Type{Primitive(Int)}, false)
	require.True(t, f1.Equals(f2))
	require.False(t, f1.Equals(f3))
}

func TestCloneProducesDistinctEqualTree(t *testing.T) {
	a := carena.New(256)
	orig := &Type{
		Kind: Struct,
		Name: "Builder",
		Fields: []Field{
			{Name: "s", Type: Primitive(String)},
			{Name: "items", Type: NewArray(Primitive(Int))},
		},
	}
	clone := orig.Clone(a)
	require.True(t, orig.Equals(clone))
	require.NotSame(t, orig, clone)
	require.NotSame(t, &orig.Fields[0], &clone.Fields[0])
}

func TestHandleAndPrimitiveSize(t *testing.T) {
	require.Equal(t, 8, Primitive(String).Size())
	require.Equal(t, 8, NewArray(Primitive(Int)).Size())
	require.Equal(t, 8, NewPointer(Primitive(Int)).Size())
	require.Equal(t, 1, Primitive(Byte).Size())
	require.Equal(t, 8, Primitive(Long).Size())
}

func TestOpaqueWellKnown(t *testing.T) {
	require.True(t, NewOpaque("FILE").WellKnown)
	require.True(t, NewOpaque("DIR").WellKnown)
	require.False(t, NewOpaque("MyHandle").WellKnown)
}

func TestStructPackedSize(t *testing.T) {
	packed := &Type{Kind: Struct, Name: "Packed", IsPacked: true, Fields: []Field{
		{Name: "a", Type: Primitive(Byte)},
		{Name: "b", Type: Primitive(Int)},
	}}
	require.Equal(t, 9, packed.Size())

	unpacked := &Type{Kind: Struct, Name: "Unpacked", Fields: []Field{
		{Name: "a", Type: Primitive(Byte)},
		{Name: "b", Type: Primitive(Int)},
	}}
	require.Equal(t, 16, unpacked.Size())
}
