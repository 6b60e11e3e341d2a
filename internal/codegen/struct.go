package codegen

import (
	"fmt"
	"strings"

	"github.com/sindarin-lang/snc/internal/ast"
	"github.com/sindarin-lang/snc/internal/types"
)

// emitOpaqueOrStructFwd emits the forward typedef every struct needs
// before any function signature can reference it (spec.md §4.4: struct
// typedefs are a separate, earlier section than struct bodies so two
// structs may reference each other through pointer fields).
func (g *Generator) emitOpaqueOrStructFwd(s *ast.StructDecl) {
	name := g.mangle(s.Name)
	if s.IsNative {
		alias := s.CAlias
		if alias == "" {
			alias = name
		}
		g.emitTo(&g.opaqueFwds, 0, "typedef %s %s;\n", alias, name)
		return
	}
	g.emitTo(&g.opaqueFwds, 0, "typedef struct %s %s;\n", name, name)
}

// emitStruct emits a struct's field layout and its methods. Methods
// share emitCallableBodyInto with ordinary functions via an implicit
// self parameter (spec.md §4.4.4).
func (g *Generator) emitStruct(s *ast.StructDecl) error {
	name := g.mangle(s.Name)
	if g.emittedStructs[s.Name] {
		return nil
	}
	g.emittedStructs[s.Name] = true

	if s.IsNative {
		return g.emitNativeStructMethods(s)
	}

	var b strings.Builder
	g.emitTo(&b, 0, "struct %s {\n", name)
	for _, f := range s.Fields {
		g.emitTo(&b, 1, "%s %s;\n", cType(f.Type), fieldCName(f))
	}
	if s.IsPacked {
		g.emitTo(&b, 0, "} __attribute__((packed));\n\n")
	} else {
		g.emitTo(&b, 0, "};\n\n")
	}
	g.structTypedefs.WriteString(b.String())

	selfType := structSelfType(s)
	for _, m := range s.Methods {
		g.emitTo(&g.methodFwds, 0, "%s;\n",
			g.signature(callable{
				Name: qualifiedMethodName(s.Name, m.Name), Params: m.Params, Returns: m.Returns,
				SelfType: selfType, PassSelfByRef: s.PassSelfByRef,
			}))
	}
	for _, m := range s.Methods {
		c := callable{
			Name: qualifiedMethodName(s.Name, m.Name), Params: m.Params, Returns: m.Returns,
			Modifier: m.Modifier, Body: m.Body, SelfType: selfType, PassSelfByRef: s.PassSelfByRef,
		}
		g.emitCallableBodyInto(&g.fnBodies, c)
	}
	return nil
}

// emitNativeStructMethods handles a struct declared native (an FFI
// binding to an existing C type): no struct body is emitted, only extern
// prototypes for its methods, mirroring how native FuncDecls are handled
// in emitFunctionFwd.
func (g *Generator) emitNativeStructMethods(s *ast.StructDecl) error {
	selfType := structSelfType(s)
	for _, m := range s.Methods {
		qualified := qualifiedMethodName(s.Name, m.Name)
		g.nativeFuncs[g.mangle(qualified)] = true
		g.emitTo(&g.nativeExterns, 0, "extern %s;\n",
			g.signature(callable{
				Name: qualified, Params: m.Params, Returns: m.Returns,
				SelfType: selfType, PassSelfByRef: s.PassSelfByRef, IsNative: true,
			}))
	}
	return nil
}

func qualifiedMethodName(structName, methodName string) string {
	return fmt.Sprintf("%s_%s", structName, methodName)
}

func structSelfType(s *ast.StructDecl) *types.Type {
	return &types.Type{
		Kind: types.Struct, Name: s.Name, Fields: s.Fields,
		IsPacked: s.IsPacked, CAlias: s.CAlias, PassSelfByRef: s.PassSelfByRef,
		IsNative: s.IsNative,
	}
}

// structHasHandleFields reports whether any field of t needs promotion
// at all, letting emitSelfFieldPromotion's caller skip emitting an empty
// promotion block for plain-old-data structs (SPEC_FULL.md supplemented
// feature: struct_has_handle_fields fast path).
func structHasHandleFields(t *types.Type) bool {
	for _, f := range t.Fields {
		if !f.Type.IsPrimitive() {
			return true
		}
	}
	return false
}
