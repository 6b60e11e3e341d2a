package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sindarin-lang/snc/internal/ast"
	"github.com/sindarin-lang/snc/internal/carena"
	"github.com/sindarin-lang/snc/internal/diag"
	"github.com/sindarin-lang/snc/internal/symtab"
	"github.com/sindarin-lang/snc/internal/types"
)

func newGen() *Generator {
	a := carena.New(4096)
	return New(symtab.New(a), diag.New(nil))
}

func intVar(name string, t *types.Type) *ast.Variable {
	v := &ast.Variable{Name: name}
	v.SetType(t)
	return v
}

func TestGenerateEmptyMainProducesTranslationUnit(t *testing.T) {
	g := newGen()
	prog := &Program{
		Functions: []*ast.FuncDecl{
			{Name: "main", Returns: types.Primitive(types.Void), Body: nil},
		},
	}
	out, err := g.Generate(prog)
	require.NoError(t, err)
	require.Contains(t, out, "int main(")
	require.Contains(t, out, "arena_v2_create(NULL, RT_ARENA_MODE_DEFAULT")
	require.Contains(t, out, "return 0;")
}

func TestEmitFunctionAddsCallerArenaParam(t *testing.T) {
	g := newGen()
	intT := types.Primitive(types.Int)
	fn := &ast.FuncDecl{
		Name:    "add",
		Params:  []ast.Param{{Name: "a", Type: intT}, {Name: "b", Type: intT}},
		Returns: intT,
		Body: []ast.Stmt{
			&ast.Return{Value: &ast.BinaryOp{Op: "+", Left: intVar("a", intT), Right: intVar("b", intT)}},
		},
	}
	prog := &Program{Functions: []*ast.FuncDecl{fn}}
	out, err := g.Generate(prog)
	require.NoError(t, err)
	require.Contains(t, out, "RtArenaV2 *caller_arena")
	require.Contains(t, out, "(a + b)")
}

func TestNativeFunctionGetsExternNoArenaParam(t *testing.T) {
	g := newGen()
	fn := &ast.FuncDecl{Name: "puts", Returns: types.Primitive(types.Int), IsNative: true,
		Params: []ast.Param{{Name: "s", Type: types.NewPointer(types.Primitive(types.Char))}}}
	g.emitFunctionFwd(fn)
	out := g.nativeExterns.String()
	require.Contains(t, out, "extern")
	require.NotContains(t, out, "caller_arena")
}

func TestPrivateModifierCreatesPrivateArena(t *testing.T) {
	g := newGen()
	fn := &ast.FuncDecl{Name: "scratch", Modifier: ast.ModPrivate, Returns: types.Primitive(types.Void)}
	prog := &Program{Functions: []*ast.FuncDecl{fn}}
	out, err := g.Generate(prog)
	require.NoError(t, err)
	require.Contains(t, out, "RT_ARENA_MODE_PRIVATE")
}

func TestSharedModifierAliasesCallerArena(t *testing.T) {
	g := newGen()
	fn := &ast.FuncDecl{Name: "worker", Modifier: ast.ModShared, Returns: types.Primitive(types.Void)}
	prog := &Program{Functions: []*ast.FuncDecl{fn}}
	out, err := g.Generate(prog)
	require.NoError(t, err)
	require.Contains(t, out, "__local_arena__ = caller_arena;")
	require.NotContains(t, out, "arena_v2_destroy(__local_arena__)")
}

func TestTailCallRewritesToGotoLoop(t *testing.T) {
	g := newGen()
	intT := types.Primitive(types.Int)
	fn := &ast.FuncDecl{
		Name:    "countdown",
		Params:  []ast.Param{{Name: "n", Type: intT}},
		Returns: intT,
		Body: []ast.Stmt{
			&ast.Return{Value: &ast.Call{Callee: &ast.Variable{Name: "countdown"}, Args: []ast.Expr{intVar("n", intT)}}},
		},
	}
	prog := &Program{Functions: []*ast.FuncDecl{fn}}
	out, err := g.Generate(prog)
	require.NoError(t, err)
	require.Contains(t, out, "while (1) {")
	require.Contains(t, out, "goto __tailcall_loop__;")
}

func TestStructMethodEmitsQualifiedName(t *testing.T) {
	g := newGen()
	fieldT := types.Primitive(types.Int)
	st := &ast.StructDecl{
		Name:   "Counter",
		Fields: []types.Field{{Name: "n", Type: fieldT}},
		Methods: []*ast.MethodDecl{
			{Name: "get", Returns: fieldT, Body: []ast.Stmt{&ast.Return{Value: intVar("n", fieldT)}}},
		},
	}
	prog := &Program{Structs: []*ast.StructDecl{st},
		Functions: []*ast.FuncDecl{{Name: "main", Returns: types.Primitive(types.Void)}}}
	out, err := g.Generate(prog)
	require.NoError(t, err)
	require.Contains(t, out, "struct Counter {")
	require.Contains(t, out, "Counter_get(")
}

func TestMangleRenamesCKeywords(t *testing.T) {
	g := newGen()
	require.Equal(t, "sn_for", g.mangle("for"))
	require.Equal(t, "x", g.mangle("x"))
	require.Equal(t, "sn_for", g.mangle("for")) // cached, stable
}

func TestRuntimeContractBannerGatesOnFeatures(t *testing.T) {
	bare := runtimeContractBanner(RuntimeFeatures{Core: true})
	require.NotContains(t, bare, "thread_spawn")

	withThreads := runtimeContractBanner(RuntimeFeatures{Core: true, Threads: true})
	require.Contains(t, withThreads, "thread_spawn")
}

func TestAnalyzeFeaturesDetectsThreadsAndArrays(t *testing.T) {
	prog := &Program{
		Functions: []*ast.FuncDecl{{
			Name: "main",
			Body: []ast.Stmt{
				&ast.ExprStmt{X: &ast.ThreadSpawn{Target: &ast.Variable{Name: "worker"}}},
				&ast.VarDecl{Name: "xs", Type: types.NewArray(types.Primitive(types.Int)),
					Init: &ast.ArrayLiteral{}},
			},
		}},
	}
	f := AnalyzeFeatures(prog)
	require.True(t, f.Threads)
	require.True(t, f.Arrays)
	require.False(t, f.Closures)
}

func TestAssembleOrdersSectionsPerSpec(t *testing.T) {
	g := newGen()
	g.includes.WriteString("INCLUDES")
	g.structTypedefs.WriteString("STRUCTS")
	g.fnBodies.WriteString("BODIES")
	g.lambdaDefs.WriteString("LAMBDAS")
	out := g.assemble()
	require.True(t, strings.Index(out, "INCLUDES") < strings.Index(out, "STRUCTS"))
	require.True(t, strings.Index(out, "STRUCTS") < strings.Index(out, "BODIES"))
	require.True(t, strings.Index(out, "BODIES") < strings.Index(out, "LAMBDAS"))
}
