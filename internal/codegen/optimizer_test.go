package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sindarin-lang/snc/internal/ast"
)

func TestFoldConstantIntWraparound(t *testing.T) {
	v, ok := foldConstantInt("+", 9223372036854775807, 1)
	require.True(t, ok)
	require.Equal(t, int64(-9223372036854775808), v) // two's-complement wraparound, native to int64
}

func TestFoldConstantIntDivByZeroIsNotFolded(t *testing.T) {
	_, ok := foldConstantInt("/", 10, 0)
	require.False(t, ok)
}

func TestNativeOperatorsExcludeDivisionAndModulo(t *testing.T) {
	require.False(t, nativeOperators["/"], "division must always route through the runtime's zero check")
	require.False(t, nativeOperators["%"], "modulo must always route through the runtime's zero check")
	require.True(t, nativeOperators["+"])
}

func TestFoldConstantIntUnknownOp(t *testing.T) {
	_, ok := foldConstantInt("@@@", 1, 2)
	require.False(t, ok)
}

func TestMarkTailCallsOnlyMarksTailPosition(t *testing.T) {
	selfCall := &ast.Call{Callee: &ast.Variable{Name: "f"}}
	tailRet := &ast.Return{Value: selfCall}
	stmts := []ast.Stmt{
		&ast.ExprStmt{X: &ast.Call{Callee: &ast.Variable{Name: "f"}}},
		tailRet,
	}
	markTailCallsIn("f", stmts)
	require.True(t, tailRet.IsTailCall)
}

func TestMarkTailCallsRejectsNonSelfCall(t *testing.T) {
	ret := &ast.Return{Value: &ast.Call{Callee: &ast.Variable{Name: "other"}}}
	markTailCallsIn("f", []ast.Stmt{ret})
	require.False(t, ret.IsTailCall)
}

func TestMarkTailCallsFollowsIfBranches(t *testing.T) {
	thenRet := &ast.Return{Value: &ast.Call{Callee: &ast.Variable{Name: "f"}}}
	elseRet := &ast.Return{Value: &ast.Call{Callee: &ast.Variable{Name: "f"}}}
	ifStmt := &ast.If{Then: thenRet, Else: elseRet}
	markTailCallsIn("f", []ast.Stmt{ifStmt})
	require.True(t, thenRet.IsTailCall)
	require.True(t, elseRet.IsTailCall)
}

func TestContainsTailCallFindsNestedBlock(t *testing.T) {
	ret := &ast.Return{IsTailCall: true}
	block := &ast.Block{Stmts: []ast.Stmt{ret}}
	require.True(t, containsTailCall([]ast.Stmt{block}))
}

func TestLoopCounterTrackingIsStackLike(t *testing.T) {
	g := newGen()
	require.False(t, g.loopCounterTracked("i"))
	g.trackLoopCounter("i")
	require.True(t, g.loopCounterTracked("i"))
	g.untrackLoopCounter()
	require.False(t, g.loopCounterTracked("i"))
}

func TestSimpleForCounterRecognizesShape(t *testing.T) {
	f := &ast.For{
		Init: &ast.VarDecl{Name: "i", Init: &ast.Literal{Value: int64(0)}},
		Cond: &ast.BinaryOp{Op: "<", Left: &ast.Variable{Name: "i"}, Right: &ast.Literal{Value: int64(10)}},
	}
	require.Equal(t, "i", simpleForCounter(f))
}

func TestSimpleForCounterAcceptsNonZeroNonNegativeStart(t *testing.T) {
	f := &ast.For{
		Init: &ast.VarDecl{Name: "i", Init: &ast.Literal{Value: int64(5)}},
		Cond: &ast.BinaryOp{Op: "<", Left: &ast.Variable{Name: "i"}, Right: &ast.Literal{Value: int64(10)}},
	}
	require.Equal(t, "i", simpleForCounter(f))
}

func TestSimpleForCounterRejectsNegativeStart(t *testing.T) {
	f := &ast.For{
		Init: &ast.VarDecl{Name: "i", Init: &ast.Literal{Value: int64(-1)}},
		Cond: &ast.BinaryOp{Op: "<", Left: &ast.Variable{Name: "i"}, Right: &ast.Literal{Value: int64(10)}},
	}
	require.Equal(t, "", simpleForCounter(f))
}
