package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sindarin-lang/snc/internal/ast"
	"github.com/sindarin-lang/snc/internal/types"
)

// TestEmitForEachEvaluatesIterableOnceAndBracketsElementRead covers
// scenario #5 (spec.md §8): the iterable must be evaluated exactly once
// into a handle temporary, and each element read must sit inside its own
// begin/end transaction so the loop body may safely block.
func TestEmitForEachEvaluatesIterableOnceAndBracketsElementRead(t *testing.T) {
	g := newGen()
	arrT := &types.Type{Kind: types.Array, Elem: types.Primitive(types.Int)}
	call := &ast.Call{Callee: &ast.Variable{Name: "build"}}
	call.SetType(arrT)

	n := &ast.ForEach{
		VarName:  "x",
		Iterable: call,
		Body:     &ast.Block{},
	}

	sc := &stmtCtx{arenaVar: "__local_arena__", callerArenaVar: "caller_arena"}
	var b strings.Builder
	g.emitForEach(&b, 0, n, sc)
	out := b.String()

	require.Equal(t, 1, strings.Count(out, "build("), "iterable must be evaluated exactly once, got:\n%s", out)
	require.Contains(t, out, "RtHandleV2 *")
	require.Contains(t, out, "= build(")

	beginIdx := strings.Index(out, "handle_begin_transaction(")
	readIdx := strings.Index(out, "array_data_v2(")
	endIdx := strings.Index(out, "handle_end_transaction(")
	require.Greater(t, beginIdx, -1)
	require.Greater(t, readIdx, -1)
	require.Greater(t, endIdx, -1)
	require.True(t, beginIdx < readIdx && readIdx < endIdx,
		"element read must sit inside begin/end transaction, got:\n%s", out)

	require.Contains(t, out, "array_length_v2(")
	require.NotContains(t, out, "array_length_v2(build(")
	require.NotContains(t, out, "array_data_v2(build(")
}
