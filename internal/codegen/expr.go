package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sindarin-lang/snc/internal/ast"
)

// emitExpr lowers e to a C expression, grounded on the original
// implementation's single-pass code_gen_expr.c dispatch: the generator
// never builds an intermediate IR, it walks the AST once and returns the
// C text directly.
func (g *Generator) emitExpr(e ast.Expr, sc *stmtCtx) string {
	switch n := e.(type) {
	case *ast.Literal:
		return g.emitLiteral(n)
	case *ast.Variable:
		return g.mangle(n.Name)
	case *ast.BinaryOp:
		return g.emitBinaryOp(n, sc)
	case *ast.UnaryOp:
		return g.emitUnaryOp(n, sc)
	case *ast.Call:
		return g.emitCall(n, sc)
	case *ast.MethodCall:
		return g.emitMethodCall(n, sc)
	case *ast.FieldAccess:
		return fmt.Sprintf("(%s).%s", g.emitExpr(n.Target, sc), n.Field)
	case *ast.Index:
		return g.emitIndex(n, sc)
	case *ast.Slice:
		return g.emitSlice(n, sc)
	case *ast.ArrayLiteral:
		return g.emitArrayLiteral(n, sc)
	case *ast.Lambda:
		return g.emitLambda(n, sc)
	case *ast.ThreadSpawn:
		return g.emitThreadSpawn(n, sc)
	case *ast.ThreadSyncExpr:
		return g.emitThreadSync(n, sc)
	case *ast.SyncList:
		return g.emitSyncList(n, sc)
	}
	return "/* unhandled expr */ 0"
}

func (g *Generator) emitLiteral(n *ast.Literal) string {
	switch v := n.Value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return fmt.Sprintf("%q", v)
	case rune:
		return fmt.Sprintf("%d /* '%c' */", v, v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (g *Generator) emitBinaryOp(n *ast.BinaryOp, sc *stmtCtx) string {
	if ll, lok := n.Left.(*ast.Literal); lok {
		if rl, rok := n.Right.(*ast.Literal); rok {
			if lv, ok1 := ll.Value.(int64); ok1 {
				if rv, ok2 := rl.Value.(int64); ok2 {
					if folded, ok := foldConstantInt(n.Op, lv, rv); ok {
						return strconv.FormatInt(folded, 10)
					}
				}
			}
		}
	}

	left := g.emitExpr(n.Left, sc)
	right := g.emitExpr(n.Right, sc)

	if nativeOperators[n.Op] && n.Left.Type() != nil && n.Left.Type().IsPrimitive() &&
		n.Right.Type() != nil && n.Right.Type().IsPrimitive() {
		return fmt.Sprintf("(%s %s %s)", left, n.Op, right)
	}

	return fmt.Sprintf("rt_dynamic_binop_v2(%q, %s, %s)", n.Op, left, right)
}

func (g *Generator) emitUnaryOp(n *ast.UnaryOp, sc *stmtCtx) string {
	operand := g.emitExpr(n.Operand, sc)
	switch n.Op {
	case "-", "!", "~":
		return fmt.Sprintf("(%s%s)", n.Op, operand)
	}
	return fmt.Sprintf("(%s%s)", n.Op, operand)
}

func (g *Generator) emitCall(n *ast.Call, sc *stmtCtx) string {
	callee := g.emitExpr(n.Callee, sc)
	args := g.emitArgs(n.Args, sc)
	if sc.arenaVar != "" && !g.nativeFuncs[callee] {
		args = append(args, sc.arenaVar)
	}
	return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", "))
}

func (g *Generator) emitMethodCall(n *ast.MethodCall, sc *stmtCtx) string {
	self := g.emitExpr(n.Self, sc)
	args := g.emitArgs(n.Args, sc)
	args = append([]string{self}, args...)
	methodName := n.Method
	if t := n.Self.Type(); t != nil && t.Name != "" {
		methodName = qualifiedMethodName(t.Name, n.Method)
	}
	mangled := g.mangle(methodName)
	if sc.arenaVar != "" && !g.nativeFuncs[mangled] {
		args = append(args, sc.arenaVar)
	}
	return fmt.Sprintf("%s(%s)", mangled, strings.Join(args, ", "))
}

func (g *Generator) emitArgs(exprs []ast.Expr, sc *stmtCtx) []string {
	out := make([]string, 0, len(exprs))
	for _, a := range exprs {
		out = append(out, g.emitExpr(a, sc))
	}
	return out
}

func (g *Generator) emitIndex(n *ast.Index, sc *stmtCtx) string {
	target := g.emitExpr(n.Target, sc)
	idx := g.emitExpr(n.Idx, sc)
	if v, ok := n.Idx.(*ast.Variable); ok && g.loopCounterTracked(g.mangle(v.Name)) {
		return fmt.Sprintf("((%s)(array_data_v2(%s))[%s])", cType(n.Target.Type().Elem), target, idx)
	}
	return fmt.Sprintf("rt_checked_index_v2(%s, %s)", target, idx)
}

func (g *Generator) emitSlice(n *ast.Slice, sc *stmtCtx) string {
	target := g.emitExpr(n.Target, sc)
	start, end, step := "LONG_MIN", "LONG_MIN", "1"
	if n.Start != nil {
		start = g.emitExpr(n.Start, sc)
	}
	if n.End != nil {
		end = g.emitExpr(n.End, sc)
	}
	if n.Step != nil {
		step = g.emitExpr(n.Step, sc)
	}
	return fmt.Sprintf("array_slice_v2(%s, %s, %s, %s)", target, start, end, step)
}

func (g *Generator) emitArrayLiteral(n *ast.ArrayLiteral, sc *stmtCtx) string {
	elemType := "int64_t"
	if n.ExprType != nil && n.ExprType.Elem != nil {
		elemType = cType(n.ExprType.Elem)
	}
	hasSpread := false
	for _, el := range n.Elements {
		if el.Kind == ast.ElemSpread {
			hasSpread = true
		}
	}
	if !hasSpread {
		vals := make([]string, 0, len(n.Elements))
		for _, el := range n.Elements {
			vals = append(vals, g.emitExpr(el.Expr, sc))
		}
		return fmt.Sprintf("array_create_literal_v2(%s, (%s[]){%s}, %d)",
			sc.arenaVar, elemType, strings.Join(vals, ", "), len(vals))
	}
	acc := "array_create_literal_v2(" + sc.arenaVar + ", (" + elemType + "[]){0}, 0)"
	for _, el := range n.Elements {
		if el.Kind == ast.ElemSpread {
			acc = fmt.Sprintf("array_concat_v2(%s, %s, %s)", sc.arenaVar, acc, g.emitExpr(el.Expr, sc))
		} else {
			acc = fmt.Sprintf("array_concat_v2(%s, %s, array_create_literal_v2(%s, (%s[]){%s}, 1))",
				sc.arenaVar, acc, sc.arenaVar, elemType, g.emitExpr(el.Expr, sc))
		}
	}
	return acc
}

// emitLambda allocates a closure struct holding the function pointer and
// the arena it should execute against (spec.md §4.4: lambdas are
// generated as ordinary top-level functions plus a closure value that
// bundles the entry point with its defining arena).
func (g *Generator) emitLambda(n *ast.Lambda, sc *stmtCtx) string {
	name := fmt.Sprintf("__lambda_%d__", g.newLabel())
	c := callable{Name: name, Params: n.Params, Returns: n.Returns, Body: n.Body}
	g.emitTo(&g.lambdaFwds, 0, "%s;\n", g.signature(c))
	g.emitCallableBodyInto(&g.lambdaDefs, c)
	arenaVar := sc.arenaVar
	if g.allocClosureInCaller && sc.callerArenaVar != "" {
		arenaVar = sc.callerArenaVar
	}
	return fmt.Sprintf("rt_closure_make_v2(%s, (void *)%s)", arenaVar, g.mangle(name))
}

func (g *Generator) emitThreadSpawn(n *ast.ThreadSpawn, sc *stmtCtx) string {
	target := g.emitExpr(n.Target, sc)
	args := g.emitArgs(n.Args, sc)
	mode := "RT_ARENA_MODE_DEFAULT"
	switch n.Mode {
	case ast.ModShared:
		mode = "RT_ARENA_MODE_SHARED"
	case ast.ModPrivate:
		mode = "RT_ARENA_MODE_PRIVATE"
	}
	thunk := g.threadTrampoline(target, len(args))
	return fmt.Sprintf("thread_spawn(%s, %s, args_pack_v2(%s, %s, (void*[]){%s}, %d))",
		sc.arenaVar, thunk, sc.arenaVar, mode, strings.Join(args, ", "), len(args))
}

func (g *Generator) emitThreadSync(n *ast.ThreadSyncExpr, sc *stmtCtx) string {
	handle := g.emitExpr(n.Handle, sc)
	if sc.keepArenaOnSync {
		return fmt.Sprintf("thread_sync_with_result_keep_arena(%s, %s, RT_RESULT_KIND_VALUE)", handle, sc.arenaVar)
	}
	return fmt.Sprintf("thread_sync_with_result(%s, %s, RT_RESULT_KIND_VALUE)", handle, sc.arenaVar)
}

func (g *Generator) emitSyncList(n *ast.SyncList, sc *stmtCtx) string {
	parts := make([]string, 0, len(n.Elements))
	for _, el := range n.Elements {
		parts = append(parts, g.emitThreadSync(&ast.ThreadSyncExpr{Handle: el}, sc))
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}
