package codegen

import "github.com/sindarin-lang/snc/internal/ast"

// markTailCalls implements spec.md §4.4.5's tail-call detection: a
// Return whose Value is a direct, unconditional self-call is rewritten
// by emitCallableBody into a loop-back instead of a real C return/call,
// so a recursive function with a tail-recursive shape doesn't grow the C
// stack. This pre-pass only marks candidates; emission decides the
// rewrite.
func markTailCalls(prog *Program) {
	for _, fn := range prog.Functions {
		markTailCallsIn(fn.Name, fn.Body)
	}
	for _, s := range prog.Structs {
		for _, m := range s.Methods {
			markTailCallsIn(m.Name, m.Body)
		}
	}
}

func markTailCallsIn(fnName string, stmts []ast.Stmt) {
	if len(stmts) == 0 {
		return
	}
	markTailTail(fnName, stmts[len(stmts)-1])
	for _, s := range stmts[:len(stmts)-1] {
		markTailNested(fnName, s)
	}
}

// markTailTail visits a statement known to be in tail position within
// its enclosing block.
func markTailTail(fnName string, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Return:
		if isSelfCall(fnName, n.Value) {
			n.IsTailCall = true
		}
	case *ast.Block:
		markTailCallsIn(fnName, n.Stmts)
	case *ast.If:
		markTailTail(fnName, n.Then)
		if n.Else != nil {
			markTailTail(fnName, n.Else)
		}
	}
}

// markTailNested visits statements that are not the last statement of
// their block. A `return f(...)` self-call is a tail call wherever it
// appears, so a Return found here is marked as well; Block and If
// bodies are searched, loop bodies are not.
func markTailNested(fnName string, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Return:
		if isSelfCall(fnName, n.Value) {
			n.IsTailCall = true
		}
	case *ast.Block:
		for _, inner := range n.Stmts {
			markTailNested(fnName, inner)
		}
	case *ast.If:
		markTailNested(fnName, n.Then)
		if n.Else != nil {
			markTailNested(fnName, n.Else)
		}
	}
}

func isSelfCall(fnName string, e ast.Expr) bool {
	call, ok := e.(*ast.Call)
	if !ok {
		return false
	}
	v, ok := call.Callee.(*ast.Variable)
	return ok && v.Name == fnName
}

// containsTailCall reports whether any Return reachable without
// crossing a nested function/lambda boundary was marked by
// markTailCalls, which decides whether emitCallableBody needs the
// while(1) rewrite at all.
func containsTailCall(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		if stmtHasTailCall(s) {
			return true
		}
	}
	return false
}

func stmtHasTailCall(s ast.Stmt) bool {
	switch n := s.(type) {
	case *ast.Return:
		return n.IsTailCall
	case *ast.Block:
		return containsTailCall(n.Stmts)
	case *ast.If:
		if stmtHasTailCall(n.Then) {
			return true
		}
		return n.Else != nil && stmtHasTailCall(n.Else)
	}
	return false
}

// foldConstantInt implements spec.md §4.4.5's constant folding: integer
// literal-literal binary operations are evaluated at compile time with
// native two's-complement wraparound, which Go's int64 arithmetic
// already gives for free.
func foldConstantInt(op string, l, r int64) (int64, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case "%":
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case "&":
		return l & r, true
	case "|":
		return l | r, true
	case "^":
		return l ^ r, true
	case "<<":
		return l << uint64(r), true
	case ">>":
		return l >> uint64(r), true
	}
	return 0, false
}

// nativeOperators lists the operators with a direct one-to-one C
// operator equivalent, letting expr.go take a fast path that emits a
// plain infix expression instead of a generic runtime dispatch when
// both operands are primitive (spec.md §4.4.5's "native operator fast
// path"). Division and modulo are deliberately excluded: spec.md
// §4.4.3/§4.4.5 require they always route through the runtime's
// zero-check dispatch, never a bare C `/`/`%`.
var nativeOperators = map[string]bool{
	"+": true, "-": true, "*": true,
	"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true,
	"&&": true, "||": true, "&": true, "|": true, "^": true, "<<": true, ">>": true,
}

// trackLoopCounter registers a simple `for (i = 0; i < bound; i++)`-shaped
// counter as non-negative for the duration of the loop body, so Index
// emission downstream can skip the redundant lower-bound check (spec.md
// §4.4.5's loop-counter non-negativity tracking). The name is popped
// again by the caller once the loop body has been emitted.
func (g *Generator) trackLoopCounter(name string) {
	g.loopCounters = append(g.loopCounters, name)
}

func (g *Generator) untrackLoopCounter() {
	if len(g.loopCounters) > 0 {
		g.loopCounters = g.loopCounters[:len(g.loopCounters)-1]
	}
}

func (g *Generator) loopCounterTracked(name string) bool {
	for _, c := range g.loopCounters {
		if c == name {
			return true
		}
	}
	return false
}

// simpleForCounter extracts the counter variable name from a for-loop
// shaped like `for (var i = k; i < bound; ...)` with an integer literal
// k >= 0, or "" if the loop doesn't match that shape (spec.md §8:
// is_provably_non_negative holds for any literal start k >= 0, not just
// k == 0). The increment clause is not inspected.
func simpleForCounter(f *ast.For) string {
	decl, ok := f.Init.(*ast.VarDecl)
	if !ok {
		return ""
	}
	lit, ok := decl.Init.(*ast.Literal)
	if !ok {
		return ""
	}
	if n, ok := lit.Value.(int64); !ok || n < 0 {
		return ""
	}
	cond, ok := f.Cond.(*ast.BinaryOp)
	if !ok || cond.Op != "<" {
		return ""
	}
	v, ok := cond.Left.(*ast.Variable)
	if !ok || v.Name != decl.Name {
		return ""
	}
	return decl.Name
}
