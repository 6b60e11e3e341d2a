package codegen

import (
	"strings"

	"github.com/sindarin-lang/snc/internal/ast"
	"github.com/sindarin-lang/snc/internal/symtab"
	"github.com/sindarin-lang/snc/internal/types"
)

// stmtCtx threads the per-function state statement emission needs
// without adding it to Generator itself, since it must nest correctly
// across lambda bodies buffered mid-expression (spec.md §4.4).
type stmtCtx struct {
	arenaVar        string
	callerArenaVar  string
	returnsVoid     bool
	selfType        *types.Type
	tailCallLabel   string
	paramNames      []string
	paramCTypes     []string
	keepArenaOnSync bool
}

func (g *Generator) emitStmt(b *strings.Builder, indent int, s ast.Stmt, sc *stmtCtx) {
	switch n := s.(type) {
	case *ast.Block:
		g.emitTo(b, indent, "{\n")
		for _, inner := range n.Stmts {
			g.emitStmt(b, indent+1, inner, sc)
		}
		g.emitTo(b, indent, "}\n")
	case *ast.VarDecl:
		g.emitVarDecl(b, indent, n, sc)
	case *ast.ExprStmt:
		g.emitTo(b, indent, "%s;\n", g.emitExpr(n.X, sc))
	case *ast.If:
		g.emitTo(b, indent, "if (%s) {\n", g.emitExpr(n.Cond, sc))
		g.emitStmt(b, indent+1, n.Then, sc)
		g.emitTo(b, indent, "}")
		if n.Else != nil {
			b.WriteString(" else {\n")
			g.emitStmt(b, indent+1, n.Else, sc)
			g.emitTo(b, indent, "}\n")
		} else {
			b.WriteString("\n")
		}
	case *ast.While:
		g.emitTo(b, indent, "while (%s) {\n", g.emitExpr(n.Cond, sc))
		g.emitStmt(b, indent+1, n.Body, sc)
		g.emitTo(b, indent, "}\n")
	case *ast.For:
		g.emitForStmt(b, indent, n, sc)
	case *ast.ForEach:
		g.emitForEach(b, indent, n, sc)
	case *ast.Return:
		g.emitReturn(b, indent, n, sc)
	case *ast.Break:
		g.emitTo(b, indent, "break;\n")
	case *ast.Continue:
		g.emitTo(b, indent, "continue;\n")
	case *ast.ThreadSyncStmt:
		g.emitThreadSyncStmt(b, indent, n, sc)
	default:
		g.emitTo(b, indent, "/* unhandled stmt */;\n")
	}
}

func (g *Generator) emitVarDecl(b *strings.Builder, indent int, n *ast.VarDecl, sc *stmtCtx) {
	ct := cType(n.Type)
	if n.Init == nil {
		g.emitTo(b, indent, "%s %s = %s;\n", ct, g.mangle(n.Name), defaultValue(n.Type))
		return
	}
	init := g.emitExpr(n.Init, sc)
	if n.Type.IsHandle() && n.MemQual == symtab.Default {
		g.emitTo(b, indent, "%s %s = arena_v2_clone(%s, %s);\n", ct, g.mangle(n.Name), sc.arenaVar, init)
		return
	}
	g.emitTo(b, indent, "%s %s = %s;\n", ct, g.mangle(n.Name), init)
}

func (g *Generator) emitForStmt(b *strings.Builder, indent int, n *ast.For, sc *stmtCtx) {
	counter := simpleForCounter(n)
	if counter != "" {
		g.trackLoopCounter(g.mangle(counter))
		defer g.untrackLoopCounter()
	}

	initStr := ""
	if n.Init != nil {
		var ib strings.Builder
		g.emitStmt(&ib, 0, n.Init, sc)
		initStr = strings.TrimSuffix(strings.TrimSpace(ib.String()), ";")
	}
	condStr := ""
	if n.Cond != nil {
		condStr = g.emitExpr(n.Cond, sc)
	}
	incStr := ""
	if n.Increment != nil {
		incStr = g.emitExpr(n.Increment, sc)
	}
	g.emitTo(b, indent, "for (%s; %s; %s) {\n", initStr, condStr, incStr)
	g.emitStmt(b, indent+1, n.Body, sc)
	g.emitTo(b, indent, "}\n")
}

// emitForEach lowers `for x in iterable` to an index-based C for loop
// over the iterable's handle-backed storage (spec.md §4.4.2), since the
// runtime never exposes an iterator protocol, only length/data accessors.
// The iterable is evaluated once into a handle temporary; each element
// read is bracketed in its own begin/end transaction so the loop body
// may safely block (e.g. a thread sync) without holding one open.
func (g *Generator) emitForEach(b *strings.Builder, indent int, n *ast.ForEach, sc *stmtCtx) {
	iterable := g.emitExpr(n.Iterable, sc)
	iter := g.newTemp("iter")
	idx := g.newTemp("idx")
	elemType := "int64_t"
	if n.Iterable.Type() != nil && n.Iterable.Type().Elem != nil {
		elemType = cType(n.Iterable.Type().Elem)
	}
	g.emitTo(b, indent, "RtHandleV2 *%s = %s;\n", iter, iterable)
	g.emitTo(b, indent, "for (size_t %s = 0; %s < array_length_v2(%s); %s++) {\n", idx, idx, iter, idx)
	g.emitTo(b, indent+1, "handle_begin_transaction(%s);\n", iter)
	g.emitTo(b, indent+1, "%s %s = ((%s *)array_data_v2(%s))[%s];\n", elemType, g.mangle(n.VarName), elemType, iter, idx)
	g.emitTo(b, indent+1, "handle_end_transaction(%s);\n", iter)
	g.emitStmt(b, indent+1, n.Body, sc)
	g.emitTo(b, indent, "}\n")
}

func (g *Generator) emitReturn(b *strings.Builder, indent int, n *ast.Return, sc *stmtCtx) {
	if n.IsTailCall && sc.tailCallLabel != "" {
		call := n.Value.(*ast.Call)
		temps := make([]string, len(call.Args))
		for i, a := range call.Args {
			temps[i] = g.newTemp("tc_arg")
			ct := "int64_t"
			if i < len(sc.paramCTypes) {
				ct = sc.paramCTypes[i]
			}
			g.emitTo(b, indent, "%s %s = %s;\n", ct, temps[i], g.emitExpr(a, sc))
		}
		for i, t := range temps {
			if i < len(sc.paramNames) {
				g.emitTo(b, indent, "%s = %s;\n", sc.paramNames[i], t)
			}
		}
		g.emitTo(b, indent, "goto %s;\n", sc.tailCallLabel)
		return
	}
	if sc.returnsVoid || n.Value == nil {
		g.emitTo(b, indent, "goto __ret_label__;\n")
		return
	}
	g.emitTo(b, indent, "__ret__ = %s;\n", g.emitExpr(n.Value, sc))
	g.emitTo(b, indent, "goto __ret_label__;\n")
}

func (g *Generator) emitThreadSyncStmt(b *strings.Builder, indent int, n *ast.ThreadSyncStmt, sc *stmtCtx) {
	switch h := n.Handle.(type) {
	case *ast.SyncList:
		for i, el := range h.Elements {
			val := g.emitThreadSync(&ast.ThreadSyncExpr{Handle: el}, sc)
			if i < len(n.Targets) {
				g.emitTo(b, indent, "%s = %s;\n", g.mangle(n.Targets[i]), val)
			} else {
				g.emitTo(b, indent, "%s;\n", val)
			}
		}
	default:
		val := g.emitExpr(n.Handle, sc)
		if len(n.Targets) == 1 {
			g.emitTo(b, indent, "%s = %s;\n", g.mangle(n.Targets[0]), val)
		} else {
			g.emitTo(b, indent, "%s;\n", val)
		}
	}
}
