package codegen

import (
	"fmt"
	"strings"

	"github.com/sindarin-lang/snc/internal/ast"
	"github.com/sindarin-lang/snc/internal/types"
)

// RuntimeFeatures gates which pieces of the arena/handle runtime get
// emitted: the compiler decides what the program needs from a single
// AST walk, the user never passes runtime flags.
type RuntimeFeatures struct {
	Core      bool // always true: arenas, handles, transactions
	Arrays    bool
	Closures  bool
	Any       bool
	Threads   bool
	Structs   bool
}

// AnalyzeFeatures walks prog once to decide which runtime sections are
// required, so the runtime-contract banner of a program that never
// spawns a thread omits the thread entry points. The includes
// (pthread.h among them) are the same for every program.
func AnalyzeFeatures(prog *Program) RuntimeFeatures {
	f := RuntimeFeatures{Core: true}
	f.Structs = len(prog.Structs) > 0

	var walkStmts func([]ast.Stmt)
	var walkExpr func(ast.Expr)

	walkExpr = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.ArrayLiteral:
			f.Arrays = true
			for _, el := range n.Elements {
				walkExpr(el.Expr)
			}
		case *ast.Index:
			f.Arrays = true
			walkExpr(n.Target)
			walkExpr(n.Idx)
		case *ast.Slice:
			f.Arrays = true
			walkExpr(n.Target)
		case *ast.Lambda:
			f.Closures = true
			walkStmts(n.Body)
		case *ast.ThreadSpawn:
			f.Threads = true
			walkExpr(n.Target)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.ThreadSyncExpr:
			f.Threads = true
			walkExpr(n.Handle)
		case *ast.SyncList:
			f.Threads = true
			for _, el := range n.Elements {
				walkExpr(el)
			}
		case *ast.BinaryOp:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.UnaryOp:
			walkExpr(n.Operand)
		case *ast.Call:
			walkExpr(n.Callee)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.MethodCall:
			walkExpr(n.Self)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.FieldAccess:
			walkExpr(n.Target)
		}
		if e.Type() != nil && e.Type().Kind == types.Any {
			f.Any = true
		}
	}

	walkStmts = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.Block:
				walkStmts(n.Stmts)
			case *ast.VarDecl:
				walkExpr(n.Init)
			case *ast.ExprStmt:
				walkExpr(n.X)
			case *ast.If:
				walkExpr(n.Cond)
				walkStmts([]ast.Stmt{n.Then})
				if n.Else != nil {
					walkStmts([]ast.Stmt{n.Else})
				}
			case *ast.While:
				walkExpr(n.Cond)
				walkStmts([]ast.Stmt{n.Body})
			case *ast.For:
				if n.Init != nil {
					walkStmts([]ast.Stmt{n.Init})
				}
				walkExpr(n.Cond)
				walkExpr(n.Increment)
				walkStmts([]ast.Stmt{n.Body})
			case *ast.ForEach:
				f.Arrays = true
				walkExpr(n.Iterable)
				walkStmts([]ast.Stmt{n.Body})
			case *ast.Return:
				walkExpr(n.Value)
			case *ast.ThreadSyncStmt:
				f.Threads = true
				walkExpr(n.Handle)
			}
		}
	}

	for _, fn := range prog.Functions {
		walkStmts(fn.Body)
	}
	for _, st := range prog.Structs {
		for _, m := range st.Methods {
			walkStmts(m.Body)
		}
	}
	walkStmts(prog.TopLevel)
	for _, gd := range prog.Globals {
		walkExpr(gd.Init)
	}
	return f
}

func (g *Generator) emitIncludes(pragmas []string) {
	g.includes.WriteString(`#define _POSIX_C_SOURCE 200112L
#include <stdlib.h>
#include <stdio.h>
#include <stdint.h>
#include <stdbool.h>
#include <string.h>
#include <limits.h>
#include <pthread.h>
#include "runtime.h"
`)
	for _, p := range pragmas {
		fmt.Fprintf(&g.pragmaIncludes, "#include %q\n", p)
	}
}

// emitRuntimeTypes documents (as a comment banner) the runtime contract
// surface from spec.md §4.3 that "runtime.h" is required to provide; the
// generator never implements these functions itself, it only emits
// calls against them, per spec.md §1 ("not its full implementation").
func (g *Generator) emitRuntimeTypes() {
	g.runtimeTypes.WriteString(runtimeContractBanner(g.features))
}

func runtimeContractBanner(f RuntimeFeatures) string {
	var b strings.Builder
	b.WriteString("\n/*\n")
	b.WriteString(" * Runtime contract surface (provided by runtime.h, not emitted here).\n")
	b.WriteString(" * Entry points the generated code that follows may call; the list is not exhaustive.\n")
	b.WriteString(" *\n")
	b.WriteString(" * RtArenaV2 *arena_v2_create(RtArenaV2 *parent, RtArenaMode mode, const char *label);\n")
	b.WriteString(" * void       arena_v2_destroy(RtArenaV2 *a);\n")
	b.WriteString(" * void       arena_v2_condemn(RtArenaV2 *a);\n")
	b.WriteString(" * RtHandleV2 *arena_v2_alloc(RtArenaV2 *a, size_t n);\n")
	b.WriteString(" * RtHandleV2 *arena_v2_clone(RtArenaV2 *a, RtHandleV2 *h);\n")
	b.WriteString(" * RtHandleV2 *arena_v2_promote(RtArenaV2 *target, RtHandleV2 *h);\n")
	b.WriteString(" * void       *handle_v2_pin(RtHandleV2 *h);\n")
	b.WriteString(" * void        handle_begin_transaction(RtHandleV2 *h);\n")
	b.WriteString(" * void        handle_end_transaction(RtHandleV2 *h);\n")
	if f.Arrays {
		b.WriteString(" * size_t      array_length_v2(RtHandleV2 *h);\n")
		b.WriteString(" * void       *array_data_v2(RtHandleV2 *h);\n")
		b.WriteString(" * RtHandleV2 *array_create_<T>_v2(RtArenaV2 *a, size_t n, const void *buf);\n")
		b.WriteString(" * RtHandleV2 *array_slice_v2(RtHandleV2 *h, long start, long end, long step);\n")
		b.WriteString(" * RtHandleV2 *array_concat_v2(RtArenaV2 *a, RtHandleV2 *x, RtHandleV2 *y);\n")
		b.WriteString(" * RtHandleV2 *array_clone_v2(RtArenaV2 *a, RtHandleV2 *h);\n")
		b.WriteString(" * RtHandleV2 *args_create_v2(RtArenaV2 *a, int argc, char **argv);\n")
	}
	if f.Threads {
		b.WriteString(" * RtThreadHandle *thread_spawn(RtArenaV2 *a, RtThreadEntry entry, RtThreadArgs *args);\n")
		b.WriteString(" * void       *thread_sync_with_result(RtThreadHandle *h, RtArenaV2 *a, RtResultKind k);\n")
		b.WriteString(" * void       *thread_sync_with_result_keep_arena(RtThreadHandle *h, RtArenaV2 *a, RtResultKind k);\n")
		b.WriteString(" * void        thread_sync(RtThreadHandle *h);\n")
	}
	if f.Any {
		b.WriteString(" * RtAnyV2    any_promote_v2(RtArenaV2 *target, RtAnyV2 v);\n")
		b.WriteString(" * RtAnyV2    rt_any_nil_v2(void);\n")
	}
	b.WriteString(" *\n")
	b.WriteString(" * __Closure__ { void *fn; RtArenaV2 *arena; size_t size; };\n")
	b.WriteString(" *\n")
	b.WriteString(" * RtArenaMode is one of RT_ARENA_MODE_DEFAULT, RT_ARENA_MODE_PRIVATE,\n")
	b.WriteString(" * RT_ARENA_MODE_SHARED. A SHARED-mode arena must serialize concurrent\n")
	b.WriteString(" * allocation (a mutex per arena is the default emitted choice; a\n")
	b.WriteString(" * lock-free bump allocator is an equally conforming implementation per\n")
	b.WriteString(" * the runtime contract's ordering guarantees).\n")
	b.WriteString(" */\n\n")
	return b.String()
}
