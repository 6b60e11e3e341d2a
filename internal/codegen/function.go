package codegen

import (
	"fmt"
	"strings"

	"github.com/sindarin-lang/snc/internal/ast"
	"github.com/sindarin-lang/snc/internal/symtab"
	"github.com/sindarin-lang/snc/internal/types"
)

// callable is the shape both a top-level FuncDecl and a struct MethodDecl
// reduce to before prologue/epilogue emission, so emitFunction and
// emitStruct's method loop share one code path (grounded on the original
// implementation's code_gen_stmt_func.c, which does the same collapse
// internally by threading a "self" parameter through).
type callable struct {
	Name          string
	Params        []ast.Param
	Returns       *types.Type
	Modifier      ast.Modifier
	Body          []ast.Stmt
	IsMain        bool
	IsNative      bool
	SelfType      *types.Type // non-nil for a method
	PassSelfByRef bool
}

func (g *Generator) paramCType(p ast.Param) string {
	base := cType(p.Type)
	if p.MemQual == symtab.AsRef {
		return base + " *"
	}
	return base
}

func (g *Generator) signature(c callable) string {
	var b strings.Builder
	ret := cType(c.Returns)
	if c.IsMain {
		ret = "int"
	}
	b.WriteString(ret)
	b.WriteString(" ")
	b.WriteString(g.mangle(c.Name))
	b.WriteString("(")
	first := true
	if c.SelfType != nil {
		if !first {
			b.WriteString(", ")
		}
		selfCType := cType(c.SelfType)
		if c.PassSelfByRef {
			selfCType += " *"
		}
		b.WriteString(selfCType)
		b.WriteString(" self")
		first = false
	}
	for _, p := range c.Params {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(g.paramCType(p))
		b.WriteString(" ")
		b.WriteString(g.mangle(p.Name))
	}
	switch {
	case c.IsMain:
		if !first {
			b.WriteString(", ")
		}
		b.WriteString("int __argc__, char **__argv__")
	case !c.IsNative:
		if !first {
			b.WriteString(", ")
		}
		b.WriteString("RtArenaV2 *caller_arena")
	}
	b.WriteString(")")
	return b.String()
}

func (g *Generator) emitFunctionFwd(fn *ast.FuncDecl) {
	c := callable{Name: fn.Name, Params: fn.Params, Returns: fn.Returns, Modifier: fn.Modifier, IsMain: fn.Name == "main", IsNative: fn.IsNative}
	if fn.IsNative {
		g.nativeFuncs[g.mangle(fn.Name)] = true
		g.emitTo(&g.nativeExterns, 0, "extern %s;\n", g.signature(c))
		return
	}
	g.emitTo(&g.functionFwds, 0, "%s;\n", g.signature(c))
}

// emitFunction generates a function's full body, deferred into fnBodies
// (spec.md §4.4: bodies buffer separately because emitting one can
// discover lambda/closure forward declarations that must precede it).
func (g *Generator) emitFunction(fn *ast.FuncDecl) error {
	if fn.IsNative {
		return nil
	}
	if g.emittedFuncs[fn.Name] {
		return nil
	}
	g.emittedFuncs[fn.Name] = true

	c := callable{
		Name: fn.Name, Params: fn.Params, Returns: fn.Returns,
		Modifier: fn.Modifier, Body: fn.Body, IsMain: fn.Name == "main",
	}
	return g.emitCallableBody(c)
}

// emitCallableBody implements the function prologue/body/epilogue
// described in spec.md §4.4.1 (procedural detail follows
// code_gen_stmt_func.c / code_gen_stmt_func_promote.c):
//
//  1. signature emission
//  2. arena-context setup (DEFAULT/PRIVATE create a child arena; SHARED
//     aliases the caller's arena; main creates the root arena)
//  3. handle-parameter cloning for AS_VAL parameters
//  4. local return-value declaration
//  5. tail-call while(1) wrapping, if the pre-pass marked any
//  6. body statements
//  7. epilogue: promote return value, promote self fields (methods
//     only), condemn (methods and main) or destroy (other non-SHARED
//     functions) the local arena, return
func (g *Generator) emitCallableBody(c callable) error {
	g.emitCallableBodyInto(&g.fnBodies, c)
	return nil
}

// emitCallableBodyInto runs the same prologue/body/epilogue pipeline but
// writes into dst instead of always the shared fnBodies buffer, so a
// lambda discovered mid-expression can be buffered into lambdaDefs
// without disturbing the enclosing function's own body text.
func (g *Generator) emitCallableBodyInto(dst *strings.Builder, c callable) {
	savedFn, savedRet, savedMod := g.currentFunction, g.currentReturnType, g.currentModifier
	savedPriv, savedShared, savedArena := g.inPrivateContext, g.inSharedContext, g.currentArenaVar
	savedAlloc := g.allocClosureInCaller
	defer func() {
		g.currentFunction, g.currentReturnType, g.currentModifier = savedFn, savedRet, savedMod
		g.inPrivateContext, g.inSharedContext, g.currentArenaVar = savedPriv, savedShared, savedArena
		g.allocClosureInCaller = savedAlloc
	}()

	g.currentFunction = c.Name
	g.currentReturnType = c.Returns
	g.currentModifier = c.Modifier
	g.inPrivateContext = c.Modifier == ast.ModPrivate
	g.inSharedContext = c.Modifier == ast.ModShared
	g.allocClosureInCaller = g.inPrivateContext
	arenaVar := "__local_arena__"
	g.currentArenaVar = arenaVar

	var body strings.Builder
	g.emitTo(&body, 0, "%s {\n", g.signature(c))

	switch {
	case c.IsMain:
		g.emitTo(&body, 1, "RtArenaV2 *%s = arena_v2_create(NULL, RT_ARENA_MODE_DEFAULT, \"%s\");\n",
			arenaVar, g.arenaLabel("main"))
		if g.features.Arrays && len(c.Params) == 0 {
			g.emitTo(&body, 1, "RtHandleV2 *args = args_create_v2(%s, __argc__, __argv__);\n", arenaVar)
		}
		for _, dg := range g.deferredGlobals {
			g.emitTo(&body, 1, "%s = %s;\n", dg.CName, dg.Expr)
		}
	case c.Modifier == ast.ModShared:
		g.emitTo(&body, 1, "RtArenaV2 *%s = caller_arena;\n", arenaVar)
	case c.Modifier == ast.ModPrivate:
		g.emitTo(&body, 1, "RtArenaV2 *%s = arena_v2_create(caller_arena, RT_ARENA_MODE_PRIVATE, \"%s\");\n",
			arenaVar, g.arenaLabel(c.Name))
	default:
		g.emitTo(&body, 1, "RtArenaV2 *%s = arena_v2_create(caller_arena, RT_ARENA_MODE_DEFAULT, \"%s\");\n",
			arenaVar, g.arenaLabel(c.Name))
	}

	for _, p := range c.Params {
		if p.Type.IsHandle() && p.MemQual == symtab.AsVal {
			g.emitTo(&body, 1, "%s = arena_v2_clone(%s, %s);\n", g.mangle(p.Name), arenaVar, g.mangle(p.Name))
		}
	}

	hasReturn := c.Returns != nil && c.Returns.Kind != types.Void
	if hasReturn && !c.IsMain {
		g.emitTo(&body, 1, "%s __ret__ = %s;\n", cType(c.Returns), defaultValue(c.Returns))
	}

	paramNames := make([]string, len(c.Params))
	paramCTypes := make([]string, len(c.Params))
	for i, p := range c.Params {
		paramNames[i] = g.mangle(p.Name)
		paramCTypes[i] = cType(p.Type)
	}
	sc := &stmtCtx{
		arenaVar: arenaVar, callerArenaVar: "caller_arena", returnsVoid: !hasReturn, selfType: c.SelfType,
		paramNames: paramNames, paramCTypes: paramCTypes,
	}

	bodyStmts := c.Body
	wrapLoop := containsTailCall(bodyStmts)
	if wrapLoop {
		sc.tailCallLabel = "__tailcall_loop__"
		g.emitTo(&body, 1, "while (1) {\n")
		g.emitTo(&body, 0, "%s:\n", sc.tailCallLabel)
		for _, s := range bodyStmts {
			g.emitStmt(&body, 2, s, sc)
		}
		g.emitTo(&body, 1, "}\n")
	} else {
		for _, s := range bodyStmts {
			g.emitStmt(&body, 1, s, sc)
		}
	}

	g.emitTo(&body, 0, "__ret_label__:\n")
	if hasReturn {
		g.emitPromote(&body, 1, "__ret__", c.Returns, "caller_arena")
	}
	if c.SelfType != nil && structHasHandleFields(c.SelfType) {
		g.emitSelfFieldPromotion(&body, 1, c.SelfType, c.PassSelfByRef)
	}
	if c.Modifier != ast.ModShared {
		if c.SelfType != nil || c.IsMain {
			// Struct methods condemn only: the slab must survive for
			// post-condemn readers the runtime may have in flight after
			// self-field promotion (spec.md §4.4.4 step 3). main condemns
			// its root arena the same way before returning 0.
			g.emitTo(&body, 1, "arena_v2_condemn(%s);\n", arenaVar)
		} else {
			g.emitTo(&body, 1, "arena_v2_destroy(%s);\n", arenaVar)
		}
	}
	if c.IsMain {
		g.emitTo(&body, 1, "return 0;\n")
	} else if hasReturn {
		g.emitTo(&body, 1, "return __ret__;\n")
	} else {
		g.emitTo(&body, 1, "return;\n")
	}
	g.emitTo(&body, 0, "}\n\n")

	dst.WriteString(body.String())
}

// emitPromote emits the return-type-specific promotion call described in
// spec.md §4.3 (procedural detail follows code_gen_stmt_func_promote.c):
// strings and arrays promote through the generic handle promoter, structs
// promote field-by-field, function values (closures) are deep-copied into
// the target arena with their captured-arena pointer rewritten, "any"
// values go through the boxed promoter, and plain scalars need no
// promotion at all.
func (g *Generator) emitPromote(b *strings.Builder, indent int, expr string, t *types.Type, target string) {
	switch {
	case t.IsPrimitive():
		return
	case t.Kind == types.String || t.Kind == types.Array:
		g.emitTo(b, indent, "%s = arena_v2_promote(%s, %s);\n", expr, target, expr)
	case t.Kind == types.Any:
		g.emitTo(b, indent, "%s = any_promote_v2(%s, %s);\n", expr, target, expr)
	case t.Kind == types.Function:
		tmp := g.newTemp("closure")
		g.emitTo(b, indent, "__Closure__ *%s = arena_v2_alloc(%s, sizeof(__Closure__));\n", tmp, target)
		g.emitTo(b, indent, "memcpy(%s, %s, sizeof(__Closure__));\n", tmp, expr)
		g.emitTo(b, indent, "%s->arena = %s;\n", tmp, target)
		g.emitTo(b, indent, "%s = %s;\n", expr, tmp)
	case t.Kind == types.Struct:
		for _, f := range t.Fields {
			if f.Type.IsPrimitive() {
				continue
			}
			fieldExpr := fmt.Sprintf("%s.%s", expr, fieldCName(f))
			g.emitPromote(b, indent, fieldExpr, f.Type, target)
		}
	}
}

func fieldCName(f types.Field) string {
	if f.CAlias != "" {
		return f.CAlias
	}
	return f.Name
}

// emitSelfFieldPromotion promotes a struct method's self-fields into
// caller_arena, run strictly after the return value has already been
// promoted (spec.md's ordering invariant for method epilogues).
func (g *Generator) emitSelfFieldPromotion(b *strings.Builder, indent int, selfType *types.Type, byRef bool) {
	selfExpr := "self"
	if byRef {
		selfExpr = "(*self)"
	}
	for _, f := range selfType.Fields {
		if f.Type.IsPrimitive() {
			continue
		}
		fieldExpr := fmt.Sprintf("%s.%s", selfExpr, fieldCName(f))
		g.emitPromote(b, indent, fieldExpr, f.Type, "caller_arena")
	}
}

// emitSyntheticMain wraps top-level statements in a synthetic main when
// the program has none (spec.md §6: "a program need not declare main").
func (g *Generator) emitSyntheticMain(stmts []ast.Stmt) error {
	fn := &ast.FuncDecl{Name: "main", Returns: types.Primitive(types.Void), Body: stmts}
	return g.emitFunction(fn)
}
