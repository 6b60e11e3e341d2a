// Package codegen is the code generator: a single-pass tree walker over
// the AST that emits C into one translation unit with the fixed section
// layout described in spec.md §4.4.
package codegen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sindarin-lang/snc/internal/ast"
	"github.com/sindarin-lang/snc/internal/diag"
	"github.com/sindarin-lang/snc/internal/symtab"
	"github.com/sindarin-lang/snc/internal/types"
)

// Generator is the top-level code generator. It owns the section buffers
// spec.md §4.4 fixes the order of, plus the "deferred buffering"
// mechanism: function bodies are appended to fnBodies as they are
// generated, not written straight to the final output, because emitting
// a function body accumulates lambda/GC-callback forward declarations
// that must appear earlier in the file (spec.md §4.4).
type Generator struct {
	sym  *symtab.SymbolTable
	diag *diag.Sink

	// Section buffers, in spec.md §4.4's fixed order.
	includes        strings.Builder
	pragmaIncludes  strings.Builder
	runtimeTypes    strings.Builder
	opaqueFwds      strings.Builder
	nativeAliases   strings.Builder
	structTypedefs  strings.Builder
	methodFwds      strings.Builder
	nativeCallbacks strings.Builder
	nativeExterns   strings.Builder
	functionFwds    strings.Builder
	globalDefs      strings.Builder
	fnBodies        strings.Builder // function bodies, buffered
	gcCallbackFwds  strings.Builder
	lambdaFwds      strings.Builder
	thunkFwds       strings.Builder
	gcCallbackDefs  strings.Builder
	lambdaDefs      strings.Builder
	thunkDefs       strings.Builder

	indentLevel int
	tempCounter int
	labelCount  int

	emittedStructs map[string]bool
	emittedFuncs   map[string]bool

	// Function-emission state, saved/restored around each nested
	// function/closure emission per spec.md §4.4.1.
	currentFunction    string
	currentReturnType  *types.Type
	currentModifier    ast.Modifier
	inPrivateContext   bool
	inSharedContext    bool
	currentArenaVar    string
	allocClosureInCaller bool

	loopCounters []string // optimizer.go: tracked non-negative loop vars

	deferredGlobals []deferredGlobal

	features RuntimeFeatures

	mangled map[string]string

	// nativeFuncs tracks mangled names of native (FFI) functions and
	// methods, so emitCall/emitMethodCall know not to append the
	// caller_arena argument those externs were never declared to take.
	nativeFuncs map[string]bool
}

type deferredGlobal struct {
	CName string
	Expr  string
}

// New creates a Generator sharing the given symbol table and diagnostic
// sink with the rest of the compiler pipeline.
func New(sym *symtab.SymbolTable, sink *diag.Sink) *Generator {
	return &Generator{
		sym:            sym,
		diag:           sink,
		emittedStructs: map[string]bool{},
		emittedFuncs:   map[string]bool{},
		mangled:        map[string]string{},
		nativeFuncs:    map[string]bool{},
	}
}

// Program is the top-level AST the generator consumes: a set of struct
// declarations, function declarations, and top-level statements (which
// become the body of a synthesized main if no user main is present).
type Program struct {
	Structs   []*ast.StructDecl
	Functions []*ast.FuncDecl
	Globals   []*ast.VarDecl
	TopLevel  []ast.Stmt // only meaningful when no user FuncDecl named "main" exists
	Includes  []string   // user #pragma include files
}

// Generate runs the full pipeline over prog and returns the assembled C
// translation unit.
func (g *Generator) Generate(prog *Program) (string, error) {
	g.features = AnalyzeFeatures(prog)
	markTailCalls(prog)

	g.emitIncludes(prog.Includes)
	g.emitRuntimeTypes()

	for _, s := range prog.Structs {
		g.emitOpaqueOrStructFwd(s)
	}
	for _, s := range prog.Structs {
		if err := g.emitStruct(s); err != nil {
			return "", err
		}
	}
	for _, gdecl := range prog.Globals {
		g.emitGlobal(gdecl)
	}

	var userMain *ast.FuncDecl
	for _, fn := range prog.Functions {
		if fn.Name == "main" {
			userMain = fn
		}
		g.emitFunctionFwd(fn)
	}
	for _, fn := range prog.Functions {
		if err := g.emitFunction(fn); err != nil {
			return "", err
		}
	}
	if userMain == nil {
		if err := g.emitSyntheticMain(prog.TopLevel); err != nil {
			return "", err
		}
	}

	return g.assemble(), nil
}

func (g *Generator) assemble() string {
	var out strings.Builder
	sections := []*strings.Builder{
		&g.includes,
		&g.pragmaIncludes,
		&g.runtimeTypes,
		&g.opaqueFwds,
		&g.nativeAliases,
		&g.structTypedefs,
		&g.methodFwds,
		&g.nativeCallbacks,
		&g.nativeExterns,
		&g.functionFwds,
		&g.globalDefs,
		&g.gcCallbackFwds,
		&g.lambdaFwds,
		&g.thunkFwds,
		&g.fnBodies,
		&g.gcCallbackDefs,
		&g.lambdaDefs,
		&g.thunkDefs,
	}
	for _, s := range sections {
		out.WriteString(s.String())
	}
	return out.String()
}

// --- emission helpers ---

func (g *Generator) emitTo(b *strings.Builder, indent int, format string, args ...interface{}) {
	b.WriteString(strings.Repeat("    ", indent))
	fmt.Fprintf(b, format, args...)
}

func (g *Generator) newTemp(prefix string) string {
	g.tempCounter++
	return fmt.Sprintf("__%s_%d__", prefix, g.tempCounter)
}

func (g *Generator) newLabel() int {
	g.labelCount++
	return g.labelCount
}

// mangle rewrites a source identifier into a collision-free C identifier
// (SPEC_FULL.md supplemented feature #2, grounded on the original
// implementation's sn_mangle_name). Keywords and runtime-reserved
// `__`-prefixed names are prefixed with `sn_` to stay distinct from
// emitted internals like __local_arena__.
func (g *Generator) mangle(name string) string {
	if m, ok := g.mangled[name]; ok {
		return m
	}
	out := name
	if cKeywords[name] || strings.HasPrefix(name, "__") {
		out = "sn_" + name
	}
	g.mangled[name] = out
	return out
}

var cKeywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "int": true, "long": true, "register": true, "return": true,
	"short": true, "signed": true, "sizeof": true, "static": true, "struct": true,
	"switch": true, "typedef": true, "union": true, "unsigned": true, "void": true,
	"volatile": true, "while": true,
}

// arenaLabel builds a diagnostics-only label for arena_v2_create calls.
// Labels only need to be unique enough for a human reading runtime
// trace output to tell nested private blocks apart (spec.md §4.3: "label
// used only for diagnostics") — a short uuid suffix is the one place in
// the generator a random identifier is the right tool, since nothing
// about program semantics depends on its value.
func (g *Generator) arenaLabel(base string) string {
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8])
}

func cType(t *types.Type) string {
	switch t.Kind {
	case types.Int, types.Long:
		return "int64_t"
	case types.Int32:
		return "int32_t"
	case types.Uint:
		return "uint64_t"
	case types.Uint32:
		return "uint32_t"
	case types.Float:
		return "float"
	case types.Double:
		return "double"
	case types.Char:
		return "int32_t"
	case types.Byte:
		return "uint8_t"
	case types.Bool:
		return "bool"
	case types.Void:
		return "void"
	case types.String, types.Array:
		return "RtHandleV2 *"
	case types.Any:
		return "RtAnyV2"
	case types.Pointer:
		return cType(t.Elem) + " *"
	case types.Function:
		return "__Closure__ *"
	case types.Struct:
		if t.CAlias != "" {
			return t.CAlias
		}
		return "struct " + t.Name
	case types.Opaque:
		return t.Name
	}
	return "void *"
}

func defaultValue(t *types.Type) string {
	switch t.Kind {
	case types.Bool:
		return "false"
	case types.Float, types.Double:
		return "0.0"
	case types.String, types.Array, types.Function, types.Pointer:
		return "NULL"
	case types.Any:
		return "rt_any_nil_v2()"
	case types.Struct:
		return "{0}"
	default:
		return "0"
	}
}

func isPrimitiveKind(t *types.Type) bool {
	return t.IsPrimitive()
}

// emitGlobal declares a top-level variable. A literal initializer is
// emitted as a real C static initializer; anything else (an arena
// allocation, a call, a handle-typed value) cannot run before main has
// created the root arena, so it is zero-initialized here and queued
// into deferredGlobals, which emitCallableBodyInto runs immediately
// after main's arena comes up (spec.md §4.4: globals section is purely
// declarations, initialization of non-constant globals is a main-prologue
// concern).
func (g *Generator) emitGlobal(gdecl *ast.VarDecl) {
	name := g.mangle(gdecl.Name)
	ct := cType(gdecl.Type)
	if lit, ok := gdecl.Init.(*ast.Literal); ok || gdecl.Init == nil {
		init := defaultValue(gdecl.Type)
		if ok {
			init = g.emitLiteral(lit)
		}
		g.emitTo(&g.globalDefs, 0, "%s %s = %s;\n", ct, name, init)
		return
	}
	g.emitTo(&g.globalDefs, 0, "%s %s = %s;\n", ct, name, defaultValue(gdecl.Type))
	sc := &stmtCtx{arenaVar: "__local_arena__"}
	g.deferredGlobals = append(g.deferredGlobals, deferredGlobal{
		CName: name,
		Expr:  g.emitExpr(gdecl.Init, sc),
	})
}
