// Package symtab implements the lexically scoped symbol table described
// in spec.md §3.2/§4.2: per-scope offset accounting, scope depth,
// per-symbol declaration-scope depth, kind tags, and memory qualifiers.
package symtab

import (
	"github.com/sindarin-lang/snc/internal/carena"
	"github.com/sindarin-lang/snc/internal/types"
)

// Kind tags what a Symbol denotes.
type Kind int

const (
	Global Kind = iota
	Local
	Param
	TypeSym
)

// MemQual is the parameter-passing / storage qualifier (spec.md §3.4).
type MemQual int

const (
	Default MemQual = iota
	AsVal
	AsRef
)

const (
	// LocalBaseOffset and ParamBaseOffset are the starting stack offsets
	// for locals and parameters, per spec.md §3.2.
	LocalBaseOffset = 0
	ParamBaseOffset = 0
)

// Symbol is a single named entity bound in some scope.
type Symbol struct {
	Name                string
	Kind                Kind
	Type                *types.Type
	Offset              int
	MemQual             MemQual
	DeclarationScopeDepth int
}

// Scope is one lexical nesting level.
type Scope struct {
	Enclosing       *Scope
	Symbols         []*Symbol
	NextLocalOffset int
	NextParamOffset int
	depth           int
	loopDepth       int
}

// Depth returns this scope's nesting depth (global is 1).
func (s *Scope) Depth() int { return s.depth }

// SymbolTable is the compiler's lexical scope stack.
//
// Not safe for concurrent use: it is single-threaded compile-time state,
// exactly like the rest of the semantic-analysis/codegen pipeline
// (spec.md §2). Two independently constructed tables never share state
// (see symtab_test.go), which is the Go analogue of the original
// implementation's namespace-isolation guarantee.
type SymbolTable struct {
	global  *Scope
	current *Scope
	arena   *carena.Arena
}

// New creates a symbol table with a single global scope at depth 1.
func New(arena *carena.Arena) *SymbolTable {
	global := &Scope{depth: 1}
	return &SymbolTable{global: global, current: global, arena: arena}
}

// ScopeDepth returns the depth of the current scope.
func (st *SymbolTable) ScopeDepth() int { return st.current.depth }

// PushScope enters a new nested scope.
func (st *SymbolTable) PushScope() *Scope {
	s := &Scope{
		Enclosing: st.current,
		depth:     st.current.depth + 1,
	}
	st.current = s
	return s
}

// PopScope leaves the current scope, propagating the offset high-water
// mark to the parent (spec.md §3.2, §8 "Offset high-water"). It refuses
// to pop the global scope.
func (st *SymbolTable) PopScope() {
	if st.current == st.global {
		return
	}
	parent := st.current.Enclosing
	if st.current.NextLocalOffset > parent.NextLocalOffset {
		parent.NextLocalOffset = st.current.NextLocalOffset
	}
	if st.current.NextParamOffset > parent.NextParamOffset {
		parent.NextParamOffset = st.current.NextParamOffset
	}
	st.current = parent
}

// BeginFunctionScope pushes a new scope and resets both offset counters
// to their base values, per spec.md §4.2.
func (st *SymbolTable) BeginFunctionScope() *Scope {
	s := st.PushScope()
	s.NextLocalOffset = LocalBaseOffset
	s.NextParamOffset = ParamBaseOffset
	return s
}

func alignedSize(t *types.Type) int {
	sz := t.Size()
	if sz%8 != 0 {
		sz += 8 - sz%8
	}
	if sz == 0 {
		sz = 8
	}
	return sz
}

// AddSymbol adds a LOCAL symbol with default kind/qualifier.
func (st *SymbolTable) AddSymbol(name string, t *types.Type) *Symbol {
	return st.AddSymbolWithKind(name, t, Local)
}

// AddSymbolWithKind adds a symbol of the given kind.
func (st *SymbolTable) AddSymbolWithKind(name string, t *types.Type, kind Kind) *Symbol {
	return st.AddSymbolFull(name, t, kind, Default)
}

// AddSymbolFull adds a symbol with full control over kind and memory
// qualifier. The type is cloned into the table's arena, the name is
// duplicated into it, and declaration_scope_depth is stamped to the
// current depth (spec.md §4.2).
//
// Duplicate add in the same scope updates the existing entry's type in
// place rather than erroring, permitting idempotent re-binding in
// iterative passes (spec.md §4.2 "Failure semantics").
func (st *SymbolTable) AddSymbolFull(name string, t *types.Type, kind Kind, q MemQual) *Symbol {
	if existing := st.lookupInScope(st.current, name); existing != nil {
		existing.Type = t.Clone(st.arena)
		existing.MemQual = q
		return existing
	}

	clonedType := t.Clone(st.arena)
	storedName := st.arena.Strdup(name)

	sym := &Symbol{
		Name:                  storedName,
		Kind:                  kind,
		Type:                  clonedType,
		MemQual:               q,
		DeclarationScopeDepth: st.current.depth,
	}

	// NextLocalOffset/NextParamOffset track the magnitude of stack space
	// claimed so far (a monotonically growing counter, which is what
	// makes the high-water-mark merge in PopScope a plain max()). The
	// symbol's stored Offset is the actual frame-relative value, which
	// grows downward from the frame base and so is recorded as negative
	// (spec.md §3.2).
	switch kind {
	case Param:
		st.current.NextParamOffset += alignedSize(t)
		sym.Offset = ParamBaseOffset - st.current.NextParamOffset
	default:
		st.current.NextLocalOffset += alignedSize(t)
		sym.Offset = LocalBaseOffset - st.current.NextLocalOffset
	}

	st.current.Symbols = append(st.current.Symbols, sym)
	return sym
}

func (st *SymbolTable) lookupInScope(s *Scope, name string) *Symbol {
	for _, sym := range s.Symbols {
		if sym.Name == name {
			return sym
		}
	}
	return nil
}

// LookupCurrent searches only the current scope.
func (st *SymbolTable) LookupCurrent(name string) *Symbol {
	return st.lookupInScope(st.current, name)
}

// Lookup walks the enclosing chain from the current scope outward.
// A miss returns nil (spec.md §4.2 "lookup misses return NIL").
func (st *SymbolTable) Lookup(name string) *Symbol {
	for s := st.current; s != nil; s = s.Enclosing {
		if sym := st.lookupInScope(s, name); sym != nil {
			return sym
		}
	}
	return nil
}

// EnterLoop / ExitLoop / InLoop implement the loop-nesting counter that
// break/continue emission consults (spec.md §4.2).
func (st *SymbolTable) EnterLoop() { st.current.loopDepth++ }
func (st *SymbolTable) ExitLoop() {
	if st.current.loopDepth > 0 {
		st.current.loopDepth--
	}
}
func (st *SymbolTable) InLoop() bool {
	for s := st.current; s != nil; s = s.Enclosing {
		if s.loopDepth > 0 {
			return true
		}
	}
	return false
}

// Current exposes the active scope (read-only use by the generator to
// iterate locals for cleanup, e.g. free_locals).
func (st *SymbolTable) Current() *Scope { return st.current }

// Global exposes the root scope (e.g. for deferred-global registration).
func (st *SymbolTable) Global() *Scope { return st.global }
