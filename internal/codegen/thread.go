package codegen

import "fmt"

// threadTrampoline emits a small wrapper function matching the
// RtThreadEntry signature (void *(*)(void *)) that unpacks the packed
// argument list and calls target with them positionally, since the
// runtime's thread_spawn only knows how to invoke a single-argument
// entry point (spec.md §4.4.6). One trampoline is emitted per distinct
// spawned target, cached by mangled name so a target spawned from two
// call sites only gets one thunk.
func (g *Generator) threadTrampoline(targetC string, argc int) string {
	key := fmt.Sprintf("%s/%d", targetC, argc)
	if cached, ok := g.mangled["__thunk__"+key]; ok {
		return cached
	}
	name := fmt.Sprintf("__thunk_%d__", g.newLabel())
	g.mangled["__thunk__"+key] = name

	g.emitTo(&g.thunkFwds, 0, "void *%s(void *__packed_args__);\n", name)

	g.emitTo(&g.thunkDefs, 0, "void *%s(void *__packed_args__) {\n", name)
	g.emitTo(&g.thunkDefs, 1, "RtThreadArgs *__a__ = (RtThreadArgs *)__packed_args__;\n")
	args := make([]string, argc)
	for i := 0; i < argc; i++ {
		args[i] = fmt.Sprintf("__a__->values[%d]", i)
	}
	g.emitTo(&g.thunkDefs, 1, "return (void *)(intptr_t)%s(%s);\n", targetC, joinArgs(args))
	g.emitTo(&g.thunkDefs, 0, "}\n\n")

	return name
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
