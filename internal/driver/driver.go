// Package driver wraps the host C compiler: write the generated
// translation unit to a temp file, invoke gcc/clang with a fixed
// baseline flag set plus whatever the caller layers on top, and
// surface the compiler's own diagnostics instead of swallowing them.
package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sindarin-lang/snc/internal/diag"
)

// Driver holds the knobs spec.md §6 names for the compiler backend:
// which C compiler to invoke, the language standard, and separate
// cflags/ldflags for debug vs. release builds.
type Driver struct {
	CC             string
	Std            string
	DebugCFlags    []string
	ReleaseCFlags  []string
	CFlags         []string
	LDFlags        []string
	LDLibs         []string
	Release        bool

	log *zap.SugaredLogger
}

// New returns a Driver defaulting to gcc/c99 with a `-pthread` link
// dependency, all overridable per build.
func New(log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		CC:            "gcc",
		Std:           "c99",
		DebugCFlags:   []string{"-g", "-O0"},
		ReleaseCFlags: []string{"-O2"},
		LDLibs:        []string{"-pthread"},
		log:           log.Sugar(),
	}
}

// Unit is one generated translation unit awaiting compilation — the
// object-file split named in the AMBIENT STACK's errgroup note, used
// when a package file declares more than one `.sn` source.
type Unit struct {
	Name string // base name, used for the .c/.o temp file pair
	C    string // generated C source text
}

// Result carries the compiled binary's path plus the raw compiler
// output, so the CLI can print it verbatim on failure.
type Result struct {
	BinaryPath string
	Output     string
}

// flags assembles the full cflags list: std, -Wall, debug/release
// tier, then any caller-supplied CFlags last so they can override.
// -pthread is a link flag and lives in LDLibs.
func (d *Driver) flags() []string {
	out := []string{"-std=" + d.Std, "-Wall"}
	if d.Release {
		out = append(out, d.ReleaseCFlags...)
	} else {
		out = append(out, d.DebugCFlags...)
	}
	out = append(out, d.CFlags...)
	return out
}

// CompileUnits writes each unit to its own .c file inside dir, compiles
// them to .o objects concurrently via errgroup (ambient-stack concurrency,
// distinct from the emitted program's thread_spawn contract), then links
// every object into output.
func (d *Driver) CompileUnits(ctx context.Context, units []Unit, output string) (Result, error) {
	if len(units) == 0 {
		return Result{}, errors.New("driver: no translation units to compile")
	}
	tmpDir, err := os.MkdirTemp("", "snc_build_")
	if err != nil {
		return Result{}, errors.Wrap(err, "driver: create temp build dir")
	}
	defer os.RemoveAll(tmpDir)

	objPaths := make([]string, len(units))
	var outputs []string
	var mu outputCollector

	g, gctx := errgroup.WithContext(ctx)
	for i, u := range units {
		i, u := i, u
		srcPath := filepath.Join(tmpDir, fmt.Sprintf("%s.c", sanitizeName(u.Name, i)))
		objPath := filepath.Join(tmpDir, fmt.Sprintf("%s.o", sanitizeName(u.Name, i)))
		objPaths[i] = objPath
		g.Go(func() error {
			if err := os.WriteFile(srcPath, []byte(u.C), 0o644); err != nil {
				return errors.Wrapf(err, "driver: write %s", srcPath)
			}
			args := append(append([]string{}, d.flags()...), "-c", "-o", objPath, srcPath)
			d.log.Debugw("invoking compiler", "cc", d.CC, "args", args)
			cmd := exec.CommandContext(gctx, d.CC, args...)
			out, err := cmd.CombinedOutput()
			mu.add(string(out))
			if err != nil {
				return errors.Wrapf(err, "driver: compile %s failed:\n%s", u.Name, out)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{Output: mu.String()}, err
	}

	outPath := output
	if outPath == "" {
		outPath = "a.out"
	}
	linkArgs := append(append([]string{}, objPaths...), "-o", outPath)
	linkArgs = append(linkArgs, d.LDFlags...)
	linkArgs = append(linkArgs, d.LDLibs...)
	d.log.Debugw("invoking linker", "cc", d.CC, "args", linkArgs)
	cmd := exec.CommandContext(ctx, d.CC, linkArgs...)
	out, err := cmd.CombinedOutput()
	mu.add(string(out))
	outputs = append(outputs, mu.String())
	if err != nil {
		return Result{Output: strings.Join(outputs, "\n")}, errors.Wrap(err, "driver: link failed")
	}
	return Result{BinaryPath: outPath, Output: strings.Join(outputs, "\n")}, nil
}

// Compile is the single-unit convenience path (§6 `compile_to_binary`).
func (d *Driver) Compile(ctx context.Context, code, output string) (Result, error) {
	return d.CompileUnits(ctx, []Unit{{Name: "main", C: code}}, output)
}

// sanitizeName keeps generated filenames filesystem-safe even if a unit
// name came from a user-controlled package path.
func sanitizeName(name string, idx int) string {
	if name == "" {
		return fmt.Sprintf("unit_%d", idx)
	}
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return fmt.Sprintf("%s_%d", r.Replace(name), idx)
}

// outputCollector serializes concurrent writes from errgroup workers
// into one ordered-enough log for CompileFailed to print.
type outputCollector struct {
	mu    sync.Mutex
	parts []string
}

func (o *outputCollector) add(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.parts = append(o.parts, s)
}

func (o *outputCollector) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return strings.Join(o.parts, "\n")
}

// ResolveImport maps an SDK import path to its .sn source file on disk,
// per spec.md §6 ("sdk/ → strip prefix, append .sn").
func ResolveImport(path, sdkRoot string) string {
	trimmed := strings.TrimPrefix(path, "sdk/")
	return filepath.Join(sdkRoot, trimmed+".sn")
}

// RunDiagnosed compiles code and reports success/failure through sink,
// matching the driver/diag boundary described in §6/§7.
func (d *Driver) RunDiagnosed(ctx context.Context, sink *diag.Sink, code, output string) (Result, error) {
	sink.PhaseStart("backend")
	res, err := d.Compile(ctx, code, output)
	if err != nil {
		sink.PhaseFailed(err)
		return res, err
	}
	sink.PhaseDone()
	return res, nil
}
