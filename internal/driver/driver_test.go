package driver

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

// skipIfNoGCC lets CI images without a C toolchain still run the rest
// of the suite.
func skipIfNoGCC(t *testing.T) {
	if _, err := exec.LookPath("gcc"); err != nil {
		t.Skip("gcc not available")
	}
}

func TestFlagsIncludesStdAndReleaseTier(t *testing.T) {
	d := New(nil)
	flags := d.flags()
	require.Contains(t, flags, "-std=c99")
	require.Contains(t, flags, "-O0")

	d.Release = true
	flags = d.flags()
	require.Contains(t, flags, "-O2")
	require.NotContains(t, flags, "-O0")
}

func TestFlagsAppendsCallerCFlagsLast(t *testing.T) {
	d := New(nil)
	d.CFlags = []string{"-DFOO=1"}
	flags := d.flags()
	require.Equal(t, "-DFOO=1", flags[len(flags)-1])
}

func TestSanitizeNameHandlesEmptyAndPathy(t *testing.T) {
	require.Equal(t, "unit_0", sanitizeName("", 0))
	require.Equal(t, "a_b_1", sanitizeName("a/b", 1))
}

func TestResolveImportStripsSDKPrefixAndAppendsExt(t *testing.T) {
	got := ResolveImport("sdk/collections/list", "/opt/sdk")
	require.Equal(t, "/opt/sdk/collections/list.sn", got)
}

func TestCompileUnitsRejectsEmptyInput(t *testing.T) {
	d := New(nil)
	_, err := d.CompileUnits(context.Background(), nil, "a.out")
	require.Error(t, err)
}

func TestCompileProducesBinaryFromMinimalC(t *testing.T) {
	skipIfNoGCC(t)
	d := New(nil)
	code := `#include <stdio.h>
int main(void) { printf("hi\n"); return 0; }
`
	out := t.TempDir() + "/out"
	res, err := d.Compile(context.Background(), code, out)
	require.NoError(t, err)
	require.Equal(t, out, res.BinaryPath)
}

func TestCompileSurfacesCompilerDiagnosticsOnFailure(t *testing.T) {
	skipIfNoGCC(t)
	d := New(nil)
	_, err := d.Compile(context.Background(), "int main(void) { this is not C; }", t.TempDir()+"/out")
	require.Error(t, err)
}
