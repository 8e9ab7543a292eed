package verifier

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esbmc-ai/esbmc-ai-go/internal/solution"
)

// fakeBinary writes a shell script standing in for the verifier: it
// records its own argv to argvPath and reports success, so a test can
// inspect exactly what Verify invoked it with.
func fakeBinary(t *testing.T, argvPath string) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-esbmc")
	body := "#!/bin/sh\nprintf '%s\\n' \"$@\" > " + argvPath + "\necho VERIFICATION SUCCESSFUL\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestVerifyAppendsIncludeDirFlags(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(srcPath, []byte("int main(){return 0;}"), 0o644))

	incDir := t.TempDir()
	sol, err := solution.FromPaths([]string{srcPath}, []string{incDir})
	require.NoError(t, err)

	argvPath := filepath.Join(t.TempDir(), "argv.txt")
	bin := fakeBinary(t, argvPath)

	a := New(nil)
	_, err = a.Verify(context.Background(), sol, Params{Binary: bin}, 5, "main")
	require.NoError(t, err)

	recorded, err := os.ReadFile(argvPath)
	require.NoError(t, err)
	argv := strings.Split(strings.TrimSpace(string(recorded)), "\n")
	require.Contains(t, argv, "-I"+incDir)

	// -I flags must precede --timeout, matching the spec's invocation
	// shape: [-I<incdir>...] --timeout <N>s --function <entry>.
	incIdx, timeoutIdx := -1, -1
	for i, a := range argv {
		if a == "-I"+incDir {
			incIdx = i
		}
		if a == "--timeout" {
			timeoutIdx = i
		}
	}
	require.GreaterOrEqual(t, incIdx, 0)
	require.GreaterOrEqual(t, timeoutIdx, 0)
	require.Less(t, incIdx, timeoutIdx)
}

func TestVerifyOmitsIncludeFlagsWhenNoIncludeDirs(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(srcPath, []byte("int main(){return 0;}"), 0o644))

	sol, err := solution.FromPaths([]string{srcPath}, nil)
	require.NoError(t, err)

	argvPath := filepath.Join(t.TempDir(), "argv.txt")
	bin := fakeBinary(t, argvPath)

	a := New(nil)
	_, err = a.Verify(context.Background(), sol, Params{Binary: bin}, 5, "main")
	require.NoError(t, err)

	recorded, err := os.ReadFile(argvPath)
	require.NoError(t, err)
	for _, arg := range strings.Split(strings.TrimSpace(string(recorded)), "\n") {
		require.False(t, strings.HasPrefix(arg, "-I"), "unexpected include flag %q with no include dirs", arg)
	}
}
