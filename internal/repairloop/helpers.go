package repairloop

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/esbmc-ai/esbmc-ai-go/internal/solution"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifyout"
)

// lifoCleanup tracks temp directories in creation order and removes
// them last-created-first at Run's end, per spec.md §5's "Temp
// directories are per-attempt, owned by the engine, cleaned in LIFO
// order."
type lifoCleanup struct {
	enabled bool
	dirs    []string
}

func newLIFOCleanup(enabled bool) *lifoCleanup {
	return &lifoCleanup{enabled: enabled}
}

func (c *lifoCleanup) push(dir string) {
	c.dirs = append(c.dirs, dir)
}

func (c *lifoCleanup) cleanup() {
	if !c.enabled {
		return
	}
	for i := len(c.dirs) - 1; i >= 0; i-- {
		_ = os.RemoveAll(c.dirs[i])
	}
}

// materialize saves sol to a fresh temp directory and reloads it from
// there, producing a Solution whose in-memory content is guaranteed to
// match what is on disk (spec.md §4.6 step 1: "materialize Solution to
// temp if integrity fails").
func materialize(sol *solution.Solution, cleanup *lifoCleanup) (*solution.Solution, string, error) {
	dir, err := os.MkdirTemp("", "esbmc-ai-materialize-*")
	if err != nil {
		return nil, "", err
	}
	cleanup.push(dir)
	if err := sol.SaveTemp(dir); err != nil {
		return nil, "", err
	}
	newPaths, newIncludeDirs := pathsUnderTemp(sol, dir)
	reloaded, err := solution.FromPaths(newPaths, newIncludeDirs)
	if err != nil {
		return nil, "", err
	}
	return reloaded, dir, nil
}

// pathsUnderTemp mirrors Solution.SaveTemp's own relative-path
// placement so callers can reload what it just wrote: every file path
// relative to sol.WorkingDir() joined onto destDir, and every include
// dir placed the same way SaveTemp places it (relative when it falls
// under WorkingDir, by base name otherwise).
func pathsUnderTemp(sol *solution.Solution, destDir string) (filePaths, includeDirs []string) {
	workingDir := sol.WorkingDir()
	for _, f := range sol.Files() {
		rel, err := filepath.Rel(workingDir, f.Path)
		if err != nil {
			rel = filepath.Base(f.Path)
		}
		filePaths = append(filePaths, filepath.Join(destDir, rel))
	}
	for _, dir := range sol.IncludeDirs() {
		if rel, err := filepath.Rel(workingDir, dir); err == nil && !strings.HasPrefix(rel, "..") {
			includeDirs = append(includeDirs, filepath.Join(destDir, rel))
		} else {
			includeDirs = append(includeDirs, filepath.Join(destDir, filepath.Base(dir)))
		}
	}
	return filePaths, includeDirs
}

// primaryTargetFile returns the SourceFile the primary issue in output
// points at, falling back to the first file in sol when output has no
// issues to localize (e.g. a compile-level failure with no stack
// trace) or when the reported path isn't one of sol's files.
func primaryTargetFile(sol *solution.Solution, output verifyout.Output) *solution.SourceFile {
	if len(output.Issues) > 0 {
		primary := output.PrimaryIssue()
		if f, ok := sol.GetFile(primary.FilePath()); ok {
			return f
		}
		// Fall back to a basename match: the verifier may report a
		// path relative to its own CWD rather than sol's absolute
		// paths.
		base := filepath.Base(primary.FilePath())
		for _, f := range sol.Files() {
			if filepath.Base(f.Path) == base {
				return f
			}
		}
	}
	return sol.Files()[0]
}

// cloneSolutionWithPatchedFile returns a new Solution identical to
// sol except the file at targetPath has its content replaced with
// patchedContent. The engine never mutates workingSol in place — each
// attempt works from a fresh candidate so a failed attempt can't leak
// state into the next one.
func cloneSolutionWithPatchedFile(sol *solution.Solution, targetPath, patchedContent string) *solution.Solution {
	files := sol.Files()
	cloned := make([]*solution.SourceFile, len(files))
	for i, f := range files {
		if f.Path == targetPath {
			cloned[i] = &solution.SourceFile{Path: f.Path, Content: patchedContent}
		} else {
			cloned[i] = &solution.SourceFile{Path: f.Path, Content: f.Content}
		}
	}
	return solution.New(cloned, sol.IncludeDirs())
}
