package solution

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
)

// IntegrityError reports that a Solution's in-memory content has
// diverged from what's on disk in a way the caller did not expect
// (e.g. a concurrent external edit between load and save).
type IntegrityError struct {
	Path string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: on-disk content does not match in-memory content", e.Path)
}

func (e *IntegrityError) Kind() aprerr.Kind { return aprerr.KindIntegrityError }

var _ aprerr.CategorizedError = (*IntegrityError)(nil)

// Solution is an ordered collection of SourceFiles under repair, plus
// a set of include directories (headers, etc.) that accompany them
// but are not themselves subject to patching.
type Solution struct {
	files       []*SourceFile
	includeDirs []string
}

// New builds a Solution from already-loaded files and include dirs.
func New(files []*SourceFile, includeDirs []string) *Solution {
	return &Solution{files: append([]*SourceFile(nil), files...), includeDirs: append([]string(nil), includeDirs...)}
}

// FromPaths loads every file path and resolves every include dir,
// converting all to absolute paths.
func FromPaths(filePaths, includeDirPaths []string) (*Solution, error) {
	files := make([]*SourceFile, 0, len(filePaths))
	for _, p := range filePaths {
		sf, err := LoadFromPath(p)
		if err != nil {
			return nil, err
		}
		files = append(files, sf)
	}
	dirs := make([]string, 0, len(includeDirPaths))
	for _, d := range includeDirPaths {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("include path %q is not a directory", abs)
		}
		dirs = append(dirs, abs)
	}
	return New(files, dirs), nil
}

// Files returns a copy of the file list — callers may not mutate the
// Solution by mutating the returned slice.
func (s *Solution) Files() []*SourceFile {
	return append([]*SourceFile(nil), s.files...)
}

// IncludeDirs returns a copy of the include-dir list.
func (s *Solution) IncludeDirs() []string {
	return append([]string(nil), s.includeDirs...)
}

// AddSourceFile appends a file to the solution.
func (s *Solution) AddSourceFile(f *SourceFile) {
	s.files = append(s.files, f)
}

// GetFile looks up a file by absolute path.
func (s *Solution) GetFile(path string) (*SourceFile, bool) {
	for _, f := range s.files {
		if f.Path == path {
			return f, true
		}
	}
	return nil, false
}

// WorkingDir returns the longest common ancestor directory of every
// file in the solution. A single-file solution's working dir is that
// file's parent directory.
func (s *Solution) WorkingDir() string {
	if len(s.files) == 0 {
		return ""
	}
	if len(s.files) == 1 {
		return filepath.Dir(s.files[0].Path)
	}
	dirs := make([]string, len(s.files))
	for i, f := range s.files {
		dirs[i] = filepath.Dir(f.Path)
	}
	return commonPath(dirs)
}

func commonPath(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	split := make([][]string, len(paths))
	for i, p := range paths {
		split[i] = strings.Split(filepath.ToSlash(p), "/")
	}
	common := split[0]
	for _, parts := range split[1:] {
		common = commonPrefix(common, parts)
	}
	return strings.Join(common, "/")
}

func commonPrefix(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// VerifySolutionIntegrity checks every file with VerifyIntegrity,
// returning an *IntegrityError for the first mismatch found.
func (s *Solution) VerifySolutionIntegrity() error {
	for _, f := range s.files {
		ok, err := f.VerifyIntegrity()
		if err != nil {
			return err
		}
		if !ok {
			return &IntegrityError{Path: f.Path}
		}
	}
	return nil
}

// SaveTemp materializes every file (preserving its path relative to
// WorkingDir) under destDir, and copies every include dir alongside
// it. Include dirs that fall outside WorkingDir cannot be placed
// relatively and are instead copied in by their base name — this is a
// deliberate quirk preserved from the original implementation, not an
// oversight: a solution assembled from unrelated include paths simply
// loses their original layout once materialized.
func (s *Solution) SaveTemp(destDir string) error {
	workingDir := s.WorkingDir()
	for _, f := range s.files {
		rel, err := filepath.Rel(workingDir, f.Path)
		if err != nil {
			return err
		}
		if err := f.SaveTempFile(filepath.Join(destDir, rel)); err != nil {
			return err
		}
	}
	for _, dir := range s.includeDirs {
		var destPath string
		if rel, err := filepath.Rel(workingDir, dir); err == nil && !strings.HasPrefix(rel, "..") {
			destPath = filepath.Join(destDir, rel)
		} else {
			destPath = filepath.Join(destDir, filepath.Base(dir))
		}
		if err := copyDir(dir, destPath); err != nil {
			return err
		}
	}
	return nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// Merge combines two solutions: file lists are concatenated and
// include dirs are deduplicated by path. Merging does not save either
// input's files or change their on-disk location.
func Merge(a, b *Solution) *Solution {
	files := append(a.Files(), b.Files()...)
	seen := make(map[string]bool, len(a.includeDirs)+len(b.includeDirs))
	var dirs []string
	for _, d := range append(a.IncludeDirs(), b.IncludeDirs()...) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return New(files, dirs)
}

// FormatAs joins every file's FormatAs output with a separator,
// matching the original's default "\n\n---\n\n" solution-level
// formatter.
func (s *Solution) FormatAs(format Format, opts FormatOptions) string {
	if opts.WorkingDir == "" {
		opts.WorkingDir = s.WorkingDir()
	}
	parts := make([]string, len(s.files))
	for i, f := range s.files {
		parts[i] = f.FormatAs(format, opts)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
