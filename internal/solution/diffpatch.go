package solution

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
)

// GetDiff shells out to `diff -u` between the content currently on
// disk at s.Path and this file's in-memory Content, returning
// a unified diff. diff's own exit codes are 0 (no differences), 1
// (differences found — the normal case here) and 2 (diff itself
// failed, e.g. a missing file); only 2 is treated as fatal.
func (s *SourceFile) GetDiff() (string, error) {
	tmp, err := os.CreateTemp("", "esbmc-ai-diff-*"+s.FileExtension())
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(s.Content); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	cmd := exec.Command("diff", "-u", "--label", s.Path, "--label", s.Path, s.Path, tmp.Name())
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err = cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		if exitErr.ExitCode() == 2 {
			return "", aprerr.Wrap(aprerr.KindDiffError, fmt.Sprintf("diff failed fatally on %s", s.Path), err)
		}
	} else if err != nil {
		return "", err
	}
	return out.String(), nil
}

// GetDiff runs `diff -ruN` between origDir (the solution as it exists
// on disk) and the solution's current in-memory state materialized
// under a fresh temp dir, returning a unified diff across every file.
func (s *Solution) GetDiff(origDir string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "esbmc-ai-solution-diff-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)
	if err := s.SaveTemp(tmpDir); err != nil {
		return "", err
	}

	cmd := exec.Command("diff", "-ruN", origDir, tmpDir)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err = cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		if exitErr.ExitCode() == 2 {
			return "", aprerr.Wrap(aprerr.KindDiffError, "diff failed fatally across solution", err)
		}
	} else if err != nil {
		return "", err
	}
	return out.String(), nil
}

// SaveDiff writes the solution-wide unified diff against origDir to
// destPath.
func (s *Solution) SaveDiff(origDir, destPath string) error {
	diff, err := s.GetDiff(origDir)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(diff), 0o644)
}

// PatchSolution applies a unified diff produced by GetDiff to the
// files on disk under workingDir, via the external `patch` tool.
// patch's exit codes: 0 success, 1 some hunks could not be applied
// (PartialPatchError), 2 or higher a more serious failure (DiffError).
func PatchSolution(workingDir, patchFile string) error {
	cmd := exec.Command("patch", "-d", workingDir, "-i", patchFile)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		switch exitErr.ExitCode() {
		case 1:
			return aprerr.Wrap(aprerr.KindPartialPatchError, "some hunks could not be applied: "+out.String(), err)
		default:
			return aprerr.Wrap(aprerr.KindDiffError, "patch failed: "+out.String(), err)
		}
	} else if err != nil {
		return err
	}
	return nil
}

// ApplyPatchFile is a convenience wrapper that writes patchContent to
// a temp file before calling PatchSolution, and removes it afterward.
func ApplyPatchFile(workingDir, patchContent string) error {
	tmp, err := os.CreateTemp("", "esbmc-ai-patch-*.diff")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(patchContent); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return PatchSolution(workingDir, tmp.Name())
}
