// Package verifier implements the Verifier Adapter: it shells out to a
// bounded model checker (ESBMC by default), enforces the subprocess
// contract spec'd for it, and parses the verifier's textual output
// into the verifyout data model.
package verifier

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"syscall"
	"time"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
	"github.com/esbmc-ai/esbmc-ai-go/internal/solution"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifyout"
)

// forbiddenFlags are flags the adapter injects itself; a caller
// supplying one of these is an InvalidParam error rather than a
// silently-overridden call, so double invocation is never masked.
var forbiddenFlags = []string{"--timeout", "--function", "--input-file"}

// Params is the set of caller-supplied flags to pass to the verifier,
// in addition to the file list the adapter appends itself.
type Params struct {
	Binary string   // defaults to "esbmc" if empty
	Flags  []string // caller flags; must not include forbiddenFlags or repeat a property-selecting flag
}

// Adapter invokes a verifier subprocess and parses its output.
type Adapter struct {
	cache *ResultCache
}

// New creates an Adapter. cache may be nil to disable result caching.
func New(cache *ResultCache) *Adapter {
	return &Adapter{cache: cache}
}

func validateParams(params Params) error {
	for _, flag := range params.Flags {
		if slices.Contains(forbiddenFlags, flag) {
			return aprerr.New(aprerr.KindInvalidParam, fmt.Sprintf("flag %q is injected by the adapter and must not be supplied", flag))
		}
	}
	return nil
}

// Verify runs the verifier against sol, with a wall-clock budget of
// timeoutSeconds (the adapter itself waits up to timeoutSeconds+10 for
// the subprocess to exit, to give the verifier slack to shut down
// cleanly after its own internal timeout fires) and entryFunction as
// the function under verification.
func (a *Adapter) Verify(ctx context.Context, sol *solution.Solution, params Params, timeoutSeconds int, entryFunction string) (verifyout.Output, error) {
	if err := validateParams(params); err != nil {
		return verifyout.Output{}, err
	}

	if a.cache != nil {
		if out, ok := a.cache.Get(sol, params, timeoutSeconds, entryFunction); ok {
			return out, nil
		}
	}

	binary := params.Binary
	if binary == "" {
		binary = "esbmc"
	}

	args := append([]string{}, params.Flags...)
	for _, dir := range sol.IncludeDirs() {
		args = append(args, "-I"+dir)
	}
	args = append(args, "--timeout", fmt.Sprintf("%ds", timeoutSeconds), "--function", entryFunction)
	for _, f := range sol.Files() {
		args = append(args, f.Path)
	}

	subprocessTimeout := time.Duration(timeoutSeconds+10) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Dir = sol.WorkingDir()
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return verifyout.Output{}, aprerr.New(aprerr.KindVerifierTimeout, fmt.Sprintf("verifier did not exit within %s", subprocessTimeout))
	}

	returnCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return verifyout.Output{}, aprerr.New(aprerr.KindVerifierCrashed, fmt.Sprintf("verifier terminated by signal %s", status.Signal()))
		}
		returnCode = exitErr.ExitCode()
	} else if err != nil {
		return verifyout.Output{}, err
	}

	result := Parse(out.String(), returnCode)
	if result.TimedOut {
		return result, aprerr.New(aprerr.KindVerifierTimeout, "verifier reported its own internal timeout")
	}
	if result.ParseError {
		return result, aprerr.New(aprerr.KindSourceCodeParseError, "verifier reported a source parse error")
	}

	if a.cache != nil {
		a.cache.Put(sol, params, timeoutSeconds, entryFunction, result)
	}
	return result, nil
}
