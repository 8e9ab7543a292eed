// Package registry holds the fixed, explicitly-constructed map of
// verifier and command instances spec.md's Component Registry names:
// "Fixed map of verifier/command instances with per-component
// config." It is built once via New and threaded through the Repair
// Loop Engine as a plain value — there is no package-level singleton,
// per spec.md §9's explicit design note that process-wide collaborators
// (config, component registry, verifier runner) must be explicitly
// constructed context records, not globals.
//
// This supersedes the teacher's model/provider Registry (a different
// product's LLM catalogue keyed by provider name); the
// thread-safe-map-of-definitions shape is kept, the contents are not.
package registry

import (
	"fmt"
	"sync"

	"github.com/esbmc-ai/esbmc-ai-go/internal/config"
	"github.com/esbmc-ai/esbmc-ai-go/internal/scenario"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifier"
)

// VerifierComponent is one named, fully-configured verifier adapter
// instance — e.g. a default "esbmc" entry and a stricter
// "esbmc-strict" entry with different flags, sharing one binary.
type VerifierComponent struct {
	Name          string
	Adapter       *verifier.Adapter
	Params        verifier.Params
	Timeout       int
	EntryFunction string
}

// CommandComponent is one named, fully-configured repair command —
// the scenario table and repair config a Repair Loop Engine run
// should use when invoked under this name (e.g. "fix-code",
// "fix-code-strict" pointed at a different scenario table).
type CommandComponent struct {
	Name     string
	Config   config.RepairConfig
	Table    *scenario.Table
	Verifier string // name of the VerifierComponent this command drives
}

// Registry is the read-only-after-construction component map. Safe
// for concurrent reads from multiple goroutines (e.g. a CLI dispatch
// loop inspecting available commands while a repair task is running);
// there is no mutation path after New returns, so the mutex exists for
// defensive correctness rather than any anticipated write traffic.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]VerifierComponent
	commands  map[string]CommandComponent
}

// New builds a Registry from explicit component lists. Duplicate
// names within either list are a construction error — the registry is
// a fixed map, not an accretive one.
func New(verifiers []VerifierComponent, commands []CommandComponent) (*Registry, error) {
	vmap := make(map[string]VerifierComponent, len(verifiers))
	for _, v := range verifiers {
		if v.Name == "" {
			return nil, fmt.Errorf("registry: verifier component has empty name")
		}
		if _, exists := vmap[v.Name]; exists {
			return nil, fmt.Errorf("registry: duplicate verifier component %q", v.Name)
		}
		vmap[v.Name] = v
	}

	cmap := make(map[string]CommandComponent, len(commands))
	for _, c := range commands {
		if c.Name == "" {
			return nil, fmt.Errorf("registry: command component has empty name")
		}
		if _, exists := cmap[c.Name]; exists {
			return nil, fmt.Errorf("registry: duplicate command component %q", c.Name)
		}
		if c.Verifier != "" {
			if _, ok := vmap[c.Verifier]; !ok {
				return nil, fmt.Errorf("registry: command %q references unknown verifier %q", c.Name, c.Verifier)
			}
		}
		cmap[c.Name] = c
	}

	return &Registry{verifiers: vmap, commands: cmap}, nil
}

// Verifier looks up a verifier component by name.
func (r *Registry) Verifier(name string) (VerifierComponent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verifiers[name]
	return v, ok
}

// Command looks up a command component by name.
func (r *Registry) Command(name string) (CommandComponent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// VerifierNames returns the names of every registered verifier
// component, for CLI listing/help output.
func (r *Registry) VerifierNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.verifiers))
	for name := range r.verifiers {
		names = append(names, name)
	}
	return names
}

// CommandNames returns the names of every registered command
// component.
func (r *Registry) CommandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}
