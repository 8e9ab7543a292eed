// Package scenario holds the table of prompts keyed by verifier error
// classification: which system messages and initial user message to
// use when asking the LLM to fix a given kind of failure.
package scenario

import (
	"os"

	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
	"gopkg.in/yaml.v3"
)

// DefaultScenario is the fallback scenario name used when a verifier's
// error classification has no dedicated entry in the table.
const DefaultScenario = "base"

// Scenario pairs a frozen system-message preamble with the initial
// user message template sent for one error classification.
type Scenario struct {
	System  []llm.Message
	Initial llm.Message
}

// Table is the FixCodeScenarios table: error classification -> Scenario,
// with DefaultScenario guaranteed present. It is built once at startup
// and never mutated afterward.
type Table struct {
	byName map[string]Scenario
}

// yamlScenario mirrors the on-disk YAML shape:
//
//	base:
//	  system: ["You are a C/C++ repair assistant.", ...]
//	  initial: "Fix the following issue: {{esbmc_output}}"
type yamlScenario struct {
	System  []string `yaml:"system"`
	Initial string   `yaml:"initial"`
}

// LoadTable reads a YAML document of {name: {system, initial}} entries
// and returns a Table. The document must contain a "base" entry — it
// is the mandatory fallback every lookup degrades to.
func LoadTable(data []byte) (*Table, error) {
	var raw map[string]yamlScenario
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return newTableFromRaw(raw)
}

// LoadTableFile loads a Table from a YAML file on disk.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadTable(data)
}

func newTableFromRaw(raw map[string]yamlScenario) (*Table, error) {
	t := &Table{byName: make(map[string]Scenario, len(raw))}
	for name, ys := range raw {
		sysMsgs := make([]llm.Message, len(ys.System))
		for i, s := range ys.System {
			sysMsgs[i] = llm.Message{Role: llm.RoleSystem, Content: s}
		}
		t.byName[name] = Scenario{
			System:  sysMsgs,
			Initial: llm.Message{Role: llm.RoleUser, Content: ys.Initial},
		}
	}
	if _, ok := t.byName[DefaultScenario]; !ok {
		return nil, errMissingBaseScenario
	}
	return t, nil
}

var errMissingBaseScenario = scenarioError("scenario table must define a \"" + DefaultScenario + "\" entry")

type scenarioError string

func (e scenarioError) Error() string { return string(e) }

// Lookup returns the Scenario registered for name, falling back to
// DefaultScenario when name has no dedicated entry — mirroring the
// original's "unrecognized error types fall back to the base prompt"
// behavior rather than failing the repair attempt outright.
func (t *Table) Lookup(name string) Scenario {
	if s, ok := t.byName[name]; ok {
		return s
	}
	return t.byName[DefaultScenario]
}

// Names returns every scenario name registered in the table.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	return names
}
