package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ddb/internal/config"
)

// Scenario defines a ddb scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Blueprints are the store kinds the steps may use.
	Blueprints []config.BlueprintConfig `yaml:"blueprints"`

	// Steps run in order against one database.
	Steps []Step `yaml:"steps"`
}

// Step is one operation. Exactly one of the operation fields is set.
type Step struct {
	Create  string    `yaml:"create,omitempty"`
	Open    *OpenStep `yaml:"open,omitempty"`
	Put     *PutStep  `yaml:"put,omitempty"`
	Get     *KeyStep  `yaml:"get,omitempty"`
	Add     *AddStep  `yaml:"add,omitempty"`
	Delete  *KeyStep  `yaml:"delete,omitempty"`
	Entries string    `yaml:"entries,omitempty"`
	Reopen  bool      `yaml:"reopen,omitempty"`

	// As names the store a create or open step produces.
	As string `yaml:"as,omitempty"`

	// Expect is the value a get returns, or the count entries returns.
	Expect any `yaml:"expect,omitempty"`

	// ExpectMissing requires a get to find nothing.
	ExpectMissing bool `yaml:"expect_missing,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// OpenStep opens a store. Store is an alias from an earlier step or any
// identifier the manager accepts.
type OpenStep struct {
	Blueprint string `yaml:"blueprint"`
	Store     string `yaml:"store"`
}

// PutStep writes Value under Key.
type PutStep struct {
	Store string `yaml:"store"`
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// KeyStep reads or deletes Key.
type KeyStep struct {
	Store string `yaml:"store"`
	Key   string `yaml:"key"`
}

// AddStep appends Value.
type AddStep struct {
	Store string `yaml:"store"`
	Value any    `yaml:"value"`
}

// Op names the operation the step performs, or "" if none is set.
func (s Step) Op() string {
	ops := s.ops()
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

func (s Step) ops() []string {
	var ops []string
	if s.Create != "" {
		ops = append(ops, "create")
	}
	if s.Open != nil {
		ops = append(ops, "open")
	}
	if s.Put != nil {
		ops = append(ops, "put")
	}
	if s.Get != nil {
		ops = append(ops, "get")
	}
	if s.Add != nil {
		ops = append(ops, "add")
	}
	if s.Delete != nil {
		ops = append(ops, "delete")
	}
	if s.Entries != "" {
		ops = append(ops, "entries")
	}
	if s.Reopen {
		ops = append(ops, "reopen")
	}
	return ops
}

// LoadScenario loads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario from YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos)
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, ordered by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Blueprints) == 0 {
		return fmt.Errorf("blueprints list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	ops := step.ops()
	switch len(ops) {
	case 0:
		return fmt.Errorf("steps[%d]: no operation", i)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: more than one operation: %v", i, ops)
	}

	op := ops[0]
	if step.As != "" && op != "create" && op != "open" {
		return fmt.Errorf("steps[%d]: as is only valid for create and open", i)
	}
	if step.Expect != nil && op != "get" && op != "entries" {
		return fmt.Errorf("steps[%d]: expect is only valid for get and entries", i)
	}
	if step.ExpectMissing && op != "get" {
		return fmt.Errorf("steps[%d]: expect_missing is only valid for get", i)
	}
	if step.ExpectMissing && step.Expect != nil {
		return fmt.Errorf("steps[%d]: expect and expect_missing are mutually exclusive", i)
	}
	if step.ExpectError != "" && (step.Expect != nil || step.ExpectMissing) {
		return fmt.Errorf("steps[%d]: expect_error excludes other expectations", i)
	}
	if op == "entries" && step.Expect != nil {
		if _, ok := step.Expect.(int); !ok {
			return fmt.Errorf("steps[%d]: entries expect must be an integer", i)
		}
	}
	if op == "open" && (step.Open.Blueprint == "" || step.Open.Store == "") {
		return fmt.Errorf("steps[%d]: open requires blueprint and store", i)
	}
	return nil
}
