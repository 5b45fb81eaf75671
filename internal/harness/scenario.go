package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/model"
)

// Phases a scenario can run.
const (
	PhaseSpecify = "specify"
	PhaseVerify  = "verify"
)

// Scenario defines a reconciliation conformance scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Phase is "specify" or "verify".
	Phase string `yaml:"phase"`

	// Module restricts a verify run, like --verify-only-module.
	Module string `yaml:"module,omitempty"`

	// Entries is the structure store content.
	Entries []EntrySpec `yaml:"entries"`

	// Certs is the ledger content before the run, per category.
	Certs map[string][]string `yaml:"certs,omitempty"`

	// Live lists identifiers the backend reports positive.
	Live []string `yaml:"live,omitempty"`

	// Unknown lists identifiers whose verdict could not be read.
	Unknown []string `yaml:"unknown,omitempty"`

	// Select is the specify selection input. Empty selects nothing.
	Select string `yaml:"select,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// EntrySpec is one structure entry.
type EntrySpec struct {
	ID      string `yaml:"id"`
	Module  string `yaml:"module,omitempty"`
	Visible *bool  `yaml:"visible,omitempty"`
	Missing bool   `yaml:"missing,omitempty"`
}

// Entry converts the spec to a model entry.
func (e EntrySpec) Entry() model.Entry {
	return model.Entry{
		Identifier: model.Identifier(e.ID),
		Module:     e.Module,
		Visible:    e.Visible,
		Missing:    e.Missing,
	}
}

// Assertion validates the ledger, the trace or the entry flags.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Category is the ledger category (ledger_equals, trace_contains).
	Category string `yaml:"category,omitempty"`

	// IDs is the expected ledger content (ledger_equals).
	IDs []string `yaml:"ids,omitempty"`

	// Action is "create" or "delete" (trace_contains, optional for trace_count).
	Action string `yaml:"action,omitempty"`

	// ID is the identifier (trace_contains, flags).
	ID string `yaml:"id,omitempty"`

	// Count is the expected number of mutations (trace_count).
	Count int `yaml:"count,omitempty"`

	// Before and After are the expected totals (totals).
	Before *int `yaml:"before,omitempty"`
	After  *int `yaml:"after,omitempty"`

	// Specified and Verified are the expected flags (flags).
	Specified *bool `yaml:"specified,omitempty"`
	Verified  *bool `yaml:"verified,omitempty"`
}

// Assertion type constants.
const (
	AssertLedgerEquals  = "ledger_equals"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTotals        = "totals"
	AssertFlags         = "flags"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validCategory(c string) bool {
	return c == string(certs.Specify) || c == string(certs.Verify)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Phase {
	case PhaseSpecify:
		if s.Module != "" {
			return fmt.Errorf("module is only valid for verify scenarios")
		}
	case PhaseVerify:
		if s.Select != "" {
			return fmt.Errorf("select is only valid for specify scenarios")
		}
	default:
		return fmt.Errorf("phase must be %q or %q, got %q", PhaseSpecify, PhaseVerify, s.Phase)
	}

	seen := make(map[string]bool)
	for i, e := range s.Entries {
		if e.ID == "" {
			return fmt.Errorf("entries[%d]: id is required", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("entries[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
	}

	for cat := range s.Certs {
		if !validCategory(cat) {
			return fmt.Errorf("certs: unknown category %q", cat)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLedgerEquals:
		if !validCategory(a.Category) {
			return fmt.Errorf("assertions[%d]: category is required for ledger_equals", index)
		}
	case AssertTraceContains:
		if a.Action != ActionCreate && a.Action != ActionDelete {
			return fmt.Errorf("assertions[%d]: action must be create or delete for trace_contains", index)
		}
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Action != "" && a.Action != ActionCreate && a.Action != ActionDelete {
			return fmt.Errorf("assertions[%d]: action must be create or delete for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTotals:
		if a.Before == nil && a.After == nil {
			return fmt.Errorf("assertions[%d]: before or after is required for totals", index)
		}
	case AssertFlags:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for flags", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
