package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fieldsync/internal/record"
)

// Scenario defines one sync scenario: steps to apply and what must hold
// afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup establishes initial state. Engine writes made during setup are
	// not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the steps under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single write. Exactly one field must be set.
type Step struct {
	Link     *LinkStep     `yaml:"link,omitempty"`
	SetField *SetFieldStep `yaml:"set_field,omitempty"`
	Upsert   *UpsertStep   `yaml:"upsert,omitempty"`
	Delete   *DeleteStep   `yaml:"delete,omitempty"`
}

// LinkStep links a profile to a contact. An empty Contact creates one.
type LinkStep struct {
	Profile string `yaml:"profile"`
	Contact string `yaml:"contact,omitempty"`
}

// SetFieldStep writes a profile field.
type SetFieldStep struct {
	Profile string `yaml:"profile"`
	Key     string `yaml:"key"`
	Value   string `yaml:"value"`
}

// UpsertStep writes a contact record. Fields without an id create one.
type UpsertStep struct {
	Type   record.Type   `yaml:"type"`
	Fields record.Fields `yaml:"fields"`
}

// DeleteStep deletes a contact record.
type DeleteStep struct {
	Type record.Type `yaml:"type"`
	ID   string      `yaml:"id"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Profile, Key and Value select a profile field (profile_field) or an
	// engine write (trace_*). Value is a pointer so "" can be asserted.
	Profile string  `yaml:"profile,omitempty"`
	Key     string  `yaml:"key,omitempty"`
	Value   *string `yaml:"value,omitempty"`

	// Op and Record select engine writes by operation and record type.
	Op     string      `yaml:"op,omitempty"`
	Record record.Type `yaml:"record,omitempty"`

	// Fields is a subset match against an upsert request (trace_*).
	Fields record.Fields `yaml:"fields,omitempty"`

	// Where filters records (record, record_count).
	Where record.Fields `yaml:"where,omitempty"`

	// Expect is a subset match against the matched record (record).
	Expect record.Fields `yaml:"expect,omitempty"`

	// Count is the expected number of matches (record_count, trace_count).
	Count *int `yaml:"count,omitempty"`

	// Keys is the expected set_field key order (trace_order).
	Keys []string `yaml:"keys,omitempty"`
}

// Assertion type constants.
const (
	AssertProfileField  = "profile_field"
	AssertRecord        = "record"
	AssertRecordCount   = "record_count"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	set := 0
	for _, present := range []bool{step.Link != nil, step.SetField != nil, step.Upsert != nil, step.Delete != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of link, set_field, upsert, delete is required")
	}

	switch {
	case step.Link != nil:
		if step.Link.Profile == "" {
			return fmt.Errorf("link: profile is required")
		}
	case step.SetField != nil:
		if step.SetField.Profile == "" || step.SetField.Key == "" {
			return fmt.Errorf("set_field: profile and key are required")
		}
	case step.Upsert != nil:
		if !contactRecordType(step.Upsert.Type) {
			return fmt.Errorf("upsert: unsupported type %q", step.Upsert.Type)
		}
		if len(step.Upsert.Fields) == 0 {
			return fmt.Errorf("upsert: fields are required")
		}
	case step.Delete != nil:
		if !contactRecordType(step.Delete.Type) {
			return fmt.Errorf("delete: unsupported type %q", step.Delete.Type)
		}
		if step.Delete.ID == "" {
			return fmt.Errorf("delete: id is required")
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertProfileField:
		if a.Profile == "" || a.Key == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: profile, key and value are required for profile_field", index)
		}
	case AssertRecord:
		if !contactRecordType(a.Record) {
			return fmt.Errorf("assertions[%d]: record must be Address or Phone for record", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
	case AssertRecordCount:
		if !contactRecordType(a.Record) {
			return fmt.Errorf("assertions[%d]: record must be Address or Phone for record_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for record_count", index)
		}
	case AssertTraceContains:
		if a.Op != OpUpsert && a.Op != OpSetField {
			return fmt.Errorf("assertions[%d]: op must be upsert or set_field for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Op != "" && a.Op != OpUpsert && a.Op != OpSetField {
			return fmt.Errorf("assertions[%d]: op must be upsert or set_field for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Keys) < 2 {
			return fmt.Errorf("assertions[%d]: at least two keys are required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func contactRecordType(t record.Type) bool {
	return t == record.TypeAddress || t == record.TypePhone
}
