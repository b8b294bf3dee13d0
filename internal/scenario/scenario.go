package scenario

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kata/internal/protocol"
	"github.com/roach88/kata/internal/runner"
)

// Scenario is one kata scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Request is the run to execute.
	Request Request `yaml:"request"`

	// Assertions validate the run's output.
	Assertions []Assertion `yaml:"assertions"`

	// Golden compares stdout against testdata golden files when set.
	Golden bool `yaml:"golden,omitempty"`
}

// Request is the file form of runner.Request. Timeouts are milliseconds.
type Request struct {
	Framework     string            `yaml:"framework"`
	Code          string            `yaml:"code,omitempty"`
	Fixture       string            `yaml:"fixture,omitempty"`
	Setup         string            `yaml:"setup,omitempty"`
	Files         map[string]string `yaml:"files,omitempty"`
	Strict        bool              `yaml:"strict,omitempty"`
	CaseTimeoutMS int               `yaml:"case_timeout_ms,omitempty"`
	RunTimeoutMS  int               `yaml:"run_timeout_ms,omitempty"`
}

// Runner converts r into a runner request.
func (r Request) Runner() runner.Request {
	return runner.Request{
		Framework:   r.Framework,
		Code:        r.Code,
		Fixture:     r.Fixture,
		Setup:       r.Setup,
		Files:       r.Files,
		Strict:      r.Strict,
		CaseTimeout: time.Duration(r.CaseTimeoutMS) * time.Millisecond,
		RunTimeout:  time.Duration(r.RunTimeoutMS) * time.Millisecond,
	}
}

// Assertion checks one property of a run.
type Assertion struct {
	// Type selects the check:
	// - "stdout_equals", "stderr_equals": exact stream match against Value
	// - "stdout_contains", "stdout_excludes", "stderr_contains": substring
	// - "verdict": Value is passed, failed or no_tests
	// - "token_count": exactly Count events of kind Token
	// - "token_order": Lines appear in stdout in order, not necessarily adjacent
	// - "timed_out": Value is "true" or "false"
	Type string `yaml:"type"`

	Value string   `yaml:"value,omitempty"`
	Token string   `yaml:"token,omitempty"`
	Count int      `yaml:"count,omitempty"`
	Lines []string `yaml:"lines,omitempty"`
}

// Assertion type constants.
const (
	AssertStdoutEquals   = "stdout_equals"
	AssertStdoutContains = "stdout_contains"
	AssertStdoutExcludes = "stdout_excludes"
	AssertStderrEquals   = "stderr_equals"
	AssertStderrContains = "stderr_contains"
	AssertVerdict        = "verdict"
	AssertTokenCount     = "token_count"
	AssertTokenOrder     = "token_order"
	AssertTimedOut       = "timed_out"
)

// Load reads, schema-checks and parses a scenario file. It fails on
// malformed YAML, unknown fields (typos) and missing required fields.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory data.
func Parse(data []byte) (*Scenario, error) {
	if err := CheckSchema(data); err != nil {
		return nil, err
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validate(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validate checks what the schema cannot: cross-field requirements.
func validate(s *Scenario) error {
	r := s.Request
	if r.Code == "" && r.Fixture == "" && len(r.Files) == 0 {
		return fmt.Errorf("request needs code, fixture or files")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertStdoutEquals, AssertStdoutContains, AssertStdoutExcludes, AssertStderrEquals, AssertStderrContains:
		if a.Type != AssertStdoutEquals && a.Type != AssertStderrEquals && a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertVerdict:
		if _, err := protocol.ParseVerdict(a.Value); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertTokenCount:
		if _, ok := protocol.ParseKind(a.Token); !ok {
			return fmt.Errorf("assertions[%d]: unknown token %q", index, a.Token)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTokenOrder:
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines are required for token_order", index)
		}
	case AssertTimedOut:
		if a.Value != "true" && a.Value != "false" {
			return fmt.Errorf("assertions[%d]: value must be true or false", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
