package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/dsl"
)

// Op names a script step.
type Op string

const (
	OpTransition      Op = "transition"
	OpCreate          Op = "create"
	OpAppend          Op = "append"
	OpInsertBefore    Op = "insert_before"
	OpReplace         Op = "replace"
	OpRemove          Op = "remove"
	OpSetAttribute    Op = "set_attribute"
	OpRemoveAttribute Op = "remove_attribute"
	OpSetStyle        Op = "set_style"
	OpSetProperty     Op = "set_property"
	OpBeginPass       Op = "begin_pass"
	OpTick            Op = "tick"
	OpSettle          Op = "settle"
	OpExpectChildren  Op = "expect_children"
)

// Step is one instruction of a script.
type Step struct {
	Op Op `json:"op" yaml:"op" mapstructure:"op"`

	// Target is the node the step acts on, or the parent for structural steps.
	Target string `json:"target,omitempty" yaml:"target,omitempty" mapstructure:"target"`
	// Node is the child of structural steps.
	Node string `json:"node,omitempty" yaml:"node,omitempty" mapstructure:"node"`
	// Ref is the reference child of insert_before and the old child of replace.
	Ref string `json:"ref,omitempty" yaml:"ref,omitempty" mapstructure:"ref"`
	// As names the node built by create.
	As string `json:"as,omitempty" yaml:"as,omitempty" mapstructure:"as"`

	Key   string `json:"key,omitempty" yaml:"key,omitempty" mapstructure:"key"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`

	Element *dsl.Spec `json:"element,omitempty" yaml:"element,omitempty" mapstructure:"element"`

	// Payload is the raw binding attribute of a transition step. Absent
	// payload and entries mean the attribute was removed.
	Payload *string        `json:"payload,omitempty" yaml:"payload,omitempty" mapstructure:"payload"`
	Entries []domain.Entry `json:"entries,omitempty" yaml:"entries,omitempty" mapstructure:"entries"`

	Count  int      `json:"count,omitempty" yaml:"count,omitempty" mapstructure:"count"`
	Expect []string `json:"expect,omitempty" yaml:"expect,omitempty" mapstructure:"expect"`
}

func (s Step) String() string {
	if s.Target != "" {
		return fmt.Sprintf("%s %s", s.Op, s.Target)
	}
	return string(s.Op)
}

// Script is a named list of steps.
type Script struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Steps []Step `json:"steps" yaml:"steps" mapstructure:"steps"`
}

// LoadScript reads a script file. The format follows the extension; anything
// other than .json is parsed as YAML.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("failed to read script: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	s, err := ParseScript(data, format)
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// ParseScript decodes a script. The document is either an object with a
// "steps" list or a bare list of steps.
func ParseScript(data []byte, format string) (Script, error) {
	if err := CheckSize(data); err != nil {
		return Script{}, err
	}

	var raw any
	switch format {
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return Script{}, fmt.Errorf("invalid json script: %w", err)
		}
	case "yaml", "yml", "":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Script{}, fmt.Errorf("invalid yaml script: %w", err)
		}
	default:
		return Script{}, fmt.Errorf("unsupported script format %q", format)
	}

	if list, ok := raw.([]any); ok {
		raw = map[string]any{"steps": list}
	}
	return DecodeScript(raw)
}

// DecodeScript converts generic decoded data (as produced by encoding/json or
// yaml.v3) into a Script and validates it.
func DecodeScript(raw any) (Script, error) {
	var s Script
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Script{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Script{}, fmt.Errorf("invalid script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// DecodeSteps converts generic decoded step objects into steps.
func DecodeSteps(raw []any) ([]Step, error) {
	s, err := DecodeScript(map[string]any{"steps": raw})
	if err != nil {
		return nil, err
	}
	return s.Steps, nil
}

// Validate checks the fields every step requires.
func (s Script) Validate() error {
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	switch s.Op {
	case OpTransition, OpBeginPass, OpTick, OpSettle:
		return nil
	case OpCreate:
		if s.Element == nil {
			return fmt.Errorf("element is required")
		}
		if s.As == "" {
			return fmt.Errorf("as is required")
		}
	case OpAppend, OpRemove:
		if s.Node == "" {
			return fmt.Errorf("node is required")
		}
	case OpInsertBefore:
		if s.Node == "" {
			return fmt.Errorf("node is required")
		}
	case OpReplace:
		if s.Node == "" || s.Ref == "" {
			return fmt.Errorf("node and ref are required")
		}
	case OpSetAttribute, OpRemoveAttribute, OpSetStyle, OpSetProperty:
		if s.Key == "" {
			return fmt.Errorf("key is required")
		}
	case OpExpectChildren:
		return nil
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}
