package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format is the serialization used for a state file.
type Format string

const (
	// FormatJSON writes indented JSON, the default.
	FormatJSON Format = "json"

	// FormatYAML writes YAML.
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from the file extension.
// Anything other than .yaml or .yml is JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// record is the wire form of a CycleState.
type record struct {
	LastStep    *int   `json:"last_step" yaml:"last_step"`
	LastStepped string `json:"last_stepped" yaml:"last_stepped"`
}

var errMissingLastStep = errors.New("missing last_step")

// Encode serializes states in the given format. Cycle names are written in
// sorted order.
func Encode(states States, format Format) ([]byte, error) {
	wire := make(map[string]record, len(states))
	for name, cs := range states {
		step := cs.LastStep
		wire[name] = record{
			LastStep:    &step,
			LastStepped: cs.LastStepped.UTC().Format(TimestampLayout),
		}
	}

	switch format {
	case FormatYAML:
		// yaml.v3 sorts map keys when marshalling.
		return yaml.Marshal(wire)
	default:
		// encoding/json sorts map keys when marshalling.
		data, err := json.MarshalIndent(wire, "", "    ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// Decode parses data in the given format.
//
// Empty documents (JSON null, empty YAML) decode to an empty mapping.
// Returns an error for malformed data, records without last_step, or
// timestamps that are not RFC 3339.
func Decode(data []byte, format Format) (States, error) {
	var wire map[string]record

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &wire); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, err
		}
	}

	states := make(States, len(wire))
	for name, r := range wire {
		if r.LastStep == nil {
			return nil, fmt.Errorf("cycle %q: %w", name, errMissingLastStep)
		}
		at, err := time.Parse(time.RFC3339Nano, r.LastStepped)
		if err != nil {
			return nil, fmt.Errorf("cycle %q: invalid last_stepped: %w", name, err)
		}
		states[name] = NewCycleState(*r.LastStep, at)
	}
	return states, nil
}
