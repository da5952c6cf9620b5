// Package config provides configuration loading for aioniser.
//
// Configuration is loaded using Viper, with environment variable overrides
// for the runtime settings. The configuration file holds three sections:
//
//	{
//	  "actions":  {"say": "echo {message}"},
//	  "cycles":   {"lights": {"reset": false, "steps": [[{"action": "say", "kwargs": {"message": "on"}}]]}},
//	  "settings": {"reset_timeout_ms": 1000, "state_path": "", "shell": ""}
//	}
//
// Action and cycle names are case-sensitive identifiers. Viper folds keys to
// lower case, so the actions and cycles sections are decoded directly from
// the file bytes while Viper owns the settings section and the environment.
//
// Key types:
//   - [Config] is the root configuration container
//   - [Loader] handles Viper-based configuration loading
//   - [CycleConfig] and [ActivityConfig] mirror the cycle definitions on disk
//
// Configuration file resolution (highest to lowest):
//  1. Explicit path passed to [Loader.LoadFromFile] (the --config flag)
//  2. AIONISER_CONFIG_PATH environment variable
//  3. [DefaultConfigPath] in the platform user config directory
//     (Linux: ~/.config/aioniser.json)
//
// Settings overrides: AIONISER_STATE_PATH, AIONISER_RESET_TIMEOUT_MS and
// AIONISER_SHELL take precedence over the settings section.
package config

import (
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"aioniser/internal/cycle"
	"aioniser/internal/state"
	"aioniser/internal/stepper"
)

// Config represents the root configuration structure.
type Config struct {
	// Actions maps action names to command templates with {named} placeholders.
	Actions map[string]string `json:"actions" yaml:"actions"`

	// Cycles maps cycle names to their definitions.
	Cycles map[string]CycleConfig `json:"cycles" yaml:"cycles"`

	// Settings contains runtime settings.
	Settings Settings `json:"settings" yaml:"settings"`

	// Path is the file the configuration was loaded from, if any.
	Path string `json:"-" yaml:"-"`
}

// CycleConfig is a cycle definition as written in the configuration file.
type CycleConfig struct {
	// Reset restarts the cycle at step 0 after the reset timeout.
	// Default: false
	Reset bool `json:"reset" yaml:"reset"`

	// ResetTimeoutMS overrides the global reset timeout for this cycle.
	// Zero uses Settings.ResetTimeoutMS.
	ResetTimeoutMS int `json:"reset_timeout_ms" yaml:"reset_timeout_ms"`

	// Steps lists the steps in order; each step is a list of activities.
	Steps [][]ActivityConfig `json:"steps" yaml:"steps"`
}

// ActivityConfig is a single activity as written in the configuration file.
type ActivityConfig struct {
	// Action names a key of Config.Actions.
	Action string `json:"action" yaml:"action"`

	// Kwargs supplies placeholder values. Non-string scalars are accepted
	// and formatted as text.
	Kwargs Kwargs `json:"kwargs" yaml:"kwargs"`
}

// Kwargs holds placeholder values as decoded from the configuration file.
//
// Scalars keep the text they were written with, so 1.0 stays "1.0" in both
// JSON (decoded as json.Number) and YAML.
type Kwargs map[string]any

// UnmarshalYAML decodes a kwargs mapping, keeping scalar values as written.
func (k *Kwargs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: kwargs must be a mapping", node.Line)
	}
	out := make(Kwargs, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		switch {
		case val.Kind == yaml.ScalarNode && val.ShortTag() == "!!null":
			out[key] = nil
		case val.Kind == yaml.ScalarNode:
			out[key] = val.Value
		default:
			var v any
			if err := val.Decode(&v); err != nil {
				return err
			}
			out[key] = v
		}
	}
	*k = out
	return nil
}

// Settings contains runtime settings.
type Settings struct {
	// ResetTimeoutMS is the default reset timeout in milliseconds.
	// Default: 1000
	ResetTimeoutMS int `mapstructure:"reset_timeout_ms" json:"reset_timeout_ms" yaml:"reset_timeout_ms"`

	// StatePath is the state file location.
	// Default: aioniser_steps.json in the system temp directory.
	StatePath string `mapstructure:"state_path" json:"state_path" yaml:"state_path"`

	// Shell runs action commands with "<shell> -c".
	// Default: /bin/sh
	Shell string `mapstructure:"shell" json:"shell" yaml:"shell"`
}

// DefaultConfig returns a new [Config] with no actions or cycles and the
// default settings.
func DefaultConfig() *Config {
	return &Config{
		Actions: map[string]string{},
		Cycles:  map[string]CycleConfig{},
		Settings: Settings{
			ResetTimeoutMS: int(stepper.DefaultResetTimeout / time.Millisecond),
		},
	}
}

// ResetTimeout returns the global reset timeout.
func (c *Config) ResetTimeout() time.Duration {
	if c.Settings.ResetTimeoutMS <= 0 {
		return stepper.DefaultResetTimeout
	}
	return time.Duration(c.Settings.ResetTimeoutMS) * time.Millisecond
}

// StatePath returns the configured state file path or the default one.
func (c *Config) StatePath() string {
	if c.Settings.StatePath != "" {
		return c.Settings.StatePath
	}
	return state.DefaultPath()
}

// CycleNames returns the configured cycle names in sorted order.
func (c *Config) CycleNames() []string {
	names := make([]string, 0, len(c.Cycles))
	for name := range c.Cycles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cycle builds and validates the named cycle.
//
// Returns [*CycleNotFoundError] if no cycle has that name, and a wrapped
// validation error (see [cycle.Cycle.Validate]) if the definition is invalid.
func (c *Config) Cycle(name string) (cycle.Cycle, error) {
	cc, ok := c.Cycles[name]
	if !ok {
		return cycle.Cycle{}, &CycleNotFoundError{Name: name, Available: c.CycleNames()}
	}
	return buildCycle(name, cc)
}

// AllCycles builds and validates every configured cycle.
func (c *Config) AllCycles() (map[string]cycle.Cycle, error) {
	out := make(map[string]cycle.Cycle, len(c.Cycles))
	for _, name := range c.CycleNames() {
		built, err := buildCycle(name, c.Cycles[name])
		if err != nil {
			return nil, err
		}
		out[name] = built
	}
	return out, nil
}

func buildCycle(name string, cc CycleConfig) (cycle.Cycle, error) {
	c := cycle.Cycle{
		Name:         name,
		Reset:        cc.Reset,
		ResetTimeout: time.Duration(cc.ResetTimeoutMS) * time.Millisecond,
		Steps:        make([]cycle.Step, 0, len(cc.Steps)),
	}
	for _, activities := range cc.Steps {
		step := cycle.Step{Activities: make([]cycle.Activity, 0, len(activities))}
		for _, a := range activities {
			step.Activities = append(step.Activities, cycle.Activity{
				Action: a.Action,
				Kwargs: stringifyKwargs(a.Kwargs),
			})
		}
		c.Steps = append(c.Steps, step)
	}

	if err := c.Validate(); err != nil {
		return cycle.Cycle{}, err
	}
	return c, nil
}

func stringifyKwargs(in Kwargs) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
