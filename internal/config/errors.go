package config

import (
	"fmt"
	"strings"
)

// ConfigNotFoundError indicates the configuration file does not exist.
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

// InvalidConfigError indicates the configuration file exists but cannot be
// read or parsed.
type InvalidConfigError struct {
	Path string
	Err  error
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("error reading config file %s: %v", e.Path, e.Err)
}

func (e *InvalidConfigError) Unwrap() error {
	return e.Err
}

// CycleNotFoundError indicates the requested cycle is not configured.
type CycleNotFoundError struct {
	Name      string
	Available []string
}

func (e *CycleNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("cycle not found: %s (no cycles configured)", e.Name)
	}
	return fmt.Sprintf("cycle not found: %s (available: %s)", e.Name, strings.Join(e.Available, ", "))
}
