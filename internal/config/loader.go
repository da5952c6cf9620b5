package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of all aioniser environment variables.
const EnvPrefix = "AIONISER"

// ConfigPathEnv names the environment variable that overrides the config
// file location.
const ConfigPathEnv = EnvPrefix + "_CONFIG_PATH"

// ConfigFileName is the file name of the default configuration file.
const ConfigFileName = "aioniser.json"

// Loader handles configuration loading using Viper.
//
// Create with [NewLoader]. Viper reads the settings section and applies the
// AIONISER_* environment overrides; the actions and cycles sections are
// decoded from the same file with their keys' case preserved.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new [Loader] with defaults and environment bindings.
func NewLoader() *Loader {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("settings.reset_timeout_ms", defaults.Settings.ResetTimeoutMS)
	v.SetDefault("settings.state_path", defaults.Settings.StatePath)
	v.SetDefault("settings.shell", defaults.Settings.Shell)

	v.SetEnvPrefix(EnvPrefix)
	_ = v.BindEnv("settings.state_path", EnvPrefix+"_STATE_PATH")
	_ = v.BindEnv("settings.reset_timeout_ms", EnvPrefix+"_RESET_TIMEOUT_MS")
	_ = v.BindEnv("settings.shell", EnvPrefix+"_SHELL")

	return &Loader{v: v}
}

// Load resolves the config file location and loads it.
//
// The location is AIONISER_CONFIG_PATH if set, otherwise [DefaultConfigPath].
// When the default file is missing, ~/.config/aioniser.json is used if it
// exists. Returns [*ConfigNotFoundError] if no file is found.
func (l *Loader) Load() (*Config, error) {
	path := os.Getenv(ConfigPathEnv)
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		if !fileExists(path) {
			if legacy, ok := legacyConfigPath(); ok {
				path = legacy
			}
		}
	}
	return l.LoadFromFile(path)
}

// LoadFromFile loads configuration from the given file.
//
// The format follows the extension: .yaml and .yml are YAML, anything else
// is JSON. Returns [*ConfigNotFoundError] if the file does not exist and
// [*InvalidConfigError] if it cannot be read or parsed.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigNotFoundError{Path: path}
		}
		return nil, &InvalidConfigError{Path: path, Err: err}
	}

	format := formatForPath(path)

	l.v.SetConfigFile(path)
	l.v.SetConfigType(format)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, &InvalidConfigError{Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InvalidConfigError{Path: path, Err: err}
	}

	cfg := DefaultConfig()
	if err := decodeDocument(data, format, cfg); err != nil {
		return nil, &InvalidConfigError{Path: path, Err: err}
	}
	if cfg.Actions == nil {
		cfg.Actions = map[string]string{}
	}
	if cfg.Cycles == nil {
		cfg.Cycles = map[string]CycleConfig{}
	}

	timeoutMS, err := cast.ToIntE(l.v.Get("settings.reset_timeout_ms"))
	if err != nil {
		return nil, &InvalidConfigError{Path: path, Err: fmt.Errorf("settings.reset_timeout_ms (%s_RESET_TIMEOUT_MS): %w", EnvPrefix, err)}
	}
	if timeoutMS < 0 {
		return nil, &InvalidConfigError{Path: path, Err: fmt.Errorf("settings.reset_timeout_ms must not be negative, got %d", timeoutMS)}
	}

	cfg.Settings = Settings{
		ResetTimeoutMS: timeoutMS,
		StatePath:      l.v.GetString("settings.state_path"),
		Shell:          l.v.GetString("settings.shell"),
	}
	cfg.Path = path

	return cfg, nil
}

func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func decodeDocument(data []byte, format string, cfg *Config) error {
	if format == "yaml" {
		return yaml.Unmarshal(data, cfg)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// ConfigDir returns the platform user configuration directory.
//
// Platform locations (from os.UserConfigDir):
//   - Linux: $XDG_CONFIG_HOME or ~/.config
//   - macOS: ~/Library/Application Support
//   - Windows: %AppData%
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return dir, nil
}

// DefaultConfigPath returns the path to the default configuration file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// legacyConfigPath returns ~/.config/aioniser.json if that file exists.
// On macOS and Windows it differs from [DefaultConfigPath].
func legacyConfigPath() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(home, ".config", ConfigFileName)
	return path, fileExists(path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// exampleConfig is written by [WriteExample].
const exampleConfig = `{
    "actions": {
        "say": "echo {message}"
    },
    "cycles": {
        "hello": {
            "reset": true,
            "steps": [
                [{"action": "say", "kwargs": {"message": "first"}}],
                [{"action": "say", "kwargs": {"message": "second"}}]
            ]
        }
    },
    "settings": {
        "reset_timeout_ms": 1000
    }
}
`

// WriteExample writes a starter configuration file to path, creating parent
// directories as needed. It refuses to overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
