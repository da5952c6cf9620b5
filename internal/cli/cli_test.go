package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aioniser/internal/action"
	"aioniser/internal/config"
	"aioniser/internal/cycle"
	"aioniser/internal/executor"
	"aioniser/internal/state"
)

func TestTrigger_StepsThroughCycle(t *testing.T) {
	env := newTestEnv(t, nil)

	for i := 0; i < 4; i++ {
		result := env.run("trigger", "lights")
		require.NoError(t, result.Err)
		assert.Equal(t, ExitCodeOK, result.ExitCode)
		env.tick(5 * time.Second)
	}

	assert.Equal(t, []string{
		"echo red",
		"echo green", "hue --scene forest",
		"echo off",
		"echo red",
	}, env.executor.RecordedCommands)
	assert.Equal(t, "lights [1/3]\n$ echo red\n", env.stdout.String())
}

func TestRoot_CycleArgumentTriggers(t *testing.T) {
	env := newTestEnv(t, nil)

	result := env.run("lights")

	require.NoError(t, result.Err)
	assert.Equal(t, []string{"echo red"}, env.executor.RecordedCommands)
	assert.Equal(t, 1, env.store.Saves)
}

func TestRoot_NoArgsShowsHelp(t *testing.T) {
	app := &App{}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	result := runWithWriters(app, stdout, stderr)

	assert.Equal(t, ExitCodeOK, result.ExitCode)
	assert.Contains(t, stdout.String(), "aioniser <cycle>")
	assert.Nil(t, app.Config, "help does not load the config")
}

func TestTrigger_MicResetsAfterTimeout(t *testing.T) {
	env := newTestEnv(t, nil)

	require.NoError(t, env.run("mic").Err)
	env.tick(time.Second)
	require.NoError(t, env.run("mic").Err)
	env.tick(2 * time.Second)
	require.NoError(t, env.run("mic").Err)

	assert.Equal(t, []string{"echo usb", "echo builtin", "echo usb"}, env.executor.RecordedCommands)
}

func TestTrigger_DryRun(t *testing.T) {
	env := newTestEnv(t, state.States{
		"lights": state.NewCycleState(0, testNow.Add(-time.Second)),
	})

	for _, args := range [][]string{
		{"lights", "--dry-run"},
		{"trigger", "-n", "lights"},
	} {
		t.Run(fmt.Sprint(args), func(t *testing.T) {
			result := env.run(args...)

			require.NoError(t, result.Err)
			assert.Equal(t, "lights [2/3] (dry run)\n$ echo green\n$ hue --scene forest\n", env.stdout.String())
			assert.Equal(t, 0, env.store.Saves)
			assert.Empty(t, env.executor.RecordedCommands)
		})
	}
}

func TestTrigger_ExitCodes(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		setup      func(env *testEnv)
		wantCode   int
		wantStderr string
	}{
		{
			name:       "unknown cycle",
			args:       []string{"disco"},
			wantCode:   ExitCodeCycleNotFound,
			wantStderr: "cycle not found: disco (available: broken, lights, mic)",
		},
		{
			name:       "template error",
			args:       []string{"trigger", "broken"},
			wantCode:   ExitCodeInvalidConfig,
			wantStderr: "invalid configuration",
		},
		{
			name: "corrupt state",
			args: []string{"lights"},
			setup: func(env *testEnv) {
				env.store.LoadErr = &state.CorruptStateError{Path: "steps.json", Err: errors.New("bad json")}
			},
			wantCode:   ExitCodeCorruptState,
			wantStderr: "aioniser reset --all",
		},
		{
			name: "persistence failure",
			args: []string{"lights"},
			setup: func(env *testEnv) {
				env.store.SaveErr = &state.PersistenceError{Path: "steps.json", Op: "write", Err: errors.New("read-only file system")}
			},
			wantCode:   ExitCodePersistence,
			wantStderr: "could not save cycle state",
		},
		{
			name: "executor failure",
			args: []string{"lights"},
			setup: func(env *testEnv) {
				env.executor.Err = errors.New("no shell")
			},
			wantCode:   ExitCodeGeneric,
			wantStderr: "no shell",
		},
		{
			name: "negative cycle reset timeout",
			args: []string{"slow"},
			setup: func(env *testEnv) {
				env.app.Config.Cycles["slow"] = config.CycleConfig{
					Reset:          true,
					ResetTimeoutMS: -5,
					Steps:          [][]config.ActivityConfig{{{Action: "say", Kwargs: map[string]any{"message": "hi"}}}},
				}
			},
			wantCode:   ExitCodeInvalidConfig,
			wantStderr: "invalid configuration",
		},
		{
			name:     "too many arguments",
			args:     []string{"lights", "mic"},
			wantCode: ExitCodeGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			if tt.setup != nil {
				tt.setup(env)
			}

			result := env.run(tt.args...)

			require.Error(t, result.Err)
			assert.Equal(t, tt.wantCode, result.ExitCode)
			assert.Contains(t, env.stderr.String(), tt.wantStderr)
		})
	}
}

func TestTrigger_FailuresBeforeAdvanceLeaveStateUntouched(t *testing.T) {
	for _, name := range []string{"disco", "broken"} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, nil)

			result := env.run("trigger", name)

			require.Error(t, result.Err)
			assert.Equal(t, 0, env.store.Saves)
			assert.Empty(t, env.executor.RecordedCommands)
		})
	}
}

func TestRun_ConfigNotFound(t *testing.T) {
	app := &App{Executor: &executor.MockExecutor{}}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	missing := filepath.Join(t.TempDir(), "missing.json")

	result := runWithWriters(app, stdout, stderr, "--config", missing, "lights")

	assert.Equal(t, ExitCodeConfigNotFound, result.ExitCode)
	assert.Contains(t, stderr.String(), missing)
	assert.Contains(t, stderr.String(), "aioniser init")
}

func TestRun_WithConfigAndStateFiles(t *testing.T) {
	configPath := writeConfigFile(t, "aioniser.yaml", `
actions:
  say: "echo {message}"
cycles:
  Greeting:
    steps:
      - [{action: say, kwargs: {message: hello}}]
      - [{action: say, kwargs: {message: goodbye}}]
`)
	statePath := filepath.Join(t.TempDir(), "steps.json")
	exec := &executor.MockExecutor{}
	app := &App{Executor: exec, Now: func() time.Time { return testNow }}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	for i := 0; i < 2; i++ {
		result := runWithWriters(app, stdout, stderr, "--config", configPath, "--state", statePath, "Greeting")
		require.NoError(t, result.Err, stderr.String())
	}

	assert.Equal(t, []string{"echo hello", "echo goodbye"}, exec.RecordedCommands)

	states, err := state.NewFileStore(statePath).Load()
	require.NoError(t, err)
	assert.Equal(t, 1, states["Greeting"].LastStep)
	assert.True(t, states["Greeting"].LastStepped.Equal(testNow))
}

func TestRun_InvalidConfigFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{
			name:    "negative cycle reset timeout",
			content: `{"actions": {"say": "echo {m}"}, "cycles": {"x": {"reset": true, "reset_timeout_ms": -5, "steps": [[{"action": "say", "kwargs": {"m": "a"}}]]}}}`,
		},
		{
			name:    "malformed reset timeout override",
			content: `{"actions": {"say": "echo {m}"}, "cycles": {"x": {"steps": [[{"action": "say", "kwargs": {"m": "a"}}]]}}}`,
			env:     map[string]string{"AIONISER_RESET_TIMEOUT_MS": "fast"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			configPath := writeConfigFile(t, "aioniser.json", tt.content)
			exec := &executor.MockExecutor{}
			stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
			app := &App{Executor: exec, Store: state.NewMemoryStore(nil)}

			result := runWithWriters(app, stdout, stderr, "--config", configPath, "x")

			assert.Equal(t, ExitCodeInvalidConfig, result.ExitCode)
			assert.Contains(t, stderr.String(), "invalid configuration")
			assert.Empty(t, exec.RecordedCommands)
		})
	}
}

func TestRun_VerboseLogsDebug(t *testing.T) {
	env := newTestEnv(t, nil)

	result := env.run("--verbose", "lights")

	require.NoError(t, result.Err)
	assert.Contains(t, env.stderr.String(), "level=debug")
	assert.Contains(t, env.stderr.String(), `msg="cycle triggered"`)
	assert.Contains(t, env.stderr.String(), "cycle=lights")
}

func TestRun_VerboseLogsResolvedStatePath(t *testing.T) {
	configPath := writeConfigFile(t, "aioniser.json", `{"actions": {"say": "echo {m}"}, "cycles": {"x": {"steps": [[{"action": "say", "kwargs": {"m": "a"}}]]}}}`)
	statePath := filepath.Join(t.TempDir(), "steps.json")
	app := &App{Executor: &executor.MockExecutor{}}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	result := runWithWriters(app, stdout, stderr, "-v", "--config", configPath, "--state", statePath, "x")

	require.NoError(t, result.Err)
	assert.Contains(t, stderr.String(), `msg="using state file"`)
	assert.Contains(t, stderr.String(), statePath)
}

func TestRun_QuietByDefault(t *testing.T) {
	env := newTestEnv(t, nil)

	result := env.run("lights")

	require.NoError(t, result.Err)
	assert.Empty(t, env.stderr.String())
}

func TestList(t *testing.T) {
	env := newTestEnv(t, nil)

	result := env.run("list")

	require.NoError(t, result.Err)
	assert.Equal(t, "broken  2 steps\nlights  3 steps\nmic     2 steps  reset after 1.5s\n", env.stdout.String())
}

func TestList_UsesGlobalResetTimeout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.app.Config.Settings.ResetTimeoutMS = 2500
	env.app.Config.Cycles = map[string]config.CycleConfig{
		"mic": {Reset: true, Steps: [][]config.ActivityConfig{{{Action: "say", Kwargs: map[string]any{"message": "usb"}}}}},
	}

	result := env.run("list")

	require.NoError(t, result.Err)
	assert.Equal(t, "mic  1 step  reset after 2.5s\n", env.stdout.String())
}

func TestStatus_Text(t *testing.T) {
	env := newTestEnv(t, state.States{
		"lights": state.NewCycleState(1, testNow.Add(-2*time.Second)),
		"old":    state.NewCycleState(0, testNow.Add(-time.Minute)),
	})

	result := env.run("status")

	require.NoError(t, result.Err)
	out := env.stdout.String()
	assert.Contains(t, out, "broken  never triggered")
	assert.Contains(t, out, "lights  last step 2/3, 2s ago")
	assert.Contains(t, out, "mic     never triggered")
	assert.Contains(t, out, "old     last step 1, 1m0s ago (not configured)")
}

func TestStatus_StructuredFormats(t *testing.T) {
	env := newTestEnv(t, state.States{
		"lights": state.NewCycleState(1, testNow.Add(-2*time.Second)),
		"mic":    state.NewCycleState(0, testNow),
	})

	result := env.run("status", "--format", "json", "lights")
	require.NoError(t, result.Err)
	assert.Equal(t, `{
    "lights": {
        "last_step": 1,
        "last_stepped": "2024-03-01T08:59:58.000+00:00"
    }
}
`, env.stdout.String())

	result = env.run("status", "-f", "yaml", "mic")
	require.NoError(t, result.Err)
	assert.Contains(t, env.stdout.String(), "mic:")
	assert.Contains(t, env.stdout.String(), "last_step: 0")
	assert.NotContains(t, env.stdout.String(), "lights")
}

func TestStatus_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	result := env.run("status", "disco")
	assert.Equal(t, ExitCodeCycleNotFound, result.ExitCode)

	result = env.run("status", "--format", "xml")
	assert.Equal(t, ExitCodeGeneric, result.ExitCode)
	assert.Contains(t, env.stderr.String(), `unknown format "xml"`)
	var exitErr *ExitError
	require.True(t, errors.As(result.Err, &exitErr))
	assert.Equal(t, ExitCodeGeneric, exitErr.Code)

	env.store.LoadErr = &state.CorruptStateError{Path: "steps.json", Err: errors.New("bad json")}
	result = env.run("status")
	assert.Equal(t, ExitCodeCorruptState, result.ExitCode)
}

func TestReset(t *testing.T) {
	env := newTestEnv(t, state.States{
		"lights": state.NewCycleState(1, testNow),
		"old":    state.NewCycleState(0, testNow),
	})

	result := env.run("reset", "lights", "mic", "old")

	require.NoError(t, result.Err)
	assert.Equal(t, "✓ lights reset\n✓ mic has no saved state\n✓ old reset\n", env.stdout.String())
	states, err := env.store.Load()
	require.NoError(t, err)
	assert.Empty(t, states)

	require.NoError(t, env.run("lights").Err)
	assert.Equal(t, []string{"echo red"}, env.executor.RecordedCommands, "reset cycle starts at step 1")
}

func TestReset_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, ExitCodeCycleNotFound, env.run("reset", "disco").ExitCode)
	assert.Equal(t, ExitCodeGeneric, env.run("reset").ExitCode)
	assert.Equal(t, ExitCodeGeneric, env.run("reset", "--all", "lights").ExitCode)
	assert.Equal(t, 0, env.store.Saves)
}

func TestReset_AllRecoversCorruptState(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.LoadErr = &state.CorruptStateError{Path: "steps.json", Err: errors.New("bad json")}

	result := env.run("reset", "--all")

	require.NoError(t, result.Err)
	assert.Equal(t, 1, env.store.Saves)
	assert.Contains(t, env.stdout.String(), "all cycle state cleared")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "aioniser.json")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	result := runWithWriters(&App{}, stdout, stderr, "init", "--config", path)

	require.NoError(t, result.Err)
	assert.Contains(t, stdout.String(), "wrote "+path)
	_, err := os.Stat(path)
	require.NoError(t, err)

	cfg, err := config.NewLoader().LoadFromFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Cycles)

	result = runWithWriters(&App{}, stdout, stderr, "init", "--config", path)
	assert.Equal(t, ExitCodeGeneric, result.ExitCode)
	assert.Contains(t, stderr.String(), "already exists")
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitCodeOK},
		{"exit error", NewExitError(7), 7},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(9)), 9},
		{"config not found", &config.ConfigNotFoundError{Path: "x"}, ExitCodeConfigNotFound},
		{"invalid config", &config.InvalidConfigError{Path: "x", Err: errors.New("bad")}, ExitCodeInvalidConfig},
		{"cycle not found", fmt.Errorf("lookup: %w", &config.CycleNotFoundError{Name: "a"}), ExitCodeCycleNotFound},
		{"corrupt state", &state.CorruptStateError{Path: "x", Err: errors.New("bad")}, ExitCodeCorruptState},
		{"persistence", &state.PersistenceError{Path: "x", Op: "write", Err: errors.New("bad")}, ExitCodePersistence},
		{"unknown action", &action.UnknownActionError{Action: "x"}, ExitCodeInvalidConfig},
		{"missing parameter", &action.MissingTemplateParameterError{}, ExitCodeInvalidConfig},
		{"unused parameter", &action.UnusedTemplateParameterError{}, ExitCodeInvalidConfig},
		{"malformed template", &action.MalformedTemplateError{}, ExitCodeInvalidConfig},
		{"empty step", fmt.Errorf("cycle %q: %w", "a", cycle.ErrEmptyStep), ExitCodeInvalidConfig},
		{"other", errors.New("boom"), ExitCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestExitError(t *testing.T) {
	err := NewExitError(3)
	assert.Equal(t, "exit status 3", err.Error())

	wrapped := &ExitError{Code: 4, Err: errors.New("boom")}
	assert.Equal(t, "boom", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "boom")

	code, ok := IsExitError(fmt.Errorf("outer: %w", wrapped))
	assert.True(t, ok)
	assert.Equal(t, 4, code)

	_, ok = IsExitError(errors.New("plain"))
	assert.False(t, ok)
}
