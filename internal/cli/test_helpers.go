package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aioniser/internal/config"
	"aioniser/internal/executor"
	"aioniser/internal/state"
)

// testNow is the clock reading every test environment starts at.
var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// testEnv bundles an App with in-memory dependencies and captured output.
type testEnv struct {
	app      *App
	store    *state.MemoryStore
	executor *executor.MockExecutor
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	now      time.Time
}

// testConfig returns a configuration with three cycles:
// "lights" (3 steps), "mic" (2 steps, reset) and "broken" (a step whose
// template has a missing parameter).
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Actions = map[string]string{
		"say":   "echo {message}",
		"light": "hue --scene {scene}",
	}
	say := func(msg string) config.ActivityConfig {
		return config.ActivityConfig{Action: "say", Kwargs: map[string]any{"message": msg}}
	}
	cfg.Cycles = map[string]config.CycleConfig{
		"lights": {
			Steps: [][]config.ActivityConfig{
				{say("red")},
				{say("green"), {Action: "light", Kwargs: map[string]any{"scene": "forest"}}},
				{say("off")},
			},
		},
		"mic": {
			Reset:          true,
			ResetTimeoutMS: 1500,
			Steps:          [][]config.ActivityConfig{{say("usb")}, {say("builtin")}},
		},
		"broken": {
			Steps: [][]config.ActivityConfig{{say("ok")}, {{Action: "light"}}},
		},
	}
	return cfg
}

// newTestEnv creates a testEnv whose store is seeded with initial.
func newTestEnv(t *testing.T, initial state.States) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    state.NewMemoryStore(initial),
		executor: &executor.MockExecutor{},
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		now:      testNow,
	}
	env.app = &App{
		Config:   testConfig(),
		Store:    env.store,
		Executor: env.executor,
		Now:      func() time.Time { return env.now },
	}
	return env
}

// run executes the CLI against the environment's App, clearing captured
// output first.
func (e *testEnv) run(args ...string) ExecuteResult {
	e.stdout.Reset()
	e.stderr.Reset()
	return runWithWriters(e.app, e.stdout, e.stderr, args...)
}

// tick advances the environment clock.
func (e *testEnv) tick(d time.Duration) {
	e.now = e.now.Add(d)
}

func runWithWriters(app *App, stdout, stderr *bytes.Buffer, args ...string) ExecuteResult {
	rootCmd := NewRootCommand(app)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	return execute(context.Background(), rootCmd)
}

// writeConfigFile writes content to a config file in a temporary directory
// and returns its path.
func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}
