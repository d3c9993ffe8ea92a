package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chis/depsmith/internal/config"
	"github.com/chis/depsmith/internal/events"
	"github.com/chis/depsmith/internal/logging"
	"github.com/chis/depsmith/internal/output"
	"github.com/chis/depsmith/internal/storage"
	"github.com/chis/depsmith/internal/vcs"
)

func TestResolveCommandParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected ResolveOptions
	}{
		{
			name:     "default options",
			args:     []string{},
			expected: ResolveOptions{},
		},
		{
			name: "main and short name",
			args: []string{"--main", "../app", "--short-name", "App"},
			expected: ResolveOptions{
				MainRepository: "../app",
				ShortName:      "App",
			},
		},
		{
			name: "repeated dependencies",
			args: []string{"--dep", "core=../core", "--dep", "../plugins"},
			expected: ResolveOptions{
				Dependencies: []string{"core=../core", "../plugins"},
			},
		},
		{
			name: "switches",
			args: []string{"--fail-fast", "--no-materialize", "--track-existing", "--no-history", "--events", "-v"},
			expected: ResolveOptions{
				FailFast:      true,
				NoMaterialize: true,
				TrackExisting: true,
				NoHistory:     true,
				StreamEvents:  true,
				Verbose:       true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobals(t)
			cmd := NewResolveCommand(&bytes.Buffer{}, &bytes.Buffer{})
			require.NoError(t, cmd.ParseFlags(tt.args))
			assert.Equal(t, tt.expected, cmd.options)
		})
	}
}

func TestResolveApplyFlags(t *testing.T) {
	cmd := NewResolveCommand(&bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, cmd.ParseFlags([]string{
		"--main", "/src/app", "--short-name", "App", "--dep", "core=/src/core",
		"--fail-fast", "--no-materialize", "--track-existing", "-v",
	}))

	cfg := config.Default()
	require.NoError(t, cmd.applyFlags(&cfg))

	assert.Equal(t, "/src/app", cfg.MainRepository)
	assert.Equal(t, "App", cfg.ShortName)
	assert.Equal(t, []config.Dependency{{Name: "core", Path: "/src/core"}}, cfg.Dependencies)
	assert.True(t, cfg.FailFast)
	assert.False(t, cfg.MaterializeRemoteBranches)
	assert.False(t, cfg.OnlyUntracked)
	assert.Equal(t, "debug", cfg.LogLevel)

	// the same name twice is rejected
	require.NoError(t, cmd.ParseFlags([]string{"--dep", "core=/elsewhere"}))
	assert.ErrorContains(t, cmd.applyFlags(&cfg), "already configured")
}

// workspaceFixture lays out a config file and working copy directories in a
// temp dir, and serves in-memory repositories for them.
type workspaceFixture struct {
	dir    string
	config string
	db     string
	repos  map[string]*vcs.Memory
}

func newWorkspaceFixture(t *testing.T, deps ...string) *workspaceFixture {
	t.Helper()
	dir := t.TempDir()
	f := &workspaceFixture{
		dir:    dir,
		config: filepath.Join(dir, "depsmith.yaml"),
		db:     filepath.Join(dir, "state", "depsmith.db"),
		repos:  make(map[string]*vcs.Memory),
	}

	yaml := fmt.Sprintf("short_name: App\nmain_repository: app\ndb_path: %s\ndependencies:\n", f.db)
	for _, d := range append([]string{"app"}, deps...) {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
		if d != "app" {
			yaml += fmt.Sprintf("  - name: %s\n    path: %s\n", d, d)
		}
	}
	require.NoError(t, os.WriteFile(f.config, []byte(yaml), 0o644))
	return f
}

func (f *workspaceFixture) add(name string, repo *vcs.Memory) {
	f.repos[filepath.Join(f.dir, name)] = repo
}

func (f *workspaceFixture) open(path string) (vcs.Repository, error) {
	repo, ok := f.repos[path]
	if !ok {
		return nil, fmt.Errorf("no repository at %s", path)
	}
	return repo, nil
}

func (f *workspaceFixture) command(t *testing.T, args ...string) (*ResolveCommand, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewResolveCommand(&out, &errOut)
	cmd.open = f.open
	require.NoError(t, cmd.ParseFlags(append([]string{"--config", f.config}, args...)))
	return cmd, &out, &errOut
}

func memoryRepo(name string, branches ...string) *vcs.Memory {
	m := vcs.NewMemory(name)
	for _, b := range branches {
		m.Commit(b, "on "+b)
	}
	return m
}

func TestResolveRunTable(t *testing.T) {
	resetGlobals(t)
	f := newWorkspaceFixture(t, "core", "plugins")
	main := memoryRepo("app", "develop")
	main.SetHead("develop")
	f.add("app", main)
	f.add("core", memoryRepo("core", "master", "develop"))
	f.add("plugins", memoryRepo("plugins", "master", "stable"))

	cmd, out, _ := f.command(t)
	require.NoError(t, cmd.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "2 dependencies")
	assert.Contains(t, text, "main branch develop")
	assert.Contains(t, text, "named-branch")
	assert.Contains(t, text, "fallback-branch")
	assert.Contains(t, text, "Resolved: 2 (2 changed)  Failed: 0  Skipped: 0")

	store, err := storage.NewSQLiteStorage(f.db)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.GetAllResolutions(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestResolveRunJSONWithFailure(t *testing.T) {
	resetGlobals(t)
	f := newWorkspaceFixture(t, "core", "broken")
	main := memoryRepo("app", "feature-x")
	main.SetHead("feature-x")
	f.add("app", main)
	f.add("core", memoryRepo("core", "master"))
	f.add("broken", vcs.NewMemory("broken"))

	cmd, out, _ := f.command(t, "--json", "--no-history")
	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "1 of 2 dependencies failed", err.Error())

	var resp output.Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "no fallback branch")

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["resolved"])
	assert.Equal(t, float64(1), data["failed"])

	_, statErr := os.Stat(f.db)
	assert.True(t, os.IsNotExist(statErr), "--no-history must not create the database")
}

func TestResolveRunStreamsEvents(t *testing.T) {
	resetGlobals(t)
	f := newWorkspaceFixture(t, "core")
	main := memoryRepo("app", "develop")
	main.SetHead("develop")
	f.add("app", main)
	f.add("core", memoryRepo("core", "develop"))

	cmd, _, errOut := f.command(t, "--events", "--no-history")
	require.NoError(t, cmd.Run(context.Background()))

	assert.Contains(t, errOut.String(), `"type":"run.started"`)
	assert.Contains(t, errOut.String(), `"type":"resolution.completed"`)
	assert.Contains(t, errOut.String(), `"type":"run.completed"`)
}

func TestResolveRunRejectsInvalidConfig(t *testing.T) {
	resetGlobals(t)
	f := newWorkspaceFixture(t, "core")

	cmd, _, _ := f.command(t, "--short-name", "App2")
	err := cmd.Run(context.Background())
	assert.ErrorContains(t, err, "letters only")
}

func TestNormalizeMainRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	sub := filepath.Join(dir, "src", "app")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	cfg := config.Default()
	cfg.MainRepository = sub
	normalizeMainRepository(&cfg)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(cfg.MainRepository)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	missing := filepath.Join(t.TempDir(), "nowhere")
	cfg.MainRepository = missing
	normalizeMainRepository(&cfg)
	assert.Equal(t, missing, cfg.MainRepository)
}

func TestReportDropped(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.WithOutput(&logs))
	bus := events.NewBus()

	reportDropped(bus, logger)
	assert.Empty(t, logs.String())

	_, unsubscribe := bus.Subscribe(events.Wildcard)
	defer unsubscribe()
	for i := 0; i < 105; i++ {
		bus.Publish(events.NewEvent(events.EventResolutionStarted, "run", nil))
	}
	require.Equal(t, uint64(5), bus.Dropped())

	reportDropped(bus, logger)
	assert.Contains(t, logs.String(), "5 events were not streamed")
}
