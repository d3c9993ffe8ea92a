package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chis/depsmith/cmd/depsmith/terminal"
	"github.com/chis/depsmith/internal/bootstrap"
	"github.com/chis/depsmith/internal/config"
	"github.com/chis/depsmith/internal/events"
	"github.com/chis/depsmith/internal/logging"
	"github.com/chis/depsmith/internal/output"
	"github.com/chis/depsmith/internal/vcs/gitrepo"
	"github.com/chis/depsmith/internal/workspace"
)

// dependencyFlags collects repeated --dep name=path values.
type dependencyFlags []string

func (d *dependencyFlags) String() string { return strings.Join(*d, ",") }

func (d *dependencyFlags) Set(value string) error {
	*d = append(*d, value)
	return nil
}

// ResolveOptions contains options for the resolve command
type ResolveOptions struct {
	ConfigPath     string
	MainRepository string
	ShortName      string
	Dependencies   []string
	FailFast       bool
	NoMaterialize  bool
	TrackExisting  bool
	NoHistory      bool
	StreamEvents   bool
	Verbose        bool
}

// ResolveCommand implements the resolve command
type ResolveCommand struct {
	options ResolveOptions
	out     io.Writer
	errOut  io.Writer
	open    workspace.Opener // nil uses go-git
}

// NewResolveCommand creates a new resolve command. Logs and streamed
// events both go to errOut.
func NewResolveCommand(out, errOut io.Writer) *ResolveCommand {
	return &ResolveCommand{out: out, errOut: &lockedWriter{w: errOut}}
}

// lockedWriter serializes writes from the logger and the event stream.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// ParseFlags parses command-line flags for the resolve command
func (c *ResolveCommand) ParseFlags(args []string) error {
	var jsonFlag bool
	var deps dependencyFlags
	fs := newFlagSet("resolve", &jsonFlag)

	fs.StringVar(&c.options.ConfigPath, "config", "", "Configuration file (default "+config.DefaultPath+")")
	fs.StringVar(&c.options.MainRepository, "main", "", "Main repository working copy (overrides main_repository)")
	fs.StringVar(&c.options.ShortName, "short-name", "", "Short name of the main repository in dependency tags (overrides short_name)")
	fs.Var(&deps, "dep", "Dependency as name=path; repeatable, added to the configured ones")
	fs.BoolVar(&c.options.FailFast, "fail-fast", false, "Stop at the first dependency that fails")
	fs.BoolVar(&c.options.NoMaterialize, "no-materialize", false, "Do not create local branches for remote branches")
	fs.BoolVar(&c.options.TrackExisting, "track-existing", false, "Also set the upstream of existing local branches")
	fs.BoolVar(&c.options.NoHistory, "no-history", false, "Do not record resolutions")
	fs.BoolVar(&c.options.StreamEvents, "events", false, "Stream progress events as JSON lines to stderr")
	fs.BoolVar(&c.options.Verbose, "verbose", false, "Log every decision")
	fs.BoolVar(&c.options.Verbose, "v", false, "Shorthand for --verbose")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	c.options.Dependencies = deps

	if jsonFlag {
		GlobalJSONMode = true
	}
	return nil
}

// applyFlags lays the command-line options over cfg.
func (c *ResolveCommand) applyFlags(cfg *config.Config) error {
	o := c.options
	if o.MainRepository != "" {
		cfg.MainRepository = o.MainRepository
	}
	if o.ShortName != "" {
		cfg.ShortName = o.ShortName
	}
	for _, value := range o.Dependencies {
		dep, err := config.ParseDependency(value)
		if err != nil {
			return err
		}
		if !cfg.AddDependency(dep) {
			return fmt.Errorf("dependency %q is already configured", dep.Name)
		}
	}
	if o.FailFast {
		cfg.FailFast = true
	}
	if o.NoMaterialize {
		cfg.MaterializeRemoteBranches = false
	}
	if o.TrackExisting {
		cfg.OnlyUntracked = false
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	return nil
}

// normalizeMainRepository replaces a directory inside the main working copy
// with the working copy root, so scanning skips it. Paths that are not in a
// git repository are left for the opener to report.
func normalizeMainRepository(cfg *config.Config) {
	if root, err := gitrepo.FindRoot(cfg.MainRepository); err == nil {
		cfg.MainRepository = root
	}
}

// Run executes the resolve command
func (c *ResolveCommand) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.options.ConfigPath)
	if err != nil {
		return err
	}
	if err := c.applyFlags(&cfg); err != nil {
		return err
	}
	normalizeMainRepository(&cfg)

	validation := cfg.Validate()
	if err := validation.Err(); err != nil {
		return err
	}

	services, cleanup, err := bootstrap.InitializeServices(cfg, bootstrap.InitOptions{
		LogOutput:      c.errOut,
		DisableStorage: c.options.NoHistory,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	for _, w := range validation.Warnings {
		services.Logger.Warn("Config: %s", w)
	}

	orch := workspace.NewOrchestrator(cfg)
	orch.SetLogger(services.Logger)
	orch.SetStorage(services.Storage)
	orch.SetEventBus(services.EventBus)
	orch.SetOpener(c.open)

	if c.options.StreamEvents {
		stop := c.streamEvents(services.EventBus, services.Logger)
		defer stop()
	}

	result, runErr := orch.Run(ctx)
	if result == nil {
		return runErr
	}

	if GlobalJSONMode {
		if err := output.WriteJSONResult(c.out, result, runErr); err != nil {
			return err
		}
	} else {
		c.outputTable(result)
	}

	switch {
	case result.Failed > 0:
		return fmt.Errorf("%d of %d dependencies failed", result.Failed, result.Total)
	case runErr != nil:
		return runErr
	}
	return nil
}

// streamEvents writes every event to errOut until the returned function is
// called. Stopping reports events the stream missed.
func (c *ResolveCommand) streamEvents(bus *events.Bus, logger *logging.Logger) func() {
	ch, unsubscribe := bus.Subscribe(events.Wildcard)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for e := range ch {
			data, err := events.MarshalEvent(e)
			if err != nil {
				continue
			}
			fmt.Fprintln(c.errOut, string(data))
		}
	}()

	return func() {
		unsubscribe()
		<-done
		reportDropped(bus, logger)
	}
}

func reportDropped(bus *events.Bus, logger *logging.Logger) {
	if n := bus.Dropped(); n > 0 {
		logger.Warn("%d events were not streamed: the event stream fell behind", n)
	}
}

func (c *ResolveCommand) outputTable(result *workspace.RunResult) {
	w := c.out
	fmt.Fprintf(w, "\n=== %s%d dependencies%s (main branch %s) ===\n\n",
		terminal.Bold(), result.Total, terminal.Reset(), result.MainBranch)

	width := len("DEPENDENCY")
	for _, o := range result.Outcomes {
		width = max(width, len(o.Dependency))
	}

	for _, o := range result.Outcomes {
		c.displayOutcome(o, width)
	}

	fmt.Fprintln(w)
	summary := fmt.Sprintf("Resolved: %d (%d changed)  Failed: %d  Skipped: %d",
		result.Resolved, result.Changed, result.Failed, result.Skipped)
	fmt.Fprintln(w, terminal.Box(result.Failed > 0, summary, "Run "+result.RunID))
}

func (c *ResolveCommand) displayOutcome(o workspace.Outcome, width int) {
	w := c.out
	switch o.Status {
	case workspace.StatusResolved:
		change := terminal.Paint(terminal.Gray(), "unchanged")
		if o.Changed {
			change = "changed"
			if o.Previous != "" {
				change = fmt.Sprintf("was %s", o.Previous)
			}
			change = terminal.Paint(terminal.Yellow(), change)
		}
		fmt.Fprintf(w, "  %s %-*s  %-15s  %-20s  %s  %s\n",
			terminal.Paint(terminal.Green(), "✓"), width, o.Dependency,
			o.Kind, o.Ref, shortCommit(o.CommitID), change)
		for _, b := range o.Materialized {
			fmt.Fprintf(w, "    %s\n", terminal.Paint(terminal.Gray(), "+ branch "+b))
		}
	case workspace.StatusFailed:
		fmt.Fprintf(w, "  %s %-*s  %s\n",
			terminal.Paint(terminal.Red(), "✗"), width, o.Dependency, o.Error)
	default:
		fmt.Fprintf(w, "  %s %-*s  %s\n",
			terminal.Paint(terminal.Gray(), "-"), width, o.Dependency, terminal.Paint(terminal.Gray(), "skipped"))
	}
}

func shortCommit(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
