package main

import (
	"context"
	"fmt"
	"io"

	"github.com/chis/depsmith/cmd/depsmith/terminal"
	"github.com/chis/depsmith/internal/bootstrap"
	"github.com/chis/depsmith/internal/output"
	"github.com/chis/depsmith/internal/storage"
)

// HistoryCommand implements the history command
type HistoryCommand struct {
	configPath string
	limit      int
	dependency string
	runID      string
	failedOnly bool
	verbose    bool
	out        io.Writer
}

// NewHistoryCommand creates a new history command
func NewHistoryCommand(out io.Writer) *HistoryCommand {
	return &HistoryCommand{
		limit: 50,
		out:   out,
	}
}

// ParseFlags parses command-line flags for the history command
func (c *HistoryCommand) ParseFlags(args []string) error {
	var jsonFlag bool
	fs := newFlagSet("history", &jsonFlag)

	fs.StringVar(&c.configPath, "config", "", "Configuration file (for db_path)")
	fs.IntVar(&c.limit, "limit", c.limit, "Maximum number of entries to show (0 = all)")
	fs.StringVar(&c.dependency, "dependency", "", "Only show this dependency")
	fs.StringVar(&c.runID, "run", "", "Only show this run, in resolution order")
	fs.BoolVar(&c.failedOnly, "failed", false, "Only show failed resolutions")
	fs.BoolVar(&c.verbose, "verbose", false, "Show commits and run IDs")
	fs.BoolVar(&c.verbose, "v", false, "Shorthand for --verbose")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.runID != "" && c.dependency != "" {
		return fmt.Errorf("--run and --dependency cannot be combined")
	}

	if jsonFlag {
		GlobalJSONMode = true
	}
	return nil
}

// Run executes the history command
func (c *HistoryCommand) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	store, err := bootstrap.OpenStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	entries, err := c.query(ctx, store)
	if err != nil {
		return err
	}
	entries = c.filter(entries)

	if GlobalJSONMode {
		return output.WriteJSONData(c.out, map[string]any{
			"history": entries,
			"count":   len(entries),
		})
	}
	c.outputTable(entries)
	return nil
}

func (c *HistoryCommand) query(ctx context.Context, store storage.Storage) ([]storage.ResolutionRecord, error) {
	var (
		entries []storage.ResolutionRecord
		err     error
	)
	switch {
	case c.runID != "":
		entries, err = store.GetRun(ctx, c.runID)
	case c.dependency != "":
		entries, err = store.GetResolutions(ctx, c.dependency, c.limit)
	default:
		entries, err = store.GetAllResolutions(ctx, c.limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return entries, nil
}

func (c *HistoryCommand) filter(entries []storage.ResolutionRecord) []storage.ResolutionRecord {
	if !c.failedOnly {
		return entries
	}
	filtered := make([]storage.ResolutionRecord, 0, len(entries))
	for _, e := range entries {
		if !e.Success {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// outputTable outputs results grouped by day
func (c *HistoryCommand) outputTable(entries []storage.ResolutionRecord) {
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No history found.")
		return
	}

	fmt.Fprintf(c.out, "\n=== Resolution History (showing %d entries) ===\n\n", len(entries))

	var currentDate string
	for _, e := range entries {
		local := e.ResolvedAt.Local()
		if date := local.Format("2006-01-02"); date != currentDate {
			if currentDate != "" {
				fmt.Fprintln(c.out)
			}
			fmt.Fprintf(c.out, "--- %s ---\n", date)
			currentDate = date
		}
		c.displayEntry(e)
	}
}

func (c *HistoryCommand) displayEntry(e storage.ResolutionRecord) {
	timeStr := e.ResolvedAt.Local().Format("15:04:05")

	if !e.Success {
		fmt.Fprintf(c.out, "%s %s %s on %s: %s\n",
			timeStr, terminal.Paint(terminal.Red(), "✗"), e.Dependency, e.MainBranch, e.Error)
	} else {
		fmt.Fprintf(c.out, "%s %s %s on %s: %s %s\n",
			timeStr, terminal.Paint(terminal.Green(), "✓"), e.Dependency, e.MainBranch,
			terminal.Paint(terminal.Gray(), e.Kind), e.Ref)
	}

	if c.verbose {
		fmt.Fprintf(c.out, "           %s\n",
			terminal.Paint(terminal.Gray(), fmt.Sprintf("run %s commit %s", e.RunID, shortCommit(e.CommitID))))
	}
}
