// Command depsmith checks out, in every dependency working copy, the
// version that matches the current branch of the main repository.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chis/depsmith/internal/output"
)

// GlobalJSONMode switches every command to the JSON envelope output.
var GlobalJSONMode bool

// Command is one depsmith subcommand.
type Command interface {
	ParseFlags(args []string) error
	Run(ctx context.Context) error
}

const usage = `Usage: depsmith [--json] <command> [flags]

Commands:
  resolve   check out the matching version of every dependency (default)
  history   show recorded resolutions
  label     show how names parse as version labels
  config    show the effective configuration, or write a default one with --init
  version   print the version

Run 'depsmith <command> -h' for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches args and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && (args[0] == "--json" || args[0] == "-json") {
		GlobalJSONMode = true
		args = args[1:]
	}

	command := "resolve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	var cmd Command
	switch command {
	case "resolve":
		cmd = NewResolveCommand(stdout, stderr)
	case "history":
		cmd = NewHistoryCommand(stdout)
	case "label":
		cmd = NewLabelCommand(stdout)
	case "config":
		cmd = NewConfigCommand(stdout)
	case "version":
		fmt.Fprintf(stdout, "depsmith %s\n", output.Version)
		return 0
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n%s", command, usage)
		return 2
	}

	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if err := cmd.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newFlagSet returns a flag set that reports errors instead of exiting and
// accepts --json after the command name too.
func newFlagSet(name string, jsonFlag *bool) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.BoolVar(jsonFlag, "json", false, "Output in JSON format (global flag)")
	return fs
}
