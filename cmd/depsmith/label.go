package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/chis/depsmith/cmd/depsmith/terminal"
	"github.com/chis/depsmith/internal/output"
	"github.com/chis/depsmith/internal/version"
)

// LabelInfo is how one name parses.
type LabelInfo struct {
	Name   string `json:"name"`
	Valid  bool   `json:"valid"`
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
	Label  string `json:"label,omitempty"`
	Next   string `json:"next,omitempty"`
}

// LabelCommand implements the label command: a diagnostic showing how
// branch and tag names parse as version labels.
type LabelCommand struct {
	prefix    string
	hasPrefix bool
	sorted    bool
	names     []string
	out       io.Writer
}

// NewLabelCommand creates a new label command
func NewLabelCommand(out io.Writer) *LabelCommand {
	return &LabelCommand{out: out}
}

// ParseFlags parses command-line flags for the label command
func (c *LabelCommand) ParseFlags(args []string) error {
	var jsonFlag bool
	fs := newFlagSet("label", &jsonFlag)
	fs.Func("prefix", "Require this alphabetic prefix (empty means digits first)", func(v string) error {
		c.prefix = v
		c.hasPrefix = true
		return nil
	})
	fs.BoolVar(&c.sorted, "sort", false, "Print valid labels in version order")

	if err := fs.Parse(args); err != nil {
		return err
	}
	c.names = fs.Args()
	if len(c.names) == 0 {
		return fmt.Errorf("label needs at least one name")
	}

	if jsonFlag {
		GlobalJSONMode = true
	}
	return nil
}

// Run executes the label command
func (c *LabelCommand) Run(ctx context.Context) error {
	infos := c.inspect()

	if GlobalJSONMode {
		return output.WriteJSONData(c.out, infos)
	}

	for _, info := range infos {
		if !info.Valid {
			fmt.Fprintf(c.out, "%-24s %s\n", info.Name, terminal.Paint(terminal.Red(), "not a version label"))
			continue
		}
		fmt.Fprintf(c.out, "%-24s %-12s prefix=%q suffix=%q next=%s\n",
			info.Name, info.Label, info.Prefix, info.Suffix, info.Next)
	}

	var valid version.Labels
	for _, info := range infos {
		if m, ok := version.Split(info.Name); ok && info.Valid {
			valid = append(valid, m.Label)
		}
	}
	if len(valid) > 1 {
		if top, err := valid.Max(); err == nil {
			fmt.Fprintf(c.out, "\nhighest: %s\n", terminal.Paint(terminal.Bold(), top.Raw()))
		}
	}
	return nil
}

func (c *LabelCommand) inspect() []LabelInfo {
	type parsed struct {
		info  LabelInfo
		label version.Label
	}

	items := make([]parsed, 0, len(c.names))
	for _, name := range c.names {
		m, ok := version.Split(name)
		if ok && c.hasPrefix && m.Prefix != c.prefix {
			ok = false
		}

		p := parsed{info: LabelInfo{Name: name, Valid: ok}}
		if ok {
			p.label = m.Label
			p.info.Prefix = m.Prefix
			p.info.Suffix = m.Suffix
			p.info.Label = m.Label.String()
			p.info.Next = m.Label.Next().String()
		}
		items = append(items, p)
	}

	if c.sorted {
		// Invalid names keep their order after the valid ones.
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i], items[j]
			if a.info.Valid != b.info.Valid {
				return a.info.Valid
			}
			return a.info.Valid && a.label.Less(b.label)
		})
	}

	infos := make([]LabelInfo, len(items))
	for i, p := range items {
		infos[i] = p.info
	}
	return infos
}
