package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chis/depsmith/internal/config"
	"github.com/chis/depsmith/internal/output"
)

// loadConfig loads the configuration file at path, or depsmith.yaml in the
// working directory when path is empty. An explicitly named file must exist.
// Relative paths in the file are taken relative to the file.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		path = config.DefaultPath
	} else if _, err := os.Stat(path); err != nil {
		return config.Config{}, fmt.Errorf("cannot read config file: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.Resolve(filepath.Dir(abs))
	return cfg, nil
}

// ConfigView is the JSON output of the config command.
type ConfigView struct {
	Path     string        `json:"path"`
	Config   config.Config `json:"config"`
	Errors   []string      `json:"errors,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// ConfigCommand implements the config command
type ConfigCommand struct {
	path  string
	init  bool
	force bool
	out   io.Writer
}

// NewConfigCommand creates a new config command
func NewConfigCommand(out io.Writer) *ConfigCommand {
	return &ConfigCommand{out: out}
}

// ParseFlags parses command-line flags for the config command
func (c *ConfigCommand) ParseFlags(args []string) error {
	var jsonFlag bool
	fs := newFlagSet("config", &jsonFlag)
	fs.StringVar(&c.path, "config", "", "Configuration file (default "+config.DefaultPath+")")
	fs.BoolVar(&c.init, "init", false, "Write a default configuration file")
	fs.BoolVar(&c.force, "force", false, "Overwrite an existing file with --init")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if jsonFlag {
		GlobalJSONMode = true
	}
	return nil
}

// Run executes the config command
func (c *ConfigCommand) Run(ctx context.Context) error {
	path := c.path
	if path == "" {
		path = config.DefaultPath
	}

	if c.init {
		return c.writeDefault(path)
	}

	cfg, err := loadConfig(c.path)
	if err != nil {
		return err
	}
	validation := cfg.Validate()

	if GlobalJSONMode {
		return output.WriteJSONData(c.out, ConfigView{
			Path:     path,
			Config:   cfg,
			Errors:   validation.Errors,
			Warnings: validation.Warnings,
		})
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Fprintf(c.out, "# effective configuration (%s)\n", path)
	c.out.Write(data)
	for _, w := range validation.Warnings {
		fmt.Fprintf(c.out, "# warning: %s\n", w)
	}
	for _, e := range validation.Errors {
		fmt.Fprintf(c.out, "# error: %s\n", e)
	}
	return nil
}

func (c *ConfigCommand) writeDefault(path string) error {
	if _, err := os.Stat(path); err == nil && !c.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot check %s: %w", path, err)
	}

	if err := config.WriteYAMLConfig(path, config.Default()); err != nil {
		return err
	}

	if GlobalJSONMode {
		return output.WriteJSONData(c.out, map[string]string{"written": path})
	}
	fmt.Fprintf(c.out, "Wrote %s; set short_name and list your dependencies.\n", path)
	return nil
}
