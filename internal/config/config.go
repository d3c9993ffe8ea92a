// Package config loads the depsmith.yaml tool configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables, command-line flags (applied by the caller).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath is the configuration file looked up in the working directory.
const DefaultPath = "depsmith.yaml"

// Environment variables overriding the file.
const (
	EnvShortName = "DEPSMITH_SHORT_NAME"
	EnvDBPath    = "DB_PATH"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

// Dependency is a dependency working copy to resolve.
type Dependency struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// Config is the tool configuration.
type Config struct {
	// ShortName identifies the main repository in dependency tag and branch
	// names ("<short_name>1.2", "v<short_name>1.2").
	ShortName string `yaml:"short_name" json:"short_name"`

	// MainRepository is the main working copy, or any directory inside it.
	MainRepository string `yaml:"main_repository" json:"main_repository"`

	// Dependencies are resolved in this order.
	Dependencies []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	// ScanDirectories are searched for more dependency working copies.
	ScanDirectories []string `yaml:"scan_directories,omitempty" json:"scan_directories,omitempty"`

	// ExcludePatterns skip scanned directories whose path contains one of them.
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty" json:"exclude_patterns,omitempty"`

	MaterializeRemoteBranches bool `yaml:"materialize_remote_branches" json:"materialize_remote_branches"`
	OnlyUntracked             bool `yaml:"only_untracked" json:"only_untracked"`
	FailFast                  bool `yaml:"fail_fast" json:"fail_fast"`

	// FallbackBranches overrides the fallback order for non-version branches.
	FallbackBranches []string `yaml:"fallback_branches,omitempty" json:"fallback_branches,omitempty"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	DBPath    string `yaml:"db_path" json:"db_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MainRepository:            ".",
		MaterializeRemoteBranches: true,
		OnlyUntracked:             true,
		LogLevel:                  "info",
		LogFormat:                 "text",
		DBPath:                    defaultDBPath(),
	}
}

func defaultDBPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "depsmith", "depsmith.db")
	}
	return "depsmith.db"
}

// Load reads the YAML file at path on top of the defaults and applies the
// environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvShortName); ok && v != "" {
		c.ShortName = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.LogFormat = v
	}
}

// AddDependency appends a dependency unless one with the same name exists.
// It reports whether the dependency was added.
func (c *Config) AddDependency(dep Dependency) bool {
	if _, ok := c.Dependency(dep.Name); ok {
		return false
	}
	c.Dependencies = append(c.Dependencies, dep)
	return true
}

// Dependency returns the dependency called name.
func (c *Config) Dependency(name string) (Dependency, bool) {
	for _, d := range c.Dependencies {
		if d.Name == name {
			return d, true
		}
	}
	return Dependency{}, false
}

// ParseDependency parses a "name=path" command-line value. A bare path is
// named after its last element.
func ParseDependency(value string) (Dependency, error) {
	name, path, ok := strings.Cut(value, "=")
	if !ok {
		path = value
		name = filepath.Base(filepath.Clean(value))
	}
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if name == "" || path == "" || name == "." || name == string(filepath.Separator) {
		return Dependency{}, fmt.Errorf("invalid dependency %q: expected name=path", value)
	}
	return Dependency{Name: name, Path: path}, nil
}

// Resolve makes relative paths absolute against base, usually the
// directory of the configuration file.
func (c *Config) Resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.MainRepository = abs(c.MainRepository)
	for i := range c.Dependencies {
		c.Dependencies[i].Path = abs(c.Dependencies[i].Path)
	}
	for i := range c.ScanDirectories {
		c.ScanDirectories[i] = abs(c.ScanDirectories[i])
	}
}
