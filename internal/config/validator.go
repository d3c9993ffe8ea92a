package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/chis/depsmith/internal/logging"
)

// ValidationResult contains the results of configuration validation.
// Separates errors (blocking issues) from warnings (non-blocking issues).
type ValidationResult struct {
	// Errors contains validation failures that should block operations
	Errors []string

	// Warnings contains validation issues that should be logged but not block operations
	Warnings []string
}

// IsValid returns true if there are no validation errors.
// Warnings do not affect validity.
func (vr *ValidationResult) IsValid() bool {
	return len(vr.Errors) == 0
}

// HasWarnings returns true if there are any validation warnings.
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// AddError adds an error message to the validation result.
func (vr *ValidationResult) AddError(msg string) {
	vr.Errors = append(vr.Errors, msg)
}

// AddWarning adds a warning message to the validation result.
func (vr *ValidationResult) AddWarning(msg string) {
	vr.Warnings = append(vr.Warnings, msg)
}

// Merge combines multiple validation results into a single result.
func (vr *ValidationResult) Merge(other ValidationResult) {
	vr.Errors = append(vr.Errors, other.Errors...)
	vr.Warnings = append(vr.Warnings, other.Warnings...)
}

// Err returns the errors as a single error, or nil.
func (vr *ValidationResult) Err() error {
	if vr.IsValid() {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(vr.Errors, "; "))
}

var shortNamePattern = regexp.MustCompile(`^[A-Za-z]+$`)

// ValidateShortName checks that name can appear as the alphabetic prefix
// of a version label. Anything else could never match a tag.
func ValidateShortName(name string) ValidationResult {
	result := ValidationResult{}

	if name == "" {
		result.AddError("short_name cannot be empty")
		return result
	}
	if !shortNamePattern.MatchString(name) {
		result.AddError(fmt.Sprintf("short_name %q must consist of letters only", name))
	}

	return result
}

// ValidateLogLevel checks a log level name.
func ValidateLogLevel(level string) ValidationResult {
	result := ValidationResult{}
	if _, ok := logging.ParseLevel(level); !ok {
		result.AddError(fmt.Sprintf("unknown log_level %q (debug, info, warn, error)", level))
	}
	return result
}

// ValidateLogFormat checks a log format name.
func ValidateLogFormat(format string) ValidationResult {
	result := ValidationResult{}
	switch strings.ToLower(format) {
	case "", "text", "json":
	default:
		result.AddError(fmt.Sprintf("unknown log_format %q (text, json)", format))
	}
	return result
}

// ValidatePath validates that a path exists and is a directory.
// Returns warnings (not errors) for inaccessible paths.
func ValidatePath(path string) ValidationResult {
	result := ValidationResult{}

	if path == "" {
		result.AddWarning("path is empty")
		return result
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			result.AddWarning(fmt.Sprintf("path does not exist: %s", path))
		} else if os.IsPermission(err) {
			result.AddWarning(fmt.Sprintf("path is not readable: %s", path))
		} else {
			result.AddWarning(fmt.Sprintf("cannot access path %s: %v", path, err))
		}
		return result
	}

	if !info.IsDir() {
		result.AddWarning(fmt.Sprintf("path is not a directory: %s", path))
	}

	return result
}

// ValidateDependencies checks names and paths of the configured dependencies.
// Missing working copies are errors: a dependency that cannot be opened
// cannot be resolved.
func ValidateDependencies(deps []Dependency) ValidationResult {
	result := ValidationResult{}
	seen := make(map[string]bool, len(deps))

	for i, d := range deps {
		if d.Name == "" {
			result.AddError(fmt.Sprintf("dependency #%d has no name", i+1))
		} else if seen[d.Name] {
			result.AddError(fmt.Sprintf("dependency %q is listed twice", d.Name))
		}
		seen[d.Name] = true

		if d.Path == "" {
			result.AddError(fmt.Sprintf("dependency %q has no path", d.Name))
			continue
		}
		pathResult := ValidatePath(d.Path)
		for _, w := range pathResult.Warnings {
			result.AddError(fmt.Sprintf("dependency %q: %s", d.Name, w))
		}
	}

	return result
}

// Validate validates the whole configuration.
func (c *Config) Validate() ValidationResult {
	result := ValidationResult{}

	result.Merge(ValidateShortName(c.ShortName))
	result.Merge(ValidateLogLevel(c.LogLevel))
	result.Merge(ValidateLogFormat(c.LogFormat))

	if c.MainRepository == "" {
		result.AddError("main_repository cannot be empty")
	} else {
		result.Merge(ValidatePath(c.MainRepository))
	}

	if len(c.Dependencies) == 0 && len(c.ScanDirectories) == 0 {
		result.AddError("no dependencies configured")
	}
	result.Merge(ValidateDependencies(c.Dependencies))

	for _, dir := range c.ScanDirectories {
		result.Merge(ValidatePath(dir))
	}

	for _, b := range c.FallbackBranches {
		if strings.TrimSpace(b) == "" {
			result.AddError("fallback_branches cannot contain empty names")
			break
		}
	}

	return result
}
