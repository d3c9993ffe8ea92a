package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chis/depsmith/internal/logging"
)

// DefaultExcludePatterns are skipped when no exclude patterns are configured.
var DefaultExcludePatterns = []string{"node_modules", "vendor", ".cache"}

// Scanner finds git working copies below the configured scan directories.
type Scanner struct {
	config *Config
}

// NewScanner creates a scanner for cfg.
func NewScanner(cfg *Config) *Scanner {
	return &Scanner{config: cfg}
}

// IsWorkingCopy reports whether dir is the root of a git working copy.
// Worktrees and submodules have a .git file instead of a directory.
func IsWorkingCopy(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// ShouldExclude checks if a path contains any exclusion pattern.
func (s *Scanner) ShouldExclude(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

func (s *Scanner) excludePatterns() []string {
	if s.config != nil && len(s.config.ExcludePatterns) > 0 {
		return s.config.ExcludePatterns
	}
	return DefaultExcludePatterns
}

// ScanDirectory returns the working copies below dirPath, without
// descending into them.
func (s *Scanner) ScanDirectory(ctx context.Context, dirPath string) ([]string, error) {
	exclude := s.excludePatterns()
	var found []string

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if os.IsPermission(err) {
				logging.Warn("Permission denied accessing %s: %v", path, err)
				return filepath.SkipDir
			}
			return err
		}

		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" || s.ShouldExclude(path, exclude) {
			return filepath.SkipDir
		}
		if IsWorkingCopy(path) {
			found = append(found, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dirPath, err)
	}

	return found, nil
}

// ScanAll scans every configured directory concurrently and returns the
// working copies found as dependencies named after their directory, sorted
// by path. skip lists paths to leave out, typically the main repository.
func (s *Scanner) ScanAll(ctx context.Context, skip ...string) ([]Dependency, error) {
	if s.config == nil || len(s.config.ScanDirectories) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		allFound []string
	)
	errChan := make(chan error, len(s.config.ScanDirectories))

	for _, dir := range s.config.ScanDirectories {
		wg.Add(1)
		go func(dirPath string) {
			defer wg.Done()

			if _, err := os.Stat(dirPath); err != nil {
				if os.IsNotExist(err) {
					logging.Warn("Scan directory does not exist: %s", dirPath)
					return
				}
				errChan <- fmt.Errorf("failed to access directory %s: %w", dirPath, err)
				return
			}

			found, err := s.ScanDirectory(ctx, dirPath)
			if err != nil {
				errChan <- err
				return
			}

			mu.Lock()
			allFound = append(allFound, found...)
			mu.Unlock()
		}(dir)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[filepath.Clean(p)] = true
	}

	sort.Strings(allFound)
	deps := make([]Dependency, 0, len(allFound))
	for _, path := range allFound {
		if skipped[filepath.Clean(path)] {
			continue
		}
		deps = append(deps, Dependency{Name: filepath.Base(path), Path: path})
	}

	logging.Debug("Found %d working copies in %d directories", len(deps), len(s.config.ScanDirectories))
	return deps, nil
}
