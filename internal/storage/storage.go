// Package storage persists the history of dependency resolutions.
package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persistent storage operations.
// Callers treat storage as optional: a failed write must never fail a
// resolution.
type Storage interface {
	// SaveResolution records one dependency resolution and returns its ID.
	// A zero ResolvedAt is set to the current time.
	SaveResolution(ctx context.Context, rec ResolutionRecord) (int64, error)

	// GetResolutions returns the resolutions of one dependency, most recent
	// first. A limit <= 0 returns everything.
	GetResolutions(ctx context.Context, dependency string, limit int) ([]ResolutionRecord, error)

	// GetAllResolutions returns the resolutions of all dependencies, most
	// recent first. A limit <= 0 returns everything.
	GetAllResolutions(ctx context.Context, limit int) ([]ResolutionRecord, error)

	// GetRun returns the resolutions of one run in the order they were made.
	GetRun(ctx context.Context, runID string) ([]ResolutionRecord, error)

	// LastSuccessful returns the most recent successful resolution of a
	// dependency made while the main repository was on mainBranch. found is
	// false when there is none.
	LastSuccessful(ctx context.Context, dependency, mainBranch string) (rec ResolutionRecord, found bool, err error)

	// Close releases the database.
	Close() error
}

// ResolutionRecord is one resolved (or failed) dependency in one run.
type ResolutionRecord struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Dependency string    `json:"dependency"`
	MainBranch string    `json:"main_branch"`
	ShortName  string    `json:"short_name"`
	Kind       string    `json:"kind,omitempty"`
	Ref        string    `json:"ref,omitempty"`
	CommitID   string    `json:"commit_id,omitempty"`
	Label      string    `json:"label,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}
