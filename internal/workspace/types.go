package workspace

import (
	"time"

	"github.com/chis/depsmith/internal/resolver"
)

// Status is the outcome of one dependency in a run.
type Status string

const (
	StatusResolved Status = "RESOLVED"
	StatusFailed   Status = "FAILED"
	StatusSkipped  Status = "SKIPPED" // not attempted: cancelled or stopped by fail-fast
)

// Outcome is what happened to one dependency.
type Outcome struct {
	Dependency string `json:"dependency"`
	Path       string `json:"path"`
	Status     Status `json:"status"`

	Kind     resolver.Kind `json:"kind,omitempty"`
	Ref      string        `json:"ref,omitempty"`
	CommitID string        `json:"commit_id,omitempty"`
	Label    string        `json:"label,omitempty"`

	// Changed is true when the resolution differs from the last successful
	// one recorded for this dependency, or when there is no history.
	Changed bool `json:"changed"`
	// Previous is the ref of the last successful resolution, if known.
	Previous string `json:"previous,omitempty"`

	// Materialized lists the local branches created from remote branches.
	Materialized []string `json:"materialized,omitempty"`

	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

// RunResult contains the results of resolving every dependency once.
type RunResult struct {
	RunID      string    `json:"run_id"`
	MainBranch string    `json:"main_branch"`
	ShortName  string    `json:"short_name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Outcomes []Outcome `json:"outcomes"`

	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	Changed  int `json:"changed"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

func (r *RunResult) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Total++
	switch o.Status {
	case StatusResolved:
		r.Resolved++
		if o.Changed {
			r.Changed++
		}
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
}
