// Package vcs defines the version-control capabilities the resolver needs
// and an in-memory implementation of them.
//
// A Repository is owned by a single caller for its lifetime. Implementations
// are not required to be safe for concurrent mutation.
package vcs

import (
	"errors"
	"time"
)

// BuildBranch is the disposable local branch resolutions are materialized on.
const BuildBranch = "build"

// Sentinel errors shared by all backends.
var (
	ErrBranchNotFound = errors.New("branch not found")
	ErrBranchExists   = errors.New("branch already exists")
	ErrCommitNotFound = errors.New("commit not found")
	ErrDetachedHead   = errors.New("HEAD is detached")
	ErrNoCommits      = errors.New("repository has no commits")
)

// Commit is a single commit reachable from HEAD.
type Commit struct {
	ID      string
	Message string
	Author  string
	When    time.Time
}

// Branch is a local or remote branch.
// For remote branches Name is remote-qualified ("origin/develop").
type Branch struct {
	Name     string
	Remote   string // remote name, empty for local branches without upstream
	Tip      string // commit ID
	Upstream string // remote-qualified upstream of a local branch, if any
}

// Tag is a tag peeled to the commit it points at.
type Tag struct {
	Name   string
	Target string // commit ID
}

// Repository is the capability surface of a version-control backend.
type Repository interface {
	// Name identifies the repository in logs and errors (usually its path).
	Name() string

	// Head returns the name of the branch HEAD points at.
	// It returns ErrDetachedHead when HEAD is not on a branch.
	Head() (string, error)

	// Branches returns the local branches sorted by name.
	Branches() ([]Branch, error)

	// RemoteBranches returns the remote-tracking branches sorted by name.
	// Symbolic refs such as origin/HEAD are not included.
	RemoteBranches() ([]Branch, error)

	// Tags returns all tags sorted by name.
	Tags() ([]Tag, error)

	// Log returns up to limit commits reachable from HEAD, most recent first.
	// A limit <= 0 returns the whole history.
	Log(limit int) ([]Commit, error)

	// Lookup returns the commit with the given ID.
	Lookup(id string) (Commit, error)

	// CreateBranch creates a local branch at the given commit.
	CreateBranch(name, commitID string) error

	// SetUpstream makes the local branch track remote/remoteBranch.
	SetUpstream(branch, remote, remoteBranch string) error

	// Checkout switches to a local branch, discarding local modifications.
	Checkout(branch string) error

	// ResetHard moves the current branch to commitID and resets the working tree.
	ResetHard(commitID string) error

	// Close releases the repository.
	Close() error
}

// FindBranch returns the branch called name.
func FindBranch(branches []Branch, name string) (Branch, bool) {
	for _, b := range branches {
		if b.Name == name {
			return b, true
		}
	}
	return Branch{}, false
}

// BranchNames returns the names of branches in order.
func BranchNames(branches []Branch) []string {
	names := make([]string, len(branches))
	for i, b := range branches {
		names[i] = b.Name
	}
	return names
}

// HeadCommit returns the most recent commit on HEAD.
func HeadCommit(repo Repository) (Commit, error) {
	commits, err := repo.Log(1)
	if err != nil {
		return Commit{}, err
	}
	if len(commits) == 0 {
		return Commit{}, ErrNoCommits
	}
	return commits[0], nil
}
