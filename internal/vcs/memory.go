package vcs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Repository. It keeps just enough state to exercise
// the resolver: a commit graph with single parents, local and remote
// branches, tags and HEAD. It also records every mutating call so tests can
// assert on what a caller did.
type Memory struct {
	mu sync.Mutex

	name     string
	commits  map[string]memoryCommit
	branches map[string]string // local branch -> tip
	remotes  map[string]string // "origin/x" -> tip
	upstream map[string]string // local branch -> "origin/x"
	tags     map[string]string // tag -> commit
	head     string
	detached bool
	seq      int
	ops      []string
	closed   bool
}

var _ Repository = (*Memory)(nil)

type memoryCommit struct {
	Commit
	parent string
}

// NewMemory returns an empty repository whose HEAD points at the unborn
// branch "master".
func NewMemory(name string) *Memory {
	return &Memory{
		name:     name,
		commits:  make(map[string]memoryCommit),
		branches: make(map[string]string),
		remotes:  make(map[string]string),
		upstream: make(map[string]string),
		tags:     make(map[string]string),
		head:     "master",
	}
}

// --- fixture builders ---

// Commit adds a commit on top of branch, creating the branch from the
// current HEAD commit when it does not exist yet, and returns its ID.
func (m *Memory) Commit(branch, message string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent, ok := m.branches[branch]
	if !ok {
		parent = m.branches[m.head]
	}

	m.seq++
	id := fmt.Sprintf("%040x", m.seq)
	m.commits[id] = memoryCommit{
		Commit: Commit{
			ID:      id,
			Message: message,
			Author:  "depsmith",
			When:    time.Unix(int64(1700000000+m.seq), 0).UTC(),
		},
		parent: parent,
	}
	m.branches[branch] = id
	return id
}

// Tag points tag name at commitID.
func (m *Memory) Tag(name, commitID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[name] = commitID
}

// AddRemoteBranch adds a remote-tracking branch such as "origin/develop".
func (m *Memory) AddRemoteBranch(name, commitID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remotes[name] = commitID
}

// SetHead points HEAD at branch without touching the working tree.
func (m *Memory) SetHead(branch string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.head = branch
	m.detached = false
}

// Detach detaches HEAD.
func (m *Memory) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detached = true
}

// Operations returns the mutating calls made so far, e.g. "checkout build".
func (m *Memory) Operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

// Tip returns the commit a local branch points at.
func (m *Memory) Tip(branch string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tip, ok := m.branches[branch]
	return tip, ok
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// --- Repository ---

// Name implements Repository.
func (m *Memory) Name() string {
	return m.name
}

// Head implements Repository.
func (m *Memory) Head() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detached {
		return "", ErrDetachedHead
	}
	return m.head, nil
}

// Branches implements Repository.
func (m *Memory) Branches() ([]Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	branches := make([]Branch, 0, len(m.branches))
	for name, tip := range m.branches {
		b := Branch{Name: name, Tip: tip}
		if up, ok := m.upstream[name]; ok {
			b.Upstream = up
			b.Remote, _, _ = strings.Cut(up, "/")
		}
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// RemoteBranches implements Repository.
func (m *Memory) RemoteBranches() ([]Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	branches := make([]Branch, 0, len(m.remotes))
	for name, tip := range m.remotes {
		remote, _, _ := strings.Cut(name, "/")
		branches = append(branches, Branch{Name: name, Remote: remote, Tip: tip})
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// Tags implements Repository.
func (m *Memory) Tags() ([]Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tags := make([]Tag, 0, len(m.tags))
	for name, target := range m.tags {
		tags = append(tags, Tag{Name: name, Target: target})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// Log implements Repository.
func (m *Memory) Log(limit int) ([]Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var commits []Commit
	id := m.branches[m.head]
	for id != "" {
		if limit > 0 && len(commits) >= limit {
			break
		}
		c, ok := m.commits[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, id)
		}
		commits = append(commits, c.Commit)
		id = c.parent
	}
	return commits, nil
}

// Lookup implements Repository.
func (m *Memory) Lookup(id string) (Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.commits[id]
	if !ok {
		return Commit{}, fmt.Errorf("%w: %s", ErrCommitNotFound, id)
	}
	return c.Commit, nil
}

// CreateBranch implements Repository.
func (m *Memory) CreateBranch(name, commitID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[name]; ok {
		return fmt.Errorf("%w: %s", ErrBranchExists, name)
	}
	if _, ok := m.commits[commitID]; !ok {
		return fmt.Errorf("%w: %s", ErrCommitNotFound, commitID)
	}
	m.branches[name] = commitID
	m.ops = append(m.ops, "branch "+name+" "+commitID)
	return nil
}

// SetUpstream implements Repository.
func (m *Memory) SetUpstream(branch, remote, remoteBranch string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[branch]; !ok {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	up := remote + "/" + remoteBranch
	m.upstream[branch] = up
	m.ops = append(m.ops, "upstream "+branch+" "+up)
	return nil
}

// Checkout implements Repository.
func (m *Memory) Checkout(branch string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[branch]; !ok {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	m.head = branch
	m.detached = false
	m.ops = append(m.ops, "checkout "+branch)
	return nil
}

// ResetHard implements Repository.
func (m *Memory) ResetHard(commitID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.detached {
		return ErrDetachedHead
	}
	if _, ok := m.commits[commitID]; !ok {
		return fmt.Errorf("%w: %s", ErrCommitNotFound, commitID)
	}
	m.branches[m.head] = commitID
	m.ops = append(m.ops, "reset "+m.head+" "+commitID)
	return nil
}

// Close implements Repository.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
