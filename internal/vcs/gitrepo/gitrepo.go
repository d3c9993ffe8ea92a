// Package gitrepo implements vcs.Repository on top of a git working copy
// using go-git.
package gitrepo

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/chis/depsmith/internal/logging"
	"github.com/chis/depsmith/internal/vcs"
)

// Repository is a git working copy opened with go-git.
type Repository struct {
	root string
	repo *git.Repository
}

var _ vcs.Repository = (*Repository)(nil)

// Open opens the repository containing path. path may be the working copy
// root or any directory below it.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", path, err)
	}

	root := path
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	return &Repository{root: root, repo: repo}, nil
}

// OpenRepository is Open with a vcs.Repository result, usable as an opener
// function by callers that only know the interface.
func OpenRepository(path string) (vcs.Repository, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// FindRoot returns the working copy root of the repository containing path.
func FindRoot(path string) (string, error) {
	r, err := Open(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return r.root, nil
}

// Name implements vcs.Repository.
func (r *Repository) Name() string {
	return r.root
}

// Head implements vcs.Repository. An unborn branch is reported by name.
func (r *Repository) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			sym, symErr := r.repo.Storer.Reference(plumbing.HEAD)
			if symErr == nil && sym.Type() == plumbing.SymbolicReference {
				return sym.Target().Short(), nil
			}
		}
		return "", fmt.Errorf("failed to read HEAD of %s: %w", r.root, err)
	}

	if !ref.Name().IsBranch() {
		return "", vcs.ErrDetachedHead
	}
	return ref.Name().Short(), nil
}

// Branches implements vcs.Repository.
func (r *Repository) Branches() ([]vcs.Branch, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to read config of %s: %w", r.root, err)
	}

	iter, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches of %s: %w", r.root, err)
	}
	defer iter.Close()

	var branches []vcs.Branch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		b := vcs.Branch{
			Name: ref.Name().Short(),
			Tip:  ref.Hash().String(),
		}
		if bc, ok := cfg.Branches[b.Name]; ok && bc.Remote != "" && bc.Merge != "" {
			b.Remote = bc.Remote
			b.Upstream = bc.Remote + "/" + bc.Merge.Short()
		}
		branches = append(branches, b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list branches of %s: %w", r.root, err)
	}

	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// RemoteBranches implements vcs.Repository.
func (r *Repository) RemoteBranches() ([]vcs.Branch, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references of %s: %w", r.root, err)
	}
	defer iter.Close()

	var branches []vcs.Branch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() || ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name().Short()
		if strings.HasSuffix(name, "/HEAD") {
			return nil
		}
		remote, _, _ := strings.Cut(name, "/")
		branches = append(branches, vcs.Branch{
			Name:   name,
			Remote: remote,
			Tip:    ref.Hash().String(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list remote branches of %s: %w", r.root, err)
	}

	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// Tags implements vcs.Repository. Annotated tags are peeled to their commit.
func (r *Repository) Tags() ([]vcs.Tag, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", r.root, err)
	}
	defer iter.Close()

	var tags []vcs.Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target, err := r.peel(ref.Hash())
		if errors.Is(err, errNotCommit) {
			logging.Debug("Skipping tag %s in %s: %v", ref.Name().Short(), r.root, err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("tag %s: %w", ref.Name().Short(), err)
		}
		tags = append(tags, vcs.Tag{
			Name:   ref.Name().Short(),
			Target: target.String(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", r.root, err)
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

var errNotCommit = errors.New("does not point at a commit")

// peel follows annotated tags down to the commit they point at.
func (r *Repository) peel(h plumbing.Hash) (plumbing.Hash, error) {
	tag, err := r.repo.TagObject(h)
	switch {
	case err == nil:
		switch tag.TargetType {
		case plumbing.TagObject:
			return r.peel(tag.Target)
		case plumbing.CommitObject:
			return tag.Target, nil
		default:
			return plumbing.ZeroHash, fmt.Errorf("%w: %s %s", errNotCommit, tag.TargetType, tag.Target)
		}
	case errors.Is(err, plumbing.ErrObjectNotFound):
		// lightweight tag
		if _, err := r.repo.CommitObject(h); err != nil {
			if errors.Is(err, plumbing.ErrObjectNotFound) {
				return plumbing.ZeroHash, fmt.Errorf("%w: %s", errNotCommit, h)
			}
			return plumbing.ZeroHash, err
		}
		return h, nil
	default:
		return plumbing.ZeroHash, err
	}
}

// Log implements vcs.Repository. An unborn HEAD has no commits.
func (r *Repository) Log(limit int) ([]vcs.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read HEAD of %s: %w", r.root, err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read log of %s: %w", r.root, err)
	}
	defer iter.Close()

	var commits []vcs.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		commits = append(commits, toCommit(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read log of %s: %w", r.root, err)
	}
	return commits, nil
}

// Lookup implements vcs.Repository.
func (r *Repository) Lookup(id string) (vcs.Commit, error) {
	c, err := r.commit(id)
	if err != nil {
		return vcs.Commit{}, err
	}
	return toCommit(c), nil
}

func (r *Repository) commit(id string) (*object.Commit, error) {
	c, err := r.repo.CommitObject(plumbing.NewHash(id))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s in %s", vcs.ErrCommitNotFound, id, r.root)
		}
		return nil, fmt.Errorf("failed to look up %s in %s: %w", id, r.root, err)
	}
	return c, nil
}

func toCommit(c *object.Commit) vcs.Commit {
	return vcs.Commit{
		ID:      c.Hash.String(),
		Message: strings.TrimSpace(c.Message),
		Author:  c.Author.Name,
		When:    c.Author.When,
	}
}

func (r *Repository) hasBranch(name string) bool {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), false)
	return err == nil
}

// CreateBranch implements vcs.Repository.
func (r *Repository) CreateBranch(name, commitID string) error {
	if r.hasBranch(name) {
		return fmt.Errorf("%w: %s in %s", vcs.ErrBranchExists, name, r.root)
	}
	c, err := r.commit(commitID)
	if err != nil {
		return err
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), c.Hash)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to create branch %s in %s: %w", name, r.root, err)
	}
	return nil
}

// SetUpstream implements vcs.Repository.
func (r *Repository) SetUpstream(branch, remote, remoteBranch string) error {
	if !r.hasBranch(branch) {
		return fmt.Errorf("%w: %s in %s", vcs.ErrBranchNotFound, branch, r.root)
	}

	cfg, err := r.repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read config of %s: %w", r.root, err)
	}
	cfg.Branches[branch] = &gitconfig.Branch{
		Name:   branch,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(remoteBranch),
	}
	if err := r.repo.Storer.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to set upstream of %s in %s: %w", branch, r.root, err)
	}
	return nil
}

// Checkout implements vcs.Repository.
func (r *Repository) Checkout(branch string) error {
	if !r.hasBranch(branch) {
		return fmt.Errorf("%w: %s in %s", vcs.ErrBranchNotFound, branch, r.root)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree of %s: %w", r.root, err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to check out %s in %s: %w", branch, r.root, err)
	}
	return nil
}

// ResetHard implements vcs.Repository.
func (r *Repository) ResetHard(commitID string) error {
	c, err := r.commit(commitID)
	if err != nil {
		return err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree of %s: %w", r.root, err)
	}
	err = wt.Reset(&git.ResetOptions{
		Commit: c.Hash,
		Mode:   git.HardReset,
	})
	if err != nil {
		return fmt.Errorf("failed to reset %s to %s: %w", r.root, commitID, err)
	}
	return nil
}

// Close implements vcs.Repository.
func (r *Repository) Close() error {
	if c, ok := r.repo.Storer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
